package combat

import (
	"fmt"
	"math"

	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/game/stat"
)

// Consequence holds the pending pool changes one effect causes in a pass,
// before modifiers and collapse.
type Consequence struct {
	EffectID string
	ActorID  string
	TargetID string
	// Source names the creator and action for the log.
	Source string
	// Group identifies heals from the same creator and action; only the
	// strongest of a group lands.
	Group  string
	Attack effect.Tag
	// Raw is the damage as first computed.
	Raw float64

	Damage    float64
	Residual  float64
	Reflect   float64
	Recoil    float64
	Lifesteal float64
	Heal      map[stat.Pool]float64
	Absorb    map[stat.Pool]float64
	Drain     map[stat.Pool]float64

	absorbed float64
}

// consequence returns the accumulator of an effect, creating it on first
// use.
func (p *pass) consequence(u effect.Tag, targetID string) *Consequence {
	c := u.Common()
	if cs, ok := p.cons[c.ID]; ok {
		return cs
	}
	source := describeSource(u)
	if creator := p.b.Find(c.CreatorID); creator != nil {
		source = fmt.Sprintf("%s's %s", creator.Name, source)
	}
	cs := &Consequence{
		EffectID: c.ID,
		ActorID:  c.CreatorID,
		TargetID: targetID,
		Source:   source,
		Group:    c.CreatorID + "/" + c.ActionID,
		Attack:   u,
		Heal:     make(map[stat.Pool]float64),
		Absorb:   make(map[stat.Pool]float64),
		Drain:    make(map[stat.Pool]float64),
	}
	p.cons[c.ID] = cs
	p.order = append(p.order, c.ID)
	return cs
}

// each calls fn for every consequence with pending damage, in creation
// order.
func (p *pass) each(fn func(cs *Consequence)) {
	for _, id := range p.order {
		if cs := p.cons[id]; cs.Damage > 0 {
			fn(cs)
		}
	}
}

// share is the part of amount a conversion modifier claims: a percentage
// of it, or a flat value bounded by it.
func share(mod effect.Tag, amount float64) float64 {
	power := effect.Power(mod)
	var v float64
	if mod.Common().Calculation == effect.Percentage {
		v = amount * power / 100
	} else {
		v = min(power, amount)
	}
	return min(math.Ceil(v), amount)
}

// adjusted applies a static or percentage change to value.
func adjusted(mod effect.Tag, value float64) float64 {
	change := effect.Power(mod)
	if mod.Common().Calculation == effect.Percentage {
		change = value * change / 100
	}
	return change * effect.Sign(mod)
}

func splitPools(pools []stat.Pool, amount float64, into map[stat.Pool]float64) {
	if len(pools) == 0 {
		return
	}
	part := amount / float64(len(pools))
	for _, pl := range pools {
		into[pl] += part
	}
}
