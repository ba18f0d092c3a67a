package combat

import (
	"slices"
	"strings"

	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/game/stat"
	"github.com/udisondev/hexbattle/internal/model"
)

// tally is everything a combatant receives in one pass.
type tally struct {
	damage    float64
	residual  float64
	reflect   float64
	recoil    float64
	lifesteal float64
	sources   []string
	groups    []string
	heal      map[string]map[stat.Pool]float64
	absorb    map[stat.Pool]float64
	drain     map[stat.Pool]float64
}

func newTally() *tally {
	return &tally{
		heal:   make(map[string]map[stat.Pool]float64),
		absorb: make(map[stat.Pool]float64),
		drain:  make(map[stat.Pool]float64),
	}
}

// healed sums the heals of a pool: within a creator and action group only
// the strongest counts, groups add up.
func (t *tally) healed(pl stat.Pool) float64 {
	var sum float64
	for _, g := range t.groups {
		sum += t.heal[g][pl]
	}
	return sum
}

// collapse merges consequences per combatant and writes them into pools.
func (p *pass) collapse() {
	tallies := make(map[string]*tally)
	get := func(id string) *tally {
		t, ok := tallies[id]
		if !ok {
			t = newTally()
			tallies[id] = t
		}
		return t
	}

	for _, id := range p.order {
		cs := p.cons[id]
		t := get(cs.TargetID)
		t.damage += cs.Damage
		t.residual += cs.Residual
		if cs.Damage > 0 && !slices.Contains(t.sources, cs.Source) {
			t.sources = append(t.sources, cs.Source)
		}
		for pl, v := range cs.Heal {
			group, ok := t.heal[cs.Group]
			if !ok {
				group = make(map[stat.Pool]float64)
				t.heal[cs.Group] = group
				t.groups = append(t.groups, cs.Group)
			}
			group[pl] = max(group[pl], v)
		}
		for pl, v := range cs.Absorb {
			t.absorb[pl] += v
		}
		for pl, v := range cs.Drain {
			t.drain[pl] += v
		}

		a := get(cs.ActorID)
		a.reflect += cs.Reflect
		a.recoil += cs.Recoil
		a.lifesteal += cs.Lifesteal
	}

	for _, c := range p.b.Combatants {
		if t, ok := tallies[c.ID]; ok && c.Alive() {
			p.land(c, t)
		}
		if before, ok := p.view[c.ID]; ok && before.Alive() && !c.Alive() && !c.FledBattle && !c.IsOriginal {
			p.visual(c.Hex(), "smoke", c.ID, "defeated")
		}
	}
}

// land applies one combatant's tally.
func (p *pass) land(c *model.Combatant, t *tally) {
	if hit := t.damage + t.residual; hit > 0 {
		if len(t.sources) > 0 {
			p.say(model.ColorRed, "%s takes %.2f damage from %s", c.Name, hit, strings.Join(t.sources, ", "))
		} else {
			p.say(model.ColorRed, "%s takes %.2f damage", c.Name, hit)
		}
	}
	if t.reflect > 0 {
		p.say(model.ColorRed, "%s takes %.2f reflect damage", c.Name, t.reflect)
	}
	if t.recoil > 0 {
		p.say(model.ColorRed, "%s takes %.2f recoil damage", c.Name, t.recoil)
	}

	incoming := p.shield(c, t.damage+t.residual+t.reflect+t.recoil)
	health := c.CurHealth - incoming
	if health > 0 && t.lifesteal > 0 {
		health += t.lifesteal
		p.say(model.ColorGreen, "%s steals %.2f health", c.Name, t.lifesteal)
	}
	if incoming > 0 && health < 1 && p.standing(c.ID) {
		health = 1
		p.say(model.ColorBlue, "%s refuses to fall", c.Name)
	}
	c.CurHealth = health

	for _, pl := range []stat.Pool{stat.Health, stat.Chakra, stat.Stamina} {
		if h := t.healed(pl); h > 0 {
			c.AddPool(pl, h)
			p.say(model.ColorGreen, "%s heals %.2f %s", c.Name, h, strings.ToLower(string(pl)))
		}
		if a := t.absorb[pl]; a > 0 {
			c.AddPool(pl, a)
			p.say(model.ColorGreen, "%s absorbs %.2f damage and converts it to %s", c.Name, a, strings.ToLower(string(pl)))
		}
		if d := t.drain[pl]; d > 0 {
			c.AddPool(pl, -d)
			p.say(model.ColorRed, "%s loses %.2f %s", c.Name, d, strings.ToLower(string(pl)))
		}
	}
	c.ClampPools()
}

// shield soaks incoming damage with the combatant's shields, front to back.
func (p *pass) shield(c *model.Combatant, incoming float64) float64 {
	for _, u := range p.user {
		s, ok := u.(*effect.Shield)
		if !ok || s.TargetID != c.ID || p.zeroed[s.ID] || s.ActiveFrom > p.round {
			continue
		}
		if incoming <= 0 {
			break
		}
		soak := min(s.Power, incoming)
		s.Power -= soak
		incoming -= soak
		p.say(model.ColorBlue, "%s's shield absorbs %.2f damage", c.Name, soak)
		if s.Power <= 0 {
			p.zero(s)
		}
	}
	return incoming
}

// standing reports whether an active final stand holds the combatant.
func (p *pass) standing(id string) bool {
	for _, u := range p.user {
		c := u.Common()
		if u.Kind() == effect.KindFinalStand && c.TargetID == id && !p.zeroed[c.ID] && c.ActiveFrom <= p.round {
			return true
		}
	}
	return false
}
