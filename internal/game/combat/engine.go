// Package combat resolves a battle's pending effects into combatant state.
//
// A resolution is one pass over a snapshot of the battle: ground effects
// are processed first, converting into user effects for whoever stands on
// their tiles, then user effects run in precedence order while collecting
// per-target consequences, which are finally collapsed into the pools.
// The engine is pure over its input; randomness comes from the injected
// generator only.
package combat

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/hexgrid"
	"github.com/udisondev/hexbattle/internal/model"
)

// ErrInvariant is returned when the battle holds state the engine refuses
// to resolve, such as a summon without a companion template.
var ErrInvariant = errors.New("combat invariant violated")

// DefaultAbsorbCap bounds the share of a hit absorb effects may convert.
const DefaultAbsorbCap = 0.6

// Options configures an Engine.
type Options struct {
	Rand       *rand.Rand
	Formula    Formula
	Companions map[string]model.Companion
	// AbsorbCap is the largest fraction of one hit absorb effects convert.
	AbsorbCap float64
}

// Engine resolves battles.
type Engine struct {
	opts Options
}

// New creates an Engine. Zero options fall back to defaults; a nil Rand is
// replaced with a fixed-seed generator.
func New(opts Options) *Engine {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(0, 0))
	}
	if opts.Formula == (Formula{}) {
		opts.Formula = DefaultFormula()
	}
	if opts.AbsorbCap <= 0 {
		opts.AbsorbCap = DefaultAbsorbCap
	}
	return &Engine{opts: opts}
}

// Result is the outcome of one resolution.
type Result struct {
	Battle *model.Battle
	Log    []model.ActionEffect
}

// Resolve runs one pass over the battle's effects. The input battle is not
// modified.
func (e *Engine) Resolve(b *model.Battle) (*Result, error) {
	next, err := b.Clone()
	if err != nil {
		return nil, fmt.Errorf("resolving battle: %w", err)
	}
	start, err := b.Clone()
	if err != nil {
		return nil, fmt.Errorf("resolving battle: %w", err)
	}

	p := newPass(e, next, start)
	if err := p.groundPass(); err != nil {
		return nil, fmt.Errorf("resolving battle %s: %w", b.ID, err)
	}
	p.userPass()
	p.collapse()
	p.finish()

	slog.Debug("battle resolved",
		"battle", b.ID,
		"round", b.Round,
		"user_effects", len(next.UserEffects),
		"ground_effects", len(next.GroundEffects),
		"log", len(p.log))
	return &Result{Battle: next, Log: p.log}, nil
}

type preventKey struct {
	target  string
	blocked effect.Kind
}

// pass holds the working state of one resolution.
type pass struct {
	opts  *Options
	b     *model.Battle
	view  map[string]*model.Combatant
	round int
	multi bool

	// list is the user effect list being resolved; prevent lookups scan it.
	list effect.Tags

	ground   effect.Tags
	user     effect.Tags
	pending  effect.Tags
	deferred effect.Tags
	spawned  effect.Tags
	visuals  effect.Tags

	cons     map[string]*Consequence
	order    []string
	prevents map[preventKey]bool
	zeroed   map[string]bool
	sealed   map[string]bool
	log      []model.ActionEffect
}

func newPass(e *Engine, next, start *model.Battle) *pass {
	view := make(map[string]*model.Combatant, len(start.Combatants))
	for _, c := range start.Combatants {
		view[c.ID] = c
	}
	return &pass{
		opts:     &e.opts,
		b:        next,
		view:     view,
		round:    next.Round,
		multi:    next.MultiVillage(),
		list:     next.UserEffects,
		cons:     make(map[string]*Consequence),
		prevents: make(map[preventKey]bool),
		zeroed:   make(map[string]bool),
		sealed:   make(map[string]bool),
	}
}

func (p *pass) say(color, format string, args ...any) {
	p.log = append(p.log, model.ActionEffect{Text: fmt.Sprintf(format, args...), Color: color})
}

// statsOf returns the start-of-pass copy of a combatant, which carries this
// pass's stat adjustments. Combatants spawned during the pass have none.
func (p *pass) statsOf(id string) *model.Combatant {
	if v, ok := p.view[id]; ok {
		return v
	}
	return p.b.Find(id)
}

// zero ends an effect: it is skipped for the rest of the pass and dropped.
func (p *pass) zero(t effect.Tag) {
	c := t.Common()
	c.SetRounds(0)
	p.zeroed[c.ID] = true
}

// keeps reports whether an effect survives the pass.
func (p *pass) keeps(t effect.Tag) bool {
	c := t.Common()
	if p.zeroed[c.ID] {
		return false
	}
	if c.Rounds == nil {
		return !effect.IsOneShot(t.Kind())
	}
	return *c.Rounds > 0
}

// once stamps the per-target last-applied round and reports whether the
// effect has not applied to the target this round yet.
func (p *pass) once(t effect.Tag, targetID string) bool {
	c := t.Common()
	if last, ok := c.LastApplied[targetID]; ok && last == p.round {
		return false
	}
	if c.LastApplied == nil {
		c.LastApplied = make(map[string]int)
	}
	c.LastApplied[targetID] = p.round
	return true
}

// applies is once, except for kinds that resolve on every pass.
func (p *pass) applies(t effect.Tag, targetID string) bool {
	if effect.AlwaysApplies(t.Kind()) {
		return true
	}
	return p.once(t, targetID)
}

// visual adds a one-pass marker on a tile.
func (p *pass) visual(h hexgrid.Hex, animation string, seed ...string) {
	col, row := h.Offset()
	v := &effect.Visual{Base: effect.Base{
		ID:              effect.DeriveID(append(seed, strconv.Itoa(p.round))...),
		AppearAnimation: animation,
		IsNew:           true,
		CastThisRound:   true,
		CreatedRound:    p.round,
		Longitude:       col,
		Latitude:        row,
	}}
	v.SetRounds(0)
	p.visuals = append(p.visuals, v)
}

// finish writes the surviving effects back to the battle.
func (p *pass) finish() {
	var ground effect.Tags
	for _, g := range p.ground {
		c := g.Common()
		if c.ActiveFrom > p.round || p.keeps(g) {
			ground = append(ground, g)
			continue
		}
		if c.DisappearAnimation != "" {
			p.visual(hexgrid.FromOffset(c.Longitude, c.Latitude), c.DisappearAnimation, c.ID, "disappear")
		}
	}

	var users effect.Tags
	for _, u := range p.user {
		c := u.Common()
		if c.ActiveFrom > p.round || p.keeps(u) {
			users = append(users, u)
			continue
		}
		if c.DisappearAnimation == "" || c.TargetType != effect.TargetUser {
			continue
		}
		if t := p.b.Find(c.TargetID); t != nil {
			p.visual(t.Hex(), c.DisappearAnimation, c.ID, "disappear")
		}
	}

	p.b.GroundEffects = append(ground, p.visuals...)
	p.b.UserEffects = append(append(users, p.deferred...), p.spawned...)
}
