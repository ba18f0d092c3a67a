// Package action validates and applies a combatant's chosen action:
// costs, targeting and realization of the action's effects into battle
// state.
package action

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/game/targeting"
	"github.com/udisondev/hexbattle/internal/hexgrid"
	"github.com/udisondev/hexbattle/internal/model"
)

// Intake errors. None of them leave the battle mutated.
var (
	ErrActorNotFound         = errors.New("actor not found")
	ErrBattleNotStarted      = errors.New("battle has not started yet")
	ErrStunned               = errors.New("actor is stunned")
	ErrActionNotFound        = errors.New("action not found")
	ErrOnCooldown            = errors.New("action is on cooldown")
	ErrOutOfItems            = errors.New("no items left")
	ErrStealthed             = errors.New("cannot attack while in stealth")
	ErrNotEnoughHealth       = errors.New("not enough health")
	ErrNotEnoughChakra       = errors.New("not enough chakra")
	ErrNotEnoughStamina      = errors.New("not enough stamina")
	ErrNotEnoughActionPoints = errors.New("not enough action points")
	ErrTargetOutOfRange      = errors.New("target tile out of range")
)

// Request is one action submission.
type Request struct {
	ActorID   string
	ActionID  string
	Longitude int
	Latitude  int
}

// Outcome reports what an accepted request did.
type Outcome struct {
	// Applied is false when no tile was affected; the battle is unchanged.
	Applied     bool
	Description string
	Affected    []hexgrid.Hex
	Action      model.Action
}

// Perform validates the request against the battle and, on success,
// appends the realized effects, charges the actor and records the usage.
// Validation completes before the first mutation.
func Perform(b *model.Battle, req Request, now time.Time) (Outcome, error) {
	actor := b.Find(req.ActorID)
	if actor == nil || !actor.Alive() {
		return Outcome{}, fmt.Errorf("performing %s: %w", req.ActorID, ErrActorNotFound)
	}
	if b.CreatedAt.After(now) {
		return Outcome{}, fmt.Errorf("performing %s in battle %s: %w", actor.Name, b.ID, ErrBattleNotStarted)
	}
	if b.IsStunned(actor.ID) {
		return Outcome{}, fmt.Errorf("performing %s: %w", actor.Name, ErrStunned)
	}

	opt, ok := Find(actor, req.ActionID)
	if !ok {
		return Outcome{}, fmt.Errorf("action %s: %w", req.ActionID, ErrActionNotFound)
	}
	if model.OnCooldown(opt.LastUsedRound, opt.Cooldown, b.Round) {
		return Outcome{}, fmt.Errorf("action %s: %w", opt.Name, ErrOnCooldown)
	}
	if opt.Type == effect.FromItem && opt.Quantity <= 0 {
		return Outcome{}, fmt.Errorf("item %s: %w", opt.Name, ErrOutOfItems)
	}
	if opt.IsDamaging() && b.ActiveOn(effect.KindStealth, actor.ID) != nil {
		return Outcome{}, fmt.Errorf("action %s: %w", opt.Name, ErrStealthed)
	}

	hp, cp, sp := PoolCost(b, actor, opt)
	switch {
	case actor.CurHealth < hp:
		return Outcome{}, ErrNotEnoughHealth
	case actor.CurChakra < cp:
		return Outcome{}, ErrNotEnoughChakra
	case actor.CurStamina < sp:
		return Outcome{}, ErrNotEnoughStamina
	case actor.ActionPoints-opt.ActionCostPerc < 0:
		return Outcome{}, ErrNotEnoughActionPoints
	}

	board := targeting.NewBoard(b)
	clicked := hexgrid.FromOffset(req.Longitude, req.Latitude)
	if !board.InRange(actor.Hex(), clicked, &opt.Action) {
		return Outcome{}, fmt.Errorf("action %s at [%d, %d]: %w", opt.Name, req.Latitude, req.Longitude, ErrTargetOutOfRange)
	}
	green, _ := board.AffectedTiles(actor, &opt.Action, clicked)
	if len(green) == 0 {
		return Outcome{Action: opt.Action}, nil
	}

	targets := realize(b, board, actor, opt, green)

	actor.CurHealth = max(0, actor.CurHealth-hp)
	actor.CurChakra = max(0, actor.CurChakra-cp)
	actor.CurStamina = max(0, actor.CurStamina-sp)
	actor.ActionPoints -= opt.ActionCostPerc
	for _, t := range opt.Effects {
		actor.NoteStats(effect.ScalingOf(t), t.Common().Direction != effect.Defence)
	}
	actor.UsedActions = append(actor.UsedActions, model.UsedAction{ID: opt.ID, Type: opt.Type, Round: b.Round})
	stampUsage(actor, opt, b.Round)

	return Outcome{
		Applied:     true,
		Description: describe(opt.Description, opt.Action, actor, targets, req.Longitude, req.Latitude),
		Affected:    green,
		Action:      opt.Action,
	}, nil
}

// realize adds the action's effects for every affected tile and returns the
// distinct targets for the description.
func realize(b *model.Battle, board *targeting.Board, actor *model.Combatant, opt Option, tiles []hexgrid.Hex) []named {
	var targets []named
	note := func(n named) {
		if !slices.Contains(targets, n) {
			targets = append(targets, n)
		}
	}
	multi := b.MultiVillage()
	self := actor.Snapshot()
	stamp := effect.Stamp{
		Level:      opt.Level,
		Round:      b.Round,
		Origin:     opt.Type,
		ActionID:   opt.ID,
		ActionName: opt.Name,
	}

	// Self-targeted templates land once per action, not once per tile.
	for _, tmpl := range opt.Effects {
		if tmpl.Common().Target != effect.TargetSelf {
			continue
		}
		t := effect.Realize(tmpl, self, &self, stamp)
		place(t, actor.Hex())
		if effect.FriendlyFireAllowed(t, actor.Side(), multi) {
			b.UserEffects = append(b.UserEffects, t)
		}
	}

	for _, tile := range tiles {
		occ := board.Occupant(tile)
		for _, tmpl := range opt.Effects {
			if tmpl.Common().Target == effect.TargetSelf {
				continue
			}
			if opt.Target.IsGround() {
				t := effect.Realize(tmpl, self, nil, stamp)
				place(t, tile)
				b.GroundEffects = append(b.GroundEffects, t)
				if occ != nil && t.Kind() != effect.KindMove && effect.FriendlyFireAllowed(t, occ.Side(), multi) {
					note(named{occ.Name, occ.Gender})
				}
				continue
			}

			if occ == nil {
				bar := board.Barrier(tile)
				if bar == nil || !effect.IsDamageClass(tmpl.Kind()) {
					continue
				}
				t := effect.Realize(tmpl, self, nil, stamp)
				place(t, tile)
				aimAtBarrier(t, bar, 1)
				b.UserEffects = append(b.UserEffects, t)
				note(named{"barrier", "it"})
				continue
			}

			target := occ.Snapshot()
			st := stamp
			var path targeting.Absorption
			if tmpl.Kind() == effect.KindDamage {
				path = board.PathAbsorb(actor.Hex(), tile)
				st.BarrierAbsorb = path.Fraction
			}
			t := effect.Realize(tmpl, self, &target, st)
			place(t, tile)
			if !effect.FriendlyFireAllowed(t, occ.Side(), multi) {
				continue
			}
			b.UserEffects = append(b.UserEffects, t)
			note(named{occ.Name, occ.Gender})

			for i, bar := range path.Barriers {
				hit := effect.Duplicate(t)
				hit.Common().ID = effect.DeriveID(t.Common().ID, bar.ID)
				aimAtBarrier(hit, bar, path.Shares[i])
				b.UserEffects = append(b.UserEffects, hit)
			}
		}
	}
	return targets
}

func place(t effect.Tag, h hexgrid.Hex) {
	c := t.Common()
	c.Longitude, c.Latitude = h.Offset()
}

func aimAtBarrier(t effect.Tag, bar *effect.Barrier, share float64) {
	c := t.Common()
	c.TargetType = effect.TargetBarrier
	c.TargetID = bar.ID
	c.TargetStats = nil
	c.BarrierAbsorb = 0
	c.BarrierShare = share
	c.Longitude, c.Latitude = bar.Longitude, bar.Latitude
}

// stampUsage sets cooldown stamps and consumes items.
func stampUsage(c *model.Combatant, opt Option, round int) {
	switch opt.Type {
	case effect.FromJutsu:
		for i := range c.Abilities {
			if c.Abilities[i].ID == opt.ID {
				c.Abilities[i].LastUsedRound = &round
			}
		}
	case effect.FromItem:
		for i := range c.Items {
			if c.Items[i].ID == opt.ID {
				c.Items[i].LastUsedRound = &round
				c.Items[i].Quantity--
			}
		}
	}
}
