package combat

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/hexgrid"
	"github.com/udisondev/hexbattle/internal/model"
)

// groundPass processes tile-anchored effects: barriers, spawns, moves, and
// conversion of everything else into user effects for the occupant.
func (p *pass) groundPass() error {
	list := p.b.GroundEffects
	effect.Sort(list)

	for _, g := range list {
		c := g.Common()
		if c.ActiveFrom > p.round {
			p.ground = append(p.ground, g)
			continue
		}
		c.CastThisRound = c.CreatedRound == p.round
		first := c.IsNew && c.CastThisRound
		tile := hexgrid.FromOffset(c.Longitude, c.Latitude)
		if first && c.AppearAnimation != "" && g.Kind() != effect.KindVisual {
			p.visual(tile, c.AppearAnimation, c.ID, "appear")
		}

		switch v := g.(type) {
		case *effect.Visual:
		case *effect.Move:
			p.move(v, tile)
			continue
		case *effect.Barrier:
			if occ := p.b.At(tile); occ != nil {
				p.say(model.ColorBlue, "The barrier at [%d, %d] gives way to %s", c.Latitude, c.Longitude, occ.Name)
				p.zero(v)
			}
		case *effect.Clone, *effect.Summon:
			if first {
				if err := p.spawn(g, tile); err != nil {
					return err
				}
			}
			if n, ok := c.RoundsLeft(); ok && n == 0 && !c.IsNew {
				p.despawn(g)
			}
		default:
			p.convert(g, tile)
		}
		c.IsNew = false
		p.ground = append(p.ground, g)
	}
	return nil
}

// convert lands a ground effect on the occupant of its tile, or on the
// barrier standing there when nobody does. Instant kinds resolve in this
// pass; the rest take hold from the next round.
func (p *pass) convert(g effect.Tag, tile hexgrid.Hex) {
	if effect.IsGroundOnly(g.Kind()) {
		return
	}
	if occ := p.b.At(tile); occ != nil {
		if !effect.FriendlyFireAllowed(g, occ.Side(), p.multi) || !p.once(g, occ.ID) {
			return
		}
		u := p.landed(g, occ.ID, effect.TargetUser)
		snap := occ.Snapshot()
		u.Common().TargetStats = &snap
		if effect.IsInstant(g.Kind()) {
			p.pending = append(p.pending, u)
			return
		}
		uc := u.Common()
		uc.SetRounds(1)
		uc.CreatedRound = p.round
		uc.ActiveFrom = p.round + 1
		uc.CastThisRound = false
		p.deferred = append(p.deferred, u)
		return
	}

	if !effect.IsDamageClass(g.Kind()) {
		return
	}
	bar := p.b.BarrierAt(tile)
	if bar == nil || p.zeroed[bar.ID] || !p.once(g, bar.ID) {
		return
	}
	u := p.landed(g, bar.ID, effect.TargetBarrier)
	u.Common().BarrierShare = 1
	p.pending = append(p.pending, u)
}

func (p *pass) landed(g effect.Tag, targetID string, tt effect.TargetType) effect.Tag {
	u := effect.Duplicate(g)
	c := u.Common()
	c.ID = effect.DeriveID(g.Common().ID, targetID, strconv.Itoa(p.round))
	c.TargetType = tt
	c.TargetID = targetID
	c.FromGround = true
	c.IsNew = true
	c.LastApplied = map[string]int{}
	c.SetRounds(0)
	return u
}

// move relocates the creator of a move effect onto its tile.
func (p *pass) move(m *effect.Move, tile hexgrid.Hex) {
	mover := p.b.Find(m.CreatorID)
	if mover == nil || !mover.Alive() {
		return
	}
	col, row := tile.Offset()
	if occ := p.b.At(tile); occ != nil && occ.ID != mover.ID {
		p.say(model.ColorBlue, "%s cannot move to [%d, %d], it is occupied", mover.Name, row, col)
		return
	}
	if p.prevented(mover.ID, effect.KindMove) {
		p.say(model.ColorBlue, "%s is prevented from moving", mover.Name)
		return
	}

	// Stepping onto a tile counts as being hit by its effects this round.
	for _, g := range p.b.GroundEffects {
		gc := g.Common()
		delete(gc.LastApplied, mover.ID)
		if hexgrid.FromOffset(gc.Longitude, gc.Latitude) == tile && g.Kind() != effect.KindMove {
			if gc.LastApplied == nil {
				gc.LastApplied = make(map[string]int)
			}
			gc.LastApplied[mover.ID] = p.round
		}
	}
	mover.MoveTo(tile)
	p.say(model.ColorBlue, "%s moves to [%d, %d]", mover.Name, row, col)
}

func spawnID(g effect.Tag) string {
	return effect.DeriveID(g.Common().ID, "spawn")
}

// spawn materializes the combatant of a clone or summon effect.
func (p *pass) spawn(g effect.Tag, tile hexgrid.Hex) error {
	c := g.Common()
	var companion model.Companion
	if s, ok := g.(*effect.Summon); ok {
		if s.CompanionID == "" {
			return fmt.Errorf("summon %s has no companion: %w", c.ID, ErrInvariant)
		}
		tmpl, ok := p.opts.Companions[s.CompanionID]
		if !ok {
			return fmt.Errorf("summon %s: unknown companion %q: %w", c.ID, s.CompanionID, ErrInvariant)
		}
		companion = tmpl
	}

	owner := p.b.Find(c.CreatorID)
	if owner == nil || !owner.Alive() {
		return nil
	}
	id := spawnID(g)
	if p.b.Find(id) != nil {
		return nil
	}
	col, row := tile.Offset()
	if p.b.At(tile) != nil {
		p.say(model.ColorBlue, "There is no room for %s's %s at [%d, %d]", owner.Name, c.ActionName, row, col)
		return nil
	}
	if p.prevented(owner.ID, effect.KindSummon) {
		p.say(model.ColorBlue, "%s is prevented from summoning", owner.Name)
		return nil
	}

	scale := effect.Power(g) / 100
	if scale <= 0 {
		scale = 1
	}
	var spawned *model.Combatant
	if g.Kind() == effect.KindClone {
		spawned = owner.Clone()
		spawned.ID = id
		spawned.IsOriginal = false
		spawned.Items = nil
		spawned.UsedActions, spawned.UsedStats, spawned.UsedGenerals = nil, nil, nil
		spawned.Abilities = slices.DeleteFunc(spawned.Abilities, func(a model.Ability) bool {
			return model.OnCooldown(a.LastUsedRound, a.Cooldown, p.round)
		})
	} else {
		spawned = companion.Spawn(id, owner)
	}
	spawned.Scale(scale)
	spawned.MoveTo(tile)
	spawned.ActionPoints = 100

	p.b.Combatants = append(p.b.Combatants, spawned)
	at := slices.Index(p.b.Rotation, owner.ID)
	if at < 0 {
		p.b.Rotation = append(p.b.Rotation, id)
	} else {
		p.b.Rotation = slices.Insert(p.b.Rotation, at+1, id)
	}
	p.say(model.ColorBlue, "%s summons %s at [%d, %d]", owner.Name, spawned.Name, row, col)
	return nil
}

// despawn removes the combatant of an expired clone or summon.
func (p *pass) despawn(g effect.Tag) {
	c := g.Common()
	id := spawnID(g)
	idx := slices.IndexFunc(p.b.Combatants, func(x *model.Combatant) bool { return x.ID == id })
	if idx >= 0 {
		gone := p.b.Combatants[idx]
		p.b.Combatants = slices.Delete(p.b.Combatants, idx, idx+1)
		if c.DisappearAnimation == "" {
			p.visual(gone.Hex(), "smoke", id, "despawn")
		}
		p.say(model.ColorBlue, "%s disappears", gone.Name)
	}
	p.b.Rotation = slices.DeleteFunc(p.b.Rotation, func(x string) bool { return x == id })
	p.zero(g)
}
