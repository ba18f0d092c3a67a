// Package targeting computes which tiles an action affects.
package targeting

import (
	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/hexgrid"
	"github.com/udisondev/hexbattle/internal/model"
)

// Board is the occupancy view of a battle used for targeting.
type Board struct {
	Grid         *hexgrid.Grid
	occupants    map[hexgrid.Hex]*model.Combatant
	barriers     map[hexgrid.Hex]*effect.Barrier
	multiVillage bool
}

// NewBoard builds the targeting view of a battle.
func NewBoard(b *model.Battle) *Board {
	bd := &Board{
		Grid:         b.Grid(),
		occupants:    make(map[hexgrid.Hex]*model.Combatant, len(b.Combatants)),
		barriers:     b.Barriers(),
		multiVillage: b.MultiVillage(),
	}
	for _, c := range b.Combatants {
		if c.Alive() {
			bd.occupants[c.Hex()] = c
		}
	}
	return bd
}

// Occupant returns the living combatant on a tile, or nil.
func (bd *Board) Occupant(h hexgrid.Hex) *model.Combatant {
	return bd.occupants[h]
}

// Barrier returns the barrier on a tile, or nil.
func (bd *Board) Barrier(h hexgrid.Hex) *effect.Barrier {
	return bd.barriers[h]
}

// PossibleTiles returns the highlight set of an action used from origin:
// every tile within range, or the whole grid for ALL.
func (bd *Board) PossibleTiles(origin hexgrid.Hex, a *model.Action) []hexgrid.Hex {
	if a.Method == model.MethodAll {
		return bd.Grid.Tiles()
	}
	return bd.Grid.Filter(hexgrid.Spiral(origin, a.Range))
}

// InRange reports whether clicked is in the highlight set.
func (bd *Board) InRange(origin, clicked hexgrid.Hex, a *model.Action) bool {
	if !bd.Grid.Contains(clicked) {
		return false
	}
	if a.Method == model.MethodAll {
		return true
	}
	return hexgrid.Distance(origin, clicked) <= a.Range
}

// AffectedTiles splits the tiles reached by an action clicked on a tile into
// green (the action applies) and red (rejected). Both are empty when the
// clicked tile is outside the highlight set.
func (bd *Board) AffectedTiles(actor *model.Combatant, a *model.Action, clicked hexgrid.Hex) (green, red []hexgrid.Hex) {
	origin := actor.Hex()
	if !bd.InRange(origin, clicked, a) {
		return nil, nil
	}

	seen := make(map[hexgrid.Hex]bool)
	for _, h := range bd.area(origin, clicked, a) {
		if seen[h] || !bd.Grid.Contains(h) {
			continue
		}
		seen[h] = true
		switch {
		case bd.ValidTile(actor, a, h):
			green = append(green, h)
		case a.Method != model.MethodAll:
			red = append(red, h)
		}
	}
	return green, red
}

// area maps the area method to tile traversal.
func (bd *Board) area(origin, clicked hexgrid.Hex, a *model.Action) []hexgrid.Hex {
	switch a.Method {
	case model.MethodSingle:
		return []hexgrid.Hex{clicked}
	case model.MethodCircleSpawn:
		return hexgrid.Spiral(clicked, 1)
	case model.MethodLineShoot:
		return without(hexgrid.Line(clicked, origin), origin)
	case model.MethodWallShoot:
		return wall(origin, clicked, a.Range)
	case model.MethodCircleShoot:
		return hexgrid.Ring(origin, a.Range)
	case model.MethodSpiralShoot:
		return without(hexgrid.Spiral(origin, a.Range), origin)
	case model.MethodAll:
		return bd.Grid.Tiles()
	}
	return nil
}

// wall is a line centred on clicked, perpendicular to the direction from
// origin.
func wall(origin, clicked hexgrid.Hex, rng int) []hexgrid.Hex {
	dir := hexgrid.Direction(origin, clicked)
	half := max(1, rng/2)
	out := []hexgrid.Hex{clicked}
	left, right := clicked, clicked
	for range half {
		left = left.Neighbor(dir + 2)
		right = right.Neighbor(dir + 5)
		out = append(out, left, right)
	}
	return out
}

func without(tiles []hexgrid.Hex, drop hexgrid.Hex) []hexgrid.Hex {
	out := tiles[:0:0]
	for _, h := range tiles {
		if h != drop {
			out = append(out, h)
		}
	}
	return out
}

// ValidTile reports whether the action applies to a tile given its
// occupant and barrier. A barrier only admits damage-class actions, which
// then strike the barrier itself.
func (bd *Board) ValidTile(actor *model.Combatant, a *model.Action, h hexgrid.Hex) bool {
	if bd.barriers[h] != nil {
		return a.IsDamaging()
	}
	occ := bd.occupants[h]
	switch a.Target {
	case model.TargetCharacter:
		return occ != nil
	case model.TargetOpponent:
		return occ != nil && !bd.sameSide(actor, occ)
	case model.TargetOtherUser:
		return occ != nil && occ.ID != actor.ID
	case model.TargetAlly:
		return occ != nil && bd.sameSide(actor, occ)
	case model.TargetSelf:
		return occ != nil && occ.ID == actor.ID
	case model.TargetEmptyGround:
		return occ == nil
	case model.TargetGround:
		return !(occ != nil && a.HasKind(effect.KindMove))
	}
	return false
}

// sameSide aligns by village when several villages fight, otherwise by
// controller.
func (bd *Board) sameSide(actor, other *model.Combatant) bool {
	if bd.multiVillage {
		return actor.VillageID == other.VillageID
	}
	return actor.ControllerID == other.ControllerID
}

// Absorption describes the barriers between two tiles.
type Absorption struct {
	Barriers []*effect.Barrier
	// Shares holds each barrier's fraction of the raw amount, in path order.
	Shares []float64
	// Fraction is the compounded absorbed fraction 1 - Π(1 - p).
	Fraction float64
}

// PathAbsorb walks the shortest path from one tile to another and compounds
// absorption of every barrier strictly between them. Each barrier soaks its
// share of what the previous barriers let through.
func (bd *Board) PathAbsorb(from, to hexgrid.Hex) Absorption {
	var out Absorption
	path := bd.Grid.ShortestPath(from, to)
	if len(path) < 3 {
		return out
	}
	remaining := 1.0
	for _, h := range path[1 : len(path)-1] {
		bar := bd.barriers[h]
		if bar == nil {
			continue
		}
		share := remaining * bar.Absorbs()
		remaining -= share
		out.Barriers = append(out.Barriers, bar)
		out.Shares = append(out.Shares, share)
	}
	out.Fraction = 1 - remaining
	return out
}
