package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/hexgrid"
)

var (
	// ErrBattleNotFound is returned by stores when no battle has the id.
	ErrBattleNotFound = errors.New("battle not found")
	// ErrStaleVersion is returned by stores when a conditional write finds
	// a different version than the caller read.
	ErrStaleVersion = errors.New("battle version changed")
)

// ActionEffect is one human-readable line of the battle log.
type ActionEffect struct {
	Text  string `json:"txt"`
	Color string `json:"color"`
}

// Log colours.
const (
	ColorRed   = "red"
	ColorGreen = "green"
	ColorBlue  = "blue"
)

// Battle types with their own start rules.
const (
	TypeCombat = "COMBAT"
	TypeArena  = "ARENA"
	TypeKage   = "KAGE"
)

// ActionLog records one accepted submit in the battle history.
type ActionLog struct {
	BattleID    string         `json:"battleId"`
	Round       int            `json:"round"`
	ActorID     string         `json:"actorId"`
	ActionID    string         `json:"actionId"`
	Description string         `json:"description"`
	Effects     []ActionEffect `json:"effects"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Battle is the full state of one encounter.
type Battle struct {
	ID            string       `json:"id"`
	Type          string       `json:"battleType"`
	Combatants    []*Combatant `json:"usersState"`
	UserEffects   effect.Tags  `json:"usersEffects"`
	GroundEffects effect.Tags  `json:"groundEffects"`

	ActiveCombatantID string `json:"activeUserId"`
	// Rotation is the fixed turn order decided by initiative.
	Rotation []string `json:"rotation"`

	Round        int       `json:"round"`
	RoundStartAt time.Time `json:"roundStartAt"`
	// CreatedAt is when the battle starts accepting actions.
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int       `json:"version"`

	Width         int     `json:"width"`
	Height        int     `json:"height"`
	RewardScaling float64 `json:"rewardScaling"`
}

// Grid returns the battlefield grid.
func (b *Battle) Grid() *hexgrid.Grid {
	return hexgrid.NewGrid(b.Width, b.Height)
}

// Find returns the combatant with the id, or nil.
func (b *Battle) Find(id string) *Combatant {
	for _, c := range b.Combatants {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// At returns the living combatant on a tile, or nil.
func (b *Battle) At(h hexgrid.Hex) *Combatant {
	for _, c := range b.Combatants {
		if c.Alive() && c.Hex() == h {
			return c
		}
	}
	return nil
}

// BarrierAt returns the barrier on a tile, or nil.
func (b *Battle) BarrierAt(h hexgrid.Hex) *effect.Barrier {
	for _, g := range b.GroundEffects {
		if bar, ok := g.(*effect.Barrier); ok && hexgrid.FromOffset(bar.Longitude, bar.Latitude) == h {
			return bar
		}
	}
	return nil
}

// Barriers returns every barrier keyed by tile.
func (b *Battle) Barriers() map[hexgrid.Hex]*effect.Barrier {
	out := make(map[hexgrid.Hex]*effect.Barrier)
	for _, g := range b.GroundEffects {
		if bar, ok := g.(*effect.Barrier); ok {
			out[hexgrid.FromOffset(bar.Longitude, bar.Latitude)] = bar
		}
	}
	return out
}

// MultiVillage reports whether combatants from more than one village are
// present, which switches friendly fire to village alignment.
func (b *Battle) MultiVillage() bool {
	var first string
	for i, c := range b.Combatants {
		if i == 0 {
			first = c.VillageID
			continue
		}
		if c.VillageID != first {
			return true
		}
	}
	return false
}

// ActiveOn returns the first active user effect of kind k targeting id.
func (b *Battle) ActiveOn(k effect.Kind, id string) effect.Tag {
	for _, t := range b.UserEffects {
		c := t.Common()
		if t.Kind() == k && c.TargetID == id && c.Active() && c.ActiveFrom <= b.Round {
			return t
		}
	}
	return nil
}

// IsStunned reports whether an active stun holds the combatant.
func (b *Battle) IsStunned(id string) bool {
	return b.ActiveOn(effect.KindStun, id) != nil
}

// Clone deep-copies the battle.
func (b *Battle) Clone() (*Battle, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encoding battle %s: %w", b.ID, err)
	}
	var out Battle
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding battle %s: %w", b.ID, err)
	}
	return &out, nil
}
