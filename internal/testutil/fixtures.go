package testutil

import (
	"time"

	"github.com/udisondev/hexbattle/internal/model"
)

// Epoch is the fixed time battle fixtures start at.
var Epoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// Ninja returns a level 10 combatant with full pools at the tile. It
// controls itself.
func Ninja(id, village string, col, row int) *model.Combatant {
	return &model.Combatant{
		ID: id, ControllerID: id, Name: id, Gender: model.Other, VillageID: village, Level: 10,
		Longitude: col, Latitude: row,
		CurHealth: 100, MaxHealth: 100,
		CurChakra: 100, MaxChakra: 100,
		CurStamina: 100, MaxStamina: 100,
		ActionPoints: 100, IsOriginal: true,
	}
}

// Duel returns a started 8x5 battle between a (leaf) and b (sand) standing
// next to each other. It is a's turn and the round started at Epoch.
func Duel(id string) *model.Battle {
	return &model.Battle{
		ID:                id,
		Type:              model.TypeCombat,
		Combatants:        []*model.Combatant{Ninja("a", "leaf", 1, 2), Ninja("b", "sand", 2, 2)},
		ActiveCombatantID: "a",
		Rotation:          []string{"a", "b"},
		Round:             1,
		RoundStartAt:      Epoch,
		CreatedAt:         Epoch.Add(-time.Minute),
		UpdatedAt:         Epoch,
		Version:           1,
		Width:             8,
		Height:            5,
		RewardScaling:     1,
	}
}
