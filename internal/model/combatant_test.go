package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/game/stat"
	"github.com/udisondev/hexbattle/internal/hexgrid"
)

func TestAlive(t *testing.T) {
	c := fighter("a", "leaf", 0, 0)
	assert.True(t, c.Alive())
	c.FledBattle = true
	assert.False(t, c.Alive())
	c.FledBattle, c.CurHealth = false, 0
	assert.False(t, c.Alive())
}

func TestAddPool(t *testing.T) {
	tests := []struct {
		name  string
		pool  stat.Pool
		delta float64
		want  float64
	}{
		{name: "heal caps at max", pool: stat.Health, delta: 30, want: 100},
		{name: "damage floors at zero", pool: stat.Health, delta: -150, want: 0},
		{name: "chakra", pool: stat.Chakra, delta: 20, want: 70},
		{name: "stamina", pool: stat.Stamina, delta: -25, want: 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := fighter("a", "leaf", 0, 0)
			c.AddPool(tt.pool, tt.delta)
			cur, _ := c.Pool(tt.pool)
			assert.InDelta(t, tt.want, cur, 1e-9)
		})
	}
}

func TestMoveTo(t *testing.T) {
	c := fighter("a", "leaf", 0, 0)
	h := hexgrid.FromOffset(4, 3)
	c.MoveTo(h)
	assert.Equal(t, 4, c.Longitude)
	assert.Equal(t, 3, c.Latitude)
	assert.Equal(t, h, c.Hex())
}

func TestStatForFollowsHighest(t *testing.T) {
	c := fighter("a", "leaf", 0, 0)
	c.GenjutsuOffence = 50
	c.TaijutsuDefence = 30
	c.UpdateHighest()

	assert.Equal(t, stat.GenjutsuOffence, c.HighestOffence)
	assert.InDelta(t, 50, c.StatFor(stat.Highest, true), 0)
	assert.InDelta(t, 30, c.StatFor(stat.Highest, false), 0)
	assert.Zero(t, c.StatFor(stat.Ninjutsu, true))
}

func TestNoteStats(t *testing.T) {
	c := fighter("a", "leaf", 0, 0)
	c.TaijutsuOffence = 10
	c.UpdateHighest()
	sc := &effect.Scaling{StatTypes: []stat.School{stat.Highest, stat.Taijutsu}, GeneralTypes: []stat.General{stat.Speed}}

	c.NoteStats(sc, true)
	c.NoteStats(sc, true)
	c.NoteStats(nil, true)

	assert.Equal(t, []stat.Name{stat.TaijutsuOffence}, c.UsedStats)
	assert.Equal(t, []stat.General{stat.Speed}, c.UsedGenerals)
}

func TestCompanionSpawn(t *testing.T) {
	owner := fighter("a", "leaf", 1, 1)
	tmpl := Companion{ID: "toad", Name: "Toad", Level: 20, MaxHealth: 300, MaxChakra: 50, MaxStamina: 80,
		Stats: stat.Block{NinjutsuOffence: 40}}

	c := tmpl.Spawn("a-toad-1", owner)
	require.NotNil(t, c)
	assert.Equal(t, "a", c.ControllerID)
	assert.Equal(t, "leaf", c.VillageID)
	assert.True(t, c.IsAI)
	assert.True(t, c.IsSummon)
	assert.False(t, c.IsOriginal)
	assert.InDelta(t, 300, c.CurHealth, 0)
	assert.Equal(t, stat.NinjutsuOffence, c.HighestOffence)

	c.Scale(0.5)
	assert.InDelta(t, 150, c.MaxHealth, 1e-9)
	assert.InDelta(t, 20, c.NinjutsuOffence, 1e-9)
}

func TestCombatantClone(t *testing.T) {
	c := fighter("a", "leaf", 1, 1)
	c.UsedStats = []stat.Name{stat.NinjutsuOffence}
	c.UsedActions = []UsedAction{{ID: "fireball", Round: 2}}
	c.Abilities = []Ability{{
		Action: Action{ID: "fireball", Effects: effect.Tags{
			&effect.Damage{Base: effect.Base{Power: 20, Rounds: rounds(1)}},
		}},
		LastUsedRound: rounds(2),
	}}
	c.Items = []Consumable{{
		Action:   Action{ID: "pill", Effects: effect.Tags{&effect.Heal{Base: effect.Base{Power: 10}}}},
		Quantity: 2,
	}}

	cp := c.Clone()
	require.Equal(t, c, cp)

	cp.CurHealth = 1
	cp.UsedStats[0] = stat.TaijutsuOffence
	cp.UsedActions[0].Round = 9
	*cp.Abilities[0].LastUsedRound = 9
	cp.Abilities[0].Effects[0].Common().Power = 99
	*cp.Abilities[0].Effects[0].Common().Rounds = 0
	cp.Items[0].Quantity = 0
	cp.Items[0].Effects[0].Common().Power = 0

	assert.InDelta(t, 100, c.CurHealth, 0)
	assert.Equal(t, stat.NinjutsuOffence, c.UsedStats[0])
	assert.Equal(t, 2, c.UsedActions[0].Round)
	assert.Equal(t, 2, *c.Abilities[0].LastUsedRound)
	assert.InDelta(t, 20, c.Abilities[0].Effects[0].Common().Power, 0)
	assert.Equal(t, 1, *c.Abilities[0].Effects[0].Common().Rounds)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.InDelta(t, 10, c.Items[0].Effects[0].Common().Power, 0)
	assert.Nil(t, c.Items[0].LastUsedRound)
}
