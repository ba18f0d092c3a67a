package action

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/game/stat"
	"github.com/udisondev/hexbattle/internal/model"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fighter(id, name, village string, col, row int) *model.Combatant {
	return &model.Combatant{
		ID: id, ControllerID: id, Name: name, Gender: model.Female, VillageID: village,
		Level: 10, Longitude: col, Latitude: row,
		CurHealth: 100, MaxHealth: 100,
		CurChakra: 100, MaxChakra: 100,
		CurStamina: 100, MaxStamina: 100,
		ActionPoints: 100, IsOriginal: true,
	}
}

func fireball() model.Ability {
	return model.Ability{
		Level: 3,
		Action: model.Action{
			ID: "fireball", Name: "Fireball", Description: "%user hurls fire at %target",
			Target: model.TargetOpponent, Method: model.MethodSingle, Range: 3,
			ChakraCostPerc: 10, ActionCostPerc: 40, Cooldown: 2,
			Effects: effect.Tags{&effect.Damage{
				Base:    effect.Base{Power: 20, Calculation: effect.Static},
				Scaling: effect.Scaling{StatTypes: []stat.School{stat.Ninjutsu}},
			}},
		},
	}
}

func newBattle() *model.Battle {
	x := fighter("x", "Xia", "leaf", 0, 2)
	x.Abilities = []model.Ability{fireball()}
	y := fighter("y", "Yun", "sand", 2, 2)
	return &model.Battle{
		ID: "b1", Width: 8, Height: 5, Round: 1,
		CreatedAt:  now.Add(-time.Minute),
		Combatants: []*model.Combatant{x, y},
	}
}

func rq(actionID string, col, row int) Request {
	return Request{ActorID: "x", ActionID: actionID, Longitude: col, Latitude: row}
}

func TestPerformRejections(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(b *model.Battle)
		req     Request
		want    error
	}{
		{"unknown actor", nil, Request{ActorID: "z", ActionID: "fireball"}, ErrActorNotFound},
		{"dead actor", func(b *model.Battle) { b.Find("x").CurHealth = 0 }, rq("fireball", 2, 2), ErrActorNotFound},
		{"not started", func(b *model.Battle) { b.CreatedAt = now.Add(time.Minute) }, rq("fireball", 2, 2), ErrBattleNotStarted},
		{"stunned", func(b *model.Battle) {
			b.UserEffects = append(b.UserEffects, &effect.Stun{Base: effect.Base{TargetID: "x", Rounds: rounds(1)}})
		}, rq("fireball", 2, 2), ErrStunned},
		{"unknown action", nil, rq("rasengan", 2, 2), ErrActionNotFound},
		{"cooldown", func(b *model.Battle) { b.Find("x").Abilities[0].LastUsedRound = rounds(0) }, rq("fireball", 2, 2), ErrOnCooldown},
		{"chakra", func(b *model.Battle) { b.Find("x").CurChakra = 5 }, rq("fireball", 2, 2), ErrNotEnoughChakra},
		{"stamina", func(b *model.Battle) { b.Find("x").CurStamina = 1 }, rq(BasicAttackID, 1, 2), ErrNotEnoughStamina},
		{"action points", func(b *model.Battle) { b.Find("x").ActionPoints = 30 }, rq("fireball", 2, 2), ErrNotEnoughActionPoints},
		{"out of range", nil, rq("fireball", 5, 2), ErrTargetOutOfRange},
		{"stealth", func(b *model.Battle) {
			b.UserEffects = append(b.UserEffects, &effect.Stealth{Base: effect.Base{TargetID: "x", Rounds: rounds(2)}})
		}, rq("fireball", 2, 2), ErrStealthed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBattle()
			if tt.prepare != nil {
				tt.prepare(b)
			}
			before, err := b.Clone()
			require.NoError(t, err)

			_, err = Perform(b, tt.req, now)
			require.ErrorIs(t, err, tt.want)

			after, err := b.Clone()
			require.NoError(t, err)
			assert.Equal(t, before, after, "rejection must not mutate the battle")
		})
	}
}

func TestPerformBeforeStart(t *testing.T) {
	b := newBattle()
	b.CreatedAt = now.Add(time.Minute)

	_, err := Perform(b, rq("fireball", 2, 2), now)
	require.ErrorIs(t, err, ErrBattleNotStarted)
	assert.EqualError(t, err, "performing Xia in battle b1: battle has not started yet")
}

func TestPerformAppliesDamage(t *testing.T) {
	b := newBattle()

	out, err := Perform(b, rq("fireball", 2, 2), now)
	require.NoError(t, err)
	require.True(t, out.Applied)
	assert.Equal(t, "Xia hurls fire at Yun", out.Description)

	require.Len(t, b.UserEffects, 1)
	e := b.UserEffects[0].Common()
	assert.Equal(t, "x", e.CreatorID)
	assert.Equal(t, "y", e.TargetID)
	assert.Equal(t, effect.TargetUser, e.TargetType)
	assert.Equal(t, 3, e.Level)
	assert.Equal(t, 1, e.CreatedRound)
	assert.Equal(t, effect.FromJutsu, e.FromType)
	assert.Equal(t, "Fireball", e.ActionName)
	assert.True(t, e.IsNew)

	x := b.Find("x")
	assert.InDelta(t, 60.0, x.ActionPoints, 1e-9)
	assert.InDelta(t, 90.0, x.CurChakra, 1e-9)
	require.Len(t, x.UsedActions, 1)
	assert.Equal(t, "fireball", x.UsedActions[0].ID)
	require.NotNil(t, x.Abilities[0].LastUsedRound)
	assert.Equal(t, 1, *x.Abilities[0].LastUsedRound)
	assert.Contains(t, x.UsedStats, stat.NinjutsuOffence)
}

func TestPerformNoTargetIsNoop(t *testing.T) {
	b := newBattle()

	out, err := Perform(b, rq("fireball", 1, 2), now)
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Empty(t, b.UserEffects)
	assert.InDelta(t, 100.0, b.Find("x").ActionPoints, 1e-9)
}

func TestPerformAddsBarrierCopies(t *testing.T) {
	b := newBattle()
	b.Find("y").Longitude = 3
	bar := effect.Realize(&effect.Barrier{Base: effect.Base{Power: 100}, AbsorbPercentage: 50},
		effect.Snapshot{ID: "x"}, nil, effect.Stamp{})
	bar.Common().Longitude, bar.Common().Latitude = 1, 2
	b.GroundEffects = effect.Tags{bar}

	_, err := Perform(b, rq("fireball", 3, 2), now)
	require.NoError(t, err)
	require.Len(t, b.UserEffects, 2)

	hit, shard := b.UserEffects[0].Common(), b.UserEffects[1].Common()
	assert.Equal(t, "y", hit.TargetID)
	assert.InDelta(t, 0.5, hit.BarrierAbsorb, 1e-9)
	assert.Equal(t, effect.TargetBarrier, shard.TargetType)
	assert.Equal(t, bar.Common().ID, shard.TargetID)
	assert.InDelta(t, 0.5, shard.BarrierShare, 1e-9)
	assert.NotEqual(t, hit.ID, shard.ID)
}

func TestPerformPierceSkipsBarriers(t *testing.T) {
	b := newBattle()
	b.Find("y").Longitude = 3
	b.Find("x").Abilities = append(b.Find("x").Abilities, model.Ability{Action: model.Action{
		ID: "spear", Name: "Spear", Target: model.TargetOpponent, Method: model.MethodSingle,
		Range: 3, ActionCostPerc: 20,
		Effects: effect.Tags{&effect.Pierce{Base: effect.Base{Power: 20, Calculation: effect.Static}}},
	}})
	bar := effect.Realize(&effect.Barrier{Base: effect.Base{Power: 100}, AbsorbPercentage: 50},
		effect.Snapshot{ID: "x"}, nil, effect.Stamp{})
	bar.Common().Longitude, bar.Common().Latitude = 1, 2
	b.GroundEffects = effect.Tags{bar}

	_, err := Perform(b, rq("spear", 3, 2), now)
	require.NoError(t, err)
	require.Len(t, b.UserEffects, 1, "no barrier gets a share of a pierce")

	hit := b.UserEffects[0]
	assert.Equal(t, effect.KindPierce, hit.Kind())
	assert.Equal(t, "y", hit.Common().TargetID)
	assert.Zero(t, hit.Common().BarrierAbsorb)
}

func TestPerformGroundAction(t *testing.T) {
	b := newBattle()
	b.Find("x").Abilities = append(b.Find("x").Abilities, model.Ability{Action: model.Action{
		ID: "swamp", Name: "Swamp", Target: model.TargetGround, Method: model.MethodCircleSpawn,
		Range: 3, ActionCostPerc: 20,
		Effects: effect.Tags{&effect.Damage{Base: effect.Base{Power: 5, Rounds: rounds(2)}}},
	}})

	out, err := Perform(b, rq("swamp", 3, 2), now)
	require.NoError(t, err)
	require.True(t, out.Applied)
	assert.Len(t, b.GroundEffects, 7)
	assert.Empty(t, b.UserEffects)
	for _, g := range b.GroundEffects {
		assert.Empty(t, g.Common().TargetType)
	}
	assert.Contains(t, out.Description, "Xia uses Swamp")
}

func TestPerformMove(t *testing.T) {
	b := newBattle()

	out, err := Perform(b, rq(MoveID, 1, 2), now)
	require.NoError(t, err)
	require.True(t, out.Applied)
	require.Len(t, b.GroundEffects, 1)
	assert.Equal(t, effect.KindMove, b.GroundEffects[0].Kind())
	assert.InDelta(t, 70.0, b.Find("x").ActionPoints, 1e-9)
}

func TestPerformItemConsumes(t *testing.T) {
	b := newBattle()
	x := b.Find("x")
	x.Items = []model.Consumable{{Quantity: 1, Action: model.Action{
		ID: "potion", Name: "Potion", Target: model.TargetSelf, Method: model.MethodSingle,
		ActionCostPerc: 10,
		Effects:        effect.Tags{&effect.Heal{Base: effect.Base{Power: 30}}},
	}}}

	_, err := Perform(b, rq("potion", 0, 2), now)
	require.NoError(t, err)
	assert.Equal(t, 0, x.Items[0].Quantity)
	require.Len(t, b.UserEffects, 1)
	assert.Equal(t, "x", b.UserEffects[0].Common().TargetID)

	_, err = Perform(b, rq("potion", 0, 2), now)
	assert.ErrorIs(t, err, ErrOutOfItems)
}

func TestWaitSpendsRemainingPoints(t *testing.T) {
	b := newBattle()
	b.Find("x").ActionPoints = 35

	out, err := Perform(b, rq(WaitID, 0, 2), now)
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Zero(t, b.Find("x").ActionPoints)
	assert.Empty(t, b.UserEffects)
}

func TestPoolCostAdjusters(t *testing.T) {
	b := newBattle()
	x := b.Find("x")
	opt, ok := Find(x, "fireball")
	require.True(t, ok)

	_, cp, _ := PoolCost(b, x, opt)
	assert.InDelta(t, 10.0, cp, 1e-9)

	b.UserEffects = effect.Tags{
		&effect.PoolCostAdjust{
			Base:  effect.Base{Power: 50, Calculation: effect.Percentage, TargetID: "x"},
			Pools: effect.Pools{PoolsAffected: []stat.Pool{stat.Chakra}},
		},
		&effect.PoolCostAdjust{
			Base:     effect.Base{Power: 3, Calculation: effect.Static, TargetID: "x"},
			Pools:    effect.Pools{PoolsAffected: []stat.Pool{stat.Chakra}},
			Decrease: true,
		},
	}
	_, cp, _ = PoolCost(b, x, opt)
	assert.InDelta(t, 12.0, cp, 1e-9)

	opt.CostReductionPerLevel = 2
	b.UserEffects = nil
	_, cp, _ = PoolCost(b, x, opt)
	assert.InDelta(t, 4.0, cp, 1e-9)
}

func TestHasAffordableAction(t *testing.T) {
	c := fighter("x", "Xia", "leaf", 0, 0)
	c.ActionPoints = 30
	assert.True(t, HasAffordableAction(c), "move costs 30")

	c.ActionPoints = 20
	assert.False(t, HasAffordableAction(c), "wait does not count")

	c.IsAI = true
	c.ActionPoints = 30
	assert.False(t, HasAffordableAction(c), "AI moves do not count")
}

func TestDescribePronouns(t *testing.T) {
	actor := &model.Combatant{Name: "Xia", Gender: model.Female}
	a := model.Action{Name: "Kick"}

	got := describe("%user braces %user_reflexive and kicks %target_object at %location", a, actor,
		[]named{{"Yun", model.Male}}, 3, 1)
	assert.Equal(t, "Xia braces herself and kicks him at [1, 3]", got)

	got = describe("%target lose %target_posessive footing", a, actor,
		[]named{{"Yun", model.Male}, {"Zed", model.Female}}, 0, 0)
	assert.Equal(t, "Yun, Zed lose theirs footing", got)

	assert.Equal(t, "Xia uses Kick", describe("", a, actor, nil, 0, 0))
}
