package combat

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/hexbattle/internal/game/action"
	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/game/stat"
	"github.com/udisondev/hexbattle/internal/hexgrid"
	"github.com/udisondev/hexbattle/internal/model"
)

func rounds(n int) *int { return &n }

func ninja(id, name string, col, row int) *model.Combatant {
	return &model.Combatant{
		ID: id, ControllerID: id, Name: name, Gender: model.Female, VillageID: "leaf",
		Level: 10, Longitude: col, Latitude: row,
		CurHealth: 100, MaxHealth: 100,
		CurChakra: 100, MaxChakra: 100,
		CurStamina: 100, MaxStamina: 100,
		ActionPoints: 100, IsOriginal: true,
	}
}

func newBattle(cs ...*model.Combatant) *model.Battle {
	b := &model.Battle{ID: "b1", Width: 8, Height: 5, Round: 1, Combatants: cs}
	for _, c := range cs {
		b.Rotation = append(b.Rotation, c.ID)
	}
	return b
}

// cast realizes tmpl from creator onto target as if cast this round.
func cast(b *model.Battle, tmpl effect.Tag, creator, target *model.Combatant, name string) effect.Tag {
	snap := target.Snapshot()
	t := effect.Realize(tmpl, creator.Snapshot(), &snap, effect.Stamp{Round: b.Round, ActionID: name, ActionName: name})
	t.Common().Longitude, t.Common().Latitude = target.Longitude, target.Latitude
	b.UserEffects = append(b.UserEffects, t)
	return t
}

// settle makes an effect look like it was cast in an earlier round.
func settle(t effect.Tag) effect.Tag {
	c := t.Common()
	c.IsNew, c.CastThisRound = false, false
	c.CreatedRound--
	return t
}

func groundAt(b *model.Battle, tmpl effect.Tag, creator *model.Combatant, col, row int) effect.Tag {
	t := effect.Realize(tmpl, creator.Snapshot(), nil, effect.Stamp{Round: b.Round, ActionName: "Ground"})
	t.Common().Longitude, t.Common().Latitude = col, row
	b.GroundEffects = append(b.GroundEffects, t)
	return t
}

func damage(power float64) *effect.Damage {
	return &effect.Damage{Base: effect.Base{Power: power, Calculation: effect.Static, Rounds: rounds(0)}}
}

func resolve(t *testing.T, b *model.Battle, opts ...func(*Options)) *Result {
	t.Helper()
	o := Options{Rand: rand.New(rand.NewPCG(1, 2))}
	for _, fn := range opts {
		fn(&o)
	}
	res, err := New(o).Resolve(b)
	require.NoError(t, err)
	return res
}

func damageLines(log []model.ActionEffect) []string {
	var out []string
	for _, l := range log {
		if strings.Contains(l.Text, "damage") {
			out = append(out, l.Text)
		}
	}
	return out
}

func TestResolveDealsDamage(t *testing.T) {
	x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 1, 2)
	b := newBattle(x, y)
	cast(b, damage(20), x, y, "Fireball")

	res := resolve(t, b)

	assert.InDelta(t, 80.0, res.Battle.Find("y").CurHealth, 1e-9)
	assert.InDelta(t, 100.0, b.Find("y").CurHealth, 1e-9, "input battle is untouched")
	assert.Empty(t, res.Battle.UserEffects, "instant damage is consumed")
	assert.Equal(t, []string{"Yun takes 20.00 damage from Xia's Fireball"}, damageLines(res.Log))
}

func TestResolveRemovesExpiredEffects(t *testing.T) {
	x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 1, 2)
	b := newBattle(x, y)
	cast(b, &effect.Stealth{Base: effect.Base{Rounds: rounds(0)}}, y, y, "Hide")
	lasting := cast(b, &effect.Stealth{Base: effect.Base{Rounds: rounds(2)}}, x, x, "Hide")
	cast(b, &effect.Heal{Base: effect.Base{Power: 5}}, x, x, "Bandage")

	res := resolve(t, b)

	require.Len(t, res.Battle.UserEffects, 1)
	kept := res.Battle.UserEffects[0].Common()
	assert.Equal(t, lasting.Common().ID, kept.ID)
	assert.False(t, kept.IsNew, "an effect is new for exactly one pass")
}

func TestResolveClampsPools(t *testing.T) {
	x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 1, 2)
	b := newBattle(x, y)
	cast(b, &effect.Heal{Base: effect.Base{Power: 50, Rounds: rounds(0)}}, x, x, "Heal")
	cast(b, damage(500), x, y, "Crush")

	res := resolve(t, b)

	assert.InDelta(t, 100.0, res.Battle.Find("x").CurHealth, 1e-9)
	assert.Zero(t, res.Battle.Find("y").CurHealth)
	assert.False(t, res.Battle.Find("y").Alive())
}

func TestStunAndPrevent(t *testing.T) {
	t.Run("stun lands", func(t *testing.T) {
		x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 1, 2)
		b := newBattle(x, y)
		cast(b, &effect.Stun{Base: effect.Base{Power: 100, Rounds: rounds(1)}}, x, y, "Genjutsu")

		res := resolve(t, b)
		assert.True(t, res.Battle.IsStunned("y"))
	})

	t.Run("prevent wins", func(t *testing.T) {
		x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 1, 2)
		b := newBattle(x, y)
		guard := settle(cast(b, &effect.Prevent{
			Base:   effect.Base{Power: 60, PowerPerLevel: 4, Rounds: rounds(3), Direction: effect.Defence},
			Blocks: effect.KindStun,
		}, y, y, "Focus"))
		guard.Common().Level = 10
		cast(b, &effect.Stun{Base: effect.Base{Power: 100, Rounds: rounds(1)}}, x, y, "Genjutsu")

		res := resolve(t, b)

		assert.False(t, res.Battle.IsStunned("y"))
		require.Len(t, res.Battle.UserEffects, 1)
		kept := res.Battle.UserEffects[0].(*effect.Prevent)
		assert.InDelta(t, 100.0, effect.Power(kept), 1e-9, "a successful prevent locks its power")
		assert.Contains(t, res.Log, model.ActionEffect{Text: "Yun resisted being stunned", Color: model.ColorBlue})
	})
}

func TestBarrierAbsorbsAlongThePath(t *testing.T) {
	x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 4, 2)
	y.VillageID = "sand"
	x.Abilities = []model.Ability{{Action: model.Action{
		ID: "bolt", Name: "Bolt", Target: model.TargetOpponent, Method: model.MethodSingle, Range: 5,
		ActionCostPerc: 10,
		Effects:        effect.Tags{damage(100)},
	}}}
	b := newBattle(x, y)
	for _, col := range []int{1, 2} {
		groundAt(b, &effect.Barrier{Base: effect.Base{Power: 100}, AbsorbPercentage: 50}, x, col, 2)
	}
	_, err := action.Perform(b, action.Request{ActorID: "x", ActionID: "bolt", Longitude: 4, Latitude: 2}, time.Now())
	require.NoError(t, err)

	res := resolve(t, b)

	assert.InDelta(t, 75.0, res.Battle.Find("y").CurHealth, 1e-9, "two 50% barriers let a quarter through")
	left := map[int]float64{}
	for _, g := range res.Battle.GroundEffects {
		if bar, ok := g.(*effect.Barrier); ok {
			left[bar.Longitude] = bar.Power
		}
	}
	assert.InDelta(t, 50.0, left[1], 1e-9)
	assert.InDelta(t, 75.0, left[2], 1e-9)
}

func TestBarrierDestroyed(t *testing.T) {
	x := ninja("x", "Xia", 0, 2)
	b := newBattle(x)
	bar := groundAt(b, &effect.Barrier{Base: effect.Base{Power: 10}}, x, 1, 2).(*effect.Barrier)
	hit := effect.Realize(damage(30), x.Snapshot(), nil, effect.Stamp{Round: 1})
	hit.Common().TargetType, hit.Common().TargetID = effect.TargetBarrier, bar.ID
	b.UserEffects = effect.Tags{hit}

	res := resolve(t, b)

	assert.Nil(t, res.Battle.BarrierAt(hexgrid.FromOffset(1, 2)))
	assert.Contains(t, res.Log, model.ActionEffect{Text: "Barrier takes 30.00 damage and is destroyed.", Color: model.ColorRed})
}

func TestShieldSoaksDamage(t *testing.T) {
	x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 1, 2)
	b := newBattle(x, y)
	cast(b, &effect.Shield{Base: effect.Base{Power: 15, Rounds: rounds(3)}}, y, y, "Guard")
	cast(b, damage(20), x, y, "Kick")

	res := resolve(t, b)

	assert.InDelta(t, 95.0, res.Battle.Find("y").CurHealth, 1e-9)
	for _, u := range res.Battle.UserEffects {
		assert.NotEqual(t, effect.KindShield, u.Kind(), "a spent shield is removed")
	}
}

func TestLifestealAndReflect(t *testing.T) {
	x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 1, 2)
	x.CurHealth = 60
	b := newBattle(x, y)
	settle(cast(b, &effect.Lifesteal{Base: effect.Base{Power: 50, Calculation: effect.Percentage, Rounds: rounds(2)}}, x, x, "Leech"))
	settle(cast(b, &effect.Reflect{Base: effect.Base{Power: 5, Calculation: effect.Static, Rounds: rounds(2)}}, y, y, "Mirror"))
	cast(b, damage(20), x, y, "Kick")

	res := resolve(t, b)

	// y reflects 5 of the 20; x steals half of the 20 dealt.
	assert.InDelta(t, 85.0, res.Battle.Find("y").CurHealth, 1e-9)
	assert.InDelta(t, 60.0-5+10, res.Battle.Find("x").CurHealth, 1e-9)
}

func TestNewModifiersWait(t *testing.T) {
	x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 1, 2)
	b := newBattle(x, y)
	cast(b, &effect.DamageTakenAdjust{Base: effect.Base{Power: 50, Calculation: effect.Percentage, Rounds: rounds(2)}}, x, y, "Expose")
	cast(b, damage(20), x, y, "Kick")

	res := resolve(t, b)
	assert.InDelta(t, 80.0, res.Battle.Find("y").CurHealth, 1e-9, "a modifier does not act in the round it is cast")
}

func TestAbsorbIsCapped(t *testing.T) {
	x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 1, 2)
	y.CurHealth = 50
	b := newBattle(x, y)
	settle(cast(b, &effect.Absorb{Base: effect.Base{Power: 100, Calculation: effect.Percentage, Rounds: rounds(2)}}, y, y, "Sponge"))
	cast(b, damage(20), x, y, "Kick")

	res := resolve(t, b)
	assert.InDelta(t, 50.0-8+12, res.Battle.Find("y").CurHealth, 1e-9)
}

func TestHealGroupsTakeStrongest(t *testing.T) {
	x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 1, 2)
	y.CurHealth = 20
	b := newBattle(x, y)
	heal := func(p float64) *effect.Heal {
		return &effect.Heal{Base: effect.Base{Power: p, Rounds: rounds(0)}}
	}
	cast(b, heal(10), x, y, "Mend")
	cast(b, heal(30), x, y, "Mend")
	cast(b, heal(5), x, y, "Salve")

	res := resolve(t, b)
	assert.InDelta(t, 55.0, res.Battle.Find("y").CurHealth, 1e-9)
}

func TestGroundEffects(t *testing.T) {
	t.Run("damage lands on the occupant", func(t *testing.T) {
		x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 2, 2)
		b := newBattle(x, y)
		groundAt(b, &effect.Damage{Base: effect.Base{Power: 10, Calculation: effect.Static, Rounds: rounds(2)}}, x, 2, 2)

		res := resolve(t, b)
		assert.InDelta(t, 90.0, res.Battle.Find("y").CurHealth, 1e-9)
		require.Len(t, res.Battle.GroundEffects, 1, "the hazard stays")

		again := resolve(t, res.Battle)
		assert.InDelta(t, 90.0, again.Battle.Find("y").CurHealth, 1e-9, "once per round per target")
	})

	t.Run("lingering kinds wait a round", func(t *testing.T) {
		x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 2, 2)
		b := newBattle(x, y)
		groundAt(b, &effect.Poison{Base: effect.Base{Power: 10, Rounds: rounds(2)}}, x, 2, 2)

		res := resolve(t, b)
		require.Len(t, res.Battle.UserEffects, 1)
		landed := res.Battle.UserEffects[0].Common()
		assert.Equal(t, "y", landed.TargetID)
		assert.Equal(t, 2, landed.ActiveFrom)
		assert.True(t, landed.FromGround)
	})

	t.Run("move relocates the caster", func(t *testing.T) {
		x := ninja("x", "Xia", 0, 2)
		b := newBattle(x)
		groundAt(b, &effect.Move{Base: effect.Base{Power: 100}}, x, 1, 2)

		res := resolve(t, b)
		assert.Equal(t, hexgrid.FromOffset(1, 2), res.Battle.Find("x").Hex())
		assert.Empty(t, res.Battle.GroundEffects)
	})
}

func TestFriendlyFire(t *testing.T) {
	tests := []struct {
		name string
		fire effect.FriendlyFire
		ally bool
		hit  bool
	}{
		{"enemies spares allies", effect.FireEnemies, true, false},
		{"enemies hits enemies", effect.FireEnemies, false, true},
		{"friendly hits allies", effect.FireFriendly, true, true},
		{"friendly spares enemies", effect.FireFriendly, false, false},
		{"all hits allies", effect.FireAll, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := ninja("x", "Xia", 0, 2)
			other := ninja("s", "Summon", 2, 2)
			other.IsOriginal, other.IsSummon = false, true
			if tt.ally {
				other.ControllerID = "x"
			}
			b := newBattle(x, other)
			groundAt(b, &effect.Damage{Base: effect.Base{Power: 10, Calculation: effect.Static, Rounds: rounds(0), FriendlyFire: tt.fire}}, x, 2, 2)

			res := resolve(t, b)
			want := 100.0
			if tt.hit {
				want = 90
			}
			assert.InDelta(t, want, res.Battle.Find("s").CurHealth, 1e-9)
		})
	}
}

func TestSummon(t *testing.T) {
	toad := model.Companion{ID: "toad", Name: "Toad", Level: 5, MaxHealth: 200, Stats: stat.Block{Strength: 40}}
	withToad := func(o *Options) { o.Companions = map[string]model.Companion{"toad": toad} }

	t.Run("spawns scaled companion", func(t *testing.T) {
		x := ninja("x", "Xia", 0, 2)
		b := newBattle(x)
		groundAt(b, &effect.Summon{Base: effect.Base{Power: 50, Rounds: rounds(2)}, CompanionID: "toad"}, x, 1, 2)

		res := resolve(t, b, withToad)
		require.Len(t, res.Battle.Combatants, 2)
		s := res.Battle.Combatants[1]
		assert.True(t, s.IsSummon)
		assert.Equal(t, "x", s.ControllerID)
		assert.InDelta(t, 100.0, s.MaxHealth, 1e-9)
		assert.InDelta(t, 20.0, s.Strength, 1e-9)
		assert.Equal(t, []string{"x", s.ID}, res.Battle.Rotation)
	})

	t.Run("despawns when expired", func(t *testing.T) {
		x := ninja("x", "Xia", 0, 2)
		b := newBattle(x)
		groundAt(b, &effect.Summon{Base: effect.Base{Power: 100, Rounds: rounds(1)}, CompanionID: "toad"}, x, 1, 2)
		res := resolve(t, b, withToad)
		require.Len(t, res.Battle.Combatants, 2)

		next := res.Battle
		next.GroundEffects[0].Common().SetRounds(0)
		res = resolve(t, next, withToad)
		assert.Len(t, res.Battle.Combatants, 1)
		assert.Equal(t, []string{"x"}, res.Battle.Rotation)
	})

	for name, companion := range map[string]string{"missing companion": "", "unknown companion": "dragon"} {
		t.Run(name, func(t *testing.T) {
			x := ninja("x", "Xia", 0, 2)
			b := newBattle(x)
			groundAt(b, &effect.Summon{Base: effect.Base{Power: 100}, CompanionID: companion}, x, 1, 2)

			_, err := New(Options{Companions: map[string]model.Companion{"toad": toad}}).Resolve(b)
			require.ErrorIs(t, err, ErrInvariant)
		})
	}
}

func TestClearRemovesBuffs(t *testing.T) {
	x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 1, 2)
	b := newBattle(x, y)
	settle(cast(b, &effect.Shield{Base: effect.Base{Power: 50, Rounds: rounds(3), Direction: effect.Defence}}, y, y, "Guard"))
	cast(b, &effect.Clear{Base: effect.Base{Power: 100, Rounds: rounds(0)}}, x, y, "Dispel")
	cast(b, damage(20), x, y, "Kick")

	res := resolve(t, b)
	assert.Empty(t, res.Battle.UserEffects)
	assert.InDelta(t, 80.0, res.Battle.Find("y").CurHealth, 1e-9)
}

func TestResolveIsDeterministic(t *testing.T) {
	build := func() *model.Battle {
		x, y := ninja("x", "Xia", 0, 2), ninja("y", "Yun", 1, 2)
		b := newBattle(x, y)
		for i := range 6 {
			e := cast(b, &effect.Flee{Base: effect.Base{Power: 50, Rounds: rounds(0)}}, y, y, "Run")
			e.Common().ID = effect.DeriveID("flee", string(rune('a'+i)))
		}
		return b
	}
	a := resolve(t, build())
	c := resolve(t, build())
	assert.Equal(t, a.Log, c.Log)
	assert.Equal(t, a.Battle.Find("y").FledBattle, c.Battle.Find("y").FledBattle)
}

func TestFormulaDamage(t *testing.T) {
	f := DefaultFormula()
	strong := fighter{stats: stat.Block{NinjutsuOffence: 400}, experience: 1000}
	weak := fighter{stats: stat.Block{NinjutsuOffence: 100}, experience: 1000}
	def := fighter{stats: stat.Block{NinjutsuDefence: 100}, experience: 1000}
	hit := &effect.Damage{
		Base:    effect.Base{Power: 10, Calculation: effect.Formula},
		Scaling: effect.Scaling{StatTypes: []stat.School{stat.Ninjutsu}},
	}

	assert.Greater(t, f.Damage(hit, strong, def, 100), f.Damage(hit, weak, def, 100))
	assert.InDelta(t, 25.0, f.Damage(&effect.Damage{Base: effect.Base{Power: 25, Calculation: effect.Percentage}}, weak, def, 100), 1e-9)
	assert.InDelta(t, 7.0, f.Damage(&effect.Damage{Base: effect.Base{Power: 7, Calculation: effect.Formula}}, weak, def, 100), 1e-9,
		"no scaling falls back to power")
}
