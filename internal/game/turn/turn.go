// Package turn decides whose turn it is and advances battle rounds.
//
// Every hand-over to the next combatant is a round rollover: action points
// are refilled, the round counter moves on and lasting effects tick down.
package turn

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/udisondev/hexbattle/internal/game/action"
	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/model"
)

// DefaultRoundDuration is how long a combatant has to act.
const DefaultRoundDuration = 30 * time.Second

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T. Tests move it with Advance.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed time.
func (c *FixedClock) Now() time.Time { return c.T }

// Advance moves the clock forward.
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// Phase is where a battle stands within the active combatant's turn.
type Phase int32

const (
	WaitingForActor Phase = iota // turn started, nothing spent yet
	ActorActing                  // the actor has spent action points
	RoundRollover                // the turn just passed to the next actor
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case WaitingForActor:
		return "WAITING_FOR_ACTOR"
	case ActorActing:
		return "ACTOR_ACTING"
	case RoundRollover:
		return "ROUND_ROLLOVER"
	default:
		return "UNKNOWN"
	}
}

// Machine advances battles through turns.
type Machine struct {
	Clock         Clock
	RoundDuration time.Duration
}

// NewMachine creates a Machine. A nil clock uses the wall clock and a
// non-positive duration the default.
func NewMachine(clock Clock, roundDuration time.Duration) *Machine {
	if clock == nil {
		clock = SystemClock{}
	}
	if roundDuration <= 0 {
		roundDuration = DefaultRoundDuration
	}
	return &Machine{Clock: clock, RoundDuration: roundDuration}
}

// order returns the turn order: the rotation, or the combatant list when
// no rotation was set. Only combatants still in battle are included.
func order(b *model.Battle) []string {
	ids := b.Rotation
	if len(ids) == 0 {
		for _, c := range b.Combatants {
			ids = append(ids, c.ID)
		}
	}
	var out []string
	for _, id := range ids {
		if c := b.Find(id); c != nil && c.Alive() {
			out = append(out, id)
		}
	}
	return out
}

// TimedOut reports whether the active combatant ran out of time.
func (m *Machine) TimedOut(b *model.Battle) bool {
	return !m.Clock.Now().Before(b.RoundStartAt.Add(m.RoundDuration))
}

// Deadline returns when the current turn times out.
func (m *Machine) Deadline(b *model.Battle) time.Time {
	return b.RoundStartAt.Add(m.RoundDuration)
}

// ActiveActor returns the combatant whose turn it is and whether the turn
// must pass to them from the current one. The turn passes when the current
// actor timed out, has nothing affordable left to do, or is out of battle.
// An empty id means nobody is left to act.
func (m *Machine) ActiveActor(b *model.Battle) (string, bool) {
	ids := order(b)
	if len(ids) == 0 {
		return "", false
	}
	if b.ActiveCombatantID == "" {
		return ids[0], false
	}
	cur := b.Find(b.ActiveCombatantID)
	stay := cur != nil && cur.Alive() && !m.TimedOut(b) && action.HasAffordableAction(cur)
	if stay {
		return cur.ID, false
	}

	// The next in rotation after the current actor, who may have left it.
	rotation := b.Rotation
	if len(rotation) == 0 {
		rotation = ids
	}
	at := slices.Index(rotation, b.ActiveCombatantID)
	for step := 1; step <= len(rotation); step++ {
		id := rotation[(at+step+len(rotation))%len(rotation)]
		if slices.Contains(ids, id) {
			return id, true
		}
	}
	return ids[0], true
}

// Phase reports the battle's phase without changing it.
func (m *Machine) Phase(b *model.Battle) Phase {
	if _, progress := m.ActiveActor(b); progress {
		return RoundRollover
	}
	if c := b.Find(b.ActiveCombatantID); c != nil && c.ActionPoints < action.MaxActionPoints {
		return ActorActing
	}
	return WaitingForActor
}

// Align brings the battle up to date with the clock: it settles the active
// combatant and rolls the round over when the turn passes.
func (m *Machine) Align(b *model.Battle) Phase {
	now := m.Clock.Now()
	if b.RoundStartAt.IsZero() {
		b.RoundStartAt = now
	}
	id, progress := m.ActiveActor(b)
	if progress {
		Rollover(b, now)
	}
	b.ActiveCombatantID = id
	b.UpdatedAt = now
	if progress {
		return RoundRollover
	}
	return m.Phase(b)
}

// Rollover starts the next round: action points are refilled, effects cast
// before this round lose one round of duration, and the new-effect flags
// are cleared. Effects not active yet are left as they are.
func Rollover(b *model.Battle, now time.Time) {
	for _, c := range b.Combatants {
		c.ActionPoints = action.MaxActionPoints
	}
	tick := func(ts effect.Tags) {
		for _, t := range ts {
			c := t.Common()
			if c.ActiveFrom > b.Round {
				continue
			}
			if c.Rounds != nil && *c.Rounds > 0 && c.CreatedRound < b.Round {
				*c.Rounds--
			}
			c.IsNew, c.CastThisRound = false, false
		}
	}
	tick(b.UserEffects)
	tick(b.GroundEffects)
	b.Round++
	b.RoundStartAt = now
}

// Initiative bonuses.
const (
	homeBonus  = 10
	levelBonus = 0.5
)

// RollInitiative returns a combatant's initiative: a d100 roll plus a bonus
// per level and a bonus for fighting in its home village.
func RollInitiative(rng *rand.Rand, c *model.Combatant, homeVillage string) float64 {
	v := float64(rng.IntN(100)+1) + float64(c.Level)*levelBonus
	if homeVillage != "" && c.VillageID == homeVillage {
		v += homeBonus
	}
	return v
}

// Rotation orders combatants by initiative, highest first. Ties keep the
// combatant order.
func Rotation(cs []*model.Combatant) []string {
	sorted := slices.Clone(cs)
	slices.SortStableFunc(sorted, func(a, b *model.Combatant) int {
		return cmp.Compare(b.Initiative, a.Initiative)
	})
	out := make([]string, 0, len(sorted))
	for _, c := range sorted {
		out = append(out, c.ID)
	}
	return out
}
