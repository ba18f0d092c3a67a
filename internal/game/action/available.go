package action

import (
	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/game/stat"
	"github.com/udisondev/hexbattle/internal/model"
)

// Basic action ids.
const (
	BasicAttackID = "sp"
	BasicHealID   = "cp"
	MoveID        = "move"
	FleeID        = "flee"
	WaitID        = "wait"
)

// MaxActionPoints is the action point budget refilled every round.
const MaxActionPoints = 100

// Option is an action a combatant can pick, with the proficiency level it
// is used at.
type Option struct {
	model.Action
	Level int
	// Quantity is the remaining item count, or -1 when unlimited.
	Quantity      int
	LastUsedRound *int
}

func rounds(n int) *int { return &n }

// basicActions returns the actions every combatant carries. AI combatants
// only get move and wait on top of their abilities.
func basicActions(c *model.Combatant) []Option {
	var out []Option
	human := !c.IsAI
	if human {
		out = append(out,
			Option{Level: c.Level, Quantity: -1, Action: model.Action{
				ID:              BasicAttackID,
				Name:            "Basic Attack",
				Description:     "%user perform a basic physical strike against %target",
				Type:            effect.FromBasic,
				Target:          model.TargetOtherUser,
				Method:          model.MethodSingle,
				Range:           1,
				StaminaCostPerc: 10,
				ActionCostPerc:  60,
				Effects: effect.Tags{&effect.Damage{
					Base: effect.Base{
						Power: 1, PowerPerLevel: 0.1, Calculation: effect.Formula,
						Rounds: rounds(0), AppearAnimation: "hit",
					},
					Scaling: effect.Scaling{GeneralTypes: []stat.General{stat.Strength}},
				}},
			}},
			Option{Level: c.Level, Quantity: -1, Action: model.Action{
				ID:             BasicHealID,
				Name:           "Basic Heal",
				Description:    "%user perform basic healing of %target",
				Type:           effect.FromBasic,
				Target:         model.TargetCharacter,
				Method:         model.MethodSingle,
				Range:          1,
				ChakraCostPerc: 1,
				ActionCostPerc: 50,
				Effects: effect.Tags{&effect.Heal{
					Base: effect.Base{
						Power: 5, PowerPerLevel: 0.1, Calculation: effect.Static,
						Rounds: rounds(0), AppearAnimation: "heal",
					},
				}},
			}},
		)
	}
	out = append(out, Option{Level: c.Level, Quantity: -1, Action: model.Action{
		ID:             MoveID,
		Name:           "Move",
		Description:    "%user moves on the battlefield",
		Type:           effect.FromBasic,
		Target:         model.TargetEmptyGround,
		Method:         model.MethodSingle,
		Range:          1,
		ActionCostPerc: 30,
		Effects:        effect.Tags{&effect.Move{Base: effect.Base{Power: 100}}},
	}})
	if human {
		out = append(out, Option{Level: c.Level, Quantity: -1, Action: model.Action{
			ID:             FleeID,
			Name:           "Flee",
			Description:    "%user attempts to flee the battle",
			Type:           effect.FromBasic,
			Target:         model.TargetSelf,
			Method:         model.MethodSingle,
			HealthCostPerc: 0.1,
			ActionCostPerc: 100,
			Effects:        effect.Tags{&effect.Flee{Base: effect.Base{Power: 20, Rounds: rounds(0)}}},
		}})
	}
	if c.ActionPoints > 0 {
		out = append(out, Option{Level: c.Level, Quantity: -1, Action: model.Action{
			ID:             WaitID,
			Name:           "End Turn",
			Description:    "%user stands and does nothing",
			Type:           effect.FromBasic,
			Target:         model.TargetSelf,
			Method:         model.MethodSingle,
			ActionCostPerc: c.ActionPoints,
		}})
	}
	return out
}

// Available lists every action the combatant holds: basic actions,
// abilities and items. Cooldowns are not filtered here.
func Available(c *model.Combatant) []Option {
	out := basicActions(c)
	for _, a := range c.Abilities {
		if a.Action.Type == "" {
			a.Action.Type = effect.FromJutsu
		}
		out = append(out, Option{Action: a.Action, Level: a.Level, Quantity: -1, LastUsedRound: a.LastUsedRound})
	}
	for _, it := range c.Items {
		it.Action.Type = effect.FromItem
		out = append(out, Option{Action: it.Action, Level: c.Level, Quantity: it.Quantity, LastUsedRound: it.LastUsedRound})
	}
	return out
}

// Find returns the combatant's action with the id.
func Find(c *model.Combatant, id string) (Option, bool) {
	for _, o := range Available(c) {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// HasAffordableAction reports whether the combatant can still pay the
// action point cost of something other than ending the turn. AI
// combatants do not count moving.
func HasAffordableAction(c *model.Combatant) bool {
	if !c.Alive() {
		return false
	}
	for _, o := range Available(c) {
		if o.ID == WaitID || (c.IsAI && o.ID == MoveID) {
			continue
		}
		if o.ActionCostPerc <= c.ActionPoints {
			return true
		}
	}
	return false
}

// PoolCost returns the health, chakra and stamina an action costs the
// actor: the percentage of each maximum, lowered by proficiency, then
// adjusted by pool-cost effects on the actor.
func PoolCost(b *model.Battle, c *model.Combatant, o Option) (hp, cp, sp float64) {
	perc := func(p float64) float64 {
		return max(0, p-o.CostReductionPerLevel*float64(o.Level))
	}
	hp = perc(o.HealthCostPerc) * c.MaxHealth / 100
	cp = perc(o.ChakraCostPerc) * c.MaxChakra / 100
	sp = perc(o.StaminaCostPerc) * c.MaxStamina / 100

	for _, t := range b.UserEffects {
		adj, ok := t.(*effect.PoolCostAdjust)
		if !ok || adj.TargetID != c.ID || !adj.Active() || adj.ActiveFrom > b.Round {
			continue
		}
		power := effect.Power(adj) * effect.Sign(adj)
		apply := func(cost float64) float64 {
			if adj.Calculation == effect.Static {
				return cost + power
			}
			return cost * (100 + power) / 100
		}
		for _, p := range adj.Affected() {
			switch p {
			case stat.Health:
				hp = apply(hp)
			case stat.Chakra:
				cp = apply(cp)
			case stat.Stamina:
				sp = apply(sp)
			}
		}
	}
	return max(0, hp), max(0, cp), max(0, sp)
}
