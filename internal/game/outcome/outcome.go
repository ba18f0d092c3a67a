// Package outcome decides when a combatant is done with a battle and what
// each viewer is allowed to see of it.
package outcome

import (
	"github.com/udisondev/hexbattle/internal/model"
)

// Outcome is the result of a battle for one combatant. Rewards are computed
// elsewhere from it.
type Outcome struct {
	CombatantID string  `json:"userId"`
	Won         bool    `json:"won"`
	Fled        bool    `json:"fled"`
	CurHealth   float64 `json:"curHealth"`
	CurChakra   float64 `json:"curChakra"`
	CurStamina  float64 `json:"curStamina"`
	// FriendsLeft and TargetsLeft count the human combatants on each side
	// that have not left the battle yet.
	FriendsLeft int `json:"friendsLeft"`
	TargetsLeft int `json:"targetsLeft"`
}

// BattleOver reports whether nobody is left to see the battle through.
func (o *Outcome) BattleOver() bool {
	return o.FriendsLeft+o.TargetsLeft == 0
}

// sides splits the original combatants into friends and targets of c. With
// exactly two originals it is a duel, otherwise sides follow villages.
func sides(b *model.Battle, c *model.Combatant) (friends, targets []*model.Combatant) {
	var originals []*model.Combatant
	for _, u := range b.Combatants {
		if u.IsOriginal {
			originals = append(originals, u)
		}
	}
	duel := len(originals) == 2
	for _, u := range originals {
		friendly := u.VillageID == c.VillageID
		if duel {
			friendly = u.ID == c.ID
		}
		if friendly {
			friends = append(friends, u)
		} else {
			targets = append(targets, u)
		}
	}
	return friends, targets
}

func fighting(c *model.Combatant) bool {
	return c.CurHealth > 0 && !c.FledBattle
}

func left(cs []*model.Combatant) int {
	var n int
	for _, c := range cs {
		if !c.LeftBattle && !c.IsAI {
			n++
		}
	}
	return n
}

// Evaluate returns the outcome for the combatant once it is out of the fight
// or has no opponents standing, and marks it as having left the battle. It
// returns nil while the combatant is still fighting, is unknown or already
// left.
func Evaluate(b *model.Battle, combatantID string) *Outcome {
	c := b.Find(combatantID)
	if c == nil || c.LeftBattle {
		return nil
	}
	friends, targets := sides(b, c)
	standing := 0
	for _, t := range targets {
		if fighting(t) {
			standing++
		}
	}
	if fighting(c) && standing > 0 {
		return nil
	}

	c.LeftBattle = true
	return &Outcome{
		CombatantID: c.ID,
		Won:         fighting(c),
		Fled:        c.FledBattle,
		CurHealth:   c.CurHealth,
		CurChakra:   c.CurChakra,
		CurStamina:  c.CurStamina,
		FriendsLeft: left(friends),
		TargetsLeft: left(targets),
	}
}

// Over reports whether the battle is done. With human originals it ends
// once every one of them has left. A battle fought by AIs only ends when at
// most one side still has someone fighting.
func Over(b *model.Battle) bool {
	humans := false
	for _, c := range b.Combatants {
		if c.IsOriginal && !c.IsAI {
			humans = true
			if !c.LeftBattle {
				return false
			}
		}
	}
	if humans {
		return true
	}

	multi := b.MultiVillage()
	standing := make(map[string]bool)
	for _, c := range b.Combatants {
		if !fighting(c) || c.LeftBattle {
			continue
		}
		side := c.ControllerID
		if multi {
			side = c.VillageID
		}
		standing[side] = true
	}
	return len(standing) <= 1
}

// Mask returns a copy of the battle for the viewer. Combatants the viewer
// does not control keep only what is visible on the battlefield.
func Mask(b *model.Battle, viewerID string) *model.Battle {
	out := *b
	out.Combatants = make([]*model.Combatant, 0, len(b.Combatants))
	for _, c := range b.Combatants {
		if c.ControllerID == viewerID {
			out.Combatants = append(out.Combatants, c)
			continue
		}
		out.Combatants = append(out.Combatants, &model.Combatant{
			ID:           c.ID,
			ControllerID: c.ControllerID,
			Name:         c.Name,
			Gender:       c.Gender,
			VillageID:    c.VillageID,
			Level:        c.Level,
			Longitude:    c.Longitude,
			Latitude:     c.Latitude,
			CurHealth:    c.CurHealth,
			MaxHealth:    c.MaxHealth,
			CurChakra:    c.CurChakra,
			MaxChakra:    c.MaxChakra,
			CurStamina:   c.CurStamina,
			MaxStamina:   c.MaxStamina,
			ActionPoints: c.ActionPoints,
			Initiative:   c.Initiative,
			IsAI:         c.IsAI,
			IsOriginal:   c.IsOriginal,
			IsSummon:     c.IsSummon,
			FledBattle:   c.FledBattle,
			LeftBattle:   c.LeftBattle,
		})
	}
	return &out
}
