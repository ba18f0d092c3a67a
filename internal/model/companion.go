package model

import (
	"slices"

	"github.com/udisondev/hexbattle/internal/game/stat"
)

// Companion is a summon template. Summons are spawned from it with pools
// and stats scaled by the summoning effect's power.
type Companion struct {
	ID         string     `yaml:"id" json:"id"`
	Name       string     `yaml:"name" json:"name"`
	Level      int        `yaml:"level" json:"level"`
	MaxHealth  float64    `yaml:"max_health" json:"maxHealth"`
	MaxChakra  float64    `yaml:"max_chakra" json:"maxChakra"`
	MaxStamina float64    `yaml:"max_stamina" json:"maxStamina"`
	Stats      stat.Block `yaml:"stats" json:"stats"`
}

// Spawn builds a combatant from the template with the given id, serving
// the given controller.
func (t Companion) Spawn(id string, owner *Combatant) *Combatant {
	c := &Combatant{
		ID:           id,
		ControllerID: owner.ControllerID,
		Name:         t.Name,
		Gender:       Other,
		VillageID:    owner.VillageID,
		Level:        t.Level,
		CurHealth:    t.MaxHealth,
		MaxHealth:    t.MaxHealth,
		CurChakra:    t.MaxChakra,
		MaxChakra:    t.MaxChakra,
		CurStamina:   t.MaxStamina,
		MaxStamina:   t.MaxStamina,
		Block:        t.Stats,
		ActionPoints: 100,
		IsAI:         true,
		IsSummon:     true,
	}
	c.UpdateHighest()
	return c
}

// Clone deep-copies the combatant.
func (c *Combatant) Clone() *Combatant {
	out := *c
	out.UsedStats = slices.Clone(c.UsedStats)
	out.UsedGenerals = slices.Clone(c.UsedGenerals)
	out.UsedActions = slices.Clone(c.UsedActions)

	if c.Abilities != nil {
		out.Abilities = make([]Ability, len(c.Abilities))
		for i, a := range c.Abilities {
			a.Effects = a.Effects.Clone()
			a.LastUsedRound = cloneRound(a.LastUsedRound)
			out.Abilities[i] = a
		}
	}
	if c.Items != nil {
		out.Items = make([]Consumable, len(c.Items))
		for i, it := range c.Items {
			it.Effects = it.Effects.Clone()
			it.LastUsedRound = cloneRound(it.LastUsedRound)
			out.Items[i] = it
		}
	}
	return &out
}

func cloneRound(r *int) *int {
	if r == nil {
		return nil
	}
	n := *r
	return &n
}
