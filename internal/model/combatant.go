package model

import (
	"slices"

	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/game/stat"
	"github.com/udisondev/hexbattle/internal/hexgrid"
)

// Gender selects pronouns in battle descriptions.
type Gender string

const (
	Male   Gender = "Male"
	Female Gender = "Female"
	Other  Gender = "Other"
)

// UsedAction records one action a combatant performed.
type UsedAction struct {
	ID    string        `json:"id"`
	Type  effect.Origin `json:"type"`
	Round int           `json:"round"`
}

// Combatant is one participant in a battle: a player, an AI, or a spawned
// clone/summon.
type Combatant struct {
	ID           string  `json:"userId"`
	ControllerID string  `json:"controllerId"`
	Name         string  `json:"username"`
	Gender       Gender  `json:"gender"`
	VillageID    string  `json:"villageId"`
	Level        int     `json:"level"`
	Experience   float64 `json:"experience"`
	Money        float64 `json:"money"`
	BloodlineID  string  `json:"bloodlineId,omitempty"`

	// Offset coordinates of the occupied tile.
	Longitude int `json:"longitude"`
	Latitude  int `json:"latitude"`

	CurHealth  float64 `json:"curHealth"`
	MaxHealth  float64 `json:"maxHealth"`
	CurChakra  float64 `json:"curChakra"`
	MaxChakra  float64 `json:"maxChakra"`
	CurStamina float64 `json:"curStamina"`
	MaxStamina float64 `json:"maxStamina"`

	stat.Block
	HighestOffence  stat.Name       `json:"highestOffenceType"`
	HighestDefence  stat.Name       `json:"highestDefenceType"`
	HighestGenerals [2]stat.General `json:"highestGenerals"`
	Armor           float64         `json:"armor"`

	Abilities []Ability    `json:"jutsus,omitempty"`
	Items     []Consumable `json:"items,omitempty"`

	ActionPoints float64 `json:"actionPoints"`
	Initiative   float64 `json:"initiative"`
	IsAI         bool    `json:"isAi"`
	IsOriginal   bool    `json:"isOriginal"`
	IsSummon     bool    `json:"isSummon,omitempty"`
	FledBattle   bool    `json:"fledBattle"`
	LeftBattle   bool    `json:"leftBattle"`

	UsedStats    []stat.Name    `json:"usedStats,omitempty"`
	UsedGenerals []stat.General `json:"usedGenerals,omitempty"`
	UsedActions  []UsedAction   `json:"usedActions,omitempty"`
}

// Alive reports whether the combatant still takes part in the battle.
func (c *Combatant) Alive() bool {
	return c.CurHealth > 0 && !c.FledBattle && !c.LeftBattle
}

// Hex returns the occupied tile.
func (c *Combatant) Hex() hexgrid.Hex {
	return hexgrid.FromOffset(c.Longitude, c.Latitude)
}

// MoveTo places the combatant on a tile.
func (c *Combatant) MoveTo(h hexgrid.Hex) {
	c.Longitude, c.Latitude = h.Offset()
}

// UpdateHighest recomputes the derived highest offence, defence and
// general attributes.
func (c *Combatant) UpdateHighest() {
	c.HighestOffence = c.Block.Highest(true)
	c.HighestDefence = c.Block.Highest(false)
	c.HighestGenerals = c.Block.HighestGenerals()
}

// StatFor returns the offence or defence value of a school, following
// Highest to the combatant's strongest school.
func (c *Combatant) StatFor(s stat.School, offence bool) float64 {
	highest := c.HighestDefence
	if offence {
		highest = c.HighestOffence
	}
	return c.Block.Get(stat.Resolve(s, offence, highest))
}

// Snapshot captures the stats effects carry with them.
func (c *Combatant) Snapshot() effect.Snapshot {
	return effect.Snapshot{
		ID:             c.ID,
		ControllerID:   c.ControllerID,
		VillageID:      c.VillageID,
		Level:          c.Level,
		Experience:     c.Experience,
		Stats:          c.Block,
		HighestOffence: c.HighestOffence,
		HighestDefence: c.HighestDefence,
	}
}

// Side returns the friendly-fire identity of the combatant.
func (c *Combatant) Side() effect.Side {
	return effect.Side{ID: c.ID, ControllerID: c.ControllerID, VillageID: c.VillageID}
}

// ClampPools keeps every current pool within [0, max].
func (c *Combatant) ClampPools() {
	c.CurHealth = clamp(c.CurHealth, c.MaxHealth)
	c.CurChakra = clamp(c.CurChakra, c.MaxChakra)
	c.CurStamina = clamp(c.CurStamina, c.MaxStamina)
}

// AddPool adds delta to a pool and clamps it.
func (c *Combatant) AddPool(p stat.Pool, delta float64) {
	switch p {
	case stat.Health:
		c.CurHealth = clamp(c.CurHealth+delta, c.MaxHealth)
	case stat.Chakra:
		c.CurChakra = clamp(c.CurChakra+delta, c.MaxChakra)
	case stat.Stamina:
		c.CurStamina = clamp(c.CurStamina+delta, c.MaxStamina)
	}
}

// Pool returns the current and maximum value of a pool.
func (c *Combatant) Pool(p stat.Pool) (cur, limit float64) {
	switch p {
	case stat.Health:
		return c.CurHealth, c.MaxHealth
	case stat.Chakra:
		return c.CurChakra, c.MaxChakra
	case stat.Stamina:
		return c.CurStamina, c.MaxStamina
	}
	return 0, 0
}

// Scale multiplies pools and stats by f, used for clones and summons.
func (c *Combatant) Scale(f float64) {
	c.MaxHealth *= f
	c.MaxChakra *= f
	c.MaxStamina *= f
	c.CurHealth *= f
	c.CurChakra *= f
	c.CurStamina *= f
	c.Block.Scale(f)
}

// NoteStats records school and general usage for later experience
// distribution.
func (c *Combatant) NoteStats(sc *effect.Scaling, offence bool) {
	if sc == nil {
		return
	}
	highest := c.HighestDefence
	if offence {
		highest = c.HighestOffence
	}
	for _, s := range sc.StatTypes {
		if n := stat.Resolve(s, offence, highest); n != "" && !slices.Contains(c.UsedStats, n) {
			c.UsedStats = append(c.UsedStats, n)
		}
	}
	for _, g := range sc.GeneralTypes {
		if !slices.Contains(c.UsedGenerals, g) {
			c.UsedGenerals = append(c.UsedGenerals, g)
		}
	}
}

func clamp(v, limit float64) float64 {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
