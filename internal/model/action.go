package model

import "github.com/udisondev/hexbattle/internal/game/effect"

// TargetKind restricts which tiles an action may affect.
type TargetKind string

const (
	TargetSelf        TargetKind = "SELF"
	TargetOtherUser   TargetKind = "OTHER_USER"
	TargetAlly        TargetKind = "ALLY"
	TargetOpponent    TargetKind = "OPPONENT"
	TargetCharacter   TargetKind = "CHARACTER"
	TargetGround      TargetKind = "GROUND"
	TargetEmptyGround TargetKind = "EMPTY_GROUND"
)

// IsGround reports whether the action places ground effects.
func (k TargetKind) IsGround() bool {
	return k == TargetGround || k == TargetEmptyGround
}

// AreaMethod selects the tile traversal an action uses.
type AreaMethod string

const (
	MethodSingle      AreaMethod = "SINGLE"
	MethodCircleSpawn AreaMethod = "AOE_CIRCLE_SPAWN"
	MethodLineShoot   AreaMethod = "AOE_LINE_SHOOT"
	MethodWallShoot   AreaMethod = "AOE_WALL_SHOOT"
	MethodCircleShoot AreaMethod = "AOE_CIRCLE_SHOOT"
	MethodSpiralShoot AreaMethod = "AOE_SPIRAL_SHOOT"
	MethodAll         AreaMethod = "ALL"
)

// Action is a usable ability definition: targeting, costs and the effect
// templates it realizes.
type Action struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"battleDescription"`
	Type        effect.Origin `json:"type"`
	Target      TargetKind    `json:"target"`
	Method      AreaMethod    `json:"method"`
	Range       int           `json:"range"`

	HealthCostPerc  float64 `json:"healthCostPerc"`
	ChakraCostPerc  float64 `json:"chakraCostPerc"`
	StaminaCostPerc float64 `json:"staminaCostPerc"`
	ActionCostPerc  float64 `json:"actionCostPerc"`
	// CostReductionPerLevel lowers each pool cost percentage per
	// proficiency level.
	CostReductionPerLevel float64 `json:"costReductionPerLevel,omitempty"`

	Cooldown int         `json:"cooldown"`
	Effects  effect.Tags `json:"effects"`
}

// HasKind reports whether any effect template of the action is of kind k.
func (a *Action) HasKind(k effect.Kind) bool {
	for _, t := range a.Effects {
		if t.Kind() == k {
			return true
		}
	}
	return false
}

// IsDamaging reports whether the action carries a damage-class effect.
func (a *Action) IsDamaging() bool {
	for _, t := range a.Effects {
		if effect.IsDamageClass(t.Kind()) {
			return true
		}
	}
	return false
}

// Ability is an action learned by a combatant, with its proficiency level
// and cooldown stamp.
type Ability struct {
	Action
	Level         int  `json:"level"`
	LastUsedRound *int `json:"lastUsedRound,omitempty"`
}

// Consumable is an item carried into battle.
type Consumable struct {
	Action
	Quantity      int  `json:"quantity"`
	LastUsedRound *int `json:"lastUsedRound,omitempty"`
}

// OnCooldown reports whether an action last used at lastUsed with the
// given cooldown is still unavailable in round.
func OnCooldown(lastUsed *int, cooldown, round int) bool {
	if lastUsed == nil || cooldown <= 0 {
		return false
	}
	return round-*lastUsed < cooldown
}
