// Package effect defines the closed catalog of combat effects ("tags"),
// their JSON envelope, realization into live instances and the precedence
// order used by the round resolution engine.
package effect

import "github.com/udisondev/hexbattle/internal/game/stat"

// Calculation selects how an effect's power is interpreted.
type Calculation string

const (
	Static     Calculation = "static"
	Percentage Calculation = "percentage"
	Formula    Calculation = "formula"
)

// Direction marks an effect as offensive (debuff) or defensive (buff).
type Direction string

const (
	Offence Direction = "offence"
	Defence Direction = "defence"
)

// FriendlyFire restricts which relationship an effect may land on.
type FriendlyFire string

const (
	FireAll      FriendlyFire = "ALL"
	FireFriendly FriendlyFire = "FRIENDLY"
	FireEnemies  FriendlyFire = "ENEMIES"
)

// TargetOverride redirects a user effect to the caster.
type TargetOverride string

const (
	TargetInherit TargetOverride = "INHERIT"
	TargetSelf    TargetOverride = "SELF"
)

// TargetType says whether a realized effect is bound to a combatant or a
// barrier. Ground effects leave it empty.
type TargetType string

const (
	TargetUser    TargetType = "user"
	TargetBarrier TargetType = "barrier"
)

// Origin is the kind of action that produced an effect.
type Origin string

const (
	FromBasic     Origin = "basic"
	FromJutsu     Origin = "jutsu"
	FromItem      Origin = "item"
	FromBloodline Origin = "bloodline"
)

// Tag is one effect variant. It is sealed: only types in this package
// implement it.
type Tag interface {
	Kind() Kind
	Common() *Base
	sealed()
}

// Base holds the attributes shared by every variant, plus the fields
// stamped on realization.
type Base struct {
	Power         float64        `json:"power"`
	PowerPerLevel float64        `json:"powerPerLevel,omitempty"`
	Calculation   Calculation    `json:"calculation,omitempty"`
	Rounds        *int           `json:"rounds,omitempty"`
	Direction     Direction      `json:"direction,omitempty"`
	Target        TargetOverride `json:"target,omitempty"`
	FriendlyFire  FriendlyFire   `json:"friendlyFire,omitempty"`
	Description   string         `json:"description,omitempty"`

	AppearAnimation    string `json:"appearAnimation,omitempty"`
	DisappearAnimation string `json:"disappearAnimation,omitempty"`
	StaticAnimation    string `json:"staticAnimation,omitempty"`
	StaticAssetPath    string `json:"staticAssetPath,omitempty"`

	// LastApplied maps target id to the battle round the effect last
	// applied to that target.
	LastApplied map[string]int `json:"lastApplied,omitempty"`

	ID            string    `json:"id,omitempty"`
	CreatorID     string    `json:"creatorId,omitempty"`
	VillageID     string    `json:"villageId,omitempty"`
	Level         int       `json:"level,omitempty"`
	Creator       *Snapshot `json:"creator,omitempty"`
	TargetStats   *Snapshot `json:"targetStats,omitempty"`
	IsNew         bool      `json:"isNew,omitempty"`
	CastThisRound bool      `json:"castThisRound,omitempty"`
	CreatedRound  int       `json:"createdRound"`
	// ActiveFrom holds back resolution until the battle reaches this round.
	ActiveFrom int `json:"activeFrom,omitempty"`

	TargetType TargetType `json:"targetType,omitempty"`
	TargetID   string     `json:"targetId,omitempty"`
	Longitude  int        `json:"longitude"`
	Latitude   int        `json:"latitude"`
	FromGround bool       `json:"fromGround,omitempty"`
	FromType   Origin     `json:"fromType,omitempty"`
	ActionID   string     `json:"actionId,omitempty"`
	ActionName string     `json:"actionName,omitempty"`

	// BarrierAbsorb is the compounded fraction of damage soaked by barriers
	// between caster and target.
	BarrierAbsorb float64 `json:"barrierAbsorb,omitempty"`
	// BarrierShare is the fraction of the raw hit a barrier-targeted copy
	// deals to its barrier.
	BarrierShare float64 `json:"barrierShare,omitempty"`
}

// Common returns the shared attributes.
func (b *Base) Common() *Base { return b }

func (b *Base) sealed() {}

// RoundsLeft returns the remaining duration and whether one is set.
func (b *Base) RoundsLeft() (int, bool) {
	if b.Rounds == nil {
		return 0, false
	}
	return *b.Rounds, true
}

// SetRounds sets the remaining duration.
func (b *Base) SetRounds(n int) {
	b.Rounds = &n
}

// Active reports whether the effect has duration left. Effects without a
// duration are permanent until removed.
func (b *Base) Active() bool {
	return b.Rounds == nil || *b.Rounds > 0
}

// Scaling lists the stats, generals and elements an effect scales with.
type Scaling struct {
	StatTypes    []stat.School  `json:"statTypes,omitempty"`
	GeneralTypes []stat.General `json:"generalTypes,omitempty"`
	Elements     []stat.Element `json:"elements,omitempty"`
}

// Scales returns the scaling lists.
func (s *Scaling) Scales() *Scaling { return s }

// Scaled is implemented by variants that carry Scaling.
type Scaled interface {
	Tag
	Scales() *Scaling
}

// Pools lists the resource pools an effect touches.
type Pools struct {
	PoolsAffected []stat.Pool `json:"poolsAffected,omitempty"`
}

// Affected returns the pools, defaulting to Health.
func (p *Pools) Affected() []stat.Pool {
	if len(p.PoolsAffected) == 0 {
		return []stat.Pool{stat.Health}
	}
	return p.PoolsAffected
}

type (
	// Damage deals damage to the target.
	Damage struct {
		Base
		Scaling
	}
	// Pierce deals damage that ignores barriers on the path.
	Pierce struct {
		Base
		Scaling
	}
	// Heal restores the target's pools.
	Heal struct {
		Base
		Pools
	}
	// Move relocates the caster to the effect's tile.
	Move struct{ Base }
	// Flee removes the target from battle with a chance.
	Flee struct{ Base }
	// Stun stops the target from acting.
	Stun struct{ Base }
	// Seal disables the target's bloodline effects.
	Seal struct{ Base }
	// OneHitKill sets the target's health to zero with a chance.
	OneHitKill struct{ Base }
	// Rob transfers money from the target to the caster.
	Rob struct {
		Base
		Scaling
	}

	// Absorb converts part of the damage taken into pool restoration.
	Absorb struct {
		Base
		Scaling
		Pools
	}
	// Reflect sends part of the damage taken back to the attacker.
	Reflect struct {
		Base
		Scaling
	}
	// Recoil hurts the holder for part of the damage it deals.
	Recoil struct {
		Base
		Scaling
	}
	// Lifesteal heals the holder for part of the damage it deals.
	Lifesteal struct {
		Base
		Scaling
	}
	// Drain burns the holder's secondary pools when it takes damage.
	Drain struct {
		Base
		Scaling
		Pools
	}
	// Poison adds residual damage whenever the holder takes damage.
	Poison struct {
		Base
		Scaling
	}
	// Weakness increases damage taken from matching stats or elements.
	Weakness struct {
		Base
		Scaling
	}

	// Barrier is a destructible tile obstacle. Power is its remaining health.
	Barrier struct {
		Base
		Scaling
		// AbsorbPercentage is the share of passing damage the barrier soaks.
		// Zero means it soaks everything.
		AbsorbPercentage float64 `json:"absorbPercentage,omitempty"`
		OriginalPower    float64 `json:"originalPower,omitempty"`
	}
	// Shield soaks incoming damage up to its power.
	Shield struct{ Base }
	// Clone spawns a scaled copy of the caster on the tile.
	Clone struct {
		Base
		Scaling
	}
	// Summon spawns a companion from a template on the tile.
	Summon struct {
		Base
		CompanionID string `json:"companionId,omitempty"`
	}
	// FinalStand keeps the holder at 1 health while active.
	FinalStand struct{ Base }
	// Stealth hides the holder; it cannot use damaging actions.
	Stealth struct{ Base }
	// Copy duplicates the target's buffs onto the caster.
	Copy struct{ Base }
	// Mirror turns debuffs on the holder back onto their creators.
	Mirror struct{ Base }

	// StatAdjust raises or lowers stats and generals.
	StatAdjust struct {
		Base
		Scaling
		Decrease bool `json:"-"`
	}
	// PoolCostAdjust raises or lowers action pool costs.
	PoolCostAdjust struct {
		Base
		Pools
		Decrease bool `json:"-"`
	}
	// DamageGivenAdjust scales damage dealt by the holder.
	DamageGivenAdjust struct {
		Base
		Scaling
		Decrease bool `json:"-"`
	}
	// DamageTakenAdjust scales damage received by the holder.
	DamageTakenAdjust struct {
		Base
		Scaling
		Decrease bool `json:"-"`
	}
	// HealAdjust scales healing given by the holder.
	HealAdjust struct {
		Base
		Scaling
		Decrease bool `json:"-"`
	}

	// Prevent blocks one kind of effect on the holder with a chance.
	Prevent struct {
		Base
		Blocks Kind `json:"-"`
	}

	// Clear removes the target's buffs.
	Clear struct{ Base }
	// Cleanse removes the target's debuffs.
	Cleanse struct{ Base }
	// Visual is a transient marker for clients.
	Visual struct{ Base }
	// Unknown preserves effects of a kind this build does not know.
	Unknown struct {
		Base
		Type string `json:"-"`
	}
)

func (*Damage) Kind() Kind     { return KindDamage }
func (*Pierce) Kind() Kind     { return KindPierce }
func (*Heal) Kind() Kind       { return KindHeal }
func (*Move) Kind() Kind       { return KindMove }
func (*Flee) Kind() Kind       { return KindFlee }
func (*Stun) Kind() Kind       { return KindStun }
func (*Seal) Kind() Kind       { return KindSeal }
func (*OneHitKill) Kind() Kind { return KindOneHitKill }
func (*Rob) Kind() Kind        { return KindRob }
func (*Absorb) Kind() Kind     { return KindAbsorb }
func (*Reflect) Kind() Kind    { return KindReflect }
func (*Recoil) Kind() Kind     { return KindRecoil }
func (*Lifesteal) Kind() Kind  { return KindLifesteal }
func (*Drain) Kind() Kind      { return KindDrain }
func (*Poison) Kind() Kind     { return KindPoison }
func (*Weakness) Kind() Kind   { return KindWeakness }
func (*Barrier) Kind() Kind    { return KindBarrier }
func (*Shield) Kind() Kind     { return KindShield }
func (*Clone) Kind() Kind      { return KindClone }
func (*Summon) Kind() Kind     { return KindSummon }
func (*FinalStand) Kind() Kind { return KindFinalStand }
func (*Stealth) Kind() Kind    { return KindStealth }
func (*Copy) Kind() Kind       { return KindCopy }
func (*Mirror) Kind() Kind     { return KindMirror }
func (*Clear) Kind() Kind      { return KindClear }
func (*Cleanse) Kind() Kind    { return KindCleanse }
func (*Visual) Kind() Kind     { return KindVisual }
func (*Unknown) Kind() Kind    { return KindUnknown }

func (t *StatAdjust) Kind() Kind {
	if t.Decrease {
		return KindDecreaseStat
	}
	return KindIncreaseStat
}

func (t *PoolCostAdjust) Kind() Kind {
	if t.Decrease {
		return KindDecreasePoolCost
	}
	return KindIncreasePoolCost
}

func (t *DamageGivenAdjust) Kind() Kind {
	if t.Decrease {
		return KindDecreaseDamageGiven
	}
	return KindIncreaseDamageGiven
}

func (t *DamageTakenAdjust) Kind() Kind {
	if t.Decrease {
		return KindDecreaseDamageTaken
	}
	return KindIncreaseDamageTaken
}

func (t *HealAdjust) Kind() Kind {
	if t.Decrease {
		return KindDecreaseHeal
	}
	return KindIncreaseHeal
}

func (t *Prevent) Kind() Kind {
	return t.Blocks + "prevent"
}

// Absorbs returns the fraction of passing damage the barrier soaks.
func (t *Barrier) Absorbs() float64 {
	if t.AbsorbPercentage <= 0 || t.AbsorbPercentage >= 100 {
		return 1
	}
	return t.AbsorbPercentage / 100
}

// Sign returns -1 for decreasing adjusters and 1 otherwise.
func Sign(t Tag) float64 {
	switch v := t.(type) {
	case *StatAdjust:
		return signOf(v.Decrease)
	case *PoolCostAdjust:
		return signOf(v.Decrease)
	case *DamageGivenAdjust:
		return signOf(v.Decrease)
	case *DamageTakenAdjust:
		return signOf(v.Decrease)
	case *HealAdjust:
		return signOf(v.Decrease)
	}
	return 1
}

func signOf(decrease bool) float64 {
	if decrease {
		return -1
	}
	return 1
}

// Power returns the leveled power of an effect.
func Power(t Tag) float64 {
	b := t.Common()
	return b.Power + float64(b.Level)*b.PowerPerLevel
}

// ScalingOf returns the scaling lists of t, or nil when it has none.
func ScalingOf(t Tag) *Scaling {
	if s, ok := t.(Scaled); ok {
		return s.Scales()
	}
	return nil
}

// Compatibility is the share of the attacking effect's stat, general and
// element tags matched by the modifier. Pierce always matches, and an
// untagged side matches fully.
func Compatibility(attack, modifier Tag) float64 {
	if attack.Kind() == KindPierce {
		return 1
	}
	a, m := ScalingOf(attack), ScalingOf(modifier)
	if a == nil || m == nil {
		return 1
	}
	total := len(a.StatTypes) + len(a.GeneralTypes) + len(a.Elements)
	if total == 0 || len(m.StatTypes)+len(m.GeneralTypes)+len(m.Elements) == 0 {
		return 1
	}
	matched := countIn(a.StatTypes, m.StatTypes) +
		countIn(a.GeneralTypes, m.GeneralTypes) +
		countIn(a.Elements, m.Elements)
	return float64(matched) / float64(total)
}

func countIn[T comparable](items, set []T) int {
	n := 0
	for _, it := range items {
		for _, s := range set {
			if it == s {
				n++
				break
			}
		}
	}
	return n
}
