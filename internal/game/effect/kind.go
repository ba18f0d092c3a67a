package effect

// Kind names an effect variant. The catalog is closed: every Kind has a
// Go type registered in registry.go.
type Kind string

const (
	KindDamage     Kind = "damage"
	KindPierce     Kind = "pierce"
	KindHeal       Kind = "heal"
	KindMove       Kind = "move"
	KindFlee       Kind = "flee"
	KindStun       Kind = "stun"
	KindSeal       Kind = "seal"
	KindRob        Kind = "rob"
	KindOneHitKill Kind = "onehitkill"

	KindAbsorb    Kind = "absorb"
	KindReflect   Kind = "reflect"
	KindRecoil    Kind = "recoil"
	KindLifesteal Kind = "lifesteal"
	KindDrain     Kind = "drain"
	KindPoison    Kind = "poison"
	KindWeakness  Kind = "weakness"

	KindBarrier    Kind = "barrier"
	KindShield     Kind = "shield"
	KindClone      Kind = "clone"
	KindSummon     Kind = "summon"
	KindFinalStand Kind = "finalstand"
	KindStealth    Kind = "stealth"
	KindCopy       Kind = "copy"
	KindMirror     Kind = "mirror"

	KindIncreaseStat        Kind = "increasestat"
	KindDecreaseStat        Kind = "decreasestat"
	KindIncreasePoolCost    Kind = "increasepoolcost"
	KindDecreasePoolCost    Kind = "decreasepoolcost"
	KindIncreaseDamageGiven Kind = "increasedamagegiven"
	KindDecreaseDamageGiven Kind = "decreasedamagegiven"
	KindIncreaseDamageTaken Kind = "increasedamagetaken"
	KindDecreaseDamageTaken Kind = "decreasedamagetaken"
	KindIncreaseHeal        Kind = "increaseheal"
	KindDecreaseHeal        Kind = "decreaseheal"

	KindBuffPrevent       Kind = "buffprevent"
	KindDebuffPrevent     Kind = "debuffprevent"
	KindClearPrevent      Kind = "clearprevent"
	KindCleansePrevent    Kind = "cleanseprevent"
	KindFleePrevent       Kind = "fleeprevent"
	KindMovePrevent       Kind = "moveprevent"
	KindOneHitKillPrevent Kind = "onehitkillprevent"
	KindRobPrevent        Kind = "robprevent"
	KindSealPrevent       Kind = "sealprevent"
	KindStunPrevent       Kind = "stunprevent"
	KindSummonPrevent     Kind = "summonprevent"

	KindClear   Kind = "clear"
	KindCleanse Kind = "cleanse"
	KindVisual  Kind = "visual"
	KindUnknown Kind = "unknown"
)

// Pseudo-kinds blocked by buffprevent / debuffprevent.
const (
	KindBuff   Kind = "buff"
	KindDebuff Kind = "debuff"
)

// precedence is the resolution order within a pass. Earlier resolves first.
// Kinds not listed sort after everything else.
var precedence = []Kind{
	KindStealth, KindCopy, KindMirror,

	KindBuffPrevent, KindDebuffPrevent, KindClearPrevent, KindCleansePrevent,
	KindFleePrevent, KindMovePrevent, KindOneHitKillPrevent, KindRobPrevent,
	KindSealPrevent, KindStunPrevent, KindSummonPrevent,

	KindCleanse, KindClear,
	KindIncreasePoolCost, KindDecreasePoolCost,
	KindIncreaseStat, KindDecreaseStat,

	KindBarrier, KindShield, KindFinalStand, KindClone, KindDamage, KindFlee,
	KindHeal, KindOneHitKill, KindRob, KindSeal, KindStun, KindSummon,

	KindIncreaseDamageGiven, KindDecreaseDamageGiven,
	KindIncreaseDamageTaken, KindDecreaseDamageTaken, KindWeakness,

	KindPierce,

	KindLifesteal, KindDrain, KindPoison, KindAbsorb, KindRecoil, KindReflect,
	KindIncreaseHeal, KindDecreaseHeal,

	KindMove, KindVisual,
}

var rank = func() map[Kind]int {
	m := make(map[Kind]int, len(precedence))
	for i, k := range precedence {
		m[k] = i
	}
	return m
}()

// Rank returns the position of k in the resolution order.
func Rank(k Kind) int {
	if r, ok := rank[k]; ok {
		return r
	}
	return len(precedence)
}

// alwaysApply kinds resolve once per pass regardless of the per-target
// last-applied round.
var alwaysApply = map[Kind]bool{
	KindBuffPrevent:         true,
	KindDebuffPrevent:       true,
	KindIncreasePoolCost:    true,
	KindDecreasePoolCost:    true,
	KindIncreaseStat:        true,
	KindDecreaseStat:        true,
	KindIncreaseDamageGiven: true,
	KindDecreaseDamageGiven: true,
	KindIncreaseDamageTaken: true,
	KindDecreaseDamageTaken: true,
	KindIncreaseHeal:        true,
	KindDecreaseHeal:        true,
	KindAbsorb:              true,
	KindLifesteal:           true,
	KindRecoil:              true,
	KindReflect:             true,
	KindPoison:              true,
	KindStealth:             true,
	KindWeakness:            true,
	KindShield:              true,
	KindMovePrevent:         true,
	KindSealPrevent:         true,
	KindStunPrevent:         true,
	KindSummonPrevent:       true,
	KindFleePrevent:         true,
	KindRobPrevent:          true,
}

// AlwaysApplies reports whether k bypasses once-per-round throttling.
func AlwaysApplies(k Kind) bool {
	return alwaysApply[k]
}

// IsDamageClass reports whether k strikes barriers instead of being blocked
// by them.
func IsDamageClass(k Kind) bool {
	return k == KindDamage || k == KindPierce
}

// IsInstant reports whether a ground effect of kind k applies to an
// occupant in the same pass it is converted.
func IsInstant(k Kind) bool {
	return k == KindDamage || k == KindPierce || k == KindHeal
}

// IsGroundOnly reports whether k only makes sense anchored to a tile.
func IsGroundOnly(k Kind) bool {
	switch k {
	case KindBarrier, KindClone, KindSummon, KindMove, KindVisual:
		return true
	}
	return false
}

// IsOneShot reports whether an effect of kind k without a duration is
// consumed by the pass that applies it rather than lasting forever.
func IsOneShot(k Kind) bool {
	switch k {
	case KindDamage, KindPierce, KindHeal, KindFlee, KindOneHitKill, KindRob,
		KindClear, KindCleanse, KindCopy, KindMove:
		return true
	}
	return false
}
