package effect

import (
	"cmp"
	"slices"
)

// Compare orders effects by resolution precedence, then by creation round,
// then by id, so the order does not depend on the input order.
func Compare(a, b Tag) int {
	if ra, rb := Rank(a.Kind()), Rank(b.Kind()); ra != rb {
		return ra - rb
	}
	if c := cmp.Compare(a.Common().CreatedRound, b.Common().CreatedRound); c != 0 {
		return c
	}
	return cmp.Compare(a.Common().ID, b.Common().ID)
}

// Sort orders ts in place by resolution precedence.
func Sort(ts []Tag) {
	slices.SortStableFunc(ts, Compare)
}

// Side identifies which team a combatant belongs to for friendly-fire
// purposes.
type Side struct {
	ID           string
	ControllerID string
	VillageID    string
}

// Friendly reports whether target is on the creator's side. With several
// villages in battle alignment is by village; otherwise by controller.
func Friendly(t Tag, target Side, multiVillage bool) bool {
	b := t.Common()
	if multiVillage {
		return target.VillageID == b.VillageID
	}
	return target.ControllerID == b.CreatorID
}

// FriendlyFireAllowed reports whether t may land on target under its
// friendly-fire policy.
func FriendlyFireAllowed(t Tag, target Side, multiVillage bool) bool {
	switch t.Common().FriendlyFire {
	case FireFriendly:
		return Friendly(t, target, multiVillage)
	case FireEnemies:
		return !Friendly(t, target, multiVillage)
	default:
		return true
	}
}

// IsBuff reports whether t is a lingering defensive effect.
func IsBuff(t Tag) bool {
	return t.Common().Direction == Defence && !IsInstant(t.Kind())
}

// IsDebuff reports whether t is a lingering offensive effect. Instant
// damage and healing are not debuffs.
func IsDebuff(t Tag) bool {
	return t.Common().Direction != Defence && !IsInstant(t.Kind())
}
