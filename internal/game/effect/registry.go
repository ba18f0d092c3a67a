package effect

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// registry maps a kind name to a factory returning an empty variant.
var registry = map[Kind]func() Tag{}

// RegisterKind registers a factory for a kind name.
func RegisterKind(k Kind, factory func() Tag) {
	registry[k] = factory
}

// New returns an empty effect of kind k, or an Unknown carrying k.
func New(k Kind) Tag {
	if f, ok := registry[k]; ok {
		return f()
	}
	return &Unknown{Type: string(k)}
}

// Known reports whether k is in the catalog.
func Known(k Kind) bool {
	_, ok := registry[k]
	return ok
}

func init() {
	RegisterKind(KindDamage, func() Tag { return &Damage{} })
	RegisterKind(KindPierce, func() Tag { return &Pierce{} })
	RegisterKind(KindHeal, func() Tag { return &Heal{} })
	RegisterKind(KindMove, func() Tag { return &Move{} })
	RegisterKind(KindFlee, func() Tag { return &Flee{} })
	RegisterKind(KindStun, func() Tag { return &Stun{} })
	RegisterKind(KindSeal, func() Tag { return &Seal{} })
	RegisterKind(KindOneHitKill, func() Tag { return &OneHitKill{} })
	RegisterKind(KindRob, func() Tag { return &Rob{} })

	RegisterKind(KindAbsorb, func() Tag { return &Absorb{} })
	RegisterKind(KindReflect, func() Tag { return &Reflect{} })
	RegisterKind(KindRecoil, func() Tag { return &Recoil{} })
	RegisterKind(KindLifesteal, func() Tag { return &Lifesteal{} })
	RegisterKind(KindDrain, func() Tag { return &Drain{} })
	RegisterKind(KindPoison, func() Tag { return &Poison{} })
	RegisterKind(KindWeakness, func() Tag { return &Weakness{} })

	RegisterKind(KindBarrier, func() Tag { return &Barrier{} })
	RegisterKind(KindShield, func() Tag { return &Shield{} })
	RegisterKind(KindClone, func() Tag { return &Clone{} })
	RegisterKind(KindSummon, func() Tag { return &Summon{} })
	RegisterKind(KindFinalStand, func() Tag { return &FinalStand{} })
	RegisterKind(KindStealth, func() Tag { return &Stealth{} })
	RegisterKind(KindCopy, func() Tag { return &Copy{} })
	RegisterKind(KindMirror, func() Tag { return &Mirror{} })

	RegisterKind(KindIncreaseStat, func() Tag { return &StatAdjust{} })
	RegisterKind(KindDecreaseStat, func() Tag { return &StatAdjust{Decrease: true} })
	RegisterKind(KindIncreasePoolCost, func() Tag { return &PoolCostAdjust{} })
	RegisterKind(KindDecreasePoolCost, func() Tag { return &PoolCostAdjust{Decrease: true} })
	RegisterKind(KindIncreaseDamageGiven, func() Tag { return &DamageGivenAdjust{} })
	RegisterKind(KindDecreaseDamageGiven, func() Tag { return &DamageGivenAdjust{Decrease: true} })
	RegisterKind(KindIncreaseDamageTaken, func() Tag { return &DamageTakenAdjust{} })
	RegisterKind(KindDecreaseDamageTaken, func() Tag { return &DamageTakenAdjust{Decrease: true} })
	RegisterKind(KindIncreaseHeal, func() Tag { return &HealAdjust{} })
	RegisterKind(KindDecreaseHeal, func() Tag { return &HealAdjust{Decrease: true} })

	for _, blocked := range []Kind{
		KindBuff, KindDebuff, KindClear, KindCleanse, KindFlee, KindMove,
		KindOneHitKill, KindRob, KindSeal, KindStun, KindSummon,
	} {
		RegisterKind(blocked+"prevent", func() Tag { return &Prevent{Blocks: blocked} })
	}

	RegisterKind(KindClear, func() Tag { return &Clear{} })
	RegisterKind(KindCleanse, func() Tag { return &Cleanse{} })
	RegisterKind(KindVisual, func() Tag { return &Visual{} })
}

// typeName returns the wire discriminator of t.
func typeName(t Tag) string {
	if u, ok := t.(*Unknown); ok {
		return u.Type
	}
	return string(t.Kind())
}

// Marshal encodes t with a "type" discriminator.
func Marshal(t Tag) ([]byte, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding %s effect: %w", t.Kind(), err)
	}
	head, err := json.Marshal(typeName(t))
	if err != nil {
		return nil, fmt.Errorf("encoding effect type: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(body) + len(head) + 10)
	buf.WriteString(`{"type":`)
	buf.Write(head)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes an effect from its JSON envelope. Unrecognised types
// decode to *Unknown.
func Unmarshal(data []byte) (Tag, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding effect type: %w", err)
	}
	t := New(Kind(head.Type))
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("decoding %s effect: %w", head.Type, err)
	}
	return t, nil
}

// Tags is a list of effects with a JSON encoding that preserves variants.
type Tags []Tag

// MarshalJSON implements json.Marshaler.
func (ts Tags) MarshalJSON() ([]byte, error) {
	if ts == nil {
		return []byte("[]"), nil
	}
	raw := make([]json.RawMessage, 0, len(ts))
	for _, t := range ts {
		data, err := Marshal(t)
		if err != nil {
			return nil, err
		}
		raw = append(raw, data)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Tags) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding effect list: %w", err)
	}
	out := make(Tags, 0, len(raw))
	for _, r := range raw {
		t, err := Unmarshal(r)
		if err != nil {
			return err
		}
		out = append(out, t)
	}
	*ts = out
	return nil
}

// Clone deep-copies every effect in the list.
func (ts Tags) Clone() Tags {
	if ts == nil {
		return nil
	}
	out := make(Tags, len(ts))
	for i, t := range ts {
		out[i] = Duplicate(t)
	}
	return out
}
