package effect

import (
	"maps"
	"reflect"
	"slices"

	"github.com/google/uuid"

	"github.com/udisondev/hexbattle/internal/game/stat"
)

// Snapshot is the part of a combatant an effect carries with it: identity
// and the stats formula effects scale with at creation time.
type Snapshot struct {
	ID             string     `json:"id"`
	ControllerID   string     `json:"controllerId,omitempty"`
	VillageID      string     `json:"villageId,omitempty"`
	Level          int        `json:"level"`
	Experience     float64    `json:"experience"`
	Stats          stat.Block `json:"stats"`
	HighestOffence stat.Name  `json:"highestOffence,omitempty"`
	HighestDefence stat.Name  `json:"highestDefence,omitempty"`
}

// Stamp carries the battle context of a realization.
type Stamp struct {
	Level      int
	Round      int
	Origin     Origin
	ActionID   string
	ActionName string
	// BarrierAbsorb is the compounded barrier absorption on the path.
	BarrierAbsorb float64
}

// Realize instantiates a template into a live effect bound to creator and,
// if given, to target. The template is deep-copied and never mutated.
func Realize(tmpl Tag, creator Snapshot, target *Snapshot, st Stamp) Tag {
	t := Duplicate(tmpl)
	b := t.Common()

	b.ID = uuid.NewString()
	b.CreatorID = creator.ID
	b.VillageID = creator.VillageID
	b.Level = st.Level
	c := creator
	b.Creator = &c
	b.IsNew = true
	b.CastThisRound = true
	b.CreatedRound = st.Round
	b.LastApplied = map[string]int{}
	b.FromType = st.Origin
	b.ActionID = st.ActionID
	b.ActionName = st.ActionName
	b.BarrierAbsorb = st.BarrierAbsorb
	b.TargetType = ""
	b.TargetID = ""

	if target != nil {
		tt := *target
		b.TargetStats = &tt
		b.TargetType = TargetUser
		b.TargetID = target.ID
	}
	return t
}

// Duplicate deep-copies an effect. Reference fields are copied so the
// result shares nothing with t.
func Duplicate(t Tag) Tag {
	if t == nil {
		return nil
	}
	// Every variant is a pointer to a struct; copy the struct it points to.
	src := reflect.ValueOf(t).Elem()
	cp := reflect.New(src.Type())
	cp.Elem().Set(src)
	out := cp.Interface().(Tag)

	out.Common().detach()
	if s, ok := out.(Scaled); ok {
		s.Scales().detach()
	}
	if p, ok := out.(pooled); ok {
		p.pools().detach()
	}
	return out
}

func (b *Base) detach() {
	if b.Rounds != nil {
		n := *b.Rounds
		b.Rounds = &n
	}
	b.LastApplied = maps.Clone(b.LastApplied)
	if b.Creator != nil {
		c := *b.Creator
		b.Creator = &c
	}
	if b.TargetStats != nil {
		ts := *b.TargetStats
		b.TargetStats = &ts
	}
}

func (s *Scaling) detach() {
	s.StatTypes = slices.Clone(s.StatTypes)
	s.GeneralTypes = slices.Clone(s.GeneralTypes)
	s.Elements = slices.Clone(s.Elements)
}

type pooled interface {
	pools() *Pools
}

func (p *Pools) pools() *Pools { return p }

func (p *Pools) detach() {
	p.PoolsAffected = slices.Clone(p.PoolsAffected)
}

// DeriveID returns a stable id derived from parts, used for effects and
// combatants spawned during resolution so that replaying a pass with the
// same seed yields the same ids.
func DeriveID(parts ...string) string {
	var key []byte
	for i, p := range parts {
		if i > 0 {
			key = append(key, '/')
		}
		key = append(key, p...)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, key).String()
}
