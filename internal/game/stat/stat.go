// Package stat defines combat stat names, schools, general attributes,
// elements and resource pools shared by combatants and effects.
package stat

// Name identifies one of the eight offence/defence stats.
type Name string

const (
	NinjutsuOffence  Name = "ninjutsuOffence"
	NinjutsuDefence  Name = "ninjutsuDefence"
	GenjutsuOffence  Name = "genjutsuOffence"
	GenjutsuDefence  Name = "genjutsuDefence"
	TaijutsuOffence  Name = "taijutsuOffence"
	TaijutsuDefence  Name = "taijutsuDefence"
	BukijutsuOffence Name = "bukijutsuOffence"
	BukijutsuDefence Name = "bukijutsuDefence"
)

// School is a damage school. Highest resolves to the holder's strongest school.
type School string

const (
	Ninjutsu  School = "Ninjutsu"
	Genjutsu  School = "Genjutsu"
	Taijutsu  School = "Taijutsu"
	Bukijutsu School = "Bukijutsu"
	Highest   School = "Highest"
)

// Schools lists the concrete schools in a fixed order.
var Schools = [4]School{Ninjutsu, Genjutsu, Taijutsu, Bukijutsu}

// General is one of the four general attributes.
type General string

const (
	Strength     General = "Strength"
	Intelligence General = "Intelligence"
	Willpower    General = "Willpower"
	Speed        General = "Speed"
)

// Generals lists the general attributes in a fixed order.
var Generals = [4]General{Strength, Intelligence, Willpower, Speed}

// Element is an elemental affinity tag carried by effects.
type Element string

// Pool is a resource pool.
type Pool string

const (
	Health  Pool = "Health"
	Chakra  Pool = "Chakra"
	Stamina Pool = "Stamina"
)

// Block holds the eight school stats and the four generals.
type Block struct {
	NinjutsuOffence  float64 `json:"ninjutsuOffence" yaml:"ninjutsu_offence"`
	NinjutsuDefence  float64 `json:"ninjutsuDefence" yaml:"ninjutsu_defence"`
	GenjutsuOffence  float64 `json:"genjutsuOffence" yaml:"genjutsu_offence"`
	GenjutsuDefence  float64 `json:"genjutsuDefence" yaml:"genjutsu_defence"`
	TaijutsuOffence  float64 `json:"taijutsuOffence" yaml:"taijutsu_offence"`
	TaijutsuDefence  float64 `json:"taijutsuDefence" yaml:"taijutsu_defence"`
	BukijutsuOffence float64 `json:"bukijutsuOffence" yaml:"bukijutsu_offence"`
	BukijutsuDefence float64 `json:"bukijutsuDefence" yaml:"bukijutsu_defence"`
	Strength         float64 `json:"strength" yaml:"strength"`
	Intelligence     float64 `json:"intelligence" yaml:"intelligence"`
	Willpower        float64 `json:"willpower" yaml:"willpower"`
	Speed            float64 `json:"speed" yaml:"speed"`
}

func (b *Block) ref(n Name) *float64 {
	switch n {
	case NinjutsuOffence:
		return &b.NinjutsuOffence
	case NinjutsuDefence:
		return &b.NinjutsuDefence
	case GenjutsuOffence:
		return &b.GenjutsuOffence
	case GenjutsuDefence:
		return &b.GenjutsuDefence
	case TaijutsuOffence:
		return &b.TaijutsuOffence
	case TaijutsuDefence:
		return &b.TaijutsuDefence
	case BukijutsuOffence:
		return &b.BukijutsuOffence
	case BukijutsuDefence:
		return &b.BukijutsuDefence
	}
	return nil
}

func (b *Block) generalRef(g General) *float64 {
	switch g {
	case Strength:
		return &b.Strength
	case Intelligence:
		return &b.Intelligence
	case Willpower:
		return &b.Willpower
	case Speed:
		return &b.Speed
	}
	return nil
}

// Get returns the value of a named stat, 0 for unknown names.
func (b Block) Get(n Name) float64 {
	if p := b.ref(n); p != nil {
		return *p
	}
	return 0
}

// Set assigns a named stat. Unknown names are ignored.
func (b *Block) Set(n Name, v float64) {
	if p := b.ref(n); p != nil {
		*p = v
	}
}

// GetGeneral returns the value of a general attribute.
func (b Block) GetGeneral(g General) float64 {
	if p := b.generalRef(g); p != nil {
		return *p
	}
	return 0
}

// SetGeneral assigns a general attribute.
func (b *Block) SetGeneral(g General, v float64) {
	if p := b.generalRef(g); p != nil {
		*p = v
	}
}

// Scale multiplies every stat and general by f.
func (b *Block) Scale(f float64) {
	for _, s := range Schools {
		b.Set(Of(s, true), b.Get(Of(s, true))*f)
		b.Set(Of(s, false), b.Get(Of(s, false))*f)
	}
	for _, g := range Generals {
		b.SetGeneral(g, b.GetGeneral(g)*f)
	}
}

// Of returns the offence or defence stat name of a concrete school.
func Of(s School, offence bool) Name {
	var prefix string
	switch s {
	case Ninjutsu:
		prefix = "ninjutsu"
	case Genjutsu:
		prefix = "genjutsu"
	case Taijutsu:
		prefix = "taijutsu"
	case Bukijutsu:
		prefix = "bukijutsu"
	default:
		return ""
	}
	if offence {
		return Name(prefix + "Offence")
	}
	return Name(prefix + "Defence")
}

// Highest returns the strongest offence (or defence) stat of the block.
// Ties resolve to the earlier school in Schools.
func (b Block) Highest(offence bool) Name {
	best := Of(Schools[0], offence)
	for _, s := range Schools[1:] {
		if n := Of(s, offence); b.Get(n) > b.Get(best) {
			best = n
		}
	}
	return best
}

// HighestGenerals returns the two strongest general attributes.
func (b Block) HighestGenerals() [2]General {
	first, second := Generals[0], Generals[1]
	if b.GetGeneral(second) > b.GetGeneral(first) {
		first, second = second, first
	}
	for _, g := range Generals[2:] {
		switch v := b.GetGeneral(g); {
		case v > b.GetGeneral(first):
			first, second = g, first
		case v > b.GetGeneral(second):
			second = g
		}
	}
	return [2]General{first, second}
}

// Resolve maps a school to a concrete stat name, following Highest to the
// given highest-stat name.
func Resolve(s School, offence bool, highest Name) Name {
	if s == Highest {
		if offence {
			return toOffence(highest)
		}
		return toDefence(highest)
	}
	return Of(s, offence)
}

func toOffence(n Name) Name {
	for _, s := range Schools {
		if Of(s, false) == n {
			return Of(s, true)
		}
	}
	return n
}

func toDefence(n Name) Name {
	for _, s := range Schools {
		if Of(s, true) == n {
			return Of(s, false)
		}
	}
	return n
}
