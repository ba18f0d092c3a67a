package combat

import (
	"math"

	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/game/stat"
)

// Formula holds the constants of the stat-driven damage formula.
type Formula struct {
	AtkScaling   float64 `yaml:"atk_scaling"`
	DefScaling   float64 `yaml:"def_scaling"`
	ExpScaling   float64 `yaml:"exp_scaling"`
	GenScaling   float64 `yaml:"gen_scaling"`
	DmgBase      float64 `yaml:"dmg_base"`
	DmgScaling   float64 `yaml:"dmg_scaling"`
	PowerScaling float64 `yaml:"power_scaling"`
}

// DefaultFormula returns the standard balance constants.
func DefaultFormula() Formula {
	return Formula{
		AtkScaling:   0.5,
		DefScaling:   0.4,
		ExpScaling:   0.3,
		GenScaling:   0.5,
		DmgBase:      20,
		DmgScaling:   0.2,
		PowerScaling: 0.05,
	}
}

// fighter is the stat view the formula reads on either side of a hit.
type fighter struct {
	stats          stat.Block
	highestOffence stat.Name
	highestDefence stat.Name
	experience     float64
}

func fighterOf(s effect.Snapshot) fighter {
	return fighter{
		stats:          s.Stats,
		highestOffence: s.HighestOffence,
		highestDefence: s.HighestDefence,
		experience:     s.Experience,
	}
}

func (f Formula) term(atk, def, exp float64) float64 {
	return f.DmgBase + math.Pow(max(atk, 0), f.AtkScaling)/math.Pow(max(def, 1), f.DefScaling)*math.Pow(max(exp, 0), f.ExpScaling)
}

// Damage returns the damage of one application. Static effects deal their
// power and percentage effects a share of the target's maximum health.
// Formula effects average one term per matching school and general; with
// nothing to scale on they fall back to their power.
func (f Formula) Damage(t effect.Tag, atk, def fighter, targetMaxHealth float64) float64 {
	power := effect.Power(t)
	switch t.Common().Calculation {
	case effect.Static:
		return power
	case effect.Percentage:
		return targetMaxHealth * power / 100
	}

	sc := effect.ScalingOf(t)
	if sc == nil {
		return power
	}
	exp := (atk.experience + def.experience) / 2
	var terms []float64
	for _, s := range sc.StatTypes {
		a := atk.stats.Get(stat.Resolve(s, true, atk.highestOffence))
		d := def.stats.Get(stat.Resolve(s, false, def.highestDefence))
		terms = append(terms, f.term(a, d, exp))
	}
	for _, g := range sc.GeneralTypes {
		terms = append(terms, f.GenScaling*f.term(atk.stats.GetGeneral(g), def.stats.GetGeneral(g), exp))
	}

	var sum float64
	for _, v := range terms {
		sum += v
	}
	if sum <= 0 {
		return power
	}
	mean := sum / float64(len(terms))
	return (1+power*f.PowerScaling)*mean*f.DmgScaling + f.DmgBase
}
