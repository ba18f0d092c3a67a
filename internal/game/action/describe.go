package action

import (
	"fmt"
	"strings"

	"github.com/udisondev/hexbattle/internal/model"
)

// pronouns holds subject, object, possessive and reflexive forms.
type pronouns [4]string

var (
	male   = pronouns{"he", "him", "his", "himself"}
	female = pronouns{"she", "her", "hers", "herself"}
	other  = pronouns{"they", "them", "their", "themselves"}
	thing  = pronouns{"it", "it", "its", "itself"}
	plural = pronouns{"they", "them", "theirs", "themselves"}
)

func pronounsOf(g model.Gender) pronouns {
	switch g {
	case model.Male:
		return male
	case model.Female:
		return female
	case "it":
		return thing
	}
	return other
}

// named is one distinct target mentioned in a description.
type named struct {
	name   string
	gender model.Gender
}

// describe fills the placeholders of a battle description.
func describe(tmpl string, a model.Action, actor *model.Combatant, targets []named, col, row int) string {
	if tmpl == "" {
		tmpl = "%user uses " + a.Name
	}
	up := pronounsOf(actor.Gender)
	pairs := []string{
		"%user_subject", up[0],
		"%user_object", up[1],
		"%user_posessive", up[2],
		"%user_reflexive", up[3],
		"%user", actor.Name,
		"%location", fmt.Sprintf("[%d, %d]", row, col),
	}

	if len(targets) > 0 {
		names := make([]string, 0, len(targets))
		genders := make(map[model.Gender]bool)
		for _, t := range targets {
			names = append(names, t.name)
			genders[t.gender] = true
		}
		tp := plural
		if len(genders) == 1 {
			for g := range genders {
				tp = pronounsOf(g)
			}
		}
		pairs = append(pairs,
			"%target_subject", tp[0],
			"%target_object", tp[1],
			"%target_posessive", tp[2],
			"%target_reflexive", tp[3],
			"%target", strings.Join(names, ", "),
		)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
