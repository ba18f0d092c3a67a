package combat

import (
	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/model"
)

// roll succeeds with probability power/100.
func (p *pass) roll(t effect.Tag) bool {
	return p.opts.Rand.Float64() < effect.Power(t)/100
}

// prevented reports whether an active prevent effect on the target blocks
// the kind. Each (target, kind) pair is rolled at most once per pass. A
// successful prevent locks its power at 100; a prevent failing on its first
// round ends.
func (p *pass) prevented(targetID string, blocked effect.Kind) bool {
	key := preventKey{target: targetID, blocked: blocked}
	if v, ok := p.prevents[key]; ok {
		return v
	}
	result := false
	for _, t := range p.list {
		pr, ok := t.(*effect.Prevent)
		if !ok || pr.Blocks != blocked || pr.TargetID != targetID {
			continue
		}
		if pr.ActiveFrom > p.round || p.zeroed[pr.ID] || !pr.Active() {
			continue
		}
		if p.roll(pr) {
			pr.Power, pr.PowerPerLevel = 100, 0
			result = true
			break
		}
		if pr.IsNew {
			p.zero(pr)
		}
	}
	p.prevents[key] = result
	return result
}

// blockedNew neutralizes a freshly cast buff or debuff landing on a target
// protected against that class of effects.
func (p *pass) blockedNew(u effect.Tag, targetName, targetID string) bool {
	switch u.Kind() {
	case effect.KindBuffPrevent, effect.KindDebuffPrevent:
		return false
	}
	var class effect.Kind
	switch {
	case effect.IsBuff(u):
		class = effect.KindBuff
	case effect.IsDebuff(u):
		class = effect.KindDebuff
	default:
		return false
	}
	if !p.prevented(targetID, class) {
		return false
	}
	p.zero(u)
	p.say(model.ColorBlue, "%s is protected from %s", targetName, describeSource(u))
	return true
}

func describeSource(u effect.Tag) string {
	if name := u.Common().ActionName; name != "" {
		return name
	}
	return string(u.Kind())
}
