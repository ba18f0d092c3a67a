package combat

import (
	"fmt"

	"github.com/udisondev/hexbattle/internal/game/effect"
	"github.com/udisondev/hexbattle/internal/game/stat"
	"github.com/udisondev/hexbattle/internal/model"
)

// userPass resolves user effects, including ground conversions landed in
// this pass, in precedence order.
func (p *pass) userPass() {
	list := make(effect.Tags, 0, len(p.b.UserEffects)+len(p.pending))
	list = append(list, p.b.UserEffects...)
	list = append(list, p.pending...)
	effect.Sort(list)
	p.list = list

	for _, u := range list {
		s, ok := u.(*effect.Seal)
		if ok && s.Active() && !s.IsNew && s.ActiveFrom <= p.round && !p.zeroed[s.ID] {
			p.sealed[s.TargetID] = true
		}
	}

	for _, u := range list {
		c := u.Common()
		if c.ActiveFrom > p.round {
			p.user = append(p.user, u)
			continue
		}
		if p.zeroed[c.ID] {
			continue
		}
		c.CastThisRound = c.CreatedRound == p.round
		p.resolve(u)
		c.IsNew = false
		p.user = append(p.user, u)
	}
}

func (p *pass) resolve(u effect.Tag) {
	c := u.Common()
	if c.TargetType == effect.TargetBarrier {
		if effect.IsDamageClass(u.Kind()) {
			p.hitBarrier(u)
		} else {
			p.zero(u)
		}
		return
	}

	target := p.b.Find(c.TargetID)
	if target == nil || !target.Alive() {
		p.zero(u)
		return
	}
	if !c.FromGround {
		if creator := p.b.Find(c.CreatorID); creator == nil || !creator.Alive() {
			return
		}
	}
	if c.FromType == effect.FromBloodline && p.sealed[target.ID] {
		return
	}
	if c.IsNew && p.blockedNew(u, target.Name, target.ID) {
		return
	}
	if !p.applies(u, target.ID) {
		return
	}
	if c.IsNew && c.AppearAnimation != "" {
		p.visual(target.Hex(), c.AppearAnimation, c.ID, "appear")
	}
	target.NoteStats(effect.ScalingOf(u), c.Direction == effect.Defence)
	p.handle(u, target)
}

func (p *pass) handle(u effect.Tag, target *model.Combatant) {
	switch v := u.(type) {
	case *effect.Damage, *effect.Pierce:
		p.damage(u, target)
	case *effect.Heal:
		p.heal(v, target)
	case *effect.Flee:
		p.flee(v, target)
	case *effect.Stun:
		p.control(v, target, effect.KindStun, "is stunned", "stunned")
	case *effect.Seal:
		p.control(v, target, effect.KindSeal, "has a sealed bloodline", "sealed")
	case *effect.OneHitKill:
		p.oneHitKill(v, target)
	case *effect.Rob:
		p.rob(v, target)
	case *effect.Clear:
		p.strip(v, target, effect.KindClear, effect.IsBuff, "buffs")
	case *effect.Cleanse:
		p.strip(v, target, effect.KindCleanse, effect.IsDebuff, "debuffs")
	case *effect.Copy:
		p.copyBuffs(v, target)
	case *effect.Mirror:
		p.mirror(v, target)
	case *effect.Prevent:
		p.prevented(target.ID, v.Blocks)
		p.info(v, target, fmt.Sprintf("is protected against %s", v.Blocks))
	case *effect.StatAdjust:
		p.adjustStats(v, target)
	case *effect.Shield:
		if v.IsNew {
			v.Power, v.PowerPerLevel = effect.Power(v), 0
		}
		p.info(v, target, "is shielded")
	case *effect.FinalStand:
		p.info(v, target, "cannot fall")
	case *effect.Stealth:
		p.info(v, target, "is hidden")
	case *effect.PoolCostAdjust:
		p.info(v, target, "has altered action costs")

	case *effect.DamageGivenAdjust:
		if p.settled(v, target, "deals altered damage") {
			p.each(func(cs *Consequence) {
				if cs.ActorID == target.ID {
					cs.Damage = max(0, cs.Damage+adjusted(v, cs.Damage)*effect.Compatibility(cs.Attack, v))
				}
			})
		}
	case *effect.DamageTakenAdjust:
		if p.settled(v, target, "takes altered damage") {
			p.each(func(cs *Consequence) {
				if cs.TargetID == target.ID {
					cs.Damage = max(0, cs.Damage+adjusted(v, cs.Damage)*effect.Compatibility(cs.Attack, v))
				}
			})
		}
	case *effect.Weakness:
		if p.settled(v, target, "is weakened") {
			p.each(func(cs *Consequence) {
				if cs.TargetID == target.ID {
					cs.Damage += adjusted(v, cs.Damage) * effect.Compatibility(cs.Attack, v)
				}
			})
		}
	case *effect.HealAdjust:
		if p.settled(v, target, "heals differently") {
			for _, id := range p.order {
				cs := p.cons[id]
				if cs.ActorID != target.ID {
					continue
				}
				ratio := effect.Compatibility(cs.Attack, v)
				for pl, h := range cs.Heal {
					cs.Heal[pl] = max(0, h+adjusted(v, h)*ratio)
				}
			}
		}
	case *effect.Absorb:
		if p.settled(v, target, "absorbs damage") {
			p.each(func(cs *Consequence) {
				if cs.TargetID != target.ID {
					return
				}
				limit := max(0, p.opts.AbsorbCap*cs.Raw-cs.absorbed)
				a := min(share(v, cs.Damage)*effect.Compatibility(cs.Attack, v), cs.Damage, limit)
				if a <= 0 {
					return
				}
				cs.Damage -= a
				cs.absorbed += a
				splitPools(v.Affected(), a, cs.Absorb)
			})
		}
	case *effect.Reflect:
		if p.settled(v, target, "reflects damage") {
			p.each(func(cs *Consequence) {
				if cs.TargetID == target.ID {
					r := min(share(v, cs.Damage)*effect.Compatibility(cs.Attack, v), cs.Damage)
					cs.Damage -= r
					cs.Reflect += r
				}
			})
		}
	case *effect.Recoil:
		if p.settled(v, target, "suffers recoil") {
			p.each(func(cs *Consequence) {
				if cs.ActorID == target.ID {
					cs.Recoil += share(v, cs.Damage) * effect.Compatibility(cs.Attack, v)
				}
			})
		}
	case *effect.Lifesteal:
		if p.settled(v, target, "steals life") {
			p.each(func(cs *Consequence) {
				if cs.ActorID == target.ID {
					cs.Lifesteal += share(v, cs.Damage) * effect.Compatibility(cs.Attack, v)
				}
			})
		}
	case *effect.Drain:
		if p.settled(v, target, "is drained") {
			pools := v.PoolsAffected
			if len(pools) == 0 {
				pools = []stat.Pool{stat.Chakra, stat.Stamina}
			}
			p.each(func(cs *Consequence) {
				if cs.TargetID == target.ID {
					splitPools(pools, share(v, cs.Damage)*effect.Compatibility(cs.Attack, v), cs.Drain)
				}
			})
		}
	case *effect.Poison:
		if p.settled(v, target, "is poisoned") {
			p.each(func(cs *Consequence) {
				if cs.TargetID == target.ID {
					cs.Residual += share(v, cs.Damage) * effect.Compatibility(cs.Attack, v)
				}
			})
		}
	}
}

// settled reports whether a modifier may act: it does from the round after
// it was cast.
func (p *pass) settled(u effect.Tag, target *model.Combatant, state string) bool {
	c := u.Common()
	if c.IsNew || c.CastThisRound {
		p.info(u, target, state)
		return false
	}
	return true
}

// info announces a lasting effect on its first pass.
func (p *pass) info(u effect.Tag, target *model.Combatant, state string) {
	c := u.Common()
	if !c.IsNew {
		return
	}
	if n, ok := c.RoundsLeft(); ok && n > 0 {
		p.say(model.ColorBlue, "%s %s for the next %d rounds", target.Name, state, n)
	}
}

func combatantFighter(c *model.Combatant) fighter {
	return fighter{
		stats:          c.Block,
		highestOffence: c.HighestOffence,
		highestDefence: c.HighestDefence,
		experience:     c.Experience,
	}
}

// attacker returns the stats an effect hits with: the creator's current
// ones, or the snapshot taken at cast time for ground effects and departed
// creators.
func (p *pass) attacker(u effect.Tag) fighter {
	c := u.Common()
	if !c.FromGround {
		if cr := p.statsOf(c.CreatorID); cr != nil {
			return combatantFighter(cr)
		}
	}
	if c.Creator != nil {
		return fighterOf(*c.Creator)
	}
	return fighter{}
}

func (p *pass) damage(u effect.Tag, target *model.Combatant) {
	c := u.Common()
	dmg := p.opts.Formula.Damage(u, p.attacker(u), combatantFighter(p.statsOf(target.ID)), target.MaxHealth)
	if u.Kind() == effect.KindDamage {
		dmg *= 1 - c.BarrierAbsorb
	}
	cs := p.consequence(u, target.ID)
	cs.Damage += dmg
	cs.Raw += dmg
}

func (p *pass) heal(v *effect.Heal, target *model.Combatant) {
	cs := p.consequence(v, target.ID)
	power := effect.Power(v)
	for _, pl := range v.Affected() {
		amount := power
		if v.Calculation == effect.Percentage {
			_, limit := target.Pool(pl)
			amount = limit * power / 100
		}
		cs.Heal[pl] += amount
	}
}

func (p *pass) barrier(id string) *effect.Barrier {
	for _, g := range p.ground {
		if bar, ok := g.(*effect.Barrier); ok && bar.ID == id && !p.zeroed[id] {
			return bar
		}
	}
	return nil
}

func uniform(v float64) stat.Block {
	var b stat.Block
	for _, s := range stat.Schools {
		b.Set(stat.Of(s, true), v)
		b.Set(stat.Of(s, false), v)
	}
	for _, g := range stat.Generals {
		b.SetGeneral(g, v)
	}
	return b
}

// hitBarrier damages a barrier. Formula hits are computed against a stand-in
// whose stats all equal the barrier's remaining power.
func (p *pass) hitBarrier(u effect.Tag) {
	c := u.Common()
	bar := p.barrier(c.TargetID)
	if bar == nil {
		p.zero(u)
		return
	}
	if !p.applies(u, bar.ID) {
		return
	}
	atk := p.attacker(u)
	ward := fighter{stats: uniform(bar.Power), experience: atk.experience}
	dmg := p.opts.Formula.Damage(u, atk, ward, bar.Power)
	if c.BarrierShare > 0 {
		dmg *= c.BarrierShare
	}
	bar.Power -= dmg
	if bar.Power <= 0 {
		p.zero(bar)
		p.say(model.ColorRed, "Barrier takes %.2f damage and is destroyed.", dmg)
		return
	}
	p.say(model.ColorRed, "Barrier takes %.2f damage and has %.2f power left.", dmg, bar.Power)
}

// control resolves stun and seal on their first pass: the primary roll,
// then the target's prevent.
func (p *pass) control(u effect.Tag, target *model.Combatant, blocked effect.Kind, state, word string) {
	if !u.Common().IsNew {
		return
	}
	switch {
	case !p.roll(u):
		p.zero(u)
		p.say(model.ColorBlue, "%s manages not to be %s", target.Name, word)
	case p.prevented(target.ID, blocked):
		p.zero(u)
		p.say(model.ColorBlue, "%s resisted being %s", target.Name, word)
	default:
		p.info(u, target, state)
	}
}

func (p *pass) flee(v *effect.Flee, target *model.Combatant) {
	switch {
	case !p.roll(v):
		p.say(model.ColorBlue, "%s fails to flee", target.Name)
	case p.prevented(target.ID, effect.KindFlee):
		p.say(model.ColorBlue, "%s is prevented from fleeing", target.Name)
	default:
		target.FledBattle = true
		p.say(model.ColorBlue, "%s flees the battle", target.Name)
	}
}

func (p *pass) oneHitKill(v *effect.OneHitKill, target *model.Combatant) {
	switch {
	case !p.roll(v):
		p.say(model.ColorBlue, "%s survives %s", target.Name, describeSource(v))
	case p.prevented(target.ID, effect.KindOneHitKill):
		p.say(model.ColorBlue, "%s resisted being killed in one hit", target.Name)
	default:
		target.CurHealth = 0
		p.say(model.ColorRed, "%s is killed by %s", target.Name, describeSource(v))
	}
}

func (p *pass) rob(v *effect.Rob, target *model.Combatant) {
	thief := p.b.Find(v.CreatorID)
	if thief == nil || thief.ID == target.ID {
		return
	}
	if p.prevented(target.ID, effect.KindRob) {
		p.say(model.ColorBlue, "%s resisted being robbed", target.Name)
		return
	}
	power := effect.Power(v)
	var amount float64
	switch v.Calculation {
	case effect.Static:
		amount = power
	case effect.Percentage:
		amount = target.Money * power / 100
	default:
		ratio := 1.0
		atk, def := p.statsOf(thief.ID), p.statsOf(target.ID)
		for _, s := range v.StatTypes {
			ratio *= atk.StatFor(s, true) / max(def.StatFor(s, false), 1)
		}
		for _, g := range v.GeneralTypes {
			ratio *= atk.GetGeneral(g) / max(def.GetGeneral(g), 1)
		}
		amount = target.Money * min(1, power*ratio/100)
	}
	amount = min(max(amount, 0), target.Money)
	target.Money -= amount
	thief.Money += amount
	p.say(model.ColorRed, "%s stole %.0f ryo from %s", thief.Name, amount, target.Name)
}

// strip ends the target's effects selected by match.
func (p *pass) strip(u effect.Tag, target *model.Combatant, blocked effect.Kind, match func(effect.Tag) bool, what string) {
	if !p.roll(u) {
		p.say(model.ColorBlue, "%s keeps their %s", target.Name, what)
		return
	}
	if p.prevented(target.ID, blocked) {
		p.say(model.ColorBlue, "%s resisted losing their %s", target.Name, what)
		return
	}
	n := 0
	for _, t := range p.list {
		tc := t.Common()
		if t == u || tc.TargetID != target.ID || tc.TargetType != effect.TargetUser {
			continue
		}
		if p.zeroed[tc.ID] || tc.ActiveFrom > p.round || !match(t) {
			continue
		}
		p.zero(t)
		n++
	}
	if n > 0 {
		p.say(model.ColorBlue, "%s loses %d %s", target.Name, n, what)
	}
}

// copyBuffs duplicates the target's buffs onto the creator.
func (p *pass) copyBuffs(v *effect.Copy, target *model.Combatant) {
	if !v.IsNew {
		return
	}
	copier := p.b.Find(v.CreatorID)
	if copier == nil || copier.ID == target.ID {
		return
	}
	n := 0
	for _, t := range p.list {
		tc := t.Common()
		if tc.TargetID != target.ID || t.Kind() == effect.KindCopy || !effect.IsBuff(t) {
			continue
		}
		if p.zeroed[tc.ID] || tc.ActiveFrom > p.round || !tc.Active() {
			continue
		}
		cp := effect.Duplicate(t)
		cc := cp.Common()
		cc.ID = effect.DeriveID(tc.ID, "copy", copier.ID)
		cc.CreatorID, cc.VillageID = copier.ID, copier.VillageID
		cc.TargetID = copier.ID
		snap := copier.Snapshot()
		cc.TargetStats = &snap
		cc.IsNew, cc.CastThisRound = true, true
		cc.CreatedRound = p.round
		cc.LastApplied = map[string]int{}
		p.spawned = append(p.spawned, cp)
		n++
	}
	if n > 0 {
		p.say(model.ColorBlue, "%s copies %d effects from %s", copier.Name, n, target.Name)
	}
}

// mirror turns freshly cast debuffs on the holder back onto their creators.
func (p *pass) mirror(v *effect.Mirror, holder *model.Combatant) {
	for _, t := range p.list {
		tc := t.Common()
		if t == effect.Tag(v) || !tc.IsNew || tc.TargetID != holder.ID || tc.CreatorID == holder.ID {
			continue
		}
		if tc.TargetType != effect.TargetUser || p.zeroed[tc.ID] || !effect.IsDebuff(t) {
			continue
		}
		creator := p.b.Find(tc.CreatorID)
		if creator == nil || !creator.Alive() {
			continue
		}
		tc.TargetID = creator.ID
		snap := creator.Snapshot()
		tc.TargetStats = &snap
		p.say(model.ColorBlue, "%s mirrors %s back onto %s", holder.Name, describeSource(t), creator.Name)
	}
}

// adjustStats changes the target's stats for the rest of the pass.
func (p *pass) adjustStats(v *effect.StatAdjust, target *model.Combatant) {
	if !p.settled(v, target, "has altered stats") {
		return
	}
	view, ok := p.view[target.ID]
	if !ok {
		return
	}
	for _, s := range v.StatTypes {
		names := []stat.Name{stat.Of(s, true), stat.Of(s, false)}
		if s == stat.Highest {
			names = []stat.Name{view.HighestOffence, view.HighestDefence}
		}
		for _, n := range names {
			cur := view.Block.Get(n)
			view.Block.Set(n, max(0, cur+adjusted(v, cur)))
		}
	}
	for _, g := range v.GeneralTypes {
		cur := view.GetGeneral(g)
		view.SetGeneral(g, max(0, cur+adjusted(v, cur)))
	}
}
