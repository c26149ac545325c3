package campaign

// Decision is the player's answer to a pending encounter.
type Decision string

const (
	DecisionFight   Decision = "fight"
	DecisionRetreat Decision = "retreat"
	DecisionPayToll Decision = "pay_toll"
	DecisionAck     Decision = "ack"
)

// ParseDecision converts a string to a Decision.
func ParseDecision(s string) (Decision, bool) {
	switch Decision(s) {
	case DecisionFight, DecisionRetreat, DecisionPayToll, DecisionAck:
		return Decision(s), true
	}
	return "", false
}

// Decisions lists what the pending encounter accepts.
func (e *Engine) Decisions(gs *GameState) []Decision {
	if gs.Phase != PhaseEncounterPending || gs.Pending == nil {
		return nil
	}
	card := e.cards.Card(gs.Pending.Card)
	if card.Kind == KindCombat {
		return []Decision{DecisionFight, DecisionRetreat}
	}
	switch card.Event.Effect {
	case EffectToll:
		return []Decision{DecisionPayToll, DecisionRetreat}
	case EffectHalt:
		return []Decision{DecisionAck, DecisionRetreat}
	}
	return []Decision{DecisionAck}
}

// ResolveEncounter answers the pending encounter card.
func (e *Engine) ResolveEncounter(gs *GameState, d Decision) (*GameState, error) {
	const op = "resolve"
	return e.apply(gs, op, func(next *GameState) error {
		p := next.Pending
		if next.Phase != PhaseEncounterPending || p == nil {
			return reject(op, "No encounter is pending.")
		}
		card := e.cards.Card(p.Card)
		army := next.Army(p.Army)
		if card == nil || army == nil {
			return reject(op, "The pending encounter refers to unknown pieces.")
		}
		valid := false
		for _, ok := range e.Decisions(next) {
			if ok == d {
				valid = true
			}
		}
		if !valid {
			return reject(op, "%q is not an answer to %s.", d, card.Name)
		}
		if card.Kind == KindCombat {
			e.resolveCombat(next, p, card, army, d)
		} else {
			return e.resolveEvent(next, p, card, army, d)
		}
		return nil
	})
}

func (e *Engine) resolveCombat(gs *GameState, p *Encounter, card *Card, army *Army, d Decision) {
	area := e.m.Areas[p.Area]
	cost := card.Combat.Cost
	if d == DecisionFight && army.Carry.Covers(cost) {
		army.Carry = army.Carry.Sub(cost)
		e.endEncounter(gs, card)
		gs.capture(e.m, p.Area, army.Faction)
		gs.logf("%s defeats the %s and takes %s.", army.Name, card.Name, area.Name)
		e.settleControl(gs)
		e.afterLeg(gs, army, true)
		return
	}

	paid := army.Carry.Min(cost)
	army.Carry = army.Carry.Sub(paid)
	army.Location = p.From
	e.endEncounter(gs, card)
	from := e.m.Areas[p.From].Name
	if d == DecisionFight {
		gs.logf("%s lacks the supplies to beat the %s (needs %s) and falls back to %s.", army.Name, card.Name, cost, from)
	} else {
		gs.logf("%s retreats from %s to %s.", army.Name, area.Name, from)
		if gs.Ledger.Medals > 0 {
			gs.Ledger.Medals--
			gs.logf("The retreat costs a medal.")
		}
	}
	gs.closeMovement()
}

func (e *Engine) resolveEvent(gs *GameState, p *Encounter, card *Card, army *Army, d Decision) error {
	area := e.m.Areas[p.Area]
	if d == DecisionRetreat {
		army.Location = p.From
		e.endEncounter(gs, card)
		gs.logf("%s falls back from %s to %s.", army.Name, area.Name, e.m.Areas[p.From].Name)
		gs.closeMovement()
		return nil
	}

	ev := card.Event
	switch ev.Effect {
	case EffectToll:
		if !army.Carry.Covers(ev.Toll) {
			return reject("resolve", "%s cannot pay %s for the %s. Retreat instead.", army.Name, ev.Toll, card.Name)
		}
		army.Carry = army.Carry.Sub(ev.Toll)
		gs.logf("%s pays %s to push through the %s.", army.Name, ev.Toll, card.Name)
	case EffectSupplies:
		gain := army.Carry.Fit(ev.Delta, ArmySlotCap)
		army.Carry = army.Carry.Add(gain)
		gs.logf("%s gains %s.", army.Name, gain)
	case EffectPartisans:
		e.placePartisans(gs, army)
	case EffectHalt:
		gs.logf("%s stops at %s.", army.Name, area.Name)
	default:
		gs.logf("%s: nothing happens.", card.Name)
	}
	e.endEncounter(gs, card)
	e.hold(gs, army, p.Area)
	if gs.Over() {
		return nil
	}
	if ev.Effect == EffectHalt {
		gs.closeMovement()
		return nil
	}
	e.afterLeg(gs, army, false)
	return nil
}

// hold gives the army's faction an area it stays in after an event.
func (e *Engine) hold(gs *GameState, army *Army, area string) {
	if st := gs.Areas[area]; st.Marker || st.Controller != army.Faction {
		gs.capture(e.m, area, army.Faction)
		gs.logf("%s takes %s.", army.Name, e.m.Areas[area].Name)
	}
	e.settleControl(gs)
}

func (e *Engine) placePartisans(gs *GameState, army *Army) {
	var cands []string
	for _, nb := range e.m.Neighbors(army.Location) {
		st := gs.Areas[nb]
		if st.Controller == Neutral && !st.Marker && !gs.ArmyAt(nb) {
			cands = append(cands, nb)
		}
	}
	if len(cands) == 0 {
		gs.logf("Partisans find no cover near %s.", e.m.Areas[army.Location].Name)
		return
	}
	id := cands[e.rng.Intn(len(cands))]
	st := gs.Areas[id]
	st.Marker = true
	st.Partisan = true
	gs.logf("Partisans rise in %s.", e.m.Areas[id].Name)
}

func (e *Engine) endEncounter(gs *GameState, card *Card) {
	e.discard(gs, card)
	gs.Pending = nil
	gs.Phase = PhaseIdle
}
