package campaign

type legKind int

const (
	legNew legKind = iota
	legContinue
	legForcedMarch
)

func movementLeg(gs *GameState, army *Army) legKind {
	if gs.Solitaire.ActiveArmy != army.ID {
		return legNew
	}
	switch gs.Phase {
	case PhaseArmoredMoving, PhaseConfirmContinue:
		if army.Class == Armored && gs.Solitaire.Legs < MaxArmoredLegs {
			return legContinue
		}
	case PhaseConfirmForcedMarch:
		if army.Class == Field {
			return legForcedMarch
		}
	}
	return legNew
}

// MoveArmy moves an army one area. A new movement costs an action; an
// armored continuation or a field army's forced march does not. Moving any
// other army ends the pending continuation first.
func (e *Engine) MoveArmy(gs *GameState, armyID, target string) (*GameState, error) {
	const op = "move"
	return e.apply(gs, op, func(next *GameState) error {
		if err := e.noInterruption(next, op); err != nil {
			return err
		}
		if next.Phase == PhaseTransportSelecting || next.Phase == PhaseTransportConfiguring {
			return reject(op, "Finish the transport action first.")
		}
		army := next.Army(armyID)
		if army == nil {
			return reject(op, "Unknown army %q.", armyID)
		}
		if army.Halted {
			return reject(op, "%s is halted without food. Deliver food before it can move.", army.Name)
		}
		dest := e.m.Area(target)
		if dest == nil {
			return reject(op, "Unknown area %q.", target)
		}
		if !e.m.Adjacent(army.Location, target) {
			return reject(op, "%s is not connected to %s.", dest.Name, e.m.Areas[army.Location].Name)
		}
		if dest.Restricted != Neutral && dest.Restricted != army.Faction {
			return reject(op, "%s lies in the %s army group's sector.", dest.Name, dest.Restricted)
		}

		var cost Supplies
		if army.Class == Armored {
			if army.Carry.Fuel < 1 {
				return reject(op, "%s has no fuel.", army.Name)
			}
			cost.Fuel = 1
		}
		if dest.Type == Fortified && next.Areas[target].Controller != army.Faction {
			if army.Carry.Ammo < 1 {
				return reject(op, "%s needs 1 ammo to assault the fortress of %s.", army.Name, dest.Name)
			}
			cost.Ammo = 1
		}

		leg := movementLeg(next, army)
		switch leg {
		case legNew:
			if next.Solitaire.ActionsLeft < 1 {
				return reject(op, "No actions left this turn.")
			}
		case legForcedMarch:
			cost.Food++
			if !army.Carry.Covers(cost) {
				return reject(op, "A forced march needs 1 food on top of the move's cost.")
			}
		}

		if leg == legNew {
			next.spendAction()
		}
		if leg == legForcedMarch {
			next.Solitaire.ForcedMarch = true
		}
		from := army.Location
		army.Carry = army.Carry.Sub(cost)
		army.Location = target
		next.Solitaire.ActiveArmy = army.ID
		if army.Class == Armored {
			next.Solitaire.Legs++
		}
		next.Phase = PhaseIdle
		switch leg {
		case legForcedMarch:
			next.logf("%s force-marches to %s.", army.Name, dest.Name)
		default:
			next.logf("%s moves to %s.", army.Name, dest.Name)
		}
		e.enterArea(next, army, from)
		return nil
	})
}

// enterArea draws the card owed for entering the army's new area.
func (e *Engine) enterArea(gs *GameState, army *Army, from string) {
	dest := e.m.Areas[army.Location]
	st := gs.Areas[dest.ID]

	var deck DeckName
	switch {
	case st.Marker:
		deck = DeckEncounter
	case st.Controller != army.Faction:
		gs.capture(e.m, dest.ID, army.Faction)
		gs.logf("%s takes %s.", army.Name, dest.Name)
		e.settleControl(gs)
		if gs.Over() {
			return
		}
		deck = DeckPursuit
	default:
		e.afterLeg(gs, army, false)
		return
	}

	card, ok := e.draw(gs, deck)
	if !ok {
		if deck == DeckEncounter {
			gs.capture(e.m, dest.ID, army.Faction)
			gs.logf("The encounter deck is spent. %s falls without a fight.", dest.Name)
			e.settleControl(gs)
		}
		e.afterLeg(gs, army, false)
		return
	}

	if card.Retain {
		gs.Ledger.Hand = append(gs.Ledger.Hand, card.ID)
		gs.logf("%s drawn and kept for later.", card.Name)
		if st.Marker {
			gs.capture(e.m, dest.ID, army.Faction)
			gs.logf("The defenders of %s withdraw.", dest.Name)
			e.settleControl(gs)
		}
		e.afterLeg(gs, army, false)
		return
	}

	gs.Pending = &Encounter{Card: card.ID, Army: army.ID, Area: dest.ID, From: from, Deck: deck}
	gs.Phase = PhaseEncounterPending
	gs.logf("%s at %s: %s.", encounterTitle(card), dest.Name, card.Name)
}

func encounterTitle(c *Card) string {
	if c.Kind == KindCombat {
		return "Battle"
	}
	return "Event"
}

// afterLeg decides whether the army that just moved may keep going.
func (e *Engine) afterLeg(gs *GameState, army *Army, wonFight bool) {
	if gs.Over() {
		return
	}
	s := &gs.Solitaire
	switch {
	case army.Class == Armored && s.Legs < MaxArmoredLegs:
		if wonFight {
			gs.Phase = PhaseConfirmContinue
		} else {
			gs.Phase = PhaseArmoredMoving
		}
		s.ActiveArmy = army.ID
	case army.Class == Field && wonFight && !s.ForcedMarch && army.Carry.Food > 0:
		gs.Phase = PhaseConfirmForcedMarch
		s.ActiveArmy = army.ID
	default:
		gs.Phase = PhaseIdle
		gs.closeMovement()
	}
}

// FinishMovement closes any open continuation or forced-march offer for free.
func (e *Engine) FinishMovement(gs *GameState) (*GameState, error) {
	const op = "finish_movement"
	return e.apply(gs, op, func(next *GameState) error {
		switch next.Phase {
		case PhaseArmoredMoving, PhaseConfirmContinue, PhaseConfirmForcedMarch:
		default:
			return reject(op, "No movement to finish.")
		}
		if army := next.Army(next.Solitaire.ActiveArmy); army != nil {
			next.logf("%s halts at %s.", army.Name, e.m.Areas[army.Location].Name)
		}
		next.closeMovement()
		return nil
	})
}
