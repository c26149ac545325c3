package campaign

import "strings"

// EndTurn closes the player's turn. Open continuations and transport
// actions are closed. If a railhead can advance the player is asked first;
// otherwise the opponent reacts and the next turn begins.
func (e *Engine) EndTurn(gs *GameState) (*GameState, error) {
	const op = "end_turn"
	return e.apply(gs, op, func(next *GameState) error {
		if err := e.noInterruption(next, op); err != nil {
			return err
		}
		next.closeMovement()
		next.closeTransport()
		next.Phase = PhaseIdle
		next.logf("Turn %d ends.", next.Turn)

		if cands := e.railheadCandidates(next); len(cands) > 0 {
			next.Phase = PhaseRailheadOffer
			next.Railhead = cands
			next.logf("The railhead may advance to: %s.", strings.Join(e.names(cands), ", "))
			return nil
		}
		e.finishTurn(next)
		return nil
	})
}

// AdvanceRailhead extends the railway into one of the offered areas and
// finishes the turn.
func (e *Engine) AdvanceRailhead(gs *GameState, areaID string) (*GameState, error) {
	const op = "advance_railhead"
	return e.apply(gs, op, func(next *GameState) error {
		if next.Phase != PhaseRailheadOffer {
			return reject(op, "No railhead offer is open.")
		}
		offered := false
		for _, id := range next.Railhead {
			if id == areaID {
				offered = true
			}
		}
		if !offered {
			return reject(op, "The railhead cannot advance to %q.", areaID)
		}
		next.Areas[areaID].Rail = true
		next.logf("The railhead advances to %s.", e.m.Areas[areaID].Name)
		e.finishTurn(next)
		return nil
	})
}

// DeclineRailhead skips the railhead offer and finishes the turn.
func (e *Engine) DeclineRailhead(gs *GameState) (*GameState, error) {
	const op = "decline_railhead"
	return e.apply(gs, op, func(next *GameState) error {
		if next.Phase != PhaseRailheadOffer {
			return reject(op, "No railhead offer is open.")
		}
		next.logf("The railhead stays put.")
		e.finishTurn(next)
		return nil
	})
}

// railheadCandidates lists friendly areas without rail that border a
// friendly rail-capable area.
func (e *Engine) railheadCandidates(gs *GameState) []string {
	var out []string
	for _, id := range e.m.AreaIDs() {
		if !gs.Friendly(id) || gs.Areas[id].Rail {
			continue
		}
		for _, nb := range e.m.Neighbors(id) {
			if gs.Friendly(nb) && gs.Areas[nb].Rail {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// finishTurn lets the opponent react, then rolls the turn over. Partisan
// flags and captured-this-turn tags expire here, after the reactor has seen
// them.
func (e *Engine) finishTurn(gs *GameState) {
	gs.Phase = PhaseIdle
	gs.Railhead = nil
	e.react(gs)
	if gs.Over() {
		return
	}
	for _, st := range gs.Areas {
		st.Partisan = false
		st.CapturedTurn = 0
	}
	gs.Turn++
	gs.Solitaire.ActionsLeft = ActionsPerTurn
	gs.Solitaire.AuxUsed = false
	gs.logf("Turn %d begins.", gs.Turn)
}

// PlayRetainedCard plays a card from the hand. Playing is free.
func (e *Engine) PlayRetainedCard(gs *GameState, cardID string) (*GameState, error) {
	const op = "play_card"
	return e.apply(gs, op, func(next *GameState) error {
		card := e.cards.Card(cardID)
		if card == nil || !card.Retain {
			return reject(op, "%q cannot be kept.", cardID)
		}
		held := false
		for _, id := range next.Ledger.Hand {
			if id == cardID {
				held = true
			}
		}
		if !held {
			return reject(op, "%s is not in hand.", card.Name)
		}
		switch card.Event.Effect {
		case EffectAuxiliary:
			if next.Solitaire.AuxUsed {
				return reject(op, "Only one %s per turn.", card.Name)
			}
			next.Solitaire.AuxUsed = true
			next.Solitaire.ActionsLeft++
			next.logf("%s played: one extra action.", card.Name)
		case EffectCache:
			next.Ledger.Stock = next.Ledger.Stock.Add(card.Event.Delta)
			next.logf("%s played: %s added to the stockpile.", card.Name, card.Event.Delta)
		default:
			return reject(op, "%s cannot be played.", card.Name)
		}
		next.removeFromHand(cardID)
		e.discard(next, card)
		return nil
	})
}
