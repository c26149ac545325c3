package campaign

// react is the opponent's turn: draw a front card, then either retake one
// exposed area or deploy a marker from the pool.
func (e *Engine) react(gs *GameState) {
	counter := false
	if card, ok := e.draw(gs, DeckFront); ok {
		gs.logf("Soviet front: %s.", card.Name)
		counter = card.Front.CounterAttack
		e.discard(gs, card)
	}

	retook := false
	if counter {
		if cands := e.counterAttackTargets(gs); len(cands) > 0 {
			id := cands[e.rng.Intn(len(cands))]
			st := gs.Areas[id]
			st.Controller = Neutral
			st.CapturedTurn = 0
			gs.logf("A Soviet counter-attack retakes %s.", e.m.Areas[id].Name)
			retook = true
		}
	}
	if !retook && gs.Solitaire.MarkerPool > 0 {
		e.placeMarker(gs)
	}
	e.settleControl(gs)
	if gs.Solitaire.MarkerPool == 0 && !gs.Over() {
		gs.Phase = PhaseLost
		gs.Pending = nil
		gs.Transport = nil
		gs.Outcome = &Outcome{
			Result: "lost",
			Medals: gs.Ledger.Medals,
			Turn:   gs.Turn,
			Reason: "the Soviet reserves are spent and the offensive has stalled",
		}
		gs.logf("The offensive stalls on turn %d. Final score: %d medals.", gs.Turn, gs.Ledger.Medals)
	}
}

// counterAttackTargets lists friendly areas the opponent may retake: away
// from the start line and from every army, not taken this turn, and
// touching neutral or marked ground.
func (e *Engine) counterAttackTargets(gs *GameState) []string {
	near := func(id string, pred func(string) bool) bool {
		if pred(id) {
			return true
		}
		for _, nb := range e.m.Neighbors(id) {
			if pred(nb) {
				return true
			}
		}
		return false
	}
	starting := func(id string) bool { return e.m.Areas[id].IsStarting() }

	var out []string
	for _, id := range e.m.AreaIDs() {
		st := gs.Areas[id]
		if !gs.Friendly(id) || st.CapturedTurn == gs.Turn {
			continue
		}
		if near(id, starting) || near(id, gs.ArmyAt) {
			continue
		}
		for _, nb := range e.m.Neighbors(id) {
			ns := gs.Areas[nb]
			if ns.Controller == Neutral || ns.Marker {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// placeMarker takes one marker from the pool and puts it on a random
// neutral, army-free area next to an existing marker. Without such an area
// the marker is lost.
func (e *Engine) placeMarker(gs *GameState) {
	gs.Solitaire.MarkerPool--
	var cands []string
	for _, id := range e.m.AreaIDs() {
		st := gs.Areas[id]
		if st.Controller != Neutral || st.Marker || gs.ArmyAt(id) {
			continue
		}
		for _, nb := range e.m.Neighbors(id) {
			if gs.Areas[nb].Marker {
				cands = append(cands, id)
				break
			}
		}
	}
	if len(cands) == 0 {
		gs.logf("A Soviet division finds no ground to hold and disperses (%d left).", gs.Solitaire.MarkerPool)
		return
	}
	id := cands[e.rng.Intn(len(cands))]
	gs.Areas[id].Marker = true
	gs.logf("Soviet reinforcements dig in at %s (%d left).", e.m.Areas[id].Name, gs.Solitaire.MarkerPool)
}
