package campaign

// ReorganizationBonusTrains is how many reserve trains the first
// reorganization adds to the mobile pool.
const ReorganizationBonusTrains = 2

// reorganize recalls every placed vehicle and feeds the armies. The first
// reorganization also raises the logistics tier.
func (e *Engine) reorganize(gs *GameState) {
	trucks, trains := gs.Placed()
	for i := range gs.Routes {
		gs.Routes[i] = RouteState{}
	}
	gs.Ledger.Trucks += trucks
	gs.Ledger.Trains += trains
	gs.logf("Reorganization: %d trucks and %d trains return to the pool.", trucks, trains)

	for i := range gs.Armies {
		a := &gs.Armies[i]
		if a.Carry.Food > 0 {
			a.Carry.Food--
			continue
		}
		a.Halted = true
		gs.logf("%s has no food and is halted.", a.Name)
		if gs.Ledger.Medals > 0 {
			gs.Ledger.Medals--
			gs.logf("%s's hunger costs a medal.", a.Name)
		}
	}

	gs.Solitaire.Reorganizations++
	if gs.Solitaire.Reorganizations == 1 {
		gs.Solitaire.Tier = 2
		bonus := min(ReorganizationBonusTrains, gs.Ledger.ReserveTrains)
		gs.Ledger.ReserveTrains -= bonus
		gs.Ledger.Trains += bonus
		gs.logf("Logistics reach tier 2. %d extra trains join the pool.", bonus)
	}
}
