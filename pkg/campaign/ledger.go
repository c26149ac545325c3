package campaign

// tierLimits are the logistics ceilings for one tier.
type tierLimits struct {
	take    int // supplies per type, or vehicles, per take action
	place   int // vehicle placements per transport action
	possess int // mobile vehicles the player may hold
}

func limitsFor(tier int) tierLimits {
	if tier >= 2 {
		return tierLimits{take: 3, place: 4, possess: 10}
	}
	return tierLimits{take: 2, place: 3, possess: 8}
}

// ResupplyAmount is moved per resource by one base resupply.
const ResupplyAmount = 3

// LoadArmy moves supplies from the army's area into its carry. Loading food
// into a halted army first feeds it: one food is eaten, the halt clears and
// no slot is used. Transfers are free.
func (e *Engine) LoadArmy(gs *GameState, armyID string, r Resource, qty int) (*GameState, error) {
	const op = "load"
	return e.apply(gs, op, func(next *GameState) error {
		army, err := e.transferArmy(next, op, armyID, r, qty)
		if err != nil {
			return err
		}
		st := next.Areas[army.Location]
		if st.Stock.Get(r) < qty {
			return reject(op, "%s holds only %d %s.", e.m.Areas[army.Location].Name, st.Stock.Get(r), r)
		}
		load := qty
		if army.Halted && r == Food {
			load--
		}
		if army.Carry.Total()+load > ArmySlotCap {
			return reject(op, "%s can carry at most %d supplies.", army.Name, ArmySlotCap)
		}
		st.Stock = st.Stock.Sub(Of(r, qty))
		if load < qty {
			army.Halted = false
			next.logf("%s is fed and can move again.", army.Name)
		}
		army.Carry = army.Carry.Add(Of(r, load))
		if load > 0 {
			next.logf("%s loads %d %s.", army.Name, load, r)
		}
		return nil
	})
}

// UnloadArmy moves supplies from an army's carry into its area's stock.
func (e *Engine) UnloadArmy(gs *GameState, armyID string, r Resource, qty int) (*GameState, error) {
	const op = "unload"
	return e.apply(gs, op, func(next *GameState) error {
		army, err := e.transferArmy(next, op, armyID, r, qty)
		if err != nil {
			return err
		}
		if army.Carry.Get(r) < qty {
			return reject(op, "%s carries only %d %s.", army.Name, army.Carry.Get(r), r)
		}
		st := next.Areas[army.Location]
		army.Carry = army.Carry.Sub(Of(r, qty))
		st.Stock = st.Stock.Add(Of(r, qty))
		next.logf("%s leaves %d %s at %s.", army.Name, qty, r, e.m.Areas[army.Location].Name)
		return nil
	})
}

func (e *Engine) transferArmy(gs *GameState, op, armyID string, r Resource, qty int) (*Army, error) {
	if err := e.noInterruption(gs, op); err != nil {
		return nil, err
	}
	if _, err := ParseResource(string(r)); err != nil {
		return nil, reject(op, "%v", err)
	}
	if qty < 1 {
		return nil, reject(op, "Quantity must be at least 1.")
	}
	army := gs.Army(armyID)
	if army == nil {
		return nil, reject(op, "Unknown army %q.", armyID)
	}
	if gs.Areas[army.Location].Marker {
		return nil, reject(op, "%s is contested.", e.m.Areas[army.Location].Name)
	}
	return army, nil
}

// ResupplyBase ships 3 of every resource the global stock can spare to a
// main supply base. It costs one action.
func (e *Engine) ResupplyBase(gs *GameState, areaID string) (*GameState, error) {
	const op = "resupply"
	return e.apply(gs, op, func(next *GameState) error {
		if err := e.readyForAction(next, op); err != nil {
			return err
		}
		a := e.m.Area(areaID)
		if a == nil {
			return reject(op, "Unknown area %q.", areaID)
		}
		if a.Type != MainSupplyBase {
			return reject(op, "%s is not a main supply base.", a.Name)
		}
		if !next.Friendly(areaID) {
			return reject(op, "%s is not in friendly hands.", a.Name)
		}
		var moved Supplies
		for _, r := range AllResources() {
			if next.Ledger.Stock.Get(r) >= ResupplyAmount {
				moved = moved.With(r, ResupplyAmount)
			}
		}
		if moved.IsZero() {
			return reject(op, "The stockpile cannot spare %d of any supply.", ResupplyAmount)
		}
		next.spendAction()
		next.Ledger.Stock = next.Ledger.Stock.Sub(moved)
		next.Areas[areaID].Stock = next.Areas[areaID].Stock.Add(moved)
		next.logf("%s resupplied with %s.", a.Name, moved)
		return nil
	})
}

// TakeSupplies draws the tier's allowance of each resource from the
// strategic reserve into the global stock. It costs one action.
func (e *Engine) TakeSupplies(gs *GameState) (*GameState, error) {
	const op = "take_supplies"
	return e.apply(gs, op, func(next *GameState) error {
		if err := e.readyForAction(next, op); err != nil {
			return err
		}
		take := limitsFor(next.Solitaire.Tier).take
		var moved Supplies
		for _, r := range AllResources() {
			moved = moved.With(r, min(take, next.Ledger.Reserve.Get(r)))
		}
		if moved.IsZero() {
			return reject(op, "The strategic reserve is empty.")
		}
		next.spendAction()
		next.Ledger.Reserve = next.Ledger.Reserve.Sub(moved)
		next.Ledger.Stock = next.Ledger.Stock.Add(moved)
		next.logf("Drew %s from the strategic reserve.", moved)
		return nil
	})
}

// TakeTransport moves vehicles from reserve into the mobile pool. It costs
// one action.
func (e *Engine) TakeTransport(gs *GameState, trucks, trains int) (*GameState, error) {
	const op = "take_transport"
	return e.apply(gs, op, func(next *GameState) error {
		if err := e.readyForAction(next, op); err != nil {
			return err
		}
		if trucks < 0 || trains < 0 || trucks+trains == 0 {
			return reject(op, "Take at least one vehicle.")
		}
		l := limitsFor(next.Solitaire.Tier)
		if trucks+trains > l.take {
			return reject(op, "At most %d vehicles may be taken per action.", l.take)
		}
		if trucks > next.Ledger.ReserveTrucks || trains > next.Ledger.ReserveTrains {
			return reject(op, "The reserve holds %d trucks and %d trains.", next.Ledger.ReserveTrucks, next.Ledger.ReserveTrains)
		}
		if next.Ledger.Trucks+next.Ledger.Trains+trucks+trains > l.possess {
			return reject(op, "The mobile pool may hold at most %d vehicles.", l.possess)
		}
		next.spendAction()
		next.Ledger.ReserveTrucks -= trucks
		next.Ledger.ReserveTrains -= trains
		next.Ledger.Trucks += trucks
		next.Ledger.Trains += trains
		next.logf("Took %d trucks and %d trains from the reserve.", trucks, trains)
		return nil
	})
}
