package campaign

import "fmt"

// Vehicle is a transport type.
type Vehicle string

const (
	Truck Vehicle = "truck"
	Train Vehicle = "train"
)

// Capacity returns how many supplies one vehicle moves.
func (v Vehicle) Capacity() int {
	switch v {
	case Truck:
		return 4
	case Train:
		return 6
	}
	return 0
}

// MaxLoad is the ceiling on any single shipment.
const MaxLoad = 6

// TransportOrder describes one vehicle placement.
type TransportOrder struct {
	Vehicle          Vehicle  `json:"vehicle"`
	From             string   `json:"from"`
	To               string   `json:"to"`
	Load             Supplies `json:"load"`
	ConfirmLastTrain bool     `json:"confirmLastTrain,omitempty"`
}

// BeginTransport opens a transport action. The action is only spent by the
// first placement, so cancelling before then is free.
func (e *Engine) BeginTransport(gs *GameState) (*GameState, error) {
	const op = "begin_transport"
	return e.apply(gs, op, func(next *GameState) error {
		if err := e.readyForAction(next, op); err != nil {
			return err
		}
		if next.Ledger.Trucks == 0 && next.Ledger.Trains == 0 {
			return reject(op, "No trucks or trains are available.")
		}
		next.closeMovement()
		next.Phase = PhaseTransportSelecting
		next.Transport = &TransportAction{Route: -1}
		next.logf("Transport: choose a route.")
		return nil
	})
}

// SelectRoute picks the route for the next placement.
func (e *Engine) SelectRoute(gs *GameState, routeID int) (*GameState, error) {
	const op = "select_route"
	return e.apply(gs, op, func(next *GameState) error {
		if next.Phase != PhaseTransportSelecting || next.Transport == nil {
			return reject(op, "No transport action is waiting for a route.")
		}
		r, ok := e.m.Route(routeID)
		if !ok {
			return reject(op, "Unknown route %d.", routeID)
		}
		if err := e.routeUsable(next, op, r); err != nil {
			return err
		}
		if next.Ledger.Trucks == 0 && next.Ledger.Trains == 0 {
			return reject(op, "No trucks or trains are left.")
		}
		next.Transport.Route = r.ID
		next.Phase = PhaseTransportConfiguring
		next.logf("Route %s - %s selected.", e.m.Areas[r.A].Name, e.m.Areas[r.B].Name)
		return nil
	})
}

func (e *Engine) routeUsable(gs *GameState, op string, r Route) error {
	for _, id := range []string{r.A, r.B} {
		if !gs.Friendly(id) {
			return reject(op, "The line through %s is broken.", e.m.Areas[id].Name)
		}
	}
	return nil
}

// ConfirmTransport places a vehicle on the selected route and ships its
// load. The first placement spends the action. Placing the last mobile
// train triggers a reorganization and closes the action.
func (e *Engine) ConfirmTransport(gs *GameState, o TransportOrder) (*GameState, error) {
	const op = "confirm_transport"
	return e.apply(gs, op, func(next *GameState) error {
		t := next.Transport
		if next.Phase != PhaseTransportConfiguring || t == nil || t.Route < 0 {
			return reject(op, "Select a route first.")
		}
		r, _ := e.m.Route(t.Route)
		if !r.Connects(o.From, o.To) {
			return reject(op, "The shipment must run along the selected route.")
		}
		if err := e.routeUsable(next, op, r); err != nil {
			return err
		}
		rs := &next.Routes[r.ID]
		switch o.Vehicle {
		case Truck:
			if next.Ledger.Trucks < 1 {
				return reject(op, "No trucks are left.")
			}
			if rs.Truck {
				return reject(op, "A truck already runs on this route.")
			}
		case Train:
			if next.Ledger.Trains < 1 {
				return reject(op, "No trains are left.")
			}
			if rs.Train {
				return reject(op, "A train already runs on this route.")
			}
			if r.Kind != Rail && !(next.Areas[r.A].Rail && next.Areas[r.B].Rail) {
				return reject(op, "Trains need a railway.")
			}
			if next.Ledger.Trains == 1 && !o.ConfirmLastTrain {
				return reject(op, "This is the last train. Its use forces a reorganization; confirm to proceed.")
			}
		default:
			return reject(op, "Unknown vehicle %q.", o.Vehicle)
		}
		if o.Load.Negative() {
			return reject(op, "Load cannot be negative.")
		}
		limit := min(o.Vehicle.Capacity(), MaxLoad)
		if n := o.Load.Total(); n < 1 || n > limit {
			return reject(op, "A %s carries 1 to %d supplies.", o.Vehicle, limit)
		}
		src := next.Areas[o.From]
		if !src.Stock.Covers(o.Load) {
			return reject(op, "%s does not hold %s.", e.m.Areas[o.From].Name, o.Load)
		}
		if !t.Committed && next.Solitaire.ActionsLeft < 1 {
			return reject(op, "No actions left this turn.")
		}

		if !t.Committed {
			next.spendAction()
			t.Committed = true
		}
		src.Stock = src.Stock.Sub(o.Load)
		dst := next.Areas[o.To]
		dst.Stock = dst.Stock.Add(o.Load)
		if o.Vehicle == Truck {
			next.Ledger.Trucks--
			rs.Truck = true
		} else {
			next.Ledger.Trains--
			rs.Train = true
		}
		t.Placements++
		t.Route = -1
		next.logf("%s ships %s from %s to %s.", vehicleName(o.Vehicle), o.Load, e.m.Areas[o.From].Name, e.m.Areas[o.To].Name)

		if next.Ledger.Trains == 0 {
			e.reorganize(next)
			next.closeTransport()
			return nil
		}
		if ceiling := limitsFor(next.Solitaire.Tier).place; t.Placements >= ceiling {
			next.logf("Transport action complete: %d placements.", t.Placements)
			next.closeTransport()
			return nil
		}
		next.Phase = PhaseTransportSelecting
		return nil
	})
}

func vehicleName(v Vehicle) string {
	if v == Train {
		return "Train"
	}
	return "Truck"
}

// CancelTransport steps back. While configuring it returns to route
// selection; before any placement it closes the action for free. Once a
// vehicle has been placed the action can only be finished.
func (e *Engine) CancelTransport(gs *GameState) (*GameState, error) {
	const op = "cancel_transport"
	return e.apply(gs, op, func(next *GameState) error {
		switch {
		case next.Phase == PhaseTransportConfiguring && next.Transport != nil:
			next.Transport.Route = -1
			next.Phase = PhaseTransportSelecting
			next.logf("Route deselected.")
		case next.Phase == PhaseTransportSelecting && next.Transport != nil:
			if next.Transport.Committed {
				return reject(op, "Vehicles are already placed. Finish the transport action instead.")
			}
			next.closeTransport()
			next.logf("Transport cancelled.")
		default:
			return reject(op, "No transport action is open.")
		}
		return nil
	})
}

// FinishTransport closes the transport action.
func (e *Engine) FinishTransport(gs *GameState) (*GameState, error) {
	const op = "finish_transport"
	return e.apply(gs, op, func(next *GameState) error {
		if next.Transport == nil {
			return reject(op, "No transport action is open.")
		}
		next.logf("Transport action finished: %s.", placements(next.Transport.Placements))
		next.closeTransport()
		return nil
	})
}

func placements(n int) string {
	if n == 1 {
		return "1 placement"
	}
	return fmt.Sprintf("%d placements", n)
}
