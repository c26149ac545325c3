package campaign

import "fmt"

// Operation names accepted by Execute.
const (
	OpMove             = "move"
	OpFinishMovement   = "finish_movement"
	OpResolve          = "resolve"
	OpLoad             = "load"
	OpUnload           = "unload"
	OpResupply         = "resupply"
	OpTakeSupplies     = "take_supplies"
	OpTakeTransport    = "take_transport"
	OpBeginTransport   = "begin_transport"
	OpSelectRoute      = "select_route"
	OpConfirmTransport = "confirm_transport"
	OpCancelTransport  = "cancel_transport"
	OpFinishTransport  = "finish_transport"
	OpEndTurn          = "end_turn"
	OpAdvanceRailhead  = "advance_railhead"
	OpDeclineRailhead  = "decline_railhead"
	OpPlayCard         = "play_card"
	OpSetView          = "set_view"
	OpAdjustPool       = "adjust_pool"
	OpReset            = "reset"
)

// Command is a serialisable request for one state-changing operation. Only
// the fields the operation reads need to be set.
type Command struct {
	Op       string          `json:"op"`
	Army     string          `json:"army,omitempty"`
	Area     string          `json:"area,omitempty"`
	Resource Resource        `json:"resource,omitempty"`
	Quantity int             `json:"quantity,omitempty"`
	Trucks   int             `json:"trucks,omitempty"`
	Trains   int             `json:"trains,omitempty"`
	Route    int             `json:"route,omitempty"`
	Order    *TransportOrder `json:"order,omitempty"`
	Decision Decision        `json:"decision,omitempty"`
	Card     string          `json:"card,omitempty"`
	Delta    int             `json:"delta,omitempty"`
	View     *View           `json:"view,omitempty"`
}

func (c Command) String() string {
	switch c.Op {
	case OpMove:
		return fmt.Sprintf("move %s to %s", c.Army, c.Area)
	case OpResolve:
		return "resolve " + string(c.Decision)
	case OpLoad, OpUnload:
		return fmt.Sprintf("%s %d %s on %s", c.Op, c.Quantity, c.Resource, c.Army)
	case OpSelectRoute:
		return fmt.Sprintf("select route %d", c.Route)
	}
	return c.Op
}

// Execute dispatches c to the matching operation.
func (e *Engine) Execute(gs *GameState, c Command) (*GameState, error) {
	switch c.Op {
	case OpMove:
		return e.MoveArmy(gs, c.Army, c.Area)
	case OpFinishMovement:
		return e.FinishMovement(gs)
	case OpResolve:
		return e.ResolveEncounter(gs, c.Decision)
	case OpLoad:
		return e.LoadArmy(gs, c.Army, c.Resource, c.Quantity)
	case OpUnload:
		return e.UnloadArmy(gs, c.Army, c.Resource, c.Quantity)
	case OpResupply:
		return e.ResupplyBase(gs, c.Area)
	case OpTakeSupplies:
		return e.TakeSupplies(gs)
	case OpTakeTransport:
		return e.TakeTransport(gs, c.Trucks, c.Trains)
	case OpBeginTransport:
		return e.BeginTransport(gs)
	case OpSelectRoute:
		return e.SelectRoute(gs, c.Route)
	case OpConfirmTransport:
		if c.Order == nil {
			return gs, reject(c.Op, "Describe the vehicle placement.")
		}
		return e.ConfirmTransport(gs, *c.Order)
	case OpCancelTransport:
		return e.CancelTransport(gs)
	case OpFinishTransport:
		return e.FinishTransport(gs)
	case OpEndTurn:
		return e.EndTurn(gs)
	case OpAdvanceRailhead:
		return e.AdvanceRailhead(gs, c.Area)
	case OpDeclineRailhead:
		return e.DeclineRailhead(gs)
	case OpPlayCard:
		return e.PlayRetainedCard(gs, c.Card)
	case OpSetView:
		if c.View == nil {
			return gs, reject(c.Op, "No view given.")
		}
		return e.SetView(gs, *c.View)
	case OpAdjustPool:
		return e.AdjustMarkerPool(gs, c.Delta)
	case OpReset:
		return e.ResetGame(gs)
	}
	return gs, reject(c.Op, "Unknown operation %q.", c.Op)
}
