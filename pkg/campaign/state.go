package campaign

import "fmt"

// Phase is the engine's interaction mode. It decides which operations are
// currently accepted.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseArmoredMoving        Phase = "armored_moving"
	PhaseEncounterPending     Phase = "encounter_pending"
	PhaseConfirmContinue      Phase = "confirm_continue"
	PhaseConfirmForcedMarch   Phase = "confirm_forced_march"
	PhaseTransportSelecting   Phase = "transport_selecting"
	PhaseTransportConfiguring Phase = "transport_configuring"
	PhaseRailheadOffer        Phase = "railhead_offer"
	PhaseWon                  Phase = "won"
	PhaseLost                 Phase = "lost"
)

const (
	// ActionsPerTurn is the budget restored at the start of every turn.
	ActionsPerTurn = 2
	// MaxArmoredLegs is how many areas an armored army may cross in one action.
	MaxArmoredLegs = 3
)

// AreaState is the mutable part of an area.
type AreaState struct {
	Controller   Faction  `json:"controller,omitempty"`
	Marker       bool     `json:"marker,omitempty"`
	Partisan     bool     `json:"partisan,omitempty"`
	Rail         bool     `json:"rail,omitempty"`
	Stock        Supplies `json:"stock"`
	CapturedTurn int      `json:"capturedTurn,omitempty"`
	MedalTaken   bool     `json:"medalTaken,omitempty"`
}

// RouteState records which vehicles are parked on a route.
type RouteState struct {
	Truck bool `json:"truck,omitempty"`
	Train bool `json:"train,omitempty"`
}

// Army is one German army in play.
type Army struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Faction  Faction   `json:"faction"`
	Class    ArmyClass `json:"class"`
	Location string    `json:"location"`
	Carry    Supplies  `json:"carry"`
	Halted   bool      `json:"halted,omitempty"`
}

// Ledger holds the player's pooled resources.
type Ledger struct {
	Trucks        int      `json:"trucks"`
	Trains        int      `json:"trains"`
	ReserveTrucks int      `json:"reserveTrucks"`
	ReserveTrains int      `json:"reserveTrains"`
	Stock         Supplies `json:"stock"`
	Reserve       Supplies `json:"reserve"`
	Medals        int      `json:"medals"`
	Hand          []string `json:"hand"`
}

// Solitaire tracks the turn's bookkeeping.
type Solitaire struct {
	ActionsLeft     int    `json:"actionsLeft"`
	MarkerPool      int    `json:"markerPool"`
	Tier            int    `json:"tier"`
	Reorganizations int    `json:"reorganizations"`
	AuxUsed         bool   `json:"auxUsed,omitempty"`
	ActiveArmy      string `json:"activeArmy,omitempty"`
	Legs            int    `json:"legs,omitempty"`
	ForcedMarch     bool   `json:"forcedMarch,omitempty"`
}

// Encounter is a card waiting for the player's decision.
type Encounter struct {
	Card string   `json:"card"`
	Army string   `json:"army"`
	Area string   `json:"area"`
	From string   `json:"from"`
	Deck DeckName `json:"deck"`
}

// TransportAction is an open transport action.
type TransportAction struct {
	Route      int  `json:"route"` // -1 while no route is selected
	Placements int  `json:"placements"`
	Committed  bool `json:"committed"`
}

// Outcome is set once the campaign has ended.
type Outcome struct {
	Result string `json:"result"`
	Medals int    `json:"medals"`
	Turn   int    `json:"turn"`
	Reason string `json:"reason"`
}

// View is the client's camera position. It is carried in the snapshot and
// never read by the rules.
type View struct {
	Scale float64 `json:"scale"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// GameState is a complete snapshot of a campaign.
type GameState struct {
	Version   int                   `json:"version"`
	Faction   Faction               `json:"faction"`
	Mode      Mode                  `json:"mode"`
	Turn      int                   `json:"turn"`
	Phase     Phase                 `json:"phase"`
	Areas     map[string]*AreaState `json:"areas"`
	Routes    []RouteState          `json:"routes"`
	Armies    []Army                `json:"armies"`
	Ledger    Ledger                `json:"ledger"`
	Solitaire Solitaire             `json:"solitaire"`
	Decks     Decks                 `json:"decks"`
	Pending   *Encounter            `json:"pending,omitempty"`
	Transport *TransportAction      `json:"transport,omitempty"`
	Railhead  []string              `json:"railhead,omitempty"`
	Outcome   *Outcome              `json:"outcome,omitempty"`
	View      View                  `json:"view"`
	Log       []string              `json:"log"`
}

// Clone returns a deep copy of the game state.
func (gs *GameState) Clone() *GameState {
	c := *gs
	c.Areas = make(map[string]*AreaState, len(gs.Areas))
	for id, st := range gs.Areas {
		cp := *st
		c.Areas[id] = &cp
	}
	c.Routes = append([]RouteState(nil), gs.Routes...)
	c.Armies = append([]Army(nil), gs.Armies...)
	c.Ledger.Hand = append([]string(nil), gs.Ledger.Hand...)
	c.Decks = Decks{
		Encounter: gs.Decks.Encounter.clone(),
		Pursuit:   gs.Decks.Pursuit.clone(),
		Front:     gs.Decks.Front.clone(),
	}
	if gs.Pending != nil {
		p := *gs.Pending
		c.Pending = &p
	}
	if gs.Transport != nil {
		t := *gs.Transport
		c.Transport = &t
	}
	c.Railhead = append([]string(nil), gs.Railhead...)
	if gs.Outcome != nil {
		o := *gs.Outcome
		c.Outcome = &o
	}
	c.Log = append([]string(nil), gs.Log...)
	return &c
}

// Over reports whether the campaign has been won or lost.
func (gs *GameState) Over() bool {
	return gs.Phase == PhaseWon || gs.Phase == PhaseLost
}

// Army returns the army with the given ID, or nil.
func (gs *GameState) Army(id string) *Army {
	for i := range gs.Armies {
		if gs.Armies[i].ID == id {
			return &gs.Armies[i]
		}
	}
	return nil
}

// ArmyAt reports whether any army stands in the area.
func (gs *GameState) ArmyAt(area string) bool {
	for _, a := range gs.Armies {
		if a.Location == area {
			return true
		}
	}
	return false
}

// Friendly reports whether the player's faction holds the area outright.
func (gs *GameState) Friendly(area string) bool {
	st := gs.Areas[area]
	return st != nil && st.Controller == gs.Faction && !st.Marker
}

// ControlledCount returns how many areas the faction controls.
func (gs *GameState) ControlledCount(f Faction) int {
	n := 0
	for _, st := range gs.Areas {
		if st.Controller == f && !st.Marker {
			n++
		}
	}
	return n
}

// MarkerCount returns how many enemy markers are on the map.
func (gs *GameState) MarkerCount() int {
	n := 0
	for _, st := range gs.Areas {
		if st.Marker {
			n++
		}
	}
	return n
}

// LastLog returns the most recent log line.
func (gs *GameState) LastLog() string {
	if len(gs.Log) == 0 {
		return ""
	}
	return gs.Log[len(gs.Log)-1]
}

// Placed returns the number of trucks and trains parked on routes.
func (gs *GameState) Placed() (trucks, trains int) {
	for _, r := range gs.Routes {
		if r.Truck {
			trucks++
		}
		if r.Train {
			trains++
		}
	}
	return trucks, trains
}

func (gs *GameState) logf(format string, args ...any) {
	gs.Log = append(gs.Log, fmt.Sprintf(format, args...))
}

// capture hands the area to f, clearing any marker. The medal is paid once
// per area for the whole campaign.
func (gs *GameState) capture(m *Map, id string, f Faction) {
	st := gs.Areas[id]
	st.Controller = f
	st.Marker = false
	st.Partisan = false
	st.CapturedTurn = gs.Turn
	if m.Areas[id].Medal && !st.MedalTaken {
		st.MedalTaken = true
		gs.Ledger.Medals++
	}
}

// closeMovement drops any pending continuation or forced-march offer.
func (gs *GameState) closeMovement() {
	switch gs.Phase {
	case PhaseArmoredMoving, PhaseConfirmContinue, PhaseConfirmForcedMarch:
		gs.Phase = PhaseIdle
	}
	gs.Solitaire.ActiveArmy = ""
	gs.Solitaire.Legs = 0
	gs.Solitaire.ForcedMarch = false
}

func (gs *GameState) closeTransport() {
	if gs.Phase == PhaseTransportSelecting || gs.Phase == PhaseTransportConfiguring {
		gs.Phase = PhaseIdle
	}
	gs.Transport = nil
}

func (gs *GameState) removeFromHand(cardID string) bool {
	for i, id := range gs.Ledger.Hand {
		if id == cardID {
			gs.Ledger.Hand = append(gs.Ledger.Hand[:i], gs.Ledger.Hand[i+1:]...)
			return true
		}
	}
	return false
}
