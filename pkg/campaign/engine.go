package campaign

import (
	"fmt"
	"strings"
	"time"
)

// Engine applies the campaign rules. It holds only immutable content and
// the random source, so one Engine can serve many games as long as the
// Source is not shared across goroutines.
type Engine struct {
	m     *Map
	cards *CardSet
	rng   Source
}

// NewEngine returns an engine over the given content. A nil rng is replaced
// by a time-seeded source.
func NewEngine(m *Map, cards *CardSet, rng Source) *Engine {
	if rng == nil {
		rng = NewSource(time.Now().UnixNano())
	}
	return &Engine{m: m, cards: cards, rng: rng}
}

// NewStandardEngine returns an engine over the embedded map and cards.
func NewStandardEngine(rng Source) *Engine {
	return NewEngine(StandardMap(), StandardCards(), rng)
}

func (e *Engine) Map() *Map       { return e.m }
func (e *Engine) Cards() *CardSet { return e.cards }

// NewGame sets up a campaign for one army group.
func (e *Engine) NewGame(f Faction, mode Mode) (*GameState, error) {
	if _, err := ParseFaction(string(f)); err != nil {
		return nil, reject("new_game", "%v", err)
	}
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, reject("new_game", "%v", err)
	}

	gs := &GameState{
		Faction: f,
		Mode:    mode,
		Turn:    1,
		Phase:   PhaseIdle,
		Areas:   make(map[string]*AreaState, len(e.m.Areas)),
		Routes:  make([]RouteState, len(e.m.Routes)),
		Ledger: Ledger{
			Trucks:        5,
			Trains:        3,
			ReserveTrucks: 4,
			ReserveTrains: 4,
			Stock:         mode.startingStock(),
			Reserve:       Supplies{Fuel: 30, Ammo: 30, Food: 30},
			Hand:          []string{},
		},
		Solitaire: Solitaire{
			ActionsLeft: ActionsPerTurn,
			MarkerPool:  mode.markerPool(),
			Tier:        1,
		},
		Decks: Decks{
			Encounter: e.cards.build(DeckEncounter, e.rng),
			Pursuit:   e.cards.build(DeckPursuit, e.rng),
			Front:     e.cards.build(DeckFront, e.rng),
		},
		View: View{Scale: 0.6, X: -100, Y: -500},
	}
	for _, id := range e.m.AreaIDs() {
		a := e.m.Areas[id]
		gs.Areas[id] = &AreaState{
			Controller: a.Owner,
			Marker:     a.SovietMarker,
			Rail:       a.Rail,
			Stock:      a.Stock,
		}
	}
	for _, spec := range e.m.Armies {
		if spec.Faction != f {
			continue
		}
		gs.Armies = append(gs.Armies, Army{
			ID:       spec.ID,
			Name:     spec.Name,
			Faction:  spec.Faction,
			Class:    spec.Class,
			Location: spec.Location,
			Carry:    spec.Carry,
		})
	}
	if len(gs.Armies) == 0 {
		return nil, reject("new_game", "the map has no armies for the %s army group", f)
	}
	lead := &gs.Armies[0]
	for i := range gs.Armies {
		if gs.Armies[i].Class == Armored {
			lead = &gs.Armies[i]
			break
		}
	}
	gs.logf("Campaign opened for the %s army group (%s). %s ready at %s.",
		f, mode, lead.Name, e.m.Areas[lead.Location].Name)
	return gs, nil
}

// ResetGame discards the campaign and starts a fresh one with the same
// faction and mode. It is accepted even after the game has ended.
func (e *Engine) ResetGame(gs *GameState) (*GameState, error) {
	next, err := e.NewGame(gs.Faction, gs.Mode)
	if err != nil {
		return gs, err
	}
	next.Version = gs.Version + 1
	next.View = gs.View
	return next, nil
}

// SetView stores the client's camera. It never touches the rules and is
// accepted in any phase.
func (e *Engine) SetView(gs *GameState, v View) (*GameState, error) {
	if v.Scale <= 0 {
		return gs, reject("set_view", "view scale must be positive")
	}
	next := gs.Clone()
	next.View = v
	next.Version++
	return next, nil
}

// AdjustMarkerPool changes the opponent's marker supply. The pool never
// drops below zero.
func (e *Engine) AdjustMarkerPool(gs *GameState, delta int) (*GameState, error) {
	return e.apply(gs, "adjust_pool", func(next *GameState) error {
		if delta == 0 {
			return reject("adjust_pool", "marker pool adjustment must be non-zero")
		}
		next.Solitaire.MarkerPool = max(0, next.Solitaire.MarkerPool+delta)
		next.logf("Soviet marker pool set to %d.", next.Solitaire.MarkerPool)
		return nil
	})
}

// PeekDeck reports a deck's size and top card without drawing.
func (e *Engine) PeekDeck(gs *GameState, name DeckName) (DeckView, error) {
	d := gs.Decks.get(name)
	if d == nil {
		return DeckView{}, reject("peek", "unknown deck %q", name)
	}
	v := DeckView{Name: name, Remaining: len(d.Cards), Discarded: len(d.Discard)}
	if len(d.Cards) > 0 {
		v.Top = e.cards.Card(d.Cards[0])
	}
	return v, nil
}

// apply runs fn against a clone of gs. On error the clone is discarded and
// the caller's state comes back untouched; on success the clone's version
// is bumped.
func (e *Engine) apply(gs *GameState, op string, fn func(next *GameState) error) (*GameState, error) {
	if gs == nil {
		return nil, reject(op, "no campaign in progress")
	}
	if gs.Over() {
		return gs, reject(op, "The campaign is over. Start a new game.")
	}
	next := gs.Clone()
	if err := fn(next); err != nil {
		return gs, err
	}
	next.Version++
	return next, nil
}

// readyForAction checks that a budgeted operation may start.
func (e *Engine) readyForAction(gs *GameState, op string) error {
	if err := e.noInterruption(gs, op); err != nil {
		return err
	}
	if gs.Phase == PhaseTransportSelecting || gs.Phase == PhaseTransportConfiguring {
		return reject(op, "Finish the transport action first.")
	}
	if gs.Solitaire.ActionsLeft < 1 {
		return reject(op, "No actions left this turn.")
	}
	return nil
}

// noInterruption rejects operations while the game waits on a decision.
func (e *Engine) noInterruption(gs *GameState, op string) error {
	switch gs.Phase {
	case PhaseEncounterPending:
		return reject(op, "Resolve the pending encounter first.")
	case PhaseRailheadOffer:
		return reject(op, "Answer the railhead offer first.")
	}
	return nil
}

// spendAction consumes one action and closes any movement continuation.
func (gs *GameState) spendAction() {
	gs.closeMovement()
	gs.Solitaire.ActionsLeft--
}

// settleControl runs the encirclement analyzer and the victory check. It is
// called at the end of every operation that changes area control.
func (e *Engine) settleControl(gs *GameState) {
	if captured := Encircle(gs, e.m, gs.Faction); len(captured) > 0 {
		gs.logf("Encircled and captured: %s.", strings.Join(e.names(captured), ", "))
	}
	e.checkVictory(gs)
}

func (e *Engine) checkVictory(gs *GameState) {
	if gs.Over() {
		return
	}
	for _, id := range e.m.AreaIDs() {
		if !e.m.Areas[id].Victory || !gs.Friendly(id) {
			continue
		}
		gs.Phase = PhaseWon
		gs.Pending = nil
		gs.Transport = nil
		gs.Outcome = &Outcome{
			Result: "won",
			Medals: gs.Ledger.Medals,
			Turn:   gs.Turn,
			Reason: fmt.Sprintf("%s has fallen", e.m.Areas[id].Name),
		}
		gs.logf("VICTORY! %s has fallen on turn %d. Medals: %d.", e.m.Areas[id].Name, gs.Turn, gs.Ledger.Medals)
		return
	}
}

func (e *Engine) names(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = e.m.Areas[id].Name
	}
	return out
}

// draw takes the top card of a deck. When the deck is empty it reshuffles
// the discards if the mode allows it; the front deck always does.
func (e *Engine) draw(gs *GameState, name DeckName) (*Card, bool) {
	d := gs.Decks.get(name)
	if len(d.Cards) == 0 && len(d.Discard) > 0 && (name == DeckFront || gs.Mode.reshuffles()) {
		d.reshuffle(e.rng)
		gs.logf("The %s deck is reshuffled.", name)
	}
	id, ok := d.pop()
	if !ok {
		return nil, false
	}
	return e.cards.Card(id), true
}

func (e *Engine) discard(gs *GameState, c *Card) {
	d := gs.Decks.get(c.Deck)
	d.Discard = append(d.Discard, c.ID)
}
