package campaign

import (
	"strings"
	"testing"
)

// testMapDoc is a small theatre:
//
//	home(gray base) ─rail─ depot(gray) ── south(white sector)
//	   │                     │
//	  road ──────────────────┘
//	  │   │
//	fort  field      (both marked)
//	  │   │
//	   goal          (victory, marked)
const testMapDoc = `
areas:
  - {id: home, name: Home, type: main_supply_base, rail: true, owner: gray, stock: {fuel: 4, ammo: 4, food: 4}}
  - {id: depot, name: Depot, rail: true, owner: gray, stock: {fuel: 1, ammo: 1, food: 1}}
  - {id: road, name: Road}
  - {id: fort, name: Fort, type: fortified, medal: true, soviet_marker: true}
  - {id: field, name: Field, soviet_marker: true}
  - {id: goal, name: Goal, type: victory, soviet_marker: true}
  - {id: south, name: South, restricted: white}
routes:
  - {a: home, b: depot, kind: rail}
  - {a: home, b: road}
  - {a: depot, b: road}
  - {a: road, b: fort}
  - {a: road, b: field}
  - {a: fort, b: goal}
  - {a: field, b: goal}
  - {a: depot, b: south}
armies:
  - {id: panzer, name: Panzer, faction: gray, class: armored, location: home, carry: {fuel: 3, ammo: 2, food: 1}}
  - {id: infantry, name: Infantry, faction: gray, class: field, location: depot, carry: {ammo: 2, food: 2}}
  - {id: other, name: Other, faction: white, class: field, location: depot}
`

const testCardsDoc = `
decks:
  encounter:
    - {id: rifles, name: Rifles, kind: combat, era: 1, cost: {ammo: 1}}
    - {id: tanks, name: Tanks, kind: combat, era: 2, cost: {fuel: 1, ammo: 2}}
    - {id: depot_cache, name: Depot Cache, kind: event, effect: cache, retain: true, delta: {fuel: 2}}
  pursuit:
    - {id: quiet, name: Quiet, kind: event, effect: quiet}
    - {id: supplies, name: Supplies, kind: event, effect: supplies, delta: {ammo: 3}}
    - {id: mud, name: Mud, kind: event, effect: toll, toll: {fuel: 1}}
    - {id: halt, name: Halt, kind: event, effect: halt}
    - {id: partisans, name: Partisans, kind: event, effect: partisans}
    - {id: aux, name: Aux, kind: event, effect: auxiliary, retain: true}
  front:
    - {id: push, name: Push, kind: front, counter_attack: true}
    - {id: reserves, name: Reserves, kind: front}
`

// fixedSource never reorders and answers Intn from a script, then 0.
type fixedSource struct{ picks []int }

func (s *fixedSource) Intn(n int) int {
	if len(s.picks) == 0 {
		return 0
	}
	p := s.picks[0] % n
	s.picks = s.picks[1:]
	return p
}

func (s *fixedSource) Shuffle(int, func(i, j int)) {}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	m, err := LoadMap(strings.NewReader(testMapDoc))
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	cards, err := LoadCards(strings.NewReader(testCardsDoc))
	if err != nil {
		t.Fatalf("LoadCards: %v", err)
	}
	return NewEngine(m, cards, &fixedSource{})
}

func newTestGame(t *testing.T, e *Engine, mode Mode) *GameState {
	t.Helper()
	gs, err := e.NewGame(Gray, mode)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	return gs
}

// stack replaces a deck's draw pile.
func stack(gs *GameState, name DeckName, ids ...string) {
	d := gs.Decks.get(name)
	d.Cards = ids
	d.Discard = nil
}

func mustApply(t *testing.T, gs *GameState, err error) *GameState {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	return gs
}

// expectRejected checks a rejection left the original state in place.
func expectRejected(t *testing.T, before, after *GameState, err error, contains string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected rejection containing %q", contains)
	}
	if !IsRejection(err) {
		t.Fatalf("expected *RuleError, got %T", err)
	}
	if !strings.Contains(err.Error(), contains) {
		t.Errorf("rejection %q does not mention %q", err.Error(), contains)
	}
	if after != before {
		t.Error("rejected operation returned a different state")
	}
}
