package campaign

import (
	"strings"
	"testing"
)

const pocketMapDoc = `
areas:
  - {id: base, owner: gray, type: main_supply_base}
  - {id: x, soviet_marker: true}
  - {id: y, soviet_marker: true}
  - {id: z, soviet_marker: true}
  - {id: w, soviet_marker: true}
  - {id: goal, type: victory, soviet_marker: true}
routes:
  - {a: base, b: x}
  - {a: x, b: y}
  - {a: y, b: goal}
  - {a: base, b: z}
  - {a: z, b: x}
  - {a: z, b: w}
`

func pocketState(t *testing.T) (*Map, *GameState) {
	t.Helper()
	m, err := LoadMap(strings.NewReader(pocketMapDoc))
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	gs := &GameState{Faction: Gray, Turn: 3, Areas: map[string]*AreaState{}}
	for _, id := range m.AreaIDs() {
		a := m.Areas[id]
		gs.Areas[id] = &AreaState{Controller: a.Owner, Marker: a.SovietMarker}
	}
	return m, gs
}

func TestEncircleNothingCutOff(t *testing.T) {
	m, gs := pocketState(t)
	if got := Encircle(gs, m, Gray); len(got) != 0 {
		t.Errorf("captured %v with every marker connected", got)
	}
}

func TestEncircleCapturesPocket(t *testing.T) {
	m, gs := pocketState(t)
	gs.Areas["x"].Marker = false
	gs.Areas["x"].Controller = Gray

	got := Encircle(gs, m, Gray)
	if strings.Join(got, ",") != "w,z" {
		t.Fatalf("captured %v, want [w z]", got)
	}
	for _, id := range got {
		st := gs.Areas[id]
		if st.Marker || st.Controller != Gray || st.CapturedTurn != 3 {
			t.Errorf("%s after capture: %+v", id, st)
		}
	}
	if !gs.Areas["y"].Marker {
		t.Error("y still reaches the goal and must keep its marker")
	}
}

func TestEncircleSparesPartisansAndVictory(t *testing.T) {
	m, gs := pocketState(t)
	gs.Areas["x"].Marker = false
	gs.Areas["x"].Controller = Gray
	gs.Areas["w"].Partisan = true
	gs.Areas["y"].Marker = false
	gs.Areas["y"].Controller = Gray

	got := Encircle(gs, m, Gray)
	if strings.Join(got, ",") != "z" {
		t.Fatalf("captured %v, want [z]", got)
	}
	if !gs.Areas["w"].Marker {
		t.Error("partisan marker must not be encircled")
	}
	if !gs.Areas["goal"].Marker {
		t.Error("victory area must not be encircled")
	}
}

func TestEncircleReportsOneLogLine(t *testing.T) {
	e := newTestEngine(t)
	gs := newTestGame(t, e, ModeStandard)
	gs.Areas["goal"].Marker = false
	gs.Areas["goal"].Controller = White
	before := len(gs.Log)

	e.settleControl(gs)
	if gs.Areas["fort"].Marker || gs.Areas["field"].Marker {
		t.Fatal("fort and field are cut off from every victory area")
	}
	if len(gs.Log) != before+1 || gs.LastLog() != "Encircled and captured: Field, Fort." {
		t.Errorf("log = %q", gs.Log[before:])
	}
	if gs.Ledger.Medals != 1 {
		t.Errorf("medals = %d, want 1 for the fort", gs.Ledger.Medals)
	}
}
