package campaign

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestNewGameStandardContent(t *testing.T) {
	e := NewStandardEngine(NewSource(7))
	for _, f := range AllFactions() {
		gs, err := e.NewGame(f, ModeStandard)
		if err != nil {
			t.Fatalf("NewGame(%s): %v", f, err)
		}
		for _, a := range gs.Armies {
			if a.Faction != f {
				t.Errorf("%s game holds %s army %s", f, a.Faction, a.ID)
			}
		}
		if gs.Ledger.Trucks != 5 || gs.Ledger.Trains != 3 || gs.Ledger.Stock != (Supplies{20, 20, 20}) {
			t.Errorf("ledger = %+v", gs.Ledger)
		}
		if gs.Solitaire.MarkerPool != 12 || gs.Solitaire.ActionsLeft != ActionsPerTurn {
			t.Errorf("solitaire = %+v", gs.Solitaire)
		}
		if len(gs.Routes) != len(e.Map().Routes) {
			t.Errorf("routes = %d", len(gs.Routes))
		}
	}

	gs, _ := e.NewGame(Gray, ModeHard)
	if gs.Solitaire.MarkerPool != 8 {
		t.Errorf("hard pool = %d", gs.Solitaire.MarkerPool)
	}
	if !strings.Contains(gs.Log[0], "4. Panzergruppe ready at Riga") {
		t.Errorf("opening line = %q", gs.Log[0])
	}

	if _, err := e.NewGame("red", ModeStandard); !IsRejection(err) {
		t.Errorf("unknown faction: %v", err)
	}
	if _, err := e.NewGame(Gray, "nightmare"); !IsRejection(err) {
		t.Errorf("unknown mode: %v", err)
	}
}

func TestSameSeedSameDecks(t *testing.T) {
	a, _ := NewStandardEngine(NewSource(42)).NewGame(White, ModeStandard)
	b, _ := NewStandardEngine(NewSource(42)).NewGame(White, ModeStandard)
	if !reflect.DeepEqual(a.Decks, b.Decks) {
		t.Error("same seed should deal the same decks")
	}
}

func TestCloneIsDeep(t *testing.T) {
	e := newTestEngine(t)
	gs := newTestGame(t, e, ModeStandard)
	gs.Pending = &Encounter{Card: "rifles"}
	c := gs.Clone()

	c.Areas["home"].Stock.Fuel = 99
	c.Armies[0].Carry.Fuel = 99
	c.Decks.Encounter.Cards[0] = "x"
	c.Pending.Card = "y"
	c.Log[0] = "z"
	if gs.Areas["home"].Stock.Fuel == 99 || gs.Armies[0].Carry.Fuel == 99 ||
		gs.Decks.Encounter.Cards[0] == "x" || gs.Pending.Card == "y" || gs.Log[0] == "z" {
		t.Error("clone shares memory with the original")
	}
}

func TestResetGame(t *testing.T) {
	e := newTestEngine(t)
	gs := newTestGame(t, e, ModeHard)
	gs.Phase = PhaseLost
	gs.Turn = 9
	gs.Version = 30
	gs.View = View{Scale: 2, X: 5, Y: 6}

	next, err := e.ResetGame(gs)
	next = mustApply(t, next, err)
	if next.Turn != 1 || next.Phase != PhaseIdle || next.Mode != ModeHard {
		t.Errorf("reset = turn %d, phase %s, mode %s", next.Turn, next.Phase, next.Mode)
	}
	if next.Version != 31 {
		t.Errorf("version = %d, want 31", next.Version)
	}
	if next.View != gs.View {
		t.Error("view preferences survive a reset")
	}
}

func TestAdjustMarkerPool(t *testing.T) {
	e := newTestEngine(t)
	gs := newTestGame(t, e, ModeStandard)

	gs, err := e.AdjustMarkerPool(gs, 3)
	gs = mustApply(t, gs, err)
	if gs.Solitaire.MarkerPool != 15 {
		t.Errorf("pool = %d", gs.Solitaire.MarkerPool)
	}
	gs, err = e.AdjustMarkerPool(gs, -100)
	gs = mustApply(t, gs, err)
	if gs.Solitaire.MarkerPool != 0 {
		t.Errorf("pool = %d, want floor of 0", gs.Solitaire.MarkerPool)
	}
	next, err := e.AdjustMarkerPool(gs, 0)
	expectRejected(t, gs, next, err, "non-zero")
}

func TestPeekDeckDoesNotDraw(t *testing.T) {
	e := newTestEngine(t)
	gs := newTestGame(t, e, ModeStandard)
	stack(gs, DeckPursuit, "mud", "quiet")

	v, err := e.PeekDeck(gs, DeckPursuit)
	if err != nil {
		t.Fatalf("PeekDeck: %v", err)
	}
	if v.Remaining != 2 || v.Top == nil || v.Top.ID != "mud" {
		t.Errorf("view = %+v", v)
	}
	if len(gs.Decks.Pursuit.Cards) != 2 {
		t.Error("peek must not draw")
	}
	if _, err := e.PeekDeck(gs, "graveyard"); err == nil {
		t.Error("unknown deck should be rejected")
	}
}

func TestSetViewIgnoresRules(t *testing.T) {
	e := newTestEngine(t)
	gs := newTestGame(t, e, ModeStandard)
	gs.Phase = PhaseWon
	logLen := len(gs.Log)

	next, err := e.SetView(gs, View{Scale: 1.5, X: 10, Y: -20})
	next = mustApply(t, next, err)
	if next.View.Scale != 1.5 || len(next.Log) != logLen {
		t.Errorf("view = %+v, log grew by %d", next.View, len(next.Log)-logLen)
	}
	bad, err := e.SetView(gs, View{})
	expectRejected(t, gs, bad, err, "positive")
}

func TestSnapshotJSON(t *testing.T) {
	e := newTestEngine(t)
	gs := newTestGame(t, e, ModeStandard)
	data, err := json.Marshal(gs)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, key := range []string{`"areas"`, `"routes"`, `"armies"`, `"ledger"`, `"decks"`, `"log"`, `"view"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("snapshot lacks %s", key)
		}
	}
	var back GameState
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Areas, gs.Areas) || back.Ledger.Stock != gs.Ledger.Stock {
		t.Error("snapshot does not restore the board")
	}
}
