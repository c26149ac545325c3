package bot

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/freeeve/race-to-moscow/internal/model"
	"github.com/freeeve/race-to-moscow/internal/repository/local"
	"github.com/freeeve/race-to-moscow/pkg/campaign"
)

func dryRun(t *testing.T, strategy string, seed int64, turns int) *ArenaResult {
	t.Helper()
	res, err := RunGame(context.Background(), campaign.StandardMap(), campaign.StandardCards(), ArenaConfig{
		Faction: "gray", Mode: "standard", Strategy: strategy, Seed: seed, MaxTurns: turns, DryRun: true,
	}, nil, nil)
	if err != nil {
		t.Fatalf("%s seed %d: %v", strategy, seed, err)
	}
	return res
}

func TestRunGameDryRun(t *testing.T) {
	for _, name := range Names() {
		for seed := int64(1); seed <= 3; seed++ {
			res := dryRun(t, name, seed, 8)
			if res.Steps == 0 {
				t.Errorf("%s seed %d: no steps", name, seed)
			}
			switch res.Result {
			case "won", "lost":
				if !res.Final.Over() {
					t.Errorf("%s seed %d: result %s but game not over", name, seed, res.Result)
				}
			case Unfinished:
				if res.Turns <= 8 && res.Steps < 20000 {
					t.Errorf("%s seed %d: stopped early at turn %d", name, seed, res.Turns)
				}
			default:
				t.Errorf("%s seed %d: unexpected result %q", name, seed, res.Result)
			}
			if res.Final.Version != res.Steps {
				t.Errorf("%s seed %d: version %d after %d steps", name, seed, res.Final.Version, res.Steps)
			}
		}
	}
}

func TestRunGameDeterministic(t *testing.T) {
	a := dryRun(t, "greedy", 11, 6)
	b := dryRun(t, "greedy", 11, 6)
	if a.Steps != b.Steps || a.Result != b.Result || a.Medals != b.Medals || a.Turns != b.Turns {
		t.Errorf("same seed diverged: %+v vs %+v", a, b)
	}
	if a.Final.LastLog() != b.Final.LastLog() {
		t.Errorf("final log differs: %q vs %q", a.Final.LastLog(), b.Final.LastLog())
	}
}

func TestRunGameBadConfig(t *testing.T) {
	ctx := context.Background()
	m, cards := campaign.StandardMap(), campaign.StandardCards()
	for _, cfg := range []ArenaConfig{
		{Faction: "red", Strategy: "greedy", DryRun: true},
		{Faction: "gray", Mode: "nightmare", DryRun: true},
		{Faction: "gray", Strategy: "oracle", DryRun: true},
	} {
		if _, err := RunGame(ctx, m, cards, cfg, nil, nil); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}

func TestRunGameCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunGame(ctx, campaign.StandardMap(), campaign.StandardCards(), ArenaConfig{
		Faction: "gray", Strategy: "random", Seed: 1, DryRun: true,
	}, nil, nil)
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunGameRecords(t *testing.T) {
	store, err := local.Open("", zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	res, err := RunGame(ctx, campaign.StandardMap(), campaign.StandardCards(), ArenaConfig{
		OwnerID: "bot-runner", Faction: "gray", Mode: "hard", Strategy: "greedy", Seed: 4, MaxTurns: 4,
	}, store.Sessions(), store.Snapshots())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.SessionID == "" {
		t.Fatal("expected a recorded session")
	}

	sess, err := store.Sessions().FindByID(ctx, res.SessionID)
	if err != nil || sess == nil {
		t.Fatalf("find session: %v", err)
	}
	if sess.Version != res.Final.Version || sess.Mode != "hard" || sess.Seed != 4 {
		t.Errorf("session = %+v", sess)
	}
	wantStatus := model.StatusActive
	switch res.Result {
	case "won":
		wantStatus = model.StatusWon
	case "lost":
		wantStatus = model.StatusLost
	}
	if sess.Status != wantStatus {
		t.Errorf("status %s, result %s", sess.Status, res.Result)
	}

	snaps, err := store.Snapshots().List(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(snaps) != res.Steps+1 {
		t.Errorf("expected %d snapshots, got %d", res.Steps+1, len(snaps))
	}
	if snaps[0].Op != "new_game" {
		t.Errorf("first snapshot op = %s", snaps[0].Op)
	}
}
