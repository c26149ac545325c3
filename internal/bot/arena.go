package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/race-to-moscow/internal/model"
	"github.com/freeeve/race-to-moscow/internal/repository"
	"github.com/freeeve/race-to-moscow/pkg/campaign"
)

// ArenaConfig configures a single headless campaign.
type ArenaConfig struct {
	Name     string
	OwnerID  string // recorded as the session owner when saving
	Faction  string
	Mode     string
	Strategy string
	Seed     int64 // drives both the engine and the strategy
	MaxTurns int   // stop unfinished after this turn; 0 means 40
	MaxSteps int   // hard cap on operations; 0 means 20000
	DryRun   bool  // skip repository writes
}

// ArenaResult describes the outcome of a headless campaign.
type ArenaResult struct {
	SessionID string        `json:"session_id,omitempty"`
	Seed      int64         `json:"seed"`
	Strategy  string        `json:"strategy"`
	Result    string        `json:"result"` // won, lost or unfinished
	Reason    string        `json:"reason,omitempty"`
	Turns     int           `json:"turns"`
	Medals    int           `json:"medals"`
	Areas     int           `json:"areas"`
	Steps     int           `json:"steps"`
	Duration  time.Duration `json:"duration"`

	Final *campaign.GameState `json:"-"`
}

// Unfinished marks a game stopped by a turn or step cap.
const Unfinished = "unfinished"

// RunGame plays one campaign to its end with the configured strategy. When
// the repositories are non-nil and DryRun is false, every accepted state is
// recorded the way the session service records live play.
func RunGame(
	ctx context.Context,
	m *campaign.Map,
	cards *campaign.CardSet,
	cfg ArenaConfig,
	sessions repository.SessionRepository,
	snapshots repository.SnapshotRepository,
) (*ArenaResult, error) {
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = 40
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = 20000
	}
	faction, err := campaign.ParseFaction(cfg.Faction)
	if err != nil {
		return nil, err
	}
	mode, err := campaign.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	strategy, err := StrategyFor(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	save := !cfg.DryRun && sessions != nil && snapshots != nil

	start := time.Now()
	e := campaign.NewEngine(m, cards, campaign.NewSource(cfg.Seed))
	dice := NewDice(cfg.Seed)

	gs, err := e.NewGame(faction, mode)
	if err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}

	result := &ArenaResult{Seed: cfg.Seed, Strategy: strategy.Name(), Result: Unfinished}
	var sess *model.Session
	if save {
		name := cfg.Name
		if name == "" {
			name = fmt.Sprintf("%s bot %d", strategy.Name(), cfg.Seed)
		}
		sess, err = sessions.Create(ctx, cfg.OwnerID, name, string(faction), string(mode), cfg.Seed)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		result.SessionID = sess.ID
		if err := record(ctx, sessions, snapshots, sess.ID, "new_game", gs); err != nil {
			return nil, err
		}
	}

	for !gs.Over() && gs.Turn <= cfg.MaxTurns && result.Steps < cfg.MaxSteps {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		cmd, next, err := strategy.Step(e, gs, dice)
		if err != nil {
			return nil, fmt.Errorf("turn %d phase %s: %w", gs.Turn, gs.Phase, err)
		}
		gs = next
		result.Steps++
		log.Trace().Int64("seed", cfg.Seed).Str("command", cmd.String()).Str("log", gs.LastLog()).Msg("Bot step")

		if save {
			if err := record(ctx, sessions, snapshots, sess.ID, cmd.Op, gs); err != nil {
				return nil, err
			}
		}
	}

	result.Turns = gs.Turn
	result.Medals = gs.Ledger.Medals
	result.Areas = gs.ControlledCount(gs.Faction)
	result.Duration = time.Since(start)
	result.Final = gs
	if gs.Outcome != nil {
		result.Result, result.Reason = gs.Outcome.Result, gs.Outcome.Reason
	}

	log.Debug().Int64("seed", cfg.Seed).Str("strategy", result.Strategy).Str("result", result.Result).
		Int("turns", result.Turns).Int("medals", result.Medals).Int("steps", result.Steps).
		Msg("Bot campaign finished")
	return result, nil
}

func record(ctx context.Context, sessions repository.SessionRepository, snapshots repository.SnapshotRepository, id, op string, gs *campaign.GameState) error {
	raw, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := snapshots.Append(ctx, id, gs.Version, op, gs.LastLog(), raw); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	status := model.StatusActive
	switch gs.Phase {
	case campaign.PhaseWon:
		status = model.StatusWon
	case campaign.PhaseLost:
		status = model.StatusLost
	}
	if err := sessions.UpdateProgress(ctx, id, gs.Version, gs.Turn, gs.Ledger.Medals, status); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}
