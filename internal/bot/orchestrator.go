package bot

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/race-to-moscow/pkg/campaign"
)

// maxRejections is how many server rejections in a row the orchestrator
// accepts before forcing the turn to end.
const maxRejections = 8

// Orchestrator plays one campaign against a running server. The strategy
// evaluates candidates on a local engine built from the same content; the
// server's answer is always taken as the truth.
type Orchestrator struct {
	client   *Client
	strategy Strategy
	engine   *campaign.Engine
	cfg      ArenaConfig
	events   atomic.Int64
}

// NewOrchestrator creates an Orchestrator for the server at baseURL.
func NewOrchestrator(baseURL string, m *campaign.Map, cards *campaign.CardSet, strategy Strategy, cfg ArenaConfig) *Orchestrator {
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = 20000
	}
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = 40
	}
	name := cfg.Name
	if name == "" {
		name = "bot-" + strategy.Name()
	}
	return &Orchestrator{
		client:   NewClient(name, baseURL),
		strategy: strategy,
		engine:   campaign.NewEngine(m, cards, campaign.NewSource(cfg.Seed)),
		cfg:      cfg,
	}
}

// Run logs in, opens a session, watches it over WebSocket and plays until
// the campaign ends or a cap is hit.
func (o *Orchestrator) Run(ctx context.Context) (*ArenaResult, error) {
	start := time.Now()
	log.Info().Str("strategy", o.strategy.Name()).Int64("seed", o.cfg.Seed).Msg("Starting remote campaign")

	if err := o.client.Login(ctx); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	view, err := o.client.CreateSession(ctx, o.client.Name(), o.cfg.Faction, o.cfg.Mode, o.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	id := view.Session.ID
	log.Info().Str("sessionId", id).Msg("Session created")

	if err := o.client.ConnectWS(ctx); err != nil {
		return nil, fmt.Errorf("ws connect: %w", err)
	}
	defer o.client.CloseWS()
	if err := o.client.Subscribe(id); err != nil {
		return nil, fmt.Errorf("ws subscribe: %w", err)
	}
	go o.countEvents()

	gs, steps, err := o.playLoop(ctx, id, view.State)
	if err != nil {
		return nil, err
	}

	result := &ArenaResult{
		SessionID: id,
		Seed:      o.cfg.Seed,
		Strategy:  o.strategy.Name(),
		Result:    Unfinished,
		Turns:     gs.Turn,
		Medals:    gs.Ledger.Medals,
		Areas:     gs.ControlledCount(gs.Faction),
		Steps:     steps,
		Duration:  time.Since(start),
		Final:     gs,
	}
	if gs.Outcome != nil {
		result.Result, result.Reason = gs.Outcome.Result, gs.Outcome.Reason
	}
	log.Info().Str("sessionId", id).Str("result", result.Result).Int("turns", result.Turns).
		Int64("events", o.events.Load()).Msg("Remote campaign finished")
	return result, nil
}

// playLoop picks a command locally, submits it and adopts the server state.
func (o *Orchestrator) playLoop(ctx context.Context, id string, gs *campaign.GameState) (*campaign.GameState, int, error) {
	dice := NewDice(o.cfg.Seed)
	steps, rejected := 0, 0

	for !gs.Over() && gs.Turn <= o.cfg.MaxTurns && steps < o.cfg.MaxSteps {
		if ctx.Err() != nil {
			log.Info().Msg("Context cancelled, stopping bot")
			return nil, 0, ctx.Err()
		}

		cmd, _, err := o.strategy.Step(o.engine, gs, dice)
		if err != nil {
			return nil, 0, fmt.Errorf("turn %d phase %s: %w", gs.Turn, gs.Phase, err)
		}
		if rejected >= maxRejections {
			cmd = campaign.Command{Op: campaign.OpEndTurn}
		}

		next, err := o.client.Apply(ctx, id, cmd)
		steps++
		switch {
		case err == nil:
			gs, rejected = next, 0
			log.Debug().Str("command", cmd.String()).Str("log", gs.LastLog()).Msg("Bot step")
		case IsRejection(err):
			if rej := err.(*Rejection); rej.State != nil {
				gs = rej.State
			}
			rejected++
			if rejected > maxRejections {
				return nil, 0, fmt.Errorf("server keeps rejecting: %w", err)
			}
			log.Debug().Str("command", cmd.String()).Err(err).Msg("Server rejected bot step")
		default:
			return nil, 0, fmt.Errorf("apply %s: %w", cmd.Op, err)
		}
	}
	return gs, steps, nil
}

func (o *Orchestrator) countEvents() {
	for ev := range o.client.Events() {
		o.events.Add(1)
		log.Trace().Str("type", ev.Type).Str("sessionId", ev.SessionID).Msg("Bot received event")
	}
}
