package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/freeeve/race-to-moscow/internal/model"
	"github.com/freeeve/race-to-moscow/internal/repository"
	"github.com/freeeve/race-to-moscow/pkg/campaign"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotOwner        = errors.New("you do not own this session")
	ErrSessionFinished = errors.New("session is finished")
	ErrNoSnapshot      = errors.New("session has no recorded state")
	ErrInvalidSession  = errors.New("invalid session parameters")
)

// StateEvent is the payload broadcast after every accepted operation.
type StateEvent struct {
	Op      string              `json:"op"`
	Version int                 `json:"version"`
	LogLine string              `json:"log_line"`
	State   *campaign.GameState `json:"state"`
}

// SessionService owns the campaign lifecycle: it serialises operations per
// session, runs them through the rules engine, records every accepted state
// and tells subscribers about it.
type SessionService struct {
	engine      *campaign.Engine
	sessions    repository.SessionRepository
	snapshots   repository.SnapshotRepository
	cache       repository.StateCache
	activity    repository.ActivityIndex
	broadcaster Broadcaster
	stateTTL    time.Duration
	metrics     *counters
	now         func() time.Time

	// locks holds one *sync.Mutex per session ID.
	locks sync.Map
}

// NewSessionService creates a SessionService. cache may be nil, in which case
// every load reads the latest snapshot. A cache that also implements
// repository.ActivityIndex keeps each player's recent sessions.
func NewSessionService(
	engine *campaign.Engine,
	sessions repository.SessionRepository,
	snapshots repository.SnapshotRepository,
	cache repository.StateCache,
	broadcaster Broadcaster,
	stateTTL time.Duration,
) *SessionService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	activity, _ := cache.(repository.ActivityIndex)
	metrics, err := newCounters(otel.GetMeterProvider())
	if err != nil {
		log.Warn().Err(err).Msg("Session metrics partially disabled")
	}
	return &SessionService{
		activity:    activity,
		engine:      engine,
		sessions:    sessions,
		snapshots:   snapshots,
		cache:       cache,
		broadcaster: broadcaster,
		stateTTL:    stateTTL,
		metrics:     metrics,
		now:         time.Now,
	}
}

// SetMeterProvider recreates the service instruments on mp. Without it the
// service reports through the global provider.
func (s *SessionService) SetMeterProvider(mp metric.MeterProvider) error {
	c, err := newCounters(mp)
	s.metrics = c
	return err
}

func (s *SessionService) lock(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// engineFor returns an engine whose random draws depend only on the session
// seed and the version being produced, so a session replays identically.
func (s *SessionService) engineFor(seed int64, version int) *campaign.Engine {
	return campaign.NewEngine(s.engine.Map(), s.engine.Cards(), campaign.NewSource(operationSeed(seed, version)))
}

func operationSeed(seed int64, version int) int64 {
	return int64(uint64(seed) ^ uint64(version+1)*0x9E3779B97F4A7C15)
}

// CreateSession opens a new campaign for ownerID. A zero seed picks one from
// the clock.
func (s *SessionService) CreateSession(ctx context.Context, ownerID, name, faction, mode string, seed int64) (*model.Session, *campaign.GameState, error) {
	f, err := campaign.ParseFaction(faction)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	m, err := campaign.ParseMode(mode)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("%s army group", strings.ToUpper(string(f[:1]))+string(f[1:]))
	}
	if seed == 0 {
		seed = s.now().UnixNano()
	}

	gs, err := s.engineFor(seed, 0).NewGame(f, m)
	if err != nil {
		return nil, nil, err
	}

	sess, err := s.sessions.Create(ctx, ownerID, name, string(f), string(m), seed)
	if err != nil {
		return nil, nil, err
	}
	if err := s.record(ctx, sess, "new_game", gs); err != nil {
		return nil, nil, err
	}
	sess.Version, sess.Turn = gs.Version, gs.Turn
	s.touch(ctx, sess)

	log.Info().Str("sessionId", sess.ID).Str("ownerId", ownerID).
		Str("faction", sess.Faction).Str("mode", sess.Mode).Int64("seed", seed).
		Msg("Campaign created")
	return sess, gs, nil
}

// GetSession returns the session and its live state.
func (s *SessionService) GetSession(ctx context.Context, sessionID, userID string) (*model.Session, *campaign.GameState, error) {
	sess, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, nil, err
	}
	gs, err := s.loadState(ctx, sess)
	if err != nil {
		return nil, nil, err
	}
	return sess, gs, nil
}

// ListSessions returns the user's campaigns, most recent first.
func (s *SessionService) ListSessions(ctx context.Context, userID string) ([]model.Session, error) {
	return s.sessions.ListByOwner(ctx, userID)
}

// RecentSessions returns up to n of the user's sessions, the most recently
// played first. Without an activity index it falls back to the store order.
func (s *SessionService) RecentSessions(ctx context.Context, userID string, n int) ([]model.Session, error) {
	if n <= 0 {
		return []model.Session{}, nil
	}
	if s.activity != nil {
		ids, err := s.activity.RecentSessions(ctx, userID, int64(n))
		if err == nil {
			out := make([]model.Session, 0, len(ids))
			for _, id := range ids {
				sess, err := s.sessions.FindByID(ctx, id)
				if err != nil {
					return nil, err
				}
				if sess != nil && sess.OwnerID == userID {
					out = append(out, *sess)
				}
			}
			return out, nil
		}
		log.Warn().Err(err).Str("userId", userID).Msg("Activity index unavailable, listing from store")
	}
	list, err := s.sessions.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(list) > n {
		list = list[:n]
	}
	return list, nil
}

// History returns the operation log of a session without state bodies.
func (s *SessionService) History(ctx context.Context, sessionID, userID string) ([]model.Snapshot, error) {
	if _, err := s.owned(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	return s.snapshots.List(ctx, sessionID)
}

// StateAt returns the state recorded at a past version.
func (s *SessionService) StateAt(ctx context.Context, sessionID, userID string, version int) (*campaign.GameState, error) {
	if _, err := s.owned(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	snap, err := s.snapshots.At(ctx, sessionID, version)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return decodeState(snap.State)
}

// PeekDeck reports a deck's counts and top card without drawing.
func (s *SessionService) PeekDeck(ctx context.Context, sessionID, userID, deck string) (campaign.DeckView, error) {
	_, gs, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return campaign.DeckView{}, err
	}
	return s.engine.PeekDeck(gs, campaign.DeckName(deck))
}

// Decisions lists the answers the pending encounter accepts.
func (s *SessionService) Decisions(gs *campaign.GameState) []campaign.Decision {
	return s.engine.Decisions(gs)
}

// Apply runs one operation against the session's current state. Rule
// rejections come back as *campaign.RuleError with the unchanged state.
func (s *SessionService) Apply(ctx context.Context, sessionID, userID string, cmd campaign.Command) (*campaign.GameState, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	sess, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.StatusActive && !allowedWhenFinished(cmd.Op) {
		return nil, ErrSessionFinished
	}
	gs, err := s.loadState(ctx, sess)
	if err != nil {
		return nil, err
	}

	next, err := s.engineFor(sess.Seed, gs.Version).Execute(gs, cmd)
	if err != nil {
		if campaign.IsRejection(err) {
			s.metrics.operation(ctx, cmd.Op, "rejected")
			log.Debug().Str("sessionId", sessionID).Str("op", cmd.Op).Err(err).Msg("Operation rejected")
			return gs, err
		}
		return nil, err
	}

	wasActive := sess.Status == model.StatusActive
	if err := s.record(ctx, sess, cmd.Op, next); err != nil {
		return nil, err
	}
	s.metrics.operation(ctx, cmd.Op, "applied")
	s.touch(ctx, sess)

	log.Info().Str("sessionId", sessionID).Str("op", cmd.Op).Str("command", cmd.String()).
		Int("version", next.Version).Str("phase", string(next.Phase)).
		Msg("Operation applied")

	s.broadcaster.BroadcastSessionEvent(sessionID, EventStateChanged, StateEvent{
		Op: cmd.Op, Version: next.Version, LogLine: next.LastLog(), State: next,
	})
	if wasActive && next.Over() {
		s.metrics.campaignFinished(ctx, string(next.Phase))
		s.broadcaster.BroadcastSessionEvent(sessionID, EventCampaignEnded, next.Outcome)
		log.Info().Str("sessionId", sessionID).Str("result", string(next.Phase)).
			Int("turn", next.Turn).Int("medals", next.Ledger.Medals).
			Msg("Campaign finished")
	}
	return next, nil
}

// DeleteSession removes a campaign and its history.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID, userID string) error {
	unlock := s.lock(sessionID)
	defer unlock()

	sess, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	if s.activity != nil {
		if err := s.activity.Forget(ctx, sess.OwnerID, sessionID); err != nil {
			log.Warn().Err(err).Str("sessionId", sessionID).Msg("Failed to drop session activity")
		}
	} else if s.cache != nil {
		if err := s.cache.DeleteState(ctx, sessionID); err != nil {
			log.Warn().Err(err).Str("sessionId", sessionID).Msg("Failed to drop cached state")
		}
	}
	s.locks.Delete(sessionID)
	s.broadcaster.BroadcastSessionEvent(sessionID, EventSessionDeleted, nil)
	log.Info().Str("sessionId", sessionID).Msg("Campaign deleted")
	return nil
}

// Authorize reports whether userID may watch or play sessionID.
func (s *SessionService) Authorize(ctx context.Context, sessionID, userID string) error {
	_, err := s.owned(ctx, sessionID, userID)
	return err
}

// allowedWhenFinished lists operations the engine accepts after the end.
func allowedWhenFinished(op string) bool {
	return op == campaign.OpReset || op == campaign.OpSetView
}

func (s *SessionService) owned(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.OwnerID != userID {
		return nil, ErrNotOwner
	}
	return sess, nil
}

func (s *SessionService) touch(ctx context.Context, sess *model.Session) {
	if s.activity == nil {
		return
	}
	if err := s.activity.MarkActive(ctx, sess.OwnerID, sess.ID, s.now()); err != nil {
		log.Warn().Err(err).Str("sessionId", sess.ID).Msg("Failed to mark session active")
	}
}

// loadState reads the live state from the cache, falling back to the latest
// snapshot and rewarming the cache on a miss.
func (s *SessionService) loadState(ctx context.Context, sess *model.Session) (*campaign.GameState, error) {
	if s.cache != nil {
		raw, err := s.cache.GetState(ctx, sess.ID)
		if err != nil {
			log.Warn().Err(err).Str("sessionId", sess.ID).Msg("State cache read failed, using snapshot")
		} else if raw != nil {
			gs, err := decodeState(raw)
			if err == nil && gs.Version == sess.Version {
				return gs, nil
			}
			log.Warn().Str("sessionId", sess.ID).Int("want", sess.Version).Msg("Stale or unreadable cached state, using snapshot")
		}
		s.metrics.missedCache(ctx)
	}

	snap, err := s.snapshots.Latest(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	gs, err := decodeState(snap.State)
	if err != nil {
		return nil, err
	}
	s.cacheState(ctx, sess.ID, snap.State)
	return gs, nil
}

// record persists gs as the session's newest state.
func (s *SessionService) record(ctx context.Context, sess *model.Session, op string, gs *campaign.GameState) error {
	raw, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.snapshots.Append(ctx, sess.ID, gs.Version, op, gs.LastLog(), raw); err != nil {
		return err
	}
	status := statusOf(gs)
	if err := s.sessions.UpdateProgress(ctx, sess.ID, gs.Version, gs.Turn, gs.Ledger.Medals, status); err != nil {
		return err
	}
	sess.Version, sess.Turn, sess.Medals, sess.Status = gs.Version, gs.Turn, gs.Ledger.Medals, status
	s.cacheState(ctx, sess.ID, raw)
	return nil
}

func (s *SessionService) cacheState(ctx context.Context, sessionID string, raw json.RawMessage) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetState(ctx, sessionID, raw, s.stateTTL); err != nil {
		log.Warn().Err(err).Str("sessionId", sessionID).Msg("Failed to cache state")
	}
}

func statusOf(gs *campaign.GameState) string {
	switch gs.Phase {
	case campaign.PhaseWon:
		return model.StatusWon
	case campaign.PhaseLost:
		return model.StatusLost
	}
	return model.StatusActive
}

func decodeState(raw json.RawMessage) (*campaign.GameState, error) {
	var gs campaign.GameState
	if err := json.Unmarshal(raw, &gs); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &gs, nil
}
