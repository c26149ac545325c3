package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/freeeve/race-to-moscow/internal/model"
)

type mockSessionRepo struct {
	sessions map[string]*model.Session
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, ownerID, name, faction, mode string, seed int64) (*model.Session, error) {
	s := &model.Session{
		ID:        fmt.Sprintf("session-%d", len(m.sessions)+1),
		OwnerID:   ownerID,
		Name:      name,
		Faction:   faction,
		Mode:      mode,
		Seed:      seed,
		Status:    model.StatusActive,
		Turn:      1,
		CreatedAt: time.Now(),
	}
	m.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (m *mockSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockSessionRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Session, error) {
	var out []model.Session
	for _, s := range m.sessions {
		if s.OwnerID == ownerID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockSessionRepo) UpdateProgress(_ context.Context, id string, version, turn, medals int, status string) error {
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	s.Version, s.Turn, s.Medals, s.Status = version, turn, medals, status
	return nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

type mockSnapshotRepo struct {
	snaps map[string][]model.Snapshot
}

func newMockSnapshotRepo() *mockSnapshotRepo {
	return &mockSnapshotRepo{snaps: make(map[string][]model.Snapshot)}
}

func (m *mockSnapshotRepo) Append(_ context.Context, sessionID string, version int, op, logLine string, state json.RawMessage) error {
	for _, s := range m.snaps[sessionID] {
		if s.Version == version {
			return nil
		}
	}
	m.snaps[sessionID] = append(m.snaps[sessionID], model.Snapshot{
		SessionID: sessionID, Version: version, Op: op, LogLine: logLine, State: state,
	})
	return nil
}

func (m *mockSnapshotRepo) Latest(_ context.Context, sessionID string) (*model.Snapshot, error) {
	list := m.snaps[sessionID]
	if len(list) == 0 {
		return nil, nil
	}
	s := list[len(list)-1]
	return &s, nil
}

func (m *mockSnapshotRepo) At(_ context.Context, sessionID string, version int) (*model.Snapshot, error) {
	for _, s := range m.snaps[sessionID] {
		if s.Version == version {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *mockSnapshotRepo) List(_ context.Context, sessionID string) ([]model.Snapshot, error) {
	var out []model.Snapshot
	for _, s := range m.snaps[sessionID] {
		s.State = nil
		out = append(out, s)
	}
	return out, nil
}

type mockCache struct {
	states map[string]json.RawMessage
	ttls   map[string]time.Duration
	gets   int
}

func newMockCache() *mockCache {
	return &mockCache{states: make(map[string]json.RawMessage), ttls: make(map[string]time.Duration)}
}

func (m *mockCache) SetState(_ context.Context, sessionID string, state json.RawMessage, ttl time.Duration) error {
	m.states[sessionID] = state
	m.ttls[sessionID] = ttl
	return nil
}

func (m *mockCache) GetState(_ context.Context, sessionID string) (json.RawMessage, error) {
	m.gets++
	return m.states[sessionID], nil
}

func (m *mockCache) DeleteState(_ context.Context, sessionID string) error {
	delete(m.states, sessionID)
	return nil
}

type sentEvent struct {
	sessionID string
	eventType string
	data      any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (b *recordingBroadcaster) BroadcastSessionEvent(sessionID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{sessionID, eventType, data})
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events {
		out = append(out, e.eventType)
	}
	return out
}

// activityCache is a mockCache that also tracks recently played sessions.
type activityCache struct {
	*mockCache
	recent map[string][]string // owner -> session IDs, most recent first
}

func newActivityCache() *activityCache {
	return &activityCache{mockCache: newMockCache(), recent: make(map[string][]string)}
}

func (a *activityCache) MarkActive(_ context.Context, ownerID, sessionID string, _ time.Time) error {
	a.recent[ownerID] = append([]string{sessionID}, without(a.recent[ownerID], sessionID)...)
	return nil
}

func (a *activityCache) RecentSessions(_ context.Context, ownerID string, n int64) ([]string, error) {
	ids := a.recent[ownerID]
	if int64(len(ids)) > n {
		ids = ids[:n]
	}
	return ids, nil
}

func (a *activityCache) Forget(_ context.Context, ownerID, sessionID string) error {
	a.recent[ownerID] = without(a.recent[ownerID], sessionID)
	delete(a.states, sessionID)
	return nil
}

func without(ids []string, id string) []string {
	var out []string
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
