package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/freeeve/race-to-moscow/internal/model"
)

// UserRepository defines user data operations.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByProviderID(ctx context.Context, provider, providerID string) (*model.User, error)
	Upsert(ctx context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
}

// SessionRepository defines campaign session operations.
type SessionRepository interface {
	Create(ctx context.Context, ownerID, name, faction, mode string, seed int64) (*model.Session, error)
	FindByID(ctx context.Context, id string) (*model.Session, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Session, error)
	UpdateProgress(ctx context.Context, id string, version, turn, medals int, status string) error
	Delete(ctx context.Context, id string) error
}

// SnapshotRepository keeps the append-only history of campaign states.
type SnapshotRepository interface {
	Append(ctx context.Context, sessionID string, version int, op, logLine string, state json.RawMessage) error
	Latest(ctx context.Context, sessionID string) (*model.Snapshot, error)
	List(ctx context.Context, sessionID string) ([]model.Snapshot, error)
	At(ctx context.Context, sessionID string, version int) (*model.Snapshot, error)
}

// StateCache holds the live campaign state (Redis).
type StateCache interface {
	SetState(ctx context.Context, sessionID string, state json.RawMessage, ttl time.Duration) error
	GetState(ctx context.Context, sessionID string) (json.RawMessage, error)
	DeleteState(ctx context.Context, sessionID string) error
}

// ActivityIndex remembers which sessions a player touched lately (Redis).
type ActivityIndex interface {
	MarkActive(ctx context.Context, ownerID, sessionID string, t time.Time) error
	RecentSessions(ctx context.Context, ownerID string, n int64) ([]string, error)
	Forget(ctx context.Context, ownerID, sessionID string) error
}
