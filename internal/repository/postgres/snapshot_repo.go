package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/freeeve/race-to-moscow/internal/model"
)

// SnapshotRepo keeps the per-version campaign history.
type SnapshotRepo struct {
	db *sql.DB
}

// NewSnapshotRepo creates a SnapshotRepo.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Append stores the state reached at version. A second write for the same
// version is ignored so a retried request cannot fork the history.
func (r *SnapshotRepo) Append(ctx context.Context, sessionID string, version int, op, logLine string, state json.RawMessage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO snapshots (session_id, version, op, log_line, state)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, version) DO NOTHING`,
		sessionID, version, op, logLine, []byte(state),
	)
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

// Latest returns the newest snapshot, or nil if the session has none.
func (r *SnapshotRepo) Latest(ctx context.Context, sessionID string) (*model.Snapshot, error) {
	return r.one(ctx,
		`SELECT id, session_id, version, op, log_line, state, created_at
		 FROM snapshots WHERE session_id = $1 ORDER BY version DESC LIMIT 1`,
		sessionID,
	)
}

// At returns the snapshot recorded at exactly version.
func (r *SnapshotRepo) At(ctx context.Context, sessionID string, version int) (*model.Snapshot, error) {
	return r.one(ctx,
		`SELECT id, session_id, version, op, log_line, state, created_at
		 FROM snapshots WHERE session_id = $1 AND version = $2`,
		sessionID, version,
	)
}

func (r *SnapshotRepo) one(ctx context.Context, query string, args ...any) (*model.Snapshot, error) {
	var s model.Snapshot
	var state []byte
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&s.ID, &s.SessionID, &s.Version, &s.Op, &s.LogLine, &state, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find snapshot: %w", err)
	}
	s.State = json.RawMessage(state)
	return &s, nil
}

// List returns the history without state bodies, oldest first.
func (r *SnapshotRepo) List(ctx context.Context, sessionID string) ([]model.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, version, op, log_line, created_at
		 FROM snapshots WHERE session_id = $1 ORDER BY version`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		var s model.Snapshot
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Version, &s.Op, &s.LogLine, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
