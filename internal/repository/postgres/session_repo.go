package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/freeeve/race-to-moscow/internal/model"
)

const sessionColumns = `id, owner_id, name, faction, mode, seed, status, version, turn, medals, created_at, updated_at, finished_at`

// SessionRepo stores campaign session metadata.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a SessionRepo.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func scanSession(row scanner) (*model.Session, error) {
	var s model.Session
	var finished sql.NullTime
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Faction, &s.Mode, &s.Seed, &s.Status,
		&s.Version, &s.Turn, &s.Medals, &s.CreatedAt, &s.UpdatedAt, &finished)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		s.FinishedAt = &finished.Time
	}
	return &s, nil
}

// Create inserts a new active session.
func (r *SessionRepo) Create(ctx context.Context, ownerID, name, faction, mode string, seed int64) (*model.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`INSERT INTO sessions (owner_id, name, faction, mode, seed)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+sessionColumns,
		ownerID, name, faction, mode, seed,
	))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// FindByID returns nil, nil when the session does not exist.
func (r *SessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return s, nil
}

// ListByOwner returns the owner's sessions, most recently played first.
func (r *SessionRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE owner_id = $1 ORDER BY updated_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// UpdateProgress records the headline numbers after an accepted operation.
// finished_at is set the first time the status leaves active.
func (r *SessionRepo) UpdateProgress(ctx context.Context, id string, version, turn, medals int, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions
		 SET version = $2, turn = $3, medals = $4, status = $5, updated_at = now(),
		     finished_at = CASE WHEN $5 <> 'active' THEN COALESCE(finished_at, now()) ELSE NULL END
		 WHERE id = $1`,
		id, version, turn, medals, status,
	)
	if err != nil {
		return fmt.Errorf("update session progress: %w", err)
	}
	return nil
}

// Delete removes a session and, through the cascade, its snapshots.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
