package local

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/freeeve/race-to-moscow/internal/model"
)

func (r sessionRow) model() model.Session {
	return model.Session{
		ID: r.ID, OwnerID: r.OwnerID, Name: r.Name, Faction: r.Faction, Mode: r.Mode,
		Seed: r.Seed, Status: r.Status, Version: r.Version, Turn: r.Turn, Medals: r.Medals,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, FinishedAt: r.FinishedAt,
	}
}

// Sessions adapts the store to repository.SessionRepository.
type Sessions struct{ s *Store }

// Snapshots adapts the store to repository.SnapshotRepository.
type Snapshots struct{ s *Store }

// Users adapts the store to repository.UserRepository.
type Users struct{ *Store }

func (s *Store) Sessions() Sessions   { return Sessions{s} }
func (s *Store) Snapshots() Snapshots { return Snapshots{s} }
func (s *Store) Users() Users         { return Users{s} }

func (u Users) FindByID(ctx context.Context, id string) (*model.User, error) {
	return u.findUser(ctx, id)
}

func (r Sessions) Create(ctx context.Context, ownerID, name, faction, mode string, seed int64) (*model.Session, error) {
	row := sessionRow{
		ID: uuid.NewString(), OwnerID: ownerID, Name: name, Faction: faction, Mode: mode,
		Seed: seed, Status: model.StatusActive, Turn: 1,
	}
	if err := r.s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	m := row.model()
	return &m, nil
}

func (r Sessions) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var row sessionRow
	ok, err := first(r.s.db.WithContext(ctx).Where("id = ?", id), &row)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	m := row.model()
	return &m, nil
}

func (r Sessions) ListByOwner(ctx context.Context, ownerID string) ([]model.Session, error) {
	var rows []sessionRow
	if err := r.s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("updated_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]model.Session, len(rows))
	for i, row := range rows {
		out[i] = row.model()
	}
	return out, nil
}

func (r Sessions) UpdateProgress(ctx context.Context, id string, version, turn, medals int, status string) error {
	return r.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionRow
		ok, err := first(tx.Where("id = ?", id), &row)
		if err != nil {
			return fmt.Errorf("update session progress: %w", err)
		}
		if !ok {
			return fmt.Errorf("update session progress: session %s not found", id)
		}
		row.Version, row.Turn, row.Medals, row.Status = version, turn, medals, status
		switch {
		case status == model.StatusActive:
			row.FinishedAt = nil
		case row.FinishedAt == nil:
			now := time.Now()
			row.FinishedAt = &now
		}
		return tx.Save(&row).Error
	})
}

// Delete removes the session and its history.
func (r Sessions) Delete(ctx context.Context, id string) error {
	return r.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&snapshotRow{}).Error; err != nil {
			return fmt.Errorf("delete snapshots: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&sessionRow{}).Error; err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}

func (r snapshotRow) model(withState bool) model.Snapshot {
	m := model.Snapshot{
		ID: r.ID, SessionID: r.SessionID, Version: r.Version, Op: r.Op,
		LogLine: r.LogLine, CreatedAt: r.CreatedAt,
	}
	if withState {
		m.State = json.RawMessage(r.State)
	}
	return m
}

func (r Snapshots) Append(ctx context.Context, sessionID string, version int, op, logLine string, state json.RawMessage) error {
	row := snapshotRow{
		ID: uuid.NewString(), SessionID: sessionID, Version: version,
		Op: op, LogLine: logLine, State: datatypes.JSON(state),
	}
	err := r.s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

func (r Snapshots) Latest(ctx context.Context, sessionID string) (*model.Snapshot, error) {
	return r.one(r.s.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("version DESC"))
}

func (r Snapshots) At(ctx context.Context, sessionID string, version int) (*model.Snapshot, error) {
	return r.one(r.s.db.WithContext(ctx).Where("session_id = ? AND version = ?", sessionID, version))
}

func (r Snapshots) one(q *gorm.DB) (*model.Snapshot, error) {
	var row snapshotRow
	ok, err := first(q, &row)
	if err != nil {
		return nil, fmt.Errorf("find snapshot: %w", err)
	}
	if !ok {
		return nil, nil
	}
	m := row.model(true)
	return &m, nil
}

func (r Snapshots) List(ctx context.Context, sessionID string) ([]model.Snapshot, error) {
	var rows []snapshotRow
	err := r.s.db.WithContext(ctx).Omit("state").Where("session_id = ?", sessionID).Order("version").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := make([]model.Snapshot, len(rows))
	for i, row := range rows {
		out[i] = row.model(false)
	}
	return out, nil
}
