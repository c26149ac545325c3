package model

import (
	"encoding/json"
	"time"
)

// User represents a registered user.
type User struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ProviderID  string    `json:"provider_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Session status values.
const (
	StatusActive = "active"
	StatusWon    = "won"
	StatusLost   = "lost"
)

// Session is one solitaire campaign owned by a user.
type Session struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Name       string     `json:"name"`
	Faction    string     `json:"faction"`
	Mode       string     `json:"mode"`
	Seed       int64      `json:"seed"`
	Status     string     `json:"status"`
	Version    int        `json:"version"`
	Turn       int        `json:"turn"`
	Medals     int        `json:"medals"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Snapshot is the campaign state recorded after one accepted operation.
type Snapshot struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Version   int             `json:"version"`
	Op        string          `json:"op"`
	LogLine   string          `json:"log_line"`
	State     json.RawMessage `json:"state,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
