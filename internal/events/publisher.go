package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Envelope is the wire form of a session event.
type Envelope struct {
	Node      string          `json:"node"`
	SessionID string          `json:"session_id"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	SentAt    time.Time       `json:"sent_at"`
}

// Publisher implements service.Broadcaster by publishing to NATS.
type Publisher struct {
	nc   *nats.Conn
	node string
}

// NewPublisher creates a Publisher. node identifies this server so its own
// relay can skip what it already delivered locally.
func NewPublisher(nc *nats.Conn, node string) *Publisher {
	return &Publisher{nc: nc, node: node}
}

// BroadcastSessionEvent publishes one event. Failures are logged; the
// operation that produced the event has already been recorded.
func (p *Publisher) BroadcastSessionEvent(sessionID, eventType string, data any) {
	if err := p.Publish(sessionID, eventType, data); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Str("type", eventType).Msg("Failed to publish session event")
	}
}

// Publish is BroadcastSessionEvent with the error returned.
func (p *Publisher) Publish(sessionID, eventType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	env, err := json.Marshal(Envelope{
		Node: p.node, SessionID: sessionID, Type: eventType, Data: raw, SentAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := p.nc.Publish(Subject(sessionID, eventType), env); err != nil {
		return err
	}
	log.Debug().Str("sessionId", sessionID).Str("type", eventType).Msg("Published session event")
	return nil
}
