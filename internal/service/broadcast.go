package service

// Event types published for a session.
const (
	EventStateChanged   = "state_changed"
	EventCampaignEnded  = "campaign_ended"
	EventSessionDeleted = "session_deleted"
)

// Broadcaster sends real-time events to connected clients.
// Implemented by the WebSocket hub and the NATS publisher.
type Broadcaster interface {
	BroadcastSessionEvent(sessionID string, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastSessionEvent(string, string, any) {}

// Broadcasters fans one event out to several broadcasters in order.
type Broadcasters []Broadcaster

func (bs Broadcasters) BroadcastSessionEvent(sessionID, eventType string, data any) {
	for _, b := range bs {
		b.BroadcastSessionEvent(sessionID, eventType, data)
	}
}
