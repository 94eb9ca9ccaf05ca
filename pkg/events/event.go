package events

import "time"

const (
	TypeChatflowSyncCompleted = "CHATFLOW_SYNC_COMPLETED"
	TypeChatCompleted         = "CHAT_COMPLETED"
)

// Event is anything publishable on the event bus.
type Event interface {
	// EventType is the subject suffix, e.g. "CHAT_COMPLETED".
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now().UTC()}
}
