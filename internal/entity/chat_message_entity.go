package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
	ChatRoleSystem    = "system"
)

// MessageEvent is a non-content stream event kept with the assistant message.
type MessageEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ChatMessage struct {
	Id         uuid.UUID
	SessionId  uuid.UUID
	ChatflowId string
	UserId     string
	Role       string
	Content    string
	Metadata   []MessageEvent
	FileIds    []uuid.UUID
	CreatedAt  time.Time
}

func (m *ChatMessage) HasAttachments() bool {
	return len(m.FileIds) > 0
}
