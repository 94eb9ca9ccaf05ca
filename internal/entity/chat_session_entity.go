package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	SessionId      uuid.UUID
	UserId         string
	ChatflowId     string
	Topic          string
	IsActive       bool
	CreatedAt      time.Time
	LastActivityAt time.Time
}

func (s *ChatSession) OwnedBy(userId, chatflowId string) bool {
	return s.UserId == userId && s.ChatflowId == chatflowId
}
