package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	SessionId      uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId         string    `gorm:"type:varchar(64);not null"`
	ChatflowId     string    `gorm:"type:varchar(64);not null"`
	Topic          string    `gorm:"type:text"`
	IsActive       bool      `gorm:"not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	LastActivityAt time.Time
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
