package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChatMessage rows are insert-only.
type ChatMessage struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId      uuid.UUID `gorm:"type:uuid;not null"`
	ChatflowId     string    `gorm:"type:varchar(64);not null"`
	UserId         string    `gorm:"type:varchar(64);not null"`
	Role           string    `gorm:"type:varchar(16);not null"`
	Content        string    `gorm:"type:text"`
	Metadata       datatypes.JSON
	FileIds        datatypes.JSON
	HasAttachments bool      `gorm:"not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
