package model

import (
	"time"

	"github.com/google/uuid"
)

type Chatflow struct {
	Id              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RemoteId        string     `gorm:"type:varchar(64);not null"`
	Name            string     `gorm:"type:text;not null"`
	FlowData        string     `gorm:"type:text"`
	Deployed        bool       `gorm:"not null"`
	IsPublic        bool       `gorm:"not null"`
	Category        string     `gorm:"type:varchar(255)"`
	Type            string     `gorm:"type:varchar(32)"`
	RemoteCreatedAt *time.Time
	RemoteUpdatedAt *time.Time
	SyncedAt        time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (Chatflow) TableName() string {
	return "chatflows"
}

// ChatflowMirrorColumns are the columns a sync update may touch.
var ChatflowMirrorColumns = []string{
	"name", "flow_data", "deployed", "is_public", "category", "type",
	"remote_created_at", "remote_updated_at", "synced_at", "updated_at",
}
