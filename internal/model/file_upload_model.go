package model

import (
	"time"

	"github.com/google/uuid"
)

type FileUpload struct {
	FileId          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OriginalName    string     `gorm:"type:text"`
	MimeType        string     `gorm:"type:varchar(255)"`
	MessageId       *uuid.UUID `gorm:"type:uuid"`
	SessionId       uuid.UUID  `gorm:"type:uuid;not null"`
	UserId          string     `gorm:"type:varchar(64);not null"`
	ChatflowId      string     `gorm:"type:varchar(64);not null"`
	Size            int64
	UploadType      string `gorm:"type:varchar(8);not null"`
	ContentHash     string `gorm:"type:varchar(64)"`
	Processed       bool   `gorm:"not null"`
	ProcessingError *string
	UploadedAt      time.Time
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (FileUpload) TableName() string {
	return "file_uploads"
}
