package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	UploadTypeFile = "file"
	UploadTypeURL  = "url"
)

type FileUpload struct {
	FileId          uuid.UUID
	OriginalName    string
	MimeType        string
	MessageId       *uuid.UUID
	SessionId       uuid.UUID
	UserId          string
	ChatflowId      string
	Size            int64
	UploadType      string
	ContentHash     string
	Processed       bool
	ProcessingError *string
	UploadedAt      time.Time
	UpdatedAt       time.Time
}
