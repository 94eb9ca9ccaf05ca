package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ChatStreamRequest struct {
	ChatflowId string          `json:"chatflow_id" validate:"required,max=64"`
	Question   string          `json:"question" validate:"required"`
	SessionId  *uuid.UUID      `json:"session_id,omitempty"`
	Topic      string          `json:"topic,omitempty" validate:"max=255"`
	Uploads    []UploadRequest `json:"uploads,omitempty" validate:"max=10,dive"`
}

// UploadRequest is either inline base64 ("file") or a link ("url").
type UploadRequest struct {
	Type string `json:"type" validate:"required,oneof=file url"`
	Name string `json:"name" validate:"required,max=255"`
	Mime string `json:"mime" validate:"required,max=255"`
	Data string `json:"data" validate:"required"`
}

// SessionListQuery filters and pages GET /sessions.
type SessionListQuery struct {
	ChatflowId string `query:"chatflow_id"`
	Limit      int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset     int    `query:"offset" validate:"omitempty,min=0"`
}

type SessionResponse struct {
	SessionId      uuid.UUID `json:"session_id"`
	ChatflowId     string    `json:"chatflow_id"`
	Topic          string    `json:"topic"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

type MessageEventResponse struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type MessageResponse struct {
	Id             uuid.UUID              `json:"id"`
	Role           string                 `json:"role"`
	Content        string                 `json:"content"`
	Metadata       []MessageEventResponse `json:"metadata,omitempty"`
	FileIds        []uuid.UUID            `json:"file_ids,omitempty"`
	HasAttachments bool                   `json:"has_attachments"`
	CreatedAt      time.Time              `json:"created_at"`
}

type FileUploadResponse struct {
	FileId          uuid.UUID  `json:"file_id"`
	OriginalName    string     `json:"original_name"`
	MimeType        string     `json:"mime_type"`
	MessageId       *uuid.UUID `json:"message_id,omitempty"`
	Size            int64      `json:"size"`
	UploadType      string     `json:"upload_type"`
	Processed       bool       `json:"processed"`
	ProcessingError *string    `json:"processing_error,omitempty"`
	UploadedAt      time.Time  `json:"uploaded_at"`
}

// FileUploadJob is the payload of FILE_UPLOAD_PROCESS messages.
type FileUploadJob struct {
	FileId    uuid.UUID `json:"file_id"`
	SessionId uuid.UUID `json:"session_id"`
	UserId    string    `json:"user_id"`
}
