package dto

import (
	"time"

	"github.com/google/uuid"
)

type ChatflowResponse struct {
	Id              uuid.UUID  `json:"id"`
	RemoteId        string     `json:"remote_id"`
	Name            string     `json:"name"`
	Deployed        bool       `json:"deployed"`
	IsPublic        bool       `json:"is_public"`
	Category        string     `json:"category,omitempty"`
	Type            string     `json:"type,omitempty"`
	RemoteUpdatedAt *time.Time `json:"remote_updated_at,omitempty"`
	SyncedAt        time.Time  `json:"synced_at"`
}

type SyncItemResponse struct {
	RemoteId string `json:"remote_id"`
	Action   string `json:"action"`
	Error    string `json:"error,omitempty"`
}

type SyncResultResponse struct {
	Fetched    int                `json:"fetched"`
	Created    int                `json:"created"`
	Updated    int                `json:"updated"`
	Deleted    int                `json:"deleted"`
	Errors     int                `json:"errors"`
	Items      []SyncItemResponse `json:"items"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}
