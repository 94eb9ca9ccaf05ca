package entity

import (
	"time"

	"github.com/google/uuid"
)

// Chatflow is the local mirror of a provider workflow. RemoteId is the
// provider's identifier and is unique.
type Chatflow struct {
	Id              uuid.UUID
	RemoteId        string
	Name            string
	FlowData        string
	Deployed        bool
	IsPublic        bool
	Category        string
	Type            string
	RemoteCreatedAt *time.Time
	RemoteUpdatedAt *time.Time
	SyncedAt        time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SameMirror reports whether every mirrored field matches.
func (c *Chatflow) SameMirror(other *Chatflow) bool {
	return c.RemoteId == other.RemoteId &&
		c.Name == other.Name &&
		c.FlowData == other.FlowData &&
		c.Deployed == other.Deployed &&
		c.IsPublic == other.IsPublic &&
		c.Category == other.Category &&
		c.Type == other.Type &&
		sameInstant(c.RemoteCreatedAt, other.RemoteCreatedAt) &&
		sameInstant(c.RemoteUpdatedAt, other.RemoteUpdatedAt)
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
