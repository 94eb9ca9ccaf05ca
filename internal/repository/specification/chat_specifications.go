package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

type ByUserID struct {
	UserID string
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

type ByChatflowID struct {
	ChatflowID string
}

func (s ByChatflowID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chatflow_id = ?", s.ChatflowID)
}

type ActiveSessions struct{}

func (s ActiveSessions) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true)
}

// ByDedupKey matches uploads sharing content within one user and chatflow.
type ByDedupKey struct {
	ContentHash string
	UserID      string
	ChatflowID  string
}

func (s ByDedupKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("content_hash = ? AND user_id = ? AND chatflow_id = ?", s.ContentHash, s.UserID, s.ChatflowID)
}

type ByFileID struct {
	FileID uuid.UUID
}

func (s ByFileID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("file_id = ?", s.FileID)
}
