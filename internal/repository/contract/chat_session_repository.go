package contract

import (
	"context"
	"time"

	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	TouchLastActivity(ctx context.Context, sessionId uuid.UUID, at time.Time) error
	SetActive(ctx context.Context, sessionId uuid.UUID, active bool) error
	Delete(ctx context.Context, sessionId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
}
