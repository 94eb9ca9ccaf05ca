package contract

import (
	"context"

	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/repository/specification"
)

// ChatMessageRepository is append-only.
type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
