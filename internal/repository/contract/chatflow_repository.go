package contract

import (
	"context"

	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/repository/specification"
)

type ChatflowRepository interface {
	Create(ctx context.Context, chatflow *entity.Chatflow) error
	// UpdateMirror rewrites the mirrored columns of the row with chatflow.Id.
	UpdateMirror(ctx context.Context, chatflow *entity.Chatflow) error
	DeleteByRemoteId(ctx context.Context, remoteId string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chatflow, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chatflow, error)
}
