package contract

import (
	"context"

	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/repository/specification"

	"github.com/google/uuid"
)

type FileUploadRepository interface {
	Create(ctx context.Context, upload *entity.FileUpload) error
	LinkMessage(ctx context.Context, fileIds []uuid.UUID, messageId uuid.UUID) error
	MarkProcessed(ctx context.Context, fileId uuid.UUID) error
	// DeleteUnlinked removes uploads no message refers to yet.
	DeleteUnlinked(ctx context.Context, fileIds []uuid.UUID) error
	SetProcessingError(ctx context.Context, fileId uuid.UUID, reason string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.FileUpload, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.FileUpload, error)
}
