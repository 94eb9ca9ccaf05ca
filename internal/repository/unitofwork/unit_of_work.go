package unitofwork

import (
	"context"

	"chatproxy-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatflowRepository() contract.ChatflowRepository
	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	FileUploadRepository() contract.FileUploadRepository
}
