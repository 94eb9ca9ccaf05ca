package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/pkg/logger"
	"chatproxy-be/internal/repository/memory"
	"chatproxy-be/internal/repository/specification"
	"chatproxy-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// FileScope bounds dedup: a hash only matches within one user and chatflow.
type FileScope struct {
	UserId     string
	ChatflowId string
}

type IFileDedupIndex interface {
	Lookup(ctx context.Context, contentHash string, scope FileScope) (*entity.FileUpload, error)
	// Register returns the scoped record already holding the candidate's
	// content (reused=true) or stores the candidate as a new record.
	Register(ctx context.Context, candidate *entity.FileUpload) (upload *entity.FileUpload, reused bool, err error)
	// Discard removes records created by Register that no message refers to,
	// so later lookups cannot match them.
	Discard(ctx context.Context, uploads []*entity.FileUpload) error
}

type fileDedupService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *memory.FileHashCache
	group      singleflight.Group
	logger     logger.ILogger
}

func NewFileDedupService(uowFactory unitofwork.RepositoryFactory, cache *memory.FileHashCache, log logger.ILogger) IFileDedupIndex {
	if cache == nil {
		cache = memory.NewFileHashCache(time.Hour)
	}
	return &fileDedupService{
		uowFactory: uowFactory,
		cache:      cache,
		logger:     log,
	}
}

// HashContent is the dedup key of inline upload bytes.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func dedupKey(contentHash string, scope FileScope) string {
	return scope.UserId + "|" + scope.ChatflowId + "|" + contentHash
}

func (s *fileDedupService) Lookup(ctx context.Context, contentHash string, scope FileScope) (*entity.FileUpload, error) {
	if strings.TrimSpace(contentHash) == "" {
		return nil, nil
	}

	repo := s.uowFactory.NewUnitOfWork(ctx).FileUploadRepository()
	key := dedupKey(contentHash, scope)

	if fileId, ok := s.cache.Get(key); ok {
		upload, err := repo.FindOne(ctx, specification.ByFileID{FileID: fileId})
		if err != nil {
			return nil, err
		}
		if upload != nil {
			return upload, nil
		}
		s.cache.Delete(key)
	}

	upload, err := repo.FindOne(ctx,
		specification.ByDedupKey{ContentHash: contentHash, UserID: scope.UserId, ChatflowID: scope.ChatflowId},
		specification.OrderBy{Field: "uploaded_at"},
	)
	if err != nil {
		return nil, err
	}
	if upload != nil {
		s.cache.Save(key, upload.FileId)
	}
	return upload, nil
}

func (s *fileDedupService) Register(ctx context.Context, candidate *entity.FileUpload) (*entity.FileUpload, bool, error) {
	if candidate.ContentHash == "" {
		if err := s.create(ctx, candidate); err != nil {
			return nil, false, err
		}
		return candidate, false, nil
	}

	scope := FileScope{UserId: candidate.UserId, ChatflowId: candidate.ChatflowId}
	key := dedupKey(candidate.ContentHash, scope)

	// Concurrent registrations of one key share a single lookup-or-create.
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		existing, err := s.Lookup(ctx, candidate.ContentHash, scope)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}

		if err := s.create(ctx, candidate); err != nil {
			return nil, err
		}
		s.cache.Save(key, candidate.FileId)
		return candidate, nil
	})
	if err != nil {
		return nil, false, err
	}

	upload := v.(*entity.FileUpload)
	reused := upload != candidate && upload.FileId != candidate.FileId
	if reused {
		s.logger.Debug("FILE_DEDUP", "Upload reused", map[string]interface{}{
			"file_id": upload.FileId,
			"user_id": scope.UserId,
		})
	}
	return upload, reused, nil
}

func (s *fileDedupService) Discard(ctx context.Context, uploads []*entity.FileUpload) error {
	if len(uploads) == 0 {
		return nil
	}

	fileIds := make([]uuid.UUID, 0, len(uploads))
	for _, u := range uploads {
		fileIds = append(fileIds, u.FileId)
		if u.ContentHash != "" {
			s.cache.Delete(dedupKey(u.ContentHash, FileScope{UserId: u.UserId, ChatflowId: u.ChatflowId}))
		}
	}

	repo := s.uowFactory.NewUnitOfWork(ctx).FileUploadRepository()
	if err := repo.DeleteUnlinked(ctx, fileIds); err != nil {
		return fmt.Errorf("discard file uploads: %w", err)
	}
	return nil
}

func (s *fileDedupService) create(ctx context.Context, candidate *entity.FileUpload) error {
	repo := s.uowFactory.NewUnitOfWork(ctx).FileUploadRepository()
	if err := repo.Create(ctx, candidate); err != nil {
		return fmt.Errorf("create file upload: %w", err)
	}
	return nil
}
