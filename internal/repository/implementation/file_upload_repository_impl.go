package implementation

import (
	"context"
	"errors"
	"time"

	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/mapper"
	"chatproxy-be/internal/model"
	"chatproxy-be/internal/repository/contract"
	"chatproxy-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileUploadRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewFileUploadRepository(db *gorm.DB) contract.FileUploadRepository {
	return &FileUploadRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *FileUploadRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *FileUploadRepositoryImpl) Create(ctx context.Context, upload *entity.FileUpload) error {
	if upload.FileId == uuid.Nil {
		upload.FileId = uuid.New()
	}
	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = time.Now().UTC()
	}
	m := r.mapper.FileUploadToModel(upload)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*upload = *r.mapper.FileUploadToEntity(m)
	return nil
}

func (r *FileUploadRepositoryImpl) LinkMessage(ctx context.Context, fileIds []uuid.UUID, messageId uuid.UUID) error {
	if len(fileIds) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.FileUpload{}).
		Where("file_id IN ? AND message_id IS NULL", fileIds).
		Update("message_id", messageId).Error
}

func (r *FileUploadRepositoryImpl) DeleteUnlinked(ctx context.Context, fileIds []uuid.UUID) error {
	if len(fileIds) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("file_id IN ? AND message_id IS NULL", fileIds).
		Delete(&model.FileUpload{}).Error
}

func (r *FileUploadRepositoryImpl) MarkProcessed(ctx context.Context, fileId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.FileUpload{}).
		Where("file_id = ?", fileId).
		Updates(map[string]interface{}{"processed": true, "processing_error": nil}).Error
}

func (r *FileUploadRepositoryImpl) SetProcessingError(ctx context.Context, fileId uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&model.FileUpload{}).
		Where("file_id = ?", fileId).
		Updates(map[string]interface{}{"processed": false, "processing_error": reason}).Error
}

func (r *FileUploadRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.FileUpload, error) {
	var m model.FileUpload
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.FileUploadToEntity(&m), nil
}

func (r *FileUploadRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.FileUpload, error) {
	var models []*model.FileUpload
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.FileUploadsToEntities(models), nil
}
