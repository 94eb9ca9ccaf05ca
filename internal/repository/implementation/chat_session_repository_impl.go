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

type ChatSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatSessionRepository(db *gorm.DB) contract.ChatSessionRepository {
	return &ChatSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatSessionRepositoryImpl) Create(ctx context.Context, session *entity.ChatSession) error {
	m := r.mapper.ChatSessionToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ChatSessionToEntity(m)
	return nil
}

// TouchLastActivity is last-write-wins.
func (r *ChatSessionRepositoryImpl) TouchLastActivity(ctx context.Context, sessionId uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.ChatSession{}).
		Where("session_id = ?", sessionId).
		Update("last_activity_at", at.UTC()).Error
}

func (r *ChatSessionRepositoryImpl) SetActive(ctx context.Context, sessionId uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&model.ChatSession{}).
		Where("session_id = ?", sessionId).
		Update("is_active", active).Error
}

func (r *ChatSessionRepositoryImpl) Delete(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Delete(&model.ChatSession{}).Error
}

func (r *ChatSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	var m model.ChatSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatSessionToEntity(&m), nil
}

func (r *ChatSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	var models []*model.ChatSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatSession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatSessionToEntity(m)
	}
	return entities, nil
}
