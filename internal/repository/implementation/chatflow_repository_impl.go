package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/mapper"
	"chatproxy-be/internal/model"
	"chatproxy-be/internal/repository/contract"
	"chatproxy-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatflowRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatflowMapper
}

func NewChatflowRepository(db *gorm.DB) contract.ChatflowRepository {
	return &ChatflowRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatflowMapper(),
	}
}

func (r *ChatflowRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatflowRepositoryImpl) Create(ctx context.Context, chatflow *entity.Chatflow) error {
	if chatflow.Id == uuid.Nil {
		chatflow.Id = uuid.New()
	}
	m := r.mapper.ToModel(chatflow)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*chatflow = *r.mapper.ToEntity(m)
	return nil
}

func (r *ChatflowRepositoryImpl) UpdateMirror(ctx context.Context, chatflow *entity.Chatflow) error {
	m := r.mapper.ToModel(chatflow)
	m.UpdatedAt = time.Now().UTC()

	res := r.db.WithContext(ctx).Model(m).Select(model.ChatflowMirrorColumns).Updates(m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("chatflow %s: %w", chatflow.RemoteId, gorm.ErrRecordNotFound)
	}

	chatflow.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *ChatflowRepositoryImpl) DeleteByRemoteId(ctx context.Context, remoteId string) error {
	res := r.db.WithContext(ctx).Where("remote_id = ?", remoteId).Delete(&model.Chatflow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("chatflow %s: %w", remoteId, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *ChatflowRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chatflow, error) {
	var m model.Chatflow
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ChatflowRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chatflow, error) {
	var models []*model.Chatflow
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
