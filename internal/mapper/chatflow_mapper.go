package mapper

import (
	"time"

	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/model"
	"chatproxy-be/pkg/flowise"
)

type ChatflowMapper struct{}

func NewChatflowMapper() *ChatflowMapper {
	return &ChatflowMapper{}
}

func (m *ChatflowMapper) ToEntity(c *model.Chatflow) *entity.Chatflow {
	if c == nil {
		return nil
	}

	return &entity.Chatflow{
		Id:              c.Id,
		RemoteId:        c.RemoteId,
		Name:            c.Name,
		FlowData:        c.FlowData,
		Deployed:        c.Deployed,
		IsPublic:        c.IsPublic,
		Category:        c.Category,
		Type:            c.Type,
		RemoteCreatedAt: normalizeRemoteTime(c.RemoteCreatedAt),
		RemoteUpdatedAt: normalizeRemoteTime(c.RemoteUpdatedAt),
		SyncedAt:        c.SyncedAt.UTC(),
		CreatedAt:       c.CreatedAt.UTC(),
		UpdatedAt:       c.UpdatedAt.UTC(),
	}
}

func (m *ChatflowMapper) ToEntities(models []*model.Chatflow) []*entity.Chatflow {
	out := make([]*entity.Chatflow, 0, len(models))
	for _, c := range models {
		out = append(out, m.ToEntity(c))
	}
	return out
}

func (m *ChatflowMapper) ToModel(c *entity.Chatflow) *model.Chatflow {
	if c == nil {
		return nil
	}

	return &model.Chatflow{
		Id:              c.Id,
		RemoteId:        c.RemoteId,
		Name:            c.Name,
		FlowData:        c.FlowData,
		Deployed:        c.Deployed,
		IsPublic:        c.IsPublic,
		Category:        c.Category,
		Type:            c.Type,
		RemoteCreatedAt: normalizeRemoteTime(c.RemoteCreatedAt),
		RemoteUpdatedAt: normalizeRemoteTime(c.RemoteUpdatedAt),
		SyncedAt:        c.SyncedAt.UTC(),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// FromRemote builds the mirror shape of a catalog record. Id and the local
// timestamps are left for the caller.
func (m *ChatflowMapper) FromRemote(c flowise.Chatflow) *entity.Chatflow {
	return &entity.Chatflow{
		RemoteId:        c.ID,
		Name:            c.Name,
		FlowData:        c.FlowData,
		Deployed:        c.IsDeployed(),
		IsPublic:        c.Public(),
		Category:        c.CategoryName(),
		Type:            c.Type,
		RemoteCreatedAt: normalizeRemoteTime(c.CreatedDate),
		RemoteUpdatedAt: normalizeRemoteTime(c.UpdatedDate),
	}
}

// Stores differ in sub-millisecond precision; provider timestamps carry
// milliseconds, so both sides compare at that resolution.
func normalizeRemoteTime(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	n := t.UTC().Truncate(time.Millisecond)
	return &n
}
