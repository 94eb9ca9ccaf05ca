package mapper

import (
	"encoding/json"

	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	return &entity.ChatSession{
		SessionId:      s.SessionId,
		UserId:         s.UserId,
		ChatflowId:     s.ChatflowId,
		Topic:          s.Topic,
		IsActive:       s.IsActive,
		CreatedAt:      s.CreatedAt.UTC(),
		LastActivityAt: s.LastActivityAt.UTC(),
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	return &model.ChatSession{
		SessionId:      s.SessionId,
		UserId:         s.UserId,
		ChatflowId:     s.ChatflowId,
		Topic:          s.Topic,
		IsActive:       s.IsActive,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	var metadata []entity.MessageEvent
	if len(msg.Metadata) > 0 {
		_ = json.Unmarshal(msg.Metadata, &metadata)
	}

	var fileIds []uuid.UUID
	if len(msg.FileIds) > 0 {
		_ = json.Unmarshal(msg.FileIds, &fileIds)
	}

	return &entity.ChatMessage{
		Id:         msg.Id,
		SessionId:  msg.SessionId,
		ChatflowId: msg.ChatflowId,
		UserId:     msg.UserId,
		Role:       msg.Role,
		Content:    msg.Content,
		Metadata:   metadata,
		FileIds:    fileIds,
		CreatedAt:  msg.CreatedAt.UTC(),
	}
}

func (m *ChatMapper) ChatMessagesToEntities(msgs []*model.ChatMessage) []*entity.ChatMessage {
	out := make([]*entity.ChatMessage, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, m.ChatMessageToEntity(msg))
	}
	return out
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	return &model.ChatMessage{
		Id:             msg.Id,
		SessionId:      msg.SessionId,
		ChatflowId:     msg.ChatflowId,
		UserId:         msg.UserId,
		Role:           msg.Role,
		Content:        msg.Content,
		Metadata:       toJSON(len(msg.Metadata), msg.Metadata),
		FileIds:        toJSON(len(msg.FileIds), msg.FileIds),
		HasAttachments: msg.HasAttachments(),
		CreatedAt:      msg.CreatedAt,
	}
}

// File Mappers

func (m *ChatMapper) FileUploadToEntity(f *model.FileUpload) *entity.FileUpload {
	if f == nil {
		return nil
	}

	return &entity.FileUpload{
		FileId:          f.FileId,
		OriginalName:    f.OriginalName,
		MimeType:        f.MimeType,
		MessageId:       f.MessageId,
		SessionId:       f.SessionId,
		UserId:          f.UserId,
		ChatflowId:      f.ChatflowId,
		Size:            f.Size,
		UploadType:      f.UploadType,
		ContentHash:     f.ContentHash,
		Processed:       f.Processed,
		ProcessingError: f.ProcessingError,
		UploadedAt:      f.UploadedAt.UTC(),
		UpdatedAt:       f.UpdatedAt.UTC(),
	}
}

func (m *ChatMapper) FileUploadsToEntities(files []*model.FileUpload) []*entity.FileUpload {
	out := make([]*entity.FileUpload, 0, len(files))
	for _, f := range files {
		out = append(out, m.FileUploadToEntity(f))
	}
	return out
}

func (m *ChatMapper) FileUploadToModel(f *entity.FileUpload) *model.FileUpload {
	if f == nil {
		return nil
	}

	return &model.FileUpload{
		FileId:          f.FileId,
		OriginalName:    f.OriginalName,
		MimeType:        f.MimeType,
		MessageId:       f.MessageId,
		SessionId:       f.SessionId,
		UserId:          f.UserId,
		ChatflowId:      f.ChatflowId,
		Size:            f.Size,
		UploadType:      f.UploadType,
		ContentHash:     f.ContentHash,
		Processed:       f.Processed,
		ProcessingError: f.ProcessingError,
		UploadedAt:      f.UploadedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

func toJSON(n int, v interface{}) datatypes.JSON {
	if n == 0 {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
