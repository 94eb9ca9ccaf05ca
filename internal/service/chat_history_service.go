package service

import (
	"context"
	"fmt"
	"time"

	"chatproxy-be/internal/dto"
	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/pkg/logger"
	"chatproxy-be/internal/repository/specification"
	"chatproxy-be/internal/repository/unitofwork"
	"chatproxy-be/pkg/sessionid"

	"github.com/google/uuid"
)

type IChatHistoryService interface {
	// ResolveSession reuses sessionId when given, otherwise derives a new
	// one. created reports whether a row was inserted.
	ResolveSession(ctx context.Context, userId, chatflowId string, sessionId *uuid.UUID, topic string) (session *entity.ChatSession, created bool, err error)
	// AppendExchange inserts messages in order and bumps the session's
	// last activity, all in one transaction.
	AppendExchange(ctx context.Context, sessionId uuid.UUID, at time.Time, messages ...*entity.ChatMessage) error
	ListSessions(ctx context.Context, userId string, query dto.SessionListQuery) ([]*dto.SessionResponse, error)
	GetMessages(ctx context.Context, userId string, sessionId uuid.UUID) ([]*dto.MessageResponse, error)
	ListSessionFiles(ctx context.Context, userId string, sessionId uuid.UUID) ([]*dto.FileUploadResponse, error)
	DeactivateSession(ctx context.Context, userId string, sessionId uuid.UUID) error
	// DiscardSession drops a session that never received a message.
	DiscardSession(ctx context.Context, sessionId uuid.UUID) error
}

type chatHistoryService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewChatHistoryService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IChatHistoryService {
	return &chatHistoryService{
		uowFactory: uowFactory,
		logger:     log,
	}
}

func (s *chatHistoryService) ResolveSession(ctx context.Context, userId, chatflowId string, sessionId *uuid.UUID, topic string) (*entity.ChatSession, bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ChatSessionRepository()

	var id uuid.UUID
	if sessionId != nil && *sessionId != uuid.Nil {
		id = *sessionId
		existing, err := repo.FindOne(ctx, specification.BySessionID{SessionID: id})
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			if err := checkSessionUsable(existing, userId, chatflowId); err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
	} else {
		id = sessionid.Generate(userId, chatflowId)
	}

	now := time.Now().UTC()
	session := &entity.ChatSession{
		SessionId:      id,
		UserId:         userId,
		ChatflowId:     chatflowId,
		Topic:          topic,
		IsActive:       true,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	if err := repo.Create(ctx, session); err != nil {
		// Lost a race against another request creating the same id.
		existing, findErr := repo.FindOne(ctx, specification.BySessionID{SessionID: id})
		if findErr != nil || existing == nil {
			return nil, false, fmt.Errorf("create session: %w", err)
		}
		if err := checkSessionUsable(existing, userId, chatflowId); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	s.logger.Info("CHAT_HISTORY", "Session created", map[string]interface{}{
		"session_id":  session.SessionId,
		"user_id":     userId,
		"chatflow_id": chatflowId,
	})
	return session, true, nil
}

func checkSessionUsable(session *entity.ChatSession, userId, chatflowId string) error {
	if !session.OwnedBy(userId, chatflowId) {
		return ErrSessionNotFound
	}
	if !session.IsActive {
		return ErrSessionInactive
	}
	return nil
}

func (s *chatHistoryService) AppendExchange(ctx context.Context, sessionId uuid.UUID, at time.Time, messages ...*entity.ChatMessage) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	for _, msg := range messages {
		msg.SessionId = sessionId
		if err := uow.ChatMessageRepository().Create(ctx, msg); err != nil {
			return fmt.Errorf("append %s message: %w", msg.Role, err)
		}
		if err := uow.FileUploadRepository().LinkMessage(ctx, msg.FileIds, msg.Id); err != nil {
			return fmt.Errorf("link uploads: %w", err)
		}
	}

	if err := uow.ChatSessionRepository().TouchLastActivity(ctx, sessionId, at); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	return uow.Commit()
}

func (s *chatHistoryService) ownedSession(ctx context.Context, uow unitofwork.UnitOfWork, userId string, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *chatHistoryService) ListSessions(ctx context.Context, userId string, query dto.SessionListQuery) ([]*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{
		specification.ByUserID{UserID: userId},
		specification.ActiveSessions{},
	}
	if query.ChatflowId != "" {
		specs = append(specs, specification.ByChatflowID{ChatflowID: query.ChatflowId})
	}
	specs = append(specs,
		specification.OrderBy{Field: "last_activity_at", Desc: true},
		specification.Pagination{Limit: query.Limit, Offset: query.Offset},
	)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		res = append(res, &dto.SessionResponse{
			SessionId:      session.SessionId,
			ChatflowId:     session.ChatflowId,
			Topic:          session.Topic,
			IsActive:       session.IsActive,
			CreatedAt:      session.CreatedAt,
			LastActivityAt: session.LastActivityAt,
		})
	}
	return res, nil
}

func (s *chatHistoryService) GetMessages(ctx context.Context, userId string, sessionId uuid.UUID) ([]*dto.MessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.ownedSession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		item := &dto.MessageResponse{
			Id:             msg.Id,
			Role:           msg.Role,
			Content:        msg.Content,
			FileIds:        msg.FileIds,
			HasAttachments: msg.HasAttachments(),
			CreatedAt:      msg.CreatedAt,
		}
		for _, ev := range msg.Metadata {
			item.Metadata = append(item.Metadata, dto.MessageEventResponse{Event: ev.Event, Data: ev.Data})
		}
		res = append(res, item)
	}
	return res, nil
}

func (s *chatHistoryService) ListSessionFiles(ctx context.Context, userId string, sessionId uuid.UUID) ([]*dto.FileUploadResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.ownedSession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	files, err := uow.FileUploadRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "uploaded_at"},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.FileUploadResponse, 0, len(files))
	for _, f := range files {
		res = append(res, &dto.FileUploadResponse{
			FileId:          f.FileId,
			OriginalName:    f.OriginalName,
			MimeType:        f.MimeType,
			MessageId:       f.MessageId,
			Size:            f.Size,
			UploadType:      f.UploadType,
			Processed:       f.Processed,
			ProcessingError: f.ProcessingError,
			UploadedAt:      f.UploadedAt,
		})
	}
	return res, nil
}

// DeactivateSession is a soft delete: history stays, the session no longer
// accepts messages.
func (s *chatHistoryService) DeactivateSession(ctx context.Context, userId string, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.ownedSession(ctx, uow, userId, sessionId); err != nil {
		return err
	}

	return uow.ChatSessionRepository().SetActive(ctx, sessionId, false)
}

func (s *chatHistoryService) DiscardSession(ctx context.Context, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	count, err := uow.ChatMessageRepository().Count(ctx, specification.BySessionID{SessionID: sessionId})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return uow.ChatSessionRepository().Delete(ctx, sessionId)
}
