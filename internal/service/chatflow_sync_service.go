package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chatproxy-be/internal/dto"
	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/mapper"
	"chatproxy-be/internal/pkg/logger"
	"chatproxy-be/internal/repository/specification"
	"chatproxy-be/internal/repository/unitofwork"
	"chatproxy-be/pkg/events"
	"chatproxy-be/pkg/flowise"
	"chatproxy-be/pkg/lock"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	SyncActionCreate = "create"
	SyncActionUpdate = "update"
	SyncActionDelete = "delete"
)

// ChatflowCatalog is the provider side of a sync. *flowise.Client satisfies it.
type ChatflowCatalog interface {
	ListChatflows(ctx context.Context) ([]flowise.Chatflow, error)
}

// SyncNotifier receives every finished run.
type SyncNotifier interface {
	NotifySync(result *dto.SyncResultResponse)
}

type SyncItemResult struct {
	RemoteId string
	Action   string
	Err      error
}

type SyncResult struct {
	Fetched    int
	Created    int
	Updated    int
	Deleted    int
	Errors     int
	Items      []SyncItemResult
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *SyncResult) record(remoteId, action string, err error) {
	if err != nil {
		r.Errors++
		err = &ReconcileItemError{RemoteId: remoteId, Action: action, Err: err}
	} else {
		switch action {
		case SyncActionCreate:
			r.Created++
		case SyncActionUpdate:
			r.Updated++
		case SyncActionDelete:
			r.Deleted++
		}
	}
	r.Items = append(r.Items, SyncItemResult{RemoteId: remoteId, Action: action, Err: err})
}

func (r *SyncResult) ToResponse() *dto.SyncResultResponse {
	items := make([]dto.SyncItemResponse, 0, len(r.Items))
	for _, it := range r.Items {
		item := dto.SyncItemResponse{RemoteId: it.RemoteId, Action: it.Action}
		if it.Err != nil {
			item.Error = it.Err.Error()
		}
		items = append(items, item)
	}
	return &dto.SyncResultResponse{
		Fetched:    r.Fetched,
		Created:    r.Created,
		Updated:    r.Updated,
		Deleted:    r.Deleted,
		Errors:     r.Errors,
		Items:      items,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

type ChatflowSyncOptions struct {
	// GuardEmptyCatalog refuses to apply an empty catalog over a non-empty
	// mirror. When false an empty catalog deletes every local chatflow.
	GuardEmptyCatalog bool
	// Lock serializes runs across instances. Optional.
	Lock *lock.RedisLock
}

type IChatflowSyncService interface {
	Sync(ctx context.Context) (*SyncResult, error)
	ListChatflows(ctx context.Context, deployedOnly bool) ([]*dto.ChatflowResponse, error)
}

type chatflowSyncService struct {
	uowFactory unitofwork.RepositoryFactory
	catalog    ChatflowCatalog
	events     IEventPublisher
	notifier   SyncNotifier
	mapper     *mapper.ChatflowMapper
	logger     logger.ILogger
	opts       ChatflowSyncOptions

	running sync.Mutex
}

func NewChatflowSyncService(
	uowFactory unitofwork.RepositoryFactory,
	catalog ChatflowCatalog,
	eventPublisher IEventPublisher,
	notifier SyncNotifier,
	log logger.ILogger,
	opts ChatflowSyncOptions,
) IChatflowSyncService {
	if eventPublisher == nil {
		eventPublisher = NewNopEventPublisher()
	}
	return &chatflowSyncService{
		uowFactory: uowFactory,
		catalog:    catalog,
		events:     eventPublisher,
		notifier:   notifier,
		mapper:     mapper.NewChatflowMapper(),
		logger:     log,
		opts:       opts,
	}
}

// Sync mirrors the provider catalog locally. Item failures are counted in
// the result; an error is returned only when the run could not start or the
// catalog could not be fetched, in which case nothing was changed.
func (s *chatflowSyncService) Sync(ctx context.Context) (*SyncResult, error) {
	if !s.running.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.running.Unlock()

	if s.opts.Lock != nil {
		lease, err := s.opts.Lock.TryAcquire(ctx)
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrSyncInProgress
		}
		if err != nil {
			return nil, fmt.Errorf("sync lock: %w", err)
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := lease.Release(releaseCtx); err != nil {
				s.logger.Warn("CHATFLOW_SYNC", "Failed to release sync lock", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	ctx, span := otel.Tracer("chatproxy-be/sync").Start(ctx, "chatflow.sync")
	defer span.End()

	result, err := s.reconcile(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("CHATFLOW_SYNC", "Sync aborted", map[string]interface{}{"error": err})
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("sync.fetched", result.Fetched),
		attribute.Int("sync.created", result.Created),
		attribute.Int("sync.updated", result.Updated),
		attribute.Int("sync.deleted", result.Deleted),
		attribute.Int("sync.errors", result.Errors),
	)

	s.logger.Info("CHATFLOW_SYNC", "Sync finished", map[string]interface{}{
		"fetched":     result.Fetched,
		"created":     result.Created,
		"updated":     result.Updated,
		"deleted":     result.Deleted,
		"errors":      result.Errors,
		"duration_ms": result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	})

	s.announce(ctx, result)
	return result, nil
}

func (s *chatflowSyncService) reconcile(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{StartedAt: time.Now().UTC()}

	remote, err := s.catalog.ListChatflows(ctx)
	if err != nil {
		return nil, &ReconcileFetchError{Err: err}
	}
	result.Fetched = len(remote)

	local, err := s.uowFactory.NewUnitOfWork(ctx).ChatflowRepository().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local chatflows: %w", err)
	}

	if len(remote) == 0 && len(local) > 0 && s.opts.GuardEmptyCatalog {
		return nil, ErrSuspiciousEmptyCatalog
	}

	byRemoteId := make(map[string]*entity.Chatflow, len(local))
	for _, c := range local {
		byRemoteId[c.RemoteId] = c
	}

	seen := make(map[string]struct{}, len(remote))
	for _, item := range remote {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if item.ID == "" {
			result.record("", SyncActionCreate, errors.New("catalog entry has no id"))
			continue
		}
		if _, dup := seen[item.ID]; dup {
			// First occurrence wins.
			result.record(item.ID, SyncActionUpdate, errors.New("duplicate catalog id"))
			continue
		}
		seen[item.ID] = struct{}{}

		wanted := s.mapper.FromRemote(item)
		existing, ok := byRemoteId[item.ID]
		switch {
		case !ok:
			result.record(item.ID, SyncActionCreate, s.createOne(ctx, wanted))
		case !existing.SameMirror(wanted):
			wanted.Id = existing.Id
			result.record(item.ID, SyncActionUpdate, s.updateOne(ctx, wanted))
		}
	}

	for _, c := range local {
		if _, ok := seen[c.RemoteId]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.record(c.RemoteId, SyncActionDelete, s.deleteOne(ctx, c.RemoteId))
	}

	for _, it := range result.Items {
		if it.Err != nil {
			s.logger.Warn("CHATFLOW_SYNC", "Chatflow not reconciled", map[string]interface{}{
				"remote_id": it.RemoteId,
				"action":    it.Action,
				"error":     it.Err.Error(),
			})
		}
	}

	result.FinishedAt = time.Now().UTC()
	return result, nil
}

func (s *chatflowSyncService) createOne(ctx context.Context, c *entity.Chatflow) error {
	c.SyncedAt = time.Now().UTC()
	return s.uowFactory.NewUnitOfWork(ctx).ChatflowRepository().Create(ctx, c)
}

func (s *chatflowSyncService) updateOne(ctx context.Context, c *entity.Chatflow) error {
	c.SyncedAt = time.Now().UTC()
	return s.uowFactory.NewUnitOfWork(ctx).ChatflowRepository().UpdateMirror(ctx, c)
}

func (s *chatflowSyncService) deleteOne(ctx context.Context, remoteId string) error {
	return s.uowFactory.NewUnitOfWork(ctx).ChatflowRepository().DeleteByRemoteId(ctx, remoteId)
}

func (s *chatflowSyncService) announce(ctx context.Context, result *SyncResult) {
	res := result.ToResponse()

	ev := events.New(events.TypeChatflowSyncCompleted, map[string]interface{}{
		"fetched":     res.Fetched,
		"created":     res.Created,
		"updated":     res.Updated,
		"deleted":     res.Deleted,
		"errors":      res.Errors,
		"started_at":  res.StartedAt,
		"finished_at": res.FinishedAt,
	})
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.events.Publish(pubCtx, ev); err != nil {
		s.logger.Warn("CHATFLOW_SYNC", "Failed to publish sync event", map[string]interface{}{"error": err.Error()})
	}

	if s.notifier != nil {
		s.notifier.NotifySync(res)
	}
}

func (s *chatflowSyncService) ListChatflows(ctx context.Context, deployedOnly bool) ([]*dto.ChatflowResponse, error) {
	specs := []specification.Specification{specification.OrderBy{Field: "name"}}
	if deployedOnly {
		specs = append(specs, specification.DeployedOnly{})
	}

	flows, err := s.uowFactory.NewUnitOfWork(ctx).ChatflowRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ChatflowResponse, 0, len(flows))
	for _, c := range flows {
		res = append(res, &dto.ChatflowResponse{
			Id:              c.Id,
			RemoteId:        c.RemoteId,
			Name:            c.Name,
			Deployed:        c.Deployed,
			IsPublic:        c.IsPublic,
			Category:        c.Category,
			Type:            c.Type,
			RemoteUpdatedAt: c.RemoteUpdatedAt,
			SyncedAt:        c.SyncedAt,
		})
	}
	return res, nil
}
