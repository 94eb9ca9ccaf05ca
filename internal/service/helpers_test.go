package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"chatproxy-be/internal/dto"
	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/pkg/logger"
	"chatproxy-be/internal/repository/contract"
	"chatproxy-be/internal/repository/unitofwork"
	"chatproxy-be/internal/testutil"
	"chatproxy-be/pkg/events"

	"gorm.io/gorm"
)

var errInjected = errors.New("injected failure")

func newTestFactory(t *testing.T) (unitofwork.RepositoryFactory, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	return unitofwork.NewRepositoryFactory(db), db
}

func nopLogger() logger.ILogger {
	return logger.NewNopLogger()
}

// failingFactory makes chatflow writes for selected remote ids fail.
type failingFactory struct {
	unitofwork.RepositoryFactory
	failUpdate map[string]bool
	failCreate map[string]bool
}

func (f *failingFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &failingUoW{UnitOfWork: f.RepositoryFactory.NewUnitOfWork(ctx), f: f}
}

type failingUoW struct {
	unitofwork.UnitOfWork
	f *failingFactory
}

func (u *failingUoW) ChatflowRepository() contract.ChatflowRepository {
	return &failingChatflowRepo{ChatflowRepository: u.UnitOfWork.ChatflowRepository(), f: u.f}
}

type failingChatflowRepo struct {
	contract.ChatflowRepository
	f *failingFactory
}

func (r *failingChatflowRepo) UpdateMirror(ctx context.Context, c *entity.Chatflow) error {
	if r.f.failUpdate[c.RemoteId] {
		return errInjected
	}
	return r.ChatflowRepository.UpdateMirror(ctx, c)
}

func (r *failingChatflowRepo) Create(ctx context.Context, c *entity.Chatflow) error {
	if r.f.failCreate[c.RemoteId] {
		return errInjected
	}
	return r.ChatflowRepository.Create(ctx, c)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEvents) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType())
	}
	return out
}

type recordingNotifier struct {
	mu      sync.Mutex
	results []*dto.SyncResultResponse
}

func (r *recordingNotifier) NotifySync(res *dto.SyncResultResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

type recordingJobs struct {
	mu   sync.Mutex
	jobs []dto.FileUploadJob
}

func (r *recordingJobs) PublishFileUploadJob(_ context.Context, job dto.FileUploadJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}
