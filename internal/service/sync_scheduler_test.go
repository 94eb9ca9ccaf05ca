package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"chatproxy-be/internal/dto"

	"github.com/stretchr/testify/assert"
)

type countingSync struct {
	calls atomic.Int32
	err   error
}

func (c *countingSync) Sync(context.Context) (*SyncResult, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &SyncResult{}, nil
}

func (c *countingSync) ListChatflows(context.Context, bool) ([]*dto.ChatflowResponse, error) {
	return nil, nil
}

func TestSchedulerStartupOnly(t *testing.T) {
	svc := &countingSync{}
	NewSyncScheduler(svc, 0, true, nopLogger()).Run(context.Background())
	assert.EqualValues(t, 1, svc.calls.Load())

	idle := &countingSync{}
	NewSyncScheduler(idle, 0, false, nopLogger()).Run(context.Background())
	assert.Zero(t, idle.calls.Load())
}

func TestSchedulerTicksUntilCancelled(t *testing.T) {
	svc := &countingSync{err: ErrSyncInProgress}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewSyncScheduler(svc, 5*time.Millisecond, false, nopLogger()).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return svc.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
