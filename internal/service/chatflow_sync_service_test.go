package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chatproxy-be/internal/entity"
	"chatproxy-be/internal/mapper"
	"chatproxy-be/internal/repository/specification"
	"chatproxy-be/internal/repository/unitofwork"
	"chatproxy-be/pkg/events"
	"chatproxy-be/pkg/flowise"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	mu      sync.Mutex
	flows   []flowise.Chatflow
	err     error
	gate    chan struct{} // when set, ListChatflows blocks until closed
	entered chan struct{}
}

func (f *fakeCatalog) ListChatflows(ctx context.Context) ([]flowise.Chatflow, error) {
	if f.entered != nil {
		close(f.entered)
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]flowise.Chatflow(nil), f.flows...), nil
}

func boolPtr(b bool) *bool { return &b }

func remoteFlow(id, name, flowData string, deployed bool) flowise.Chatflow {
	updated := time.Date(2025, 10, 1, 8, 30, 0, 123_000_000, time.UTC)
	return flowise.Chatflow{
		ID:          id,
		Name:        name,
		FlowData:    flowData,
		Deployed:    boolPtr(deployed),
		Type:        "CHATFLOW",
		UpdatedDate: &updated,
	}
}

func seedMirror(t *testing.T, factory unitofwork.RepositoryFactory, flows ...flowise.Chatflow) {
	t.Helper()
	m := mapper.NewChatflowMapper()
	repo := factory.NewUnitOfWork(context.Background()).ChatflowRepository()
	for _, f := range flows {
		c := m.FromRemote(f)
		c.SyncedAt = time.Now().UTC()
		require.NoError(t, repo.Create(context.Background(), c))
	}
}

func mirrorByRemoteId(t *testing.T, factory unitofwork.RepositoryFactory) map[string]*entity.Chatflow {
	t.Helper()
	all, err := factory.NewUnitOfWork(context.Background()).ChatflowRepository().FindAll(context.Background())
	require.NoError(t, err)
	out := make(map[string]*entity.Chatflow, len(all))
	for _, c := range all {
		out[c.RemoteId] = c
	}
	return out
}

// Remote {A new, B same, C modified}; local {B, C-old, D orphan}.
func scenario() (remote []flowise.Chatflow, local []flowise.Chatflow) {
	a := remoteFlow("A", "Alpha", `{"nodes":[]}`, true)
	b := remoteFlow("B", "Beta", `{"nodes":[1]}`, true)
	c := remoteFlow("C", "Gamma v2", `{"nodes":[2]}`, true)
	cOld := remoteFlow("C", "Gamma", `{"nodes":[2]}`, false)
	d := remoteFlow("D", "Delta", `{}`, true)
	return []flowise.Chatflow{a, b, c}, []flowise.Chatflow{b, cOld, d}
}

func newSyncService(factory unitofwork.RepositoryFactory, catalog ChatflowCatalog, opts ChatflowSyncOptions) (IChatflowSyncService, *recordingEvents, *recordingNotifier) {
	ev := &recordingEvents{}
	notifier := &recordingNotifier{}
	return NewChatflowSyncService(factory, catalog, ev, notifier, nopLogger(), opts), ev, notifier
}

func TestSyncReconcilesCreateUpdateDelete(t *testing.T) {
	factory, _ := newTestFactory(t)
	remote, local := scenario()
	seedMirror(t, factory, local...)
	before := mirrorByRemoteId(t, factory)

	svc, ev, notifier := newSyncService(factory, &fakeCatalog{flows: remote}, ChatflowSyncOptions{})

	res, err := svc.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, 0, res.Errors)

	after := mirrorByRemoteId(t, factory)
	require.Len(t, after, 3)
	assert.Contains(t, after, "A")
	assert.NotContains(t, after, "D")
	assert.Equal(t, "Gamma v2", after["C"].Name)
	assert.True(t, after["C"].Deployed)
	assert.Equal(t, before["C"].Id, after["C"].Id, "update keeps the local id")

	// B is untouched, including its sync stamp.
	assert.True(t, before["B"].SyncedAt.Equal(after["B"].SyncedAt))
	assert.True(t, before["B"].UpdatedAt.Equal(after["B"].UpdatedAt))

	assert.Equal(t, []string{events.TypeChatflowSyncCompleted}, ev.types())
	require.Len(t, notifier.results, 1)
	assert.Equal(t, 1, notifier.results[0].Created)
}

func TestSyncIsolatesItemFailures(t *testing.T) {
	base, _ := newTestFactory(t)
	remote, local := scenario()
	seedMirror(t, base, local...)
	before := mirrorByRemoteId(t, base)

	factory := &failingFactory{RepositoryFactory: base, failUpdate: map[string]bool{"C": true}}
	svc, _, _ := newSyncService(factory, &fakeCatalog{flows: remote}, ChatflowSyncOptions{})

	res, err := svc.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, 1, res.Errors)

	var itemErr *ReconcileItemError
	var failed []SyncItemResult
	for _, it := range res.Items {
		if it.Err != nil {
			failed = append(failed, it)
		}
	}
	require.Len(t, failed, 1)
	require.ErrorAs(t, failed[0].Err, &itemErr)
	assert.Equal(t, "C", itemErr.RemoteId)
	assert.Equal(t, SyncActionUpdate, itemErr.Action)
	assert.ErrorIs(t, failed[0].Err, errInjected)

	after := mirrorByRemoteId(t, base)
	assert.Contains(t, after, "A")
	assert.NotContains(t, after, "D")
	assert.Equal(t, "Gamma", after["C"].Name, "failed update leaves the old row")
	assert.True(t, before["B"].UpdatedAt.Equal(after["B"].UpdatedAt))
}

func TestSyncIsIdempotent(t *testing.T) {
	factory, _ := newTestFactory(t)
	remote, local := scenario()
	seedMirror(t, factory, local...)

	svc, _, _ := newSyncService(factory, &fakeCatalog{flows: remote}, ChatflowSyncOptions{})

	_, err := svc.Sync(context.Background())
	require.NoError(t, err)

	res, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Fetched)
	assert.Zero(t, res.Created)
	assert.Zero(t, res.Updated)
	assert.Zero(t, res.Deleted)
	assert.Zero(t, res.Errors)
	assert.Empty(t, res.Items)
}

func TestSyncFetchFailureMutatesNothing(t *testing.T) {
	factory, _ := newTestFactory(t)
	_, local := scenario()
	seedMirror(t, factory, local...)

	catalog := &fakeCatalog{err: flowise.ErrProviderUnavailable}
	svc, ev, notifier := newSyncService(factory, catalog, ChatflowSyncOptions{})

	res, err := svc.Sync(context.Background())
	assert.Nil(t, res)

	var fetchErr *ReconcileFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorIs(t, err, flowise.ErrProviderUnavailable)

	assert.Len(t, mirrorByRemoteId(t, factory), 3)
	assert.Empty(t, ev.types())
	assert.Empty(t, notifier.results)
}

func TestSyncEmptyCatalog(t *testing.T) {
	t.Run("deletes everything by default", func(t *testing.T) {
		factory, _ := newTestFactory(t)
		_, local := scenario()
		seedMirror(t, factory, local...)

		svc, _, _ := newSyncService(factory, &fakeCatalog{}, ChatflowSyncOptions{})
		res, err := svc.Sync(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, res.Fetched)
		assert.Equal(t, 3, res.Deleted)
		assert.Empty(t, mirrorByRemoteId(t, factory))
	})

	t.Run("guard refuses", func(t *testing.T) {
		factory, _ := newTestFactory(t)
		_, local := scenario()
		seedMirror(t, factory, local...)

		svc, _, _ := newSyncService(factory, &fakeCatalog{}, ChatflowSyncOptions{GuardEmptyCatalog: true})
		_, err := svc.Sync(context.Background())
		assert.ErrorIs(t, err, ErrSuspiciousEmptyCatalog)
		assert.Len(t, mirrorByRemoteId(t, factory), 3)
	})

	t.Run("guard allows empty over empty", func(t *testing.T) {
		factory, _ := newTestFactory(t)

		svc, _, _ := newSyncService(factory, &fakeCatalog{}, ChatflowSyncOptions{GuardEmptyCatalog: true})
		res, err := svc.Sync(context.Background())
		require.NoError(t, err)
		assert.Zero(t, res.Deleted)
	})
}

func TestSyncRejectsConcurrentRun(t *testing.T) {
	factory, _ := newTestFactory(t)
	catalog := &fakeCatalog{
		flows:   []flowise.Chatflow{remoteFlow("A", "Alpha", "{}", true)},
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	svc, _, _ := newSyncService(factory, catalog, ChatflowSyncOptions{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Sync(context.Background())
		done <- err
	}()

	<-catalog.entered
	_, err := svc.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(catalog.gate)
	require.NoError(t, <-done)
}

func TestSyncCountsInvalidAndDuplicateEntries(t *testing.T) {
	factory, _ := newTestFactory(t)
	catalog := &fakeCatalog{flows: []flowise.Chatflow{
		remoteFlow("A", "Alpha", "{}", true),
		remoteFlow("", "No id", "{}", true),
		remoteFlow("A", "Alpha again", "{}", true),
	}}
	svc, _, _ := newSyncService(factory, catalog, ChatflowSyncOptions{})

	res, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 2, res.Errors)

	var dupErr *ReconcileItemError
	require.Len(t, res.Items, 3)
	require.ErrorAs(t, res.Items[2].Err, &dupErr)
	assert.Equal(t, "A", dupErr.RemoteId)
	assert.Contains(t, dupErr.Error(), "duplicate")

	flows, err := svc.ListChatflows(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "Alpha", flows[0].Name)
}

func TestListChatflowsDeployedOnly(t *testing.T) {
	factory, _ := newTestFactory(t)
	seedMirror(t, factory,
		remoteFlow("A", "Alpha", "{}", true),
		remoteFlow("B", "Beta", "{}", false),
	)
	svc, _, _ := newSyncService(factory, &fakeCatalog{}, ChatflowSyncOptions{})

	all, err := svc.ListChatflows(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	deployed, err := svc.ListChatflows(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, deployed, 1)
	assert.Equal(t, "A", deployed[0].RemoteId)

	got, err := factory.NewUnitOfWork(context.Background()).ChatflowRepository().
		FindOne(context.Background(), specification.ByRemoteID{RemoteID: "B"})
	require.NoError(t, err)
	assert.False(t, got.Deployed)
}

func TestSyncResultErrorsUnwrap(t *testing.T) {
	err := &ReconcileItemError{RemoteId: "X", Action: SyncActionDelete, Err: errInjected}
	assert.True(t, errors.Is(err, errInjected))
	assert.Contains(t, err.Error(), "delete chatflow X")
}
