package sync

import (
	"context"
	"errors"
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlaurindo/presenca-sync/internal/client/api"
	"github.com/rlaurindo/presenca-sync/internal/client/cache"
	"github.com/rlaurindo/presenca-sync/internal/client/connectivity"
	"github.com/rlaurindo/presenca-sync/internal/client/models"
	"github.com/rlaurindo/presenca-sync/internal/client/storage"
	"github.com/rlaurindo/presenca-sync/internal/common"
)

// fakeAPI scripts the remote side. Submission order is recorded so FIFO can
// be asserted.
type fakeAPI struct {
	mu stdsync.Mutex

	pingErr error

	bulkFn   func(items []api.BulkItem) ([]api.BulkResult, error)
	createFn func(req api.CreateAttendanceRequest) (int64, error)

	submitted []int64
}

func (f *fakeAPI) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeAPI) ListEvents(ctx context.Context) ([]models.Event, error)        { return nil, nil }
func (f *fakeAPI) ListAccounts(ctx context.Context) ([]models.Account, error)    { return nil, nil }
func (f *fakeAPI) ListRegistrations(ctx context.Context) ([]models.Registration, error) {
	return nil, nil
}
func (f *fakeAPI) ListAttendance(ctx context.Context) ([]models.AttendanceRecord, error) {
	return nil, nil
}
func (f *fakeAPI) SetToken(string) {}

func (f *fakeAPI) CreateAttendance(ctx context.Context, req api.CreateAttendanceRequest) (int64, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, req.RegistrationID)
	f.mu.Unlock()

	if f.createFn == nil {
		return 0, common.ErrorUnavailable
	}
	return f.createFn(req)
}

func (f *fakeAPI) SyncAttendance(ctx context.Context, items []api.BulkItem) ([]api.BulkResult, error) {
	f.mu.Lock()
	for _, it := range items {
		f.submitted = append(f.submitted, it.RegistrationID)
	}
	f.mu.Unlock()

	if f.bulkFn == nil {
		return nil, common.ErrorUnavailable
	}
	return f.bulkFn(items)
}

func (f *fakeAPI) order() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.submitted))
	copy(out, f.submitted)
	return out
}

type fixture struct {
	api     *fakeAPI
	kv      *storage.Memory
	store   *cache.Store
	monitor *connectivity.Monitor
	mgr     *Manager
}

func newFixture(t *testing.T, cb Callbacks) *fixture {
	t.Helper()

	f := &fixture{api: &fakeAPI{}, kv: storage.NewMemory()}
	f.store = cache.NewStore(f.kv, nil)
	f.monitor = connectivity.NewMonitor(f.api, time.Second, nil)
	f.mgr = NewManager(f.api, f.store, f.monitor, cb, nil)
	return f
}

func (f *fixture) goOnline(t *testing.T) {
	t.Helper()
	f.api.pingErr = nil
	require.True(t, f.monitor.Probe(context.Background()))
}

func (f *fixture) goOffline(t *testing.T) {
	t.Helper()
	f.api.pingErr = errors.New("refused")
	require.False(t, f.monitor.Probe(context.Background()))
}

func TestRecordAttendance_OfflineQueuesWithProvisionalID(t *testing.T) {
	var notified []models.AttendanceRecord
	f := newFixture(t, Callbacks{
		OnAttendanceRecorded: func(rec models.AttendanceRecord, offline bool) {
			assert.True(t, offline)
			notified = append(notified, rec)
		},
	})
	f.goOffline(t)

	rec, err := f.mgr.RecordAttendance(context.Background(), 42, 7, 5)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rec.ID, "offline_"), "provisional id must be prefixed, got %q", rec.ID)
	assert.Equal(t, models.SyncUnsynced, rec.SyncStatus)
	assert.True(t, rec.Offline)
	assert.Len(t, f.store.PendingEntries(), 1)
	require.Len(t, notified, 1, "UI callback fires synchronously")
	assert.Empty(t, f.api.order(), "no network activity while offline")
}

func TestRecordAttendance_IdempotentByRegistrationID(t *testing.T) {
	f := newFixture(t, Callbacks{})
	f.goOffline(t)
	ctx := context.Background()

	first, err := f.mgr.RecordAttendance(ctx, 42, 7, 5)
	require.NoError(t, err)
	second, err := f.mgr.RecordAttendance(ctx, 42, 7, 5)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.store.PendingEntries(), 1)
	assert.Equal(t, 1, f.store.CountAttendanceForEvent(7))
}

func TestRecordAttendance_RejectsInvalidRegistration(t *testing.T) {
	f := newFixture(t, Callbacks{})
	_, err := f.mgr.RecordAttendance(context.Background(), 0, 7, 5)
	assert.Error(t, err)
}

func TestReconcileAll_OfflineIsZeroProgressNoop(t *testing.T) {
	f := newFixture(t, Callbacks{})
	f.goOffline(t)
	ctx := context.Background()

	_, err := f.mgr.RecordAttendance(ctx, 42, 7, 5)
	require.NoError(t, err)

	res := f.mgr.ReconcileAll(ctx)
	assert.Equal(t, 0, res.Synced)
	assert.Equal(t, 1, res.Total)
	assert.Empty(t, f.api.order(), "reconciliation must not touch the network while offline")
	assert.Len(t, f.store.PendingEntries(), 1)
}

func TestReconcileAll_BulkSuccessRewritesIdentifier(t *testing.T) {
	f := newFixture(t, Callbacks{})
	f.goOffline(t)
	ctx := context.Background()

	rec, err := f.mgr.RecordAttendance(ctx, 42, 7, 5)
	require.NoError(t, err)
	provisional := rec.ID

	f.api.bulkFn = func(items []api.BulkItem) ([]api.BulkResult, error) {
		require.Len(t, items, 1)
		assert.EqualValues(t, 42, items[0].RegistrationID)
		assert.Equal(t, "manual", items[0].MarkingType)
		return []api.BulkResult{{RegistrationID: 42, Success: true, AttendanceID: 901}}, nil
	}
	f.goOnline(t)

	res := f.mgr.ReconcileAll(ctx)
	assert.Equal(t, 1, res.Synced)
	assert.Equal(t, 1, res.Total)
	assert.Empty(t, res.Errors)
	assert.Empty(t, f.store.PendingEntries())

	// The original provisional id still resolves, to the rewritten record.
	got, err := f.store.FindAttendance(provisional)
	require.NoError(t, err)
	assert.Equal(t, "901", got.ID)
	assert.Equal(t, provisional, got.LocalID)
	assert.Equal(t, models.SyncSynced, got.SyncStatus)

	// And no duplicate exists under the server id.
	byReg := f.store.AttendanceForRegistration(42)
	require.NotNil(t, byReg)
	assert.Equal(t, "901", byReg.ID)
}

func TestReconcileAll_SubmitsFIFO(t *testing.T) {
	f := newFixture(t, Callbacks{})
	f.goOffline(t)
	ctx := context.Background()

	for _, regID := range []int64{11, 12, 13} {
		_, err := f.mgr.RecordAttendance(ctx, regID, 7, 5)
		require.NoError(t, err)
	}

	f.api.bulkFn = func(items []api.BulkItem) ([]api.BulkResult, error) {
		out := make([]api.BulkResult, len(items))
		for i, it := range items {
			out[i] = api.BulkResult{RegistrationID: it.RegistrationID, Success: true, AttendanceID: int64(100 + i)}
		}
		return out, nil
	}
	f.goOnline(t)

	res := f.mgr.ReconcileAll(ctx)
	assert.Equal(t, 3, res.Synced)
	assert.Equal(t, []int64{11, 12, 13}, f.api.order())
}

func TestReconcileAll_PerEntryFallbackPartialFailure(t *testing.T) {
	f := newFixture(t, Callbacks{})
	f.goOffline(t)
	ctx := context.Background()

	for _, regID := range []int64{11, 12, 13} {
		_, err := f.mgr.RecordAttendance(ctx, regID, 7, 5)
		require.NoError(t, err)
	}

	// Bulk endpoint unreachable; per-entry path fails only for 12.
	next := int64(500)
	f.api.createFn = func(req api.CreateAttendanceRequest) (int64, error) {
		if req.RegistrationID == 12 {
			return 0, common.ErrorUnavailable
		}
		next++
		return next, nil
	}
	f.goOnline(t)

	res := f.mgr.ReconcileAll(ctx)
	assert.Equal(t, 2, res.Synced)
	assert.Equal(t, 3, res.Total)
	require.Len(t, f.store.PendingEntries(), 1)
	assert.EqualValues(t, 12, f.store.PendingEntries()[0].Record.RegistrationID)

	// Next pass drains the survivor.
	f.api.createFn = func(req api.CreateAttendanceRequest) (int64, error) { return 999, nil }
	res = f.mgr.ReconcileAll(ctx)
	assert.Equal(t, 1, res.Synced)
	assert.Empty(t, f.store.PendingEntries())
}

func TestReconcileAll_PerEntryOutcomePersistsBeforeNextSubmission(t *testing.T) {
	f := newFixture(t, Callbacks{})
	f.goOffline(t)
	ctx := context.Background()

	for _, regID := range []int64{11, 12} {
		_, err := f.mgr.RecordAttendance(ctx, regID, 7, 5)
		require.NoError(t, err)
	}

	// Bulk endpoint unreachable; observe the durable state from a second
	// store over the same KV while the pass is between round trips.
	next := int64(500)
	pendingOnDisk := -1
	f.api.createFn = func(req api.CreateAttendanceRequest) (int64, error) {
		if req.RegistrationID == 12 {
			reloaded := cache.NewStore(f.kv, nil)
			reloaded.Load(ctx)
			pendingOnDisk = len(reloaded.PendingEntries())
		}
		next++
		return next, nil
	}
	f.goOnline(t)

	res := f.mgr.ReconcileAll(ctx)
	assert.Equal(t, 2, res.Synced)
	assert.Equal(t, 1, pendingOnDisk,
		"the first entry's acknowledgment must be durable before the second goes out")
}

func TestReconcileAll_ConflictIsTerminal(t *testing.T) {
	f := newFixture(t, Callbacks{})
	f.goOffline(t)
	ctx := context.Background()

	rec, err := f.mgr.RecordAttendance(ctx, 42, 7, 5)
	require.NoError(t, err)

	f.api.createFn = func(req api.CreateAttendanceRequest) (int64, error) {
		return 0, common.ErrorConflict
	}
	f.goOnline(t)

	res := f.mgr.ReconcileAll(ctx)
	assert.Equal(t, 0, res.Synced)
	assert.Equal(t, []string{rec.ID}, res.Errors)
	assert.Empty(t, f.store.PendingEntries(), "conflicts are not retried")

	got, err := f.store.FindAttendance(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncConflict, got.SyncStatus)

	// A later pass has nothing to do.
	res = f.mgr.ReconcileAll(ctx)
	assert.Equal(t, 0, res.Total)
}

func TestReconcileAll_PersistsAcrossReload(t *testing.T) {
	f := newFixture(t, Callbacks{})
	f.goOffline(t)
	ctx := context.Background()

	_, err := f.mgr.RecordAttendance(ctx, 42, 7, 5)
	require.NoError(t, err)

	f.api.bulkFn = func(items []api.BulkItem) ([]api.BulkResult, error) {
		return []api.BulkResult{{RegistrationID: 42, Success: true, AttendanceID: 901}}, nil
	}
	f.goOnline(t)
	f.mgr.ReconcileAll(ctx)

	// A fresh store over the same KV sees the synced state.
	reloaded := cache.NewStore(f.kv, nil)
	reloaded.Load(ctx)
	assert.Empty(t, reloaded.PendingEntries())
	got := reloaded.AttendanceForRegistration(42)
	require.NotNil(t, got)
	assert.Equal(t, "901", got.ID)
	assert.False(t, reloaded.LastSync().IsZero())
}

func TestReconcileAll_OverlappingPassIsNoop(t *testing.T) {
	f := newFixture(t, Callbacks{})
	f.goOffline(t)
	ctx := context.Background()

	_, err := f.mgr.RecordAttendance(ctx, 42, 7, 5)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	f.api.bulkFn = func(items []api.BulkItem) ([]api.BulkResult, error) {
		close(started)
		<-release
		return []api.BulkResult{{RegistrationID: 42, Success: true, AttendanceID: 901}}, nil
	}
	f.goOnline(t)

	done := make(chan Result, 1)
	go func() { done <- f.mgr.ReconcileAll(ctx) }()
	<-started

	// Second invocation while the first is blocked inside the bulk call.
	overlap := f.mgr.ReconcileAll(ctx)
	assert.Equal(t, Result{}, overlap)

	close(release)
	first := <-done
	assert.Equal(t, 1, first.Synced)
}

func TestCallbacks_SyncStartAndEndFire(t *testing.T) {
	var starts int
	var ends []Result
	f := newFixture(t, Callbacks{
		OnSyncStart: func() { starts++ },
		OnSyncEnd:   func(res Result) { ends = append(ends, res) },
	})
	f.goOffline(t)
	ctx := context.Background()

	_, err := f.mgr.RecordAttendance(ctx, 42, 7, 5)
	require.NoError(t, err)

	f.api.bulkFn = func(items []api.BulkItem) ([]api.BulkResult, error) {
		return []api.BulkResult{{RegistrationID: 42, Success: true, AttendanceID: 901}}, nil
	}
	f.goOnline(t)
	f.mgr.ReconcileAll(ctx)

	assert.Equal(t, 1, starts)
	require.Len(t, ends, 1)
	assert.Equal(t, 1, ends[0].Synced)
}
