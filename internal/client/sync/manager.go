// Package sync implements the write path and the reconciler: check-ins are
// accepted unconditionally into the local cache and queue, and the queue is
// drained against the server whenever connectivity allows.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rlaurindo/presenca-sync/internal/client/api"
	"github.com/rlaurindo/presenca-sync/internal/client/cache"
	"github.com/rlaurindo/presenca-sync/internal/client/connectivity"
	"github.com/rlaurindo/presenca-sync/internal/client/models"
	"github.com/rlaurindo/presenca-sync/internal/common"
	"github.com/rlaurindo/presenca-sync/internal/logging"
)

// markingManual is the check-in channel reported to the bulk endpoint.
const markingManual = "manual"

// Result summarizes one reconciliation pass. Partial failure is a normal
// outcome, never an error.
type Result struct {
	// Synced counts entries acknowledged by the server in this pass.
	Synced int
	// Total is the number of entries that were pending when the pass began.
	Total int
	// Errors lists the ids of entries that did not sync cleanly: conflicts
	// (now terminal) and transient failures (still queued).
	Errors []string
}

type Manager struct {
	api     api.Client
	cache   *cache.Store
	monitor *connectivity.Monitor
	cb      Callbacks
	log     logging.Logger

	inflight atomic.Bool
	now      func() time.Time
}

func NewManager(apiClient api.Client, store *cache.Store, monitor *connectivity.Monitor, cb Callbacks, log logging.Logger) *Manager {
	if log == nil {
		log = logging.NopLogger{}
	}
	return &Manager{
		api:     apiClient,
		cache:   store,
		monitor: monitor,
		cb:      cb.normalized(),
		log:     log,
		now:     time.Now,
	}
}

// provisionalID builds a client-unique identifier. The prefix keeps it out
// of the server's integer id space.
func provisionalID(now time.Time) string {
	return fmt.Sprintf("offline_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
}

// RecordAttendance registers a check-in locally and queues it for sync.
// Idempotent by registration id: a second call returns the existing record
// untouched. The write always succeeds locally; the network is only an
// opportunistic afterthought.
func (m *Manager) RecordAttendance(ctx context.Context, registrationID, eventID, accountID int64) (*models.AttendanceRecord, error) {
	if registrationID <= 0 {
		return nil, fmt.Errorf("invalid registration id %d", registrationID)
	}

	if existing := m.cache.AttendanceForRegistration(registrationID); existing != nil {
		return existing, nil
	}

	now := m.now().UTC()
	id := provisionalID(now)
	rec := models.AttendanceRecord{
		ID:             id,
		LocalID:        id,
		RegistrationID: registrationID,
		EventID:        eventID,
		AccountID:      accountID,
		CheckinAt:      now,
		SyncStatus:     models.SyncUnsynced,
		Offline:        true,
	}
	entry := models.QueueEntry{
		Op:        models.OpCreateAttendance,
		LocalID:   id,
		Record:    rec,
		CreatedAt: now,
	}

	m.cache.AppendAttendance(rec, entry)
	// Best effort: a full device keeps working from memory.
	_ = m.cache.Save(ctx)

	// UI feedback comes before any network activity.
	m.cb.OnAttendanceRecorded(rec, true)

	if m.monitor.IsOnline() {
		go m.reconcileEntry(context.WithoutCancel(ctx), id)
	}

	return &rec, nil
}

// ReconcileAll drains the queue in enqueue order. Offline, or with a pass
// already running, it is a no-op returning zero progress. Bulk submission
// is preferred; when the bulk endpoint is unreachable each entry is
// submitted individually so one bad entry cannot wedge the queue.
func (m *Manager) ReconcileAll(ctx context.Context) Result {
	pending := m.cache.PendingEntries()
	res := Result{Total: len(pending)}

	if len(pending) == 0 {
		return res
	}
	if !m.monitor.IsOnline() {
		return res
	}
	if !m.inflight.CompareAndSwap(false, true) {
		return Result{}
	}
	defer m.inflight.Store(false)

	m.cb.OnSyncStart()
	m.log.Info(ctx, "reconciliation started", "pending", len(pending))

	if done := m.reconcileBulk(ctx, pending, &res); !done {
		for _, entry := range pending {
			m.submitOne(ctx, entry, &res)
		}
	}

	if res.Synced > 0 {
		m.cache.SetLastSync(m.now())
	}
	_ = m.cache.Save(ctx)

	m.log.Info(ctx, "reconciliation finished", "synced", res.Synced, "total", res.Total, "errors", len(res.Errors))
	m.cb.OnSyncEnd(res)
	return res
}

// reconcileBulk submits the whole queue in one round trip. It reports false
// when the bulk endpoint is unreachable and the per-entry path should run;
// any other outcome is final for this pass.
func (m *Manager) reconcileBulk(ctx context.Context, pending []models.QueueEntry, res *Result) bool {
	items := make([]api.BulkItem, 0, len(pending))
	for _, e := range pending {
		items = append(items, api.BulkItem{
			RegistrationID: e.Record.RegistrationID,
			EventID:        e.Record.EventID,
			AccountID:      e.Record.AccountID,
			CheckinAt:      e.Record.CheckinAt.Format(time.RFC3339),
			MarkingType:    markingManual,
		})
	}

	results, err := m.api.SyncAttendance(ctx, items)
	if err != nil {
		if errors.Is(err, common.ErrorUnavailable) {
			return false
		}
		// Definitive failure (e.g. unauthorized): nothing dequeued, report
		// every entry for this run.
		m.log.Warn(ctx, "bulk sync rejected", "error", err)
		m.cb.OnSyncError(err)
		for _, e := range pending {
			res.Errors = append(res.Errors, e.LocalID)
		}
		return true
	}

	byRegistration := make(map[int64]api.BulkResult, len(results))
	for _, r := range results {
		byRegistration[r.RegistrationID] = r
	}

	for _, e := range pending {
		r, ok := byRegistration[e.Record.RegistrationID]
		if !ok {
			// Server did not mention this entry; keep it queued.
			res.Errors = append(res.Errors, e.LocalID)
			continue
		}
		if r.Success {
			m.cache.MarkSynced(e.LocalID, strconv.FormatInt(r.AttendanceID, 10))
			res.Synced++
			continue
		}
		// The server processed and rejected the entry: terminal.
		m.log.Warn(ctx, "entry rejected during bulk sync", "registration_id", e.Record.RegistrationID, "reason", r.Error)
		m.cache.MarkConflict(e.LocalID)
		res.Errors = append(res.Errors, e.LocalID)
	}
	return true
}

// submitOne pushes a single entry through POST /presencas, applies the
// outcome and persists it before the next entry goes out. A crash between
// round trips must not resurrect an already-acknowledged entry: replaying
// it would come back as a server conflict and demote a synced record.
// Transient failures leave the entry queued for the next pass.
func (m *Manager) submitOne(ctx context.Context, entry models.QueueEntry, res *Result) {
	serverID, err := m.api.CreateAttendance(ctx, api.CreateAttendanceRequest{
		RegistrationID: entry.Record.RegistrationID,
		EventID:        entry.Record.EventID,
		AccountID:      entry.Record.AccountID,
		CheckinAt:      entry.Record.CheckinAt.Format(time.RFC3339),
	})

	switch {
	case err == nil:
		m.cache.MarkSynced(entry.LocalID, strconv.FormatInt(serverID, 10))
		res.Synced++

	case errors.Is(err, common.ErrorConflict), errors.Is(err, common.ErrorRejected):
		m.log.Warn(ctx, "entry superseded on server", "registration_id", entry.Record.RegistrationID, "error", err)
		m.cache.MarkConflict(entry.LocalID)
		res.Errors = append(res.Errors, entry.LocalID)

	default:
		m.log.Warn(ctx, "entry submission failed, will retry", "registration_id", entry.Record.RegistrationID, "error", err)
		m.cb.OnSyncError(err)
		res.Errors = append(res.Errors, entry.LocalID)
	}

	_ = m.cache.Save(ctx)
}

// reconcileEntry is the fire-and-forget path behind RecordAttendance: one
// entry, per-entry endpoint, nothing fatal on failure.
func (m *Manager) reconcileEntry(ctx context.Context, localID string) {
	if !m.monitor.IsOnline() {
		return
	}
	if !m.inflight.CompareAndSwap(false, true) {
		// A full pass is running; it will pick the entry up.
		return
	}
	defer m.inflight.Store(false)

	for _, entry := range m.cache.PendingEntries() {
		if entry.LocalID != localID {
			continue
		}
		var res Result
		m.submitOne(ctx, entry, &res)
		return
	}
}
