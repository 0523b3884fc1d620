// Package cache holds the in-memory copy of the local snapshot and persists
// it through a storage.KV. It is the single owner of the snapshot: every
// other component reads and mutates through this store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rlaurindo/presenca-sync/internal/client/models"
	"github.com/rlaurindo/presenca-sync/internal/client/storage"
	"github.com/rlaurindo/presenca-sync/internal/common"
	"github.com/rlaurindo/presenca-sync/internal/logging"
)

// Storage keys, one per snapshot slot. The names come from the server-side
// system and are kept for compatibility with existing stores.
const (
	KeyAccounts      = "offline_usuarios"
	KeyEvents        = "offline_eventos"
	KeyRegistrations = "offline_inscricoes"
	KeyAttendance    = "offline_presencas"
	KeyQueue         = "offline_fila_sync"
	KeyLastSync      = "offline_ultima_sync"
)

type Store struct {
	mu       sync.RWMutex
	kv       storage.KV
	log      logging.Logger
	snap     *models.Snapshot
	lastSync time.Time
}

func NewStore(kv storage.KV, log logging.Logger) *Store {
	if log == nil {
		log = logging.NopLogger{}
	}
	return &Store{kv: kv, log: log, snap: models.EmptySnapshot()}
}

// Load reads the persisted snapshot into memory. Each slot defaults to
// empty independently when missing or corrupt; a broken store must never
// prevent the application from starting.
func (s *Store) Load(ctx context.Context) *models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.EmptySnapshot()
	loadSlot(ctx, s, KeyAccounts, &snap.Accounts)
	loadSlot(ctx, s, KeyEvents, &snap.Events)
	loadSlot(ctx, s, KeyRegistrations, &snap.Registrations)
	loadSlot(ctx, s, KeyAttendance, &snap.Attendance)
	loadSlot(ctx, s, KeyQueue, &snap.Queue)

	var last time.Time
	loadSlot(ctx, s, KeyLastSync, &last)
	s.lastSync = last

	s.snap = snap
	return snap.Clone()
}

// loadSlot fills dst from one storage key, leaving it untouched on any
// failure so the slot keeps its empty default.
func loadSlot[T any](ctx context.Context, s *Store, key string, dst *T) {
	data, err := s.kv.Get(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn(ctx, "unreadable cache slot, starting empty", "key", key, "error", err)
		}
		return
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		s.log.Warn(ctx, "corrupt cache slot, starting empty", "key", key, "error", err)
		return
	}
	*dst = v
}

// Save persists every slot in one batch. Failures are reported to the
// caller but the in-memory snapshot remains authoritative either way.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	items, err := s.encodeLocked()
	s.mu.RUnlock()
	if err != nil {
		s.log.Error(ctx, "encoding snapshot failed", "error", err)
		return err
	}

	if err := s.kv.SetMany(items); err != nil {
		s.log.Error(ctx, "persisting snapshot failed", "error", err)
		return err
	}
	return nil
}

func (s *Store) encodeLocked() (map[string][]byte, error) {
	items := make(map[string][]byte, 6)
	for key, v := range map[string]any{
		KeyAccounts:      s.snap.Accounts,
		KeyEvents:        s.snap.Events,
		KeyRegistrations: s.snap.Registrations,
		KeyAttendance:    s.snap.Attendance,
		KeyQueue:         s.snap.Queue,
		KeyLastSync:      s.lastSync,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding slot %q: %w", key, err)
		}
		items[key] = data
	}
	return items, nil
}

// ReplaceAll swaps the whole snapshot. Callers doing a remote refresh
// carry the merged queue in the snapshot they pass; the store does not
// second-guess it.
func (s *Store) ReplaceAll(snap *models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
}

// Snapshot returns a deep copy for callbacks and display.
func (s *Store) Snapshot() *models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

func (s *Store) Stats() models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Stats()
}

func (s *Store) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

func (s *Store) SetLastSync(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSync = t
}

// AppendAttendance adds the record and its queue entry in one mutation so
// cache and queue cannot diverge.
func (s *Store) AppendAttendance(rec models.AttendanceRecord, entry models.QueueEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Attendance = append(s.snap.Attendance, rec)
	s.snap.Queue = append(s.snap.Queue, entry)
}

// MarkSynced rewrites the record's identifier to the server-assigned one,
// keeps the provisional id in LocalID, flags the record synced, and drops
// the matching queue entry.
func (s *Store) MarkSynced(localID, serverID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.snap.Attendance {
		rec := &s.snap.Attendance[i]
		if rec.ID == localID || rec.LocalID == localID {
			rec.LocalID = localID
			rec.ID = serverID
			rec.SyncStatus = models.SyncSynced
			break
		}
	}
	s.removeQueueEntryLocked(localID)
}

// MarkConflict flags the record as superseded by a server-side write and
// drops its queue entry. Conflicts are terminal.
func (s *Store) MarkConflict(localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.snap.Attendance {
		rec := &s.snap.Attendance[i]
		if rec.ID == localID || rec.LocalID == localID {
			rec.SyncStatus = models.SyncConflict
			break
		}
	}
	s.removeQueueEntryLocked(localID)
}

func (s *Store) removeQueueEntryLocked(localID string) {
	queue := s.snap.Queue[:0]
	for _, e := range s.snap.Queue {
		if e.LocalID != localID {
			queue = append(queue, e)
		}
	}
	s.snap.Queue = queue
}

// PendingEntries returns the queue in enqueue order.
func (s *Store) PendingEntries() []models.QueueEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.QueueEntry, len(s.snap.Queue))
	copy(out, s.snap.Queue)
	return out
}

func (s *Store) FindAccount(id int64) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.snap.Accounts {
		if a.ID == id {
			out := a
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (s *Store) FindEvent(id int64) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.snap.Events {
		if e.ID == id {
			out := e
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (s *Store) FindRegistration(id int64) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.snap.Registrations {
		if r.ID == id {
			out := r
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (s *Store) RegistrationsForEvent(eventID int64) []models.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Registration
	for _, r := range s.snap.Registrations {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) HasAttendance(registrationID int64) bool {
	return s.AttendanceForRegistration(registrationID) != nil
}

func (s *Store) AttendanceForRegistration(registrationID int64) *models.AttendanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.snap.Attendance {
		if rec.RegistrationID == registrationID {
			out := rec
			return &out
		}
	}
	return nil
}

// FindAttendance resolves a record by its current identifier or by the
// provisional identifier it carried before the sync rewrite.
func (s *Store) FindAttendance(id string) (*models.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.snap.Attendance {
		if rec.ID == id || rec.LocalID == id {
			out := rec
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (s *Store) CountAttendanceForEvent(eventID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.snap.Attendance {
		if rec.EventID == eventID {
			n++
		}
	}
	return n
}
