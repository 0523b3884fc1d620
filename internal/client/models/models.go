// Package models defines the client-local representations of the server
// entities. JSON tags follow the server wire format so the same structs are
// used for API payloads and for the persisted snapshot.
package models

import "time"

// SyncStatus tracks where an AttendanceRecord stands relative to the server.
type SyncStatus string

const (
	// SyncUnsynced means the record exists only locally and is queued.
	SyncUnsynced SyncStatus = "unsynced"

	// SyncSynced means the server acknowledged the record and issued its id.
	SyncSynced SyncStatus = "synced"

	// SyncConflict means the server already held attendance for the
	// registration; the local write was superseded, not lost.
	SyncConflict SyncStatus = "conflict"
)

// Account mirrors a server user. Cached read-only on the client.
type Account struct {
	ID       int64  `json:"id"`
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Document string `json:"cpf"`
	Phone    string `json:"telefone"`
}

// Event mirrors a server event. Cached read-only on the client.
type Event struct {
	ID          int64  `json:"id"`
	Title       string `json:"titulo"`
	Name        string `json:"nome,omitempty"`
	Description string `json:"descricao"`
	StartsAt    string `json:"data_inicio"`
	EndsAt      string `json:"data_fim"`
	Location    string `json:"local"`
	Capacity    int    `json:"vagas"`
	Status      string `json:"status,omitempty"`
	Registered  int    `json:"total_inscritos,omitempty"`
}

// Registration links an Account to an Event. Read-only; the sync core
// consults it but never mutates it.
type Registration struct {
	ID        int64  `json:"id"`
	EventID   int64  `json:"evento_id"`
	AccountID int64  `json:"usuario_id"`
	Status    string `json:"status"`
}

// AttendanceRecord is the only entity the client can originate.
//
// ID holds either a provisional identifier (offline_<ms>_<rand>) or, after a
// successful sync, the server-assigned decimal id. LocalID keeps the
// provisional identifier across the rewrite so references taken before the
// sync still resolve.
type AttendanceRecord struct {
	ID             string     `json:"id"`
	LocalID        string     `json:"local_id,omitempty"`
	RegistrationID int64      `json:"inscricao_id"`
	EventID        int64      `json:"evento_id"`
	AccountID      int64      `json:"usuario_id"`
	CheckinAt      time.Time  `json:"data_checkin"`
	SyncStatus     SyncStatus `json:"sync_status"`
	Offline        bool       `json:"offline"`
}

// OpCreateAttendance is the only queued operation type today.
const OpCreateAttendance = "create_attendance"

// QueueEntry wraps one pending write. Entries are matched by the record's
// provisional identifier, never by queue position.
type QueueEntry struct {
	Op        string           `json:"op"`
	LocalID   string           `json:"local_id"`
	Record    AttendanceRecord `json:"record"`
	CreatedAt time.Time        `json:"created_at"`
}

// Snapshot is the complete local state: the four entity collections plus the
// pending-operations queue. It is persisted as a unit.
type Snapshot struct {
	Accounts      []Account          `json:"usuarios"`
	Events        []Event            `json:"eventos"`
	Registrations []Registration     `json:"inscricoes"`
	Attendance    []AttendanceRecord `json:"presencas"`
	Queue         []QueueEntry       `json:"fila_sincronizacao"`
}

// Clone returns a deep copy. Collections hold value types only, so copying
// the slices is enough.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Accounts:      make([]Account, len(s.Accounts)),
		Events:        make([]Event, len(s.Events)),
		Registrations: make([]Registration, len(s.Registrations)),
		Attendance:    make([]AttendanceRecord, len(s.Attendance)),
		Queue:         make([]QueueEntry, len(s.Queue)),
	}
	copy(out.Accounts, s.Accounts)
	copy(out.Events, s.Events)
	copy(out.Registrations, s.Registrations)
	copy(out.Attendance, s.Attendance)
	copy(out.Queue, s.Queue)
	return out
}

// EmptySnapshot returns a snapshot with non-nil, empty collections.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Accounts:      []Account{},
		Events:        []Event{},
		Registrations: []Registration{},
		Attendance:    []AttendanceRecord{},
		Queue:         []QueueEntry{},
	}
}

// Stats summarizes a snapshot for display.
type Stats struct {
	Accounts      int
	Events        int
	Registrations int
	Attendance    int
	Pending       int
}

func (s *Snapshot) Stats() Stats {
	return Stats{
		Accounts:      len(s.Accounts),
		Events:        len(s.Events),
		Registrations: len(s.Registrations),
		Attendance:    len(s.Attendance),
		Pending:       len(s.Queue),
	}
}
