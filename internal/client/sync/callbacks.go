package sync

import "github.com/rlaurindo/presenca-sync/internal/client/models"

// Callbacks are the UI notification hooks, one field per notification kind.
// Zero fields are replaced with named no-ops so callers can set only what
// they need.
type Callbacks struct {
	OnAttendanceRecorded func(rec models.AttendanceRecord, offline bool)
	OnSyncStart          func()
	OnSyncEnd            func(res Result)
	OnSyncError          func(err error)
}

func nopAttendanceRecorded(models.AttendanceRecord, bool) {}
func nopSyncStart()                                       {}
func nopSyncEnd(Result)                                   {}
func nopSyncError(error)                                  {}

func (c Callbacks) normalized() Callbacks {
	if c.OnAttendanceRecorded == nil {
		c.OnAttendanceRecorded = nopAttendanceRecorded
	}
	if c.OnSyncStart == nil {
		c.OnSyncStart = nopSyncStart
	}
	if c.OnSyncEnd == nil {
		c.OnSyncEnd = nopSyncEnd
	}
	if c.OnSyncError == nil {
		c.OnSyncError = nopSyncError
	}
	return c
}
