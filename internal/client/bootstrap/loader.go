// Package bootstrap brings the client up with something coherent to show:
// fresh server data when the link is up, the persisted cache when it is
// not, and a small seeded event set when even the cache is empty. An empty
// screen is treated as worse than stale data.
package bootstrap

import (
	"context"
	"time"

	"github.com/rlaurindo/presenca-sync/internal/client/api"
	"github.com/rlaurindo/presenca-sync/internal/client/cache"
	"github.com/rlaurindo/presenca-sync/internal/client/connectivity"
	"github.com/rlaurindo/presenca-sync/internal/client/models"
	"github.com/rlaurindo/presenca-sync/internal/client/token"
	"github.com/rlaurindo/presenca-sync/internal/logging"
)

type Loader struct {
	api          api.Client
	cache        *cache.Store
	monitor      *connectivity.Monitor
	authToken    string
	onDataLoaded func(snap *models.Snapshot)
	log          logging.Logger
}

// timeNow is a test seam.
var timeNow = time.Now

func NewLoader(apiClient api.Client, store *cache.Store, monitor *connectivity.Monitor, authToken string, onDataLoaded func(*models.Snapshot), log logging.Logger) *Loader {
	if log == nil {
		log = logging.NopLogger{}
	}
	if onDataLoaded == nil {
		onDataLoaded = func(*models.Snapshot) {}
	}
	return &Loader{
		api:          apiClient,
		cache:        store,
		monitor:      monitor,
		authToken:    authToken,
		onDataLoaded: onDataLoaded,
		log:          log,
	}
}

// Initialize loads the persisted snapshot, refreshes it from the server
// when online, and guarantees the events collection is never left empty.
// Unsynced attendance and the pending queue survive every refresh.
func (l *Loader) Initialize(ctx context.Context) *models.Snapshot {
	local := l.cache.Load(ctx)
	next := local.Clone()

	if l.monitor.Probe(ctx) {
		l.refreshFromRemote(ctx, local, next)
	} else {
		l.log.Info(ctx, "starting offline from persisted cache", "events", len(local.Events), "pending", len(local.Queue))
	}

	// Tiered fallback: remote -> cache -> seed.
	if len(next.Events) == 0 {
		if len(local.Events) > 0 {
			next.Events = local.Events
		} else {
			l.log.Warn(ctx, "no events available, seeding examples")
			next.Events = SeedEvents()
		}
	}

	// The queue is never discarded by a refresh.
	next.Queue = local.Queue

	l.cache.ReplaceAll(next)
	_ = l.cache.Save(ctx)

	snap := l.cache.Snapshot()
	l.onDataLoaded(snap)
	return snap
}

func (l *Loader) refreshFromRemote(ctx context.Context, local, next *models.Snapshot) {
	events, err := l.api.ListEvents(ctx)
	if err != nil {
		l.log.Warn(ctx, "event refresh failed, keeping cached events", "error", err)
	} else if len(events) > 0 {
		next.Events = events
	}

	if l.authToken == "" {
		return
	}
	l.api.SetToken(l.authToken)

	if claims, err := token.Parse(l.authToken); err != nil {
		// Not necessarily a JWT; the server still gets to judge it.
		l.log.Warn(ctx, "could not read token claims", "error", err)
	} else if claims.Expired(timeNow()) {
		l.log.Warn(ctx, "token expired, skipping user-scoped refresh", "account_id", claims.AccountID)
		return
	}

	if accounts, err := l.api.ListAccounts(ctx); err == nil {
		next.Accounts = accounts
	} else {
		l.log.Warn(ctx, "account refresh failed, keeping cached accounts", "error", err)
	}

	if registrations, err := l.api.ListRegistrations(ctx); err == nil {
		next.Registrations = registrations
	} else {
		l.log.Warn(ctx, "registration refresh failed, keeping cached registrations", "error", err)
	}

	remote, err := l.api.ListAttendance(ctx)
	if err != nil {
		l.log.Warn(ctx, "attendance refresh failed, keeping cached attendance", "error", err)
		return
	}
	next.Attendance = mergeAttendance(remote, local.Attendance)
}

// mergeAttendance keeps every server record and any local record for a
// registration the server does not know about yet. Local unsynced writes
// are never lost to a refresh; duplicates resolve in the server's favor.
func mergeAttendance(remote, local []models.AttendanceRecord) []models.AttendanceRecord {
	seen := make(map[int64]struct{}, len(remote))
	merged := make([]models.AttendanceRecord, 0, len(remote)+len(local))

	for _, rec := range remote {
		if rec.SyncStatus == "" {
			rec.SyncStatus = models.SyncSynced
		}
		seen[rec.RegistrationID] = struct{}{}
		merged = append(merged, rec)
	}
	for _, rec := range local {
		if _, ok := seen[rec.RegistrationID]; ok {
			continue
		}
		merged = append(merged, rec)
	}
	return merged
}

// SeedEvents is the placeholder event set used when both the server and the
// cache come up empty.
func SeedEvents() []models.Event {
	return []models.Event{
		{
			ID:          1,
			Title:       "Workshop Laravel",
			Name:        "Workshop Laravel",
			Description: "Introdução ao desenvolvimento com Laravel",
			StartsAt:    "2025-12-15 09:00:00",
			EndsAt:      "2025-12-15 17:00:00",
			Location:    "Laboratório 1",
			Capacity:    30,
			Status:      "aberto",
		},
		{
			ID:          2,
			Title:       "Palestra Docker",
			Name:        "Palestra Docker",
			Description: "Containerização com Docker",
			StartsAt:    "2025-12-20 14:00:00",
			EndsAt:      "2025-12-20 16:00:00",
			Location:    "Auditório",
			Capacity:    50,
			Status:      "aberto",
		},
		{
			ID:          3,
			Title:       "Curso JavaScript",
			Name:        "Curso JavaScript",
			Description: "JavaScript moderno e frameworks",
			StartsAt:    "2026-01-10 08:00:00",
			EndsAt:      "2026-01-12 18:00:00",
			Location:    "Sala 201",
			Capacity:    25,
			Status:      "aberto",
		},
	}
}
