// Package cli wires the check-in client together and drives the
// interactive terminal session.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rlaurindo/presenca-sync/internal/client/api"
	"github.com/rlaurindo/presenca-sync/internal/client/bootstrap"
	"github.com/rlaurindo/presenca-sync/internal/client/cache"
	"github.com/rlaurindo/presenca-sync/internal/client/config"
	"github.com/rlaurindo/presenca-sync/internal/client/connectivity"
	"github.com/rlaurindo/presenca-sync/internal/client/models"
	"github.com/rlaurindo/presenca-sync/internal/client/storage"
	"github.com/rlaurindo/presenca-sync/internal/client/sync"
	"github.com/rlaurindo/presenca-sync/internal/client/token"
	"github.com/rlaurindo/presenca-sync/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config    *config.Config
	kv        storage.KV
	store     *cache.Store
	apiClient api.Client
	monitor   *connectivity.Monitor
	manager   *sync.Manager
	loader    *bootstrap.Loader
	log       logging.Logger
	reader    *bufio.Reader
	accountID int64

	// mode is read by the REPL goroutine and written by the watcher
	// goroutine, so it lives behind an atomic.
	mode atomic.Value // Mode
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.NopLogger{}
	}

	kv, err := storage.NewSQLite(ctx, cfg.StoragePath)
	if err != nil {
		log.Error(ctx, "error initializing local storage", "error", err)
		return nil, err
	}

	store := cache.NewStore(kv, log)
	apiClient := api.NewHTTPClient(cfg.BaseURL, cfg.OfflineBaseURL, cfg.Timeout)

	app := &App{
		config:    cfg,
		kv:        kv,
		store:     store,
		apiClient: apiClient,
		log:       log,
		reader:    bufio.NewReader(os.Stdin),
	}
	app.mode.Store(ModeOffline)

	app.monitor = connectivity.NewMonitor(apiClient, cfg.Timeout, func(online bool) {
		if online {
			app.setMode(ModeOnline)
		} else {
			app.setMode(ModeOffline)
		}
	})

	app.manager = sync.NewManager(apiClient, store, app.monitor, sync.Callbacks{
		OnSyncEnd: func(res sync.Result) {
			if res.Total > 0 {
				fmt.Printf("Sincronização: %d/%d registros enviados\n", res.Synced, res.Total)
			}
		},
		OnSyncError: func(err error) {
			log.Warn(ctx, "sync error", "error", err)
		},
	}, log)

	app.loader = app.newLoader(cfg.Token)

	if cfg.Token != "" {
		if claims, err := token.Parse(cfg.Token); err == nil {
			app.accountID = claims.AccountID
		}
	}

	return app, nil
}

func (a *App) newLoader(authToken string) *bootstrap.Loader {
	return bootstrap.NewLoader(a.apiClient, a.store, a.monitor, authToken, func(snap *models.Snapshot) {
		fmt.Printf("Dados carregados: %d eventos, %d inscrições, %d pendentes\n",
			len(snap.Events), len(snap.Registrations), len(snap.Queue))
	}, a.log)
}

func (a *App) currentMode() Mode {
	m, _ := a.mode.Load().(Mode)
	return m
}

func (a *App) setMode(mode Mode) {
	if old, _ := a.mode.Swap(mode).(Mode); old != mode {
		printlnFn(fmt.Sprintf("Switched to %s mode", mode))
	}
}

// Run bootstraps the local dataset, starts the background status
// watcher and hands control to the REPL. It blocks until the user
// exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.kv.Close()

	a.loader.Initialize(ctx)
	if a.monitor.IsOnline() {
		a.setMode(ModeOnline)
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, bufio.NewScanner(os.Stdin))
}

// StartOnlineStatusWatcher polls the bridge at the given interval.
// An offline to online transition triggers a reconciliation pass so
// queued check-ins drain without user action.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			wasOnline := a.monitor.IsOnline()
			if a.monitor.Probe(ctx) && !wasOnline {
				a.manager.ReconcileAll(ctx)
			}
		case <-ctx.Done():
			return
		}
	}
}
