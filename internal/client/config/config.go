// Package config holds runtime settings for the check-in client.
//
// Sources are overlaid in order: built-in defaults, then a JSON file (via
// -c/-config), then command-line flags. Later sources win.
package config

import "time"

type Config struct {
	// BaseURL is the primary API (events, bulk sync).
	BaseURL string

	// OfflineBaseURL is the offline bridge (liveness probe, user-scoped
	// reads, per-entry attendance writes).
	OfflineBaseURL string

	// Timeout bounds every HTTP request, including the liveness probe.
	Timeout time.Duration

	// OnlineCheckInterval is the polling cadence of the status watcher.
	OnlineCheckInterval time.Duration

	// StoragePath is the SQLite file backing the local cache.
	StoragePath string

	// Token is an already-resolved bearer token, opaque to the client.
	// Optional; without it only public data is refreshed.
	Token string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://localhost:8000/api"
	c.OfflineBaseURL = "http://localhost:5000"
	c.Timeout = 5 * time.Second
	c.OnlineCheckInterval = 30 * time.Second
	c.StoragePath = "presenca.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
