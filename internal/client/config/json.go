package config

import (
	"encoding/json"
	"os"

	"github.com/rlaurindo/presenca-sync/internal/flagx"
	"github.com/rlaurindo/presenca-sync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations may
// be given as strings like "5s" or as integer nanoseconds.
type JsonConfig struct {
	BaseURL             string         `json:"base_url"`
	OfflineBaseURL      string         `json:"offline_base_url"`
	Timeout             timex.Duration `json:"timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	StoragePath         string         `json:"storage_path"`
	Token               string         `json:"token"`
}

// parseJson overlays Config with values from the JSON file named by the
// -c/-config flags. Absent file path means nothing to do. Only fields
// present in the file override the current values. Read or unmarshal
// errors panic: a config file that exists but cannot be used is a
// programming/deployment mistake, not a runtime condition.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.BaseURL != "" {
		cfg.BaseURL = jc.BaseURL
	}
	if jc.OfflineBaseURL != "" {
		cfg.OfflineBaseURL = jc.OfflineBaseURL
	}
	if jc.Timeout.Duration != 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.StoragePath != "" {
		cfg.StoragePath = jc.StoragePath
	}
	if jc.Token != "" {
		cfg.Token = jc.Token
	}
}
