package config

import (
	"flag"
	"os"
	"time"

	"github.com/rlaurindo/presenca-sync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   primary API base URL
//	-o string   offline bridge base URL
//	-i int      online check interval in seconds
//	-s string   path of the local cache database
//	-t string   bearer token
//
// os.Args is filtered down to the flags handled here so other components
// can parse their own.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-o", "-i", "-s", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BaseURL, "a", cfg.BaseURL, "primary API base URL")
	fs.StringVar(&cfg.OfflineBaseURL, "o", cfg.OfflineBaseURL, "offline bridge base URL")
	interval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.StoragePath, "s", cfg.StoragePath, "local cache database path")
	fs.StringVar(&cfg.Token, "t", cfg.Token, "bearer token")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*interval) * time.Second
}
