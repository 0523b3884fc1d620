// Package connectivity tracks whether the server is reachable. A probe is a
// single bounded-timeout liveness request; polling cadence belongs to the
// caller.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rlaurindo/presenca-sync/internal/client/api"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 5 * time.Second

// Monitor remembers the last observed state and notifies only on
// transitions, so periodic polling does not produce notification storms.
type Monitor struct {
	pinger   api.Pinger
	timeout  time.Duration
	onChange func(online bool)

	mu     sync.Mutex
	online atomic.Bool
}

// NewMonitor builds a monitor. onChange may be nil; timeout <= 0 falls back
// to DefaultTimeout.
func NewMonitor(pinger api.Pinger, timeout time.Duration, onChange func(online bool)) *Monitor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Monitor{pinger: pinger, timeout: timeout, onChange: onChange}
}

// Probe issues one liveness request. Timeout or any transport failure means
// offline; a 2xx means online. No retry or backoff here. The pre-probe
// state counts as offline, so a first probe that comes back offline is not
// a transition and does not notify.
func (m *Monitor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	online := m.pinger.Ping(ctx) == nil

	m.mu.Lock()
	changed := m.online.Load() != online
	m.online.Store(online)
	m.mu.Unlock()

	if changed && m.onChange != nil {
		m.onChange(online)
	}
	return online
}

// IsOnline reports the last probed state. Before the first probe it reports
// false: components must not attempt network work on an unknown link.
func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}
