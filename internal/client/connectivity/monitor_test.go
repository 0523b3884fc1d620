package connectivity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

type slowPinger struct{}

func (slowPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestProbe_ReportsOnlineAndOffline(t *testing.T) {
	p := &fakePinger{}
	m := NewMonitor(p, time.Second, nil)

	assert.False(t, m.IsOnline(), "unknown link must read as offline")
	assert.True(t, m.Probe(context.Background()))
	assert.True(t, m.IsOnline())

	p.err = errors.New("refused")
	assert.False(t, m.Probe(context.Background()))
	assert.False(t, m.IsOnline())
}

func TestProbe_NotifiesOnlyOnTransitions(t *testing.T) {
	p := &fakePinger{}
	var got []bool
	m := NewMonitor(p, time.Second, func(online bool) { got = append(got, online) })

	m.Probe(context.Background()) // unknown -> online
	m.Probe(context.Background()) // online, no change
	m.Probe(context.Background()) // online, no change

	p.err = errors.New("refused")
	m.Probe(context.Background()) // online -> offline
	m.Probe(context.Background()) // offline, no change

	p.err = nil
	m.Probe(context.Background()) // offline -> online

	require.Equal(t, []bool{true, false, true}, got)
}

func TestProbe_FirstOfflineProbeDoesNotNotify(t *testing.T) {
	p := &fakePinger{err: errors.New("refused")}
	var calls int
	m := NewMonitor(p, time.Second, func(bool) { calls++ })

	assert.False(t, m.Probe(context.Background()))
	assert.Zero(t, calls, "offline matches the pre-probe state, not a transition")

	p.err = nil
	assert.True(t, m.Probe(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestProbe_TimeoutMeansOffline(t *testing.T) {
	m := NewMonitor(slowPinger{}, 50*time.Millisecond, nil)

	start := time.Now()
	online := m.Probe(context.Background())

	assert.False(t, online)
	assert.Less(t, time.Since(start), time.Second, "probe must be bounded by its timeout")
}
