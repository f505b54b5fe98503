// Package connectivity watches transport availability and tells the sync
// engine when the server becomes reachable again.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/papervault/internal/logging"
)

// Pinger probes the server once. The upload transport satisfies this.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor polls a Pinger on an interval and exposes the current reachability
// plus an edge-triggered "became reachable" notification. Each offline→online
// edge fires exactly once per subscriber; repeated online probes do not fire.
type Monitor struct {
	pinger       Pinger
	interval     time.Duration
	probeTimeout time.Duration
	logger       logging.Logger

	mu     sync.Mutex
	online bool
	subs   map[chan struct{}]struct{}
}

func NewMonitor(p Pinger, interval time.Duration, logger logging.Logger) *Monitor {
	return &Monitor{
		pinger:       p,
		interval:     interval,
		probeTimeout: 3 * time.Second,
		logger:       logger.With("module", "connectivity"),
		subs:         make(map[chan struct{}]struct{}),
	}
}

// IsReachable reports the result of the most recent probe.
func (m *Monitor) IsReachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a channel receiving one signal per offline→online edge.
// The channel is buffered; an edge that arrives while a previous one is still
// unconsumed is coalesced.
func (m *Monitor) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()
	return ch
}

// Unsubscribe removes a previously registered channel.
func (m *Monitor) Unsubscribe(ch chan struct{}) {
	m.mu.Lock()
	delete(m.subs, ch)
	m.mu.Unlock()
}

// Run polls until the context is cancelled. The first successful probe counts
// as an edge: the monitor starts out assuming offline.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckNow(ctx)

	for {
		select {
		case <-ticker.C:
			m.CheckNow(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CheckNow performs a single probe and returns the resulting reachability.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	err := m.pinger.Ping(probeCtx)
	cancel()

	m.setOnline(ctx, err == nil)
	return err == nil
}

func (m *Monitor) setOnline(ctx context.Context, online bool) {
	m.mu.Lock()
	edge := online && !m.online
	changed := online != m.online
	m.online = online

	var targets []chan struct{}
	if edge {
		targets = make([]chan struct{}, 0, len(m.subs))
		for ch := range m.subs {
			targets = append(targets, ch)
		}
	}
	m.mu.Unlock()

	if changed {
		if online {
			m.logger.Info(ctx, "server reachable")
		} else {
			m.logger.Info(ctx, "server unreachable")
		}
	}

	for _, ch := range targets {
		select {
		case ch <- struct{}{}:
		default:
			// subscriber still has an unconsumed edge
		}
	}
}
