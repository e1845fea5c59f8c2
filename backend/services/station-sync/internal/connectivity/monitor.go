// Package connectivity tracks whether the backend is reachable.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultInterval between reachability probes.
const DefaultInterval = 30 * time.Second

// Checker probes reachability.
type Checker interface {
	Check(ctx context.Context) bool
}

// HTTPChecker treats any non-5xx answer from URL as online.
type HTTPChecker struct {
	URL    string
	Client *http.Client
}

// Check implements Checker.
func (h HTTPChecker) Check(ctx context.Context) bool {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// Listener is told about online/offline transitions.
type Listener func(online bool)

// Monitor holds the current connectivity state.
type Monitor struct {
	checker  Checker
	interval time.Duration
	clock    clockwork.Clock
	logger   *zap.Logger

	mu         sync.Mutex
	online     bool
	lastOnline time.Time
	listeners  map[int]Listener
	nextID     int
}

// NewMonitor starts optimistic (online). A nil checker means only Signal changes state.
func NewMonitor(checker Checker, interval time.Duration, clock clockwork.Clock, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Monitor{
		checker:    checker,
		interval:   interval,
		clock:      clock,
		logger:     logger.Named("connectivity"),
		online:     true,
		lastOnline: clock.Now(),
		listeners:  make(map[int]Listener),
	}
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// LastOnline is the time of the last offline to online transition, or
// construction time if the monitor never went offline.
func (m *Monitor) LastOnline() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOnline
}

// AddStatusListener registers fn and returns an id for RemoveStatusListener.
func (m *Monitor) AddStatusListener(fn Listener) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.listeners[m.nextID] = fn
	return m.nextID
}

// RemoveStatusListener drops a listener. Unknown ids are ignored.
func (m *Monitor) RemoveStatusListener(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listeners, id)
}

// Signal records an externally observed state, e.g. a platform network event
// or a successful live connection.
func (m *Monitor) Signal(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	if changed && online {
		m.lastOnline = m.clock.Now()
	}
	var listeners []Listener
	if changed {
		listeners = make([]Listener, 0, len(m.listeners))
		for _, fn := range m.listeners {
			listeners = append(listeners, fn)
		}
	}
	m.mu.Unlock()

	if !changed {
		return
	}
	m.logger.Info("connectivity changed", zap.Bool("online", online))
	for _, fn := range listeners {
		m.notify(fn, online)
	}
}

// Check runs the probe once and records the result.
func (m *Monitor) Check(ctx context.Context) bool {
	if m.checker == nil {
		return m.Online()
	}
	online := m.checker.Check(ctx)
	if ctx.Err() != nil {
		return m.Online()
	}
	m.Signal(online)
	return online
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	if m.checker == nil {
		<-ctx.Done()
		return
	}

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.Check(ctx)
		}
	}
}

func (m *Monitor) notify(fn Listener, online bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("connectivity listener panicked", zap.Any("panic", r))
		}
	}()
	fn(online)
}
