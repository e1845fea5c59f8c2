// Package geolocation resolves the user's position with a last-known and default fallback.
package geolocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/apperr"
	"chargemap/backend/services/station-sync/internal/kvstore"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultMaxAge  = 60 * time.Second

	DefaultLatitude  = 59.437
	DefaultLongitude = 24.754
)

// Position sources.
const (
	SourceDevice    = "device"
	SourceFixed     = "fixed"
	SourceLastKnown = "last_known"
	SourceDefault   = "default"
)

// Position is a resolved coordinate.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

// State of the provider.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateResolved   State = "resolved"
	StateFailed     State = "failed"
)

// Config tunes the provider.
type Config struct {
	Timeout          time.Duration
	MaxAge           time.Duration
	DefaultLatitude  float64
	DefaultLongitude float64
	Clock            clockwork.Clock
}

// Snapshot is the provider's observable state.
type Snapshot struct {
	State    State     `json:"state"`
	Position *Position `json:"position,omitempty"`
	Error    string    `json:"error,omitempty"`
	Code     string    `json:"code,omitempty"`
}

// Provider tracks the current position.
type Provider struct {
	locator Locator
	store   *kvstore.Store
	cfg     Config
	logger  *zap.Logger

	// watchMu serializes watch replacement; mu guards the fields below it.
	watchMu   sync.Mutex
	mu        sync.Mutex
	state     State
	current   *Position
	lastErr   error
	stopWatch func()
}

// NewProvider builds a provider. Zero default coordinates fall back to the built-in default.
func NewProvider(locator Locator, store *kvstore.Store, cfg Config, logger *zap.Logger) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.DefaultLatitude == 0 && cfg.DefaultLongitude == 0 {
		cfg.DefaultLatitude = DefaultLatitude
		cfg.DefaultLongitude = DefaultLongitude
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Provider{
		locator: locator,
		store:   store,
		cfg:     cfg,
		logger:  logger.Named("geolocation"),
		state:   StateIdle,
	}
}

// RequestLocation asks the locator for a fix within the configured timeout.
func (p *Provider) RequestLocation(ctx context.Context) (Position, error) {
	p.mu.Lock()
	p.state = StateRequesting
	p.mu.Unlock()

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	timer := p.cfg.Clock.AfterFunc(p.cfg.Timeout, func() { cancel(context.DeadlineExceeded) })
	defer timer.Stop()

	pos, err := p.locator.Current(reqCtx, p.cfg.MaxAge)
	if err != nil {
		if ctx.Err() == nil && errors.Is(context.Cause(reqCtx), context.DeadlineExceeded) {
			err = ErrTimeout()
		}
		err = classify(err)
		p.fail(err)
		return Position{}, err
	}
	p.resolve(ctx, pos)
	return pos, nil
}

// BestKnown returns the current fix, else the persisted last location, else the default coordinate.
func (p *Provider) BestKnown(ctx context.Context) Position {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()
	if current != nil {
		return *current
	}

	var last Position
	if p.store != nil && p.store.Get(ctx, kvstore.KeyLastLocation, &last) && validCoordinate(last.Latitude, last.Longitude) {
		last.Source = SourceLastKnown
		return last
	}
	return Position{
		Latitude:  p.cfg.DefaultLatitude,
		Longitude: p.cfg.DefaultLongitude,
		Timestamp: p.cfg.Clock.Now(),
		Source:    SourceDefault,
	}
}

// WatchLocation streams fixes to fn, replacing any earlier watch. fn must not
// start or stop a watch itself.
func (p *Provider) WatchLocation(ctx context.Context, fn func(Position, error)) {
	p.watchMu.Lock()
	defer p.watchMu.Unlock()
	p.stopLocked()

	stop := p.locator.Watch(func(pos Position, err error) {
		if err != nil {
			err = classify(err)
			p.fail(err)
		} else {
			p.resolve(ctx, pos)
		}
		if fn != nil {
			fn(pos, err)
		}
	})

	p.mu.Lock()
	p.stopWatch = stop
	p.mu.Unlock()
}

// StopWatch ends the active watch, if any.
func (p *Provider) StopWatch() {
	p.watchMu.Lock()
	defer p.watchMu.Unlock()
	p.stopLocked()
}

// stopLocked requires watchMu.
func (p *Provider) stopLocked() {
	p.mu.Lock()
	stop := p.stopWatch
	p.stopWatch = nil
	p.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Watching reports whether a watch is active.
func (p *Provider) Watching() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopWatch != nil
}

// Snapshot returns the current state.
func (p *Provider) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := Snapshot{State: p.state}
	if p.current != nil {
		pos := *p.current
		snap.Position = &pos
	}
	if p.state == StateFailed && p.lastErr != nil {
		snap.Error = p.lastErr.Error()
		snap.Code = string(apperr.CodeOf(p.lastErr))
	}
	return snap
}

func (p *Provider) resolve(ctx context.Context, pos Position) {
	p.mu.Lock()
	p.state = StateResolved
	p.current = &pos
	p.lastErr = nil
	p.mu.Unlock()

	if p.store == nil {
		return
	}
	if err := p.store.Set(ctx, kvstore.KeyLastLocation, pos, 0); err != nil {
		p.logger.Warn("failed to persist last location", zap.Error(err))
	}
}

func (p *Provider) fail(err error) {
	p.mu.Lock()
	p.state = StateFailed
	p.lastErr = err
	p.mu.Unlock()
	p.logger.Info("location request failed", zap.Error(err))
}

func classify(err error) error {
	if apperr.KindOf(err) == apperr.KindLocation {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout()
	}
	return apperr.Wrap(apperr.KindLocation, apperr.CodePositionUnavailable, err)
}
