package geolocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"chargemap/backend/services/station-sync/internal/apperr"
)

// Locator is a source of position fixes.
type Locator interface {
	// Current returns a fix no older than maxAge, waiting for one if needed.
	Current(ctx context.Context, maxAge time.Duration) (Position, error)
	// Watch delivers every new fix or failure until stop is called.
	Watch(fn func(Position, error)) (stop func())
}

// ErrPermissionDenied is returned when the user refused location access.
func ErrPermissionDenied() error {
	return apperr.New(apperr.KindLocation, apperr.CodePermissionDenied, "location permission denied")
}

// ErrPositionUnavailable is returned when no fix can be produced.
func ErrPositionUnavailable() error {
	return apperr.New(apperr.KindLocation, apperr.CodePositionUnavailable, "position unavailable")
}

// ErrTimeout is returned when no fix arrived in time.
func ErrTimeout() error {
	return apperr.New(apperr.KindLocation, apperr.CodeTimeout, "location request timed out")
}

// FixedLocator always reports the same coordinate.
type FixedLocator struct {
	Latitude  float64
	Longitude float64
	Clock     clockwork.Clock
}

func (f FixedLocator) position() Position {
	clock := f.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return Position{Latitude: f.Latitude, Longitude: f.Longitude, Timestamp: clock.Now(), Source: SourceFixed}
}

// Current implements Locator.
func (f FixedLocator) Current(context.Context, time.Duration) (Position, error) {
	return f.position(), nil
}

// Watch implements Locator; the fix is delivered once.
func (f FixedLocator) Watch(fn func(Position, error)) func() {
	fn(f.position(), nil)
	return func() {}
}

// PushLocator receives fixes from the UI, which owns the device sensor.
type PushLocator struct {
	clock clockwork.Clock

	mu       sync.Mutex
	last     *Position
	failure  error
	waiters  []chan struct{}
	watchers map[int]func(Position, error)
	nextID   int
}

// NewPushLocator returns an empty locator.
func NewPushLocator(clock clockwork.Clock) *PushLocator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PushLocator{clock: clock, watchers: make(map[int]func(Position, error))}
}

// Push records a fix. A zero timestamp is stamped with the current time.
func (p *PushLocator) Push(pos Position) error {
	if !validCoordinate(pos.Latitude, pos.Longitude) {
		return apperr.New(apperr.KindValidation, apperr.CodeInvalid, "coordinate out of range")
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = p.clock.Now()
	}
	if pos.Source == "" {
		pos.Source = SourceDevice
	}
	p.mu.Lock()
	p.last = &pos
	p.failure = nil
	watchers := p.wakeLocked()
	p.mu.Unlock()

	for _, fn := range watchers {
		fn(pos, nil)
	}
	return nil
}

// Fail records a failure such as a permission denial. It sticks until the next Push.
func (p *PushLocator) Fail(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	p.failure = err
	watchers := p.wakeLocked()
	p.mu.Unlock()

	for _, fn := range watchers {
		fn(Position{}, err)
	}
}

func (p *PushLocator) wakeLocked() []func(Position, error) {
	for _, ch := range p.waiters {
		close(ch)
	}
	p.waiters = nil
	watchers := make([]func(Position, error), 0, len(p.watchers))
	for _, fn := range p.watchers {
		watchers = append(watchers, fn)
	}
	return watchers
}

// Current implements Locator.
func (p *PushLocator) Current(ctx context.Context, maxAge time.Duration) (Position, error) {
	for {
		p.mu.Lock()
		if p.failure != nil {
			err := p.failure
			p.mu.Unlock()
			return Position{}, err
		}
		if p.last != nil && p.clock.Since(p.last.Timestamp) <= maxAge {
			pos := *p.last
			p.mu.Unlock()
			return pos, nil
		}
		wake := make(chan struct{})
		p.waiters = append(p.waiters, wake)
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			p.dropWaiter(wake)
			if errors.Is(context.Cause(ctx), context.DeadlineExceeded) {
				return Position{}, ErrTimeout()
			}
			return Position{}, ctx.Err()
		case <-wake:
		}
	}
}

func (p *PushLocator) dropWaiter(wake chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, ch := range p.waiters {
		if ch == wake {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return
		}
	}
}

// Watch implements Locator.
func (p *PushLocator) Watch(fn func(Position, error)) func() {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.watchers[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.watchers, id)
			p.mu.Unlock()
		})
	}
}

func validCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
