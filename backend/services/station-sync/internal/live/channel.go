// Package live keeps a reconnecting push channel to the backend and fans
// station events out to per-station subscribers.
package live

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/models"
)

// State of the channel.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	// StateAbandoned is reached after the retry budget is spent. Nothing reconnects from it.
	StateAbandoned State = "abandoned"
	// StateClosed follows an explicit Disconnect.
	StateClosed State = "closed"
)

const (
	defaultBaseDelay  = time.Second
	defaultMaxRetries = 5
	writeWait         = 10 * time.Second
)

// Config tunes the channel.
type Config struct {
	URL        string
	BaseDelay  time.Duration
	MaxRetries int
	// PingInterval enables keepalive pings; zero disables them.
	PingInterval time.Duration
	// ReadTimeout is extended on every pong. Defaults to twice the ping interval.
	ReadTimeout time.Duration
}

// StateApplier receives the global effect of each event before subscribers see it.
type StateApplier interface {
	ApplyStationStatus(stationID string, update models.StationStatusUpdate) bool
	ApplyReliability(stationID string, update models.ReliabilityUpdate) bool
	AddAnomaly(anomaly models.Anomaly)
}

// Status is a point-in-time view of the connection.
type Status struct {
	State      State         `json:"state"`
	RetryCount int           `json:"retryCount"`
	NextRetry  time.Duration `json:"nextRetry,omitempty"`
	Since      time.Time     `json:"since"`
}

// Channel is the live update channel.
type Channel struct {
	cfg     Config
	dialer  Dialer
	applier StateApplier
	clock   clockwork.Clock
	logger  *zap.Logger
	subs    *Registry
	backoff backoff.BackOff

	startOnce sync.Once
	done      chan struct{}

	mu        sync.Mutex
	cancel    context.CancelFunc
	conn      Conn
	closed    bool
	status    Status
	listeners map[uint64]func(Status)
	nextID    uint64
}

// New builds a channel. Call Start to connect.
func New(cfg Config, dialer Dialer, applier StateApplier, clock clockwork.Clock, logger *zap.Logger) *Channel {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.PingInterval > 0 && cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * cfg.PingInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Channel{
		cfg:       cfg,
		dialer:    dialer,
		applier:   applier,
		clock:     clock,
		logger:    logger.Named("live"),
		subs:      NewRegistry(),
		backoff:   newBackOff(cfg, clock),
		done:      make(chan struct{}),
		status:    Status{State: StateDisconnected, Since: clock.Now()},
		listeners: make(map[uint64]func(Status)),
	}
}

// newBackOff yields base, 2*base, 4*base, ... and stops after MaxRetries delays.
func newBackOff(cfg Config, clock clockwork.Clock) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = cfg.BaseDelay << uint(cfg.MaxRetries)
	exp.MaxElapsedTime = 0
	exp.Clock = clock
	b := backoff.WithMaxRetries(exp, uint64(cfg.MaxRetries))
	b.Reset()
	return b
}

// Start connects in the background. Subsequent calls are no-ops.
func (c *Channel) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		c.mu.Lock()
		c.cancel = cancel
		c.mu.Unlock()
		go c.run(runCtx)
	})
}

// Subscribe registers cb for events about stationID. The returned function
// unsubscribes and may be called any number of times.
func (c *Channel) Subscribe(stationID string, cb Callback) func() {
	remove := c.subs.Add(stationID, cb)
	c.logger.Debug("station subscribed", zap.String("station_id", stationID), zap.Int("subscribers", c.subs.Count(stationID)))
	return remove
}

// OnStatus registers a listener for state changes and returns its remover.
func (c *Channel) OnStatus(fn func(Status)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Status returns the current connection status.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Done is closed once the channel has stopped for good.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Disconnect closes the connection, drops all subscriptions and stops reconnecting.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	dropped := c.subs.Stations()
	c.subs.Clear()
	c.startOnce.Do(func() { close(c.done) })
	c.publish(Status{State: StateClosed, Since: c.clock.Now()})
	c.logger.Info("live channel closed", zap.Int("dropped_stations", dropped))
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)

	retries := 0
	for {
		if c.isClosed() || ctx.Err() != nil {
			return
		}

		c.publish(Status{State: StateConnecting, RetryCount: retries, Since: c.clock.Now()})
		conn, err := c.dialer.Dial(ctx, c.cfg.URL)
		if err != nil {
			c.logger.Warn("live connect failed", zap.String("url", c.cfg.URL), zap.Int("retry", retries), zap.Error(err))
		} else if c.attach(conn) {
			retries = 0
			c.backoff.Reset()
			c.publish(Status{State: StateConnected, Since: c.clock.Now()})
			c.logger.Info("live channel connected", zap.String("url", c.cfg.URL))

			err = c.serve(ctx, conn)
			c.detach(conn)
			if c.isClosed() {
				return
			}
			c.logger.Info("live channel dropped", zap.Error(err))
		} else {
			_ = conn.Close()
			return
		}

		delay := c.backoff.NextBackOff()
		if delay == backoff.Stop {
			c.publish(Status{State: StateAbandoned, RetryCount: retries, Since: c.clock.Now()})
			c.logger.Error("live channel abandoned after retries", zap.Int("retries", retries))
			return
		}
		retries++

		timer := c.clock.NewTimer(delay)
		c.publish(Status{State: StateDisconnected, RetryCount: retries, NextRetry: delay, Since: c.clock.Now()})
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
	}
}

// attach records the open connection unless Disconnect won the race.
func (c *Channel) attach(conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.conn = conn
	return true
}

func (c *Channel) detach(conn Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// serve reads frames until the connection fails. Messages are handled one at a
// time on this goroutine, so delivery follows receipt order.
func (c *Channel) serve(ctx context.Context, conn Conn) error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	if c.cfg.PingInterval > 0 {
		_ = conn.SetReadDeadline(c.clock.Now().Add(c.cfg.ReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(c.clock.Now().Add(c.cfg.ReadTimeout))
		})
		go c.pingLoop(conn, stop)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handle(data)
	}
}

func (c *Channel) pingLoop(conn Conn, stop <-chan struct{}) {
	ticker := c.clock.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), c.clock.Now().Add(writeWait)); err != nil {
				c.logger.Debug("live ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Channel) handle(data []byte) {
	msg, err := ParseMessage(data)
	if err != nil {
		c.logger.Warn("dropping malformed live message", zap.Error(err))
		return
	}
	if !c.apply(msg) {
		return
	}
	for _, cb := range c.subs.Callbacks(msg.StationID) {
		c.deliver(cb, msg)
	}
}

// apply performs the global state change for msg. It returns false when the
// payload does not decode, in which case the message is dropped.
func (c *Channel) apply(msg Message) bool {
	switch msg.Type {
	case TypeStationStatus:
		update, err := Decode[models.StationStatusUpdate](msg.Payload)
		if err != nil {
			c.logger.Warn("dropping station status with bad payload", zap.String("station_id", msg.StationID), zap.Error(err))
			return false
		}
		if c.applier != nil {
			c.applier.ApplyStationStatus(msg.StationID, update)
		}
	case TypeReliabilityUpdate:
		update, err := Decode[models.ReliabilityUpdate](msg.Payload)
		if err != nil {
			c.logger.Warn("dropping reliability update with bad payload", zap.String("station_id", msg.StationID), zap.Error(err))
			return false
		}
		if c.applier != nil {
			c.applier.ApplyReliability(msg.StationID, update)
		}
	case TypeAnomalyDetected:
		anomaly, err := Decode[models.Anomaly](msg.Payload)
		if err != nil {
			c.logger.Warn("dropping anomaly with bad payload", zap.String("station_id", msg.StationID), zap.Error(err))
			return false
		}
		if anomaly.StationID == "" {
			anomaly.StationID = msg.StationID
		}
		if c.applier != nil {
			c.applier.AddAnomaly(anomaly)
		}
	case TypeMetricsUpdate:
		// Subscribers only; nothing global changes.
	}
	return true
}

func (c *Channel) deliver(cb Callback, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("live subscriber panicked",
				zap.String("station_id", msg.StationID), zap.String("type", msg.Type), zap.Any("panic", r))
		}
	}()
	cb(msg)
}

func (c *Channel) publish(status Status) {
	c.mu.Lock()
	if c.closed && status.State != StateClosed {
		c.mu.Unlock()
		return
	}
	c.status = status
	listeners := make([]func(Status), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(status)
	}
}
