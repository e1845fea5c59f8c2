package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/connectivity"
	"chargemap/backend/services/station-sync/internal/live"
	"chargemap/backend/services/station-sync/internal/models"
	"chargemap/backend/services/station-sync/internal/snapshot"
	"chargemap/backend/services/station-sync/internal/state"
)

// LiveChannel is the part of live.Channel the service drives.
type LiveChannel interface {
	Start(ctx context.Context)
	OnStatus(fn func(live.Status)) func()
	Status() live.Status
	Disconnect()
}

// Monitor is the part of connectivity.Monitor the service drives.
type Monitor interface {
	Online() bool
	LastOnline() time.Time
	Signal(online bool)
	AddStatusListener(fn connectivity.Listener) int
	RemoveStatusListener(id int)
	Run(ctx context.Context)
}

// StationsView is the station list with cache metadata.
type StationsView struct {
	Stations  []models.Station `json:"stations"`
	FetchedAt time.Time        `json:"fetchedAt"`
	FromCache bool             `json:"fromCache"`
	Stale     bool             `json:"stale"`
	Error     string           `json:"error,omitempty"`
	ErrorCode string           `json:"errorCode,omitempty"`
}

// Status summarizes sync health.
type Status struct {
	Online       bool        `json:"online"`
	LastOnline   time.Time   `json:"lastOnline"`
	Live         live.Status `json:"live"`
	Stations     int         `json:"stations"`
	StateUpdated time.Time   `json:"stateUpdatedAt"`
	SnapshotAt   time.Time   `json:"snapshotAt,omitempty"`
}

// SyncService keeps the in-memory station state fed from the snapshot cache and the live channel.
type SyncService struct {
	cache   *snapshot.Cache
	state   *state.StationState
	live    LiveChannel
	monitor Monitor
	clock   clockwork.Clock
	every   time.Duration
	logger  *zap.Logger

	refreshNow chan struct{}
}

// NewSyncService wires the service. every defaults to the snapshot freshness window.
func NewSyncService(cache *snapshot.Cache, st *state.StationState, ch LiveChannel, monitor Monitor, every time.Duration, clock clockwork.Clock, logger *zap.Logger) *SyncService {
	if every <= 0 {
		every = snapshot.DefaultMaxAge
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SyncService{
		cache:      cache,
		state:      st,
		live:       ch,
		monitor:    monitor,
		clock:      clock,
		every:      every,
		logger:     logger.Named("sync"),
		refreshNow: make(chan struct{}, 1),
	}
}

// Run blocks until ctx is done. The live channel is disconnected on return.
func (s *SyncService) Run(ctx context.Context) error {
	if stations, fetchedAt, ok := s.cache.Peek(ctx); ok {
		s.state.ReplaceStations(stations)
		s.logger.Info("loaded cached snapshot", zap.Int("stations", len(stations)), zap.Time("fetched_at", fetchedAt))
	}

	removeLive := s.live.OnStatus(func(st live.Status) {
		if st.State == live.StateConnected {
			s.monitor.Signal(true)
		}
	})
	defer removeLive()

	listenerID := s.monitor.AddStatusListener(func(online bool) {
		if !online {
			return
		}
		select {
		case s.refreshNow <- struct{}{}:
		default:
		}
	})
	defer s.monitor.RemoveStatusListener(listenerID)

	go s.monitor.Run(ctx)
	s.live.Start(ctx)
	defer s.live.Disconnect()

	s.refresh(ctx, false)

	ticker := s.clock.NewTicker(s.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			s.refresh(ctx, false)
		case <-s.refreshNow:
			s.logger.Info("back online, refreshing stations")
			s.refresh(ctx, true)
		}
	}
}

func (s *SyncService) refresh(ctx context.Context, force bool) {
	res, err := s.cache.GetStations(ctx, force)
	switch {
	case err != nil:
		s.logger.Warn("station refresh failed", zap.Error(err))
	case res.Stale:
		s.logger.Info("serving stale stations", zap.Error(res.Err))
	}
}

// Stations returns the current station view. forceRefresh bypasses the freshness window.
// Live updates applied since the last snapshot are included.
func (s *SyncService) Stations(ctx context.Context, forceRefresh bool) (StationsView, error) {
	res, err := s.cache.GetStations(ctx, forceRefresh)
	if err != nil {
		return StationsView{}, err
	}
	if s.state.Len() == 0 && len(res.Stations) > 0 {
		s.state.ReplaceStations(res.Stations)
	}

	view := StationsView{
		Stations:  s.state.Stations(),
		FetchedAt: res.FetchedAt,
		FromCache: res.FromCache,
		Stale:     res.Stale,
	}
	if res.Err != nil {
		view.Error = res.Err.Error()
		view.ErrorCode = errorCode(res.Err)
	}
	return view, nil
}

// ClearCache drops the persisted snapshot. The in-memory view stays until the next refresh.
func (s *SyncService) ClearCache(ctx context.Context) {
	s.cache.Invalidate(ctx)
	s.logger.Info("station snapshot cache cleared")
}

// Station returns one station from state.
func (s *SyncService) Station(id string) (models.Station, bool) {
	return s.state.Station(id)
}

// Anomalies returns anomalies pushed by the live channel.
func (s *SyncService) Anomalies(unresolvedOnly bool) []models.Anomaly {
	return s.state.Anomalies(unresolvedOnly)
}

// Status reports connectivity, live channel and state freshness.
func (s *SyncService) Status(ctx context.Context) Status {
	st := Status{
		Online:       s.monitor.Online(),
		LastOnline:   s.monitor.LastOnline(),
		Live:         s.live.Status(),
		Stations:     s.state.Len(),
		StateUpdated: s.state.UpdatedAt(),
	}
	if _, at, ok := s.cache.Peek(ctx); ok {
		st.SnapshotAt = at
	}
	return st
}
