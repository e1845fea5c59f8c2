// Package snapshot caches the full station list with a freshness window and offline fallback.
package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/apperr"
	"chargemap/backend/services/station-sync/internal/clients"
	"chargemap/backend/services/station-sync/internal/kvstore"
	"chargemap/backend/services/station-sync/internal/models"
)

// DefaultMaxAge is the freshness window of a cached snapshot.
const DefaultMaxAge = 15 * time.Minute

// Fetcher loads the full station list.
type Fetcher interface {
	ListStations(ctx context.Context) ([]models.Station, error)
}

// Config wires a Cache.
type Config struct {
	MaxAge time.Duration
	Clock  clockwork.Clock
	// Online is consulted before fetching; when offline a cached snapshot is served without a request.
	Online clients.OnlineChecker
	// OnRefresh receives every snapshot obtained from the network.
	OnRefresh func([]models.Station)
}

// Result is what GetStations hands to the UI.
type Result struct {
	Stations  []models.Station
	FetchedAt time.Time
	// FromCache is true when no network call produced these stations.
	FromCache bool
	// Stale is true when a fetch was needed but failed (or was skipped offline); Err holds the reason.
	Stale bool
	Err   error
}

// Cache is the station snapshot cache.
type Cache struct {
	store   *kvstore.Store
	fetcher Fetcher
	cfg     Config
	logger  *zap.Logger

	mu        sync.RWMutex
	loaded    bool
	stations  []models.Station
	fetchedAt time.Time
}

// New builds a Cache.
func New(store *kvstore.Store, fetcher Fetcher, cfg Config, logger *zap.Logger) *Cache {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Cache{
		store:   store,
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.Named("snapshot"),
	}
}

// GetStations returns the cached snapshot while it is fresh, otherwise fetches a new one.
// A failed fetch falls back to any cached snapshot (Stale with Err set) and only returns an
// error when nothing is cached. Concurrent calls are not deduplicated.
func (c *Cache) GetStations(ctx context.Context, forceRefresh bool) (Result, error) {
	stations, fetchedAt, ok := c.cached(ctx)

	if ok && !forceRefresh && c.cfg.Clock.Since(fetchedAt) < c.cfg.MaxAge {
		return Result{Stations: stations, FetchedAt: fetchedAt, FromCache: true}, nil
	}

	if ok && c.cfg.Online != nil && !c.cfg.Online.Online() {
		return Result{
			Stations:  stations,
			FetchedAt: fetchedAt,
			FromCache: true,
			Stale:     true,
			Err:       apperr.Network(clients.ErrOffline),
		}, nil
	}

	fresh, err := c.fetcher.ListStations(ctx)
	if err != nil {
		if ok {
			c.logger.Warn("station refresh failed, serving cached snapshot",
				zap.Duration("age", c.cfg.Clock.Since(fetchedAt)), zap.Error(err))
			return Result{Stations: stations, FetchedAt: fetchedAt, FromCache: true, Stale: true, Err: err}, nil
		}
		return Result{}, err
	}

	now := c.cfg.Clock.Now()
	c.save(ctx, fresh, now)
	if c.cfg.OnRefresh != nil {
		c.cfg.OnRefresh(cloneStations(fresh))
	}
	return Result{Stations: cloneStations(fresh), FetchedAt: now}, nil
}

// Invalidate drops the in-memory and persisted snapshot.
func (c *Cache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.loaded = true
	c.stations = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()

	if err := c.store.Remove(ctx, kvstore.KeyCachedStations); err != nil {
		c.logger.Warn("failed to remove cached stations", zap.Error(err))
	}
	if err := c.store.Remove(ctx, kvstore.KeyCachedStationsTS); err != nil {
		c.logger.Warn("failed to remove cached stations timestamp", zap.Error(err))
	}
}

// Peek returns the cached snapshot, if any, without fetching.
func (c *Cache) Peek(ctx context.Context) ([]models.Station, time.Time, bool) {
	return c.cached(ctx)
}

func (c *Cache) cached(ctx context.Context) ([]models.Station, time.Time, bool) {
	c.mu.RLock()
	if c.loaded {
		defer c.mu.RUnlock()
		if c.fetchedAt.IsZero() {
			return nil, time.Time{}, false
		}
		return cloneStations(c.stations), c.fetchedAt, true
	}
	c.mu.RUnlock()

	var stations []models.Station
	var tsMillis int64
	found := c.store.Get(ctx, kvstore.KeyCachedStations, &stations) &&
		c.store.Get(ctx, kvstore.KeyCachedStationsTS, &tsMillis)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		c.loaded = true
		if found && tsMillis > 0 {
			c.stations = stations
			c.fetchedAt = time.UnixMilli(tsMillis)
		}
	}
	if c.fetchedAt.IsZero() {
		return nil, time.Time{}, false
	}
	return cloneStations(c.stations), c.fetchedAt, true
}

func (c *Cache) save(ctx context.Context, stations []models.Station, at time.Time) {
	c.mu.Lock()
	c.loaded = true
	c.stations = cloneStations(stations)
	c.fetchedAt = at
	c.mu.Unlock()

	if err := c.store.Set(ctx, kvstore.KeyCachedStations, stations, 0); err != nil {
		c.logger.Warn("failed to persist station snapshot", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, kvstore.KeyCachedStationsTS, at.UnixMilli(), 0); err != nil {
		c.logger.Warn("failed to persist station snapshot timestamp", zap.Error(err))
	}
}

func cloneStations(stations []models.Station) []models.Station {
	if stations == nil {
		return nil
	}
	result := make([]models.Station, len(stations))
	for i, st := range stations {
		result[i] = st.Clone()
	}
	return result
}
