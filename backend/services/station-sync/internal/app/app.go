package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	libdb "chargemap/backend/libs/db"
	libredis "chargemap/backend/libs/redis"
	"chargemap/backend/services/station-sync/internal/clients"
	"chargemap/backend/services/station-sync/internal/config"
	"chargemap/backend/services/station-sync/internal/connectivity"
	"chargemap/backend/services/station-sync/internal/geolocation"
	httpserver "chargemap/backend/services/station-sync/internal/http"
	"chargemap/backend/services/station-sync/internal/http/handlers"
	"chargemap/backend/services/station-sync/internal/identity"
	"chargemap/backend/services/station-sync/internal/kvstore"
	"chargemap/backend/services/station-sync/internal/live"
	"chargemap/backend/services/station-sync/internal/prefs"
	"chargemap/backend/services/station-sync/internal/service"
	"chargemap/backend/services/station-sync/internal/snapshot"
	"chargemap/backend/services/station-sync/internal/state"
)

// App wires station-sync dependencies.
type App struct {
	server      *httpserver.Server
	sync        *service.SyncService
	location    *geolocation.Provider
	prefs       *prefs.Store
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}
	clock := clockwork.NewRealClock()

	backend, err := a.newBackend(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	kv := kvstore.New(backend, kvstore.Options{
		Namespace: cfg.Cache.Namespace,
		Version:   cfg.Cache.SchemaVersion,
		Clock:     clock,
	}, logger)
	ids := identity.NewProvider(kv, logger)

	var checker connectivity.Checker
	if !cfg.Connectivity.Disabled {
		checker = connectivity.HTTPChecker{URL: cfg.HealthURL(), Client: clients.NewDefaultHTTPClient(cfg.HTTPTimeout())}
	}
	monitor := connectivity.NewMonitor(checker, cfg.ConnectivityInterval(), clock, logger)

	base := clients.NewBaseClient(cfg.Backend.BaseURL, clients.NewDefaultHTTPClient(cfg.HTTPTimeout()), ids, clients.Options{
		ReauthPath: cfg.Backend.ReauthPath,
		Online:     monitor,
	}, logger)
	stationsClient := clients.NewStationsClient(base)
	reportsClient := clients.NewReportsClient(base)

	stationState := state.NewStationState(clock)
	cache := snapshot.New(kv, stationsClient, snapshot.Config{
		MaxAge:    cfg.CacheMaxAge(),
		Clock:     clock,
		Online:    monitor,
		OnRefresh: stationState.ReplaceStations,
	}, logger)

	channel := live.New(live.Config{
		URL:          cfg.LiveURL(),
		BaseDelay:    cfg.LiveBaseDelay(),
		MaxRetries:   cfg.Live.MaxRetries,
		PingInterval: cfg.LivePingInterval(),
	}, live.NewWebsocketDialer(ids, cfg.HTTPTimeout()), stationState, clock, logger)

	a.sync = service.NewSyncService(cache, stationState, channel, monitor, cfg.CacheMaxAge(), clock, logger)

	var (
		locator geolocation.Locator
		sink    handlers.FixSink
	)
	if cfg.Location.Fixed {
		locator = geolocation.FixedLocator{Latitude: cfg.Location.DefaultLatitude, Longitude: cfg.Location.DefaultLongitude, Clock: clock}
	} else {
		push := geolocation.NewPushLocator(clock)
		locator, sink = push, push
	}
	a.location = geolocation.NewProvider(locator, kv, geolocation.Config{
		Timeout:          cfg.LocationTimeout(),
		MaxAge:           cfg.LocationMaxAge(),
		DefaultLatitude:  cfg.Location.DefaultLatitude,
		DefaultLongitude: cfg.Location.DefaultLongitude,
		Clock:            clock,
	}, logger)

	liveHandlers := handlers.NewLiveHandlers(channel, logger)
	a.prefs = prefs.New(kv, clients.NewPreferencesClient(base), ids, cfg.UI.DefaultLanguage, logger)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		StationsHandlers:     handlers.NewStationsHandlers(a.sync, a.location, stationsClient, logger),
		LocationHandlers:     handlers.NewLocationHandlers(a.location, sink, logger),
		PreferencesHandlers:  handlers.NewPreferencesHandlers(a.prefs, logger),
		ReportsHandlers:      handlers.NewReportsHandlers(reportsClient, logger),
		LiveHandlers:         liveHandlers,
		ConnectivityHandlers: handlers.NewConnectivityHandlers(monitor, logger),
		LookupHandlers: handlers.NewLookupHandlers(
			stationsClient,
			clients.NewConnectorsClient(base),
			clients.NewReliabilityClient(base),
			reportsClient,
			logger,
		),
		HealthHandler: handlers.NewHealthHandler(),
		ConfigHandler: handlers.NewConfigHandler(handlers.ClientConfig{
			DefaultLanguage: cfg.UI.DefaultLanguage,
			Languages:       prefs.Languages,
			MapAPIKey:       cfg.UI.MapAPIKey,
			LiveURL:         cfg.LiveURL(),
		}),
		JWTSecret: cfg.HTTP.JWTSecret,
		Logger:    logger,
	})
	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, logger)
	a.server.OnShutdown(liveHandlers.Close)

	logger.Info("station-sync configured",
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("live", cfg.LiveURL()),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("fixed_location", cfg.Location.Fixed),
	)
	return a, nil
}

func (a *App) newBackend(cfg *config.Config) (kvstore.Backend, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		return kvstore.NewMemoryBackend(cfg.Storage.MemorySize), nil
	case config.StorageFile:
		return kvstore.NewFileBackend(cfg.Storage.Dir)
	case config.StorageRedis:
		client, err := libredis.NewRedisClient(cfg.Storage.Redis.Addr, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redisClient = client
		return kvstore.NewRedisBackend(client, cfg.Storage.Redis.Prefix), nil
	case config.StoragePostgres:
		db, err := libdb.NewPostgresDB(context.Background(), cfg.Storage.PostgresDSN, libdb.PoolConfig{})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.db = db
		return kvstore.NewPostgresBackend(context.Background(), db)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Run starts the sync loop, the location watch and the local API until ctx ends.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	if _, err := a.prefs.Pull(ctx); err != nil {
		a.logger.Info("using local preferences", zap.Error(err))
	}

	a.location.WatchLocation(ctx, nil)
	defer a.location.StopWatch()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.sync.Run(ctx) })
	g.Go(func() error { return a.server.Run(ctx) })
	return g.Wait()
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
		a.db = nil
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
		a.redisClient = nil
	}
}
