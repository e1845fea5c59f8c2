package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	libconfig "chargemap/backend/libs/config"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// HTTPConfig is the local API listener.
type HTTPConfig struct {
	Port      string `yaml:"port" env:"STATION_SYNC_HTTP_PORT"`
	JWTSecret string `yaml:"jwtSecret" env:"STATION_SYNC_JWT_SECRET"`
}

// BackendConfig points at the remote EV API.
type BackendConfig struct {
	BaseURL        string `yaml:"baseUrl" env:"EV_API_BASE_URL"`
	LiveURL        string `yaml:"liveUrl" env:"EV_WS_URL"`
	ReauthPath     string `yaml:"reauthPath" env:"EV_API_REAUTH_PATH"`
	HealthPath     string `yaml:"healthPath" env:"EV_API_HEALTH_PATH"`
	TimeoutSeconds int    `yaml:"timeoutSeconds" env:"EV_API_TIMEOUT"`
}

// LiveConfig tunes the live channel.
type LiveConfig struct {
	BaseDelayMillis int `yaml:"baseDelayMillis" env:"LIVE_BASE_DELAY_MS"`
	MaxRetries      int `yaml:"maxRetries" env:"LIVE_MAX_RETRIES"`
	PingSeconds     int `yaml:"pingSeconds" env:"LIVE_PING_SECONDS"`
}

// CacheConfig tunes the snapshot cache.
type CacheConfig struct {
	MaxAgeMinutes int    `yaml:"maxAgeMinutes" env:"CACHE_MAX_AGE_MINUTES"`
	Namespace     string `yaml:"namespace" env:"CACHE_NAMESPACE"`
	SchemaVersion int    `yaml:"schemaVersion" env:"CACHE_SCHEMA_VERSION"`
}

// RedisConfig selects the redis storage backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"STORAGE_REDIS_ADDR"`
	Password string `yaml:"password" env:"STORAGE_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"STORAGE_REDIS_DB"`
	Prefix   string `yaml:"prefix" env:"STORAGE_REDIS_PREFIX"`
}

// StorageConfig selects the durable store backend.
type StorageConfig struct {
	Driver      string      `yaml:"driver" env:"STORAGE_DRIVER"`
	Dir         string      `yaml:"dir" env:"STORAGE_DIR"`
	MemorySize  int         `yaml:"memorySize" env:"STORAGE_MEMORY_SIZE"`
	PostgresDSN string      `yaml:"postgresDsn" env:"STORAGE_POSTGRES_DSN"`
	Redis       RedisConfig `yaml:"redis"`
}

// ConnectivityConfig tunes reachability probing.
type ConnectivityConfig struct {
	IntervalSeconds int  `yaml:"intervalSeconds" env:"CONNECTIVITY_INTERVAL_SECONDS"`
	Disabled        bool `yaml:"disabled" env:"CONNECTIVITY_PROBE_DISABLED"`
}

// LocationConfig sets the position source and fallback coordinate.
type LocationConfig struct {
	DefaultLatitude  float64 `yaml:"defaultLatitude" env:"LOCATION_DEFAULT_LAT"`
	DefaultLongitude float64 `yaml:"defaultLongitude" env:"LOCATION_DEFAULT_LON"`
	TimeoutSeconds   int     `yaml:"timeoutSeconds" env:"LOCATION_TIMEOUT_SECONDS"`
	MaxAgeSeconds    int     `yaml:"maxAgeSeconds" env:"LOCATION_MAX_AGE_SECONDS"`
	// Fixed reports the default coordinate instead of waiting for UI fixes.
	Fixed bool `yaml:"fixed" env:"LOCATION_FIXED"`
}

// UIConfig holds values handed to the UI.
type UIConfig struct {
	DefaultLanguage string `yaml:"defaultLanguage" env:"DEFAULT_LANGUAGE"`
	MapAPIKey       string `yaml:"mapApiKey" env:"MAP_API_KEY"`
}

// Config defines station-sync configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Backend      BackendConfig      `yaml:"backend"`
	Live         LiveConfig         `yaml:"live"`
	Cache        CacheConfig        `yaml:"cache"`
	Storage      StorageConfig      `yaml:"storage"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Location     LocationConfig     `yaml:"location"`
	UI           UIConfig           `yaml:"ui"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		HTTP: HTTPConfig{Port: "8090"},
		Backend: BackendConfig{
			BaseURL:        "http://localhost:3000/api",
			ReauthPath:     "/devices/refresh",
			HealthPath:     "/health",
			TimeoutSeconds: 10,
		},
		Live: LiveConfig{
			BaseDelayMillis: 1000,
			MaxRetries:      5,
			PingSeconds:     30,
		},
		Cache: CacheConfig{
			MaxAgeMinutes: 15,
			Namespace:     "ev_",
			SchemaVersion: 1,
		},
		Storage: StorageConfig{
			Driver:     StorageFile,
			Dir:        "./data",
			MemorySize: 256,
			Redis:      RedisConfig{Addr: "localhost:6379", Prefix: "station-sync:"},
		},
		Connectivity: ConnectivityConfig{IntervalSeconds: 30},
		Location: LocationConfig{
			DefaultLatitude:  59.437,
			DefaultLongitude: 24.754,
			TimeoutSeconds:   10,
			MaxAgeSeconds:    60,
		},
		UI: UIConfig{DefaultLanguage: "en"},
	}
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := Defaults()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot default.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("config: backend base url required")
	}
	if _, err := url.Parse(c.Backend.BaseURL); err != nil {
		return fmt.Errorf("config: backend base url: %w", err)
	}
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageFile:
		if strings.TrimSpace(c.Storage.Dir) == "" {
			return errors.New("config: storage dir required for file driver")
		}
	case StorageRedis:
		if strings.TrimSpace(c.Storage.Redis.Addr) == "" {
			return errors.New("config: redis addr required for redis driver")
		}
	case StoragePostgres:
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			return errors.New("config: postgres dsn required for postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Location.DefaultLatitude < -90 || c.Location.DefaultLatitude > 90 ||
		c.Location.DefaultLongitude < -180 || c.Location.DefaultLongitude > 180 {
		return errors.New("config: default location out of range")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8090"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// HTTPTimeout returns the backend client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.Backend.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// LiveURL returns the configured live endpoint, deriving ws(s)://host/ws from the base URL when unset.
func (c *Config) LiveURL() string {
	if u := strings.TrimSpace(c.Backend.LiveURL); u != "" {
		return u
	}
	base, err := url.Parse(c.Backend.BaseURL)
	if err != nil || base.Host == "" {
		return "ws://localhost:3000/ws"
	}
	scheme := "ws"
	if base.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: base.Host, Path: "/ws"}).String()
}

// HealthURL is probed by the connectivity monitor.
func (c *Config) HealthURL() string {
	return strings.TrimRight(c.Backend.BaseURL, "/") + "/" + strings.TrimLeft(c.Backend.HealthPath, "/")
}

// LiveBaseDelay returns the first reconnect delay.
func (c *Config) LiveBaseDelay() time.Duration {
	if c.Live.BaseDelayMillis <= 0 {
		return time.Second
	}
	return time.Duration(c.Live.BaseDelayMillis) * time.Millisecond
}

// LivePingInterval returns the keepalive interval; zero disables pings.
func (c *Config) LivePingInterval() time.Duration {
	if c.Live.PingSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Live.PingSeconds) * time.Second
}

// CacheMaxAge returns the snapshot freshness window.
func (c *Config) CacheMaxAge() time.Duration {
	if c.Cache.MaxAgeMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Cache.MaxAgeMinutes) * time.Minute
}

// ConnectivityInterval returns the probe interval.
func (c *Config) ConnectivityInterval() time.Duration {
	if c.Connectivity.IntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Connectivity.IntervalSeconds) * time.Second
}

// LocationTimeout returns the location request timeout.
func (c *Config) LocationTimeout() time.Duration {
	return seconds(c.Location.TimeoutSeconds, 10*time.Second)
}

// LocationMaxAge returns the maximum accepted fix age.
func (c *Config) LocationMaxAge() time.Duration {
	return seconds(c.Location.MaxAgeSeconds, 60*time.Second)
}

func seconds(v int, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return time.Duration(v) * time.Second
}
