package app

import (
	"testing"

	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/config"
)

func TestNewBuildsGraphForLocalDrivers(t *testing.T) {
	for _, driver := range []string{config.StorageMemory, config.StorageFile} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Storage.Driver = driver
			cfg.Storage.Dir = t.TempDir()
			cfg.Connectivity.Disabled = true

			a, err := New(cfg, zap.NewNop())
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			if a.server == nil || a.sync == nil || a.location == nil {
				t.Fatalf("incomplete graph %+v", a)
			}
			a.Close()
		})
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.Driver = "mongo"
	if _, err := New(cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestNewFailsWithoutPostgres(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.Driver = config.StoragePostgres
	if _, err := New(cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing dsn")
	}
}
