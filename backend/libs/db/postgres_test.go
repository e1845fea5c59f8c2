package db

import (
	"context"
	"testing"
	"time"
)

func TestNewPostgresDBRejectsEmptyDSN(t *testing.T) {
	if _, err := NewPostgresDB(context.Background(), "  ", PoolConfig{}); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestPoolDefaults(t *testing.T) {
	got := PoolConfig{MaxIdleConns: 10}.withDefaults()
	if got.MaxOpenConns != 4 || got.MaxIdleConns != 4 {
		t.Fatalf("idle conns must be capped by open conns, got %+v", got)
	}
	if got.ConnMaxLifetime != time.Hour || got.ConnMaxIdleTime != 30*time.Minute {
		t.Fatalf("unexpected lifetimes %+v", got)
	}

	custom := PoolConfig{MaxOpenConns: 8, MaxIdleConns: 2}.withDefaults()
	if custom.MaxOpenConns != 8 || custom.MaxIdleConns != 2 {
		t.Fatalf("explicit sizes must be kept, got %+v", custom)
	}
}
