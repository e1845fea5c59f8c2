package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/kvstore"
)

// Provider owns the per-installation device identifier.
type Provider struct {
	store  *kvstore.Store
	logger *zap.Logger
	newID  func() string

	mu     sync.Mutex
	cached string
}

// NewProvider returns provider backed by store.
func NewProvider(store *kvstore.Store, logger *zap.Logger) *Provider {
	return &Provider{
		store:  store,
		logger: logger.Named("identity"),
		newID:  uuid.NewString,
	}
}

// DeviceID returns the persisted identifier, or "" when none was ever created.
func (p *Provider) DeviceID(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked(ctx)
}

// EnsureDeviceID returns the identifier, creating and persisting a random v4 UUID on first use.
func (p *Provider) EnsureDeviceID(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id := p.loadLocked(ctx); id != "" {
		return id
	}

	id := p.newID()
	p.cached = id
	if err := p.store.Set(ctx, kvstore.KeyDeviceID, id, 0); err != nil {
		p.logger.Warn("failed to persist device id", zap.Error(err))
	}
	p.logger.Info("created device id", zap.String("device_id", id))
	return id
}

// Rotate replaces the identifier with a server-issued one.
// Empty or unchanged ids are ignored. It reports whether the id changed.
func (p *Provider) Rotate(ctx context.Context, id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loadLocked(ctx) == id {
		return false
	}
	previous := p.cached
	p.cached = id
	if err := p.store.Set(ctx, kvstore.KeyDeviceID, id, 0); err != nil {
		p.logger.Warn("failed to persist rotated device id", zap.Error(err))
	}
	p.logger.Info("device id rotated by server", zap.String("previous", previous), zap.String("device_id", id))
	return true
}

func (p *Provider) loadLocked(ctx context.Context) string {
	if p.cached != "" {
		return p.cached
	}
	var id string
	if p.store.Get(ctx, kvstore.KeyDeviceID, &id) {
		p.cached = id
	}
	return p.cached
}
