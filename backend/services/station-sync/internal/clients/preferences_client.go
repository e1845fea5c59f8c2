package clients

import (
	"context"
	"net/url"

	"chargemap/backend/services/station-sync/internal/models"
)

// PreferencesClient reads and writes server-side preferences per device.
type PreferencesClient struct {
	base *BaseClient
}

// NewPreferencesClient returns client.
func NewPreferencesClient(base *BaseClient) *PreferencesClient {
	return &PreferencesClient{base: base}
}

// Get fetches preferences for deviceID.
func (c *PreferencesClient) Get(ctx context.Context, deviceID string) (models.Preferences, error) {
	return Get[models.Preferences](ctx, c.base, "/preferences/"+url.PathEscape(deviceID), nil)
}

// Set replaces preferences for deviceID.
func (c *PreferencesClient) Set(ctx context.Context, deviceID string, prefs models.Preferences) (models.Preferences, error) {
	return Put[models.Preferences](ctx, c.base, "/preferences/"+url.PathEscape(deviceID), prefs)
}
