package clients

import (
	"context"
	"net/url"

	"chargemap/backend/services/station-sync/internal/models"
)

// ConnectorsClient reads connector data.
type ConnectorsClient struct {
	base *BaseClient
}

// NewConnectorsClient returns client.
func NewConnectorsClient(base *BaseClient) *ConnectorsClient {
	return &ConnectorsClient{base: base}
}

// ByStation lists connectors of a station.
func (c *ConnectorsClient) ByStation(ctx context.Context, stationID string) ([]models.Connector, error) {
	return Get[[]models.Connector](ctx, c.base, "/connectors/station/"+url.PathEscape(stationID), nil)
}

// Get fetches one connector.
func (c *ConnectorsClient) Get(ctx context.Context, id string) (models.Connector, error) {
	return Get[models.Connector](ctx, c.base, "/connectors/"+url.PathEscape(id), nil)
}

// ByType lists connectors of a plug type.
func (c *ConnectorsClient) ByType(ctx context.Context, connectorType models.ConnectorType) ([]models.Connector, error) {
	return Get[[]models.Connector](ctx, c.base, "/connectors/type/"+url.PathEscape(string(connectorType)), nil)
}
