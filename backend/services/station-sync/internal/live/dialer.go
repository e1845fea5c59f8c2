package live

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the channel uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer opens live connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DeviceIdentity supplies the id sent with the handshake.
type DeviceIdentity interface {
	EnsureDeviceID(ctx context.Context) string
}

// WebsocketDialer dials with gorilla/websocket and sends the device id header.
type WebsocketDialer struct {
	dialer   *websocket.Dialer
	identity DeviceIdentity
}

// NewWebsocketDialer builds a dialer. A nil identity sends no header.
func NewWebsocketDialer(identity DeviceIdentity, handshakeTimeout time.Duration) *WebsocketDialer {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	return &WebsocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			ReadBufferSize:   4096,
			WriteBufferSize:  1024,
		},
		identity: identity,
	}
}

// Dial implements Dialer.
func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	header := http.Header{}
	if d.identity != nil {
		if id := d.identity.EnsureDeviceID(ctx); id != "" {
			header.Set("X-Device-ID", id)
		}
	}
	conn, resp, err := d.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(1024 * 1024)
	return conn, nil
}
