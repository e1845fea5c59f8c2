package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/live"
)

const (
	liveWriteWait    = 10 * time.Second
	livePongWait     = 60 * time.Second
	livePingInterval = 30 * time.Second
	liveSendBuffer   = 16
)

// LiveSubscriber registers per-station callbacks on the live channel.
type LiveSubscriber interface {
	Subscribe(stationID string, cb live.Callback) func()
}

// LiveHandlers streams live station events to local websocket clients.
type LiveHandlers struct {
	live     LiveSubscriber
	upgrader websocket.Upgrader
	logger   *zap.Logger

	closeOnce sync.Once
	closing   chan struct{}
}

// NewLiveHandlers returns handler.
func NewLiveHandlers(subscriber LiveSubscriber, logger *zap.Logger) *LiveHandlers {
	return &LiveHandlers{
		live:    subscriber,
		logger:  logger,
		closing: make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Stream handles GET /api/stations/{id}/live. Every event for the station is
// written as a JSON frame until the client goes away; the subscription is
// dropped with the socket.
func (h *LiveHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "id")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("station_id", stationID), zap.Error(err))
		return
	}

	send := make(chan live.Message, liveSendBuffer)
	remove := h.live.Subscribe(stationID, func(msg live.Message) {
		select {
		case send <- msg:
		default:
			h.logger.Warn("dropping live message, client too slow",
				zap.String("station_id", stationID), zap.String("type", msg.Type))
		}
	})
	defer func() {
		remove()
		_ = conn.Close()
		h.logger.Info("live client disconnected", zap.String("station_id", stationID))
	}()
	h.logger.Info("live client connected", zap.String("station_id", stationID))

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(liveWriteWait))
			return
		case <-closed:
			return
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("live write failed", zap.String("station_id", stationID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}

// Close ends every open stream with a going-away frame.
func (h *LiveHandlers) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// readPump discards client frames and closes done once the socket fails.
func (h *LiveHandlers) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
