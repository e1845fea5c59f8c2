package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ConnectivityState is the monitor side exposed to the UI.
type ConnectivityState interface {
	Online() bool
	LastOnline() time.Time
	Signal(online bool)
}

// ConnectivityHandlers accept platform network events from the UI.
type ConnectivityHandlers struct {
	monitor ConnectivityState
	logger  *zap.Logger
}

// NewConnectivityHandlers returns handler.
func NewConnectivityHandlers(monitor ConnectivityState, logger *zap.Logger) *ConnectivityHandlers {
	return &ConnectivityHandlers{monitor: monitor, logger: logger}
}

type connectivityRequest struct {
	Online *bool `json:"online"`
}

type connectivityResponse struct {
	Online     bool      `json:"online"`
	LastOnline time.Time `json:"lastOnline"`
}

// Get handles GET /api/connectivity.
func (h *ConnectivityHandlers) Get(w http.ResponseWriter, r *http.Request) {
	h.write(w)
}

// Put handles PUT /api/connectivity with {"online": bool}.
func (h *ConnectivityHandlers) Put(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if req.Online == nil {
		writeError(w, http.StatusBadRequest, "online is required")
		return
	}
	h.monitor.Signal(*req.Online)
	h.write(w)
}

func (h *ConnectivityHandlers) write(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, connectivityResponse{
		Online:     h.monitor.Online(),
		LastOnline: h.monitor.LastOnline(),
	})
}
