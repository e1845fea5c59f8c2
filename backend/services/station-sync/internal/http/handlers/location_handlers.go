package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/apperr"
	"chargemap/backend/services/station-sync/internal/geolocation"
)

// LocationProvider is the geolocation side used by the location endpoints.
type LocationProvider interface {
	RequestLocation(ctx context.Context) (geolocation.Position, error)
	BestKnown(ctx context.Context) geolocation.Position
	Snapshot() geolocation.Snapshot
}

// FixSink accepts fixes and failures reported by the UI.
type FixSink interface {
	Push(pos geolocation.Position) error
	Fail(err error)
}

// LocationHandlers serve the device position.
type LocationHandlers struct {
	provider LocationProvider
	sink     FixSink
	logger   *zap.Logger
}

// NewLocationHandlers returns handler. sink may be nil when positions come from a fixed locator.
func NewLocationHandlers(provider LocationProvider, sink FixSink, logger *zap.Logger) *LocationHandlers {
	return &LocationHandlers{provider: provider, sink: sink, logger: logger}
}

type locationResponse struct {
	geolocation.Snapshot
	BestKnown geolocation.Position `json:"bestKnown"`
}

// Get handles GET /api/location.
func (h *LocationHandlers) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, locationResponse{
		Snapshot:  h.provider.Snapshot(),
		BestKnown: h.provider.BestKnown(r.Context()),
	})
}

// Refresh handles POST /api/location/refresh: waits for a fresh fix within the request timeout.
func (h *LocationHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	pos, err := h.provider.RequestLocation(r.Context())
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

type locationUpdate struct {
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
	// Error carries a browser failure code instead of a fix.
	Error string `json:"error"`
}

// Put handles PUT /api/location with either a fix or an error code.
func (h *LocationHandlers) Put(w http.ResponseWriter, r *http.Request) {
	if h.sink == nil {
		writeError(w, http.StatusConflict, "location is fixed by configuration")
		return
	}
	var body locationUpdate
	if err := decodeBody(r, &body); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	switch apperr.Code(body.Error) {
	case "":
	case apperr.CodePermissionDenied:
		h.sink.Fail(geolocation.ErrPermissionDenied())
		writeJSON(w, http.StatusAccepted, h.provider.Snapshot())
		return
	case apperr.CodePositionUnavailable:
		h.sink.Fail(geolocation.ErrPositionUnavailable())
		writeJSON(w, http.StatusAccepted, h.provider.Snapshot())
		return
	case apperr.CodeTimeout:
		h.sink.Fail(geolocation.ErrTimeout())
		writeJSON(w, http.StatusAccepted, h.provider.Snapshot())
		return
	default:
		writeError(w, http.StatusBadRequest, "unknown location error code")
		return
	}

	if body.Latitude == nil || body.Longitude == nil {
		writeError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	err := h.sink.Push(geolocation.Position{
		Latitude:  *body.Latitude,
		Longitude: *body.Longitude,
		Accuracy:  body.Accuracy,
		Timestamp: body.Timestamp,
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.provider.Snapshot())
}
