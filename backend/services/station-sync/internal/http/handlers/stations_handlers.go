package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/apperr"
	"chargemap/backend/services/station-sync/internal/geo"
	"chargemap/backend/services/station-sync/internal/geolocation"
	"chargemap/backend/services/station-sync/internal/models"
	"chargemap/backend/services/station-sync/internal/service"
)

// StationSource is the station side of the sync service.
type StationSource interface {
	Stations(ctx context.Context, forceRefresh bool) (service.StationsView, error)
	Station(id string) (models.Station, bool)
	Anomalies(unresolvedOnly bool) []models.Anomaly
	Status(ctx context.Context) service.Status
	ClearCache(ctx context.Context)
}

// PositionSource resolves the reference point for distance queries.
type PositionSource interface {
	BestKnown(ctx context.Context) geolocation.Position
}

// StationGetter loads a single station from the backend.
type StationGetter interface {
	GetStation(ctx context.Context, id string) (models.Station, error)
}

// StationsHandlers serves the station view.
type StationsHandlers struct {
	source   StationSource
	position PositionSource
	remote   StationGetter
	logger   *zap.Logger
}

// NewStationsHandlers returns handler. remote may be nil.
func NewStationsHandlers(source StationSource, position PositionSource, remote StationGetter, logger *zap.Logger) *StationsHandlers {
	return &StationsHandlers{source: source, position: position, remote: remote, logger: logger}
}

type nearbyResponse struct {
	Stations  []geo.StationDistance `json:"stations"`
	Origin    geolocation.Position  `json:"origin"`
	RadiusKm  float64               `json:"radiusKm"`
	FetchedAt time.Time             `json:"fetchedAt"`
	FromCache bool                  `json:"fromCache"`
	Stale     bool                  `json:"stale"`
	Error     string                `json:"error,omitempty"`
	ErrorCode string                `json:"errorCode,omitempty"`
}

// List handles GET /api/stations. With radiusKm the result is limited to stations
// around lat/lon (or the best known position) and sorted nearest first.
func (h *StationsHandlers) List(w http.ResponseWriter, r *http.Request) {
	radiusKm, hasRadius, err := floatParam(r, "radiusKm")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	lat, hasLat, err := floatParam(r, "lat")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	lon, hasLon, err := floatParam(r, "lon")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if hasLat != hasLon {
		writeError(w, http.StatusBadRequest, "lat and lon must be given together")
		return
	}
	if hasRadius && radiusKm <= 0 {
		writeError(w, http.StatusBadRequest, "radiusKm must be positive")
		return
	}

	view, err := h.source.Stations(r.Context(), boolParam(r, "forceRefresh"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if !hasRadius && !hasLat {
		writeJSON(w, http.StatusOK, view)
		return
	}

	origin := geolocation.Position{Latitude: lat, Longitude: lon, Source: "query"}
	if !hasLat {
		origin = h.position.BestKnown(r.Context())
	}
	var stations []geo.StationDistance
	if hasRadius {
		stations = geo.WithinRadius(view.Stations, origin.Latitude, origin.Longitude, radiusKm*1000)
	} else {
		stations = geo.SortByDistance(view.Stations, origin.Latitude, origin.Longitude)
	}
	writeJSON(w, http.StatusOK, nearbyResponse{
		Stations:  stations,
		Origin:    origin,
		RadiusKm:  radiusKm,
		FetchedAt: view.FetchedAt,
		FromCache: view.FromCache,
		Stale:     view.Stale,
		Error:     view.Error,
		ErrorCode: view.ErrorCode,
	})
}

// Get handles GET /api/stations/{id}. Stations outside the snapshot are looked up remotely.
func (h *StationsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if st, ok := h.source.Station(id); ok {
		writeJSON(w, http.StatusOK, st)
		return
	}
	if h.remote == nil {
		writeAppError(w, h.logger, apperr.New(apperr.KindAPI, apperr.CodeNotFound, "station not found"))
		return
	}
	st, err := h.remote.GetStation(r.Context(), id)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type clusterResponse struct {
	ThresholdMeters float64       `json:"thresholdMeters"`
	Clusters        []geo.Cluster `json:"clusters"`
}

// Clusters handles GET /api/clusters.
func (h *StationsHandlers) Clusters(w http.ResponseWriter, r *http.Request) {
	threshold, ok, err := floatParam(r, "threshold")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if !ok || threshold <= 0 {
		threshold = geo.DefaultClusterThresholdMeters
	}
	view, err := h.source.Stations(r.Context(), false)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clusterResponse{
		ThresholdMeters: threshold,
		Clusters:        geo.ClusterStations(view.Stations, threshold),
	})
}

// Anomalies handles GET /api/anomalies; ?all=true includes resolved ones.
func (h *StationsHandlers) Anomalies(w http.ResponseWriter, r *http.Request) {
	anomalies := h.source.Anomalies(!boolParam(r, "all"))
	if anomalies == nil {
		anomalies = []models.Anomaly{}
	}
	writeJSON(w, http.StatusOK, anomalies)
}

// ClearCache handles DELETE /api/cache.
func (h *StationsHandlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.source.ClearCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /api/status.
func (h *StationsHandlers) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.Status(r.Context()))
}
