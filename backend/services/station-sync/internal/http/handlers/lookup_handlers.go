package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/apperr"
	"chargemap/backend/services/station-sync/internal/models"
)

// StationSearcher runs server-side station queries.
type StationSearcher interface {
	FilterStations(ctx context.Context, filter models.StationFilter) ([]models.Station, error)
	StationsByCity(ctx context.Context, city string) ([]models.Station, error)
	NearbyStations(ctx context.Context, lat, lon, radiusKm float64) ([]models.Station, error)
	Health(ctx context.Context) error
}

// ConnectorSource reads connectors.
type ConnectorSource interface {
	ByStation(ctx context.Context, stationID string) ([]models.Connector, error)
	Get(ctx context.Context, id string) (models.Connector, error)
	ByType(ctx context.Context, connectorType models.ConnectorType) ([]models.Connector, error)
}

// ReliabilitySource reads reliability metrics.
type ReliabilitySource interface {
	ByStation(ctx context.Context, stationID string) (models.StationReliability, error)
	MostReliable(ctx context.Context, limit int) ([]models.StationReliability, error)
	AboveThreshold(ctx context.Context, minScore float64) ([]models.StationReliability, error)
}

// ReportCounter reads report counts.
type ReportCounter interface {
	CountForStation(ctx context.Context, stationID string) (models.ReportCount, error)
}

// LookupHandlers proxy uncached backend queries.
type LookupHandlers struct {
	stations    StationSearcher
	connectors  ConnectorSource
	reliability ReliabilitySource
	reports     ReportCounter
	logger      *zap.Logger
}

// NewLookupHandlers returns handler.
func NewLookupHandlers(stations StationSearcher, connectors ConnectorSource, reliability ReliabilitySource, reports ReportCounter, logger *zap.Logger) *LookupHandlers {
	return &LookupHandlers{
		stations:    stations,
		connectors:  connectors,
		reliability: reliability,
		reports:     reports,
		logger:      logger,
	}
}

// Search handles GET /api/search. lat+lon+radiusKm selects the nearby query, a lone city
// the city listing, anything else the filter endpoint.
func (h *LookupHandlers) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
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
	radius, hasRadius, err := floatParam(r, "radiusKm")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	var stations []models.Station
	switch {
	case hasLat && hasLon && hasRadius:
		stations, err = h.stations.NearbyStations(r.Context(), lat, lon, radius)
	case q.Get("city") != "" && len(q) == 1:
		stations, err = h.stations.StationsByCity(r.Context(), q.Get("city"))
	default:
		filter := models.StationFilter{
			NetworkID:     q.Get("networkId"),
			ConnectorType: models.ConnectorType(strings.ToUpper(q.Get("connectorType"))),
			AvailableOnly: boolParam(r, "availableOnly"),
			City:          q.Get("city"),
		}
		if filter.ConnectorType != "" && !filter.ConnectorType.Valid() {
			writeError(w, http.StatusBadRequest, "unknown connectorType")
			return
		}
		if filter.MinPowerKW, _, err = floatParam(r, "minPower"); err != nil {
			writeAppError(w, h.logger, err)
			return
		}
		if filter.MinReliability, _, err = floatParam(r, "minReliability"); err != nil {
			writeAppError(w, h.logger, err)
			return
		}
		stations, err = h.stations.FilterStations(r.Context(), filter)
	}
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if stations == nil {
		stations = []models.Station{}
	}
	writeJSON(w, http.StatusOK, stations)
}

// StationConnectors handles GET /api/stations/{id}/connectors.
func (h *LookupHandlers) StationConnectors(w http.ResponseWriter, r *http.Request) {
	connectors, err := h.connectors.ByStation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, connectors)
}

// Connector handles GET /api/connectors/{id}.
func (h *LookupHandlers) Connector(w http.ResponseWriter, r *http.Request) {
	connector, err := h.connectors.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, connector)
}

// ConnectorsByType handles GET /api/connectors?type=CCS.
func (h *LookupHandlers) ConnectorsByType(w http.ResponseWriter, r *http.Request) {
	ct := models.ConnectorType(strings.ToUpper(r.URL.Query().Get("type")))
	if !ct.Valid() {
		writeError(w, http.StatusBadRequest, "unknown connector type")
		return
	}
	connectors, err := h.connectors.ByType(r.Context(), ct)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, connectors)
}

// StationReliability handles GET /api/stations/{id}/reliability.
func (h *LookupHandlers) StationReliability(w http.ResponseWriter, r *http.Request) {
	rel, err := h.reliability.ByStation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

// Reliability handles GET /api/reliability with either ?minScore= or ?limit=.
func (h *LookupHandlers) Reliability(w http.ResponseWriter, r *http.Request) {
	minScore, hasMin, err := floatParam(r, "minScore")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	var result []models.StationReliability
	if hasMin {
		result, err = h.reliability.AboveThreshold(r.Context(), minScore)
	} else {
		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				writeAppError(w, h.logger, apperr.New(apperr.KindValidation, apperr.CodeInvalid, "invalid limit"))
				return
			}
		}
		result, err = h.reliability.MostReliable(r.Context(), limit)
	}
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ReportCount handles GET /api/stations/{id}/reports/count.
func (h *LookupHandlers) ReportCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.reports.CountForStation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, count)
}

// BackendHealth handles GET /api/backend/health.
func (h *LookupHandlers) BackendHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.stations.Health(r.Context()); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
