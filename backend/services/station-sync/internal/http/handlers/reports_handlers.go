package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/http/middleware"
	"chargemap/backend/services/station-sync/internal/models"
)

// ReportSubmitter forwards reports to the backend.
type ReportSubmitter interface {
	Create(ctx context.Context, req models.ReportRequest) (models.Report, error)
}

// ReportsHandlers accept user station reports.
type ReportsHandlers struct {
	client ReportSubmitter
	logger *zap.Logger
}

// NewReportsHandlers returns handler.
func NewReportsHandlers(client ReportSubmitter, logger *zap.Logger) *ReportsHandlers {
	return &ReportsHandlers{client: client, logger: logger}
}

// Create handles POST /api/reports.
func (h *ReportsHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req models.ReportRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	req.StationID = strings.TrimSpace(req.StationID)
	if req.StationID == "" {
		writeError(w, http.StatusBadRequest, "stationId is required")
		return
	}
	switch req.ReportType {
	case models.ReportWorking, models.ReportNotWorking, models.ReportOccupied, models.ReportSlowCharging:
	default:
		writeError(w, http.StatusBadRequest, "invalid reportType")
		return
	}

	report, err := h.client.Create(r.Context(), req)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	deviceID, _ := middleware.DeviceIDFromContext(r.Context())
	h.logger.Info("report submitted",
		zap.String("station_id", req.StationID),
		zap.String("report_type", string(req.ReportType)),
		zap.String("device_id", deviceID),
	)
	writeJSON(w, http.StatusCreated, report)
}
