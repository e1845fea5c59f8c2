package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/apperr"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps typed errors onto HTTP statuses.
func writeAppError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusBadGateway
	switch {
	case appErr.Kind == apperr.KindValidation:
		status = http.StatusBadRequest
	case appErr.Code == apperr.CodeNotFound:
		status = http.StatusNotFound
	case appErr.Code == apperr.CodePermissionDenied:
		status = http.StatusForbidden
	case appErr.Code == apperr.CodeTimeout:
		status = http.StatusGatewayTimeout
	case appErr.Kind == apperr.KindNetwork, appErr.Code == apperr.CodePositionUnavailable:
		status = http.StatusServiceUnavailable
	case appErr.Kind == apperr.KindStorage:
		status = http.StatusInternalServerError
	case appErr.Status >= 400 && appErr.Status < 500:
		status = appErr.Status
	}
	if status >= 500 {
		logger.Warn("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{
		"error": appErr.Error(),
		"code":  string(appErr.Code),
		"kind":  string(appErr.Kind),
	})
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.CodeInvalid, err)
	}
	return nil
}

// floatParam parses an optional float query parameter.
func floatParam(r *http.Request, name string) (float64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, apperr.New(apperr.KindValidation, apperr.CodeInvalid, "invalid "+name)
	}
	return v, true, nil
}

func boolParam(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
