package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/models"
)

// PreferenceStore is the prefs.Store surface used here.
type PreferenceStore interface {
	Get(ctx context.Context) models.Preferences
	Update(ctx context.Context, in models.Preferences) (models.Preferences, error)
	AddFavorite(ctx context.Context, stationID string) ([]string, error)
	RemoveFavorite(ctx context.Context, stationID string) ([]string, error)
	ToggleFavorite(ctx context.Context, stationID string) (bool, error)
	Favorites(ctx context.Context) []string
	Sync(ctx context.Context) (models.Preferences, error)
}

// PreferencesHandlers serve language, theme, favorites and filters.
type PreferencesHandlers struct {
	store  PreferenceStore
	logger *zap.Logger
}

// NewPreferencesHandlers returns handler.
func NewPreferencesHandlers(store PreferenceStore, logger *zap.Logger) *PreferencesHandlers {
	return &PreferencesHandlers{store: store, logger: logger}
}

// Get handles GET /api/preferences.
func (h *PreferencesHandlers) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Get(r.Context()))
}

// Put handles PUT /api/preferences. Local changes stick even when the backend sync fails.
func (h *PreferencesHandlers) Put(w http.ResponseWriter, r *http.Request) {
	var body models.Preferences
	if err := decodeBody(r, &body); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	updated, err := h.store.Update(r.Context(), body)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	h.sync(r.Context())
	writeJSON(w, http.StatusOK, updated)
}

// AddFavorite handles PUT /api/favorites/{id}.
func (h *PreferencesHandlers) AddFavorite(w http.ResponseWriter, r *http.Request) {
	favs, err := h.store.AddFavorite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	h.sync(r.Context())
	writeJSON(w, http.StatusOK, map[string][]string{"favoriteStations": favs})
}

// RemoveFavorite handles DELETE /api/favorites/{id}.
func (h *PreferencesHandlers) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	favs, err := h.store.RemoveFavorite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	h.sync(r.Context())
	writeJSON(w, http.StatusOK, map[string][]string{"favoriteStations": favs})
}

type toggleResponse struct {
	Favorite         bool     `json:"favorite"`
	FavoriteStations []string `json:"favoriteStations"`
}

// ToggleFavorite handles POST /api/favorites/{id}/toggle.
func (h *PreferencesHandlers) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	added, err := h.store.ToggleFavorite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	h.sync(r.Context())
	writeJSON(w, http.StatusOK, toggleResponse{Favorite: added, FavoriteStations: h.store.Favorites(r.Context())})
}

func (h *PreferencesHandlers) sync(ctx context.Context) {
	if _, err := h.store.Sync(ctx); err != nil {
		h.logger.Info("preferences kept locally, backend sync failed", zap.Error(err))
	}
}
