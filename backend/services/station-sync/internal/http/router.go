package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/http/handlers"
	"chargemap/backend/services/station-sync/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	StationsHandlers     *handlers.StationsHandlers
	LocationHandlers     *handlers.LocationHandlers
	PreferencesHandlers  *handlers.PreferencesHandlers
	ReportsHandlers      *handlers.ReportsHandlers
	LookupHandlers       *handlers.LookupHandlers
	LiveHandlers         *handlers.LiveHandlers
	ConnectivityHandlers *handlers.ConnectivityHandlers
	HealthHandler        http.HandlerFunc
	ConfigHandler        http.HandlerFunc
	JWTSecret            string
	Logger               *zap.Logger
}

// NewRouter wires HTTP routes with middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.LoggingMiddleware(deps.Logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", deps.HealthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(deps.JWTSecret))

		// Streams outlive the request timeout.
		r.Get("/stations/{id}/live", deps.LiveHandlers.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))

			r.Get("/stations", deps.StationsHandlers.List)
			r.Get("/stations/{id}", deps.StationsHandlers.Get)
			r.Get("/clusters", deps.StationsHandlers.Clusters)
			r.Get("/anomalies", deps.StationsHandlers.Anomalies)
			r.Get("/status", deps.StationsHandlers.Status)
			r.Delete("/cache", deps.StationsHandlers.ClearCache)
			r.Get("/config", deps.ConfigHandler)

			r.Get("/search", deps.LookupHandlers.Search)
			r.Get("/stations/{id}/connectors", deps.LookupHandlers.StationConnectors)
			r.Get("/stations/{id}/reliability", deps.LookupHandlers.StationReliability)
			r.Get("/stations/{id}/reports/count", deps.LookupHandlers.ReportCount)
			r.Get("/connectors", deps.LookupHandlers.ConnectorsByType)
			r.Get("/connectors/{id}", deps.LookupHandlers.Connector)
			r.Get("/reliability", deps.LookupHandlers.Reliability)
			r.Get("/backend/health", deps.LookupHandlers.BackendHealth)

			r.Get("/location", deps.LocationHandlers.Get)
			r.Put("/location", deps.LocationHandlers.Put)
			r.Post("/location/refresh", deps.LocationHandlers.Refresh)

			r.Get("/connectivity", deps.ConnectivityHandlers.Get)
			r.Put("/connectivity", deps.ConnectivityHandlers.Put)

			r.Post("/reports", deps.ReportsHandlers.Create)

			r.Get("/preferences", deps.PreferencesHandlers.Get)
			r.Put("/preferences", deps.PreferencesHandlers.Put)
			r.Put("/favorites/{id}", deps.PreferencesHandlers.AddFavorite)
			r.Delete("/favorites/{id}", deps.PreferencesHandlers.RemoveFavorite)
			r.Post("/favorites/{id}/toggle", deps.PreferencesHandlers.ToggleFavorite)
		})
	})

	return r
}
