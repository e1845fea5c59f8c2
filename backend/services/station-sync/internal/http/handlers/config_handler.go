package handlers

import "net/http"

// ClientConfig is what the UI needs to boot.
type ClientConfig struct {
	DefaultLanguage string   `json:"defaultLanguage"`
	Languages       []string `json:"languages"`
	MapAPIKey       string   `json:"mapApiKey,omitempty"`
	LiveURL         string   `json:"liveUrl"`
}

// NewConfigHandler returns GET /api/config handler.
func NewConfigHandler(cfg ClientConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cfg)
	}
}
