package api

import (
	"log"
	"net/http"

	"github.com/ayusman/mudra/internal/session"
)

// SettingsService reads and replaces the session tuning.
type SettingsService interface {
	Settings() session.Settings
	UpdateSettings(session.Settings) error
}

// SettingsHandler serves GET and PUT /api/settings.
type SettingsHandler struct {
	service SettingsService
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(service SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// ServeHTTP implements http.Handler.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.service.Settings())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// update applies a partial document on top of the current settings, so
// clients may send only the fields they change.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	settings := h.service.Settings()
	if err := decodeJSON(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := settings.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.UpdateSettings(settings); err != nil {
		log.Printf("Failed to update settings: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
