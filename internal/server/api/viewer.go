package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/viewer"
)

// ViewerHandler exposes the viewer attributes and accepts the browser's load
// event.
type ViewerHandler struct {
	model *viewer.Model
}

// NewViewerHandler creates a ViewerHandler for model.
func NewViewerHandler(model *viewer.Model) *ViewerHandler {
	return &ViewerHandler{model: model}
}

type loadRequest struct {
	CameraOrbit  string `json:"cameraOrbit"`
	CameraTarget string `json:"cameraTarget"`
}

// ServeHTTP routes /api/viewer and /api/viewer/load.
func (h *ViewerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/viewer")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.model.Snapshot())

	case "load":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.load(w, r)

	default:
		http.NotFound(w, r)
	}
}

// load handles POST /api/viewer/load.
func (h *ViewerHandler) load(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.model.Load(req.CameraOrbit, req.CameraTarget) {
		writeError(w, http.StatusConflict, "viewer already loaded")
		return
	}
	writeJSON(w, http.StatusAccepted, h.model.Snapshot())
}
