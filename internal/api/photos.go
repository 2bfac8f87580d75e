package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/singhkkrish/traceit/internal/photostore"
)

// PhotosHandler serves stored report photos.
type PhotosHandler struct {
	Photos photostore.Store
}

// Get handles GET /api/photos/{id}.
func (h *PhotosHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if uuid.Validate(id) != nil {
		jsonError(w, http.StatusNotFound, "Photo not found")
		return
	}

	data, mime, err := h.Photos.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "Server error while fetching photo")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "Photo not found")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
