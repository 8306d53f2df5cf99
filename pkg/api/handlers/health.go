package handlers

import (
	"net/http"

	"github.com/marmos91/stickerd/pkg/catalog"
)

// HealthHandler provides liveness and readiness probes.
type HealthHandler struct {
	catalog *catalog.Catalog
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(c *catalog.Catalog) *HealthHandler {
	return &HealthHandler{catalog: c}
}

// Liveness handles GET /health. It only proves the process serves requests.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	OK(w, Envelope{"status": "healthy"})
}

// Readiness handles GET /health/ready. It proves the metadata store answers
// queries.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	count, err := h.catalog.Store().CountImages(r.Context())
	if err != nil {
		Fail(w, http.StatusServiceUnavailable, "Metadata store unavailable")
		return
	}
	OK(w, Envelope{"status": "ready", "images": count})
}
