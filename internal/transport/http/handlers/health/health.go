// Package health holds the unauthenticated liveness handler.
package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves liveness probes.
type Handler struct {
	version string
}

// NewHandler creates the health handler.
func NewHandler(version string) *Handler {
	return &Handler{version: version}
}

// Health handles GET /health.
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}
