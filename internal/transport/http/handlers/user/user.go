// Package user holds the current-user HTTP handler.
package user

import (
	"github.com/gin-gonic/gin"

	"traceroot/internal/transport/http/middleware"
	"traceroot/pkg/response"
)

// Handler serves the identity surface.
type Handler struct{}

// NewHandler creates the user handlers.
func NewHandler() *Handler {
	return &Handler{}
}

// Me handles GET /users/me: the row the identity middleware upserted for
// this request.
// @Summary Fetch the authenticated user
// @Tags Users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /users/me [get]
func (h *Handler) Me(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user identity")
		return
	}
	response.Success(c, u)
}
