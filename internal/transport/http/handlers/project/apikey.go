package project

import (
	"time"

	"github.com/gin-gonic/gin"

	"traceroot/internal/core/domain/auth"
	"traceroot/internal/transport/http/middleware"
	"traceroot/pkg/response"
	"traceroot/pkg/ulid"
)

// APIKeyHandler serves project API-key management.
type APIKeyHandler struct {
	keys auth.APIKeyService
}

// NewAPIKeyHandler creates the API-key handlers.
func NewAPIKeyHandler(keys auth.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

type createAPIKeyRequest struct {
	Name      *string    `json:"name"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Create handles POST /projects/:projectId/api-keys. Requires ADMIN. The
// response carries the plaintext key; it is never retrievable again.
// @Summary Create an API key
// @Tags API keys
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{} "includes the plaintext key, once"
// @Router /projects/{projectId}/api-keys [post]
func (h *APIKeyHandler) Create(c *gin.Context) {
	p, ok := middleware.CurrentProject(c)
	if !ok {
		response.NotFound(c, "project")
		return
	}
	var req createAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err.Error())
		return
	}

	created, err := h.keys.Create(c.Request.Context(), p.ID, req.Name, req.ExpiresAt)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List handles GET /projects/:projectId/api-keys. Only prefixes are
// returned, never hashes or plaintext.
// @Summary List a project's API keys
// @Tags API keys
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /projects/{projectId}/api-keys [get]
func (h *APIKeyHandler) List(c *gin.Context) {
	p, ok := middleware.CurrentProject(c)
	if !ok {
		response.NotFound(c, "project")
		return
	}
	keys, err := h.keys.List(c.Request.Context(), p.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if keys == nil {
		keys = []*auth.APIKey{}
	}
	response.Success(c, keys)
}

// Delete handles DELETE /projects/:projectId/api-keys/:keyId. Requires
// ADMIN; the key stops authenticating immediately.
// @Summary Revoke an API key
// @Tags API keys
// @Success 204
// @Router /projects/{projectId}/api-keys/{keyId} [delete]
func (h *APIKeyHandler) Delete(c *gin.Context) {
	p, ok := middleware.CurrentProject(c)
	if !ok {
		response.NotFound(c, "project")
		return
	}
	keyID, err := ulid.Parse(c.Param("keyId"))
	if err != nil {
		response.NotFound(c, "api key")
		return
	}
	if err := h.keys.Delete(c.Request.Context(), p.ID, keyID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
