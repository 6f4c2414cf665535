// Package organization holds the tenancy HTTP handlers: organizations,
// members and invitations.
package organization

import (
	"github.com/gin-gonic/gin"

	"traceroot/internal/core/domain/organization"
	"traceroot/internal/transport/http/middleware"
	"traceroot/pkg/response"
	"traceroot/pkg/ulid"
)

// Handler serves organization CRUD.
type Handler struct {
	orgs organization.Service
}

// NewHandler creates the organization handlers.
func NewHandler(orgs organization.Service) *Handler {
	return &Handler{orgs: orgs}
}

type createOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

type updateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /organizations. The creating user becomes the sole
// OWNER.
// @Summary Create an organization
// @Tags Organizations
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Router /organizations [post]
func (h *Handler) Create(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user identity")
		return
	}
	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err.Error())
		return
	}

	org, err := h.orgs.Create(c.Request.Context(), u.ID, req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, organization.WithRole{Organization: *org, Role: organization.RoleOwner})
}

// List handles GET /organizations: the organizations the user belongs to,
// each with the user's role.
// @Summary List the caller's organizations
// @Tags Organizations
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /organizations [get]
func (h *Handler) List(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user identity")
		return
	}
	orgs, err := h.orgs.ListForUser(c.Request.Context(), u.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if orgs == nil {
		orgs = []*organization.WithRole{}
	}
	response.Success(c, orgs)
}

// Update handles PATCH /organizations/:orgId. Requires ADMIN.
// @Summary Rename an organization
// @Tags Organizations
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /organizations/{orgId} [patch]
func (h *Handler) Update(c *gin.Context) {
	orgID, err := ulid.Parse(c.Param("orgId"))
	if err != nil {
		response.NotFound(c, "organization")
		return
	}
	var req updateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err.Error())
		return
	}

	org, err := h.orgs.UpdateName(c.Request.Context(), orgID, req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, org)
}

// Delete handles DELETE /organizations/:orgId. Requires OWNER; cascades to
// memberships, projects, API keys and invitations.
// @Summary Delete an organization
// @Tags Organizations
// @Success 204
// @Router /organizations/{orgId} [delete]
func (h *Handler) Delete(c *gin.Context) {
	orgID, err := ulid.Parse(c.Param("orgId"))
	if err != nil {
		response.NotFound(c, "organization")
		return
	}
	if err := h.orgs.Delete(c.Request.Context(), orgID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
