// Package project holds the project and API-key HTTP handlers.
package project

import (
	"github.com/gin-gonic/gin"

	"traceroot/internal/core/domain/project"
	"traceroot/internal/transport/http/middleware"
	"traceroot/pkg/response"
)

// Handler serves project CRUD.
type Handler struct {
	projects project.Service
}

// NewHandler creates the project handlers.
func NewHandler(projects project.Service) *Handler {
	return &Handler{projects: projects}
}

type createProjectRequest struct {
	Name          string `json:"name" binding:"required"`
	RetentionDays *int   `json:"retentionDays"`
}

// Create handles POST /organizations/:orgId/projects. Requires ADMIN; names
// are unique among the organization's live projects.
// @Summary Create a project
// @Tags Projects
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Router /organizations/{orgId}/projects [post]
func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.CurrentMember(c)
	if !ok {
		response.Forbidden(c, "not a member of this organization")
		return
	}
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err.Error())
		return
	}

	p, err := h.projects.Create(c.Request.Context(), actor.OrgID, req.Name, req.RetentionDays)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

// ListByOrganization handles GET /organizations/:orgId/projects. Soft-deleted
// projects are excluded.
// @Summary List an organization's projects
// @Tags Projects
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /organizations/{orgId}/projects [get]
func (h *Handler) ListByOrganization(c *gin.Context) {
	actor, ok := middleware.CurrentMember(c)
	if !ok {
		response.Forbidden(c, "not a member of this organization")
		return
	}
	projects, err := h.projects.ListByOrganization(c.Request.Context(), actor.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if projects == nil {
		projects = []*project.Project{}
	}
	response.Success(c, projects)
}

// Get handles GET /projects/:projectId.
// @Summary Fetch a project
// @Tags Projects
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /projects/{projectId} [get]
func (h *Handler) Get(c *gin.Context) {
	p, ok := middleware.CurrentProject(c)
	if !ok {
		response.NotFound(c, "project")
		return
	}
	response.Success(c, p)
}

// Update handles PATCH /projects/:projectId. Requires ADMIN.
// @Summary Update a project
// @Tags Projects
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /projects/{projectId} [patch]
func (h *Handler) Update(c *gin.Context) {
	p, ok := middleware.CurrentProject(c)
	if !ok {
		response.NotFound(c, "project")
		return
	}
	var params project.UpdateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		response.ValidationError(c, "invalid request body", err.Error())
		return
	}

	updated, err := h.projects.Update(c.Request.Context(), p.ID, params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, updated)
}

// Delete handles DELETE /projects/:projectId. Requires ADMIN; the project is
// soft-deleted and its name becomes reusable.
// @Summary Soft-delete a project
// @Tags Projects
// @Success 204
// @Router /projects/{projectId} [delete]
func (h *Handler) Delete(c *gin.Context) {
	p, ok := middleware.CurrentProject(c)
	if !ok {
		response.NotFound(c, "project")
		return
	}
	if err := h.projects.SoftDelete(c.Request.Context(), p.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
