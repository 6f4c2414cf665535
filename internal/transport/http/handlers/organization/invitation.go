package organization

import (
	"github.com/gin-gonic/gin"

	"traceroot/internal/core/domain/organization"
	"traceroot/internal/transport/http/middleware"
	"traceroot/pkg/response"
	"traceroot/pkg/ulid"
)

// InvitationHandler serves the invitation lifecycle.
type InvitationHandler struct {
	invitations organization.InvitationService
}

// NewInvitationHandler creates the invitation handlers.
func NewInvitationHandler(invitations organization.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

type createInvitationRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

type acceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

// Create handles POST /organizations/:orgId/invitations. Requires ADMIN;
// invitations never grant OWNER.
// @Summary Invite a user by email
// @Tags Invitations
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Router /organizations/{orgId}/invitations [post]
func (h *InvitationHandler) Create(c *gin.Context) {
	actor, ok := middleware.CurrentMember(c)
	if !ok {
		response.Forbidden(c, "not a member of this organization")
		return
	}
	var req createInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err.Error())
		return
	}
	role, err := organization.ParseRole(req.Role)
	if err != nil {
		response.ValidationError(c, "invalid role", err.Error())
		return
	}

	inv, err := h.invitations.Create(c.Request.Context(), actor.OrgID, actor.UserID, req.Email, role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, inv)
}

// List handles GET /organizations/:orgId/invitations. Requires ADMIN.
// @Summary List pending invitations
// @Tags Invitations
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /organizations/{orgId}/invitations [get]
func (h *InvitationHandler) List(c *gin.Context) {
	actor, ok := middleware.CurrentMember(c)
	if !ok {
		response.Forbidden(c, "not a member of this organization")
		return
	}
	invs, err := h.invitations.List(c.Request.Context(), actor.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if invs == nil {
		invs = []*organization.Invitation{}
	}
	response.Success(c, invs)
}

// Delete handles DELETE /organizations/:orgId/invitations/:invitationId.
// Requires ADMIN.
// @Summary Revoke a pending invitation
// @Tags Invitations
// @Success 204
// @Router /organizations/{orgId}/invitations/{invitationId} [delete]
func (h *InvitationHandler) Delete(c *gin.Context) {
	actor, ok := middleware.CurrentMember(c)
	if !ok {
		response.Forbidden(c, "not a member of this organization")
		return
	}
	invID, err := ulid.Parse(c.Param("invitationId"))
	if err != nil {
		response.NotFound(c, "invitation")
		return
	}
	if err := h.invitations.Delete(c.Request.Context(), actor.OrgID, invID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Accept handles POST /invitations/accept: redeems a token for the
// authenticated user.
// @Summary Accept an invitation
// @Tags Invitations
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Router /invitations/accept [post]
func (h *InvitationHandler) Accept(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user identity")
		return
	}
	var req acceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err.Error())
		return
	}

	member, err := h.invitations.Accept(c.Request.Context(), u.ID, u.Email, req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}
