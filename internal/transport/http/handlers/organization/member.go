package organization

import (
	"github.com/gin-gonic/gin"

	"traceroot/internal/core/domain/organization"
	"traceroot/internal/transport/http/middleware"
	"traceroot/pkg/response"
)

// MemberHandler serves membership management.
type MemberHandler struct {
	members organization.MemberService
}

// NewMemberHandler creates the membership handlers.
func NewMemberHandler(members organization.MemberService) *MemberHandler {
	return &MemberHandler{members: members}
}

type addMemberRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

type updateMemberRequest struct {
	Role string `json:"role" binding:"required"`
}

// List handles GET /organizations/:orgId/members.
// @Summary List organization members
// @Tags Members
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /organizations/{orgId}/members [get]
func (h *MemberHandler) List(c *gin.Context) {
	member, ok := middleware.CurrentMember(c)
	if !ok {
		response.Forbidden(c, "not a member of this organization")
		return
	}
	infos, err := h.members.List(c.Request.Context(), member.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if infos == nil {
		infos = []*organization.MemberInfo{}
	}
	response.Success(c, infos)
}

// Add handles POST /organizations/:orgId/members. Requires ADMIN; OWNER is
// never granted directly.
// @Summary Add a member
// @Tags Members
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Router /organizations/{orgId}/members [post]
func (h *MemberHandler) Add(c *gin.Context) {
	actor, ok := middleware.CurrentMember(c)
	if !ok {
		response.Forbidden(c, "not a member of this organization")
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err.Error())
		return
	}
	role, err := organization.ParseRole(req.Role)
	if err != nil {
		response.ValidationError(c, "invalid role", err.Error())
		return
	}

	member, err := h.members.Add(c.Request.Context(), actor.Role, actor.OrgID, req.UserID, role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}

// UpdateRole handles PATCH /organizations/:orgId/members/:userId. Requires
// ADMIN; owner promotion/demotion rules and the last-owner invariant apply.
// @Summary Change a member's role
// @Tags Members
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /organizations/{orgId}/members/{userId} [patch]
func (h *MemberHandler) UpdateRole(c *gin.Context) {
	actor, ok := middleware.CurrentMember(c)
	if !ok {
		response.Forbidden(c, "not a member of this organization")
		return
	}
	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err.Error())
		return
	}
	role, err := organization.ParseRole(req.Role)
	if err != nil {
		response.ValidationError(c, "invalid role", err.Error())
		return
	}

	member, err := h.members.UpdateRole(c.Request.Context(), actor.Role, actor.OrgID, c.Param("userId"), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, member)
}

// Remove handles DELETE /organizations/:orgId/members/:userId. Requires
// ADMIN; the last owner cannot be removed.
// @Summary Remove a member
// @Tags Members
// @Success 204
// @Router /organizations/{orgId}/members/{userId} [delete]
func (h *MemberHandler) Remove(c *gin.Context) {
	actor, ok := middleware.CurrentMember(c)
	if !ok {
		response.Forbidden(c, "not a member of this organization")
		return
	}
	if err := h.members.Remove(c.Request.Context(), actor.Role, actor.OrgID, c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
