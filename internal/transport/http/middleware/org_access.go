package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"traceroot/internal/core/domain/organization"
	"traceroot/pkg/response"
	"traceroot/pkg/ulid"
)

// OrgAccess resolves the :orgId path parameter, verifies the current user is
// a member, and attaches the membership. Runs after Identity.
func OrgAccess(members organization.MemberRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			response.Unauthorized(c, "missing user identity")
			return
		}
		orgID, err := ulid.Parse(c.Param("orgId"))
		if err != nil {
			response.NotFound(c, "organization")
			return
		}

		member, err := members.Get(c.Request.Context(), orgID, u.ID)
		if err != nil {
			if errors.Is(err, organization.ErrMemberNotFound) {
				response.Forbidden(c, "not a member of this organization")
				return
			}
			response.InternalServerError(c, "failed to check organization access")
			return
		}

		c.Set(ctxKeyMember, member)
		c.Next()
	}
}

// RequireOrgRole gates the request on a minimum role in the organization
// resolved by OrgAccess or ProjectAccess.
func RequireOrgRole(min organization.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		member, ok := CurrentMember(c)
		if !ok {
			response.Forbidden(c, "not a member of this organization")
			return
		}
		if !member.Role.AtLeast(min) {
			response.Forbidden(c, "insufficient role")
			return
		}
		c.Next()
	}
}
