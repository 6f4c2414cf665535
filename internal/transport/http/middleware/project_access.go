package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"traceroot/internal/core/domain/organization"
	"traceroot/internal/core/domain/project"
	"traceroot/pkg/response"
	"traceroot/pkg/ulid"
)

// ProjectAccess resolves the :projectId path parameter to its project, then
// requires membership in the owning organization. An unknown project is 404;
// a known project without membership is 403. Attaches both the project and
// the membership. Runs after Identity.
func ProjectAccess(projects project.Repository, members organization.MemberRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			response.Unauthorized(c, "missing user identity")
			return
		}
		projectID, err := ulid.Parse(c.Param("projectId"))
		if err != nil {
			response.NotFound(c, "project")
			return
		}

		p, err := projects.GetByID(c.Request.Context(), projectID)
		if err != nil {
			if errors.Is(err, project.ErrNotFound) {
				response.NotFound(c, "project")
				return
			}
			response.InternalServerError(c, "failed to resolve project")
			return
		}

		member, err := members.Get(c.Request.Context(), p.OrgID, u.ID)
		if err != nil {
			if errors.Is(err, organization.ErrMemberNotFound) {
				response.Forbidden(c, "not a member of this project's organization")
				return
			}
			response.InternalServerError(c, "failed to check project access")
			return
		}

		c.Set(ctxKeyProject, p)
		c.Set(ctxKeyMember, member)
		c.Next()
	}
}
