// Package middleware resolves request-scoped capabilities: the authenticated
// user, the organization membership, the accessible project, and the
// API-key-scoped project id on the SDK surface. Handlers read them back
// through typed getters instead of re-deriving access.
package middleware

import (
	"github.com/gin-gonic/gin"

	"traceroot/internal/core/domain/organization"
	"traceroot/internal/core/domain/project"
	"traceroot/internal/core/domain/user"
	"traceroot/pkg/ulid"
)

const (
	ctxKeyUser         = "auth.user"
	ctxKeyMember       = "auth.member"
	ctxKeyProject      = "auth.project"
	ctxKeySDKProjectID = "auth.sdk_project_id"
)

// CurrentUser returns the user resolved by Identity.
func CurrentUser(c *gin.Context) (*user.User, bool) {
	v, ok := c.Get(ctxKeyUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*user.User)
	return u, ok
}

// CurrentMember returns the membership resolved by OrgAccess or
// ProjectAccess.
func CurrentMember(c *gin.Context) (*organization.Member, bool) {
	v, ok := c.Get(ctxKeyMember)
	if !ok {
		return nil, false
	}
	m, ok := v.(*organization.Member)
	return m, ok
}

// CurrentProject returns the project resolved by ProjectAccess.
func CurrentProject(c *gin.Context) (*project.Project, bool) {
	v, ok := c.Get(ctxKeyProject)
	if !ok {
		return nil, false
	}
	p, ok := v.(*project.Project)
	return p, ok
}

// SDKProjectID returns the project id the presented API key is scoped to.
// Only set on the SDK ingestion surface; user identity is never resolved
// there.
func SDKProjectID(c *gin.Context) (ulid.ULID, bool) {
	v, ok := c.Get(ctxKeySDKProjectID)
	if !ok {
		return ulid.ULID{}, false
	}
	id, ok := v.(ulid.ULID)
	return id, ok
}
