package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"traceroot/internal/core/domain/user"
	"traceroot/pkg/response"
)

// Identity headers asserted by the edge in front of this service. A real
// identity provider terminates authentication there; this service trusts the
// headers it forwards.
const (
	HeaderUserID    = "x-user-id"
	HeaderUserEmail = "x-user-email"
	HeaderUserName  = "x-user-name"
)

// Identity resolves the asserted identity headers into a user row and
// attaches it to the request. Requests without x-user-id are rejected.
func Identity(users user.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderUserID)
		if id == "" {
			response.Unauthorized(c, "missing user identity")
			return
		}

		u, err := users.Resolve(c.Request.Context(), user.Identity{
			Subject: id,
			Email:   c.GetHeader(HeaderUserEmail),
			Name:    c.GetHeader(HeaderUserName),
		})
		if err != nil {
			logger.WithError(err).WithField("user_id", id).Error("Failed to resolve user identity")
			response.Error(c, err)
			return
		}

		c.Set(ctxKeyUser, u)
		c.Next()
	}
}
