// Package http wires the gin engine: middleware chain, route table, and
// server lifecycle. All dependency construction happens in cmd/server; this
// package only receives the finished handlers.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"traceroot/internal/config"
	"traceroot/internal/core/domain/auth"
	"traceroot/internal/core/domain/organization"
	"traceroot/internal/core/domain/project"
	"traceroot/internal/core/domain/user"
	healthHandler "traceroot/internal/transport/http/handlers/health"
	obsHandler "traceroot/internal/transport/http/handlers/observability"
	orgHandler "traceroot/internal/transport/http/handlers/organization"
	projectHandler "traceroot/internal/transport/http/handlers/project"
	userHandler "traceroot/internal/transport/http/handlers/user"
	"traceroot/internal/transport/http/middleware"
)

// Handlers collects every constructed handler the router mounts.
type Handlers struct {
	Health       *healthHandler.Handler
	OTLP         *obsHandler.OTLPHandler
	Traces       *obsHandler.TraceHandler
	Users        *userHandler.Handler
	Organization *orgHandler.Handler
	Members      *orgHandler.MemberHandler
	Invitations  *orgHandler.InvitationHandler
	Projects     *projectHandler.Handler
	APIKeys      *projectHandler.APIKeyHandler
}

// Access collects the ports the middleware chain needs for request-scoped
// capability resolution.
type Access struct {
	Users    user.Service
	Members  organization.MemberRepository
	Projects project.Repository
	APIKeys  auth.APIKeyService
	Logger   *logrus.Logger
}

// Server is the HTTP API process.
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
	logger     *logrus.Logger
}

// NewServer builds the engine and route table.
func NewServer(cfg config.ServerConfig, isProduction bool, handlers Handlers, access Access) *Server {
	if isProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.Recovery(access.Logger),
		middleware.RequestLogger(access.Logger),
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", "Content-Encoding", middleware.HeaderUserID, middleware.HeaderUserEmail, middleware.HeaderUserName},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	registerRoutes(engine, handlers, access)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		cfg:    cfg,
		logger: access.Logger,
	}
}

func registerRoutes(engine *gin.Engine, h Handlers, access Access) {
	engine.GET("/health", h.Health.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// SDK surface: API-key auth only, no user identity.
	public := engine.Group("/public", middleware.SDKAuth(access.APIKeys))
	public.POST("/traces", h.OTLP.HandleTraces)

	// User surface: identity headers resolved into a user row.
	api := engine.Group("/", middleware.Identity(access.Users, access.Logger))

	api.GET("/users/me", h.Users.Me)
	api.POST("/invitations/accept", h.Invitations.Accept)

	api.POST("/organizations", h.Organization.Create)
	api.GET("/organizations", h.Organization.List)

	org := api.Group("/organizations/:orgId", middleware.OrgAccess(access.Members))
	org.PATCH("", middleware.RequireOrgRole(organization.RoleAdmin), h.Organization.Update)
	org.DELETE("", middleware.RequireOrgRole(organization.RoleOwner), h.Organization.Delete)

	org.GET("/members", h.Members.List)
	org.POST("/members", middleware.RequireOrgRole(organization.RoleAdmin), h.Members.Add)
	org.PATCH("/members/:userId", middleware.RequireOrgRole(organization.RoleAdmin), h.Members.UpdateRole)
	org.DELETE("/members/:userId", middleware.RequireOrgRole(organization.RoleAdmin), h.Members.Remove)

	org.GET("/invitations", middleware.RequireOrgRole(organization.RoleAdmin), h.Invitations.List)
	org.POST("/invitations", middleware.RequireOrgRole(organization.RoleAdmin), h.Invitations.Create)
	org.DELETE("/invitations/:invitationId", middleware.RequireOrgRole(organization.RoleAdmin), h.Invitations.Delete)

	org.GET("/projects", h.Projects.ListByOrganization)
	org.POST("/projects", middleware.RequireOrgRole(organization.RoleAdmin), h.Projects.Create)

	proj := api.Group("/projects/:projectId", middleware.ProjectAccess(access.Projects, access.Members))
	proj.GET("", h.Projects.Get)
	proj.PATCH("", middleware.RequireOrgRole(organization.RoleAdmin), h.Projects.Update)
	proj.DELETE("", middleware.RequireOrgRole(organization.RoleAdmin), h.Projects.Delete)

	proj.GET("/api-keys", h.APIKeys.List)
	proj.POST("/api-keys", middleware.RequireOrgRole(organization.RoleAdmin), h.APIKeys.Create)
	proj.DELETE("/api-keys/:keyId", middleware.RequireOrgRole(organization.RoleAdmin), h.APIKeys.Delete)

	proj.GET("/traces", h.Traces.ListTraces)
	proj.GET("/traces/:traceId", h.Traces.GetTrace)
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
