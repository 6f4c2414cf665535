// Command server runs the HTTP API: the SDK ingestion surface and the
// tenant/read API.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"traceroot/internal/config"
	"traceroot/internal/core/domain/organization"
	authServices "traceroot/internal/core/services/auth"
	obsServices "traceroot/internal/core/services/observability"
	orgServices "traceroot/internal/core/services/organization"
	projectServices "traceroot/internal/core/services/project"
	userServices "traceroot/internal/core/services/user"
	"traceroot/internal/infrastructure/database"
	"traceroot/internal/infrastructure/email"
	"traceroot/internal/infrastructure/queue"
	chRepo "traceroot/internal/infrastructure/repository/clickhouse"
	pgRepo "traceroot/internal/infrastructure/repository/postgres"
	"traceroot/internal/infrastructure/storage"
	transport "traceroot/internal/transport/http"
	healthHandler "traceroot/internal/transport/http/handlers/health"
	obsHandler "traceroot/internal/transport/http/handlers/observability"
	orgHandler "traceroot/internal/transport/http/handlers/organization"
	projectHandler "traceroot/internal/transport/http/handlers/project"
	userHandler "traceroot/internal/transport/http/handlers/user"
)

var version = "dev"

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Long-lived clients, built once and threaded through explicitly.
	pg, err := database.NewPostgres(cfg.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to postgres")
	}
	ch, err := database.NewClickHouse(cfg.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to clickhouse")
	}
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to redis")
	}
	blobStore, err := storage.NewS3Store(ctx, cfg.S3, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build object store client")
	}

	// Repositories.
	userRepo := pgRepo.NewUserRepository(pg)
	orgRepo := pgRepo.NewOrganizationRepository(pg)
	memberRepo := pgRepo.NewMemberRepository(pg)
	invRepo := pgRepo.NewInvitationRepository(pg)
	projectRepo := pgRepo.NewProjectRepository(pg)
	apiKeyRepo := pgRepo.NewAPIKeyRepository(pg)
	tx := pgRepo.NewTransactor(pg)
	traceRepo := chRepo.NewTraceRepository(ch)
	spanRepo := chRepo.NewSpanRepository(ch)
	taskQueue := queue.NewRedisStreamQueue(rdb, cfg.Queue, logger)

	var mailer organization.InvitationMailer
	if cfg.Email.Enabled {
		sesMailer, err := email.NewSESMailer(ctx, cfg.Email, int(cfg.Invite.TokenTTL.Hours()/24), logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to build SES mailer")
		}
		mailer = sesMailer
	}

	// Services.
	userService := userServices.NewUserService(userRepo, logger)
	orgService := orgServices.NewOrganizationService(orgRepo, memberRepo, tx, logger)
	memberService := orgServices.NewMemberService(memberRepo, userRepo, tx, logger)
	inviteTokens := orgServices.NewInviteTokenIssuer(cfg.Invite.TokenSecret, cfg.Invite.TokenTTL)
	invService := orgServices.NewInvitationService(invRepo, memberRepo, orgRepo, tx, inviteTokens, mailer, logger)
	projectService := projectServices.NewProjectService(projectRepo, logger)
	apiKeyService := authServices.NewAPIKeyService(apiKeyRepo, logger)
	ingestService := obsServices.NewIngestService(blobStore, taskQueue, logger)
	traceService := obsServices.NewTraceService(traceRepo, spanRepo, logger)

	server := transport.NewServer(cfg.Server, cfg.IsProduction(), transport.Handlers{
		Health:       healthHandler.NewHandler(version),
		OTLP:         obsHandler.NewOTLPHandler(ingestService, cfg.Server.MaxBodyBytes, cfg.Server.MaxInflatedBytes, logger),
		Traces:       obsHandler.NewTraceHandler(traceService),
		Users:        userHandler.NewHandler(),
		Organization: orgHandler.NewHandler(orgService),
		Members:      orgHandler.NewMemberHandler(memberService),
		Invitations:  orgHandler.NewInvitationHandler(invService),
		Projects:     projectHandler.NewHandler(projectService),
		APIKeys:      projectHandler.NewAPIKeyHandler(apiKeyService),
	}, transport.Access{
		Users:    userService,
		Members:  memberRepo,
		Projects: projectRepo,
		APIKeys:  apiKeyService,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		return server.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("Server exited with error")
	}
	logger.Info("Server stopped")
}
