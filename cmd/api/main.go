package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	httptransport "github.com/helpdesk-io/support-desk/internal/api/http"
	"github.com/helpdesk-io/support-desk/internal/api/http/handlers"
	"github.com/helpdesk-io/support-desk/internal/audit"
	"github.com/helpdesk-io/support-desk/internal/auth"
	"github.com/helpdesk-io/support-desk/internal/authz"
	"github.com/helpdesk-io/support-desk/internal/config"
	"github.com/helpdesk-io/support-desk/internal/domain"
	"github.com/helpdesk-io/support-desk/internal/events"
	"github.com/helpdesk-io/support-desk/internal/observability"
	"github.com/helpdesk-io/support-desk/internal/persistence"
	"github.com/helpdesk-io/support-desk/internal/repository"
	"github.com/helpdesk-io/support-desk/internal/repository/memory"
	"github.com/helpdesk-io/support-desk/internal/service"
	"github.com/helpdesk-io/support-desk/internal/worker"
	"github.com/helpdesk-io/support-desk/migrations"
)

type repositories struct {
	users       repository.UserRepository
	orgs        repository.OrganizationRepository
	memberships repository.MembershipRepository
	roster      repository.AgentRosterRepository
	tickets     repository.TicketRepository
	messages    repository.TicketMessageRepository
	audit       repository.AuditLogRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.FS, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var repos repositories
	if pg.Enabled() {
		repos = postgresRepositories(pg.PoolHandle())
	} else {
		repos = memoryRepositories(cfg.Memory, logger)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	forwarder := events.NewRedisForwarder(redis.Client, redis.ChangesChannel)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, forwarder.Forward, cfg.Redis.Timeout()))

	engine := authz.NewEngine()
	auditWriter := audit.NewWriter(repos.audit, logger, metrics, dispatcher, audit.Options{
		MaxAttempts: cfg.Audit.MaxAttempts,
		Backoff:     cfg.Audit.RetryBackoff(),
	})

	ticketService := service.NewTicketService(service.TicketDependencies{
		Engine:         engine,
		TicketRepo:     repos.tickets,
		MessageRepo:    repos.messages,
		OrgRepo:        repos.orgs,
		MembershipRepo: repos.memberships,
		RosterRepo:     repos.roster,
		Audit:          auditWriter,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})
	membershipService := service.NewMembershipService(service.MembershipDependencies{
		Engine:         engine,
		OrgRepo:        repos.orgs,
		MembershipRepo: repos.memberships,
		RosterRepo:     repos.roster,
		UserRepo:       repos.users,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, repos.users)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	deps := map[string]handlers.Pinger{"redis": redis}
	if pg.Enabled() {
		deps["postgres"] = pg
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Organizations:  handlers.NewOrganizationsHandler(membershipService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func postgresRepositories(pool *pgxpool.Pool) repositories {
	return repositories{
		users:       repository.NewUserRepository(pool),
		orgs:        repository.NewOrganizationRepository(pool),
		memberships: repository.NewMembershipRepository(pool),
		roster:      repository.NewAgentRosterRepository(pool),
		tickets:     repository.NewTicketRepository(pool),
		messages:    repository.NewTicketMessageRepository(pool),
		audit:       repository.NewAuditLogRepository(pool),
	}
}

func memoryRepositories(cfg config.MemoryConfig, logger *zap.Logger) repositories {
	store := memory.New()
	for userID, role := range cfg.SeedProfiles {
		if !domain.SystemRole(role).Valid() {
			logger.Warn("ignoring seed profile with unknown role", zap.String("user_id", userID), zap.String("role", role))
			continue
		}
		store.PutProfile(userID, domain.SystemRole(role))
	}
	logger.Warn("running on the in-memory store; data is lost on exit", zap.Int("seeded_profiles", len(cfg.SeedProfiles)))
	return repositories{
		users:       store.Users(),
		orgs:        store.Organizations(),
		memberships: store.Memberships(),
		roster:      store.AgentRoster(),
		tickets:     store.Tickets(),
		messages:    store.TicketMessages(),
		audit:       store.AuditLog(),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
