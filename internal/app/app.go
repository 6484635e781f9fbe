package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zatekoja/coachpackets/internal/api/handlers"
	"github.com/zatekoja/coachpackets/internal/api/routes"
	"github.com/zatekoja/coachpackets/internal/application/services"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	"github.com/zatekoja/coachpackets/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/coachpackets/internal/infrastructure/clients/redis"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
	"github.com/zatekoja/coachpackets/pkg/config"
)

// Repos groups the storage the services run on
type Repos struct {
	Clients   repositories.ClientRepository
	Packets   repositories.PacketRepository
	Audit     repositories.AuditRepository
	Templates []repositories.TemplateRepository
}

// Services groups the wired application services
type Services struct {
	Routing      *services.RoutingService
	Retry        *services.RetryService
	Notifier     *services.NotificationService
	Orchestrator *services.PacketOrchestrator
	Queue        *services.PacketQueue
	Admin        *services.AdminService
	Intake       *services.IntakeService
	Packets      *services.PacketService
}

// App is the fully wired service. Both the HTTP server and the admin CLI build one.
type App struct {
	Cfg      *config.Config
	Metrics  *observability.Metrics
	Repos    Repos
	Services Services
	EventBus providers.EventBus

	pg      *postgres.Client
	redis   *redis.Client
	closers []func() error
}

// New connects to the configured backends and wires every service. Template
// override directories are watched until ctx is done.
func New(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*App, error) {
	a := &App{Cfg: cfg, Metrics: metrics}

	if err := a.connect(); err != nil {
		a.Close()
		return nil, err
	}

	repos, err := a.wireRepos(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Repos = repos
	a.EventBus = a.wireEventBus()

	svcs, err := a.wireServices()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Services = svcs
	return a, nil
}

func (a *App) connect() error {
	logger := observability.GetLogger()

	if a.Cfg.Storage.Backend == config.StoragePostgres {
		pg, err := postgres.NewClient(&a.Cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
		}
		pg.SetMetrics(a.Metrics)
		a.pg = pg
		a.closers = append(a.closers, pg.Close)
		logger.Info().Msg("PostgreSQL client initialized")
	} else {
		logger.Warn().Msg("Using in-memory storage, data is lost on restart")
	}

	if a.Cfg.Redis.Enabled {
		rc, err := redis.NewClient(&a.Cfg.Redis)
		if err != nil {
			// the service runs without Redis: in-process cache and event bus
			logger.Warn().Err(err).Msg("Redis unavailable, continuing without it")
			return nil
		}
		a.redis = rc
		a.closers = append(a.closers, rc.Close)
		logger.Info().Msg("Redis client initialized")
	}
	return nil
}

// Handler builds the HTTP API
func (a *App) Handler() http.Handler {
	packetSvc := a.Services.Packets
	router := routes.NewRouter(
		handlers.NewIntakeHandler(a.Services.Intake),
		handlers.NewPacketHandler(a.Repos.Clients, a.Services.Routing, a.Services.Orchestrator, packetSvc),
		handlers.NewAdminHandler(a.Services.Admin, packetSvc),
		routes.Options{
			SSEHandler:     handlers.NewSSEHandler(a.EventBus),
			AllowedOrigins: a.Cfg.Server.AllowedOrigins,
			Health:         a.healthChecks(),
			Metrics:        a.Metrics,
		},
	)
	return router.SetupRoutes()
}

func (a *App) healthChecks() map[string]routes.HealthChecker {
	checks := map[string]routes.HealthChecker{}
	if a.pg != nil {
		checks["postgres"] = a.pg.Ping
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}
	return checks
}

// Close releases every connection. It is safe to call more than once.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.EventBus != nil {
		errs = append(errs, a.EventBus.Close())
		a.EventBus = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Reset truncates every table. It is a no-op for in-memory storage.
func (a *App) Reset(ctx context.Context) error {
	if a.pg == nil {
		return nil
	}
	_, err := a.pg.DB().ExecContext(ctx, `
		TRUNCATE TABLE audit_log, packets, packet_templates, clients
		RESTART IDENTITY CASCADE
	`)
	return err
}

// Migrate applies the database schema. It is a no-op for in-memory storage.
func (a *App) Migrate(ctx context.Context) error {
	if a.pg == nil {
		return nil
	}
	return a.pg.Migrate(ctx)
}
