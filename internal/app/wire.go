package app

import (
	"context"
	"fmt"

	"github.com/zatekoja/coachpackets/internal/adapters/cache"
	"github.com/zatekoja/coachpackets/internal/adapters/database"
	"github.com/zatekoja/coachpackets/internal/adapters/events"
	"github.com/zatekoja/coachpackets/internal/adapters/memory"
	"github.com/zatekoja/coachpackets/internal/adapters/providers/export"
	"github.com/zatekoja/coachpackets/internal/adapters/providers/templatefs"
	"github.com/zatekoja/coachpackets/internal/application/services"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/internal/infrastructure/notifications"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
	"github.com/zatekoja/coachpackets/pkg/retry"
)

const templateCacheSize = 256

func (a *App) wireRepos(ctx context.Context) (Repos, error) {
	logger := observability.GetLogger()
	var repos Repos

	if a.pg != nil {
		repos.Clients = database.NewClientAdapter(a.pg)
		repos.Packets = database.NewPacketAdapter(a.pg)
		repos.Audit = database.NewAuditAdapter(a.pg.SQLX())
		repos.Templates = append(repos.Templates,
			database.NewCachedTemplateAdapter(database.NewTemplateAdapter(a.pg), a.templateCache(), int(a.Cfg.Templates.CacheTTL.Seconds()), a.Metrics))
	} else {
		repos.Clients = memory.NewClientStore()
		repos.Packets = memory.NewPacketStore()
		repos.Audit = memory.NewAuditStore()
	}

	if dir := a.Cfg.Templates.OverrideDir; dir != "" {
		store, err := templatefs.NewDirStore(dir)
		if err != nil {
			return Repos{}, fmt.Errorf("failed to load template overrides: %w", err)
		}
		if err := store.Watch(ctx); err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("Template overrides will not hot reload")
		}
		repos.Templates = append(repos.Templates, store)
		logger.Info().Str("dir", dir).Int("templates", store.Len()).Msg("Loaded template overrides")
	}
	return repos, nil
}

func (a *App) templateCache() providers.CacheProvider {
	if a.redis != nil {
		return cache.NewRedisAdapter(a.redis, "coachpackets:", a.Cfg.Templates.CacheTTL)
	}
	return cache.NewMemoryAdapter(templateCacheSize, a.Cfg.Templates.CacheTTL)
}

func (a *App) wireEventBus() providers.EventBus {
	if a.redis != nil {
		return events.NewRedisEventBus(a.redis)
	}
	return events.NewMemoryEventBus()
}

func (a *App) wireChannels() []providers.NotificationChannel {
	logger := observability.GetLogger()
	channels := []providers.NotificationChannel{notifications.NewLogChannel()}

	n := a.Cfg.Notifications
	if n.WhatsAppAccessToken != "" {
		sender, err := notifications.NewWhatsAppCloudSender(n.WhatsAppAccessToken, n.WhatsAppPhoneNumberID)
		if err != nil {
			logger.Warn().Err(err).Msg("WhatsApp notifications disabled")
		} else {
			channels = append(channels, notifications.NewWhatsAppChannel(sender, nil))
		}
	}
	if a.redis != nil {
		channels = append(channels, notifications.NewInAppChannel(a.redis))
	}
	return channels
}

func (a *App) wireExporter() providers.PDFExporter {
	if a.Cfg.Export.BaseURL == "" {
		observability.GetLogger().Info().Msg("PDF export disabled, packets are stored without documents")
		return nil
	}
	exporter, err := export.NewHTTPExporter(export.Config{
		BaseURL: a.Cfg.Export.BaseURL,
		APIKey:  a.Cfg.Export.APIKey,
		Timeout: a.Cfg.Export.Timeout,
	})
	if err != nil {
		observability.GetLogger().Warn().Err(err).Msg("PDF export disabled")
		return nil
	}
	return exporter
}

// RetryPolicy converts the configured retry settings
func (a *App) RetryPolicy() retry.Config {
	return retry.Config{
		MaxAttempts:   a.Cfg.Retry.MaxRetries,
		InitialDelay:  a.Cfg.Retry.BaseDelay,
		MaxDelay:      a.Cfg.Retry.MaxDelay,
		BackoffFactor: a.Cfg.Retry.Factor,
	}
}

func (a *App) wireServices() (Services, error) {
	builtin, err := templatefs.NewBuiltinStore()
	if err != nil {
		return Services{}, fmt.Errorf("failed to load built-in templates: %w", err)
	}

	r := a.Repos
	svcs := Services{}
	svcs.Routing = services.NewRoutingService(r.Packets, a.EventBus)
	svcs.Retry = services.NewRetryService(r.Packets, r.Audit, a.RetryPolicy())
	svcs.Notifier = services.NewNotificationService(r.Packets, r.Clients, r.Audit,
		a.wireChannels(), a.Cfg.Notifications.AdminPhones, a.Metrics)

	errorHandler := services.NewErrorHandler(r.Packets, r.Audit, a.Metrics)
	svcs.Orchestrator = services.NewPacketOrchestrator(services.OrchestratorDeps{
		ClientRepo:   r.Clients,
		PacketRepo:   r.Packets,
		Resolver:     services.NewTemplateResolver(builtin, r.Templates...),
		Enrichers:    services.NewEnricherRegistry(services.DefaultEnrichers()...),
		Exporter:     a.wireExporter(),
		ErrorHandler: errorHandler,
		Notifier:     svcs.Notifier,
		EventBus:     a.EventBus,
		Metrics:      a.Metrics,
	})
	svcs.Queue = services.NewPacketQueue(services.QueueDeps{
		PacketRepo:   r.Packets,
		Processor:    svcs.Orchestrator,
		ErrorHandler: errorHandler,
		Retry:        svcs.Retry,
		Notifier:     svcs.Notifier,
		EventBus:     a.EventBus,
	}, a.Cfg.Queue)
	svcs.Admin = services.NewAdminService(r.Packets, r.Audit, svcs.Retry, a.EventBus)
	svcs.Intake = services.NewIntakeService(r.Clients, svcs.Routing)
	svcs.Packets = services.NewPacketService(r.Packets)
	return svcs, nil
}
