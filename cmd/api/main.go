package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	migrate "github.com/rubenv/sql-migrate"

	"foundation/internal/acknowledgement"
	"foundation/internal/adapter/repo"
	"foundation/internal/catalog"
	"foundation/internal/contact"
	"foundation/internal/content"
	"foundation/internal/http/handlers"
	httpapi "foundation/internal/http/httpapi"
	"foundation/internal/infra"
	"foundation/internal/infra/credentials"
	"foundation/internal/infra/geoip"
	"foundation/internal/middleware"
	"foundation/internal/notify"
	"foundation/internal/notion"
	"foundation/migrations"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.AutoMigrate {
		if _, err := migrations.Apply(cfg.DatabaseURL, migrate.Up, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	ctx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	go infra.MonitorPool(ctx, dbpool, 30*time.Second, logger)

	runner := infra.NewSQLRunner(dbpool, logger)

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load donation catalog")
	}

	creds := credentials.NewStore(runner)
	notionToken, err := creds.Resolve(ctx, credentials.ProviderNotion, cfg.NotionToken)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read stored notion token")
	}
	webhookURL, err := creds.Resolve(ctx, credentials.ProviderWebhook, cfg.WebhookURL)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read stored webhook url")
	}

	app := &handlers.App{
		Config:  cfg,
		Logger:  logger,
		DB:      dbpool,
		Catalog: cat,
		Intents: repo.NewDonationIntentRepository(runner),
	}

	if notionToken != "" {
		clientLogger := logger.With().Str("component", "notion").Logger()
		client, err := notion.New(notion.Options{
			Token:      notionToken,
			BaseURL:    cfg.NotionBaseURL,
			Version:    cfg.NotionVersion,
			RetryCount: 2,
			Logger:     &clientLogger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build notion client")
		}

		if len(cfg.ContentDatabases) > 0 {
			contentLogger := logger.With().Str("component", "content").Logger()
			feeds, err := content.NewService(content.Options{
				Source:     client,
				Databases:  cfg.ContentDatabases,
				Revalidate: cfg.ContentRevalidate,
				Logger:     &contentLogger,
			})
			if err != nil {
				logger.Fatal().Err(err).Msg("failed to build content service")
			}
			app.Content = feeds
		}

		var hook *notify.Webhook
		if webhookURL != "" {
			hookLogger := logger.With().Str("component", "webhook").Logger()
			hook, err = notify.NewWebhook(notify.Options{URL: webhookURL, Logger: &hookLogger})
			if err != nil {
				logger.Warn().Err(err).Msg("webhook disabled")
				hook = nil
			}
		}

		if cfg.NotionDonorsDatabaseID != "" {
			store, err := acknowledgement.NewNotionStore(client, cfg.NotionDonorsDatabaseID)
			if err != nil {
				logger.Fatal().Err(err).Msg("failed to build acknowledgement store")
			}
			var notifier acknowledgement.Notifier
			if hook != nil {
				notifier = hook
			}
			ackLogger := logger.With().Str("component", "acknowledgement").Logger()
			svc, err := acknowledgement.NewService(notifier, store, &ackLogger)
			if err != nil {
				logger.Fatal().Err(err).Msg("failed to build acknowledgement service")
			}
			app.Acknowledgements = svc
		}

		if cfg.NotionContactDatabaseID != "" {
			store, err := contact.NewNotionStore(client, cfg.NotionContactDatabaseID)
			if err != nil {
				logger.Fatal().Err(err).Msg("failed to build contact store")
			}
			var notifier contact.Notifier
			if hook != nil {
				notifier = hook
			}
			contactLogger := logger.With().Str("component", "contact").Logger()
			svc, err := contact.NewService(notifier, store, &contactLogger)
			if err != nil {
				logger.Fatal().Err(err).Msg("failed to build contact service")
			}
			app.Contact = svc
		}
	} else {
		logger.Warn().Msg("notion token not configured; content, acknowledgements and contact form disabled")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	var lookup middleware.CountryLookup
	if resolver != nil {
		defer resolver.Close()
		lookup = resolver.CountryCode
	}

	router := httpapi.NewRouter(app, lookup)
	server := infra.NewHTTPServer(cfg, router, logger)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.Run(sigCtx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
}
