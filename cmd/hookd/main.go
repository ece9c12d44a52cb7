// hookd receives license lifecycle webhooks from the Keygate server,
// verifies their signatures, records them, and exposes a small admin API
// over the recorded deliveries.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"keygate/internal/api"
	"keygate/internal/api/handlers"
	"keygate/internal/api/middleware"
	"keygate/internal/pkg/logger"
	"keygate/internal/platform/config"
	"keygate/internal/platform/database"
	"keygate/internal/platform/store"
	"keygate/internal/workers"
	"keygate/pkg/webhook"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := store.Schema(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema")
	}

	deliveryRepo := store.NewDeliveryRepository(db)
	statsRepo := store.NewStatsRepository(db)
	metrics := handlers.NewMetrics()

	var opts []webhook.ProcessorOption
	opts = append(opts, webhook.WithLogger(log.Logger))
	if cfg.Webhook.SkipVerification {
		opts = append(opts, webhook.WithSkipVerification())
	}
	processor := webhook.NewProcessor(cfg.Webhook.Secret, eventHandlers(), opts...)

	deps := &api.Dependencies{
		WebhookHandler:  handlers.NewWebhookHandler(processor, deliveryRepo, metrics, cfg.Webhook.MaxBodyBytes),
		DeliveryHandler: handlers.NewDeliveryHandler(deliveryRepo),
		StatsHandler:    handlers.NewStatsHandler(statsRepo),
		HealthHandler:   handlers.NewHealthHandler(db),
		MetricsHandler:  handlers.NewMetricsHandler(metrics),
		AdminAuth:       middleware.NewAdminAuth(cfg.Admin.TokenHash),
		RateLimiter:     middleware.NewRateLimiter(),
		RateLimits:      cfg.RateLimit,
	}
	router := api.NewRouter(deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	maintenance := workers.NewMaintenance(deliveryRepo, statsRepo, cfg.Retention)
	go maintenance.Run(ctx)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("hookd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// eventHandlers logs each license lifecycle event. Deployments embedding
// hookd swap these for their own provisioning logic.
func eventHandlers() webhook.Handlers {
	logEvent := func(msg string) webhook.Handler {
		return func(ev webhook.Event) error {
			entry := log.Info().
				Str("event", ev.Kind.String()).
				Str("event_id", ev.ID)
			if len(ev.Data) > 0 {
				entry = entry.RawJSON("data", ev.Data)
			}
			entry.Msg(msg)
			return nil
		}
	}

	return webhook.Handlers{
		LicenseCreated:     logEvent("license created"),
		LicenseUpdated:     logEvent("license updated"),
		LicenseDeleted:     logEvent("license deleted"),
		LicenseRenewed:     logEvent("license renewed"),
		LicenseExpired:     logEvent("license expired"),
		MachineActivated:   logEvent("machine activated"),
		MachineDeactivated: logEvent("machine deactivated"),
	}
}
