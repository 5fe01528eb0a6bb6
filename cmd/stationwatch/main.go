package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	httpapi "github.com/jlmoray/stationwatch/internal/api/http"
	"github.com/jlmoray/stationwatch/internal/config"
	"github.com/jlmoray/stationwatch/internal/geo"
	"github.com/jlmoray/stationwatch/internal/logging"
	"github.com/jlmoray/stationwatch/internal/poll"
	"github.com/jlmoray/stationwatch/internal/prefs"
	"github.com/jlmoray/stationwatch/internal/provider"
	"github.com/jlmoray/stationwatch/internal/publish"
	"github.com/jlmoray/stationwatch/internal/quota"
	"github.com/jlmoray/stationwatch/internal/registry"
	"github.com/jlmoray/stationwatch/internal/scheduler"
	"github.com/jlmoray/stationwatch/internal/store"
	"github.com/jlmoray/stationwatch/internal/telemetry"
	"github.com/jlmoray/stationwatch/internal/update"
	"github.com/jlmoray/stationwatch/internal/wx"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to load config")
	}

	logger, err := logging.Setup(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to set up logging")
	}
	logger.Info().Str("version", version).Msg("starting stationwatch")

	// Persistent quota and epoch state.
	prefsStore, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.PrefsPath).Msg("failed to open preferences store")
	}
	defer prefsStore.Close()

	zone, err := time.LoadLocation(quota.ReferenceZone)
	if err != nil {
		logger.Fatal().Err(err).Msg("reference timezone unavailable")
	}
	tracker, err := quota.New(prefsStore, zone, cfg.DailyCallLimit, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to restore quota state")
	}

	if cfg.UpdateURL != "" {
		checker := update.NewChecker(cfg.UpdateURL, version, logger)
		tracker.OnRollover(checker.RolloverHook())
	}

	// Resolve city: locations up front so every cycle works with station
	// IDs or geo coordinates only.
	resolver := geo.NewResolver(cfg.GeocoderAPIKey, logger)
	devices := make([]registry.Device, 0, len(cfg.Devices))
	for _, spec := range cfg.Devices {
		location, err := resolver.Resolve(spec.Location)
		if err != nil {
			logger.Fatal().Err(err).Str("device", spec.Key).Msg("failed to resolve device location")
		}
		units := wx.UnitSystem(spec.Units)
		devices = append(devices, registry.Device{
			Key:      spec.Key,
			Name:     spec.Name,
			Location: location,
			Units:    units,
			Display:  wx.DefaultDisplayConfig(units),
		})
	}
	deviceTable, err := registry.NewDevices(devices)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid device configuration")
	}

	metricsReg := prometheus.NewRegistry()
	collector, err := telemetry.NewPrometheusCollector(metricsReg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register metrics")
	}

	triggers := registry.NewTriggers()
	executors := registry.MultiExecutor{registry.LogExecutor{Logger: logger}}

	// Optional MQTT sink for observations and trigger events.
	var publisher *publish.Publisher
	if cfg.MQTTBroker != "" {
		publisher = publish.NewPublisher(publish.MQTTConfig{
			Broker:      cfg.MQTTBroker,
			Port:        cfg.MQTTPort,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopic,
		}, logger)

		connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := publisher.Connect(connectCtx); err != nil {
			logger.Warn().Err(err).Msg("mqtt broker unreachable at startup, publishing will retry")
		}
		cancel()
		defer publisher.Disconnect()
		executors = append(executors, publisher)
	}

	detector, err := poll.NewDetector(prefsStore, triggers, executors, collector, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to restore device epochs")
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	wunderground := provider.NewWunderground(httpClient, cfg.APIKey, logger)

	projector := wx.NewProjector(time.Local, "", "")

	history := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	engine := poll.NewEngine(deviceTable, detector, wunderground, projector, tracker, history, collector, logger)
	if publisher != nil {
		engine.AddSink(publisher)
	}

	sched := scheduler.New(engine, cfg.PollInterval, cfg.PollInterval, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	// Metrics on a separate listener so the API surface stays clean.
	metricsSrv := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:               "stationwatch",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "stationwatch",
			"version": version,
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Devices:  deviceTable,
		Triggers: triggers,
		History:  history,
		Quota:    tracker,
		Engine:   engine,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during api shutdown")
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during metrics shutdown")
	}
}
