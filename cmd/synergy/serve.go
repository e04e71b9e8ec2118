// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/synergyos/synergy/pkg/logging"
	"github.com/synergyos/synergy/services/synergy"
	"github.com/synergyos/synergy/services/synergy/ai"
	"github.com/synergyos/synergy/services/synergy/config"
	"github.com/synergyos/synergy/services/synergy/core"
	"github.com/synergyos/synergy/services/synergy/digest"
	"github.com/synergyos/synergy/services/synergy/events"
	"github.com/synergyos/synergy/services/synergy/messages"
	"github.com/synergyos/synergy/services/synergy/notify"
	badgerstore "github.com/synergyos/synergy/services/synergy/storage/badger"
	"github.com/synergyos/synergy/services/synergy/storage/sqlite"
	"github.com/synergyos/synergy/services/synergy/telemetry"
	"github.com/synergyos/synergy/services/synergy/templates"
	"github.com/synergyos/synergy/services/synergy/webhooks"
)

var (
	configPath string
	debugMode  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SynergyOS API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to the YAML config file")
	serveCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable Gin debug mode and request logging")
}

func serve() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.LogDir,
		Service: "synergy",
		JSON:    cfg.Logging.JSON,
	})
	defer logger.Close()
	log := logger.Slog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry first so every subsystem can record against the
	// global meter.
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Warn("Telemetry shutdown failed", "error", err)
		}
	}()
	metrics, err := telemetry.NewMetrics(otel.Meter("synergy"))
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	// Storage.
	sqliteCfg := sqlite.DefaultConfig(cfg.Storage.SQLitePath)
	sqliteCfg.BusyTimeoutMS = cfg.Storage.BusyTimeoutMS
	store, err := sqlite.Open(sqliteCfg)
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	defer store.Close()
	log.Info("SQLite store ready", "path", cfg.Storage.SQLitePath)

	outboxDB, err := badgerstore.Open(badgerstore.DefaultConfig(cfg.Storage.OutboxPath))
	if err != nil {
		return fmt.Errorf("open outbox journal: %w", err)
	}
	defer outboxDB.Close()
	outbox := badgerstore.NewOutbox(outboxDB)

	// Core engine and event fan-out.
	emitter := events.NewEmitter()
	engine := core.NewEngine(store,
		core.WithEmitter(emitter),
		core.WithLogger(log),
	)

	notifySvc := notify.NewService(store, store, notify.WithLogger(log))
	notifySvc.Attach(emitter)

	dispatcher := webhooks.NewDispatcher(store, store, outbox,
		webhooks.WithDispatcherLogger(log),
		webhooks.WithMaxRetries(cfg.Webhooks.MaxRetries),
		webhooks.WithRetryBaseDelay(cfg.Webhooks.RetryBaseDelay.Std()),
		webhooks.WithRateLimit(cfg.Webhooks.RatePerSecond, cfg.Webhooks.RateBurst),
	)
	emitter.Subscribe(dispatcher.HandleEvent)

	// Service layer and collaboration subsystems.
	svc := synergy.NewService(engine, store,
		synergy.WithEmitter(emitter),
		synergy.WithMetrics(metrics),
		synergy.WithLogger(log),
	)
	templateSvc := templates.NewService(store, engine, templates.WithLogger(log))
	hub := messages.NewHub(log)
	messageSvc := messages.NewService(store, store,
		messages.WithHub(hub),
		messages.WithEmitter(emitter),
		messages.WithLogger(log),
	)

	aiOpts := []ai.Option{ai.WithLogger(log)}
	if cfg.AI.APIKey != "" {
		llm, err := ai.NewOpenAIClient(cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			return fmt.Errorf("create AI client: %w", err)
		}
		aiOpts = append(aiOpts, ai.WithLLM(llm))
	} else {
		log.Info("No AI API key configured, assistant runs on heuristics")
	}
	aiSvc := ai.NewService(store, aiOpts...)

	handlers := synergy.NewHandlers(svc).
		WithTemplates(templateSvc).
		WithMessages(messageSvc, hub).
		WithNotify(notifySvc).
		WithAI(aiSvc).
		WithWebhooks(dispatcher, store, store)

	// Router.
	if debugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if debugMode {
		router.Use(gin.Logger())
	}
	router.Use(otelgin.Middleware("synergy"))
	router.Use(telemetry.Middleware(metrics))

	synergy.RegisterRoutes(router.Group("/v1"), handlers)
	if handler := telemetry.MetricsHandler(); handler != nil {
		router.GET("/metrics", gin.WrapH(handler))
	}

	// Background workers.
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return dispatcher.Run(groupCtx)
	})

	if cfg.Digest.Enabled {
		digestSvc := digest.NewService(store, notifySvc,
			digest.WithLogger(log),
			digest.WithSchedules(cfg.Digest.DailySchedule, cfg.Digest.WeeklySchedule),
		)
		if err := digestSvc.Start(); err != nil {
			return fmt.Errorf("start digest scheduler: %w", err)
		}
		defer digestSvc.Stop()
		log.Info("Digest scheduler started",
			"daily", cfg.Digest.DailySchedule, "weekly", cfg.Digest.WeeklySchedule)
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	group.Go(func() error {
		log.Info("Starting SynergyOS server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("Shutting down SynergyOS server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
