// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

// Package main is the entry point for the Planvault server.
//
// Planvault is the shared data backend for a plant-shutdown planning tool.
// It keeps one JSON document of planning modules on disk, serves it over a
// REST API, and pushes change notifications to connected browser sessions
// over WebSocket so every planner sees the same state.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered loading via Koanf v2 (defaults, YAML, env)
//  2. Backup manager: rolling and daily backup directories
//  3. Document store: loads the JSON document and owns all writes
//  4. WebSocket hub: broadcasts change notifications to sessions
//  5. File watcher: detects edits made outside the server
//  6. HTTP server: REST API plus the WebSocket upgrade endpoint
//
// All long-running components run under a suture supervision tree and are
// restarted in isolation on failure.
//
// # Configuration
//
// Settings come from PLANVAULT_-prefixed environment variables, an optional
// config.yaml, and built-in defaults. The legacy HTTP_PORT and DATA_DIR
// variables are still honored.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the hub closes every session, and the store finishes
// its queued writes.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/planvault/planvault/internal/api"
	"github.com/planvault/planvault/internal/backup"
	"github.com/planvault/planvault/internal/config"
	"github.com/planvault/planvault/internal/logging"
	"github.com/planvault/planvault/internal/registry"
	"github.com/planvault/planvault/internal/store"
	"github.com/planvault/planvault/internal/supervisor"
	"github.com/planvault/planvault/internal/supervisor/services"
	"github.com/planvault/planvault/internal/watcher"
	ws "github.com/planvault/planvault/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config not available yet; the default logger reports the failure.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("data_file", cfg.Store.DataFile()).
		Int("modules", registry.Count()).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting Planvault")

	backupCfg := backup.DefaultConfig(cfg.Store.DataDir)
	backupCfg.DataFile = cfg.Store.DataFile()
	backupCfg.RollingInterval = cfg.Backup.RollingInterval
	backupCfg.MaxRolling = cfg.Backup.MaxRolling
	backupCfg.MaxDaily = cfg.Backup.MaxDaily
	backupCfg.PreferredHour = cfg.Backup.PreferredHour

	backups, err := backup.NewManager(backupCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize backup manager")
	}

	st := store.New(store.Config{
		DataFile:         cfg.Store.DataFile(),
		QueueSize:        cfg.Store.QueueSize,
		MaxWriteAttempts: cfg.Store.MaxWriteAttempts,
		RetryBackoff:     cfg.Store.RetryBackoff,
		WriteGrace:       cfg.Store.WriteGrace,
	}, backups)
	if err := st.Load(); err != nil {
		logging.Fatal().Err(err).Msg("Failed to load document")
	}
	logging.Info().Msg("Document loaded")

	wsHub := ws.NewHub()
	st.SetBroadcaster(wsHub)

	router := api.NewRouter(st, backups, wsHub, cfg)
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)

	tree.AddDataService(st)
	tree.AddDataService(backup.NewScheduler(backups))

	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	if cfg.Watcher.Enabled {
		tree.AddMessagingService(watcher.New(watcher.Config{
			Path:     cfg.Store.DataFile(),
			Debounce: cfg.Watcher.Debounce,
		}, st, wsHub))
		logging.Info().Dur("debounce", cfg.Watcher.Debounce).Msg("File watcher enabled")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}
