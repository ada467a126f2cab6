// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/OctoJourney/pkg/logging"
	"github.com/AleutianAI/OctoJourney/pkg/ux"
	"github.com/AleutianAI/OctoJourney/services/octopi"
	"github.com/AleutianAI/OctoJourney/services/octopi/config"
	"github.com/spf13/cobra"
)

// runServe starts the server and blocks until a shutdown signal.
func runServe(cmd *cobra.Command, flags *serveFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:   logging.LevelFromVerbosity(cfg.Verbosity),
		LogDir:  cfg.LogDir,
		Service: octopi.ServiceName,
		JSON:    cfg.LogJSON,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	ctx, stop := notifyShutdown(cmd.Context(), logger)
	defer stop()

	svc, err := octopi.New(cfg,
		octopi.WithLogger(logger.Slog()),
		octopi.WithVersion(version),
	)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	printBanner(cmd, cfg, svc)
	logger.Info("Octo-journey ready",
		"address", cfg.Addr(),
		"version", version,
		"log_level", logging.LevelFromVerbosity(cfg.Verbosity).String(),
	)
	return svc.Run(ctx)
}

// printBanner lists the registered routes on stdout.
func printBanner(cmd *cobra.Command, cfg *config.Config, svc octopi.Service) {
	info := ux.BannerInfo{
		Name:     octopi.ServiceName,
		Version:  version,
		Address:  cfg.Addr(),
		LogLevel: logging.LevelFromVerbosity(cfg.Verbosity).String(),
	}
	for _, r := range svc.Router().Routes() {
		info.Endpoints = append(info.Endpoints, ux.Endpoint{Method: r.Method, Path: r.Path})
	}
	if err := ux.PrintBanner(cmd.OutOrStdout(), info, ux.DetectMode(os.Stdout)); err != nil {
		slog.Debug("Failed to print banner", "error", err)
	}
}

// notifyShutdown returns a context cancelled by SIGINT or SIGTERM. Both
// drain in-flight requests; SIGTERM is logged at error level.
func notifyShutdown(parent context.Context, logger *logging.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			if sig == syscall.SIGINT {
				logger.Warn("Gracefully shutting down")
			} else {
				logger.Error("Violently shutting down. Use CTRL+C to gracefully shutdown")
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigs)
		cancel()
	}
}
