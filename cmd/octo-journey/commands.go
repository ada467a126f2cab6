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
	"fmt"
	"time"

	"github.com/AleutianAI/OctoJourney/services/octopi/config"
	"github.com/spf13/cobra"
)

// serveFlags holds the root command's flag values. Only flags the user set
// override the loaded config.
type serveFlags struct {
	configPath string
	address    string
	port       int
	verbosity  int
	tagDelay   time.Duration
}

// newRootCmd builds the command tree. A fresh tree per call keeps tests
// independent of each other's flag state.
func newRootCmd() *cobra.Command {
	flags := &serveFlags{}

	rootCmd := &cobra.Command{
		Use:   "octo-journey",
		Short: "Basic test server",
		Long: `octo-journey is a small HTTP server that captures and tags mock octopi.
It exists to exercise concurrent request handling, graceful shutdown and
simple state transitions for load testing and demos.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}

	bindServeFlags(rootCmd, flags)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newOpenAPICmd())
	return rootCmd
}

// bindServeFlags registers the server flags on cmd, with the config
// defaults as flag defaults.
func bindServeFlags(cmd *cobra.Command, flags *serveFlags) {
	defaults := config.DefaultConfig()
	fs := cmd.Flags()
	fs.StringVarP(&flags.configPath, "config", "c", "", "YAML config file")
	fs.StringVarP(&flags.address, "address", "a", defaults.Address,
		"Server address (env "+config.EnvAddress+")")
	fs.IntVarP(&flags.port, "port", "p", defaults.Port,
		"Server port (env "+config.EnvPort+")")
	fs.CountVarP(&flags.verbosity, "verbosity", "v",
		"Set the log level, repeat for more (env "+config.EnvVerbosity+")")
	fs.DurationVar(&flags.tagDelay, "tag-delay", defaults.TagDelay,
		"Per-octopus delay while tagging (env "+config.EnvTagDelay+")")
}

// --- Utilities ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "octo-journey %s\n", version)
		},
	}
}

// loadConfig layers defaults, the config file, the environment and finally
// the flags the user actually set, then validates the result.
func loadConfig(cmd *cobra.Command, flags *serveFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("address") {
		cfg.Address = flags.address
	}
	if fs.Changed("port") {
		cfg.Port = flags.port
	}
	if fs.Changed("verbosity") {
		cfg.Verbosity = flags.verbosity
	}
	if fs.Changed("tag-delay") {
		cfg.TagDelay = flags.tagDelay
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
