/*
 *
 * Copyright 2025 The Fluorescence Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Command flrctl drives and inspects Fluorescence hosts over shared memory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nithinp7/Fluorescence/internal/config"
)

var (
	configPath  string
	verbose     bool
	metricsAddr string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "flrctl",
	Short: "Drive a Fluorescence host over a shared-memory arena",
	Long: `flrctl launches a Fluorescence host with a project, performs the
handshake over the shared arena and ticks it.

Settings come from the config file (YAML, or TOML by extension) and are
overridden by FLR_EXE, FLR_PROJECT, FLR_ARENA, FLR_ARENA_SIZE and
FLR_TICK_TIMEOUT.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "flr.yaml", "Config file (.yaml or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics_addr)")
	runCmd.Flags().IntVar(&runTicks, "ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
	capacityCmd.Flags().Uint64Var(&capacityBytes, "cap", 65536, "Arena capacity to probe")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(simulateHostCmd)
	rootCmd.AddCommand(capacityCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config, with args[0] overriding the project.
func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Project = args[0]
	}
	if cfg.Executable == "" {
		return nil, fmt.Errorf("no host executable: set executable in %s or FLR_EXE", configPath)
	}
	return cfg, nil
}
