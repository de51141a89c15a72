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

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nithinp7/Fluorescence/internal/metrics"
	"github.com/nithinp7/Fluorescence/pkg/flr"
)

var runTicks int

var runCmd = &cobra.Command{
	Use:   "run [project]",
	Short: "Launch the host and tick it until it exits or is interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSession,
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
	}

	s, err := flr.Open(ctx, cfg, flr.WithLogger(logger), flr.WithOutput(os.Stdout, os.Stderr))
	if err != nil {
		return err
	}
	defer s.Close()

	start := time.Now()
	var ticks, reinits int
	for runTicks == 0 || ticks < runTicks {
		if ctx.Err() != nil {
			break
		}
		r := s.Tick()
		if r == flr.TickTerminated {
			break
		}
		ticks++
		if r == flr.TickReinit {
			reinits++
		}
	}

	logger.Info("run finished",
		zap.Int("ticks", ticks),
		zap.Int("reinits", reinits),
		zap.Duration("elapsed", time.Since(start)))
	if err := s.Err(); err != nil && !errors.Is(err, flr.ErrHostExited) {
		return err
	}
	return nil
}
