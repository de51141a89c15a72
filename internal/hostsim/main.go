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

package hostsim

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nithinp7/Fluorescence/internal/config"
	"github.com/nithinp7/Fluorescence/internal/host"
)

// Main runs a simulated host the way the real host is launched: with the
// project path and -ipc as arguments and the arena name in FLR_ARENA. It
// returns the process exit code.
func Main(args []string, stderr io.Writer) int {
	project, ok := parseArgs(args)
	if !ok {
		fmt.Fprintln(stderr, "usage: simulate-host <project.yaml> -ipc")
		return 2
	}
	arena := os.Getenv("FLR_ARENA")
	if arena == "" {
		arena = config.DefaultArenaName
	}

	log := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(stderr),
		zap.InfoLevel,
	)).Named("hostsim")
	defer log.Sync()

	p, err := LoadProject(project)
	if err != nil {
		log.Error("failed to load project", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := Attach(arena, p, log)
	if err != nil {
		log.Error("failed to attach", zap.Error(err))
		return 1
	}
	err = s.Run(ctx)
	if cerr := s.ch.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Error("host stopped", zap.Error(err))
		return 1
	}
	return 0
}

// parseArgs accepts "<project> -ipc" in either order.
func parseArgs(args []string) (project string, ok bool) {
	ipc := false
	for _, a := range args {
		switch {
		case a == host.IPCFlag:
			ipc = true
		case project == "":
			project = a
		default:
			return "", false
		}
	}
	return project, ipc && project != ""
}
