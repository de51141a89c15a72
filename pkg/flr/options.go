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

package flr

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/nithinp7/Fluorescence/internal/host"
)

// Host is a running host process as seen by the session.
type Host interface {
	// Alive reports whether the host is still running. It must not block.
	Alive() bool
	// Kill terminates the host.
	Kill() error
	// Join waits for the host to exit. It is called exactly once.
	Join() error
}

// LaunchSpec tells a Launcher what to start.
type LaunchSpec struct {
	Executable string
	Project    string
	// Arena is the name of the shared segment the host must attach to.
	Arena  string
	Stdout io.Writer
	Stderr io.Writer
}

// Launcher starts the host process.
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (Host, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, spec LaunchSpec) (Host, error)

func (f LauncherFunc) Launch(ctx context.Context, spec LaunchSpec) (Host, error) {
	return f(ctx, spec)
}

// ExecLauncher starts the host executable as a child process, passing the
// arena name in FLR_ARENA.
type ExecLauncher struct {
	Logger *zap.Logger
}

func (l ExecLauncher) Launch(ctx context.Context, spec LaunchSpec) (Host, error) {
	p, err := host.Start(ctx, host.Spec{
		Path:    spec.Executable,
		Project: spec.Project,
		Env:     []string{"FLR_ARENA=" + spec.Arena},
		Stdout:  spec.Stdout,
		Stderr:  spec.Stderr,
		Logger:  l.Logger,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DefaultCloseGrace is how long Close waits for the host to exit on its own
// before killing it.
const DefaultCloseGrace = 2 * time.Second

type options struct {
	logger     *zap.Logger
	launcher   Launcher
	stdout     io.Writer
	stderr     io.Writer
	closeGrace time.Duration
}

type Option func(*options)

// WithLogger sets the session logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLauncher replaces the default ExecLauncher.
func WithLauncher(l Launcher) Option {
	return func(o *options) { o.launcher = l }
}

// WithOutput connects the host's standard output and error.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithCloseGrace sets how long Close waits for the host before killing it.
// A negative value waits indefinitely.
func WithCloseGrace(d time.Duration) Option {
	return func(o *options) { o.closeGrace = d }
}

func buildOptions(opts []Option) options {
	o := options{closeGrace: DefaultCloseGrace}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.launcher == nil {
		o.launcher = ExecLauncher{Logger: o.logger}
	}
	return o
}
