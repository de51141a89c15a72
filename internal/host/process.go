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

// Package host supervises the Fluorescence host process.
//
// The host is started with the project path and the -ipc flag. A single
// supervisory goroutine owns cmd.Wait; the session polls Alive from its
// tick loop and calls Join exactly once during teardown.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// IPCFlag is the argument that puts the host into shared-memory mode.
const IPCFlag = "-ipc"

// ErrNoExecutable is returned when no host executable is configured.
var ErrNoExecutable = errors.New("host: no executable configured")

type Spec struct {
	Path    string   // host executable
	Project string   // project file, passed as the first argument
	Env     []string // appended to the current environment
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *zap.Logger
}

type Process struct {
	cmd  *exec.Cmd
	g    errgroup.Group
	done chan struct{}
	log  *zap.Logger

	joinOnce sync.Once
	joinErr  error
}

// Start launches the host. ctx bounds only the launch itself: the process is
// not killed when ctx is later cancelled.
func Start(ctx context.Context, spec Spec) (*Process, error) {
	if spec.Path == "" {
		return nil, ErrNoExecutable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	project := spec.Project
	if project != "" {
		abs, err := filepath.Abs(project)
		if err != nil {
			return nil, fmt.Errorf("host: resolve project path: %w", err)
		}
		project = abs
	}
	log := spec.Logger
	if log == nil {
		log = zap.NewNop()
	}

	cmd := exec.Command(spec.Path, project, IPCFlag)
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("host: start %s: %w", spec.Path, err)
	}

	p := &Process{
		cmd:  cmd,
		done: make(chan struct{}),
		log:  log.With(zap.Int("pid", cmd.Process.Pid)),
	}
	p.log.Info("host started", zap.String("path", spec.Path), zap.String("project", project))

	p.g.Go(func() error {
		err := cmd.Wait()
		close(p.done)
		if err != nil {
			p.log.Warn("host exited", zap.Error(err))
		} else {
			p.log.Info("host exited")
		}
		return err
	})
	return p, nil
}

func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Alive reports whether the host is still running. It never blocks.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Done is closed when the host exits.
func (p *Process) Done() <-chan struct{} { return p.done }

// Kill terminates the host if it is still running.
func (p *Process) Kill() error {
	if !p.Alive() {
		return nil
	}
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Join waits for the host to exit and returns its exit status. Only the
// first call waits; later calls return the same result.
func (p *Process) Join() error {
	p.joinOnce.Do(func() {
		p.joinErr = p.g.Wait()
	})
	return p.joinErr
}

// ExitCode returns the host's exit code, or -1 while it is running.
func (p *Process) ExitCode() int {
	if p.Alive() {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}
