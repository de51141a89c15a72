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

// Package flr drives a Fluorescence host process over shared memory.
//
// A Session owns the arena, the host process and the resource catalog. Open
// launches the host and completes the handshake. After that the caller
// records commands (Dispatch, BufferWrite, RunTask, ...) and calls Tick once
// per frame to hand the command list to the host and receive its update.
//
// A Session is not safe for concurrent use: commands and Tick must be issued
// from one goroutine.
package flr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	sigar "github.com/cloudfoundry/gosigar"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nithinp7/Fluorescence/internal/catalog"
	"github.com/nithinp7/Fluorescence/internal/config"
	"github.com/nithinp7/Fluorescence/internal/handle"
	"github.com/nithinp7/Fluorescence/internal/metrics"
	"github.com/nithinp7/Fluorescence/internal/protocol"
	"github.com/nithinp7/Fluorescence/internal/transport/shm"
)

var (
	// ErrHostExited is recorded when the host process goes away while the
	// session is waiting on it.
	ErrHostExited = errors.New("flr: host process exited")
	// ErrTerminated is returned by operations on a terminated session.
	ErrTerminated = errors.New("flr: session terminated")
	// ErrHostFailed is returned by Open when the host reports that it could
	// not load the project.
	ErrHostFailed = protocol.ErrHostFailed
	// ErrProtocol matches every framing violation.
	ErrProtocol = protocol.ErrProtocol
)

type State int32

const (
	Starting State = iota
	Handshaking
	Running
	Reinitializing
	Terminated
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Handshaking:
		return "handshaking"
	case Running:
		return "running"
	case Reinitializing:
		return "reinitializing"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// TickResult is the outcome of Tick.
type TickResult int

const (
	// TickSuccess means the host processed the frame.
	TickSuccess TickResult = 0
	// TickTerminated means the session is over; Err says why.
	TickTerminated TickResult = 1
	// TickReinit means the host rebuilt its project. Handles stay valid, but
	// generation-local contents such as buffer data must be uploaded again.
	TickReinit TickResult = 2
)

func (r TickResult) String() string {
	switch r {
	case TickSuccess:
		return "success"
	case TickTerminated:
		return "terminated"
	case TickReinit:
		return "reinit"
	}
	return fmt.Sprintf("tick-result(%d)", int(r))
}

type Session struct {
	id          string
	log         *zap.Logger
	tickTimeout time.Duration
	closeGrace  time.Duration

	ch      *shm.Channel
	frame   *protocol.Frame
	enc     *protocol.Encoder
	cat     *catalog.Catalog
	reg     *handle.Registry
	host    Host
	metrics *metrics.Session

	state      atomic.Int32
	err        error
	ticks      uint64
	lastFailed bool

	closeOnce sync.Once
	closeErr  error
}

// Open creates the arena, sends the startup parameters, launches the host
// and waits for its establishment packet. The wait has no deadline; it ends
// when the host answers, when the host exits, or when ctx is done.
//
// On error everything Open created has been released.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("flr: invalid config: %w", err)
	}
	addr, err := cfg.Address()
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	id := uuid.NewString()
	log := o.logger.With(zap.String("session", id), zap.String("arena", addr.Name))
	checkMemory(log, addr.Cap)

	ch, err := shm.Open(addr.Name, addr.Cap)
	if err != nil {
		return nil, fmt.Errorf("flr: open arena: %w", err)
	}

	s := &Session{
		id:          id,
		log:         log,
		tickTimeout: cfg.TickInterval(),
		closeGrace:  o.closeGrace,
		ch:          ch,
		cat:         catalog.New(nil),
		reg:         handle.NewRegistry(),
		metrics:     metrics.NewSession(addr.Name),
	}
	s.frame = protocol.NewFrame(ch.Arena())
	s.frame.OnOverflow = func() {
		s.log.Warn("command list overflowed arena; dropping rest of frame", zap.Uint64("tick", s.ticks))
		s.metrics.Overflow()
	}
	s.enc = protocol.NewEncoder(s.frame)
	s.setState(Starting)

	for _, p := range cfg.Params {
		s.enc.Encode(protocol.UintParam{Name: p.Name, Value: p.Value})
	}
	if s.frame.Failed() {
		ch.Close()
		return nil, fmt.Errorf("flr: %d startup params do not fit in a %d byte arena", len(cfg.Params), addr.Cap)
	}
	s.enc.Finish()
	s.frame.Reset()

	h, err := o.launcher.Launch(ctx, LaunchSpec{
		Executable: cfg.Executable,
		Project:    cfg.Project,
		Arena:      addr.Name,
		Stdout:     o.stdout,
		Stderr:     o.stderr,
	})
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("flr: launch host: %w", err)
	}
	s.host = h

	if err := s.handshake(ctx, cfg.PollInterval()); err != nil {
		s.terminate(err)
		if h.Alive() {
			h.Kill()
		}
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) handshake(ctx context.Context, poll time.Duration) error {
	s.setState(Handshaking)
	if err := s.ch.Signal(shm.WriteDone); err != nil {
		return err
	}
	err := s.ch.WaitContext(ctx, shm.ReadDone, poll, func() error {
		if !s.host.Alive() {
			return ErrHostExited
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("flr: handshake: %w", err)
	}
	if err := protocol.ParseEstablishment(s.ch.Arena(), s.cat); err != nil {
		return fmt.Errorf("flr: establishment: %w", err)
	}
	s.recordCatalog()
	s.setState(Running)
	s.log.Info("session established",
		zap.Int("buffers", len(s.cat.Buffers())),
		zap.Int("compute_shaders", len(s.cat.ComputeShaders())),
		zap.Int("tasks", len(s.cat.Tasks())),
		zap.Int("constants", len(s.cat.Constants())))
	return nil
}

// checkMemory warns when the arena is larger than the memory currently
// available. tmpfs pages are only committed when touched, so this is not
// fatal.
func checkMemory(log *zap.Logger, size uint64) {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil {
		log.Debug("failed to get memory info", zap.Error(err))
		return
	}
	if size > mem.ActualFree {
		log.Warn("arena exceeds available memory",
			zap.Uint64("arena_bytes", size),
			zap.Uint64("free_bytes", mem.ActualFree))
	}
}

func (s *Session) setState(st State) {
	old := State(s.state.Swap(int32(st)))
	if old != st {
		s.log.Debug("state change", zap.Stringer("from", old), zap.Stringer("to", st))
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// ID is the session's unique id, as used in logs.
func (s *Session) ID() string { return s.id }

// Err returns the reason the session terminated, or nil.
func (s *Session) Err() error { return s.err }

// terminate records err as the cause and enters Terminated. Resources are
// released by Close.
func (s *Session) terminate(err error) TickResult {
	if s.err == nil {
		s.err = err
	}
	if s.State() != Terminated {
		s.setState(Terminated)
		if errors.Is(err, ErrHostExited) {
			s.log.Info("host terminated", zap.Uint64("tick", s.ticks))
		} else {
			s.log.Error("session terminated", zap.Uint64("tick", s.ticks), zap.Error(err))
		}
	}
	return TickTerminated
}

// Tick finishes the current command list, hands it to the host and waits for
// the host's update. While waiting it checks every tick timeout whether the
// host is still alive, so a dead host is reported within one timeout.
func (s *Session) Tick() TickResult {
	st := s.State()
	if st == Terminated {
		return TickTerminated
	}
	if st != Running {
		panic(fmt.Sprintf("flr: Tick called in state %v", st))
	}
	start := time.Now()

	s.enc.Finish()
	cmdBytes, payloadBytes := s.frame.Used()
	s.metrics.FrameBytes(cmdBytes, payloadBytes)
	s.lastFailed = s.frame.Failed()
	s.frame.Reset()
	s.ticks++

	if !s.host.Alive() {
		return s.finishTick(start, s.terminate(ErrHostExited))
	}
	if err := s.ch.Signal(shm.WriteDone); err != nil {
		return s.finishTick(start, s.terminate(err))
	}
	for {
		res, err := s.ch.Wait(shm.ReadDone, s.tickTimeout)
		if err != nil {
			return s.finishTick(start, s.terminate(err))
		}
		if res == shm.Signaled {
			break
		}
		if !s.host.Alive() {
			return s.finishTick(start, s.terminate(ErrHostExited))
		}
	}

	reinit, err := protocol.ParseUpdate(s.ch.Arena(), s.cat)
	if err != nil {
		// A reinit may have already reset the catalog.
		s.reg.UnbindAll()
		return s.finishTick(start, s.terminate(fmt.Errorf("flr: update: %w", err)))
	}
	if !reinit {
		return s.finishTick(start, TickSuccess)
	}

	s.setState(Reinitializing)
	if err := s.reg.RectifyAll(s.cat); err != nil {
		return s.finishTick(start, s.terminate(fmt.Errorf("flr: rectify handles: %w", err)))
	}
	s.recordCatalog()
	s.metrics.Reinit()
	s.log.Info("project reinitialized",
		zap.Uint64("tick", s.ticks),
		zap.Uint64("generation", s.cat.Generation()),
		zap.Int("handles", s.reg.Len()))
	s.setState(Running)
	return s.finishTick(start, TickReinit)
}

func (s *Session) finishTick(start time.Time, r TickResult) TickResult {
	s.metrics.Tick(r.String(), time.Since(start))
	return r
}

func (s *Session) recordCatalog() {
	for _, cl := range []catalog.Class{
		catalog.ClassBuffer, catalog.ClassComputeShader, catalog.ClassTask,
		catalog.ClassUintSlider, catalog.ClassIntSlider, catalog.ClassFloatSlider, catalog.ClassCheckbox,
	} {
		s.metrics.CatalogSize(cl.String(), s.cat.Len(cl))
	}
}

// Catalog returns the current project generation. It is replaced in place on
// reinit and must only be read between calls to Tick.
func (s *Session) Catalog() *catalog.Catalog { return s.cat }

// FrameFailed reports whether the frame being recorded has overflowed.
func (s *Session) FrameFailed() bool { return s.frame.Failed() }

// LastFrameFailed reports whether the frame submitted by the last Tick had
// overflowed, meaning some of its commands were dropped.
func (s *Session) LastFrameFailed() bool { return s.lastFailed }

// Close ends the session. If the session is running, the host receives an
// empty frame with the channel marked closed; it then has the close grace
// period to exit before it is killed. Close joins the host and removes the
// arena. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if st := s.State(); st == Running || st == Reinitializing {
			s.frame.Reset()
			s.enc.Finish()
			s.ch.MarkClosed()
			if err := s.ch.Signal(shm.WriteDone); err != nil {
				s.log.Debug("failed to signal host on close", zap.Error(err))
			}
		} else {
			s.ch.MarkClosed()
		}
		s.setState(Terminated)
		if s.err == nil {
			s.err = ErrTerminated
		}

		var joinErr error
		if s.host != nil {
			s.awaitHost()
			joinErr = s.host.Join()
			if joinErr != nil {
				s.log.Debug("host exit status", zap.Error(joinErr))
			}
		}
		s.closeErr = s.ch.Close()
	})
	return s.closeErr
}

func (s *Session) awaitHost() {
	if s.closeGrace < 0 {
		return
	}
	deadline := time.Now().Add(s.closeGrace)
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for s.host.Alive() {
		if !time.Now().Before(deadline) {
			s.log.Warn("host did not exit; killing it", zap.Duration("grace", s.closeGrace))
			if err := s.host.Kill(); err != nil {
				s.log.Warn("failed to kill host", zap.Error(err))
			}
			return
		}
		<-t.C
	}
}
