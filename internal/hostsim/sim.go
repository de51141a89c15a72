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
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nithinp7/Fluorescence/internal/protocol"
	"github.com/nithinp7/Fluorescence/internal/transport/shm"
)

// DefaultPoll is how often a waiting host checks for cancellation and for a
// closed client.
const DefaultPoll = 20 * time.Millisecond

// ErrUnexpectedCommand is returned when the startup frame holds anything but
// UINT_PARAM records.
var ErrUnexpectedCommand = errors.New("hostsim: unexpected command in startup frame")

// Sim is a simulated host attached to one arena.
type Sim struct {
	ch   *shm.Channel
	log  *zap.Logger
	base *Project
	proj *Project
	poll time.Duration

	mu      sync.Mutex
	params  []protocol.UintParam
	frames  [][]protocol.Command
	buffers map[string][]byte
	uiState []byte
	ticks   int

	cancel   context.CancelFunc
	g        errgroup.Group
	done     chan struct{}
	joinOnce sync.Once
	joinErr  error
}

// Attach maps the client's arena. The host does not run until Run or Start.
func Attach(arena string, p *Project, log *zap.Logger) (*Sim, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ch, err := shm.Attach(arena)
	if err != nil {
		return nil, fmt.Errorf("hostsim: attach %s: %w", arena, err)
	}
	s := &Sim{
		ch:   ch,
		log:  log.With(zap.String("arena", arena)),
		base: p,
		poll: DefaultPoll,
		done: make(chan struct{}),
	}
	s.load(p)
	return s, nil
}

// Start attaches and runs the host on its own goroutine. The returned Sim
// can be polled with Alive, stopped with Kill and reaped with Join.
func Start(ctx context.Context, arena string, p *Project, log *zap.Logger) (*Sim, error) {
	s, err := Attach(arena, p, log)
	if err != nil {
		return nil, err
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.g.Go(func() error {
		defer close(s.done)
		return s.Run(ctx)
	})
	return s, nil
}

func (s *Sim) Alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Kill stops a started host at its next poll.
func (s *Sim) Kill() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Join waits for a started host and detaches from the arena.
func (s *Sim) Join() error {
	s.joinOnce.Do(func() {
		s.joinErr = s.g.Wait()
		if s.cancel != nil {
			s.cancel()
		}
		if err := s.ch.Close(); err != nil && s.joinErr == nil {
			s.joinErr = err
		}
	})
	return s.joinErr
}

// load makes p the current project and resets its buffers and UI state.
func (s *Sim) load(p *Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proj = p
	s.buffers = make(map[string][]byte, len(p.Buffers))
	for _, b := range p.Buffers {
		s.buffers[b.Name] = make([]byte, b.Size)
	}
	s.uiState = p.initialUIState()
}

// waitTurn blocks until the client hands over the arena. It returns
// errClientClosed once the client has torn down.
func (s *Sim) waitTurn(ctx context.Context) error {
	err := s.ch.WaitContext(ctx, shm.WriteDone, s.poll, func() error {
		if s.ch.PeerClosed() {
			return errClientClosed
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.ch.PeerClosed() {
		return errClientClosed
	}
	return nil
}

var errClientClosed = errors.New("client closed")

// Run serves the client until it closes, ctx is done, or the scripted
// behavior ends the host.
func (s *Sim) Run(ctx context.Context) error {
	err := s.run(ctx)
	if errors.Is(err, errClientClosed) {
		s.log.Debug("client closed")
		return nil
	}
	return err
}

func (s *Sim) run(ctx context.Context) error {
	if err := s.waitTurn(ctx); err != nil {
		return err
	}
	if err := s.readStartup(); err != nil {
		return err
	}

	w := protocol.NewMessageWriter(s.ch.Arena())
	if s.base.Behavior.FailStartup {
		w.Failed()
		s.log.Info("reporting startup failure")
		return s.ch.Signal(shm.ReadDone)
	}
	w.Greet()
	s.establish(w)
	if err := w.Finish(); err != nil {
		return err
	}
	if err := s.ch.Signal(shm.ReadDone); err != nil {
		return err
	}
	s.log.Info("establishment sent")
	if s.base.Behavior.ExitAfterHandshake {
		return nil
	}

	for {
		if err := s.waitTurn(ctx); err != nil {
			return err
		}
		cmds, err := protocol.ReadCommands(s.ch.Arena())
		if err != nil {
			return err
		}
		ticks := s.apply(cmds)

		w := protocol.NewMessageWriter(s.ch.Arena())
		w.Greet()
		if every := s.base.Behavior.ReinitEvery; every > 0 && ticks%every == 0 {
			s.reinit(w)
		} else {
			s.mu.Lock()
			if len(s.uiState) > 0 {
				w.UIUpdate(s.uiState)
			}
			s.mu.Unlock()
		}
		if err := w.Finish(); err != nil {
			return err
		}
		if err := s.ch.Signal(shm.ReadDone); err != nil {
			return err
		}
		if n := s.base.Behavior.ExitAfterTicks; n > 0 && ticks >= n {
			s.log.Info("exiting after scripted tick count", zap.Int("ticks", ticks))
			return nil
		}
	}
}

func (s *Sim) readStartup() error {
	cmds, err := protocol.ReadCommands(s.ch.Arena())
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cmds {
		p, ok := c.(protocol.UintParam)
		if !ok {
			return fmt.Errorf("%w: %v", ErrUnexpectedCommand, c.Type())
		}
		s.params = append(s.params, p)
	}
	return nil
}

func (s *Sim) establish(w *protocol.MessageWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proj.write(w)
	if len(s.uiState) > 0 {
		w.UIUpdate(s.uiState)
	}
}

// reinit switches to the other project and describes it after REINIT.
func (s *Sim) reinit(w *protocol.MessageWriter) {
	next := s.base
	if s.proj == s.base && s.base.ReinitProject != nil {
		next = s.base.ReinitProject
	}
	s.load(next)
	s.log.Info("reinitializing project")
	w.Reinit()
	s.establish(w)
}

// apply executes the buffer writes of one frame and records it. It returns
// the tick count including this frame.
func (s *Sim) apply(cmds []protocol.Command) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cmds {
		switch c := c.(type) {
		case protocol.BufferWrite:
			s.writeBuffer(c.Buffer, c.DstOffset, c.Data)
		case protocol.BufferStagedUpload:
			s.writeBuffer(c.Buffer, 0, c.Data)
		case protocol.UintParam:
			s.params = append(s.params, c)
		}
	}
	s.frames = append(s.frames, cmds)
	s.ticks++
	return s.ticks
}

func (s *Sim) writeBuffer(idx, off uint32, data []byte) {
	if int(idx) >= len(s.proj.Buffers) {
		s.log.Warn("write to unknown buffer", zap.Uint32("buffer", idx))
		return
	}
	buf := s.buffers[s.proj.Buffers[idx].Name]
	if uint64(off)+uint64(len(data)) > uint64(len(buf)) {
		s.log.Warn("write past end of buffer", zap.Uint32("buffer", idx), zap.Uint32("offset", off), zap.Int("len", len(data)))
		return
	}
	copy(buf[off:], data)
}

// Params returns the startup and later UINT_PARAM records received.
func (s *Sim) Params() []protocol.UintParam {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.UintParam(nil), s.params...)
}

// Frames returns every command list received after the handshake.
func (s *Sim) Frames() [][]protocol.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]protocol.Command(nil), s.frames...)
}

func (s *Sim) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// BufferContents returns a copy of the named buffer in the current project.
func (s *Sim) BufferContents(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buffers[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

// SetUIValue changes a UI element; the client sees it after its next tick.
func (s *Sim) SetUIValue(name string, v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.proj.UI {
		if e.Name == name {
			putWord(s.uiState[e.Offset:], uiKinds[e.Kind], v)
			return nil
		}
	}
	return fmt.Errorf("hostsim: no UI element %q", name)
}
