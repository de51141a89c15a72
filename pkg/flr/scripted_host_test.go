//go:build linux

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
	"encoding/binary"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/nithinp7/Fluorescence/internal/catalog"
	"github.com/nithinp7/Fluorescence/internal/protocol"
	"github.com/nithinp7/Fluorescence/internal/transport/shm"
)

// scriptedHost answers each client handover with the next canned packet.
// With takeLast set it accepts one more handover after the script ends and
// exits without answering it.
type scriptedHost struct {
	packets  [][]byte
	takeLast bool

	ch        *shm.Channel
	handovers atomic.Int32
	cancel    context.CancelFunc
	g         errgroup.Group
	done      chan struct{}
}

var errScriptClientClosed = errors.New("client closed")

func (h *scriptedHost) Launch(ctx context.Context, spec LaunchSpec) (Host, error) {
	ch, err := shm.Attach(spec.Arena)
	if err != nil {
		return nil, err
	}
	h.ch = ch
	h.done = make(chan struct{})
	ctx, h.cancel = context.WithCancel(ctx)
	h.g.Go(func() error {
		defer close(h.done)
		err := h.run(ctx)
		if errors.Is(err, errScriptClientClosed) {
			return nil
		}
		return err
	})
	return h, nil
}

func (h *scriptedHost) waitTurn(ctx context.Context) error {
	err := h.ch.WaitContext(ctx, shm.WriteDone, 5*time.Millisecond, func() error {
		if h.ch.PeerClosed() {
			return errScriptClientClosed
		}
		return nil
	})
	if err != nil {
		return err
	}
	h.handovers.Add(1)
	return nil
}

func (h *scriptedHost) run(ctx context.Context) error {
	for _, p := range h.packets {
		if err := h.waitTurn(ctx); err != nil {
			return err
		}
		copy(h.ch.Arena(), p)
		if err := h.ch.Signal(shm.ReadDone); err != nil {
			return err
		}
	}
	if h.takeLast {
		return h.waitTurn(ctx)
	}
	return nil
}

func (h *scriptedHost) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *scriptedHost) Kill() error {
	h.cancel()
	return nil
}

func (h *scriptedHost) Join() error {
	err := h.g.Wait()
	h.cancel()
	if cerr := h.ch.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func openScripted(t *testing.T, h *scriptedHost) *Session {
	t.Helper()
	s, err := Open(context.Background(), testConfig(64*1024), WithLauncher(h), WithCloseGrace(time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// establishment is a GREET packet describing one cpu-accessible buffer.
func establishment(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, 4096)
	w := protocol.NewMessageWriter(buf)
	w.Greet()
	w.Buffer(catalog.Buffer{Index: 0, ByteSize: 16, SubBufferCount: 1, CPUAccessible: true}, "posBuf")
	require.NoError(t, w.Finish())
	return buf
}

func words(vs ...uint32) []byte {
	var b []byte
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, v)
	}
	return b
}

func TestMalformedUpdateAfterReinitUnbindsHandles(t *testing.T) {
	h := &scriptedHost{packets: [][]byte{
		establishment(t),
		words(uint32(protocol.MsgGreet), uint32(protocol.MsgReinit), 99),
	}}
	s := openScripted(t, h)

	pos := s.Buffer("posBuf")
	require.True(t, pos.Valid())

	require.Equal(t, TickTerminated, s.Tick())
	require.Equal(t, Terminated, s.State())
	require.ErrorIs(t, s.Err(), ErrProtocol)
	require.False(t, pos.Valid(), "handles must not outlive a reset catalog")

	require.NotPanics(t, func() {
		require.False(t, s.BufferWrite(pos, WholeBuffer, 0, []byte{1, 2, 3, 4}))
		require.False(t, s.BufferStagedUpload(pos, WholeBuffer, make([]byte, 16)))
	})
}

func TestHostDyingMidTickIsNoticedOnTimeout(t *testing.T) {
	h := &scriptedHost{packets: [][]byte{establishment(t)}, takeLast: true}
	s := openScripted(t, h)

	start := time.Now()
	require.Equal(t, TickTerminated, s.Tick())
	elapsed := time.Since(start)

	require.ErrorIs(t, s.Err(), ErrHostExited)
	require.Equal(t, int32(2), h.handovers.Load(), "host must have taken the tick's frame")
	require.GreaterOrEqual(t, elapsed, 25*time.Millisecond, "death is seen after a read-done timeout")
	require.Less(t, elapsed, time.Second)
}
