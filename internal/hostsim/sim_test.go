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

package hostsim

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nithinp7/Fluorescence/internal/catalog"
	"github.com/nithinp7/Fluorescence/internal/protocol"
	"github.com/nithinp7/Fluorescence/internal/transport/shm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testProject() *Project {
	return &Project{
		Buffers:        []BufferSpec{{Name: "posBuf", Size: 16, Count: 1, CPU: true}},
		ComputeShaders: []string{"integrate"},
		Tasks:          []string{"update"},
		UI: []UISpec{
			{Name: "iterations", Kind: "uint", Offset: 0, Value: 4},
			{Name: "dt", Kind: "float", Offset: 4, Value: 0.5},
		},
		Constants: []ConstSpec{{Name: "N", Kind: "uint", Value: 16}},
	}
}

// rawClient plays the client side directly on the channel.
type rawClient struct {
	t   *testing.T
	ch  *shm.Channel
	f   *protocol.Frame
	enc *protocol.Encoder
	cat *catalog.Catalog
}

func newRawClient(t *testing.T) *rawClient {
	t.Helper()
	ch, err := shm.Open("hostsim-"+uuid.NewString(), 64*1024)
	require.NoError(t, err)
	t.Cleanup(func() { ch.Close() })
	f := protocol.NewFrame(ch.Arena())
	return &rawClient{t: t, ch: ch, f: f, enc: protocol.NewEncoder(f), cat: catalog.New(nil)}
}

// roundTrip hands the current frame to the host and waits for its packet.
func (c *rawClient) roundTrip() {
	c.t.Helper()
	c.enc.Finish()
	c.f.Reset()
	require.NoError(c.t, c.ch.Signal(shm.WriteDone))
	res, err := c.ch.Wait(shm.ReadDone, 5*time.Second)
	require.NoError(c.t, err)
	require.Equal(c.t, shm.Signaled, res)
}

func startSim(t *testing.T, c *rawClient, p *Project) *Sim {
	t.Helper()
	s, err := Start(context.Background(), c.ch.Name(), p, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Kill()
		s.Join()
	})
	return s
}

func TestEstablishmentAndTicks(t *testing.T) {
	c := newRawClient(t)
	s := startSim(t, c, testProject())

	c.enc.Encode(protocol.UintParam{Name: "COUNT", Value: 3})
	c.roundTrip()
	require.NoError(t, protocol.ParseEstablishment(c.ch.Arena(), c.cat))
	require.Equal(t, []protocol.UintParam{{Name: "COUNT", Value: 3}}, s.Params())

	i, ok := c.cat.FindBuffer("posBuf")
	require.True(t, ok)
	require.Equal(t, uint32(0), i)
	require.Equal(t, uint32(16), c.cat.ConstUint("N"))
	v, ok := c.cat.UIWord(0)
	require.True(t, ok)
	require.Equal(t, uint32(4), v, "initial UI state is sent with the establishment")

	c.enc.Encode(protocol.BufferWrite{Buffer: 0, SubBuffer: catalog.WholeBuffer, DstOffset: 4, Data: []byte{1, 2, 3, 4}})
	c.enc.Encode(protocol.RunTask{Task: 0})
	require.NoError(t, s.SetUIValue("iterations", 9))
	c.roundTrip()

	reinit, err := protocol.ParseUpdate(c.ch.Arena(), c.cat)
	require.NoError(t, err)
	require.False(t, reinit)
	v, _ = c.cat.UIWord(0)
	require.Equal(t, uint32(9), v)

	buf, ok := s.BufferContents("posBuf")
	require.True(t, ok)
	require.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 4, 0, 0, 0, 0, 0, 0, 0, 0}, buf)
	require.Equal(t, 1, s.Ticks())
	require.Len(t, s.Frames(), 1)
	require.Len(t, s.Frames()[0], 2)
}

func TestFailStartup(t *testing.T) {
	c := newRawClient(t)
	p := testProject()
	p.Behavior.FailStartup = true
	s := startSim(t, c, p)

	c.roundTrip()
	require.ErrorIs(t, protocol.ParseEstablishment(c.ch.Arena(), c.cat), protocol.ErrHostFailed)

	require.Eventually(t, func() bool { return !s.Alive() }, 5*time.Second, 10*time.Millisecond)
}

func TestReinitAlternatesProjects(t *testing.T) {
	c := newRawClient(t)
	p := testProject()
	p.Behavior.ReinitEvery = 2
	p.ReinitProject = &Project{
		Buffers: []BufferSpec{
			{Name: "extra", Size: 8, Count: 1},
			{Name: "posBuf", Size: 16, Count: 1, CPU: true},
		},
	}
	startSim(t, c, p)

	c.roundTrip()
	require.NoError(t, protocol.ParseEstablishment(c.ch.Arena(), c.cat))

	c.roundTrip()
	reinit, err := protocol.ParseUpdate(c.ch.Arena(), c.cat)
	require.NoError(t, err)
	require.False(t, reinit)

	c.roundTrip()
	reinit, err = protocol.ParseUpdate(c.ch.Arena(), c.cat)
	require.NoError(t, err)
	require.True(t, reinit)
	i, ok := c.cat.FindBuffer("posBuf")
	require.True(t, ok)
	require.Equal(t, uint32(1), i)
}

func TestExitAfterTicks(t *testing.T) {
	c := newRawClient(t)
	p := testProject()
	p.Behavior.ExitAfterTicks = 1
	s := startSim(t, c, p)

	c.roundTrip()
	c.roundTrip()
	require.Eventually(t, func() bool { return !s.Alive() }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Join())
}

func TestClientCloseStopsHost(t *testing.T) {
	c := newRawClient(t)
	s := startSim(t, c, testProject())

	c.roundTrip()
	c.ch.MarkClosed()
	require.NoError(t, c.ch.Signal(shm.WriteDone))

	require.Eventually(t, func() bool { return !s.Alive() }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Join())
}

func TestKillStopsWaitingHost(t *testing.T) {
	c := newRawClient(t)
	s := startSim(t, c, testProject())

	require.True(t, s.Alive())
	require.NoError(t, s.Kill())
	require.ErrorIs(t, s.Join(), context.Canceled)
}

func TestLoadProject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
buffers:
  - {name: posBuf, size: 1024, count: 1, cpu: true}
compute_shaders: [integrate]
ui:
  - {name: dt, kind: float, offset: 8, value: 0.25}
constants:
  - {name: G, kind: float, value: 9.8}
behavior:
  reinit_every: 3
`), 0o644))

	p, err := LoadProject(path)
	require.NoError(t, err)
	require.Equal(t, uint32(12), p.UIStateSize())
	require.Equal(t, 3, p.Behavior.ReinitEvery)

	require.NoError(t, os.WriteFile(path, []byte("ui:\n  - {name: x, kind: dial}\n"), 0o644))
	_, err = LoadProject(path)
	require.Error(t, err)
}

func TestParseArgs(t *testing.T) {
	p, ok := parseArgs([]string{"proj.yaml", "-ipc"})
	require.True(t, ok)
	require.Equal(t, "proj.yaml", p)

	_, ok = parseArgs([]string{"proj.yaml"})
	require.False(t, ok)
	_, ok = parseArgs([]string{"a", "b", "-ipc"})
	require.False(t, ok)
}
