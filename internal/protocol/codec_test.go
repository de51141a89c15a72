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

package protocol

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestCommandRecordSizes(t *testing.T) {
	tests := []struct {
		cmd  Command
		want int
	}{
		{UintParam{}, 16},
		{PushConstants{}, 20},
		{Dispatch{}, 20},
		{BarrierRW{}, 8},
		{BufferWrite{}, 24},
		{BufferStagedUpload{}, 20},
		{UniformWrite{}, 16},
		{RunTask{}, 8},
	}
	for _, tt := range tests {
		if got := RecordSize(tt.cmd); got != tt.want {
			t.Errorf("RecordSize(%v) = %d, want %d", tt.cmd.Type(), got, tt.want)
		}
	}
}

func TestBufferWriteLayout(t *testing.T) {
	buf := make([]byte, 4096)
	e := NewEncoder(NewFrame(buf))
	if !e.Encode(BufferWrite{Buffer: 3, SubBuffer: 1, DstOffset: 16, Data: []byte{9, 8, 7, 6}}) {
		t.Fatal("Encode failed")
	}
	e.Finish()

	le := binary.LittleEndian
	want := []uint32{uint32(CmdBufferWrite), 3, 1, 4092, 16, 4, uint32(CmdFinish)}
	for i, w := range want {
		if got := le.Uint32(buf[4*i:]); got != w {
			t.Errorf("word %d = %d, want %d", i, got, w)
		}
	}
	if got := buf[4092:]; string(got) != "\x09\x08\x07\x06" {
		t.Errorf("payload = %v", got)
	}
}

func TestUintParamLayout(t *testing.T) {
	buf := make([]byte, 4096)
	e := NewEncoder(NewFrame(buf))
	e.Encode(UintParam{Name: "PARTICLE_COUNT", Value: 1000})
	e.Finish()

	le := binary.LittleEndian
	if tag := le.Uint32(buf[0:]); tag != uint32(CmdUintParam) {
		t.Fatalf("tag = %d", tag)
	}
	off, n, v := le.Uint32(buf[4:]), le.Uint32(buf[8:]), le.Uint32(buf[12:])
	if off != 4096-14 || n != 14 || v != 1000 {
		t.Fatalf("args = (%d, %d, %d)", off, n, v)
	}
	if got := string(buf[off : off+n]); got != "PARTICLE_COUNT" {
		t.Fatalf("name = %q", got)
	}
}

func TestCommandRoundTrip(t *testing.T) {
	cmds := []Command{
		UintParam{Name: "N", Value: 7},
		PushConstants{P0: 1, P1: 2, P2: 3, P3: 4},
		Dispatch{Shader: 2, GroupX: 64, GroupY: 1, GroupZ: 1},
		BarrierRW{Buffer: 5},
		BufferWrite{Buffer: 0, SubBuffer: 0xFFFFFFFF, DstOffset: 12, Data: []byte("hello")},
		BufferStagedUpload{Buffer: 1, SubBuffer: 0, Data: make([]byte, 33)},
		UniformWrite{DstOffset: 4, Data: []byte{1, 2, 3}},
		RunTask{Task: 9},
	}

	buf := make([]byte, 4096)
	e := NewEncoder(NewFrame(buf))
	for _, c := range cmds {
		if !e.Encode(c) {
			t.Fatalf("Encode(%v) failed", c.Type())
		}
	}
	e.Finish()

	got, err := ReadCommands(buf)
	if err != nil {
		t.Fatalf("ReadCommands: %v", err)
	}
	if diff := cmp.Diff(cmds, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func randomCommand(rng *rand.Rand) Command {
	data := func() []byte {
		b := make([]byte, rng.Intn(64))
		rng.Read(b)
		return b
	}
	switch rng.Intn(8) {
	case 0:
		return UintParam{Name: string(rune('a' + rng.Intn(26))), Value: rng.Uint32()}
	case 1:
		return PushConstants{P0: rng.Uint32(), P1: rng.Uint32(), P2: rng.Uint32(), P3: rng.Uint32()}
	case 2:
		return Dispatch{Shader: rng.Uint32(), GroupX: rng.Uint32(), GroupY: rng.Uint32(), GroupZ: rng.Uint32()}
	case 3:
		return BarrierRW{Buffer: rng.Uint32()}
	case 4:
		return BufferWrite{Buffer: rng.Uint32(), SubBuffer: rng.Uint32(), DstOffset: rng.Uint32(), Data: data()}
	case 5:
		return BufferStagedUpload{Buffer: rng.Uint32(), SubBuffer: rng.Uint32(), Data: data()}
	case 6:
		return UniformWrite{DstOffset: rng.Uint32(), Data: data()}
	default:
		return RunTask{Task: rng.Uint32()}
	}
}

// Every command accepted before the first overflow must decode back in order.
func TestRandomRoundTrip(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		buf := make([]byte, 4096)
		f := NewFrame(buf)
		e := NewEncoder(f)

		var want []Command
		for !f.Failed() {
			c := randomCommand(rng)
			if e.Encode(c) {
				want = append(want, c)
			}
		}
		e.Finish()

		got, err := ReadCommands(buf)
		if err != nil {
			t.Fatalf("seed %d: ReadCommands: %v", seed, err)
		}
		if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("seed %d: mismatch (-want +got):\n%s", seed, diff)
		}
	}
}

func TestReadCommandsRejectsUnknownTag(t *testing.T) {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint32(buf, 99)
	_, err := ReadCommands(buf)
	if err == nil {
		t.Fatal("ReadCommands accepted unknown tag")
	}
}
