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
	"bytes"
	"testing"
)

func TestFrameReset(t *testing.T) {
	f := NewFrame(make([]byte, 256))
	if c, d := f.Cursors(); c != 0 || d != 256 {
		t.Fatalf("cursors = (%d, %d), want (0, 256)", c, d)
	}

	e := NewEncoder(f)
	e.Encode(UniformWrite{DstOffset: 0, Data: make([]byte, 16)})
	if c, d := f.Cursors(); c != 16 || d != 240 {
		t.Fatalf("cursors = (%d, %d), want (16, 240)", c, d)
	}

	f.Reset()
	if c, d := f.Cursors(); c != 0 || d != 256 || f.Failed() || f.Closed() {
		t.Fatalf("after Reset: cursors (%d, %d) failed=%v closed=%v", c, d, f.Failed(), f.Closed())
	}
}

func TestFrameOverflowIsStickyAndFiresOnce(t *testing.T) {
	f := NewFrame(make([]byte, 64))
	overflows := 0
	f.OnOverflow = func() { overflows++ }
	e := NewEncoder(f)

	// 60 usable bytes after the FINISH reservation: seven 8-byte records.
	accepted := 0
	for i := 0; i < 20; i++ {
		if e.Encode(RunTask{Task: uint32(i)}) {
			accepted++
		}
	}
	if accepted != 7 {
		t.Fatalf("accepted %d records, want 7", accepted)
	}
	if !f.Failed() {
		t.Fatal("Failed() = false after overflow")
	}
	if overflows != 1 {
		t.Fatalf("OnOverflow ran %d times, want 1", overflows)
	}

	// A record that would fit is still refused for the rest of the frame.
	f2c, _ := f.Cursors()
	if e.Encode(BarrierRW{}) {
		t.Fatal("Encode succeeded after overflow")
	}
	if c, _ := f.Cursors(); c != f2c {
		t.Fatalf("command cursor moved after overflow: %d -> %d", f2c, c)
	}

	// The list is still terminated.
	if used := e.Finish(); used != 60 {
		t.Fatalf("Finish() used = %d, want 60", used)
	}
	cmds, err := ReadCommands(f.Bytes())
	if err != nil {
		t.Fatalf("ReadCommands: %v", err)
	}
	if len(cmds) != 7 {
		t.Fatalf("decoded %d commands, want 7", len(cmds))
	}

	f.Reset()
	if f.Failed() {
		t.Fatal("Failed() = true after Reset")
	}
	if !e.Encode(RunTask{}) {
		t.Fatal("Encode refused after Reset")
	}
	if overflows != 1 {
		t.Fatalf("OnOverflow ran %d times, want 1", overflows)
	}
}

func TestFrameReserveIsAllOrNothing(t *testing.T) {
	buf := make([]byte, 64)
	f := NewFrame(buf)
	e := NewEncoder(f)

	// 24-byte record + 40-byte payload exceeds the 60 usable bytes.
	if e.Encode(BufferWrite{Buffer: 1, Data: bytes.Repeat([]byte{0xAB}, 40)}) {
		t.Fatal("oversized BufferWrite accepted")
	}
	if c, d := f.Cursors(); c != 0 || d != 64 {
		t.Fatalf("cursors moved on failed reserve: (%d, %d)", c, d)
	}
	if !bytes.Equal(buf, make([]byte, 64)) {
		t.Fatal("failed reserve wrote into the arena")
	}
}

func TestFramePayloadGrowsBackward(t *testing.T) {
	f := NewFrame(make([]byte, 128))
	e := NewEncoder(f)

	e.Encode(UniformWrite{Data: []byte{1, 2, 3, 4}})
	e.Encode(UniformWrite{Data: []byte{5, 6}})

	_, d := f.Cursors()
	if d != 122 {
		t.Fatalf("data cursor = %d, want 122", d)
	}
	if got := f.Bytes()[122:128]; !bytes.Equal(got, []byte{5, 6, 1, 2, 3, 4}) {
		t.Fatalf("payload region = %v", got)
	}
}

func TestFrameAllocators(t *testing.T) {
	f := NewFrame(make([]byte, 32))

	off, ok := f.AllocCommand(8)
	if !ok || off != 0 {
		t.Fatalf("AllocCommand = (%d, %v)", off, ok)
	}
	off, ok = f.AllocPayload(8)
	if !ok || off != 24 {
		t.Fatalf("AllocPayload = (%d, %v)", off, ok)
	}
	// 16 bytes remain, 4 held for FINISH.
	if _, ok := f.AllocPayload(13); ok {
		t.Fatal("AllocPayload(13) succeeded with 12 usable bytes")
	}
	if _, ok := f.AllocCommand(1); ok {
		t.Fatal("AllocCommand succeeded on a failed frame")
	}
}

func TestFrameClosedRefusesWrites(t *testing.T) {
	f := NewFrame(make([]byte, 64))
	e := NewEncoder(f)
	e.Finish()
	if e.Encode(RunTask{}) {
		t.Fatal("Encode succeeded after Finish")
	}
	if f.Failed() {
		t.Fatal("writes after Finish must not count as overflow")
	}
	if used := e.Finish(); used != FinishSize {
		t.Fatalf("second Finish used = %d, want %d", used, FinishSize)
	}
}
