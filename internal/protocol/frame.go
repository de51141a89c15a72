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

// Frame sub-allocates one tick's command list out of the arena. Command
// records grow from offset 0 upward; payloads grow from the end downward.
//
// The allocator is fail-soft: the first request that would make the two
// regions collide sets a sticky failure flag, and every later request in the
// same frame is refused. Reset starts a new frame and clears the flag.
//
// FinishSize bytes are always held back so a frame can be terminated even
// after it has overflowed.
type Frame struct {
	buf    []byte
	cmd    int // next free command byte
	data   int // first used payload byte
	failed bool
	closed bool // FINISH written

	// OnOverflow, if set, runs once per frame when the failure flag is
	// first raised.
	OnOverflow func()
}

// NewFrame returns a frame over buf. buf must hold at least FinishSize bytes.
func NewFrame(buf []byte) *Frame {
	if len(buf) < FinishSize {
		panic("protocol: frame buffer smaller than a FINISH record")
	}
	f := &Frame{buf: buf}
	f.Reset()
	return f
}

// Reset starts a new frame.
func (f *Frame) Reset() {
	f.cmd = 0
	f.data = len(f.buf)
	f.failed = false
	f.closed = false
}

func (f *Frame) Failed() bool { return f.failed }

// Cursors returns the command and payload cursors.
func (f *Frame) Cursors() (cmd, data int) { return f.cmd, f.data }

// Capacity is the arena size.
func (f *Frame) Capacity() int { return len(f.buf) }

// Used returns the bytes consumed so far by commands and by payloads.
func (f *Frame) Used() (cmdBytes, payloadBytes int) {
	return f.cmd, len(f.buf) - f.data
}

// Bytes returns the backing arena.
func (f *Frame) Bytes() []byte { return f.buf }

func (f *Frame) fail() {
	if f.failed {
		return
	}
	f.failed = true
	if f.OnOverflow != nil {
		f.OnOverflow()
	}
}

// fits reports whether cmdLen command bytes and payloadLen payload bytes can
// be taken together while leaving room for FINISH.
func (f *Frame) fits(cmdLen, payloadLen int) bool {
	if cmdLen < 0 || payloadLen < 0 {
		return false
	}
	return f.data-f.cmd-FinishSize >= cmdLen+payloadLen
}

// AllocCommand reserves n bytes at the command cursor.
func (f *Frame) AllocCommand(n int) (int, bool) {
	off, _, ok := f.Reserve(n, 0)
	return off, ok
}

// AllocPayload reserves n bytes ending at the payload cursor.
func (f *Frame) AllocPayload(n int) (int, bool) {
	_, off, ok := f.Reserve(0, n)
	return off, ok
}

// Reserve takes a command record and its payload in one step. Either both
// are reserved or neither is, in which case the frame is marked failed.
func (f *Frame) Reserve(cmdLen, payloadLen int) (cmdOff, dataOff int, ok bool) {
	if f.failed || f.closed {
		return 0, 0, false
	}
	if !f.fits(cmdLen, payloadLen) {
		f.fail()
		return 0, 0, false
	}
	cmdOff = f.cmd
	f.cmd += cmdLen
	f.data -= payloadLen
	return cmdOff, f.data, true
}

// Closed reports whether the frame has been terminated.
func (f *Frame) Closed() bool { return f.closed }

// finish writes the terminating FINISH record into the held-back space.
// Later requests are refused until Reset.
func (f *Frame) finish() {
	if f.closed {
		return
	}
	f.closed = true
	putU32(f.buf[f.cmd:], uint32(CmdFinish))
	f.cmd += FinishSize
}
