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
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nithinp7/Fluorescence/internal/catalog"
)

// ErrPacketFull is returned by MessageWriter.Finish when the packet did not
// fit in the arena.
var ErrPacketFull = errors.New("protocol: message packet exceeds arena")

// MessageWriter builds a host packet. Records go to the front of the arena;
// UI_UPDATE contents are stored at the back and referenced by offset.
//
// Errors are sticky and reported by Finish.
type MessageWriter struct {
	buf  []byte
	off  int
	tail int
	err  error
}

// NewMessageWriter starts a packet over buf. Nothing is written until the
// first call.
func NewMessageWriter(buf []byte) *MessageWriter {
	return &MessageWriter{buf: buf, tail: len(buf)}
}

func (w *MessageWriter) room(n int) bool {
	if w.err != nil {
		return false
	}
	// Leave space for the closing FINISH.
	if w.tail-w.off-tagSize < n {
		w.err = ErrPacketFull
		return false
	}
	return true
}

func (w *MessageWriter) u32(vs ...uint32) {
	if !w.room(4 * len(vs)) {
		return
	}
	putU32s(w.buf[w.off:], vs...)
	w.off += 4 * len(vs)
}

func (w *MessageWriter) name(s string) {
	if w.err != nil {
		return
	}
	if len(s)+1 > MaxNameLen || strings.IndexByte(s, 0) >= 0 {
		w.err = fmt.Errorf("protocol: invalid name %q", s)
		return
	}
	if !w.room(len(s) + 1) {
		return
	}
	w.off += copy(w.buf[w.off:], s)
	w.buf[w.off] = 0
	w.off++
}

// Greet opens a normal packet.
func (w *MessageWriter) Greet() { w.u32(uint32(MsgGreet)) }

// Failed opens, and completes, a startup failure packet.
func (w *MessageWriter) Failed() { w.u32(uint32(MsgFailed)) }

func (w *MessageWriter) Buffer(b catalog.Buffer, name string) {
	var cpu uint32
	if b.CPUAccessible {
		cpu = 1
	}
	w.u32(uint32(MsgBuffer), b.Index, b.ByteSize, b.SubBufferCount, cpu)
	w.name(name)
}

// UIStateSize declares the size of the UI state buffer.
func (w *MessageWriter) UIStateSize(n uint32) {
	w.u32(uint32(MsgUI), uiSizeKind, n)
}

func (w *MessageWriter) UIElement(kind catalog.UIKind, offset uint32, name string) {
	w.u32(uint32(MsgUI), uint32(kind), offset)
	w.name(name)
}

// UIUpdate stores state at the back of the arena and emits a record pointing
// at it.
func (w *MessageWriter) UIUpdate(state []byte) {
	if !w.room(12 + len(state)) {
		return
	}
	w.tail -= len(state)
	copy(w.buf[w.tail:], state)
	w.u32(uint32(MsgUIUpdate), uint32(w.tail), uint32(len(state)))
}

func (w *MessageWriter) ComputeShader(index uint32, name string) {
	w.u32(uint32(MsgComputeShader), index)
	w.name(name)
}

func (w *MessageWriter) Task(index uint32, name string) {
	w.u32(uint32(MsgTask), index)
	w.name(name)
}

func (w *MessageWriter) constant(kind catalog.ConstKind, bits uint32, name string) {
	w.u32(uint32(MsgConst))
	if !w.room(5) {
		return
	}
	w.buf[w.off] = byte(kind)
	putU32(w.buf[w.off+1:], bits)
	w.off += 5
	w.name(name)
}

func (w *MessageWriter) ConstInt(name string, v int32) {
	w.constant(catalog.ConstInt, uint32(v), name)
}

func (w *MessageWriter) ConstUint(name string, v uint32) {
	w.constant(catalog.ConstUint, v, name)
}

func (w *MessageWriter) ConstFloat(name string, v float32) {
	w.constant(catalog.ConstFloat, math.Float32bits(v), name)
}

func (w *MessageWriter) Reinit() { w.u32(uint32(MsgReinit)) }

// Finish closes the packet with FINISH and returns the first error seen.
func (w *MessageWriter) Finish() error {
	if w.err != nil {
		return w.err
	}
	putU32(w.buf[w.off:], uint32(MsgFinish))
	w.off += tagSize
	return nil
}

// Err returns the sticky error, if any.
func (w *MessageWriter) Err() error { return w.err }
