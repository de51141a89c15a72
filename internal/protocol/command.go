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

import "encoding/binary"

// Command is one client command record. The concrete types below are the
// complete set; each knows its own argument layout.
type Command interface {
	Type() CmdType
	// argsLen is the fixed record size after the tag.
	argsLen() int
	// payload is the variable-length data stored at the back of the arena.
	payload() []byte
	// putArgs writes the arguments into b. dataOffset is the arena offset of
	// the payload, if the command has one.
	putArgs(b []byte, dataOffset uint32)
}

// RecordSize returns the size of c's command record, tag included.
func RecordSize(c Command) int { return tagSize + c.argsLen() }

// UintParam sets a named startup parameter. The name is a length-prefixed
// payload, not NUL-terminated.
type UintParam struct {
	Name  string
	Value uint32
}

func (UintParam) Type() CmdType     { return CmdUintParam }
func (UintParam) argsLen() int      { return 12 }
func (c UintParam) payload() []byte { return []byte(c.Name) }
func (c UintParam) putArgs(b []byte, dataOffset uint32) {
	putU32s(b, dataOffset, uint32(len(c.Name)), c.Value)
}

type PushConstants struct {
	P0, P1, P2, P3 uint32
}

func (PushConstants) Type() CmdType   { return CmdPushConstants }
func (PushConstants) argsLen() int    { return 16 }
func (PushConstants) payload() []byte { return nil }
func (c PushConstants) putArgs(b []byte, _ uint32) {
	putU32s(b, c.P0, c.P1, c.P2, c.P3)
}

type Dispatch struct {
	Shader                 uint32
	GroupX, GroupY, GroupZ uint32
}

func (Dispatch) Type() CmdType   { return CmdDispatch }
func (Dispatch) argsLen() int    { return 16 }
func (Dispatch) payload() []byte { return nil }
func (c Dispatch) putArgs(b []byte, _ uint32) {
	putU32s(b, c.Shader, c.GroupX, c.GroupY, c.GroupZ)
}

type BarrierRW struct {
	Buffer uint32
}

func (BarrierRW) Type() CmdType   { return CmdBarrierRW }
func (BarrierRW) argsLen() int    { return 4 }
func (BarrierRW) payload() []byte { return nil }
func (c BarrierRW) putArgs(b []byte, _ uint32) {
	putU32s(b, c.Buffer)
}

// BufferWrite copies Data into a cpu-accessible buffer at DstOffset.
type BufferWrite struct {
	Buffer    uint32
	SubBuffer uint32
	DstOffset uint32
	Data      []byte
}

func (BufferWrite) Type() CmdType     { return CmdBufferWrite }
func (BufferWrite) argsLen() int      { return 20 }
func (c BufferWrite) payload() []byte { return c.Data }
func (c BufferWrite) putArgs(b []byte, dataOffset uint32) {
	putU32s(b, c.Buffer, c.SubBuffer, dataOffset, c.DstOffset, uint32(len(c.Data)))
}

// BufferStagedUpload replaces the full contents of a buffer through a
// staging copy.
type BufferStagedUpload struct {
	Buffer    uint32
	SubBuffer uint32
	Data      []byte
}

func (BufferStagedUpload) Type() CmdType     { return CmdBufferStagedUpload }
func (BufferStagedUpload) argsLen() int      { return 16 }
func (c BufferStagedUpload) payload() []byte { return c.Data }
func (c BufferStagedUpload) putArgs(b []byte, dataOffset uint32) {
	putU32s(b, c.Buffer, c.SubBuffer, dataOffset, uint32(len(c.Data)))
}

type UniformWrite struct {
	DstOffset uint32
	Data      []byte
}

func (UniformWrite) Type() CmdType     { return CmdUniformWrite }
func (UniformWrite) argsLen() int      { return 12 }
func (c UniformWrite) payload() []byte { return c.Data }
func (c UniformWrite) putArgs(b []byte, dataOffset uint32) {
	putU32s(b, dataOffset, c.DstOffset, uint32(len(c.Data)))
}

type RunTask struct {
	Task uint32
}

func (RunTask) Type() CmdType   { return CmdRunTask }
func (RunTask) argsLen() int    { return 4 }
func (RunTask) payload() []byte { return nil }
func (c RunTask) putArgs(b []byte, _ uint32) {
	putU32s(b, c.Task)
}

func putU32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

func putU32s(b []byte, vs ...uint32) {
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[4*i:], v)
	}
}

// Encoder writes commands into a Frame.
type Encoder struct {
	f *Frame
}

func NewEncoder(f *Frame) *Encoder { return &Encoder{f: f} }

func (e *Encoder) Frame() *Frame { return e.f }

// Encode appends c to the frame. It returns false, writing nothing, when the
// frame has no room for the record and its payload.
func (e *Encoder) Encode(c Command) bool {
	p := c.payload()
	n := RecordSize(c)
	cmdOff, dataOff, ok := e.f.Reserve(n, len(p))
	if !ok {
		return false
	}
	b := e.f.buf
	putU32(b[cmdOff:], uint32(c.Type()))
	c.putArgs(b[cmdOff+tagSize:cmdOff+n], uint32(dataOff))
	copy(b[dataOff:], p)
	return true
}

// Finish terminates the command list. It always succeeds, overflowed or
// not, and returns the total bytes the frame used.
func (e *Encoder) Finish() int {
	e.f.finish()
	c, p := e.f.Used()
	return c + p
}
