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
	"fmt"

	"github.com/nithinp7/Fluorescence/internal/catalog"
	"github.com/nithinp7/Fluorescence/internal/protocol"
)

// WholeBuffer is the sub-buffer index that addresses an entire buffer.
const WholeBuffer = catalog.WholeBuffer

// encode appends c to the current frame.
//
// Every command method validates its arguments first and panics on misuse,
// such as an invalid handle or a write outside the buffer. Only then does it
// allocate. It returns false when the command was dropped, either because
// the frame overflowed or because the session is no longer running.
func (s *Session) encode(c protocol.Command) bool {
	if s.State() != Running {
		return false
	}
	return s.enc.Encode(c)
}

func (s *Session) PushConstants(p0, p1, p2, p3 uint32) bool {
	return s.encode(protocol.PushConstants{P0: p0, P1: p1, P2: p2, P3: p3})
}

func (s *Session) Dispatch(h ComputeShaderHandle, groupX, groupY, groupZ uint32) bool {
	idx := h.index(catalog.ClassComputeShader)
	return s.encode(protocol.Dispatch{Shader: idx, GroupX: groupX, GroupY: groupY, GroupZ: groupZ})
}

func (s *Session) BarrierRW(h BufferHandle) bool {
	return s.encode(protocol.BarrierRW{Buffer: h.index(catalog.ClassBuffer)})
}

// BufferWrite copies data into the buffer at dstOffset. The buffer must be
// cpu-accessible and the write must lie inside it.
func (s *Session) BufferWrite(h BufferHandle, subBuffer, dstOffset uint32, data []byte) bool {
	if s.State() != Running {
		return false
	}
	idx := h.index(catalog.ClassBuffer)
	b := s.cat.Buffer(idx)
	s.checkSubBuffer(b, subBuffer)
	if !b.CPUAccessible {
		panic(fmt.Sprintf("flr: BufferWrite to buffer %q, which is not cpu-accessible", s.name(b.Name)))
	}
	if uint64(dstOffset)+uint64(len(data)) > uint64(b.ByteSize) {
		panic(fmt.Sprintf("flr: BufferWrite of %d bytes at offset %d overruns buffer %q of %d bytes",
			len(data), dstOffset, s.name(b.Name), b.ByteSize))
	}
	return s.encode(protocol.BufferWrite{Buffer: idx, SubBuffer: subBuffer, DstOffset: dstOffset, Data: data})
}

// BufferStagedUpload replaces the whole buffer. data must be exactly the
// buffer's size.
func (s *Session) BufferStagedUpload(h BufferHandle, subBuffer uint32, data []byte) bool {
	if s.State() != Running {
		return false
	}
	idx := h.index(catalog.ClassBuffer)
	b := s.cat.Buffer(idx)
	s.checkSubBuffer(b, subBuffer)
	if uint64(len(data)) != uint64(b.ByteSize) {
		panic(fmt.Sprintf("flr: BufferStagedUpload of %d bytes to buffer %q of %d bytes",
			len(data), s.name(b.Name), b.ByteSize))
	}
	return s.encode(protocol.BufferStagedUpload{Buffer: idx, SubBuffer: subBuffer, Data: data})
}

func (s *Session) UniformWrite(dstOffset uint32, data []byte) bool {
	return s.encode(protocol.UniformWrite{DstOffset: dstOffset, Data: data})
}

func (s *Session) RunTask(h TaskHandle) bool {
	return s.encode(protocol.RunTask{Task: h.index(catalog.ClassTask)})
}

func (s *Session) checkSubBuffer(b catalog.Buffer, sub uint32) {
	if !b.ValidSubBuffer(sub) {
		panic(fmt.Sprintf("flr: sub-buffer %d out of range for buffer %q with %d sub-buffers",
			sub, s.name(b.Name), b.SubBufferCount))
	}
}

func (s *Session) name(id catalog.NameID) string { return s.cat.Names().Name(id) }
