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
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// reader walks records front to back. Every read is bounds checked against
// the arena.
type reader struct {
	b   []byte
	off int
	tag uint32 // tag of the record being decoded, for errors
}

func (r *reader) fail(reason string, err error) *Error {
	return &Error{Offset: r.off, Tag: r.tag, Reason: reason, Err: err}
}

func (r *reader) u32() (uint32, error) {
	if r.off < 0 || len(r.b)-r.off < 4 {
		return 0, r.fail("record runs past end of arena", nil)
	}
	v := binary.LittleEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) f32() (float32, error) {
	v, err := r.u32()
	return math.Float32frombits(v), err
}

func (r *reader) u8() (byte, error) {
	if r.off < 0 || r.off >= len(r.b) {
		return 0, r.fail("record runs past end of arena", nil)
	}
	v := r.b[r.off]
	r.off++
	return v, nil
}

// cstring reads a NUL-terminated name. The terminator must appear within
// MaxNameLen bytes of the start.
func (r *reader) cstring() (string, error) {
	end := r.off + MaxNameLen
	if end > len(r.b) {
		end = len(r.b)
	}
	if r.off >= end {
		return "", r.fail("name runs past end of arena", nil)
	}
	n := bytes.IndexByte(r.b[r.off:end], 0)
	if n < 0 {
		return "", r.fail("name not terminated within bound", nil)
	}
	s := r.b[r.off : r.off+n]
	if !utf8.Valid(s) {
		return "", r.fail("name is not valid UTF-8", nil)
	}
	r.off += n + 1
	return string(s), nil
}

// span returns arena[off:off+n], checking bounds.
func (r *reader) span(off, n uint32) ([]byte, error) {
	end := uint64(off) + uint64(n)
	if end > uint64(len(r.b)) {
		return nil, r.fail("span runs past end of arena", nil)
	}
	return r.b[off:end], nil
}
