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
)

var (
	// ErrProtocol matches every *Error.
	ErrProtocol = errors.New("protocol error")
	// ErrHostFailed is returned when a packet opens with MsgFailed.
	ErrHostFailed = errors.New("host reported failure")
)

// Error describes a framing violation. The two sides have desynchronized
// and the session cannot continue.
type Error struct {
	Offset int    // arena offset where the violation was detected
	Tag    uint32 // record tag being decoded
	Reason string
	Err    error // underlying cause, if any
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("protocol error at offset %d (tag %#x): %s", e.Offset, e.Tag, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool { return target == ErrProtocol }

func (e *Error) Unwrap() error { return e.Err }
