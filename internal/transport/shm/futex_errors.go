/*
 *
 * Copyright 2025 gRPC authors.
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

package shm

import "errors"

var (
	// ErrFutexTimeout is returned by futexWait when the wait times out.
	ErrFutexTimeout = errors.New("futex timeout")

	// ErrSegmentExists is returned by Open when a segment with the same name
	// is already present. Only one client may own a channel name at a time.
	ErrSegmentExists = errors.New("shm: segment already exists")

	// ErrChannelClosed is returned by operations on a closed channel.
	ErrChannelClosed = errors.New("shm: channel closed")
)
