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

// Package shm provides the shared-memory channel used to talk to a
// Fluorescence host process.
//
// A channel consists of two named segments: the arena, a fixed-size byte
// region whose layout is owned entirely by the IPC protocol, and a small
// signal segment holding the two binary turn-taking signals ("write-done"
// and "read-done"). Signals are 32-bit words waited on with shared futexes so
// that both processes can block on them without a supervisory channel.
//
// The client creates and unlinks both segments. The host only attaches to
// the existing objects by their agreed names.
package shm
