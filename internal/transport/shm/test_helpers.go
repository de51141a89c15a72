//go:build linux

/*
 * Copyright 2024 gRPC authors.
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
 */

package shm

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// createTestChannel creates a channel with a unique name and proper cleanup.
// It registers cleanup with t.Cleanup() so the segments are removed even if
// the test fails or panics.
func createTestChannel(t *testing.T, baseName string, size uint64) *Channel {
	t.Helper()

	name := testChannelName(t, baseName)

	// Ensure any existing segment is removed first
	RemoveSegment(name)

	ch, err := Open(name, size)
	if err != nil {
		t.Fatalf("Failed to open test channel %s: %v", name, err)
	}

	t.Cleanup(func() {
		ch.Close()
		RemoveSegment(name)
	})

	return ch
}

// testChannelName returns a segment name unique to this test run.
func testChannelName(t *testing.T, baseName string) string {
	return fmt.Sprintf("%s-%s-%d", baseName, strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
}
