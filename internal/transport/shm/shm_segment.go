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

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// Memory layout constants
const (
	// Magic bytes for signal segment identification
	SignalMagic = "FLRSIG\x00\x00"

	// Current signal segment layout version
	SignalVersion = uint32(1)

	// Signal segment header size (aligned to 64 bytes)
	SignalHeaderSize = 64

	// Minimum arena capacity (one page)
	MinArenaSize = 4096

	// Default arena capacity expected by the host (1 GiB)
	DefaultArenaSize = 1 << 30

	// Arena offsets, including the end offset of an empty payload, are
	// carried as 32-bit values on the wire.
	MaxArenaSize = 1<<32 - MinArenaSize

	// signalSuffix names the companion signal segment of an arena.
	signalSuffix = ".sig"
)

// SignalHeader is the layout of the signal segment.
type SignalHeader struct {
	magic     [8]byte  // 0x00: "FLRSIG\0\0"
	version   uint32   // 0x08: layout version
	flags     uint32   // 0x0C: reserved flags
	arenaSize uint64   // 0x10: arena capacity in bytes
	writeDone uint32   // 0x18: client -> host turn signal (0 or 1)
	readDone  uint32   // 0x1C: host -> client turn signal (0 or 1)
	clientPID uint32   // 0x20: creating process ID
	hostPID   uint32   // 0x24: attached host process ID
	closed    uint32   // 0x28: client teardown flag
	pad       uint32   // 0x2C: padding
	reserved  [16]byte // 0x30-0x3F: reserved/padding to 64B
}

// Magic returns the magic bytes
func (h *SignalHeader) Magic() [8]byte {
	return h.magic
}

// SetMagic sets the magic bytes
func (h *SignalHeader) SetMagic(magic [8]byte) {
	h.magic = magic
}

// Version returns the layout version
func (h *SignalHeader) Version() uint32 {
	return atomic.LoadUint32(&h.version)
}

// SetVersion sets the layout version
func (h *SignalHeader) SetVersion(version uint32) {
	atomic.StoreUint32(&h.version, version)
}

// ArenaSize returns the arena capacity
func (h *SignalHeader) ArenaSize() uint64 {
	return atomic.LoadUint64(&h.arenaSize)
}

// SetArenaSize sets the arena capacity
func (h *SignalHeader) SetArenaSize(size uint64) {
	atomic.StoreUint64(&h.arenaSize, size)
}

// ClientPID returns the client process ID
func (h *SignalHeader) ClientPID() uint32 {
	return atomic.LoadUint32(&h.clientPID)
}

// SetClientPID sets the client process ID
func (h *SignalHeader) SetClientPID(pid uint32) {
	atomic.StoreUint32(&h.clientPID, pid)
}

// HostPID returns the host process ID
func (h *SignalHeader) HostPID() uint32 {
	return atomic.LoadUint32(&h.hostPID)
}

// SetHostPID sets the host process ID
func (h *SignalHeader) SetHostPID(pid uint32) {
	atomic.StoreUint32(&h.hostPID, pid)
}

// Closed returns the client teardown flag
func (h *SignalHeader) Closed() bool {
	return atomic.LoadUint32(&h.closed) != 0
}

// SetClosed sets the client teardown flag
func (h *SignalHeader) SetClosed(closed bool) {
	var val uint32
	if closed {
		val = 1
	}
	atomic.StoreUint32(&h.closed, val)
}

// word returns the futex word backing a signal.
func (h *SignalHeader) word(which Signal) *uint32 {
	if which == ReadDone {
		return &h.readDone
	}
	return &h.writeDone
}

// ValidateSignalHeader validates a signal header for consistency
func ValidateSignalHeader(h *SignalHeader) error {
	magic := h.Magic()
	if string(magic[:]) != SignalMagic {
		return fmt.Errorf("invalid magic bytes")
	}
	if h.Version() != SignalVersion {
		return fmt.Errorf("unsupported version %d, expected %d", h.Version(), SignalVersion)
	}
	if size := h.ArenaSize(); size < MinArenaSize || size > MaxArenaSize {
		return fmt.Errorf("arena size %d out of range [%d, %d]", size, MinArenaSize, uint64(MaxArenaSize))
	}
	return nil
}

// ValidateArenaSize checks that size can back an arena.
func ValidateArenaSize(size uint64) error {
	if size < MinArenaSize {
		return fmt.Errorf("arena size %d is below minimum %d", size, MinArenaSize)
	}
	if size > MaxArenaSize {
		return fmt.Errorf("arena size %d exceeds maximum %d", size, uint64(MaxArenaSize))
	}
	if size%MinArenaSize != 0 {
		return fmt.Errorf("arena size %d is not a multiple of %d", size, MinArenaSize)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("missing segment name")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("segment name %q must not contain path separators", name)
	}
	return nil
}

// generateSegmentPath generates the file path for a shared memory segment
func generateSegmentPath(name string) string {
	// Try /dev/shm first (preferred for shared memory on Linux)
	if isDevShmAvailable() {
		return filepath.Join("/dev/shm", name)
	}

	// Fallback to temporary directory
	return filepath.Join(os.TempDir(), name)
}

// isDevShmAvailable checks if /dev/shm is available
func isDevShmAvailable() bool {
	info, err := os.Stat("/dev/shm")
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Utility functions

// RemoveSegment removes the arena and signal segment files for name.
// It is used to clear objects left behind by a client that crashed.
func RemoveSegment(name string) error {
	var lastErr error
	removed := false
	for _, n := range []string{name, name + signalSuffix} {
		paths := []string{
			filepath.Join("/dev/shm", n),
			filepath.Join(os.TempDir(), n),
		}
		for _, path := range paths {
			if err := os.Remove(path); err == nil {
				removed = true
			} else if !os.IsNotExist(err) {
				lastErr = err
			}
		}
	}

	if lastErr != nil {
		return lastErr
	}
	if !removed {
		return os.ErrNotExist
	}
	return nil
}

// SegmentExists checks if an arena segment exists
func SegmentExists(name string) bool {
	paths := []string{
		filepath.Join("/dev/shm", name),
		filepath.Join(os.TempDir(), name),
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}
