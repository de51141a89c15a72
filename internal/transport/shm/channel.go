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

package shm

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

// Signal identifies one of the two turn-taking signals of a channel.
type Signal int

const (
	// WriteDone is raised by the client once a command frame is complete.
	WriteDone Signal = iota
	// ReadDone is raised by the host once it consumed the frame and wrote
	// its reply packet.
	ReadDone
)

func (s Signal) String() string {
	switch s {
	case WriteDone:
		return "write-done"
	case ReadDone:
		return "read-done"
	}
	return fmt.Sprintf("Signal(%d)", int(s))
}

// WaitResult is the outcome of Channel.Wait.
type WaitResult int

const (
	Signaled WaitResult = iota
	TimedOut
)

func (r WaitResult) String() string {
	if r == Signaled {
		return "signaled"
	}
	return "timed-out"
}

// Channel is a mapped arena plus its signal pair.
//
// A Channel does no locking of its own. Ownership of the arena contents
// passes between the two processes exactly when a signal is raised.
type Channel struct {
	name      string
	arenaPath string
	sigPath   string
	arenaFile *os.File
	sigFile   *os.File
	arena     []byte
	sigMem    []byte
	hdr       *SignalHeader
	owner     bool // true for the creating (client) side

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// Open creates a new channel called name with an arena of size bytes. It
// fails with ErrSegmentExists if either segment is already present.
func Open(name string, size uint64) (*Channel, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := ValidateArenaSize(size); err != nil {
		return nil, err
	}

	arenaPath := generateSegmentPath(name)
	sigPath := generateSegmentPath(name + signalSuffix)

	arenaFile, arena, err := createSegment(arenaPath, size)
	if err != nil {
		return nil, fmt.Errorf("create arena: %w", err)
	}
	sigFile, sigMem, err := createSegment(sigPath, SignalHeaderSize)
	if err != nil {
		munmap(arena)
		arenaFile.Close()
		os.Remove(arenaPath)
		return nil, fmt.Errorf("create signals: %w", err)
	}

	c := &Channel{
		name:      name,
		arenaPath: arenaPath,
		sigPath:   sigPath,
		arenaFile: arenaFile,
		sigFile:   sigFile,
		arena:     arena,
		sigMem:    sigMem,
		hdr:       (*SignalHeader)(unsafe.Pointer(&sigMem[0])),
		owner:     true,
	}

	var magic [8]byte
	copy(magic[:], SignalMagic)
	c.hdr.SetMagic(magic)
	c.hdr.SetVersion(SignalVersion)
	c.hdr.SetArenaSize(size)
	c.hdr.SetClientPID(uint32(os.Getpid()))
	c.hdr.SetClosed(false)
	atomic.StoreUint32(c.hdr.word(WriteDone), 0)
	atomic.StoreUint32(c.hdr.word(ReadDone), 0)

	return c, nil
}

// Attach maps an existing channel created by another process. This is the
// host side of the protocol; Close on an attached channel never unlinks.
func Attach(name string) (*Channel, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	sigPath := generateSegmentPath(name + signalSuffix)
	arenaPath := generateSegmentPath(name)

	sigFile, sigMem, err := openSegment(sigPath)
	if err != nil {
		return nil, fmt.Errorf("open signals: %w", err)
	}
	if len(sigMem) < SignalHeaderSize {
		munmap(sigMem)
		sigFile.Close()
		return nil, fmt.Errorf("signal segment too small: %d bytes", len(sigMem))
	}
	hdr := (*SignalHeader)(unsafe.Pointer(&sigMem[0]))
	if err := ValidateSignalHeader(hdr); err != nil {
		munmap(sigMem)
		sigFile.Close()
		return nil, fmt.Errorf("invalid signal header: %w", err)
	}

	arenaFile, arena, err := openSegment(arenaPath)
	if err != nil {
		munmap(sigMem)
		sigFile.Close()
		return nil, fmt.Errorf("open arena: %w", err)
	}
	if uint64(len(arena)) != hdr.ArenaSize() {
		munmap(arena)
		arenaFile.Close()
		munmap(sigMem)
		sigFile.Close()
		return nil, fmt.Errorf("arena size mismatch: mapped %d, header %d", len(arena), hdr.ArenaSize())
	}

	hdr.SetHostPID(uint32(os.Getpid()))
	return &Channel{
		name:      name,
		arenaPath: arenaPath,
		sigPath:   sigPath,
		arenaFile: arenaFile,
		sigFile:   sigFile,
		arena:     arena,
		sigMem:    sigMem,
		hdr:       hdr,
	}, nil
}

// Name returns the arena name the channel was opened with.
func (c *Channel) Name() string { return c.name }

// Arena returns the mapped arena. The slice is only valid until Close.
func (c *Channel) Arena() []byte { return c.arena }

// Size returns the arena capacity in bytes.
func (c *Channel) Size() uint64 { return uint64(len(c.arena)) }

// Header returns the signal segment header.
func (c *Channel) Header() *SignalHeader { return c.hdr }

// Signal raises which to 1. It never blocks and is a no-op if the signal is
// already raised.
func (c *Channel) Signal(which Signal) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	addr := c.hdr.word(which)
	if !atomic.CompareAndSwapUint32(addr, 0, 1) {
		return nil
	}
	_, err := futexWake(addr, 1)
	return err
}

// Wait blocks until which is raised or timeout elapses, and consumes the
// signal by resetting it to 0. A timeout <= 0 waits forever.
func (c *Channel) Wait(which Signal, timeout time.Duration) (WaitResult, error) {
	if c.closed.Load() {
		return TimedOut, ErrChannelClosed
	}
	addr := c.hdr.word(which)

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if atomic.CompareAndSwapUint32(addr, 1, 0) {
			return Signaled, nil
		}
		var remaining time.Duration
		if timeout > 0 {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return TimedOut, nil
			}
		}
		if err := futexWait(addr, 0, remaining); err != nil && !errors.Is(err, ErrFutexTimeout) {
			return TimedOut, err
		}
	}
}

// MarkClosed tells an attached host that the client is tearing down.
func (c *Channel) MarkClosed() {
	if c.closed.Load() {
		return
	}
	c.hdr.SetClosed(true)
}

// PeerClosed reports whether the client side has marked the channel closed.
func (c *Channel) PeerClosed() bool {
	if c.closed.Load() {
		return true
	}
	return c.hdr.Closed()
}

// Close unmaps both segments and closes their files. The creating side also
// unlinks them. Close is idempotent.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		var firstErr error
		keep := func(err error) {
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}

		keep(munmap(c.arena))
		c.arena = nil
		keep(c.arenaFile.Close())

		// The header lives in sigMem; drop the pointer before unmapping.
		c.hdr = nil
		keep(munmap(c.sigMem))
		c.sigMem = nil
		keep(c.sigFile.Close())

		if c.owner {
			if err := os.Remove(c.arenaPath); err != nil && !os.IsNotExist(err) {
				keep(err)
			}
			if err := os.Remove(c.sigPath); err != nil && !os.IsNotExist(err) {
				keep(err)
			}
		}
		c.closeErr = firstErr
	})
	return c.closeErr
}
