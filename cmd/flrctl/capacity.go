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

package main

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nithinp7/Fluorescence/internal/catalog"
	"github.com/nithinp7/Fluorescence/internal/protocol"
	"github.com/nithinp7/Fluorescence/internal/transport/shm"
)

var capacityBytes uint64

var capacityCmd = &cobra.Command{
	Use:   "capacity",
	Short: "Probe how much of an arena a single frame can use",
	Long: `capacity maps a scratch arena of --cap bytes and encodes buffer writes
into it without a host, reporting which write sizes fit in one frame and how
many fixed-size chunks fit before the frame overflows.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := shm.ValidateArenaSize(capacityBytes); err != nil {
			return err
		}
		ch, err := shm.Open("flrctl-capacity-"+uuid.NewString(), capacityBytes)
		if err != nil {
			return fmt.Errorf("failed to create arena: %w", err)
		}
		defer ch.Close()
		probeCapacity(cmd.OutOrStdout(), protocol.NewFrame(ch.Arena()))
		return nil
	},
}

func probeCapacity(w io.Writer, f *protocol.Frame) {
	enc := protocol.NewEncoder(f)
	write := func(n, off int) protocol.BufferWrite {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte((off + i) % 256)
		}
		return protocol.BufferWrite{SubBuffer: catalog.WholeBuffer, DstOffset: uint32(off), Data: data}
	}

	fmt.Fprintf(w, "=== Arena ===\n")
	fmt.Fprintf(w, "Capacity: %d bytes\n", f.Capacity())
	fmt.Fprintf(w, "BUFFER_WRITE overhead: %d bytes, FINISH: %d bytes\n",
		protocol.RecordSize(protocol.BufferWrite{}), protocol.FinishSize)

	fmt.Fprintf(w, "\n=== Single Write Tests ===\n")
	for _, size := range []int{10, 100, 1000, 4096, 32768, 65000, 65536, 1 << 20} {
		f.Reset()
		if !enc.Encode(write(size, 0)) {
			fmt.Fprintf(w, "Size %d bytes: FAIL (frame overflow)\n", size)
			break
		}
		cmd, payload := f.Used()
		fmt.Fprintf(w, "Size %d bytes: OK (%d command + %d payload bytes)\n", size, cmd, payload)
	}

	fmt.Fprintf(w, "\n=== Fill Test ===\n")
	f.Reset()
	const chunk = 1000
	n := 0
	for enc.Encode(write(chunk, n*chunk)) {
		n++
	}
	used := enc.Finish()
	fmt.Fprintf(w, "Overflowed after %d chunks of %d bytes; frame uses %d of %d bytes\n",
		n, chunk, used, f.Capacity())
}
