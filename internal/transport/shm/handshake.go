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
	"context"
	"time"
)

// WaitContext waits for which to be raised without a deadline, waking every
// poll interval to observe ctx and to run check. A non-nil error from check
// aborts the wait and is returned as is.
//
// The client uses this during the handshake, where host startup time is
// unbounded but host death must still be noticed.
func (c *Channel) WaitContext(ctx context.Context, which Signal, poll time.Duration, check func() error) error {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	for {
		res, err := c.Wait(which, poll)
		if err != nil {
			return err
		}
		if res == Signaled {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if check != nil {
			if err := check(); err != nil {
				return err
			}
		}
	}
}
