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

package host

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// script writes a shell script used as the "project"; /bin/sh then runs it
// with -ipc as its first argument.
func script(t *testing.T, body string) Spec {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "host.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return Spec{Path: sh, Project: path}
}

func TestStartRequiresExecutable(t *testing.T) {
	_, err := Start(context.Background(), Spec{})
	require.ErrorIs(t, err, ErrNoExecutable)
}

func TestStartCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Start(ctx, script(t, "exit 0\n"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestExitIsObserved(t *testing.T) {
	p, err := Start(context.Background(), script(t, "exit 3\n"))
	require.NoError(t, err)

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("host did not exit")
	}
	require.False(t, p.Alive())
	require.Equal(t, 3, p.ExitCode())

	err = p.Join()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, err, p.Join(), "Join must be idempotent")
}

func TestArgumentsAndEnv(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	spec := script(t, `printf '%s %s' "$1" "$FLR_ARENA" > "$OUT"`+"\n")
	spec.Env = []string{"FLR_ARENA=test-arena", "OUT=" + out}

	p, err := Start(context.Background(), spec)
	require.NoError(t, err)
	require.NoError(t, p.Join())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, IPCFlag+" test-arena", string(got))
}

func TestKill(t *testing.T) {
	p, err := Start(context.Background(), script(t, "sleep 30\n"))
	require.NoError(t, err)
	require.True(t, p.Alive())
	require.Equal(t, -1, p.ExitCode())

	require.NoError(t, p.Kill())
	require.Error(t, p.Join())
	require.False(t, p.Alive())
	require.NoError(t, p.Kill(), "Kill after exit is a no-op")
}
