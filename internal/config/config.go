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

// Package config loads session configuration from YAML or TOML files and
// the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/nithinp7/Fluorescence/internal/transport/shm"
)

const (
	DefaultArenaName     = "Global_FlrSharedMemory"
	DefaultTickTimeout   = 500 * time.Millisecond
	DefaultHandshakePoll = 100 * time.Millisecond
)

// Param is a startup parameter sent to the host before the handshake.
type Param struct {
	Name  string `yaml:"name" toml:"name"`
	Value uint32 `yaml:"value" toml:"value"`
}

type Config struct {
	// Executable is the host binary.
	Executable string `yaml:"executable" toml:"executable"`
	// Project is the project file handed to the host.
	Project string `yaml:"project" toml:"project"`
	// Arena is a shm:// address or a bare segment name.
	Arena string `yaml:"arena" toml:"arena"`
	// ArenaSize overrides the capacity given in Arena when non-zero.
	ArenaSize uint64 `yaml:"arena_size,omitempty" toml:"arena_size,omitempty"`
	// TickTimeout bounds each wait for the host inside Tick. Host liveness
	// is checked every time it expires.
	TickTimeout string `yaml:"tick_timeout" toml:"tick_timeout"`
	// HandshakePoll is how often the unbounded handshake wait checks on
	// the host.
	HandshakePoll string  `yaml:"handshake_poll" toml:"handshake_poll"`
	Params        []Param `yaml:"params,omitempty" toml:"params,omitempty"`
	// MetricsAddr, if set, is where the CLI serves Prometheus metrics.
	MetricsAddr string `yaml:"metrics_addr,omitempty" toml:"metrics_addr,omitempty"`
}

func Default() *Config {
	return &Config{
		Arena:         DefaultArenaName,
		TickTimeout:   DefaultTickTimeout.String(),
		HandshakePoll: DefaultHandshakePoll.String(),
	}
}

// Load reads path over the defaults and applies environment overrides. The
// format is chosen by extension: .toml for TOML, anything else for YAML. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := cfg.decode(path, data); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(path string, data []byte) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, c)
	}
	return yaml.Unmarshal(data, c)
}

// ApplyEnv overrides fields from FLR_EXE, FLR_PROJECT, FLR_ARENA,
// FLR_ARENA_SIZE and FLR_TICK_TIMEOUT.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("FLR_EXE"); v != "" {
		c.Executable = v
	}
	if v := os.Getenv("FLR_PROJECT"); v != "" {
		c.Project = v
	}
	if v := os.Getenv("FLR_ARENA"); v != "" {
		c.Arena = v
	}
	if v := os.Getenv("FLR_ARENA_SIZE"); v != "" {
		n, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return fmt.Errorf("FLR_ARENA_SIZE: %w", err)
		}
		c.ArenaSize = n
	}
	if v := os.Getenv("FLR_TICK_TIMEOUT"); v != "" {
		c.TickTimeout = v
	}
	return nil
}

// Validate checks every field that can be checked without starting a host.
func (c *Config) Validate() error {
	if _, err := c.Address(); err != nil {
		return fmt.Errorf("arena: %w", err)
	}
	if _, err := parsePositive(c.TickTimeout, DefaultTickTimeout); err != nil {
		return fmt.Errorf("tick_timeout: %w", err)
	}
	if _, err := parsePositive(c.HandshakePoll, DefaultHandshakePoll); err != nil {
		return fmt.Errorf("handshake_poll: %w", err)
	}
	seen := make(map[string]bool, len(c.Params))
	for _, p := range c.Params {
		if p.Name == "" {
			return fmt.Errorf("params: empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("params: duplicate %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Address returns the arena address with ArenaSize applied.
func (c *Config) Address() (shm.Address, error) {
	raw := c.Arena
	if raw == "" {
		raw = DefaultArenaName
	}
	addr, err := shm.ParseAddress(raw)
	if err != nil {
		return shm.Address{}, err
	}
	if c.ArenaSize != 0 {
		if err := shm.ValidateArenaSize(c.ArenaSize); err != nil {
			return shm.Address{}, err
		}
		addr.Cap = c.ArenaSize
	}
	return addr, nil
}

// TickInterval returns TickTimeout, or the default if it is unset or
// invalid.
func (c *Config) TickInterval() time.Duration {
	d, err := parsePositive(c.TickTimeout, DefaultTickTimeout)
	if err != nil {
		return DefaultTickTimeout
	}
	return d
}

// PollInterval returns HandshakePoll, or the default if it is unset or
// invalid.
func (c *Config) PollInterval() time.Duration {
	d, err := parsePositive(c.HandshakePoll, DefaultHandshakePoll)
	if err != nil {
		return DefaultHandshakePoll
	}
	return d
}

func parsePositive(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}
