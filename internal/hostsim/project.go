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

// Package hostsim emulates the host side of the Fluorescence protocol.
//
// A simulated host attaches to a client's arena, reads its startup
// parameters and command lists, and answers with establishment and update
// packets built from a Project description. It keeps a copy of every buffer
// so that buffer writes can be checked, and can be scripted to fail, exit or
// reinitialize its project. Tests use it in-process; flrctl simulate-host
// runs it as a real child process.
package hostsim

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nithinp7/Fluorescence/internal/catalog"
	"github.com/nithinp7/Fluorescence/internal/protocol"
)

type BufferSpec struct {
	Name  string `yaml:"name"`
	Size  uint32 `yaml:"size"`
	Count uint32 `yaml:"count"`
	CPU   bool   `yaml:"cpu"`
}

// UISpec is a UI element. Kind is one of uint, int, float or checkbox.
type UISpec struct {
	Name   string  `yaml:"name"`
	Kind   string  `yaml:"kind"`
	Offset uint32  `yaml:"offset"`
	Value  float64 `yaml:"value"`
}

// ConstSpec is a project constant. Kind is one of int, uint or float.
type ConstSpec struct {
	Name  string  `yaml:"name"`
	Kind  string  `yaml:"kind"`
	Value float64 `yaml:"value"`
}

// Behavior scripts the host.
type Behavior struct {
	// FailStartup answers the handshake with a failure packet.
	FailStartup bool `yaml:"fail_startup"`
	// ExitAfterHandshake exits right after the establishment packet.
	ExitAfterHandshake bool `yaml:"exit_after_handshake"`
	// ExitAfterTicks exits after answering that many ticks. Zero never exits.
	ExitAfterTicks int `yaml:"exit_after_ticks"`
	// ReinitEvery reinitializes the project every that many ticks,
	// alternating with ReinitProject when it is set.
	ReinitEvery int `yaml:"reinit_every"`
}

type Project struct {
	Buffers        []BufferSpec `yaml:"buffers"`
	ComputeShaders []string     `yaml:"compute_shaders"`
	Tasks          []string     `yaml:"tasks"`
	UI             []UISpec     `yaml:"ui"`
	Constants      []ConstSpec  `yaml:"constants"`
	Behavior       Behavior     `yaml:"behavior"`
	ReinitProject  *Project     `yaml:"reinit_project,omitempty"`
}

// LoadProject reads a YAML project description.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse project %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("project %s: %w", path, err)
	}
	return &p, nil
}

var uiKinds = map[string]catalog.UIKind{
	"uint":     catalog.UIUintSlider,
	"int":      catalog.UIIntSlider,
	"float":    catalog.UIFloatSlider,
	"checkbox": catalog.UICheckbox,
}

var constKinds = map[string]catalog.ConstKind{
	"int":   catalog.ConstInt,
	"uint":  catalog.ConstUint,
	"float": catalog.ConstFloat,
}

func (p *Project) Validate() error {
	for _, e := range p.UI {
		if _, ok := uiKinds[e.Kind]; !ok {
			return fmt.Errorf("ui element %q: unknown kind %q", e.Name, e.Kind)
		}
	}
	for _, c := range p.Constants {
		if _, ok := constKinds[c.Kind]; !ok {
			return fmt.Errorf("constant %q: unknown kind %q", c.Name, c.Kind)
		}
	}
	if p.ReinitProject != nil {
		return p.ReinitProject.Validate()
	}
	return nil
}

// UIStateSize is the size of the UI state buffer: the end of the last
// element.
func (p *Project) UIStateSize() uint32 {
	var n uint32
	for _, e := range p.UI {
		if end := e.Offset + 4; end > n {
			n = end
		}
	}
	return n
}

// initialUIState encodes every element's starting value.
func (p *Project) initialUIState() []byte {
	state := make([]byte, p.UIStateSize())
	for _, e := range p.UI {
		putWord(state[e.Offset:], uiKinds[e.Kind], e.Value)
	}
	return state
}

func putWord(b []byte, kind catalog.UIKind, v float64) {
	var bits uint32
	switch kind {
	case catalog.UIFloatSlider:
		bits = math.Float32bits(float32(v))
	case catalog.UIIntSlider:
		bits = uint32(int32(v))
	default:
		bits = uint32(v)
	}
	b[0], b[1], b[2], b[3] = byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24)
}

// write emits the project's resource records.
func (p *Project) write(w *protocol.MessageWriter) {
	for i, b := range p.Buffers {
		w.Buffer(catalog.Buffer{
			Index:          uint32(i),
			ByteSize:       b.Size,
			SubBufferCount: b.Count,
			CPUAccessible:  b.CPU,
		}, b.Name)
	}
	for i, name := range p.ComputeShaders {
		w.ComputeShader(uint32(i), name)
	}
	for i, name := range p.Tasks {
		w.Task(uint32(i), name)
	}
	if n := p.UIStateSize(); n > 0 {
		w.UIStateSize(n)
	}
	for _, e := range p.UI {
		w.UIElement(uiKinds[e.Kind], e.Offset, e.Name)
	}
	for _, c := range p.Constants {
		switch constKinds[c.Kind] {
		case catalog.ConstInt:
			w.ConstInt(c.Name, int32(c.Value))
		case catalog.ConstUint:
			w.ConstUint(c.Name, uint32(c.Value))
		case catalog.ConstFloat:
			w.ConstFloat(c.Name, float32(c.Value))
		}
	}
}
