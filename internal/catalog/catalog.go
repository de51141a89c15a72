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

// Package catalog holds the resources a host project exposes for one
// project generation, plus the client's copy of the host UI state.
//
// A Catalog is rebuilt wholesale whenever the host reinitializes its
// project. The StringTable it shares with the rest of the session is never
// reset, so a name keeps its id across generations even when the positional
// index of the resource behind it changes.
package catalog

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrIndexOrder is returned when a resource is added with an index other
	// than the current length of its sequence.
	ErrIndexOrder = errors.New("catalog: resource index out of order")
	// ErrUIStateSize is returned when a UI state update does not match the
	// declared size of the UI state buffer.
	ErrUIStateSize = errors.New("catalog: UI state size mismatch")
	// ErrUIKind is returned for UI elements of an unknown kind.
	ErrUIKind = errors.New("catalog: unknown UI element kind")
	// ErrConstKind is returned for constants of an unknown kind.
	ErrConstKind = errors.New("catalog: unknown constant kind")
)

type Catalog struct {
	names      *StringTable
	generation uint64

	buffers   []Buffer
	shaders   []ComputeShader
	tasks     []Task
	ui        [UICheckbox + 1][]UIElement
	constants []Constant
	uiState   []byte
}

// New returns an empty catalog interning names through names. A nil table
// gets a fresh one.
func New(names *StringTable) *Catalog {
	if names == nil {
		names = NewStringTable()
	}
	return &Catalog{names: names}
}

// Names returns the string table shared by every generation.
func (c *Catalog) Names() *StringTable { return c.names }

// Generation counts calls to Reset.
func (c *Catalog) Generation() uint64 { return c.generation }

// Reset drops every resource and the UI state. The string table is kept.
func (c *Catalog) Reset() {
	c.generation++
	c.buffers = nil
	c.shaders = nil
	c.tasks = nil
	for i := range c.ui {
		c.ui[i] = nil
	}
	c.constants = nil
	c.uiState = nil
}

func (c *Catalog) AddBuffer(b Buffer) error {
	if err := checkIndex("buffer", b.Index, len(c.buffers)); err != nil {
		return err
	}
	c.buffers = append(c.buffers, b)
	return nil
}

func (c *Catalog) AddComputeShader(s ComputeShader) error {
	if err := checkIndex("compute shader", s.Index, len(c.shaders)); err != nil {
		return err
	}
	c.shaders = append(c.shaders, s)
	return nil
}

func (c *Catalog) AddTask(t Task) error {
	if err := checkIndex("task", t.Index, len(c.tasks)); err != nil {
		return err
	}
	c.tasks = append(c.tasks, t)
	return nil
}

// AddUIElement appends e to the sequence for its kind. Elements carry no
// index on the wire; their position is their order of arrival.
func (c *Catalog) AddUIElement(e UIElement) error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %d", ErrUIKind, uint32(e.Kind))
	}
	c.ui[e.Kind] = append(c.ui[e.Kind], e)
	return nil
}

func (c *Catalog) AddConstant(k Constant) error {
	if !k.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrConstKind, byte(k.Kind))
	}
	c.constants = append(c.constants, k)
	return nil
}

func checkIndex(what string, got uint32, want int) error {
	if int64(got) != int64(want) {
		return fmt.Errorf("%w: %s index %d, expected %d", ErrIndexOrder, what, got, want)
	}
	return nil
}

// SetUIStateSize (re)allocates the UI state buffer, zeroed.
func (c *Catalog) SetUIStateSize(n uint32) {
	c.uiState = make([]byte, n)
}

// UpdateUIState replaces the UI state with data, which must be exactly the
// declared size.
func (c *Catalog) UpdateUIState(data []byte) error {
	if len(data) != len(c.uiState) {
		return fmt.Errorf("%w: got %d bytes, buffer is %d", ErrUIStateSize, len(data), len(c.uiState))
	}
	copy(c.uiState, data)
	return nil
}

// UIState returns the UI state buffer. Callers must not retain it across
// updates.
func (c *Catalog) UIState() []byte { return c.uiState }

// UIWord reads the little-endian 32-bit value at offset in the UI state.
func (c *Catalog) UIWord(offset uint32) (uint32, bool) {
	end := uint64(offset) + 4
	if end > uint64(len(c.uiState)) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(c.uiState[offset:end]), true
}

func (c *Catalog) Buffers() []Buffer               { return c.buffers }
func (c *Catalog) ComputeShaders() []ComputeShader { return c.shaders }
func (c *Catalog) Tasks() []Task                   { return c.tasks }
func (c *Catalog) Constants() []Constant           { return c.constants }

// UIElements returns the elements of kind k.
func (c *Catalog) UIElements(k UIKind) []UIElement {
	if !k.Valid() {
		return nil
	}
	return c.ui[k]
}

func (c *Catalog) Buffer(i uint32) Buffer               { return c.buffers[i] }
func (c *Catalog) ComputeShader(i uint32) ComputeShader { return c.shaders[i] }
func (c *Catalog) Task(i uint32) Task                   { return c.tasks[i] }

// UIElement returns element i of kind k.
func (c *Catalog) UIElement(k UIKind, i uint32) UIElement { return c.ui[k][i] }

// Len returns the number of resources of class cl.
func (c *Catalog) Len(cl Class) int {
	switch cl {
	case ClassBuffer:
		return len(c.buffers)
	case ClassComputeShader:
		return len(c.shaders)
	case ClassTask:
		return len(c.tasks)
	case ClassUintSlider:
		return len(c.ui[UIUintSlider])
	case ClassIntSlider:
		return len(c.ui[UIIntSlider])
	case ClassFloatSlider:
		return len(c.ui[UIFloatSlider])
	case ClassCheckbox:
		return len(c.ui[UICheckbox])
	}
	return 0
}

// Find returns the position of the resource of class cl named id.
func (c *Catalog) Find(cl Class, id NameID) (uint32, bool) {
	switch cl {
	case ClassBuffer:
		for i, b := range c.buffers {
			if b.Name == id {
				return uint32(i), true
			}
		}
	case ClassComputeShader:
		for i, s := range c.shaders {
			if s.Name == id {
				return uint32(i), true
			}
		}
	case ClassTask:
		for i, t := range c.tasks {
			if t.Name == id {
				return uint32(i), true
			}
		}
	case ClassUintSlider:
		return findUI(c.ui[UIUintSlider], id)
	case ClassIntSlider:
		return findUI(c.ui[UIIntSlider], id)
	case ClassFloatSlider:
		return findUI(c.ui[UIFloatSlider], id)
	case ClassCheckbox:
		return findUI(c.ui[UICheckbox], id)
	}
	return 0, false
}

func findUI(elems []UIElement, id NameID) (uint32, bool) {
	for i, e := range elems {
		if e.Name == id {
			return uint32(i), true
		}
	}
	return 0, false
}

// FindByName is Find keyed by string. Unknown names are not interned.
func (c *Catalog) FindByName(cl Class, name string) (uint32, bool) {
	id, ok := c.names.Lookup(name)
	if !ok {
		return 0, false
	}
	return c.Find(cl, id)
}

func (c *Catalog) FindBuffer(name string) (uint32, bool) {
	return c.FindByName(ClassBuffer, name)
}

func (c *Catalog) FindComputeShader(name string) (uint32, bool) {
	return c.FindByName(ClassComputeShader, name)
}

func (c *Catalog) FindTask(name string) (uint32, bool) {
	return c.FindByName(ClassTask, name)
}

func (c *Catalog) FindUIElement(k UIKind, name string) (uint32, bool) {
	if !k.Valid() {
		return 0, false
	}
	return c.FindByName(k.Class(), name)
}

// FindConstant returns the first constant of kind k named name.
func (c *Catalog) FindConstant(k ConstKind, name string) (Constant, bool) {
	id, ok := c.names.Lookup(name)
	if !ok {
		return Constant{}, false
	}
	for _, cn := range c.constants {
		if cn.Kind == k && cn.Name == id {
			return cn, true
		}
	}
	return Constant{}, false
}

func (c *Catalog) mustConstant(k ConstKind, name string) Constant {
	cn, ok := c.FindConstant(k, name)
	if !ok {
		panic(fmt.Sprintf("catalog: no %s constant named %q", k, name))
	}
	return cn
}

// ConstInt returns the value of the int constant name. It panics if there is
// no such constant.
func (c *Catalog) ConstInt(name string) int32 { return c.mustConstant(ConstInt, name).Int() }

// ConstUint returns the value of the uint constant name. It panics if there
// is no such constant.
func (c *Catalog) ConstUint(name string) uint32 { return c.mustConstant(ConstUint, name).Uint() }

// ConstFloat returns the value of the float constant name. It panics if there
// is no such constant.
func (c *Catalog) ConstFloat(name string) float32 { return c.mustConstant(ConstFloat, name).Float() }
