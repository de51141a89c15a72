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

package flr

import (
	"math"

	"github.com/nithinp7/Fluorescence/internal/catalog"
	"github.com/nithinp7/Fluorescence/internal/handle"
)

// ref is the common part of every typed handle. The zero value is invalid.
type ref struct{ h *handle.Handle }

// Valid reports whether the resource exists in the current project
// generation. Commands panic on invalid handles.
func (r ref) Valid() bool { return r.h.Valid() }

func (r ref) String() string { return r.h.String() }

func (r ref) index(class catalog.Class) uint32 { return r.h.Require(class) }

type (
	BufferHandle        struct{ ref }
	ComputeShaderHandle struct{ ref }
	TaskHandle          struct{ ref }
	UintSliderHandle    struct{ ref }
	IntSliderHandle     struct{ ref }
	FloatSliderHandle   struct{ ref }
	CheckboxHandle      struct{ ref }
)

func (s *Session) resolve(class catalog.Class, name string) ref {
	return ref{s.reg.Resolve(s.cat, class, name)}
}

// Buffer returns a handle to the buffer called name. The handle is invalid
// if there is no such buffer; it stays usable across reinit.
func (s *Session) Buffer(name string) BufferHandle {
	return BufferHandle{s.resolve(catalog.ClassBuffer, name)}
}

func (s *Session) ComputeShader(name string) ComputeShaderHandle {
	return ComputeShaderHandle{s.resolve(catalog.ClassComputeShader, name)}
}

func (s *Session) Task(name string) TaskHandle {
	return TaskHandle{s.resolve(catalog.ClassTask, name)}
}

func (s *Session) UintSlider(name string) UintSliderHandle {
	return UintSliderHandle{s.resolve(catalog.ClassUintSlider, name)}
}

func (s *Session) IntSlider(name string) IntSliderHandle {
	return IntSliderHandle{s.resolve(catalog.ClassIntSlider, name)}
}

func (s *Session) FloatSlider(name string) FloatSliderHandle {
	return FloatSliderHandle{s.resolve(catalog.ClassFloatSlider, name)}
}

func (s *Session) Checkbox(name string) CheckboxHandle {
	return CheckboxHandle{s.resolve(catalog.ClassCheckbox, name)}
}

// BufferInfo returns the descriptor of the buffer behind h.
func (s *Session) BufferInfo(h BufferHandle) catalog.Buffer {
	return s.cat.Buffer(h.index(catalog.ClassBuffer))
}

func (s *Session) uiWord(kind catalog.UIKind, r ref) uint32 {
	e := s.cat.UIElement(kind, r.index(kind.Class()))
	// Elements outside the declared UI state read as zero.
	v, _ := s.cat.UIWord(e.Offset)
	return v
}

func (s *Session) SliderUint(h UintSliderHandle) uint32 {
	return s.uiWord(catalog.UIUintSlider, h.ref)
}

func (s *Session) SliderInt(h IntSliderHandle) int32 {
	return int32(s.uiWord(catalog.UIIntSlider, h.ref))
}

func (s *Session) SliderFloat(h FloatSliderHandle) float32 {
	return math.Float32frombits(s.uiWord(catalog.UIFloatSlider, h.ref))
}

func (s *Session) IsChecked(h CheckboxHandle) bool {
	return s.uiWord(catalog.UICheckbox, h.ref) != 0
}

// ConstInt returns the host constant name. It panics if the project defines
// no such int constant.
func (s *Session) ConstInt(name string) int32 { return s.cat.ConstInt(name) }

// ConstUint is ConstInt for uint constants.
func (s *Session) ConstUint(name string) uint32 { return s.cat.ConstUint(name) }

// ConstFloat is ConstInt for float constants.
func (s *Session) ConstFloat(name string) float32 { return s.cat.ConstFloat(name) }

func (s *Session) LookupConstInt(name string) (int32, bool) {
	c, ok := s.cat.FindConstant(catalog.ConstInt, name)
	return c.Int(), ok
}

func (s *Session) LookupConstUint(name string) (uint32, bool) {
	c, ok := s.cat.FindConstant(catalog.ConstUint, name)
	return c.Uint(), ok
}

func (s *Session) LookupConstFloat(name string) (float32, bool) {
	c, ok := s.cat.FindConstant(catalog.ConstFloat, name)
	return c.Float(), ok
}
