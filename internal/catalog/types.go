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

package catalog

import (
	"fmt"
	"math"
)

// Class identifies a resource sequence. Each class has its own index space.
type Class uint8

const (
	ClassBuffer Class = iota
	ClassComputeShader
	ClassTask
	ClassUintSlider
	ClassIntSlider
	ClassFloatSlider
	ClassCheckbox
)

func (c Class) String() string {
	switch c {
	case ClassBuffer:
		return "buffer"
	case ClassComputeShader:
		return "compute-shader"
	case ClassTask:
		return "task"
	case ClassUintSlider:
		return "uint-slider"
	case ClassIntSlider:
		return "int-slider"
	case ClassFloatSlider:
		return "float-slider"
	case ClassCheckbox:
		return "checkbox"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// UIKind is the UI element sub-kind as numbered on the wire.
type UIKind uint32

const (
	UIUintSlider  UIKind = 1
	UIIntSlider   UIKind = 2
	UIFloatSlider UIKind = 3
	UICheckbox    UIKind = 4
)

func (k UIKind) Valid() bool { return k >= UIUintSlider && k <= UICheckbox }

// Class returns the resource class elements of kind k are stored under.
func (k UIKind) Class() Class {
	switch k {
	case UIUintSlider:
		return ClassUintSlider
	case UIIntSlider:
		return ClassIntSlider
	case UIFloatSlider:
		return ClassFloatSlider
	case UICheckbox:
		return ClassCheckbox
	}
	panic(fmt.Sprintf("catalog: invalid UI kind %d", uint32(k)))
}

func (k UIKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("ui-kind(%d)", uint32(k))
	}
	return k.Class().String()
}

// ConstKind is the one-byte constant type tag.
type ConstKind byte

const (
	ConstInt   ConstKind = 'i'
	ConstUint  ConstKind = 'I'
	ConstFloat ConstKind = 'f'
)

func (k ConstKind) Valid() bool {
	return k == ConstInt || k == ConstUint || k == ConstFloat
}

func (k ConstKind) String() string {
	switch k {
	case ConstInt:
		return "int"
	case ConstUint:
		return "uint"
	case ConstFloat:
		return "float"
	}
	return fmt.Sprintf("const-kind(%q)", byte(k))
}

type Buffer struct {
	Name           NameID
	Index          uint32
	ByteSize       uint32
	SubBufferCount uint32
	CPUAccessible  bool
}

// ValidSubBuffer reports whether sub addresses this buffer. WholeBuffer
// addresses all of it.
func (b Buffer) ValidSubBuffer(sub uint32) bool {
	return sub == WholeBuffer || sub < b.SubBufferCount
}

// WholeBuffer is the sub-buffer index meaning "no sub-indexing".
const WholeBuffer = ^uint32(0)

type ComputeShader struct {
	Name  NameID
	Index uint32
}

type Task struct {
	Name  NameID
	Index uint32
}

// UIElement is a control whose current value lives at Offset in the UI
// state buffer.
type UIElement struct {
	Name   NameID
	Kind   UIKind
	Offset uint32
}

// Constant holds the raw 32 bits of a host constant. Kind selects the
// interpretation.
type Constant struct {
	Name NameID
	Kind ConstKind
	Bits uint32
}

func (c Constant) Int() int32     { return int32(c.Bits) }
func (c Constant) Uint() uint32   { return c.Bits }
func (c Constant) Float() float32 { return math.Float32frombits(c.Bits) }
