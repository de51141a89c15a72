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
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestStringTableIntern(t *testing.T) {
	st := NewStringTable()

	a := st.Intern("posBuf")
	require.Equal(t, a, st.Intern("posBuf"), "same string must intern to same id")

	var ids []NameID
	for i := 0; i < 16; i++ {
		ids = append(ids, st.Intern(fmt.Sprintf("name-%d", i)))
	}
	for i, id := range ids {
		require.Equal(t, NameID(i+1), id, "ids must be sequential")
		require.Equal(t, fmt.Sprintf("name-%d", i), st.Name(id))
	}
	require.Equal(t, 17, st.Len())

	_, ok := st.Lookup("never-seen")
	require.False(t, ok)
	require.Equal(t, 17, st.Len(), "Lookup must not intern")
	require.Equal(t, "", st.Name(1000))
}

func TestResetKeepsNames(t *testing.T) {
	c := New(nil)
	id := c.Names().Intern("posBuf")
	require.NoError(t, c.AddBuffer(Buffer{Name: id, Index: 0, ByteSize: 16}))

	c.Reset()
	require.Empty(t, c.Buffers())
	require.Equal(t, uint64(1), c.Generation())
	require.Equal(t, id, c.Names().Intern("posBuf"))
	require.Nil(t, c.UIState())
}

func TestIndexOrder(t *testing.T) {
	c := New(nil)
	n := c.Names()

	require.NoError(t, c.AddBuffer(Buffer{Name: n.Intern("a"), Index: 0}))
	err := c.AddBuffer(Buffer{Name: n.Intern("b"), Index: 2})
	require.True(t, errors.Is(err, ErrIndexOrder), "got %v", err)

	require.NoError(t, c.AddComputeShader(ComputeShader{Name: n.Intern("cs"), Index: 0}))
	require.ErrorIs(t, c.AddComputeShader(ComputeShader{Name: n.Intern("cs2"), Index: 0}), ErrIndexOrder)

	require.ErrorIs(t, c.AddTask(Task{Name: n.Intern("t"), Index: 1}), ErrIndexOrder)
}

func TestFindByClass(t *testing.T) {
	c := New(nil)
	n := c.Names()
	require.NoError(t, c.AddBuffer(Buffer{Name: n.Intern("a"), Index: 0}))
	require.NoError(t, c.AddBuffer(Buffer{Name: n.Intern("b"), Index: 1}))
	require.NoError(t, c.AddComputeShader(ComputeShader{Name: n.Intern("b"), Index: 0}))
	require.NoError(t, c.AddTask(Task{Name: n.Intern("update"), Index: 0}))

	i, ok := c.FindBuffer("b")
	require.True(t, ok)
	require.Equal(t, uint32(1), i)

	i, ok = c.FindComputeShader("b")
	require.True(t, ok)
	require.Equal(t, uint32(0), i)

	_, ok = c.FindTask("b")
	require.False(t, ok)

	i, ok = c.FindTask("update")
	require.True(t, ok)
	require.Equal(t, uint32(0), i)

	_, ok = c.FindBuffer("missing")
	require.False(t, ok)
}

func TestUIKindsAreSeparate(t *testing.T) {
	c := New(nil)
	n := c.Names()
	c.SetUIStateSize(16)
	require.NoError(t, c.AddUIElement(UIElement{Name: n.Intern("u"), Kind: UIUintSlider, Offset: 0}))
	require.NoError(t, c.AddUIElement(UIElement{Name: n.Intern("i"), Kind: UIIntSlider, Offset: 4}))
	require.NoError(t, c.AddUIElement(UIElement{Name: n.Intern("f"), Kind: UIFloatSlider, Offset: 8}))
	require.NoError(t, c.AddUIElement(UIElement{Name: n.Intern("c"), Kind: UICheckbox, Offset: 12}))
	require.ErrorIs(t, c.AddUIElement(UIElement{Name: n.Intern("x"), Kind: 7}), ErrUIKind)

	for _, k := range []UIKind{UIUintSlider, UIIntSlider, UIFloatSlider, UICheckbox} {
		require.Len(t, c.UIElements(k), 1, "kind %v", k)
		require.Equal(t, 1, c.Len(k.Class()))
	}

	_, ok := c.FindUIElement(UIUintSlider, "i")
	require.False(t, ok, "int slider must not land in the uint slider sequence")
	i, ok := c.FindUIElement(UIIntSlider, "i")
	require.True(t, ok)
	require.Equal(t, uint32(0), i)
}

func TestUIState(t *testing.T) {
	c := New(nil)
	c.SetUIStateSize(8)

	require.ErrorIs(t, c.UpdateUIState(make([]byte, 4)), ErrUIStateSize)
	require.NoError(t, c.UpdateUIState([]byte{1, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}))

	v, ok := c.UIWord(0)
	require.True(t, ok)
	require.Equal(t, uint32(1), v)

	v, ok = c.UIWord(4)
	require.True(t, ok)
	require.Equal(t, int32(-1), int32(v))

	_, ok = c.UIWord(6)
	require.False(t, ok)
}

func TestConstants(t *testing.T) {
	c := New(nil)
	n := c.Names()
	require.NoError(t, c.AddConstant(Constant{Name: n.Intern("N"), Kind: ConstUint, Bits: 42}))
	require.NoError(t, c.AddConstant(Constant{Name: n.Intern("OFFSET"), Kind: ConstInt, Bits: uint32(0xfffffffe)}))
	require.NoError(t, c.AddConstant(Constant{Name: n.Intern("DT"), Kind: ConstFloat, Bits: 0x3f000000}))
	require.ErrorIs(t, c.AddConstant(Constant{Name: n.Intern("bad"), Kind: 'x'}), ErrConstKind)

	require.Equal(t, uint32(42), c.ConstUint("N"))
	require.Equal(t, int32(-2), c.ConstInt("OFFSET"))
	require.Equal(t, float32(0.5), c.ConstFloat("DT"))

	_, ok := c.FindConstant(ConstInt, "N")
	require.False(t, ok, "kind must match")

	require.Panics(t, func() { c.ConstFloat("missing") })
}

func TestCatalogContents(t *testing.T) {
	c := New(nil)
	n := c.Names()
	require.NoError(t, c.AddBuffer(Buffer{Name: n.Intern("posBuf"), Index: 0, ByteSize: 1024, SubBufferCount: 1, CPUAccessible: true}))
	require.NoError(t, c.AddBuffer(Buffer{Name: n.Intern("velBuf"), Index: 1, ByteSize: 512, SubBufferCount: 2}))

	want := []Buffer{
		{Name: 0, Index: 0, ByteSize: 1024, SubBufferCount: 1, CPUAccessible: true},
		{Name: 1, Index: 1, ByteSize: 512, SubBufferCount: 2},
	}
	if diff := cmp.Diff(want, c.Buffers()); diff != "" {
		t.Fatalf("buffers mismatch (-want +got):\n%s", diff)
	}
}

func TestValidSubBuffer(t *testing.T) {
	b := Buffer{SubBufferCount: 2}
	tests := []struct {
		sub  uint32
		want bool
	}{
		{WholeBuffer, true},
		{0, true},
		{1, true},
		{2, false},
		{100, false},
	}
	for _, tt := range tests {
		if got := b.ValidSubBuffer(tt.sub); got != tt.want {
			t.Errorf("ValidSubBuffer(%d) = %v, want %v", tt.sub, got, tt.want)
		}
	}
}
