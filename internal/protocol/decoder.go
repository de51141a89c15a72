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

package protocol

import (
	"github.com/nithinp7/Fluorescence/internal/catalog"
)

// decoder applies one host packet to a catalog.
type decoder struct {
	r      reader
	cat    *catalog.Catalog
	reinit bool
}

// msgHandlers is the per-record dispatch table shared by establishment and
// update parsing. FINISH, GREET and FAILED are handled by run.
var msgHandlers = map[MsgType]func(*decoder) error{
	MsgBuffer:        (*decoder).buffer,
	MsgUI:            (*decoder).ui,
	MsgUIUpdate:      (*decoder).uiUpdate,
	MsgComputeShader: (*decoder).computeShader,
	MsgTask:          (*decoder).task,
	MsgConst:         (*decoder).constant,
	MsgReinit:        (*decoder).reinitProject,
}

// ParseEstablishment rebuilds cat from the establishment packet at the front
// of arena. It returns ErrHostFailed if the host reported a startup failure
// and a *Error on malformed input.
func ParseEstablishment(arena []byte, cat *catalog.Catalog) error {
	cat.Reset()
	d := &decoder{r: reader{b: arena}, cat: cat}
	return d.run()
}

// ParseUpdate applies a per-tick update packet to cat. reinit reports that
// the packet carried REINIT, in which case cat now holds the rebuilt
// project.
func ParseUpdate(arena []byte, cat *catalog.Catalog) (reinit bool, err error) {
	d := &decoder{r: reader{b: arena}, cat: cat}
	err = d.run()
	return d.reinit, err
}

func (d *decoder) run() error {
	greet, err := d.r.u32()
	if err != nil {
		return err
	}
	switch MsgType(greet) {
	case MsgGreet:
	case MsgFailed:
		return ErrHostFailed
	default:
		d.r.off = 0
		d.r.tag = greet
		return d.r.fail("bad greeting", nil)
	}

	for {
		start := d.r.off
		tag, err := d.r.u32()
		if err != nil {
			return err
		}
		d.r.tag = tag
		if MsgType(tag) == MsgFinish {
			return nil
		}
		h, ok := msgHandlers[MsgType(tag)]
		if !ok {
			d.r.off = start
			return d.r.fail("unknown message tag", nil)
		}
		if err := h(d); err != nil {
			return err
		}
	}
}

// wrap turns a catalog rejection into a protocol error at the current
// record.
func (d *decoder) wrap(err error) error {
	if err == nil {
		return nil
	}
	return d.r.fail("catalog rejected record", err)
}

func (d *decoder) buffer() error {
	v, err := d.r.u32s(4)
	if err != nil {
		return err
	}
	name, err := d.r.cstring()
	if err != nil {
		return err
	}
	return d.wrap(d.cat.AddBuffer(catalog.Buffer{
		Name:           d.cat.Names().Intern(name),
		Index:          v[0],
		ByteSize:       v[1],
		SubBufferCount: v[2],
		CPUAccessible:  v[3] == 1,
	}))
}

func (d *decoder) ui() error {
	kind, err := d.r.u32()
	if err != nil {
		return err
	}
	if kind == uiSizeKind {
		size, err := d.r.u32()
		if err != nil {
			return err
		}
		d.cat.SetUIStateSize(size)
		return nil
	}
	if !catalog.UIKind(kind).Valid() {
		return d.r.fail("unknown UI sub-kind", nil)
	}
	offset, err := d.r.u32()
	if err != nil {
		return err
	}
	name, err := d.r.cstring()
	if err != nil {
		return err
	}
	return d.wrap(d.cat.AddUIElement(catalog.UIElement{
		Name:   d.cat.Names().Intern(name),
		Kind:   catalog.UIKind(kind),
		Offset: offset,
	}))
}

func (d *decoder) uiUpdate() error {
	v, err := d.r.u32s(2)
	if err != nil {
		return err
	}
	data, err := d.r.span(v[0], v[1])
	if err != nil {
		return err
	}
	return d.wrap(d.cat.UpdateUIState(data))
}

func (d *decoder) computeShader() error {
	idx, err := d.r.u32()
	if err != nil {
		return err
	}
	name, err := d.r.cstring()
	if err != nil {
		return err
	}
	return d.wrap(d.cat.AddComputeShader(catalog.ComputeShader{
		Name:  d.cat.Names().Intern(name),
		Index: idx,
	}))
}

func (d *decoder) task() error {
	idx, err := d.r.u32()
	if err != nil {
		return err
	}
	name, err := d.r.cstring()
	if err != nil {
		return err
	}
	return d.wrap(d.cat.AddTask(catalog.Task{
		Name:  d.cat.Names().Intern(name),
		Index: idx,
	}))
}

func (d *decoder) constant() error {
	k, err := d.r.u8()
	if err != nil {
		return err
	}
	kind := catalog.ConstKind(k)
	if !kind.Valid() {
		return d.r.fail("unknown constant kind", nil)
	}
	bits, err := d.r.u32()
	if err != nil {
		return err
	}
	name, err := d.r.cstring()
	if err != nil {
		return err
	}
	return d.wrap(d.cat.AddConstant(catalog.Constant{
		Name: d.cat.Names().Intern(name),
		Kind: kind,
		Bits: bits,
	}))
}

// reinitProject discards the current generation. The records that follow
// rebuild it.
func (d *decoder) reinitProject() error {
	d.cat.Reset()
	d.reinit = true
	return nil
}
