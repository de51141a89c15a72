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

// cmdDecoders decodes the arguments of each command record. Payload bytes
// are copied out of the arena.
var cmdDecoders = map[CmdType]func(r *reader) (Command, error){
	CmdUintParam: func(r *reader) (Command, error) {
		v, err := r.u32s(3)
		if err != nil {
			return nil, err
		}
		name, err := r.span(v[0], v[1])
		if err != nil {
			return nil, err
		}
		return UintParam{Name: string(name), Value: v[2]}, nil
	},
	CmdPushConstants: func(r *reader) (Command, error) {
		v, err := r.u32s(4)
		if err != nil {
			return nil, err
		}
		return PushConstants{P0: v[0], P1: v[1], P2: v[2], P3: v[3]}, nil
	},
	CmdDispatch: func(r *reader) (Command, error) {
		v, err := r.u32s(4)
		if err != nil {
			return nil, err
		}
		return Dispatch{Shader: v[0], GroupX: v[1], GroupY: v[2], GroupZ: v[3]}, nil
	},
	CmdBarrierRW: func(r *reader) (Command, error) {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		return BarrierRW{Buffer: v}, nil
	},
	CmdBufferWrite: func(r *reader) (Command, error) {
		v, err := r.u32s(5)
		if err != nil {
			return nil, err
		}
		data, err := r.span(v[2], v[4])
		if err != nil {
			return nil, err
		}
		return BufferWrite{Buffer: v[0], SubBuffer: v[1], DstOffset: v[3], Data: clone(data)}, nil
	},
	CmdBufferStagedUpload: func(r *reader) (Command, error) {
		v, err := r.u32s(4)
		if err != nil {
			return nil, err
		}
		data, err := r.span(v[2], v[3])
		if err != nil {
			return nil, err
		}
		return BufferStagedUpload{Buffer: v[0], SubBuffer: v[1], Data: clone(data)}, nil
	},
	CmdUniformWrite: func(r *reader) (Command, error) {
		v, err := r.u32s(3)
		if err != nil {
			return nil, err
		}
		data, err := r.span(v[0], v[2])
		if err != nil {
			return nil, err
		}
		return UniformWrite{DstOffset: v[1], Data: clone(data)}, nil
	},
	CmdRunTask: func(r *reader) (Command, error) {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		return RunTask{Task: v}, nil
	},
}

func (r *reader) u32s(n int) ([]uint32, error) {
	out := make([]uint32, n)
	for i := range out {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

// ReadCommands decodes a finished command list from the front of arena. It
// is the host's view of a frame.
func ReadCommands(arena []byte) ([]Command, error) {
	r := &reader{b: arena}
	var cmds []Command
	for {
		start := r.off
		tag, err := r.u32()
		if err != nil {
			return cmds, err
		}
		r.tag = tag
		if CmdType(tag) == CmdFinish {
			return cmds, nil
		}
		dec, ok := cmdDecoders[CmdType(tag)]
		if !ok {
			r.off = start
			return cmds, r.fail("unknown command tag", nil)
		}
		c, err := dec(r)
		if err != nil {
			return cmds, err
		}
		cmds = append(cmds, c)
	}
}
