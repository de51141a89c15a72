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

// Package protocol implements the Fluorescence wire format carried in the
// shared arena.
//
// The client writes a command list each tick: fixed-size records packed
// from the front of the arena, with variable-length payloads packed from the
// back (see Frame). The host answers with a message packet read from the
// front: a greeting tag followed by tagged records up to FINISH.
//
// All integers are little-endian. Names are NUL-terminated UTF-8 of at most
// MaxNameLen bytes.
package protocol

import "fmt"

// CmdType is the leading tag of a client command record.
type CmdType uint32

const (
	CmdFinish             CmdType = 0
	CmdUintParam          CmdType = 1
	CmdPushConstants      CmdType = 2
	CmdDispatch           CmdType = 3
	CmdBarrierRW          CmdType = 4
	CmdBufferWrite        CmdType = 5
	CmdBufferStagedUpload CmdType = 6
	CmdUniformWrite       CmdType = 7
	CmdRunTask            CmdType = 8
)

var cmdNames = map[CmdType]string{
	CmdFinish:             "FINISH",
	CmdUintParam:          "UINT_PARAM",
	CmdPushConstants:      "PUSH_CONSTANTS",
	CmdDispatch:           "DISPATCH",
	CmdBarrierRW:          "BARRIER_RW",
	CmdBufferWrite:        "BUFFER_WRITE",
	CmdBufferStagedUpload: "BUFFER_STAGED_UPLOAD",
	CmdUniformWrite:       "UNIFORM_WRITE",
	CmdRunTask:            "RUN_TASK",
}

func (t CmdType) String() string {
	if s, ok := cmdNames[t]; ok {
		return s
	}
	return fmt.Sprintf("CMD(%d)", uint32(t))
}

// MsgType is the leading tag of a host message record.
type MsgType uint32

const (
	MsgFinish        MsgType = 0
	MsgBuffer        MsgType = 1
	MsgUI            MsgType = 2
	MsgUIUpdate      MsgType = 3
	MsgComputeShader MsgType = 4
	MsgTask          MsgType = 5
	MsgConst         MsgType = 6
	MsgReinit        MsgType = 7

	// MsgGreet opens every host packet.
	MsgGreet MsgType = 0x1F1F1F1F
	// MsgFailed replaces the greeting when the host could not start.
	MsgFailed MsgType = 0xFFFFFFFF
)

var msgNames = map[MsgType]string{
	MsgFinish:        "FINISH",
	MsgBuffer:        "BUFFER",
	MsgUI:            "UI",
	MsgUIUpdate:      "UI_UPDATE",
	MsgComputeShader: "COMPUTE_SHADER",
	MsgTask:          "TASK",
	MsgConst:         "CONST",
	MsgReinit:        "REINIT",
	MsgGreet:         "GREET",
	MsgFailed:        "FAILED",
}

func (t MsgType) String() string {
	if s, ok := msgNames[t]; ok {
		return s
	}
	return fmt.Sprintf("MSG(%#x)", uint32(t))
}

// uiSizeKind is the UI sub-kind declaring the UI state buffer size. Sub-kinds
// 1-4 are catalog.UIKind values.
const uiSizeKind = 0

const (
	// MaxNameLen bounds the scan for a name's NUL terminator.
	MaxNameLen = 1000

	tagSize = 4
	// FinishSize is the size of the FINISH record that ends a command list.
	FinishSize = tagSize
)
