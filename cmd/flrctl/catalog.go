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

package main

import (
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nithinp7/Fluorescence/internal/catalog"
	"github.com/nithinp7/Fluorescence/pkg/flr"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [project]",
	Short: "Handshake with the host and print the project it describes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		s, err := flr.Open(cmd.Context(), cfg, flr.WithLogger(logger), flr.WithOutput(nil, cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		defer s.Close()
		return printCatalog(cmd.OutOrStdout(), s.Catalog())
	},
}

type catalogSnapshot struct {
	Generation     uint64          `yaml:"generation"`
	Buffers        []bufferEntry   `yaml:"buffers,omitempty"`
	ComputeShaders []string        `yaml:"compute_shaders,omitempty"`
	Tasks          []string        `yaml:"tasks,omitempty"`
	UIStateSize    int             `yaml:"ui_state_size,omitempty"`
	UI             []uiEntry       `yaml:"ui,omitempty"`
	Constants      []constantEntry `yaml:"constants,omitempty"`
}

type bufferEntry struct {
	Name       string `yaml:"name"`
	Size       uint32 `yaml:"size"`
	SubBuffers uint32 `yaml:"sub_buffers"`
	CPU        bool   `yaml:"cpu"`
}

type uiEntry struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Offset uint32 `yaml:"offset"`
}

type constantEntry struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Value any    `yaml:"value"`
}

func snapshot(cat *catalog.Catalog) catalogSnapshot {
	names := cat.Names()
	snap := catalogSnapshot{
		Generation:  cat.Generation(),
		UIStateSize: len(cat.UIState()),
	}
	for _, b := range cat.Buffers() {
		snap.Buffers = append(snap.Buffers, bufferEntry{
			Name:       names.Name(b.Name),
			Size:       b.ByteSize,
			SubBuffers: b.SubBufferCount,
			CPU:        b.CPUAccessible,
		})
	}
	for _, cs := range cat.ComputeShaders() {
		snap.ComputeShaders = append(snap.ComputeShaders, names.Name(cs.Name))
	}
	for _, t := range cat.Tasks() {
		snap.Tasks = append(snap.Tasks, names.Name(t.Name))
	}
	for _, k := range []catalog.UIKind{catalog.UIUintSlider, catalog.UIIntSlider, catalog.UIFloatSlider, catalog.UICheckbox} {
		for _, e := range cat.UIElements(k) {
			snap.UI = append(snap.UI, uiEntry{Name: names.Name(e.Name), Kind: k.String(), Offset: e.Offset})
		}
	}
	for _, c := range cat.Constants() {
		e := constantEntry{Name: names.Name(c.Name), Kind: c.Kind.String()}
		switch c.Kind {
		case catalog.ConstInt:
			e.Value = c.Int()
		case catalog.ConstUint:
			e.Value = c.Uint()
		default:
			e.Value = c.Float()
		}
		snap.Constants = append(snap.Constants, e)
	}
	return snap
}

func printCatalog(w io.Writer, cat *catalog.Catalog) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snapshot(cat)); err != nil {
		return err
	}
	return enc.Close()
}
