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
	"os"

	"github.com/spf13/cobra"

	"github.com/nithinp7/Fluorescence/internal/hostsim"
)

var simulateHostCmd = &cobra.Command{
	Use:   "simulate-host <project.yaml> -ipc",
	Short: "Act as a host, serving a YAML project description",
	Long: `simulate-host attaches to the arena named by FLR_ARENA and answers the
client with the project described in the given file. Point executable at
flrctl and pass simulate-host through a wrapper script to use it with run.`,
	DisableFlagParsing: true,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(hostsim.Main(args, cmd.ErrOrStderr()))
	},
}
