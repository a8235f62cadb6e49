// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd holds implementations of the bootmap commands.
package cmd

import (
	"flag"
	"fmt"

	"bringup.dev/bringup/bootmap/config"
	"bringup.dev/bringup/pkg/log"
	"bringup.dev/bringup/pkg/ring0"
	"bringup.dev/bringup/pkg/ring0/pagetables"
)

// boardPath returns the board file named by the -board flag, or else the
// first positional argument. The remaining arguments are returned as well.
func boardPath(conf *config.Config, f *flag.FlagSet) (string, []string, error) {
	if conf.BoardFile != "" {
		return conf.BoardFile, f.Args(), nil
	}
	if f.NArg() == 0 {
		return "", nil, fmt.Errorf("no board file, use -board or pass one as the first argument")
	}
	return f.Arg(0), f.Args()[1:], nil
}

// bootCore selects the board's own boot core as the simulated core.
const bootCore = -1

// build runs bring-up for the board file at path on a simulated core. A core
// of bootCore simulates the core named by the board.
func build(path string, core int, logger log.Logger) (*ring0.Board, *pagetables.AddressSpace, *simCPU, error) {
	board, syms, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}
	if core == bootCore {
		core = board.BootCoreID
	}
	board.KernelMain = func() {
		logger.Infof("%s: kernel entered", board.Name)
	}
	cpu := newSimCPU(core, logger)
	as, err := ring0.BringUp(board, syms, cpu, pagetables.WithLogger(logger))
	return board, as, cpu, err
}
