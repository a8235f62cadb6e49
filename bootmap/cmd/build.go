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

package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"bringup.dev/bringup/bootmap/cmd/util"
	"bringup.dev/bringup/bootmap/config"
	"bringup.dev/bringup/pkg/log"
	"bringup.dev/bringup/pkg/ring0"
)

// Build implements subcommands.Command for the "build" command.
type Build struct {
	core int
}

// Name implements subcommands.Command.Name.
func (*Build) Name() string {
	return "build"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Build) Synopsis() string {
	return "run bring-up for a board on a simulated core"
}

// Usage implements subcommands.Command.Usage.
func (*Build) Usage() string {
	return `build [flags] [board file] - build the translation tables, program the simulated MMU and enter the kernel.

On failure, exits with the fault code the core would have halted with.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (b *Build) SetFlags(f *flag.FlagSet) {
	f.IntVar(&b.core, "core", bootCore, "ID of the simulated core, or -1 for the board's boot core.")
}

// Execute implements subcommands.Command.Execute.
func (b *Build) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config.Config)
	path, rest, err := boardPath(conf, f)
	if err != nil || len(rest) != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	board, as, cpu, err := build(path, b.core, log.Log())
	switch {
	case errors.Is(err, ring0.ErrParked):
		fmt.Fprintf(os.Stdout, "core %d parked\n", cpu.CoreID())
		return subcommands.ExitSuccess
	case err != nil && cpu != nil && cpu.halted != ring0.FaultNone:
		util.Errorf("bring-up failed with fault %d (%v): %v", cpu.halted, cpu.halted, err)
		return subcommands.ExitStatus(cpu.halted)
	case err != nil:
		util.Fatalf("loading board: %v", err)
	}

	s := as.Stats()
	fmt.Fprintf(os.Stdout, "%s: %d regions, %d pages, %d L2 and %d L3 tables, root %v\n",
		board.Name, s.Regions, s.PagesMapped, s.L2Tables, s.L3Tables, as.Root())
	fmt.Fprintf(os.Stdout, "%v\n", cpu.regs)
	return subcommands.ExitSuccess
}
