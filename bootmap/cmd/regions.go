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
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"bringup.dev/bringup/bootmap/cmd/util"
	"bringup.dev/bringup/bootmap/config"
)

// Regions implements subcommands.Command for the "regions" command.
type Regions struct {
	pages bool
}

// Name implements subcommands.Command.Name.
func (*Regions) Name() string {
	return "regions"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Regions) Synopsis() string {
	return "list the regions a board maps"
}

// Usage implements subcommands.Command.Usage.
func (*Regions) Usage() string {
	return `regions [flags] [board file] - resolve the board's regions against its symbols and list them.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Regions) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.pages, "pages", false, "list every (virtual, physical) page pair.")
}

// Execute implements subcommands.Command.Execute.
func (r *Regions) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config.Config)
	path, rest, err := boardPath(conf, f)
	if err != nil || len(rest) != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	board, syms, err := config.Load(path)
	if err != nil {
		util.Fatalf("%v", err)
	}
	regions, err := board.Regions(syms)
	if err != nil {
		util.Fatalf("resolving regions: %v", err)
	}
	for _, reg := range regions {
		fmt.Fprintf(os.Stdout, "%v\n", reg)
		if err := reg.Validate(); err != nil {
			fmt.Fprintf(os.Stdout, "  invalid: %v\n", err)
			continue
		}
		if !r.pages {
			continue
		}
		for virt, phys := range reg.Pages() {
			fmt.Fprintf(os.Stdout, "  %v -> %v\n", virt, phys)
		}
	}
	return subcommands.ExitSuccess
}
