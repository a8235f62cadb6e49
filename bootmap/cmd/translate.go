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
	"strconv"

	"github.com/google/subcommands"

	"bringup.dev/bringup/bootmap/cmd/util"
	"bringup.dev/bringup/bootmap/config"
	"bringup.dev/bringup/pkg/hostarch"
	"bringup.dev/bringup/pkg/log"
	"bringup.dev/bringup/pkg/ring0/pagetables"
)

// Translate implements subcommands.Command for the "translate" command.
type Translate struct{}

// Name implements subcommands.Command.Name.
func (*Translate) Name() string {
	return "translate"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Translate) Synopsis() string {
	return "walk the tables for virtual addresses"
}

// Usage implements subcommands.Command.Usage.
func (*Translate) Usage() string {
	return `translate [flags] [board file] <address>... - print the table indices and physical address for each virtual address.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Translate) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Translate) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config.Config)
	path, addrs, err := boardPath(conf, f)
	if err != nil || len(addrs) == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	virts := make([]hostarch.Addr, 0, len(addrs))
	for _, a := range addrs {
		v, err := strconv.ParseUint(a, 0, 64)
		if err != nil {
			util.Fatalf("invalid address %q: %v", a, err)
		}
		virts = append(virts, hostarch.Addr(v))
	}

	_, as, _, err := build(path, bootCore, log.Log())
	if err != nil {
		util.Fatalf("building %s: %v", path, err)
	}

	status := subcommands.ExitSuccess
	for _, v := range virts {
		if phys, ok := as.Translate(v); ok {
			fmt.Fprintf(os.Stdout, "%v %v -> %v\n", v, pagetables.IndexOf(v), phys)
		} else {
			fmt.Fprintf(os.Stdout, "%v %v not mapped\n", v, pagetables.IndexOf(v))
			status = subcommands.ExitFailure
		}
	}
	return status
}
