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
	"io"
	"os"
	"runtime"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"

	"bringup.dev/bringup/bootmap/config"
	"bringup.dev/bringup/pkg/log"
	"bringup.dev/bringup/pkg/ring0"
)

// Verify implements subcommands.Command for the "verify" command.
type Verify struct {
	jobs int
}

// Name implements subcommands.Command.Name.
func (*Verify) Name() string {
	return "verify"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Verify) Synopsis() string {
	return "check that bring-up succeeds for several boards"
}

// Usage implements subcommands.Command.Usage.
func (*Verify) Usage() string {
	return `verify [flags] <board file>... - run bring-up for every board and report each result.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (v *Verify) SetFlags(f *flag.FlagSet) {
	f.IntVar(&v.jobs, "j", runtime.GOMAXPROCS(0), "number of boards to build at once.")
}

// verifyResult is the outcome of one board.
type verifyResult struct {
	path  string
	board string
	pages uint64
	fault ring0.FaultCode
	err   error
}

func (r *verifyResult) String() string {
	if r.err != nil {
		return fmt.Sprintf("FAIL %s: fault %d (%v): %v", r.path, r.fault, r.fault, r.err)
	}
	return fmt.Sprintf("ok   %s: %s, %d pages", r.path, r.board, r.pages)
}

// Execute implements subcommands.Command.Execute.
func (v *Verify) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config.Config)
	paths := f.Args()
	if conf.BoardFile != "" {
		paths = append([]string{conf.BoardFile}, paths...)
	}
	if len(paths) == 0 || v.jobs < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	results, err := verifyBoards(ctx, paths, v.jobs, log.Log())
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify interrupted: %v\n", err)
		return subcommands.ExitFailure
	}
	if !report(os.Stdout, results) {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// verifyBoards builds every board, at most jobs at a time. Each build owns
// its tables; nothing is shared between goroutines but the logger. The
// returned error is only set if ctx is cancelled.
func verifyBoards(ctx context.Context, paths []string, jobs int, logger log.Logger) ([]verifyResult, error) {
	results := make([]verifyResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := &results[i]
			r.path = path
			board, as, cpu, err := build(path, bootCore, logger)
			if board != nil {
				r.board = board.Name
			}
			if err != nil {
				r.err = err
				r.fault = ring0.FaultCodeOf(err)
				if cpu != nil && cpu.halted != ring0.FaultNone {
					r.fault = cpu.halted
				}
				return nil
			}
			r.pages = as.Stats().PagesMapped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// report prints results in input order and returns whether all succeeded.
func report(w io.Writer, results []verifyResult) bool {
	ok := true
	for i := range results {
		fmt.Fprintln(w, results[i].String())
		if results[i].err != nil {
			ok = false
		}
	}
	return ok
}
