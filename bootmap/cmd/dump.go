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
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"
	"gopkg.in/yaml.v3"

	"bringup.dev/bringup/bootmap/cmd/util"
	"bringup.dev/bringup/bootmap/config"
	"bringup.dev/bringup/pkg/log"
	"bringup.dev/bringup/pkg/ring0"
	"bringup.dev/bringup/pkg/ring0/pagetables"
)

// Dump implements subcommands.Command for the "dump" command.
type Dump struct {
	format string
	ranges bool
}

// Name implements subcommands.Command.Name.
func (*Dump) Name() string {
	return "dump"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Dump) Synopsis() string {
	return "print the translation tables built for a board"
}

// Usage implements subcommands.Command.Usage.
func (*Dump) Usage() string {
	return `dump [flags] [board file] - build the tables and print every valid descriptor and the register values.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (d *Dump) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.format, "format", "text", "output format: text (default), json, or yaml.")
	f.BoolVar(&d.ranges, "ranges", false, "print coalesced mapped ranges instead of descriptors.")
}

// Execute implements subcommands.Command.Execute.
func (d *Dump) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config.Config)
	path, rest, err := boardPath(conf, f)
	if err != nil || len(rest) != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	board, as, cpu, err := build(path, bootCore, log.Log())
	if err != nil {
		util.Fatalf("building %s: %v", path, err)
	}
	out := newTableDump(board, as, cpu.regs, d.ranges)
	if err := out.write(os.Stdout, d.format); err != nil {
		util.Fatalf("%v", err)
	}
	return subcommands.ExitSuccess
}

// tableDump is the printed form of an address space.
type tableDump struct {
	Board     string       `json:"board" yaml:"board"`
	Root      string       `json:"root" yaml:"root"`
	Registers registerDump `json:"registers" yaml:"registers"`
	Stats     statsDump    `json:"stats" yaml:"stats"`
	Entries   []entryDump  `json:"entries,omitempty" yaml:"entries,omitempty"`
	Ranges    []rangeDump  `json:"ranges,omitempty" yaml:"ranges,omitempty"`
}

type registerDump struct {
	MAIR  string `json:"mair_el1" yaml:"mair_el1"`
	TCR   string `json:"tcr_el1" yaml:"tcr_el1"`
	TTBR0 string `json:"ttbr0_el1" yaml:"ttbr0_el1"`
	SCTLR string `json:"sctlr_el1" yaml:"sctlr_el1"`
}

type statsDump struct {
	Regions      int    `json:"regions" yaml:"regions"`
	PagesMapped  uint64 `json:"pages_mapped" yaml:"pages_mapped"`
	PagesSkipped uint64 `json:"pages_skipped" yaml:"pages_skipped"`
	L2Tables     int    `json:"l2_tables" yaml:"l2_tables"`
	L3Tables     int    `json:"l3_tables" yaml:"l3_tables"`
}

type entryDump struct {
	Level   int    `json:"level" yaml:"level"`
	Table   string `json:"table" yaml:"table"`
	Index   uint16 `json:"index" yaml:"index"`
	Virtual string `json:"virtual" yaml:"virtual"`
	Raw     string `json:"raw" yaml:"raw"`
	Next    string `json:"next" yaml:"next"`
}

type rangeDump struct {
	Start    string `json:"start" yaml:"start"`
	End      string `json:"end" yaml:"end"`
	Physical string `json:"physical" yaml:"physical"`
	Attrs    string `json:"attrs" yaml:"attrs"`
}

func hex(v uint64) string {
	return fmt.Sprintf("%#x", v)
}

func newTableDump(board *ring0.Board, as *pagetables.AddressSpace, regs ring0.Registers, ranges bool) *tableDump {
	s := as.Stats()
	d := &tableDump{
		Board: board.Name,
		Root:  as.Root().String(),
		Registers: registerDump{
			MAIR:  hex(regs.MAIR),
			TCR:   hex(regs.TCR),
			TTBR0: hex(regs.TTBR0),
			SCTLR: hex(regs.SCTLR),
		},
		Stats: statsDump{
			Regions:      s.Regions,
			PagesMapped:  s.PagesMapped,
			PagesSkipped: s.PagesSkipped,
			L2Tables:     s.L2Tables,
			L3Tables:     s.L3Tables,
		},
	}
	if ranges {
		for _, r := range as.Ranges() {
			d.Ranges = append(d.Ranges, rangeDump{
				Start:    r.Virtual.Start.String(),
				End:      r.Virtual.End.String(),
				Physical: r.Physical.String(),
				Attrs:    attrString(r.Fields),
			})
		}
		return d
	}
	for e := range as.Entries() {
		d.Entries = append(d.Entries, entryDump{
			Level:   e.Level,
			Table:   e.Table.String(),
			Index:   e.Index,
			Virtual: e.Virtual.String(),
			Raw:     fmt.Sprintf("%#016x", e.Raw),
			Next:    e.Next().String(),
		})
	}
	return d
}

// attrString formats leaf attributes the way MapOpts.String does.
func attrString(f pagetables.PageFields) string {
	perms := []byte("r--")
	if f.AP == pagetables.APReadWrite {
		perms[1] = 'w'
	}
	if !f.PXN {
		perms[2] = 'x'
	}
	return fmt.Sprintf("%s attr%d", perms, f.AttrIndex)
}

func (d *tableDump) write(w io.Writer, format string) error {
	switch format {
	case "json":
		b, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling tables: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("error marshaling tables: %w", err)
		}
		return enc.Close()
	case "text":
		return d.writeText(w)
	}
	return fmt.Errorf("invalid format %q, must be 'text', 'json', or 'yaml'", format)
}

func (d *tableDump) writeText(w io.Writer) error {
	fmt.Fprintf(w, "board %s, root %s\n", d.Board, d.Root)
	fmt.Fprintf(w, "MAIR_EL1=%s TCR_EL1=%s TTBR0_EL1=%s SCTLR_EL1=%s\n", d.Registers.MAIR, d.Registers.TCR, d.Registers.TTBR0, d.Registers.SCTLR)
	fmt.Fprintf(w, "%d regions, %d pages mapped, %d already present, %d L2 and %d L3 tables\n\n",
		d.Stats.Regions, d.Stats.PagesMapped, d.Stats.PagesSkipped, d.Stats.L2Tables, d.Stats.L3Tables)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	if d.Ranges != nil {
		fmt.Fprintln(tw, "VIRTUAL\tPHYSICAL\tATTRS")
		for _, r := range d.Ranges {
			fmt.Fprintf(tw, "[%s, %s)\t%s\t%s\n", r.Start, r.End, r.Physical, r.Attrs)
		}
		return tw.Flush()
	}
	fmt.Fprintln(tw, "LEVEL\tTABLE\tINDEX\tVIRTUAL\tRAW\tNEXT")
	for _, e := range d.Entries {
		indent := strings.Repeat(" ", 2*(e.Level-1))
		fmt.Fprintf(tw, "%sL%d\t%s\t%d\t%s\t%s\t%s\n", indent, e.Level, e.Table, e.Index, e.Virtual, e.Raw, e.Next)
	}
	return tw.Flush()
}
