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

package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"bringup.dev/bringup/pkg/hostarch"
	"bringup.dev/bringup/pkg/ring0"
	"bringup.dev/bringup/pkg/ring0/pagetables"
)

// ErrBoardFile means a board file could not be used.
var ErrBoardFile = errors.New("invalid board file")

// BoardFile is the on-disk description of a board.
//
// Example:
//
//	name = "rpi3"
//	boot_core = 0
//
//	[tables]
//	l1 = 0x0020_0000
//	l2 = 0x0021_0000
//	l2_tables = 1
//	l3 = 0x0022_0000
//	l3_tables = 2
//
//	[symbols]
//	__kernel_start = 0x0008_0000
//	__kernel_end = 0x0010_0000
//
//	[[region]]
//	name = "kernel"
//	start = "__kernel_start"
//	end = "__kernel_end"
//	virtual = 0x1000_0000
//	execute = true
type BoardFile struct {
	Name     string `toml:"name"`
	BootCore int    `toml:"boot_core"`
	ASID     uint8  `toml:"asid"`

	Tables TablesFile `toml:"tables"`

	// Symbols are the linker symbol addresses. They are normally taken
	// from the kernel image; the file carries them for off-target builds.
	Symbols map[string]uint64 `toml:"symbols"`

	Regions []RegionFile `toml:"region"`
}

// TablesFile is the [tables] section.
type TablesFile struct {
	L1       uint64 `toml:"l1"`
	L2       uint64 `toml:"l2"`
	L2Tables int    `toml:"l2_tables"`
	L3       uint64 `toml:"l3"`
	L3Tables int    `toml:"l3_tables"`
}

// RegionFile is a [[region]] entry.
type RegionFile struct {
	Name     string `toml:"name"`
	Start    string `toml:"start"`
	End      string `toml:"end"`
	Virtual  uint64 `toml:"virtual"`
	Memory   string `toml:"memory"`
	ReadOnly bool   `toml:"read_only"`
	Execute  bool   `toml:"execute"`
}

// LoadBoard reads a board file.
func LoadBoard(path string) (*BoardFile, error) {
	var f BoardFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrBoardFile, path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrBoardFile, path, err)
	}
	return &f, nil
}

// DecodeBoard reads a board file from r.
func DecodeBoard(r io.Reader) (*BoardFile, error) {
	var f BoardFile
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBoardFile, err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBoardFile, err)
	}
	return &f, nil
}

// checkUndecoded rejects keys that match no field. A misspelt key would
// otherwise silently leave a region or table placement at zero.
func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(names, ", "))
}

// Board converts the file to a board description.
func (f *BoardFile) Board() (*ring0.Board, error) {
	b := &ring0.Board{
		Name:       f.Name,
		BootCoreID: f.BootCore,
		ASID:       f.ASID,
		Layout: pagetables.Layout{
			L1:       hostarch.Addr(f.Tables.L1),
			L2:       hostarch.Addr(f.Tables.L2),
			L2Tables: f.Tables.L2Tables,
			L3:       hostarch.Addr(f.Tables.L3),
			L3Tables: f.Tables.L3Tables,
		},
	}
	for _, r := range f.Regions {
		mt, err := hostarch.ParseMemoryType(r.Memory)
		if err != nil {
			return nil, fmt.Errorf("%w: region %q: %w", ErrBoardFile, r.Name, err)
		}
		b.Targets = append(b.Targets, ring0.Target{
			Name:    r.Name,
			Start:   ring0.Symbol(r.Start),
			End:     ring0.Symbol(r.End),
			Virtual: hostarch.Addr(r.Virtual),
			Opts: pagetables.MapOpts{
				MemoryType: mt,
				ReadOnly:   r.ReadOnly,
				Execute:    r.Execute,
			},
		})
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// LinkerSymbols returns the symbol addresses listed in the file.
func (f *BoardFile) LinkerSymbols() (ring0.Symbols, error) {
	var syms ring0.Symbols
	for name, addr := range f.Symbols {
		if err := syms.Set(ring0.Symbol(name), hostarch.Addr(addr)); err != nil {
			return ring0.Symbols{}, fmt.Errorf("%w: %w", ErrBoardFile, err)
		}
	}
	for _, r := range f.Regions {
		for _, sym := range []string{r.Start, r.End} {
			if _, ok := f.Symbols[sym]; !ok {
				return ring0.Symbols{}, fmt.Errorf("%w: region %q uses symbol %q, which has no address", ErrBoardFile, r.Name, sym)
			}
		}
	}
	return syms, nil
}

// Load reads a board file and returns both the board and its symbols.
func Load(path string) (*ring0.Board, ring0.Symbols, error) {
	f, err := LoadBoard(path)
	if err != nil {
		return nil, ring0.Symbols{}, err
	}
	b, err := f.Board()
	if err != nil {
		return nil, ring0.Symbols{}, fmt.Errorf("%s: %w", path, err)
	}
	syms, err := f.LinkerSymbols()
	if err != nil {
		return nil, ring0.Symbols{}, fmt.Errorf("%s: %w", path, err)
	}
	return b, syms, nil
}
