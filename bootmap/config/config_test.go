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
	"flag"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bringup.dev/bringup/pkg/hostarch"
	"bringup.dev/bringup/pkg/ring0"
	"bringup.dev/bringup/pkg/ring0/pagetables"
)

func TestDefault(t *testing.T) {
	testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(testFlags)
	c, err := NewFromFlags(testFlags)
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{LogFormat: "text"}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("NewFromFlags() mismatch (-want +got):\n%s", diff)
	}
}

func TestFromFlags(t *testing.T) {
	testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(testFlags)
	if err := testFlags.Parse([]string{"-debug", "-log=/tmp/bootmap.log", "-log-format=json", "-board=rpi3.toml"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	c, err := NewFromFlags(testFlags)
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		Debug:       true,
		LogFilename: "/tmp/bootmap.log",
		LogFormat:   "json",
		BoardFile:   "rpi3.toml",
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("NewFromFlags() mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidLogFormat(t *testing.T) {
	testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(testFlags)
	if err := testFlags.Parse([]string{"-log-format=xml"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := NewFromFlags(testFlags); err == nil {
		t.Errorf("NewFromFlags() succeeded with an invalid log format")
	}
}

func TestLoad(t *testing.T) {
	board, syms, err := Load("testdata/rpi3.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	wantSyms := ring0.Symbols{
		KernelStart: 0x8_0000,
		KernelEnd:   0x12_4000,
		StackStart:  0x20_0000,
		StackEnd:    0x24_0000,
	}
	if diff := cmp.Diff(wantSyms, syms); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}
	wantBoard := &ring0.Board{
		Name: "rpi3",
		Layout: pagetables.Layout{
			L1:       0x40_0000,
			L2:       0x41_0000,
			L2Tables: 1,
			L3:       0x42_0000,
			L3Tables: 2,
		},
		Targets: ring0.KernelTargets(0x1000_0000, 0x2000_0000),
	}
	if diff := cmp.Diff(wantBoard, board); diff != "" {
		t.Errorf("board mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeBoardErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		file string
		want error
	}{
		{
			name: "syntax",
			file: `name = `,
			want: ErrBoardFile,
		},
		{
			name: "unknown key",
			file: "name = \"x\"\n[tables]\nl4 = 0x1000\n",
			want: ErrBoardFile,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeBoard(strings.NewReader(tc.file)); !errors.Is(err, tc.want) {
				t.Errorf("DecodeBoard = %v, want %v", err, tc.want)
			}
		})
	}
}

const minimalBoard = `
name = "min"

[tables]
l1 = 0x10_0000
l2 = 0x11_0000
l2_tables = 1
l3 = 0x12_0000
l3_tables = 1

[symbols]
__kernel_start = 0x1_0000
__kernel_end = 0x2_0000
`

func TestBoardConversion(t *testing.T) {
	for _, tc := range []struct {
		name    string
		regions string
		want    error
		opts    pagetables.MapOpts
	}{
		{
			name: "device memory",
			regions: `
[[region]]
name = "uart"
start = "__kernel_start"
end = "__kernel_end"
virtual = 0x3f20_0000
memory = "device"
read_only = true
`,
			opts: pagetables.MapOpts{MemoryType: hostarch.MemoryTypeUncached, ReadOnly: true},
		},
		{
			name: "bad memory type",
			regions: `
[[region]]
name = "uart"
start = "__kernel_start"
end = "__kernel_end"
memory = "strongly-ordered"
`,
			want: ErrBoardFile,
		},
		{
			name: "unknown symbol",
			regions: `
[[region]]
name = "bss"
start = "__bss_start"
end = "__kernel_end"
`,
			want: ring0.ErrUnknownSymbol,
		},
		{
			name: "no regions",
			want: ring0.ErrBoard,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f, err := DecodeBoard(strings.NewReader(minimalBoard + tc.regions))
			if err != nil {
				t.Fatalf("DecodeBoard failed: %v", err)
			}
			b, err := f.Board()
			if tc.want != nil {
				if !errors.Is(err, tc.want) {
					t.Errorf("Board() = %v, want %v", err, tc.want)
				}
				return
			}
			if err != nil {
				t.Fatalf("Board() failed: %v", err)
			}
			if diff := cmp.Diff(tc.opts, b.Targets[0].Opts); diff != "" {
				t.Errorf("opts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLinkerSymbols(t *testing.T) {
	f, err := DecodeBoard(strings.NewReader(minimalBoard + `
[[region]]
name = "stack"
start = "__kernel_stack_start"
end = "__kernel_stack_end"
`))
	if err != nil {
		t.Fatalf("DecodeBoard failed: %v", err)
	}
	if _, err := f.LinkerSymbols(); !errors.Is(err, ErrBoardFile) {
		t.Errorf("LinkerSymbols() = %v, want %v", err, ErrBoardFile)
	}

	f.Symbols["_end"] = 0
	if _, err := f.LinkerSymbols(); !errors.Is(err, ring0.ErrUnknownSymbol) {
		t.Errorf("LinkerSymbols() = %v, want %v", err, ring0.ErrUnknownSymbol)
	}
}
