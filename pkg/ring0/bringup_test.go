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

package ring0

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bringup.dev/bringup/pkg/hostarch"
	"bringup.dev/bringup/pkg/log"
	"bringup.dev/bringup/pkg/ring0/pagetables"
)

// fakeCPU records what bring-up asks of the hardware.
type fakeCPU struct {
	id      int
	events  []string
	halted  FaultCode
	regs    Registers
	entered bool
}

func (c *fakeCPU) CoreID() int { return c.id }

func (c *fakeCPU) Park() { c.events = append(c.events, "park") }

func (c *fakeCPU) Halt(code FaultCode) {
	c.events = append(c.events, "halt")
	c.halted = code
}

func (c *fakeCPU) Program(regs Registers) {
	c.events = append(c.events, "program")
	c.regs = regs
}

func (c *fakeCPU) Jump(entry func()) {
	c.events = append(c.events, "jump")
	entry()
}

func testBoard(main func()) *Board {
	return &Board{
		Name:       "test",
		BootCoreID: 0,
		ASID:       1,
		Layout: pagetables.Layout{
			L1:       0x8000_0000,
			L2:       0x8001_0000,
			L2Tables: 1,
			L3:       0x8002_0000,
			L3Tables: 2,
		},
		Targets:    KernelTargets(0x1000_0000, 0x2000_0000),
		KernelMain: main,
	}
}

var testSymbols = Symbols{
	KernelStart: 0x4000_0000,
	KernelEnd:   0x4002_8000,
	StackStart:  0x4010_0000,
	StackEnd:    0x4012_0000,
}

func testOptions(t *testing.T) []pagetables.Option {
	return []pagetables.Option{pagetables.WithLogger(&log.BasicLogger{Level: log.Debug, Emitter: log.TestEmitter(t)})}
}

func TestBringUp(t *testing.T) {
	entered := false
	board := testBoard(func() { entered = true })
	cpu := &fakeCPU{}

	as, err := BringUp(board, testSymbols, cpu, testOptions(t)...)
	if err != nil {
		t.Fatalf("BringUp failed: %v", err)
	}
	if diff := cmp.Diff([]string{"program", "jump"}, cpu.events); diff != "" {
		t.Errorf("CPU events mismatch (-want +got):\n%s", diff)
	}
	if !entered {
		t.Errorf("KernelMain was not entered")
	}
	if got, want := cpu.regs.TTBR0, uint64(1<<48|0x8000_0000); got != want {
		t.Errorf("TTBR0_EL1 = %#x, want %#x", got, want)
	}

	for _, tc := range []struct {
		virt, phys hostarch.Addr
		ok         bool
	}{
		{0x1000_0000, 0x4000_0000, true},
		// The partial final page of the kernel is mapped in full.
		{0x1002_ff00, 0x4002_ff00, true},
		{0x1003_0000, 0, false},
		{0x2001_0008, 0x4011_0008, true},
		{0x2002_0000, 0, false},
	} {
		phys, ok := as.Translate(tc.virt)
		if ok != tc.ok || (ok && phys != tc.phys) {
			t.Errorf("Translate(%v) = %v, %t, want %v, %t", tc.virt, phys, ok, tc.phys, tc.ok)
		}
	}
	if got, want := as.Stats().PagesMapped, uint64(5); got != want {
		t.Errorf("PagesMapped = %d, want %d", got, want)
	}
}

func TestBringUpSecondaryCore(t *testing.T) {
	cpu := &fakeCPU{id: 2}
	if _, err := BringUp(testBoard(nil), testSymbols, cpu, testOptions(t)...); !errors.Is(err, ErrParked) {
		t.Fatalf("BringUp = %v, want %v", err, ErrParked)
	}
	if diff := cmp.Diff([]string{"park"}, cpu.events); diff != "" {
		t.Errorf("CPU events mismatch (-want +got):\n%s", diff)
	}
}

func TestBringUpWithoutKernelMain(t *testing.T) {
	cpu := &fakeCPU{}
	if _, err := BringUp(testBoard(nil), testSymbols, cpu, testOptions(t)...); err != nil {
		t.Fatalf("BringUp failed: %v", err)
	}
	if diff := cmp.Diff([]string{"program"}, cpu.events); diff != "" {
		t.Errorf("CPU events mismatch (-want +got):\n%s", diff)
	}
}

func TestBringUpHalts(t *testing.T) {
	for _, tc := range []struct {
		name  string
		board func(*Board)
		syms  func(*Symbols)
		want  FaultCode
	}{
		{
			name: "overlapping targets",
			board: func(b *Board) {
				b.Targets[1].Virtual = 0x1002_0000
			},
			want: FaultMappingConflict,
		},
		{
			name: "pool too small",
			board: func(b *Board) {
				b.Layout.L3Tables = 1
			},
			want: FaultOutOfSlots,
		},
		{
			name: "misaligned stack",
			syms: func(s *Symbols) {
				s.StackStart += 0x100
			},
			want: FaultMisaligned,
		},
		{
			name: "unknown symbol",
			board: func(b *Board) {
				b.Targets[0].End = "__bss_end"
			},
			want: FaultSymbols,
		},
		{
			name: "overlapping layout",
			board: func(b *Board) {
				b.Layout.L3 = b.Layout.L2
			},
			want: FaultLayout,
		},
		{
			name: "backwards symbols",
			syms: func(s *Symbols) {
				s.KernelEnd = s.KernelStart - hostarch.PageSize
			},
			want: FaultRegionBounds,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			board := testBoard(func() { t.Errorf("KernelMain entered after a failure") })
			if tc.board != nil {
				tc.board(board)
			}
			syms := testSymbols
			if tc.syms != nil {
				tc.syms(&syms)
			}
			cpu := &fakeCPU{}
			_, err := BringUp(board, syms, cpu, testOptions(t)...)
			if err == nil {
				t.Fatalf("BringUp succeeded, want fault %v", tc.want)
			}
			if cpu.halted != tc.want {
				t.Errorf("halted with %v (%v), want %v", cpu.halted, err, tc.want)
			}
			if diff := cmp.Diff([]string{"halt"}, cpu.events); diff != "" {
				t.Errorf("CPU events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBoardValidate(t *testing.T) {
	for _, tc := range []struct {
		name  string
		board func(*Board)
	}{
		{"no name", func(b *Board) { b.Name = "" }},
		{"negative core", func(b *Board) { b.BootCoreID = -1 }},
		{"no targets", func(b *Board) { b.Targets = nil }},
		{"duplicate target", func(b *Board) { b.Targets[1].Name = b.Targets[0].Name }},
		{"unnamed target", func(b *Board) { b.Targets[0].Name = "" }},
		{"bad memory type", func(b *Board) { b.Targets[0].Opts.MemoryType = hostarch.NumMemoryTypes }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := testBoard(nil)
			tc.board(b)
			if err := b.Validate(); !errors.Is(err, ErrBoard) {
				t.Errorf("Validate() = %v, want %v", err, ErrBoard)
			}
		})
	}
	if err := testBoard(nil).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestSymbols(t *testing.T) {
	var s Symbols
	for i, sym := range []Symbol{SymKernelStart, SymKernelEnd, SymStackStart, SymStackEnd} {
		addr := hostarch.Addr(i+1) * hostarch.PageSize
		if err := s.Set(sym, addr); err != nil {
			t.Fatalf("Set(%q) failed: %v", sym, err)
		}
		if got, err := s.Lookup(sym); err != nil || got != addr {
			t.Errorf("Lookup(%q) = %v, %v, want %v", sym, got, err, addr)
		}
	}
	if err := s.Set("_end", 0); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("Set(_end) = %v, want %v", err, ErrUnknownSymbol)
	}
}
