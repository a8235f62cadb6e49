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
	"fmt"

	"bringup.dev/bringup/pkg/hostarch"
	"bringup.dev/bringup/pkg/ring0/pagetables"
)

var (
	// ErrUnknownSymbol means a target names a symbol the linker does not
	// provide.
	ErrUnknownSymbol = errors.New("unknown linker symbol")

	// ErrBoard means the board description is unusable.
	ErrBoard = errors.New("invalid board")
)

// Symbol is the name of an address provided by the linker script.
type Symbol string

// Symbols provided by the linker script.
const (
	SymKernelStart Symbol = "__kernel_start"
	SymKernelEnd   Symbol = "__kernel_end"
	SymStackStart  Symbol = "__kernel_stack_start"
	SymStackEnd    Symbol = "__kernel_stack_end"
)

// Symbols are the physical addresses resolved by the linker.
type Symbols struct {
	KernelStart hostarch.Addr
	KernelEnd   hostarch.Addr
	StackStart  hostarch.Addr
	StackEnd    hostarch.Addr
}

// Lookup returns the address of sym.
func (s *Symbols) Lookup(sym Symbol) (hostarch.Addr, error) {
	switch sym {
	case SymKernelStart:
		return s.KernelStart, nil
	case SymKernelEnd:
		return s.KernelEnd, nil
	case SymStackStart:
		return s.StackStart, nil
	case SymStackEnd:
		return s.StackEnd, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSymbol, sym)
}

// Set stores the address of sym.
func (s *Symbols) Set(sym Symbol, addr hostarch.Addr) error {
	switch sym {
	case SymKernelStart:
		s.KernelStart = addr
	case SymKernelEnd:
		s.KernelEnd = addr
	case SymStackStart:
		s.StackStart = addr
	case SymStackEnd:
		s.StackEnd = addr
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSymbol, sym)
	}
	return nil
}

// Target maps the physical range between two symbols at a virtual base.
type Target struct {
	Name    string
	Start   Symbol
	End     Symbol
	Virtual hostarch.Addr
	Opts    pagetables.MapOpts
}

// KernelTargets returns the usual targets: the kernel image mapped
// executable at kernel, and the stack at stack.
func KernelTargets(kernel, stack hostarch.Addr) []Target {
	return []Target{
		{
			Name:    "kernel",
			Start:   SymKernelStart,
			End:     SymKernelEnd,
			Virtual: kernel,
			Opts:    pagetables.MapOpts{Execute: true},
		},
		{
			Name:    "stack",
			Start:   SymStackStart,
			End:     SymStackEnd,
			Virtual: stack,
		},
	}
}

// Board describes everything bring-up needs to know about a machine.
type Board struct {
	// Name is the board name.
	Name string

	// BootCoreID is the core that performs bring-up. All other cores park.
	BootCoreID int

	// ASID is the address space identifier loaded with the tables.
	ASID uint8

	// Layout is where the linker placed the translation tables.
	Layout pagetables.Layout

	// Targets are mapped in order.
	Targets []Target

	// KernelMain is the kernel entry point, entered with the MMU on. It may
	// be nil when only the tables are wanted.
	KernelMain func()
}

// Validate checks the board description.
func (b *Board) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: missing name", ErrBoard)
	}
	if b.BootCoreID < 0 {
		return fmt.Errorf("%w: %s: negative boot core %d", ErrBoard, b.Name, b.BootCoreID)
	}
	if len(b.Targets) == 0 {
		return fmt.Errorf("%w: %s: no regions", ErrBoard, b.Name)
	}
	var syms Symbols
	seen := make(map[string]struct{}, len(b.Targets))
	for _, t := range b.Targets {
		if t.Name == "" {
			return fmt.Errorf("%w: %s: region without a name", ErrBoard, b.Name)
		}
		if _, ok := seen[t.Name]; ok {
			return fmt.Errorf("%w: %s: duplicate region %q", ErrBoard, b.Name, t.Name)
		}
		seen[t.Name] = struct{}{}
		for _, sym := range []Symbol{t.Start, t.End} {
			if _, err := syms.Lookup(sym); err != nil {
				return fmt.Errorf("%s: region %q: %w", b.Name, t.Name, err)
			}
		}
		if t.Opts.MemoryType >= hostarch.NumMemoryTypes {
			return fmt.Errorf("%w: %s: region %q has memory type %v", ErrBoard, b.Name, t.Name, t.Opts.MemoryType)
		}
	}
	return b.Layout.Validate()
}

// Regions resolves the board's targets against syms.
func (b *Board) Regions(syms Symbols) ([]pagetables.Region, error) {
	regions := make([]pagetables.Region, 0, len(b.Targets))
	for _, t := range b.Targets {
		start, err := syms.Lookup(t.Start)
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", t.Name, err)
		}
		end, err := syms.Lookup(t.End)
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", t.Name, err)
		}
		r, err := pagetables.RegionFromSymbols(t.Name, t.Virtual, start, end, t.Opts)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, nil
}
