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

	"bringup.dev/bringup/pkg/log"
	"bringup.dev/bringup/pkg/ring0/pagetables"
)

// ErrParked is returned on every core but the boot core, once CPU.Park
// returns. On hardware Park does not return.
var ErrParked = errors.New("core parked")

// CPU is the hardware the bring-up path drives.
type CPU interface {
	// CoreID returns the ID of the executing core.
	CoreID() int

	// Park stops a secondary core.
	Park()

	// Halt stops the core with a code identifying the failure. It is the
	// last thing called on a failed bring-up.
	Halt(code FaultCode)

	// Program writes the translation registers and enables the MMU.
	Program(regs Registers)

	// Jump transfers control to entry with the MMU on.
	Jump(entry func())
}

// BringUp builds the board's address space from syms, turns the MMU on and
// enters the kernel. Options are passed to the table builder.
//
// Any failure is fatal: BringUp halts cpu with the matching FaultCode before
// returning the error.
func BringUp(board *Board, syms Symbols, cpu CPU, opts ...pagetables.Option) (*pagetables.AddressSpace, error) {
	if id := cpu.CoreID(); id != board.BootCoreID {
		log.Debugf("Core %d is not the boot core (%d), parking", id, board.BootCoreID)
		cpu.Park()
		return nil, ErrParked
	}

	as, err := buildAddressSpace(board, syms, opts)
	if err != nil {
		code := FaultCodeOf(err)
		log.Warningf("Bring-up of %s failed, halting with fault %d (%v): %v", board.Name, code, code, err)
		cpu.Halt(code)
		return nil, err
	}

	regs := NewRegisters(as, board.ASID)
	log.Infof("Enabling MMU: %v", regs)
	cpu.Program(regs)
	if board.KernelMain != nil {
		cpu.Jump(board.KernelMain)
	}
	return as, nil
}

func buildAddressSpace(board *Board, syms Symbols, opts []pagetables.Option) (*pagetables.AddressSpace, error) {
	if err := board.Validate(); err != nil {
		return nil, err
	}
	regions, err := board.Regions(syms)
	if err != nil {
		return nil, err
	}
	b, err := pagetables.NewBuilder(board.Layout, opts...)
	if err != nil {
		return nil, err
	}
	if err := b.Build(regions); err != nil {
		return nil, fmt.Errorf("%s: %w", board.Name, err)
	}
	return b.Install()
}
