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
	"bringup.dev/bringup/pkg/log"
	"bringup.dev/bringup/pkg/ring0"
)

// simCPU is a ring0.CPU that logs instead of touching hardware.
type simCPU struct {
	id     int
	logger log.Logger

	parked  bool
	halted  ring0.FaultCode
	regs    ring0.Registers
	enabled bool
	entered bool
}

func newSimCPU(id int, logger log.Logger) *simCPU {
	return &simCPU{id: id, logger: logger}
}

// CoreID implements ring0.CPU.CoreID.
func (c *simCPU) CoreID() int {
	return c.id
}

// Park implements ring0.CPU.Park.
func (c *simCPU) Park() {
	c.logger.Infof("core %d: wfe loop", c.id)
	c.parked = true
}

// Halt implements ring0.CPU.Halt.
func (c *simCPU) Halt(code ring0.FaultCode) {
	c.logger.Warningf("core %d: halted, x0=%#x (%v)", c.id, uint32(code), code)
	c.halted = code
}

// Program implements ring0.CPU.Program.
func (c *simCPU) Program(regs ring0.Registers) {
	c.logger.Infof("core %d: msr mair_el1, %#x", c.id, regs.MAIR)
	c.logger.Infof("core %d: msr tcr_el1, %#x", c.id, regs.TCR)
	c.logger.Infof("core %d: msr ttbr0_el1, %#x", c.id, regs.TTBR0)
	c.logger.Infof("core %d: isb", c.id)
	c.logger.Infof("core %d: msr sctlr_el1, %#x", c.id, regs.SCTLR)
	c.logger.Infof("core %d: isb", c.id)
	c.regs = regs
	c.enabled = true
}

// Jump implements ring0.CPU.Jump.
func (c *simCPU) Jump(entry func()) {
	c.logger.Infof("core %d: br kernel_main", c.id)
	c.entered = true
	entry()
}
