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
	"fmt"

	"bringup.dev/bringup/pkg/bits"
	"bringup.dev/bringup/pkg/hostarch"
	"bringup.dev/bringup/pkg/ring0/pagetables"
)

// MAIR_EL1 attribute encodings.
const (
	// mairDevice is Device-nGnRnE.
	mairDevice = 0x00

	// mairNormalNC is Normal memory, inner and outer non-cacheable.
	mairNormalNC = 0x44

	// mairNormalWB is Normal memory, inner and outer write-back
	// read/write-allocate, non-transient.
	mairNormalWB = 0xff
)

// TCR_EL1 fields.
const (
	tcrT0SZHi    = 5
	tcrT0SZLo    = 0
	tcrIRGN0Hi   = 9
	tcrIRGN0Lo   = 8
	tcrORGN0Hi   = 11
	tcrORGN0Lo   = 10
	tcrSH0Hi     = 13
	tcrSH0Lo     = 12
	tcrTG0Hi     = 15
	tcrTG0Lo     = 14
	tcrT1SZHi    = 21
	tcrT1SZLo    = 16
	tcrEPD1Bit   = 23
	tcrTG1Hi     = 31
	tcrTG1Lo     = 30
	tcrIPSHi     = 34
	tcrIPSLo     = 32
	tcrTxSZ      = 64 - hostarch.AddressBits
	tcrRGNWBWA   = 0b01
	tcrTG0Gran64 = 0b01
	tcrTG1Gran64 = 0b11
	tcrIPS48     = 0b101
)

// SCTLR_EL1 bits.
const (
	sctlrM = 1 << 0
	sctlrC = 1 << 2
	sctlrI = 1 << 12

	// sctlrRES1 are the bits that read as one on ARMv8.0.
	sctlrRES1 = 1<<29 | 1<<28 | 1<<23 | 1<<22 | 1<<20 | 1<<11
)

// ttbrASIDShift is the position of the ASID in TTBR0_EL1.
const ttbrASIDShift = 48

// Registers are the system register values that enable translation.
type Registers struct {
	MAIR  uint64
	TCR   uint64
	TTBR0 uint64
	SCTLR uint64
}

// MAIR returns the MAIR_EL1 value matching the attribute indices used by
// page descriptors.
func MAIR() uint64 {
	var v uint64
	v = bits.SetField64(v, 8*pagetables.AttrIndexDevice+7, 8*pagetables.AttrIndexDevice, mairDevice)
	v = bits.SetField64(v, 8*pagetables.AttrIndexNormalNC+7, 8*pagetables.AttrIndexNormalNC, mairNormalNC)
	v = bits.SetField64(v, 8*pagetables.AttrIndexNormalWB+7, 8*pagetables.AttrIndexNormalWB, mairNormalWB)
	return v
}

// TCR returns the TCR_EL1 value for a 64KB granule and 48-bit input and
// output addresses. Walks through TTBR1_EL1 are disabled.
func TCR() uint64 {
	var v uint64
	v = bits.SetField64(v, tcrT0SZHi, tcrT0SZLo, tcrTxSZ)
	v = bits.SetField64(v, tcrIRGN0Hi, tcrIRGN0Lo, tcrRGNWBWA)
	v = bits.SetField64(v, tcrORGN0Hi, tcrORGN0Lo, tcrRGNWBWA)
	v = bits.SetField64(v, tcrSH0Hi, tcrSH0Lo, pagetables.SHInner)
	v = bits.SetField64(v, tcrTG0Hi, tcrTG0Lo, tcrTG0Gran64)
	v = bits.SetField64(v, tcrT1SZHi, tcrT1SZLo, tcrTxSZ)
	v = bits.SetBit64(v, tcrEPD1Bit, true)
	v = bits.SetField64(v, tcrTG1Hi, tcrTG1Lo, tcrTG1Gran64)
	v = bits.SetField64(v, tcrIPSHi, tcrIPSLo, tcrIPS48)
	return v
}

// TTBR0 returns the TTBR0_EL1 value for the given level 1 table.
func TTBR0(root hostarch.Addr, asid uint8) uint64 {
	return uint64(root)&uint64(hostarch.AddressMask) | uint64(asid)<<ttbrASIDShift
}

// SCTLR returns the SCTLR_EL1 value with the MMU and both caches enabled.
func SCTLR() uint64 {
	return sctlrRES1 | sctlrM | sctlrC | sctlrI
}

// NewRegisters returns the register values for an address space.
func NewRegisters(as *pagetables.AddressSpace, asid uint8) Registers {
	return Registers{
		MAIR:  MAIR(),
		TCR:   TCR(),
		TTBR0: TTBR0(as.Root(), asid),
		SCTLR: SCTLR(),
	}
}

// String implements fmt.Stringer.String.
func (r Registers) String() string {
	return fmt.Sprintf("MAIR_EL1=%#x TCR_EL1=%#x TTBR0_EL1=%#x SCTLR_EL1=%#x", r.MAIR, r.TCR, r.TTBR0, r.SCTLR)
}
