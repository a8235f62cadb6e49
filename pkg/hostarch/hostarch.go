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

// Package hostarch describes the address space of the bring-up target: a
// 64KB translation granule and 48-bit input and output addresses.
package hostarch

import "fmt"

const (
	// PageShift is the binary log of the translation granule.
	// 64K pages: 2^16 = 65536
	PageShift = 16

	// PageSize is the translation granule in bytes.
	PageSize = 1 << PageShift

	// AddressBits is the width of virtual and physical addresses handled by
	// the translation tables.
	AddressBits = 48

	// AddressMask selects the translated bits of an address.
	AddressMask = Addr(1)<<AddressBits - 1
)

// Addr represents a physical or virtual address on the target. It is always
// 64 bits wide, independent of the machine the code runs on.
type Addr uint64

// String implements fmt.Stringer.String.
func (v Addr) String() string {
	return fmt.Sprintf("%#x", uint64(v))
}

// RoundDown returns the address rounded down to the nearest page boundary.
func (v Addr) RoundDown() Addr {
	return v & ^Addr(PageSize-1)
}

// RoundUp returns the address rounded up to the nearest page boundary. ok is
// true iff rounding up did not wrap around.
func (v Addr) RoundUp() (addr Addr, ok bool) {
	addr = Addr(v + PageSize - 1).RoundDown()
	ok = addr >= v
	return
}

// PageOffset returns the offset of v into the current page.
func (v Addr) PageOffset() uint64 {
	return uint64(v & Addr(PageSize-1))
}

// IsPageAligned returns true if v.PageOffset() == 0.
func (v Addr) IsPageAligned() bool {
	return v.PageOffset() == 0
}

// PageNumber returns the number of the page containing v, which is the form
// in which translation descriptors store addresses.
func (v Addr) PageNumber() uint64 {
	return uint64(v) >> PageShift
}

// AddLength adds the given length to start and returns the result. ok is true
// iff adding the length did not overflow.
func (v Addr) AddLength(length uint64) (end Addr, ok bool) {
	end = v + Addr(length)
	ok = end >= v
	return
}

// Translatable returns true if v fits in the address width handled by the
// translation tables.
func (v Addr) Translatable() bool {
	return v&^AddressMask == 0
}

// PagesFor returns the number of pages needed to cover length bytes.
func PagesFor(length uint64) uint64 {
	return length>>PageShift + min(length&(PageSize-1), 1)
}
