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

// Package pagetables builds the ARM64 translation tables used to turn the MMU
// on during bring-up.
//
// The tables use a 64KB granule and 48-bit input addresses, which gives three
// levels: a level 1 table of table descriptors, level 2 tables of table
// descriptors and level 3 tables of page descriptors. Level 2 and level 3
// tables come from fixed-capacity pools placed by the linker; nothing is
// allocated from a heap, and nothing is ever freed.
//
// A Builder is not safe for concurrent use. Bring-up runs on a single core
// with every other core parked, which is what makes the lack of locking
// sound.
package pagetables

import "bringup.dev/bringup/pkg/hostarch"

const (
	// L1Entries is the number of descriptors in the level 1 table. Only the
	// first 1<<l1Bits are reachable with 48-bit addresses.
	L1Entries = 1024

	// L2Entries is the number of descriptors in a level 2 table.
	L2Entries = 8192

	// L3Entries is the number of descriptors in a level 3 table.
	L3Entries = 8192

	// descriptorBytes is the size of a single descriptor.
	descriptorBytes = 8

	// TableBytes is the size of a level 2 or level 3 table. It is exactly
	// one page, so consecutive pool slots stay page aligned.
	TableBytes = L2Entries * descriptorBytes

	// L1TableBytes is the size of the level 1 table.
	L1TableBytes = L1Entries * descriptorBytes
)

// Input address bit positions of each level's index, for a 64KB granule:
// level 1 uses bits [47:42], level 2 [41:29] and level 3 [28:16].
const (
	l1Shift = 42
	l1Bits  = 6
	l2Shift = 29
	l2Bits  = 13
	l3Shift = hostarch.PageShift
	l3Bits  = 13
)

// Span of address space covered by a single entry at each level.
const (
	L1EntrySpan = 1 << l1Shift
	L2EntrySpan = 1 << l2Shift
	L3EntrySpan = 1 << l3Shift
)

// L1Table is the root translation table.
type L1Table [L1Entries]TableDescriptor

// L2Table is an intermediate translation table.
type L2Table [L2Entries]TableDescriptor

// L3Table is a last-level translation table.
type L3Table [L3Entries]PageDescriptor

// table is the set of table types a Pool can hold.
type table interface {
	L2Table | L3Table
}
