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

package pagetables

import (
	"fmt"
	"iter"

	"bringup.dev/bringup/pkg/hostarch"
)

// Mapping is a single valid leaf found by a walk.
type Mapping struct {
	// Virtual is the virtual page address.
	Virtual hostarch.Addr

	// Index is the position of the leaf in the tables.
	Index Index

	// Fields is the decoded leaf.
	Fields PageFields
}

// Physical returns the physical page address.
func (m Mapping) Physical() hostarch.Addr {
	return m.Fields.Output
}

// MappedRange is a run of pages that are contiguous in both address spaces
// and share attributes.
type MappedRange struct {
	// Virtual is the virtual range.
	Virtual hostarch.AddrRange

	// Physical is the physical base.
	Physical hostarch.Addr

	// Fields holds the shared attributes. Fields.Output is the first page.
	Fields PageFields
}

// String implements fmt.Stringer.String.
func (r MappedRange) String() string {
	return fmt.Sprintf("%v -> %v attr=%d ap=%#b sh=%#b pxn=%t", r.Virtual, r.Physical, r.Fields.AttrIndex, r.Fields.AP, r.Fields.SH, r.Fields.PXN)
}

// Entry is a valid descriptor at any level.
type Entry struct {
	// Level is the level of the table holding the descriptor.
	Level int

	// Table is the physical address of that table.
	Table hostarch.Addr

	// Index is the descriptor's index in the table.
	Index uint16

	// Virtual is the first virtual address translated through the
	// descriptor.
	Virtual hostarch.Addr

	// Raw is the descriptor.
	Raw uint64
}

// Next returns the next-level table or output page address.
func (e Entry) Next() hostarch.Addr {
	if e.Level == 3 {
		return PageDescriptor(e.Raw).OutputAddress()
	}
	return TableDescriptor(e.Raw).NextAddress()
}

// walker reads the tables the way the hardware does.
type walker struct {
	root hostarch.Addr
	l1   *L1Table
	l2   *Pool[L2Table]
	l3   *Pool[L3Table]
}

func (w walker) leaf(virt hostarch.Addr) (PageDescriptor, bool) {
	idx := IndexOf(virt)
	d1 := w.l1[idx.L1]
	if !d1.Valid() {
		return 0, false
	}
	l2, ok := w.l2.Lookup(d1.NextAddress())
	if !ok {
		return 0, false
	}
	d2 := l2[idx.L2]
	if !d2.Valid() {
		return 0, false
	}
	l3, ok := w.l3.Lookup(d2.NextAddress())
	if !ok {
		return 0, false
	}
	d3 := l3[idx.L3]
	return d3, d3.Valid()
}

func (w walker) translate(virt hostarch.Addr) (hostarch.Addr, bool) {
	if !virt.Translatable() {
		return 0, false
	}
	d, ok := w.leaf(virt)
	if !ok {
		return 0, false
	}
	return d.OutputAddress() + hostarch.Addr(virt.PageOffset()), true
}

// mappings yields every valid leaf in ascending virtual order.
func (w walker) mappings() iter.Seq[Mapping] {
	return func(yield func(Mapping) bool) {
		for i1 := range w.l1 {
			d1 := w.l1[i1]
			if !d1.Valid() {
				continue
			}
			l2, ok := w.l2.Lookup(d1.NextAddress())
			if !ok {
				continue
			}
			for i2 := range l2 {
				d2 := l2[i2]
				if !d2.Valid() {
					continue
				}
				l3, ok := w.l3.Lookup(d2.NextAddress())
				if !ok {
					continue
				}
				for i3 := range l3 {
					d3 := l3[i3]
					if !d3.Valid() {
						continue
					}
					idx := Index{L1: uint16(i1), L2: uint16(i2), L3: uint16(i3)}
					m := Mapping{Virtual: idx.Address(), Index: idx, Fields: DecodePage(uint64(d3))}
					if !yield(m) {
						return
					}
				}
			}
		}
	}
}

// entries yields every valid descriptor, parents before children.
func (w walker) entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for i1 := range w.l1 {
			d1 := w.l1[i1]
			if !d1.Valid() {
				continue
			}
			v1 := hostarch.Addr(i1) * L1EntrySpan
			if !yield(Entry{Level: 1, Table: w.root, Index: uint16(i1), Virtual: v1, Raw: uint64(d1)}) {
				return
			}
			l2, ok := w.l2.Lookup(d1.NextAddress())
			if !ok {
				continue
			}
			for i2 := range l2 {
				d2 := l2[i2]
				if !d2.Valid() {
					continue
				}
				v2 := v1 + hostarch.Addr(i2)*L2EntrySpan
				if !yield(Entry{Level: 2, Table: d1.NextAddress(), Index: uint16(i2), Virtual: v2, Raw: uint64(d2)}) {
					return
				}
				l3, ok := w.l3.Lookup(d2.NextAddress())
				if !ok {
					continue
				}
				for i3 := range l3 {
					d3 := l3[i3]
					if !d3.Valid() {
						continue
					}
					v3 := v2 + hostarch.Addr(i3)*L3EntrySpan
					if !yield(Entry{Level: 3, Table: d2.NextAddress(), Index: uint16(i3), Virtual: v3, Raw: uint64(d3)}) {
						return
					}
				}
			}
		}
	}
}

// ranges coalesces mappings into runs.
func (w walker) ranges() []MappedRange {
	var out []MappedRange
	for m := range w.mappings() {
		if n := len(out); n > 0 {
			last := &out[n-1]
			attrs, prev := m.Fields, last.Fields
			attrs.Output, prev.Output = 0, 0
			contiguous := last.Virtual.End == m.Virtual &&
				last.Physical+hostarch.Addr(last.Virtual.Length()) == m.Physical()
			if contiguous && attrs == prev {
				last.Virtual.End += hostarch.PageSize
				continue
			}
		}
		out = append(out, MappedRange{
			Virtual:  hostarch.AddrRange{Start: m.Virtual, End: m.Virtual + hostarch.PageSize},
			Physical: m.Physical(),
			Fields:   m.Fields,
		})
	}
	return out
}

// AddressSpace is a finished set of translation tables.
type AddressSpace struct {
	root   hostarch.Addr
	walker walker
	stats  Stats
}

// Root returns the physical address of the level 1 table, as loaded into
// TTBR0_EL1.
func (as *AddressSpace) Root() hostarch.Addr {
	return as.root
}

// Translate returns the physical address that virt maps to.
func (as *AddressSpace) Translate(virt hostarch.Addr) (hostarch.Addr, bool) {
	return as.walker.translate(virt)
}

// Mappings yields every mapped page in ascending virtual order.
func (as *AddressSpace) Mappings() iter.Seq[Mapping] {
	return as.walker.mappings()
}

// Entries yields every valid descriptor in the tables, each table
// descriptor before the entries of the table it points at.
func (as *AddressSpace) Entries() iter.Seq[Entry] {
	return as.walker.entries()
}

// Ranges returns the mapped pages coalesced into runs.
func (as *AddressSpace) Ranges() []MappedRange {
	return as.walker.ranges()
}

// Stats returns the build counters.
func (as *AddressSpace) Stats() Stats {
	return as.stats
}

// L2Tables returns the physical addresses of the level 2 tables in use.
func (as *AddressSpace) L2Tables() []hostarch.Addr {
	return as.walker.l2.Slots()
}

// L3Tables returns the physical addresses of the level 3 tables in use.
func (as *AddressSpace) L3Tables() []hostarch.Addr {
	return as.walker.l3.Slots()
}
