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

	"bringup.dev/bringup/pkg/bits"
	"bringup.dev/bringup/pkg/hostarch"
)

// Descriptor fields shared by both descriptor formats.
const (
	// markerHi and markerLo bound the validity marker, bits [1:0].
	markerHi = 1
	markerLo = 0

	// addressHi and addressLo bound the next-level or output address, bits
	// [47:16]. The field holds the page number; the low 16 bits of the
	// address are implicitly zero.
	addressHi = 47
	addressLo = hostarch.PageShift

	// TableMarker marks a valid table descriptor.
	TableMarker = 0b11

	// PageMarker marks a valid page descriptor. The architecture reads 0b01 at
	// level 3 as invalid and wants 0b11, so tables built with it do not yet
	// translate on hardware.
	PageMarker = 0b01
)

// Table descriptor attributes.
const (
	pxnTableBit = 59
	xnTableBit  = 60
	apTableHi   = 62
	apTableLo   = 61
	nsTableBit  = 63
)

// Page descriptor attributes.
const (
	// attrIndexHi and attrIndexLo bound AttrIndx, the MAIR_EL1 slot, bits
	// [4:2].
	attrIndexHi = 4
	attrIndexLo = 2

	// apHi and apLo bound AP[2:1], the data access permissions, bits [7:6].
	apHi = 7
	apLo = 6

	// shHi and shLo bound the shareability field, bits [9:8].
	shHi = 9
	shLo = 8

	// accessFlagBit is AF. Entries with AF clear are never cached in a TLB,
	// so every leaf written here sets it.
	accessFlagBit = 10

	// notGlobalBit is nG.
	notGlobalBit = 11

	pxnBit = 53
	uxnBit = 54
)

// Data access permissions, AP[2:1].
const (
	APReadWrite    = 0b00
	APReadWriteEL0 = 0b01
	APReadOnly     = 0b10
	APReadOnlyEL0  = 0b11
)

// Shareability values.
const (
	SHNone  = 0b00
	SHOuter = 0b10
	SHInner = 0b11
)

// TableDescriptor is a level 1 or level 2 entry. When valid, it points at the
// next level table.
type TableDescriptor uint64

// Valid returns true if the marker bits are TableMarker.
func (d TableDescriptor) Valid() bool {
	return bits.IsOn64(uint64(d), TableMarker)
}

// SetValid sets the marker bits to TableMarker.
func (d *TableDescriptor) SetValid() {
	*d = TableDescriptor(bits.SetField64(uint64(*d), markerHi, markerLo, TableMarker))
}

// NextAddress returns the physical address of the next level table.
func (d TableDescriptor) NextAddress() hostarch.Addr {
	return hostarch.Addr(uint64(d) & bits.FieldMask64(addressHi, addressLo))
}

// SetNextAddress stores the physical address of the next level table. The
// bits of addr outside [47:16] are dropped.
func (d *TableDescriptor) SetNextAddress(addr hostarch.Addr) {
	*d = TableDescriptor(bits.SetField64(uint64(*d), addressHi, addressLo, addr.PageNumber()))
}

// String implements fmt.Stringer.String.
func (d TableDescriptor) String() string {
	if !d.Valid() {
		return fmt.Sprintf("table(invalid, %#016x)", uint64(d))
	}
	return fmt.Sprintf("table(next=%v)", d.NextAddress())
}

// PageDescriptor is a level 3 entry. When valid, it maps one page.
type PageDescriptor uint64

// Valid returns true if the marker bits are PageMarker.
func (d PageDescriptor) Valid() bool {
	return bits.Field64(uint64(d), markerHi, markerLo) == PageMarker
}

// SetValid sets the marker bits to PageMarker.
func (d *PageDescriptor) SetValid() {
	*d = PageDescriptor(bits.SetField64(uint64(*d), markerHi, markerLo, PageMarker))
}

// OutputAddress returns the physical address of the mapped page.
func (d PageDescriptor) OutputAddress() hostarch.Addr {
	return hostarch.Addr(uint64(d) & bits.FieldMask64(addressHi, addressLo))
}

// SetOutputAddress stores the physical address of the mapped page.
func (d *PageDescriptor) SetOutputAddress(addr hostarch.Addr) {
	*d = PageDescriptor(bits.SetField64(uint64(*d), addressHi, addressLo, addr.PageNumber()))
}

// AccessFlag returns the AF bit.
func (d PageDescriptor) AccessFlag() bool {
	return bits.Bit64(uint64(d), accessFlagBit)
}

// SetAccessFlag sets the AF bit.
func (d *PageDescriptor) SetAccessFlag(on bool) {
	*d = PageDescriptor(bits.SetBit64(uint64(*d), accessFlagBit, on))
}

// String implements fmt.Stringer.String.
func (d PageDescriptor) String() string {
	if !d.Valid() {
		return fmt.Sprintf("page(invalid, %#016x)", uint64(d))
	}
	return fmt.Sprintf("page(out=%v, attrs=%#x)", d.OutputAddress(), uint64(d)&^bits.FieldMask64(addressHi, addressLo))
}

// TableFields is the decoded form of a TableDescriptor.
type TableFields struct {
	Marker   uint8
	Next     hostarch.Addr
	PXNTable bool
	XNTable  bool
	APTable  uint8
	NSTable  bool
}

// DecodeTable decodes raw as a table descriptor. Bits that belong to no field
// are ignored.
func DecodeTable(raw uint64) TableFields {
	return TableFields{
		Marker:   uint8(bits.Field64(raw, markerHi, markerLo)),
		Next:     TableDescriptor(raw).NextAddress(),
		PXNTable: bits.Bit64(raw, pxnTableBit),
		XNTable:  bits.Bit64(raw, xnTableBit),
		APTable:  uint8(bits.Field64(raw, apTableHi, apTableLo)),
		NSTable:  bits.Bit64(raw, nsTableBit),
	}
}

// Encode packs f. Values that do not fit their field are truncated.
func (f TableFields) Encode() uint64 {
	var raw uint64
	raw = bits.SetField64(raw, markerHi, markerLo, uint64(f.Marker))
	raw = bits.SetField64(raw, addressHi, addressLo, f.Next.PageNumber())
	raw = bits.SetBit64(raw, pxnTableBit, f.PXNTable)
	raw = bits.SetBit64(raw, xnTableBit, f.XNTable)
	raw = bits.SetField64(raw, apTableHi, apTableLo, uint64(f.APTable))
	raw = bits.SetBit64(raw, nsTableBit, f.NSTable)
	return raw
}

// Valid returns true if f encodes a valid table descriptor.
func (f TableFields) Valid() bool {
	return f.Marker == TableMarker
}

// PageFields is the decoded form of a PageDescriptor.
type PageFields struct {
	Marker     uint8
	Output     hostarch.Addr
	AttrIndex  uint8
	AP         uint8
	SH         uint8
	AccessFlag bool
	NotGlobal  bool
	PXN        bool
	UXN        bool
}

// DecodePage decodes raw as a page descriptor. Bits that belong to no field
// are ignored.
func DecodePage(raw uint64) PageFields {
	return PageFields{
		Marker:     uint8(bits.Field64(raw, markerHi, markerLo)),
		Output:     PageDescriptor(raw).OutputAddress(),
		AttrIndex:  uint8(bits.Field64(raw, attrIndexHi, attrIndexLo)),
		AP:         uint8(bits.Field64(raw, apHi, apLo)),
		SH:         uint8(bits.Field64(raw, shHi, shLo)),
		AccessFlag: bits.Bit64(raw, accessFlagBit),
		NotGlobal:  bits.Bit64(raw, notGlobalBit),
		PXN:        bits.Bit64(raw, pxnBit),
		UXN:        bits.Bit64(raw, uxnBit),
	}
}

// Encode packs f. Values that do not fit their field are truncated.
func (f PageFields) Encode() uint64 {
	var raw uint64
	raw = bits.SetField64(raw, markerHi, markerLo, uint64(f.Marker))
	raw = bits.SetField64(raw, addressHi, addressLo, f.Output.PageNumber())
	raw = bits.SetField64(raw, attrIndexHi, attrIndexLo, uint64(f.AttrIndex))
	raw = bits.SetField64(raw, apHi, apLo, uint64(f.AP))
	raw = bits.SetField64(raw, shHi, shLo, uint64(f.SH))
	raw = bits.SetBit64(raw, accessFlagBit, f.AccessFlag)
	raw = bits.SetBit64(raw, notGlobalBit, f.NotGlobal)
	raw = bits.SetBit64(raw, pxnBit, f.PXN)
	raw = bits.SetBit64(raw, uxnBit, f.UXN)
	return raw
}

// Valid returns true if f encodes a valid page descriptor.
func (f PageFields) Valid() bool {
	return f.Marker == PageMarker
}
