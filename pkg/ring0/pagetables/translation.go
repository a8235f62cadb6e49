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

// Index is a virtual address broken into the per-level table indices used by
// the hardware walk, plus the offset into the final page.
type Index struct {
	L1     uint16
	L2     uint16
	L3     uint16
	Offset uint32
}

// IndexOf decomposes addr. Bits above the 48-bit input address are ignored;
// keeping them zero is the caller's job.
func IndexOf(addr hostarch.Addr) Index {
	v := uint64(addr)
	return Index{
		L1:     uint16(bits.Field64(v, l1Shift+l1Bits-1, l1Shift)),
		L2:     uint16(bits.Field64(v, l2Shift+l2Bits-1, l2Shift)),
		L3:     uint16(bits.Field64(v, l3Shift+l3Bits-1, l3Shift)),
		Offset: uint32(bits.Field64(v, hostarch.PageShift-1, 0)),
	}
}

// Address reassembles the address from its parts.
func (i Index) Address() hostarch.Addr {
	var v uint64
	v = bits.SetField64(v, l1Shift+l1Bits-1, l1Shift, uint64(i.L1))
	v = bits.SetField64(v, l2Shift+l2Bits-1, l2Shift, uint64(i.L2))
	v = bits.SetField64(v, l3Shift+l3Bits-1, l3Shift, uint64(i.L3))
	v = bits.SetField64(v, hostarch.PageShift-1, 0, uint64(i.Offset))
	return hostarch.Addr(v)
}

// String implements fmt.Stringer.String.
func (i Index) String() string {
	return fmt.Sprintf("[%d][%d][%d]+%#x", i.L1, i.L2, i.L3, i.Offset)
}
