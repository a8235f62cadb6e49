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

	"bringup.dev/bringup/pkg/hostarch"
)

// MAIR_EL1 attribute slots referenced by page descriptors. The register value
// that fills them is built in package ring0.
const (
	AttrIndexDevice   = 0
	AttrIndexNormalNC = 1
	AttrIndexNormalWB = 2
)

// AttrIndex returns the MAIR_EL1 slot for a memory type.
func AttrIndex(mt hostarch.MemoryType) uint8 {
	switch mt {
	case hostarch.MemoryTypeUncached:
		return AttrIndexDevice
	case hostarch.MemoryTypeWriteCombine:
		return AttrIndexNormalNC
	default:
		return AttrIndexNormalWB
	}
}

// MapOpts are the attributes of a leaf mapping. All mappings are EL1-only.
type MapOpts struct {
	// MemoryType selects the memory attributes.
	MemoryType hostarch.MemoryType

	// ReadOnly disallows writes.
	ReadOnly bool

	// Execute allows instruction fetch at EL1.
	Execute bool
}

// String implements fmt.Stringer.String.
func (o MapOpts) String() string {
	perms := []byte("r--")
	if !o.ReadOnly {
		perms[1] = 'w'
	}
	if o.Execute {
		perms[2] = 'x'
	}
	return fmt.Sprintf("%s %s", perms, o.MemoryType.ShortString())
}

// pageFields returns the leaf descriptor mapping phys with these options.
func (o MapOpts) pageFields(phys hostarch.Addr) PageFields {
	f := PageFields{
		Marker:     PageMarker,
		Output:     phys,
		AttrIndex:  AttrIndex(o.MemoryType),
		AP:         APReadWrite,
		AccessFlag: true,
		PXN:        !o.Execute,
		UXN:        true,
	}
	if o.ReadOnly {
		f.AP = APReadOnly
	}
	if o.MemoryType != hostarch.MemoryTypeUncached {
		f.SH = SHInner
	}
	return f
}
