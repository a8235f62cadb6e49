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

// Region is a physically contiguous range mapped at a virtual base.
type Region struct {
	// Name identifies the region in errors and logs.
	Name string

	// Physical is the physical base address.
	Physical hostarch.Addr

	// Virtual is the virtual base address.
	Virtual hostarch.Addr

	// Size is the length in bytes. A partial final page is mapped in full.
	Size uint64

	// Opts are the attributes of every page in the region.
	Opts MapOpts
}

// RegionFromSymbols derives a region from a pair of linker symbols: the
// physical range [start, end) mapped at virtual.
func RegionFromSymbols(name string, virtual, start, end hostarch.Addr, opts MapOpts) (Region, error) {
	if !(hostarch.AddrRange{Start: start, End: end}).WellFormed() {
		return Region{}, fmt.Errorf("%w: region %q ends at %v before its start %v", ErrRegionBounds, name, end, start)
	}
	return Region{
		Name:     name,
		Physical: start,
		Virtual:  virtual,
		Size:     uint64(end - start),
		Opts:     opts,
	}, nil
}

// NumPages returns the number of pages in the region.
func (r Region) NumPages() uint64 {
	return hostarch.PagesFor(r.Size)
}

// Validate checks that the region can be mapped: both bases page aligned and
// every page inside the 48-bit address space.
func (r Region) Validate() error {
	if !r.Physical.IsPageAligned() || !r.Virtual.IsPageAligned() {
		return fmt.Errorf("%w: region %q at virtual %v, physical %v", ErrMisaligned, r.Name, r.Virtual, r.Physical)
	}
	n := r.NumPages()
	if n == 0 {
		return nil
	}
	if n > uint64(hostarch.AddressMask)>>hostarch.PageShift+1 {
		return fmt.Errorf("%w: region %q has %d pages", ErrRegionBounds, r.Name, n)
	}
	length := n << hostarch.PageShift
	for _, base := range []hostarch.Addr{r.Virtual, r.Physical} {
		end, ok := base.AddLength(length)
		if !ok || !(end - 1).Translatable() {
			return fmt.Errorf("%w: region %q [%v, +%#x)", ErrRegionBounds, r.Name, base, length)
		}
	}
	return nil
}

// VirtualRange returns the virtual range covered, rounded up to whole pages.
func (r Region) VirtualRange() hostarch.AddrRange {
	return hostarch.AddrRange{Start: r.Virtual, End: r.Virtual + hostarch.Addr(r.NumPages()<<hostarch.PageShift)}
}

// Pages yields the (virtual, physical) address of every page in ascending
// order. The sequence may be iterated any number of times.
func (r Region) Pages() iter.Seq2[hostarch.Addr, hostarch.Addr] {
	return func(yield func(virt, phys hostarch.Addr) bool) {
		n := r.NumPages()
		for i := uint64(0); i < n; i++ {
			off := hostarch.Addr(i << hostarch.PageShift)
			if !yield(r.Virtual+off, r.Physical+off) {
				return
			}
		}
	}
}

// String implements fmt.Stringer.String.
func (r Region) String() string {
	return fmt.Sprintf("%s: %v -> %v (%d pages, %v)", r.Name, r.VirtualRange(), r.Physical, r.NumPages(), r.Opts)
}
