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
	"time"

	"bringup.dev/bringup/pkg/hostarch"
	"bringup.dev/bringup/pkg/log"
)

// Layout is the physical placement of the translation tables, as fixed by the
// linker script. The pool capacities are sized offline for the board's known
// regions.
type Layout struct {
	// L1 is the physical address of the level 1 table.
	L1 hostarch.Addr

	// L2 is the physical address of the level 2 pool.
	L2 hostarch.Addr

	// L2Tables is the capacity of the level 2 pool.
	L2Tables int

	// L3 is the physical address of the level 3 pool.
	L3 hostarch.Addr

	// L3Tables is the capacity of the level 3 pool.
	L3Tables int
}

// Validate checks alignment and that the three areas do not overlap.
func (l Layout) Validate() error {
	if l.L2Tables < 0 || l.L3Tables < 0 {
		return fmt.Errorf("%w: negative pool capacity (L2 %d, L3 %d)", ErrLayout, l.L2Tables, l.L3Tables)
	}
	areas := []struct {
		name string
		base hostarch.Addr
		size uint64
	}{
		{"L1 table", l.L1, L1TableBytes},
		{"L2 pool", l.L2, uint64(l.L2Tables) * TableBytes},
		{"L3 pool", l.L3, uint64(l.L3Tables) * TableBytes},
	}
	ranges := make([]hostarch.AddrRange, len(areas))
	for i, a := range areas {
		if !a.base.IsPageAligned() {
			return fmt.Errorf("%w: %s at %v: %w", ErrLayout, a.name, a.base, ErrMisaligned)
		}
		end, ok := a.base.AddLength(a.size)
		if !ok || (a.size > 0 && !(end - 1).Translatable()) {
			return fmt.Errorf("%w: %s at %v: %w", ErrLayout, a.name, a.base, ErrRegionBounds)
		}
		ranges[i] = hostarch.AddrRange{Start: a.base, End: end}
		for j := 0; j < i; j++ {
			if ranges[i].Overlaps(ranges[j]) {
				return fmt.Errorf("%w: %s %v overlaps %s %v", ErrLayout, a.name, ranges[i], areas[j].name, ranges[j])
			}
		}
	}
	return nil
}

// Stats describes the work done by a Builder.
type Stats struct {
	// Regions is the number of regions fully mapped.
	Regions int

	// PagesMapped is the number of leaf descriptors written.
	PagesMapped uint64

	// PagesSkipped is the number of pages that were already mapped
	// identically.
	PagesSkipped uint64

	// L2Tables and L3Tables are the number of pool slots in use.
	L2Tables int
	L3Tables int
}

// Builder constructs the translation tables for bring-up.
//
// The Builder owns the level 1 table and both pools. Install hands them over
// and no further mapping is possible.
type Builder struct {
	layout Layout
	l1     L1Table
	l2     *Pool[L2Table]
	l3     *Pool[L3Table]

	logger log.Logger

	// trace receives a line per mapped page, limited so that large images do
	// not swamp the console.
	trace log.Logger

	stats     Stats
	installed bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used by the Builder. The default is the global
// logger.
func WithLogger(l log.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// NewBuilder returns a Builder with empty tables placed according to layout.
func NewBuilder(layout Layout, opts ...Option) (*Builder, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	l2, err := NewPool[L2Table](2, layout.L2Tables, layout.L2)
	if err != nil {
		return nil, err
	}
	l3, err := NewPool[L3Table](3, layout.L3Tables, layout.L3)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		layout: layout,
		l2:     l2,
		l3:     l3,
		logger: log.Log(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.trace = log.RateLimitedLogger(b.logger, 100*time.Millisecond, 32)
	return b, nil
}

// Build maps every region, in order. It stops at the first error.
func (b *Builder) Build(regions []Region) error {
	for _, r := range regions {
		if err := b.MapRegion(r); err != nil {
			return fmt.Errorf("mapping region %q: %w", r.Name, err)
		}
	}
	b.logger.Infof("Translation tables built: %d regions, %d pages mapped, %d already present, %d/%d L2 and %d/%d L3 tables",
		b.stats.Regions, b.stats.PagesMapped, b.stats.PagesSkipped, b.l2.Len(), b.l2.Cap(), b.l3.Len(), b.l3.Cap())
	return nil
}

// MapRegion maps every page of r.
func (b *Builder) MapRegion(r Region) error {
	if b.installed {
		return ErrInstalled
	}
	if err := r.Validate(); err != nil {
		return err
	}
	b.logger.Debugf("Mapping region %v", r)
	for virt, phys := range r.Pages() {
		if err := b.MapPage(virt, phys, r.Opts); err != nil {
			return err
		}
	}
	b.stats.Regions++
	return nil
}

// MapPage maps the page at virt to the page at phys, allocating level 2 and
// level 3 tables as needed.
//
// Mapping a page again to the same physical page does nothing. Mapping it to
// a different one fails with a *ConflictError and leaves the existing entry
// untouched.
func (b *Builder) MapPage(virt, phys hostarch.Addr, opts MapOpts) error {
	if b.installed {
		return ErrInstalled
	}
	if !virt.IsPageAligned() || !phys.IsPageAligned() {
		return fmt.Errorf("%w: mapping %v to %v", ErrMisaligned, virt, phys)
	}
	if !virt.Translatable() || !phys.Translatable() {
		return fmt.Errorf("%w: mapping %v to %v", ErrRegionBounds, virt, phys)
	}

	idx := IndexOf(virt)
	l2, err := descend(&b.l1[idx.L1], b.l2, 1, idx.L1, b.logger)
	if err != nil {
		return err
	}
	l3, err := descend(&l2[idx.L2], b.l3, 2, idx.L2, b.logger)
	if err != nil {
		return err
	}

	leaf := &l3[idx.L3]
	if leaf.Valid() {
		if existing := leaf.OutputAddress(); existing != phys {
			return &ConflictError{Virtual: virt, Existing: existing, Requested: phys}
		}
		b.stats.PagesSkipped++
		return nil
	}
	*leaf = PageDescriptor(opts.pageFields(phys).Encode())
	b.stats.PagesMapped++
	b.trace.Debugf("Mapped %v -> %v at %v", virt, phys, idx)
	return nil
}

// descend returns the table that d points at. An invalid d is pointed at a
// fresh slot from pool first.
func descend[T table](d *TableDescriptor, pool *Pool[T], level int, index uint16, logger log.Logger) (*T, error) {
	if d.Valid() {
		next, ok := pool.Lookup(d.NextAddress())
		if !ok {
			return nil, &InconsistencyError{Level: level, Index: index, Address: d.NextAddress()}
		}
		return next, nil
	}
	addr, next, err := pool.Acquire()
	if err != nil {
		return nil, err
	}
	d.SetNextAddress(addr)
	d.SetValid()
	logger.Debugf("Level %d descriptor %d -> level %d table at %v (%d/%d)", level, index, level+1, addr, pool.Len(), pool.Cap())
	return next, nil
}

// Translate walks the tables for virt. It returns false if virt is not
// mapped.
func (b *Builder) Translate(virt hostarch.Addr) (hostarch.Addr, bool) {
	return b.walker().translate(virt)
}

// Stats returns counters for the work done so far.
func (b *Builder) Stats() Stats {
	s := b.stats
	s.L2Tables = b.l2.Len()
	s.L3Tables = b.l3.Len()
	return s
}

// Install finishes the build and returns the address space to load into the
// translation table base register. The Builder rejects any later change.
func (b *Builder) Install() (*AddressSpace, error) {
	if b.installed {
		return nil, ErrInstalled
	}
	b.installed = true
	as := &AddressSpace{
		root:   b.layout.L1,
		walker: b.walker(),
		stats:  b.Stats(),
	}
	b.logger.Infof("Address space installed: root %v, %d pages", as.root, as.stats.PagesMapped)
	return as, nil
}

func (b *Builder) walker() walker {
	return walker{root: b.layout.L1, l1: &b.l1, l2: b.l2, l3: b.l3}
}
