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

	"github.com/google/btree"

	"bringup.dev/bringup/pkg/bitmap"
	"bringup.dev/bringup/pkg/hostarch"
)

// slotRef maps a slot's physical address back to its index.
type slotRef struct {
	addr  hostarch.Addr
	index uint32
}

func slotLess(a, b slotRef) bool {
	return a.addr < b.addr
}

// Pool is a fixed-capacity set of tables, each lent out at most once and
// never returned.
//
// The backing storage models an array of tables that the linker places at a
// known physical address, so slot i lives at base + i*TableBytes. Slots are
// tracked by index; the physical address is only used at the boundary with
// the descriptor format, which has no room for anything else.
type Pool[T table] struct {
	// level is the translation level of the tables, for diagnostics.
	level int

	// base is the physical address of slot 0.
	base hostarch.Addr

	// slots is the table storage.
	slots []T

	// live holds the indices of allocated slots.
	live bitmap.Bitmap

	// byAddr holds a slotRef for every allocated slot.
	byAddr *btree.BTreeG[slotRef]
}

// NewPool returns a pool of capacity tables of the given level whose storage
// starts at physical address base.
func NewPool[T table](level, capacity int, base hostarch.Addr) (*Pool[T], error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: negative level %d pool capacity %d", ErrLayout, level, capacity)
	}
	if !base.IsPageAligned() {
		return nil, fmt.Errorf("%w: level %d pool base %v", ErrMisaligned, level, base)
	}
	end, ok := base.AddLength(uint64(capacity) * TableBytes)
	if !ok || (capacity > 0 && !(end - 1).Translatable()) {
		return nil, fmt.Errorf("%w: level %d pool at %v with %d tables", ErrRegionBounds, level, base, capacity)
	}
	return &Pool[T]{
		level:  level,
		base:   base,
		slots:  make([]T, capacity),
		live:   bitmap.New(uint32(capacity)),
		byAddr: btree.NewG(2, slotLess),
	}, nil
}

// Acquire hands out the first free slot along with its physical address.
func (p *Pool[T]) Acquire() (hostarch.Addr, *T, error) {
	if p.live.IsFull() {
		return 0, nil, &OutOfSlotsError{Level: p.level, Capacity: p.Cap()}
	}
	i, err := p.live.FirstZero(0)
	if err != nil {
		panic(fmt.Sprintf("level %d pool has %d of %d slots live but no free slot: %v", p.level, p.Len(), p.Cap(), err))
	}
	p.live.Add(i)
	addr := p.addressOf(i)
	p.byAddr.ReplaceOrInsert(slotRef{addr: addr, index: i})
	return addr, &p.slots[i], nil
}

// Lookup returns the live slot whose physical address is addr.
func (p *Pool[T]) Lookup(addr hostarch.Addr) (*T, bool) {
	ref, ok := p.byAddr.Get(slotRef{addr: addr})
	if !ok || !p.live.Contains(ref.index) {
		return nil, false
	}
	return &p.slots[ref.index], true
}

// Len returns the number of allocated slots.
func (p *Pool[T]) Len() int {
	return int(p.live.Count())
}

// Cap returns the number of slots.
func (p *Pool[T]) Cap() int {
	return int(p.live.Size())
}

// Range returns the physical range backing the pool.
func (p *Pool[T]) Range() hostarch.AddrRange {
	return hostarch.AddrRange{Start: p.base, End: p.addressOf(uint32(len(p.slots)))}
}

// Slots returns the addresses of allocated slots in allocation order, or nil
// if there are none.
func (p *Pool[T]) Slots() []hostarch.Addr {
	if p.live.IsEmpty() {
		return nil
	}
	addrs := make([]hostarch.Addr, 0, p.Len())
	p.live.ForEach(func(i uint32) {
		addrs = append(addrs, p.addressOf(i))
	})
	return addrs
}

func (p *Pool[T]) addressOf(i uint32) hostarch.Addr {
	return p.base + hostarch.Addr(i)*TableBytes
}
