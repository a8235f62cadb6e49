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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bringup.dev/bringup/pkg/hostarch"
)

const testPoolBase = hostarch.Addr(0x4000_0000)

func TestPoolAcquire(t *testing.T) {
	p, err := NewPool[L3Table](3, 3, testPoolBase)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}

	var tables []*L3Table
	for i := 0; i < 3; i++ {
		addr, tbl, err := p.Acquire()
		if err != nil {
			t.Fatalf("Acquire #%d failed: %v", i, err)
		}
		if want := testPoolBase + hostarch.Addr(i)*TableBytes; addr != want {
			t.Errorf("Acquire #%d = %v, want %v", i, addr, want)
		}
		for j, other := range tables {
			if other == tbl {
				t.Errorf("Acquire #%d returned the same table as #%d", i, j)
			}
		}
		tables = append(tables, tbl)
	}

	_, _, err = p.Acquire()
	if !errors.Is(err, ErrOutOfSlots) {
		t.Fatalf("Acquire on a full pool = %v, want %v", err, ErrOutOfSlots)
	}
	var oos *OutOfSlotsError
	if !errors.As(err, &oos) || oos.Level != 3 || oos.Capacity != 3 {
		t.Errorf("Acquire on a full pool = %#v, want level 3 capacity 3", err)
	}

	if got, want := p.Len(), 3; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
	if got, want := p.Range(), (hostarch.AddrRange{Start: testPoolBase, End: testPoolBase + 3*TableBytes}); got != want {
		t.Errorf("Range() = %v, want %v", got, want)
	}
	want := []hostarch.Addr{testPoolBase, testPoolBase + TableBytes, testPoolBase + 2*TableBytes}
	if diff := cmp.Diff(want, p.Slots()); diff != "" {
		t.Errorf("Slots() mismatch (-want +got):\n%s", diff)
	}
}

func TestPoolLookup(t *testing.T) {
	p, err := NewPool[L2Table](2, 4, testPoolBase)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	addr, tbl, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	tbl[5] = 0x10003

	got, ok := p.Lookup(addr)
	if !ok || got != tbl {
		t.Fatalf("Lookup(%v) = %p, %t, want %p", addr, got, ok, tbl)
	}
	if got[5] != 0x10003 {
		t.Errorf("table contents lost: got %v", got[5])
	}

	for _, bad := range []hostarch.Addr{
		// Not handed out yet.
		addr + TableBytes,
		// Inside a slot, but not its base.
		addr + 8,
		// Outside the pool.
		testPoolBase - TableBytes,
		0,
	} {
		if _, ok := p.Lookup(bad); ok {
			t.Errorf("Lookup(%v) succeeded, want failure", bad)
		}
	}
}

func TestPoolEmpty(t *testing.T) {
	p, err := NewPool[L3Table](3, 0, testPoolBase)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	if _, _, err := p.Acquire(); !errors.Is(err, ErrOutOfSlots) {
		t.Errorf("Acquire = %v, want %v", err, ErrOutOfSlots)
	}
	if got := p.Cap(); got != 0 {
		t.Errorf("Cap() = %d, want 0", got)
	}
	if got := p.Slots(); got != nil {
		t.Errorf("Slots() = %v, want nil", got)
	}
}

func TestNewPoolErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		capacity int
		base     hostarch.Addr
		want     error
	}{
		{"negative", -1, testPoolBase, ErrLayout},
		{"misaligned", 1, testPoolBase + 0x1000, ErrMisaligned},
		{"past 48 bits", 2, hostarch.AddressMask + 1 - TableBytes, ErrRegionBounds},
		{"wraps", 2, ^hostarch.Addr(TableBytes - 1), ErrRegionBounds},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewPool[L2Table](2, tc.capacity, tc.base); !errors.Is(err, tc.want) {
				t.Errorf("NewPool(%d, %v) = %v, want %v", tc.capacity, tc.base, err, tc.want)
			}
		})
	}
}
