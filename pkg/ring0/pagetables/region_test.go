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

type pagePair struct {
	Virtual  hostarch.Addr
	Physical hostarch.Addr
}

func collectPages(r Region) []pagePair {
	var pages []pagePair
	for v, p := range r.Pages() {
		pages = append(pages, pagePair{v, p})
	}
	return pages
}

func TestRegionPages(t *testing.T) {
	for _, tc := range []struct {
		name string
		size uint64
		want []pagePair
	}{
		{"empty", 0, nil},
		{"one byte", 1, []pagePair{{0x1000_0000, 0}}},
		{"three pages", 3 * hostarch.PageSize, []pagePair{
			{0x1000_0000, 0},
			{0x1001_0000, 0x1_0000},
			{0x1002_0000, 0x2_0000},
		}},
		{"partial final page", hostarch.PageSize + 1, []pagePair{
			{0x1000_0000, 0},
			{0x1001_0000, 0x1_0000},
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := Region{Name: tc.name, Virtual: 0x1000_0000, Physical: 0, Size: tc.size}
			if got, want := r.NumPages(), uint64(len(tc.want)); got != want {
				t.Errorf("NumPages() = %d, want %d", got, want)
			}
			if diff := cmp.Diff(tc.want, collectPages(r)); diff != "" {
				t.Errorf("Pages() mismatch (-want +got):\n%s", diff)
			}
			// The sequence starts over on every iteration.
			if diff := cmp.Diff(tc.want, collectPages(r)); diff != "" {
				t.Errorf("second Pages() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegionPagesStop(t *testing.T) {
	r := Region{Virtual: 0x1000_0000, Size: 10 * hostarch.PageSize}
	n := 0
	for range r.Pages() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("got %d pages before break, want 2", n)
	}
}

func TestRegionValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		r    Region
		want error
	}{
		{"ok", Region{Virtual: 0x1000_0000, Physical: 0x8000_0000, Size: 3 * hostarch.PageSize}, nil},
		{"empty", Region{Virtual: 0x1000_0000}, nil},
		{"last page", Region{Virtual: hostarch.AddressMask + 1 - hostarch.PageSize, Size: hostarch.PageSize}, nil},
		{"misaligned virtual", Region{Virtual: 0x1000_1000, Size: hostarch.PageSize}, ErrMisaligned},
		{"misaligned physical", Region{Physical: 0x10, Size: hostarch.PageSize}, ErrMisaligned},
		{"past 48 bits", Region{Virtual: hostarch.AddressMask + 1 - hostarch.PageSize, Size: 2 * hostarch.PageSize}, ErrRegionBounds},
		{"high virtual", Region{Virtual: 0xffff_0000_0000_0000, Size: hostarch.PageSize}, ErrRegionBounds},
		{"huge", Region{Size: ^uint64(0)}, ErrRegionBounds},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.r.Validate()
			if tc.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRegionFromSymbols(t *testing.T) {
	r, err := RegionFromSymbols("kernel", 0x1000_0000, 0x8000_0000, 0x8002_8000, MapOpts{Execute: true})
	if err != nil {
		t.Fatalf("RegionFromSymbols failed: %v", err)
	}
	want := Region{Name: "kernel", Physical: 0x8000_0000, Virtual: 0x1000_0000, Size: 0x2_8000, Opts: MapOpts{Execute: true}}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("RegionFromSymbols mismatch (-want +got):\n%s", diff)
	}
	if got, want := r.VirtualRange(), (hostarch.AddrRange{Start: 0x1000_0000, End: 0x1003_0000}); got != want {
		t.Errorf("VirtualRange() = %v, want %v", got, want)
	}

	if _, err := RegionFromSymbols("backwards", 0, 0x2_0000, 0x1_0000, MapOpts{}); !errors.Is(err, ErrRegionBounds) {
		t.Errorf("RegionFromSymbols with end < start = %v, want %v", err, ErrRegionBounds)
	}
}
