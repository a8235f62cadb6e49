// Copyright 2021 The gVisor Authors.
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

package bitmap

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFirstZero(t *testing.T) {
	b := New(130)
	for want := uint32(0); want < 130; want++ {
		got, err := b.FirstZero(0)
		if err != nil {
			t.Fatalf("FirstZero(0) failed after %d adds: %v", want, err)
		}
		if got != want {
			t.Fatalf("FirstZero(0) = %d, want %d", got, want)
		}
		b.Add(got)
	}
	if !b.IsFull() {
		t.Errorf("bitmap not full after %d adds, count %d", b.Size(), b.Count())
	}
	// Bits beyond size in the last word must never be handed out.
	if got, err := b.FirstZero(0); err == nil {
		t.Errorf("FirstZero(0) on full bitmap = %d, want error", got)
	}
}

func TestFirstZeroStart(t *testing.T) {
	b := New(64)
	b.Add(5)
	b.Add(6)
	if got, err := b.FirstZero(5); err != nil || got != 7 {
		t.Errorf("FirstZero(5) = (%d, %v), want 7", got, err)
	}
	if _, err := b.FirstZero(64); err == nil {
		t.Errorf("FirstZero(64) succeeded on a 64-bit bitmap")
	}
}

func TestContainsAndForEach(t *testing.T) {
	b := New(200)
	want := []uint32{0, 3, 63, 64, 199}
	for _, i := range want {
		b.Add(i)
	}
	b.Add(3) // Duplicate adds are counted once.
	if got := b.Count(); got != uint32(len(want)) {
		t.Errorf("Count() = %d, want %d", got, len(want))
	}
	for _, i := range want {
		if !b.Contains(i) {
			t.Errorf("Contains(%d) = false", i)
		}
	}
	if b.Contains(1) || b.Contains(500) {
		t.Errorf("Contains reported unset bits")
	}
	var got []uint32
	b.ForEach(func(i uint32) { got = append(got, i) })
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ForEach mismatch (-want +got):\n%s", diff)
	}
}

func TestAddOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Add(8) on a bitmap of size 8 did not panic")
		}
	}()
	b := New(8)
	b.Add(8)
}
