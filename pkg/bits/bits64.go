// Copyright 2018 Google LLC
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

// Package bits contains non-atomic bit operations on 64-bit words, including
// the inclusive [hi:lo] field notation used by the ARM architecture manual.
package bits

// IsOn64 returns true if *all* bits set in 'bits' are set in 'mask'.
func IsOn64(mask, bits uint64) bool {
	return mask&bits == bits
}

// Mask64 returns a uint64 with all of the given bits set.
func Mask64(is ...int) uint64 {
	ret := uint64(0)
	for _, i := range is {
		ret |= MaskOf64(i)
	}
	return ret
}

// MaskOf64 is like Mask64, but sets only a single bit (more efficiently).
func MaskOf64(i int) uint64 {
	return uint64(1) << uint64(i)
}

// FieldMask64 returns the mask of the inclusive bit range [hi:lo], in place.
//
// Preconditions: 0 <= lo <= hi < 64.
func FieldMask64(hi, lo int) uint64 {
	return (^uint64(0) >> uint64(63-hi)) &^ (MaskOf64(lo) - 1)
}

// Field64 extracts bits [hi:lo] of v, shifted down to bit 0.
func Field64(v uint64, hi, lo int) uint64 {
	return (v & FieldMask64(hi, lo)) >> uint64(lo)
}

// SetField64 returns v with bits [hi:lo] replaced by the low bits of x. Bits
// of x that do not fit the field are discarded.
func SetField64(v uint64, hi, lo int, x uint64) uint64 {
	m := FieldMask64(hi, lo)
	return v&^m | (x<<uint64(lo))&m
}

// Bit64 returns whether bit i of v is set.
func Bit64(v uint64, i int) bool {
	return v&MaskOf64(i) != 0
}

// SetBit64 returns v with bit i set to on.
func SetBit64(v uint64, i int, on bool) uint64 {
	if on {
		return v | MaskOf64(i)
	}
	return v &^ MaskOf64(i)
}
