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
	"fmt"

	"bringup.dev/bringup/pkg/hostarch"
)

// Errors returned while building. ErrOutOfSlots, ErrMappingConflict and
// ErrPoolInconsistency are fatal to bring-up; there is no fallback allocator
// and no safe way to continue with a partially mapped kernel.
var (
	// ErrOutOfSlots means a table pool is undersized for the regions being
	// mapped.
	ErrOutOfSlots = errors.New("translation table pool exhausted")

	// ErrMappingConflict means a virtual page is already mapped to a
	// different physical page.
	ErrMappingConflict = errors.New("virtual page already mapped to a different physical page")

	// ErrPoolInconsistency means a valid table descriptor holds an address
	// that is not a live pool slot.
	ErrPoolInconsistency = errors.New("table descriptor does not resolve to a live pool slot")

	// ErrMisaligned means an address that must be page aligned is not.
	ErrMisaligned = errors.New("address is not page aligned")

	// ErrRegionBounds means a region wraps or leaves the 48-bit address
	// space.
	ErrRegionBounds = errors.New("region outside the translatable address range")

	// ErrLayout means the physical placement of the tables is unusable.
	ErrLayout = errors.New("invalid translation table layout")

	// ErrInstalled means the address space was already handed to the
	// hardware and can no longer be changed.
	ErrInstalled = errors.New("address space already installed")
)

// OutOfSlotsError is returned when a pool has no free slot.
type OutOfSlotsError struct {
	// Level is the level of the tables held by the pool.
	Level int

	// Capacity is the number of slots in the pool.
	Capacity int
}

// Error implements error.Error.
func (e *OutOfSlotsError) Error() string {
	return fmt.Sprintf("level %d table pool exhausted (capacity %d)", e.Level, e.Capacity)
}

// Unwrap returns ErrOutOfSlots.
func (e *OutOfSlotsError) Unwrap() error { return ErrOutOfSlots }

// ConflictError is returned when a page is already mapped elsewhere.
type ConflictError struct {
	Virtual   hostarch.Addr
	Existing  hostarch.Addr
	Requested hostarch.Addr
}

// Error implements error.Error.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("virtual page %v is mapped to %v, cannot map it to %v", e.Virtual, e.Existing, e.Requested)
}

// Unwrap returns ErrMappingConflict.
func (e *ConflictError) Unwrap() error { return ErrMappingConflict }

// InconsistencyError is returned when a table descriptor cannot be resolved.
type InconsistencyError struct {
	// Level is the level of the table holding the descriptor.
	Level int

	// Index is the descriptor's index in that table.
	Index uint16

	// Address is the next-level address stored in the descriptor.
	Address hostarch.Addr
}

// Error implements error.Error.
func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("level %d descriptor %d points at %v, which is not a live level %d table", e.Level, e.Index, e.Address, e.Level+1)
}

// Unwrap returns ErrPoolInconsistency.
func (e *InconsistencyError) Unwrap() error { return ErrPoolInconsistency }
