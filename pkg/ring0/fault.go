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

package ring0

import (
	"errors"
	"fmt"

	"bringup.dev/bringup/pkg/ring0/pagetables"
)

// FaultCode identifies why bring-up stopped. It is handed to CPU.Halt, which
// leaves it somewhere a debugger can read without a console.
type FaultCode uint32

// Fault codes. The values are stable; they are what shows up in a register
// dump.
const (
	FaultNone FaultCode = iota
	FaultUnknown
	FaultOutOfSlots
	FaultMappingConflict
	FaultPoolInconsistency
	FaultMisaligned
	FaultRegionBounds
	FaultLayout
	FaultInstalled
	FaultSymbols
	FaultBoard
)

var faultNames = [...]string{
	FaultNone:              "none",
	FaultUnknown:           "unknown",
	FaultOutOfSlots:        "out of table slots",
	FaultMappingConflict:   "mapping conflict",
	FaultPoolInconsistency: "pool inconsistency",
	FaultMisaligned:        "misaligned address",
	FaultRegionBounds:      "region out of bounds",
	FaultLayout:            "bad table layout",
	FaultInstalled:         "already installed",
	FaultSymbols:           "bad linker symbols",
	FaultBoard:             "bad board description",
}

// String implements fmt.Stringer.String.
func (c FaultCode) String() string {
	if int(c) < len(faultNames) {
		return faultNames[c]
	}
	return fmt.Sprintf("FaultCode(%d)", uint32(c))
}

// faultTable is checked in order; the first match wins. The core errors come
// first since they may wrap one of the others.
var faultTable = []struct {
	err  error
	code FaultCode
}{
	{pagetables.ErrOutOfSlots, FaultOutOfSlots},
	{pagetables.ErrMappingConflict, FaultMappingConflict},
	{pagetables.ErrPoolInconsistency, FaultPoolInconsistency},
	{pagetables.ErrLayout, FaultLayout},
	{pagetables.ErrMisaligned, FaultMisaligned},
	{pagetables.ErrRegionBounds, FaultRegionBounds},
	{pagetables.ErrInstalled, FaultInstalled},
	{ErrUnknownSymbol, FaultSymbols},
	{ErrBoard, FaultBoard},
}

// FaultCodeOf returns the fault code for err.
func FaultCodeOf(err error) FaultCode {
	if err == nil {
		return FaultNone
	}
	for _, f := range faultTable {
		if errors.Is(err, f.err) {
			return f.code
		}
	}
	return FaultUnknown
}
