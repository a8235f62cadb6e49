// Copyright 2025 The gVisor Authors.
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

package hostarch

import (
	"fmt"
	"strings"
)

// MemoryType specifies CPU memory access behavior for a mapped region.
type MemoryType uint8

const (
	// MemoryTypeWriteBack is Normal memory, inner and outer write-back
	// cacheable. It is the right choice for the kernel image and stack and
	// must be the zero value for MemoryType.
	MemoryTypeWriteBack MemoryType = iota

	// MemoryTypeWriteCombine is Normal memory, inner and outer
	// non-cacheable.
	MemoryTypeWriteCombine

	// MemoryTypeUncached is Device-nGnRnE, for memory-mapped peripherals
	// such as the early UART.
	MemoryTypeUncached

	// NumMemoryTypes is the number of memory types.
	NumMemoryTypes
)

// String implements fmt.Stringer.String.
func (mt MemoryType) String() string {
	switch mt {
	case MemoryTypeWriteBack:
		return "WriteBack"
	case MemoryTypeWriteCombine:
		return "WriteCombine"
	case MemoryTypeUncached:
		return "Uncached"
	default:
		return fmt.Sprintf("%d", mt)
	}
}

// ShortString returns a two-character string compactly representing the
// MemoryType.
func (mt MemoryType) ShortString() string {
	switch mt {
	case MemoryTypeWriteBack:
		return "WB"
	case MemoryTypeWriteCombine:
		return "WC"
	case MemoryTypeUncached:
		return "UC"
	default:
		return fmt.Sprintf("%02d", mt)
	}
}

// ParseMemoryType parses the names used in board files. The empty string is
// MemoryTypeWriteBack.
func ParseMemoryType(s string) (MemoryType, error) {
	switch strings.ToLower(s) {
	case "", "writeback", "wb", "normal":
		return MemoryTypeWriteBack, nil
	case "writecombine", "wc", "noncacheable":
		return MemoryTypeWriteCombine, nil
	case "uncached", "uc", "device":
		return MemoryTypeUncached, nil
	}
	return 0, fmt.Errorf("invalid memory type %q, must be one of writeback, writecombine or uncached", s)
}
