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

package log

import (
	"fmt"
	"strings"
	"time"
)

// ConsoleEmitter emits lines in the "[LEVEL]: msg" format of the kernel's
// early debug console. It carries no timestamp or caller, since the console
// on the target has neither a clock nor symbols at this stage.
type ConsoleEmitter struct {
	*Writer
}

// Emit implements Emitter.Emit.
func (c ConsoleEmitter) Emit(_ int, level Level, _ time.Time, format string, v ...any) {
	c.Writer.Write([]byte(fmt.Sprintf("[%s]: %s\n", strings.ToUpper(level.String()), fmt.Sprintf(format, v...))))
}
