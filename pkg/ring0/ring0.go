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

// Package ring0 takes the boot core from reset to a running MMU.
//
// It turns a Board description and the linker's symbol addresses into
// translation tables, computes the system register values that enable them,
// and hands control to the kernel. Everything that touches the hardware goes
// through the CPU interface, so the same path runs on the target and in
// tests.
package ring0
