// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pablo

import (
	"sync/atomic"
	"unsafe"
)

// Reg describes one 32 bit register, relative to the base of its block.
type Reg struct {
	Offset uint32
	Name   string
}

// Field describes a bit field within a register.
type Field struct {
	Name  string
	Shift uint
	Width uint
}

// Registers is the access layer to a block of hardware registers.
type Registers interface {
	Read(r Reg) uint32
	Write(r Reg, v uint32)
}

func (f Field) mask() uint32 {
	return uint32((uint64(1)<<f.Width)-1) << f.Shift
}

// Get extracts the field from a register value.
func (f Field) Get(v uint32) uint32 {
	return (v & f.mask()) >> f.Shift
}

// Set returns the register value cur with the field replaced by v.
// No register is accessed, so several fields can be combined before
// a single Write.
func (f Field) Set(cur, v uint32) uint32 {
	return (cur &^ f.mask()) | ((v << f.Shift) & f.mask())
}

// ReadField reads the register and extracts the field.
func ReadField(regs Registers, r Reg, f Field) uint32 {
	return f.Get(regs.Read(r))
}

// WriteField performs a read/modify/write of a single field.
func WriteField(regs Registers, r Reg, f Field, v uint32) {
	regs.Write(r, f.Set(regs.Read(r), v))
}

// MemRegs accesses registers held in a memory mapped window.
type MemRegs struct {
	mem  []byte
	base uint32
}

// NewMemRegs creates register access over the memory window.
func NewMemRegs(mem []byte) *MemRegs {
	return &MemRegs{mem: mem}
}

// Window returns register access relative to base within the same memory.
func (m *MemRegs) Window(base uint32) *MemRegs {
	return &MemRegs{mem: m.mem, base: m.base + base}
}

// Read reads one 32 bit register
func (m *MemRegs) Read(r Reg) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&m.mem[m.base+r.Offset])))
}

// Write writes one 32 bit register
func (m *MemRegs) Write(r Reg, v uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&m.mem[m.base+r.Offset])), v)
}
