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
	"encoding/binary"
	"fmt"
	"io"
)

// Submitter pushes the modified parameter blocks of one IP to the firmware.
// On error none of the blocks may be assumed to be applied.
type Submitter interface {
	Submit(f *Frame, ip IP, pm *Pmap) error
}

type ram []byte

// Open creates a type that can use a Reader/Writer interface to the
// underlying byte array.
func (base ram) Open() *ramIO {
	return &ramIO{Data: base, max: len(base)}
}

// ramIO implements various io interfaces, using an underlying byte array.
type ramIO struct {
	Data    []byte
	current int
	max     int
}

// Write copies the byte slice into the RAM array
func (r *ramIO) Write(p []byte) (int, error) {
	if r.current >= r.max {
		return 0, io.EOF
	}
	n := copy(r.Data[r.current:], p)
	r.current += n
	if n != len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek moves the offset
func (r *ramIO) Seek(offs int64, whence int) (int64, error) {
	n := int(offs)
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		n += r.current
	case io.SeekEnd:
		n = r.max - n
	default:
		return 0, fmt.Errorf("unknown whence")
	}
	if n < 0 {
		return 0, fmt.Errorf("negative offset")
	}
	r.current = n
	return int64(r.current), nil
}

func (r *ramIO) Read(p []byte) (int, error) {
	if r.current >= r.max {
		return 0, io.EOF
	}
	n := copy(p, r.Data[r.current:])
	r.current += n
	if n != len(p) {
		return n, io.EOF
	}
	return n, nil
}

// ParamRegion is the shared memory area the firmware reads the
// parameter blocks from. It holds a number of frame slots, each with a
// header carrying the dirty map followed by every parameter block.
type ParamRegion struct {
	mem      ram
	order    binary.ByteOrder
	slots    int
	header   int
	slotSize int
	offsets  [numParams]int
}

// NewParamRegion lays out slots frame instances in mem.
func NewParamRegion(mem []byte, order binary.ByteOrder, slots int) (*ParamRegion, error) {
	r := &ParamRegion{mem: mem, order: order, slots: slots, header: pmapWords * 8}
	tmpl := NewParams()
	offs := r.header
	for i := range r.offsets {
		r.offsets[i] = offs
		offs += binary.Size(tmpl.blocks[i])
	}
	r.slotSize = offs
	if slots <= 0 || r.slotSize*slots > len(mem) {
		return nil, fmt.Errorf("parameter region of %d bytes cannot hold %d slots of %d bytes: %w",
			len(mem), slots, r.slotSize, ErrInvalidConstraint)
	}
	return r, nil
}

func (r *ParamRegion) slotBase(count uint32) int {
	return int(count%uint32(r.slots)) * r.slotSize
}

// Submit writes the marked blocks of the frame to the frame's slot and
// records them in the slot's dirty map.
func (r *ParamRegion) Submit(f *Frame, ip IP, pm *Pmap) error {
	var bad []ParamIndex
	pm.Each(func(i ParamIndex) {
		if i.IP() != ip {
			bad = append(bad, i)
		}
	})
	if len(bad) != 0 {
		return fmt.Errorf("%s: blocks %v belong to another IP: %w", ip, bad, ErrSubmit)
	}
	base := r.slotBase(f.Count)
	w := r.mem.Open()
	var words [pmapWords]uint64
	w.Seek(int64(base), io.SeekStart)
	if err := binary.Read(w, r.order, &words); err != nil {
		return fmt.Errorf("%s: header: %v: %w", ip, err, ErrSubmit)
	}
	for i, v := range pm.Words() {
		words[i] |= v
	}
	w.Seek(int64(base), io.SeekStart)
	if err := binary.Write(w, r.order, &words); err != nil {
		return fmt.Errorf("%s: header: %v: %w", ip, err, ErrSubmit)
	}
	var err error
	pm.Each(func(i ParamIndex) {
		if err != nil {
			return
		}
		w.Seek(int64(base+r.offsets[i]), io.SeekStart)
		if e := binary.Write(w, r.order, f.Params.blocks[i]); e != nil {
			err = fmt.Errorf("%s: %s: %v: %w", ip, i, e, ErrSubmit)
		}
	})
	return err
}

// Load reads a parameter block of a frame slot into dst.
func (r *ParamRegion) Load(count uint32, i ParamIndex, dst any) error {
	if i < 0 || i >= numParams {
		return fmt.Errorf("%s: %w", i, ErrInvalidIndex)
	}
	w := r.mem.Open()
	w.Seek(int64(r.slotBase(count)+r.offsets[i]), io.SeekStart)
	return binary.Read(w, r.order, dst)
}

// Dirty returns the dirty map recorded in the frame slot.
func (r *ParamRegion) Dirty(count uint32) Pmap {
	var pm Pmap
	w := r.mem.Open()
	w.Seek(int64(r.slotBase(count)), io.SeekStart)
	binary.Read(w, r.order, &pm.bits)
	return pm
}

// Clear resets the dirty map of the frame slot once the firmware
// consumed it.
func (r *ParamRegion) Clear(count uint32) {
	base := r.slotBase(count)
	for i := base; i < base+r.header; i++ {
		r.mem[i] = 0
	}
}
