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
	"fmt"
)

// InternalFrame is one buffer of a virtual OTF link.
type InternalFrame struct {
	Index int
	Addrs PlaneAddrs
}

// Pool is a ring of internal buffers handing frames between two IPs
// through memory. The buffer used by a frame is selected by its count,
// so the ring must be deeper than the number of frames in flight.
type Pool struct {
	frames []InternalFrame
}

// NewPool creates a ring of size buffers of bufSize bytes,
// laid out contiguously from base.
func NewPool(size int, base, bufSize uint64) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size %d: %w", size, ErrInvalidConstraint)
	}
	p := &Pool{frames: make([]InternalFrame, size)}
	for i := range p.frames {
		p.frames[i].Index = i
		p.frames[i].Addrs[0] = base + uint64(i)*bufSize
	}
	return p, nil
}

// Size returns the number of buffers in the ring.
func (p *Pool) Size() int {
	return len(p.frames)
}

// Get returns the buffer for the frame count.
// The ring is read only once created.
func (p *Pool) Get(count uint32) InternalFrame {
	return p.frames[int(count%uint32(len(p.frames)))]
}

// pool returns the vOTF pool serving the video node.
func (p *Pipeline) pool(v VideoID) (*Pool, error) {
	vi, err := lookupVid(v)
	if err != nil {
		return nil, err
	}
	if vi.peer == VidNone {
		return nil, fmt.Errorf("%s cannot use vOTF: %w", v, ErrUnsupportedVideoID)
	}
	pool, ok := p.pools[vi.producer(v)]
	if !ok {
		return nil, fmt.Errorf("%s: no vOTF pool: %w", v, ErrInvalidIndex)
	}
	return pool, nil
}
