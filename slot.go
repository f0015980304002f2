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
	"errors"
	"fmt"
)

const maxTargetPlanes = 4

// PlaneAddrs holds the DMA addresses of one target.
type PlaneAddrs [maxTargetPlanes]uint64

// Targets holds the target addresses of every video node of a frame.
type Targets [numVids]PlaneAddrs

// ResolveSlot returns the frame's target slot for the video node.
// The slot is cleared before it is returned.
func (f *Frame) ResolveSlot(v VideoID) (*PlaneAddrs, error) {
	vi, err := lookupVid(v)
	if err != nil {
		return nil, err
	}
	if vi.param == noParam {
		return nil, fmt.Errorf("%s has no DMA target: %w", v, ErrUnsupportedVideoID)
	}
	s := &f.Targets[v]
	*s = PlaneAddrs{}
	return s, nil
}

// bindTargets copies the buffer addresses of every configured node
// into the frame's target slots, in pipeline and capture order.
func (p *Pipeline) bindTargets(f *Frame) error {
	var errs []error
	bind := func(ip IP, n *Node) {
		if n.Request == RequestOff || n.Result == 0 {
			return
		}
		slot, err := f.ResolveSlot(n.Vid)
		if err != nil {
			p.log.Warn("pablo: cannot bind target", "fcount", f.Count, "vid", n.Vid, "error", err)
			errs = append(errs, &NodeError{IP: ip, Vid: n.Vid, Err: err})
			return
		}
		addrs := n.Addrs
		if n.Request == RequestVotf {
			pool, err := p.pool(n.Vid)
			if err != nil {
				p.log.Warn("pablo: no vOTF buffer", "fcount", f.Count, "vid", n.Vid, "error", err)
				errs = append(errs, &NodeError{IP: ip, Vid: n.Vid, Err: err})
				return
			}
			buf := pool.Get(f.Count)
			addrs = buf.Addrs[:]
		}
		copy(slot[:], addrs)
	}
	for ip := CSI; ip < numIPs; ip++ {
		g := f.Groups[ip]
		if g == nil || !p.cfg.Enabled(ip) {
			continue
		}
		if !g.InputOTF && ipParamTable[ip].dmaIn != noParam {
			bind(ip, &g.Leader)
		}
		for i := range g.Capture {
			if g.Capture[i].Vid != VidNone {
				bind(ip, &g.Capture[i])
			}
		}
	}
	return errors.Join(errs...)
}
