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

// StripeRegion is the horizontal geometry of one stripe region.
type StripeRegion struct {
	ID          int
	Start       int // Region boundary start in the full line
	Width       int // Region boundary width
	LeftMargin  int
	RightMargin int
	CropX       int // Start of the processed window, margins included
	CropWidth   int
	OffsetX     int // Start of the region within the processed window
}

// StripeState is the per frame stripe processing state.
// The boundary table is computed once for all regions, and each region
// is then read back from the table.
type StripeState struct {
	RegionNum  int   // 0 when the frame is not split
	RegionID   int   // Current region, 0 to RegionNum-1
	HPixNum    []int // Cumulative boundary of each region
	TotalWidth int
	In         StripeRegion
	Out        StripeRegion
}

// stripeWidth is the boundary width of the middle regions.
func (sc StripeConfig) stripeWidth(width, regions int) int {
	w := alignUp(divRoundUp(width, regions), sc.PixelAlign)
	return alignUp(w, sc.WidthAlign)
}

// boundaries returns the cumulative end of each region. The first region
// is half an alignment block narrower than the others to leave room for
// its margin overlap, and the last region takes the remainder.
func (sc StripeConfig) boundaries(width, regions int) []int {
	sw := sc.stripeWidth(width, regions)
	h := make([]int, regions)
	for i := 0; i < regions-1; i++ {
		h[i] = min(max((i+1)*sw-sc.WidthAlign/2, 0), width)
	}
	h[regions-1] = width
	return h
}

// fits checks every padded region against the constraint.
func (sc StripeConfig) fits(width, constraint, regions int) bool {
	start := 0
	for i, end := range sc.boundaries(width, regions) {
		w := end - start
		if i > 0 {
			w += sc.Margin
		}
		if i < regions-1 {
			w += sc.Margin
		}
		if w > constraint {
			return false
		}
		start = end
	}
	return true
}

// RegionCount returns the number of stripe regions needed to process
// a line of width through an IP accepting at most constraint pixels.
// 0 is returned when no splitting is needed.
func (sc StripeConfig) RegionCount(width, constraint int) (int, error) {
	if width <= constraint {
		return 0, nil
	}
	usable := alignDown(constraint-2*sc.Margin, sc.WidthAlign)
	if usable <= 0 {
		return 0, fmt.Errorf("constraint %d margin %d: %w", constraint, sc.Margin, ErrInvalidConstraint)
	}
	n := divRoundUp(width-2*sc.Margin, usable)
	if n < 2 {
		n = 2
	}
	for ; n <= sc.MaxRegions; n++ {
		if sc.fits(width, constraint, n) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("width %d needs more than %d regions: %w", width, sc.MaxRegions, ErrInvalidConstraint)
}

// Active returns true if the frame is split into regions.
func (s *StripeState) Active() bool {
	return s.RegionNum > 0
}

// Reset discards the boundary table and sets the region count.
func (s *StripeState) Reset(regions int) {
	*s = StripeState{RegionNum: regions}
}

// Planned returns true once the boundary table is filled.
func (s *StripeState) Planned() bool {
	return len(s.HPixNum) == s.RegionNum && s.RegionNum > 0
}

// Plan fills the boundary table of every region for a line of totalWidth.
func (s *StripeState) Plan(totalWidth int, sc StripeConfig) {
	s.TotalWidth = totalWidth
	if s.RegionNum == 0 {
		s.HPixNum = nil
		return
	}
	s.HPixNum = sc.boundaries(totalWidth, s.RegionNum)
}

// Region derives the geometry of region id from the boundary table.
func (s *StripeState) Region(id int, sc StripeConfig) (StripeRegion, error) {
	if id < 0 || id >= s.RegionNum || !s.Planned() {
		return StripeRegion{}, fmt.Errorf("stripe region %d of %d: %w", id, s.RegionNum, ErrInvalidIndex)
	}
	r := StripeRegion{ID: id, LeftMargin: sc.Margin, RightMargin: sc.Margin}
	if id > 0 {
		r.Start = s.HPixNum[id-1]
	} else {
		r.LeftMargin = 0
	}
	if id == s.RegionNum-1 {
		r.RightMargin = 0
	}
	r.Width = s.HPixNum[id] - r.Start
	if r.Width <= 0 {
		return r, fmt.Errorf("stripe region %d of %d: %w", id, s.RegionNum, ErrStripeRegionTooSmall)
	}
	r.CropX = max(0, r.Start-r.LeftMargin)
	end := min(s.TotalWidth, r.Start+r.Width+r.RightMargin)
	r.CropWidth = end - r.CropX
	r.OffsetX = r.Start - r.CropX
	return r, nil
}

// Scale maps a region onto a line of width pixels, keeping the
// boundaries of neighbouring regions contiguous.
func (s *StripeState) Scale(r StripeRegion, width int, sc StripeConfig) StripeRegion {
	if width == s.TotalWidth || s.TotalWidth == 0 {
		return r
	}
	pos := func(x int) int {
		if x >= s.TotalWidth {
			return width
		}
		return alignDown(x*width/s.TotalWidth, 2)
	}
	o := StripeRegion{ID: r.ID}
	o.Start = pos(r.Start)
	o.Width = pos(r.Start+r.Width) - o.Start
	o.LeftMargin = r.LeftMargin * width / s.TotalWidth
	o.RightMargin = r.RightMargin * width / s.TotalWidth
	o.CropX = max(0, o.Start-o.LeftMargin)
	end := min(width, o.Start+o.Width+o.RightMargin)
	o.CropWidth = end - o.CropX
	o.OffsetX = o.Start - o.CropX
	return o
}

// Next advances to the following region, returning false after the last.
func (s *StripeState) Next() bool {
	if s.RegionID+1 >= s.RegionNum {
		return false
	}
	s.RegionID++
	return true
}
