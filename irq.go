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
	"math/bits"
)

// CSIErr is a bit position in the per channel CSI error mask.
type CSIErr uint

const (
	CSIErrID CSIErr = iota
	CSIErrCRC
	CSIErrECC
	CSIErrWrongCfg
	CSIErrOverflowVC
	CSIErrLostFEVC
	CSIErrLostFSVC
	CSIErrSotVC
	CSIErrInvalidCodeHS
	CSIErrSotSyncHS
	CSIErrDeskewOver
	CSIErrSkew
	CSIErrMalCRC
	CSIErrVResolMismatch
	CSIErrHResolMismatch
	CSIErrCRCCPHY
	numCSIErrs
)

var csiErrNames = [numCSIErrs]string{
	"ID", "CRC", "ECC", "WRONG_CFG", "OVERFLOW_VC", "LOST_FE_VC", "LOST_FS_VC", "SOT_VC",
	"INVALID_CODE_HS", "SOT_SYNC_HS", "DESKEW_OVER", "SKEW", "MAL_CRC",
	"VRESOL_MISMATCH", "HRESOL_MISMATCH", "CRC_CPHY",
}

func (e CSIErr) String() string {
	if e < numCSIErrs {
		return csiErrNames[e]
	}
	return "UNKNOWN"
}

// IrqRaw holds the CSI interrupt source registers as read.
type IrqRaw struct {
	Src  uint32 // Frame start, frame end and line end per VC
	Err0 uint32 // Global and per lane errors
	Err1 uint32 // Per VC errors
	Dma  uint32 // DMA start, end and abort per VC
}

// IrqSource is a decoded CSI interrupt.
type IrqSource struct {
	ErrID    [maxVirtualChannels]uint32 // Mask of CSIErr bits per VC or lane
	OtfStart uint32
	OtfEnd   uint32
	LineEnd  uint32
	DmaStart uint32
	DmaEnd   uint32
	DmaAbort uint32
	ErrFlag  bool
}

// Global error bits of the first error register.
var csiGlobalErrs = []struct {
	bit uint
	err CSIErr
}{
	{0, CSIErrOverflowVC},
	{1, CSIErrCRC},
	{2, CSIErrECC},
	{3, CSIErrWrongCfg},
	{4, CSIErrID},
	{5, CSIErrMalCRC},
	{6, CSIErrCRCCPHY},
	{7, CSIErrDeskewOver},
	{8, CSIErrSkew},
}

// Per lane error fields of the first error register.
var csiLaneErrs = []struct {
	shift uint
	err   CSIErr
}{
	{12, CSIErrSotSyncHS},
	{16, CSIErrSotVC},
	{20, CSIErrInvalidCodeHS},
}

// Per VC error fields of the second error register.
var csiVCErrs = []struct {
	shift uint
	err   CSIErr
}{
	{0, CSIErrLostFSVC},
	{8, CSIErrLostFEVC},
	{16, CSIErrVResolMismatch},
	{24, CSIErrHResolMismatch},
}

// DecodeCSIIrq decodes raw CSI interrupt registers.
// Global errors are reported on channel 0 only.
func DecodeCSIIrq(raw IrqRaw, vcs, lanes int) IrqSource {
	var s IrqSource
	vcs = min(max(vcs, 0), maxVirtualChannels)
	lanes = min(max(lanes, 0), maxLanes)
	vcMask := uint32(1)<<uint(vcs) - 1
	s.OtfStart = raw.Src & 0xFF & vcMask
	s.OtfEnd = (raw.Src >> 8) & 0xFF & vcMask
	s.LineEnd = (raw.Src >> 16) & 0xFF & vcMask
	s.DmaStart = raw.Dma & 0xFF & vcMask
	s.DmaEnd = (raw.Dma >> 8) & 0xFF & vcMask
	s.DmaAbort = (raw.Dma >> 16) & 0xFF & vcMask

	for _, g := range csiGlobalErrs {
		if raw.Err0&(1<<g.bit) != 0 {
			s.ErrID[0] |= 1 << g.err
		}
	}
	for lane := 0; lane < lanes; lane++ {
		for _, e := range csiLaneErrs {
			if raw.Err0&(1<<(e.shift+uint(lane))) != 0 {
				s.ErrID[lane] |= 1 << e.err
			}
		}
	}
	for vc := 0; vc < vcs; vc++ {
		for _, e := range csiVCErrs {
			if raw.Err1&(1<<(e.shift+uint(vc))) != 0 {
				s.ErrID[vc] |= 1 << e.err
			}
		}
	}
	for _, m := range s.ErrID {
		if m != 0 {
			s.ErrFlag = true
		}
	}
	return s
}

// ReadCSIIrq reads and decodes the CSI interrupt registers.
// When clear is set, each non-zero register is written back to
// acknowledge the bits that were read.
func ReadCSIIrq(regs Registers, m *CSIRegMap, vcs, lanes int, clear bool) IrqSource {
	var raw IrqRaw
	for _, r := range []struct {
		reg Reg
		v   *uint32
	}{
		{m.IrqSrc, &raw.Src},
		{m.IrqErr0, &raw.Err0},
		{m.IrqErr1, &raw.Err1},
		{m.IrqDma, &raw.Dma},
	} {
		*r.v = regs.Read(r.reg)
		if clear && *r.v != 0 {
			regs.Write(r.reg, *r.v)
		}
	}
	return DecodeCSIIrq(raw, vcs, lanes)
}

// Errors returns the names of the errors reported on the channel.
func (s *IrqSource) Errors(vc int) []string {
	if vc < 0 || vc >= len(s.ErrID) {
		return nil
	}
	var l []string
	for m := s.ErrID[vc]; m != 0; {
		b := bits.TrailingZeros32(m)
		m &^= 1 << uint(b)
		l = append(l, CSIErr(b).String())
	}
	return l
}
