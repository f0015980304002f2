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

// CSI-2 data types programmed per virtual channel.
const (
	dtYUV422 = 0x1E
	dtRAW8   = 0x2A
	dtRAW10  = 0x2B
	dtRAW12  = 0x2C
	dtRAW14  = 0x2D
	dtRAW16  = 0x2E
	dtUser   = 0x30
)

// Number of virtual channels with a DMA output.
const csiDmaChannels = 4

// CSIVCRegs are the registers of one virtual channel DMA.
type CSIVCRegs struct {
	Ctrl   Reg
	Res    Reg
	Stride Reg
	Sbwc   Reg
}

// CSIRegMap locates the CSI receiver registers within the register window.
type CSIRegMap struct {
	VC      [maxVirtualChannels]CSIVCRegs
	IrqSrc  Reg
	IrqErr0 Reg
	IrqErr1 Reg
	IrqDma  Reg
}

var (
	fieldVCEnable   = Field{"enable", 0, 1}
	fieldVCVotf     = Field{"votf_en", 1, 1}
	fieldVCBitMode  = Field{"bit_mode", 4, 5}
	fieldVCDataType = Field{"data_type", 12, 6}
	fieldVCWidth    = Field{"width", 0, 16}
	fieldVCHeight   = Field{"height", 16, 16}
	fieldVCStride   = Field{"stride", 0, 20}
	fieldVCSbwcEn   = Field{"sbwc_en", 0, 1}
	fieldVCSbwcType = Field{"sbwc_type", 4, 2}
	fieldVCSbwc64   = Field{"sbwc_64b_align", 8, 1}
)

// NewCSIRegMap builds the register map from the configured block offsets.
func NewCSIRegMap(c *Config) *CSIRegMap {
	base := c.IP(CSI).Base
	dma := c.CSI.DmaBase
	m := &CSIRegMap{
		IrqSrc:  Reg{base + 0x0010, "csis_int_src0"},
		IrqErr0: Reg{base + 0x0014, "csis_int_src1"},
		IrqErr1: Reg{base + 0x0018, "csis_int_src2"},
		IrqDma:  Reg{dma + 0x0010, "dma_int_src"},
	}
	for vc := range m.VC {
		off := dma + 0x0100 + uint32(vc)*0x40
		m.VC[vc] = CSIVCRegs{
			Ctrl:   Reg{off, fmt.Sprintf("vc%d_ctrl", vc)},
			Res:    Reg{off + 0x04, fmt.Sprintf("vc%d_resol", vc)},
			Stride: Reg{off + 0x08, fmt.Sprintf("vc%d_stride", vc)},
			Sbwc:   Reg{off + 0x0C, fmt.Sprintf("vc%d_sbwc", vc)},
		}
	}
	return m
}

// csiDataType returns the data type received for a DMA block format.
func csiDataType(format HWFormat, bitwidth, msb uint32) uint32 {
	bits := bitwidth
	if bitwidth == 16 && msb < 15 {
		bits = msb
	}
	switch format {
	case HWFormatBayer:
		switch bits {
		case 8:
			return dtRAW8
		case 10:
			return dtRAW10
		case 12:
			return dtRAW12
		case 14:
			return dtRAW14
		case 16:
			return dtRAW16
		}
	case HWFormatYUV422:
		return dtYUV422
	}
	return dtUser
}

func csiDmaParam(vc int) ParamIndex {
	return ParamCSIDmaOutputVC0 + ParamIndex(vc)
}

// tagCSI configures the CSI receiver: the sensor stream is forwarded on the
// fly and each virtual channel capture node is written to memory.
func tagCSI(c *ipContext) error {
	g := c.g
	vcs := c.p.cfg.CSI.VirtualChannels
	for i := range g.Capture {
		n := &g.Capture[i]
		vi, err := lookupVid(n.Vid)
		if n.Vid == VidNone || err != nil || vi.ip != CSI {
			continue
		}
		if vi.vc >= vcs || vi.vc >= csiDmaChannels {
			return fmt.Errorf("%s: vc %d of %d: %w", n.Vid, vi.vc, vcs, ErrInvalidVirtualChannel)
		}
	}
	if err := c.configureControl(); err != nil {
		return err
	}
	sensor := &g.Leader
	in := sensor.Input
	if in.IsNull() {
		in = Crop{0, 0, sensor.Width, sensor.Height}
	}
	var hf hwFormat
	err := ErrNullCrop
	if !in.IsNull() {
		hf, err = c.resolve(sensor)
	}
	if err != nil {
		if derr := c.disableOtfOutput(); derr != nil {
			return derr
		}
		err = c.abandon(c.nodeError(sensor, err))
		c.programVCs()
		return err
	}
	if err := c.configureOtfOutput(in, pixelPath{hf.desc.HWFormat, hf.desc.HWBitwidth, hf.desc.HWOrder}); err != nil {
		return err
	}
	sensor.Result = 1
	errs := c.configureCaptures(func(n *Node) dmaOpt {
		vi, _ := lookupVid(n.Vid)
		return dmaOpt{noSbwc: vi.vc > 0}
	})
	c.programVCs()
	return errors.Join(errs...)
}

// programVCs writes the virtual channel DMA registers from the DMA blocks.
// Every register is composed in full and written once.
func (c *ipContext) programVCs() {
	regs, m := c.p.regs, c.p.csiRegs
	if regs == nil || m == nil {
		return
	}
	align := c.cfg().SbwcAlign
	for vc := 0; vc < min(c.p.cfg.CSI.VirtualChannels, csiDmaChannels); vc++ {
		d, err := c.f.Params.dma(csiDmaParam(vc))
		if err != nil {
			continue
		}
		r := m.VC[vc]
		ctrl := regs.Read(r.Ctrl)
		if d.Cmd != CmdEnable {
			regs.Write(r.Ctrl, fieldVCEnable.Set(ctrl, 0))
			continue
		}
		ctrl = fieldVCEnable.Set(ctrl, 1)
		ctrl = fieldVCVotf.Set(ctrl, d.VotfEn)
		ctrl = fieldVCBitMode.Set(ctrl, d.Bitwidth)
		ctrl = fieldVCDataType.Set(ctrl, csiDataType(HWFormat(d.Format), d.Bitwidth, d.MSB))
		regs.Write(r.Ctrl, ctrl)
		regs.Write(r.Res, fieldVCHeight.Set(fieldVCWidth.Set(0, d.DmaCropWidth), d.DmaCropHeight))
		regs.Write(r.Stride, fieldVCStride.Set(0, d.Stride))
		var sbwc uint32
		if mode, align64 := CompEnable(d.SbwcType, align); mode != CompNone {
			sbwc = fieldVCSbwcEn.Set(sbwc, 1)
			sbwc = fieldVCSbwcType.Set(sbwc, uint32(mode))
			if align64 {
				sbwc = fieldVCSbwc64.Set(sbwc, 1)
			}
		}
		regs.Write(r.Sbwc, sbwc)
		c.log.Debug("pablo: vc programmed", "vc", vc, "ctrl", ctrl, "w", d.DmaCropWidth, "h", d.DmaCropHeight)
	}
}
