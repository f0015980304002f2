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
	"math/bits"
)

// ParamIndex identifies one parameter block of the parameter region.
type ParamIndex int

const (
	ParamCSIControl ParamIndex = iota
	ParamCSIOtfOutput
	ParamCSIDmaOutputVC0
	ParamCSIDmaOutputVC1
	ParamCSIDmaOutputVC2
	ParamCSIDmaOutputVC3

	ParamCSTATControl
	ParamCSTATOtfInput
	ParamCSTATDmaInput
	ParamCSTATOtfOutput
	ParamCSTATLmeDS
	ParamCSTATFdpig
	ParamCSTATDrc
	ParamCSTATCds

	ParamBYRPControl
	ParamBYRPOtfInput
	ParamBYRPDmaInput
	ParamBYRPOtfOutput
	ParamBYRPStripeInput
	ParamBYRPHdrInput
	ParamBYRPByrOutput

	ParamRGBPControl
	ParamRGBPOtfInput
	ParamRGBPDmaInput
	ParamRGBPOtfOutput
	ParamRGBPStripeInput
	ParamRGBPHfOutput
	ParamRGBPSfOutput
	ParamRGBPYuvOutput
	ParamRGBPRgbOutput

	ParamLMEControl
	ParamLMEDmaInput
	ParamLMEPrevInput
	ParamLMEMvOutput
	ParamLMESadOutput

	ParamMCFPControl
	ParamMCFPOtfInput
	ParamMCFPDmaInput
	ParamMCFPOtfOutput
	ParamMCFPStripeInput
	ParamMCFPPrevYuvInput
	ParamMCFPPrevWInput
	ParamMCFPMvInput
	ParamMCFPYuvOutput
	ParamMCFPWOutput

	ParamYUVPControl
	ParamYUVPOtfInput
	ParamYUVPDmaInput
	ParamYUVPOtfOutput
	ParamYUVPStripeInput
	ParamYUVPSegInput
	ParamYUVPDrcInput
	ParamYUVPClaheInput
	ParamYUVPHfInput

	numParams
)

type paramKind int

const (
	kindControl paramKind = iota
	kindOtfInput
	kindOtfOutput
	kindDmaInput
	kindDmaOutput
	kindStripeInput
)

type paramInfo struct {
	name string
	ip   IP
	kind paramKind
}

var paramTable = [numParams]paramInfo{
	ParamCSIControl:      {"csi_control", CSI, kindControl},
	ParamCSIOtfOutput:    {"csi_otf_output", CSI, kindOtfOutput},
	ParamCSIDmaOutputVC0: {"csi_dma_output_vc0", CSI, kindDmaOutput},
	ParamCSIDmaOutputVC1: {"csi_dma_output_vc1", CSI, kindDmaOutput},
	ParamCSIDmaOutputVC2: {"csi_dma_output_vc2", CSI, kindDmaOutput},
	ParamCSIDmaOutputVC3: {"csi_dma_output_vc3", CSI, kindDmaOutput},

	ParamCSTATControl:   {"cstat_control", CSTAT, kindControl},
	ParamCSTATOtfInput:  {"cstat_otf_input", CSTAT, kindOtfInput},
	ParamCSTATDmaInput:  {"cstat_dma_input", CSTAT, kindDmaInput},
	ParamCSTATOtfOutput: {"cstat_otf_output", CSTAT, kindOtfOutput},
	ParamCSTATLmeDS:     {"cstat_lme_ds", CSTAT, kindDmaOutput},
	ParamCSTATFdpig:     {"cstat_fdpig", CSTAT, kindDmaOutput},
	ParamCSTATDrc:       {"cstat_drc", CSTAT, kindDmaOutput},
	ParamCSTATCds:       {"cstat_cds", CSTAT, kindDmaOutput},

	ParamBYRPControl:     {"byrp_control", BYRP, kindControl},
	ParamBYRPOtfInput:    {"byrp_otf_input", BYRP, kindOtfInput},
	ParamBYRPDmaInput:    {"byrp_dma_input", BYRP, kindDmaInput},
	ParamBYRPOtfOutput:   {"byrp_otf_output", BYRP, kindOtfOutput},
	ParamBYRPStripeInput: {"byrp_stripe_input", BYRP, kindStripeInput},
	ParamBYRPHdrInput:    {"byrp_hdr_input", BYRP, kindDmaInput},
	ParamBYRPByrOutput:   {"byrp_byr_output", BYRP, kindDmaOutput},

	ParamRGBPControl:     {"rgbp_control", RGBP, kindControl},
	ParamRGBPOtfInput:    {"rgbp_otf_input", RGBP, kindOtfInput},
	ParamRGBPDmaInput:    {"rgbp_dma_input", RGBP, kindDmaInput},
	ParamRGBPOtfOutput:   {"rgbp_otf_output", RGBP, kindOtfOutput},
	ParamRGBPStripeInput: {"rgbp_stripe_input", RGBP, kindStripeInput},
	ParamRGBPHfOutput:    {"rgbp_hf_output", RGBP, kindDmaOutput},
	ParamRGBPSfOutput:    {"rgbp_sf_output", RGBP, kindDmaOutput},
	ParamRGBPYuvOutput:   {"rgbp_yuv_output", RGBP, kindDmaOutput},
	ParamRGBPRgbOutput:   {"rgbp_rgb_output", RGBP, kindDmaOutput},

	ParamLMEControl:   {"lme_control", LME, kindControl},
	ParamLMEDmaInput:  {"lme_dma_input", LME, kindDmaInput},
	ParamLMEPrevInput: {"lme_prev_input", LME, kindDmaInput},
	ParamLMEMvOutput:  {"lme_mv_output", LME, kindDmaOutput},
	ParamLMESadOutput: {"lme_sad_output", LME, kindDmaOutput},

	ParamMCFPControl:      {"mcfp_control", MCFP, kindControl},
	ParamMCFPOtfInput:     {"mcfp_otf_input", MCFP, kindOtfInput},
	ParamMCFPDmaInput:     {"mcfp_dma_input", MCFP, kindDmaInput},
	ParamMCFPOtfOutput:    {"mcfp_otf_output", MCFP, kindOtfOutput},
	ParamMCFPStripeInput:  {"mcfp_stripe_input", MCFP, kindStripeInput},
	ParamMCFPPrevYuvInput: {"mcfp_prev_yuv_input", MCFP, kindDmaInput},
	ParamMCFPPrevWInput:   {"mcfp_prev_w_input", MCFP, kindDmaInput},
	ParamMCFPMvInput:      {"mcfp_mv_input", MCFP, kindDmaInput},
	ParamMCFPYuvOutput:    {"mcfp_yuv_output", MCFP, kindDmaOutput},
	ParamMCFPWOutput:      {"mcfp_w_output", MCFP, kindDmaOutput},

	ParamYUVPControl:     {"yuvp_control", YUVP, kindControl},
	ParamYUVPOtfInput:    {"yuvp_otf_input", YUVP, kindOtfInput},
	ParamYUVPDmaInput:    {"yuvp_dma_input", YUVP, kindDmaInput},
	ParamYUVPOtfOutput:   {"yuvp_otf_output", YUVP, kindOtfOutput},
	ParamYUVPStripeInput: {"yuvp_stripe_input", YUVP, kindStripeInput},
	ParamYUVPSegInput:    {"yuvp_seg_input", YUVP, kindDmaInput},
	ParamYUVPDrcInput:    {"yuvp_drc_input", YUVP, kindDmaInput},
	ParamYUVPClaheInput:  {"yuvp_clahe_input", YUVP, kindDmaInput},
	ParamYUVPHfInput:     {"yuvp_hf_input", YUVP, kindDmaInput},
}

func (i ParamIndex) String() string {
	if i < 0 || i >= numParams {
		return fmt.Sprintf("param(%d)", int(i))
	}
	return paramTable[i].name
}

// IP returns the IP owning the parameter block.
func (i ParamIndex) IP() IP {
	return paramTable[i].ip
}

// Command values.
const (
	CmdDisable = 0
	CmdEnable  = 1
)

// Control is the control block of an IP.
type Control struct {
	Cmd    uint32
	Bypass uint32
}

// OtfInput describes on-the-fly pixel input from the previous IP.
type OtfInput struct {
	Cmd        uint32
	Format     uint32
	Bitwidth   uint32
	Order      uint32
	Width      uint32
	Height     uint32
	CropX      uint32
	CropY      uint32
	CropWidth  uint32
	CropHeight uint32
}

// OtfOutput describes on-the-fly pixel output to the next IP.
type OtfOutput struct {
	Cmd        uint32
	Format     uint32
	Bitwidth   uint32
	Order      uint32
	Width      uint32
	Height     uint32
	CropX      uint32
	CropY      uint32
	CropWidth  uint32
	CropHeight uint32
}

// DMA holds the fields shared by DMA input and output blocks.
type DMA struct {
	Cmd           uint32
	Format        uint32
	Bitwidth      uint32
	MSB           uint32
	Order         uint32
	Plane         uint32
	Width         uint32
	Height        uint32
	CropX         uint32
	CropY         uint32
	CropWidth     uint32
	CropHeight    uint32
	DmaCropX      uint32
	DmaCropY      uint32
	DmaCropWidth  uint32
	DmaCropHeight uint32
	SbwcType      uint32
	VotfEn        uint32
	Stride        uint32
	HeaderStride  uint32
}

// DmaInput is a memory read block.
type DmaInput struct {
	DMA
}

// DmaOutput is a memory write block.
type DmaOutput struct {
	DMA
}

// StripeInput carries the stripe geometry of the current region.
type StripeInput struct {
	RegionNum   uint32
	RegionID    uint32
	LeftMargin  uint32
	RightMargin uint32
	FullWidth   uint32
	StartPosX   uint32
	StripeWidth uint32
}

// Params holds one instance of every parameter block.
type Params struct {
	blocks [numParams]any
}

// NewParams allocates a zeroed parameter set.
func NewParams() *Params {
	p := new(Params)
	for i, pi := range paramTable {
		switch pi.kind {
		case kindControl:
			p.blocks[i] = new(Control)
		case kindOtfInput:
			p.blocks[i] = new(OtfInput)
		case kindOtfOutput:
			p.blocks[i] = new(OtfOutput)
		case kindDmaInput:
			p.blocks[i] = new(DmaInput)
		case kindDmaOutput:
			p.blocks[i] = new(DmaOutput)
		case kindStripeInput:
			p.blocks[i] = new(StripeInput)
		}
	}
	return p
}

func blockOf[T any](p *Params, i ParamIndex) (*T, error) {
	if i < 0 || i >= numParams {
		return nil, fmt.Errorf("%s: %w", i, ErrInvalidIndex)
	}
	b, ok := p.blocks[i].(*T)
	if !ok {
		return nil, fmt.Errorf("%s has kind %d: %w", i, paramTable[i].kind, ErrInvalidIndex)
	}
	return b, nil
}

// Block returns the parameter block at the index.
func (p *Params) Block(i ParamIndex) (any, error) {
	if i < 0 || i >= numParams {
		return nil, fmt.Errorf("%s: %w", i, ErrInvalidIndex)
	}
	return p.blocks[i], nil
}

func (p *Params) Control(i ParamIndex) (*Control, error) {
	return blockOf[Control](p, i)
}

func (p *Params) OtfInput(i ParamIndex) (*OtfInput, error) {
	return blockOf[OtfInput](p, i)
}

func (p *Params) OtfOutput(i ParamIndex) (*OtfOutput, error) {
	return blockOf[OtfOutput](p, i)
}

func (p *Params) DmaInput(i ParamIndex) (*DmaInput, error) {
	return blockOf[DmaInput](p, i)
}

func (p *Params) DmaOutput(i ParamIndex) (*DmaOutput, error) {
	return blockOf[DmaOutput](p, i)
}

func (p *Params) StripeInput(i ParamIndex) (*StripeInput, error) {
	return blockOf[StripeInput](p, i)
}

// dma returns the shared DMA fields of a DMA input or output block.
func (p *Params) dma(i ParamIndex) (*DMA, error) {
	if i < 0 || i >= numParams {
		return nil, fmt.Errorf("%s: %w", i, ErrInvalidIndex)
	}
	switch b := p.blocks[i].(type) {
	case *DmaInput:
		return &b.DMA, nil
	case *DmaOutput:
		return &b.DMA, nil
	}
	return nil, fmt.Errorf("%s is not a DMA block: %w", i, ErrInvalidIndex)
}

const pmapWords = (int(numParams) + 63) / 64

// Pmap is the set of parameter blocks modified during one
// configuration pass of one IP.
type Pmap struct {
	bits [pmapWords]uint64
}

// Set marks the block as modified.
func (m *Pmap) Set(i ParamIndex) {
	m.bits[i/64] |= 1 << uint(i%64)
}

// Test returns true if the block is marked.
func (m *Pmap) Test(i ParamIndex) bool {
	if i < 0 || i >= numParams {
		return false
	}
	return m.bits[i/64]&(1<<uint(i%64)) != 0
}

// Empty returns true if no block is marked.
func (m *Pmap) Empty() bool {
	return m.Count() == 0
}

// Count returns the number of marked blocks.
func (m *Pmap) Count() int {
	n := 0
	for _, w := range m.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

// Each calls f for every marked block in ascending order.
func (m *Pmap) Each(f func(ParamIndex)) {
	for wi, w := range m.bits {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			w &^= 1 << uint(b)
			f(ParamIndex(wi*64 + b))
		}
	}
}

// Indices returns the marked blocks in ascending order.
func (m *Pmap) Indices() []ParamIndex {
	var l []ParamIndex
	m.Each(func(i ParamIndex) { l = append(l, i) })
	return l
}

// Words returns the bitmap words.
func (m *Pmap) Words() []uint64 {
	return m.bits[:]
}
