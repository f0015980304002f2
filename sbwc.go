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

// CompMode is the SBWC compression mode of a DMA buffer.
type CompMode int

const (
	CompNone CompMode = iota
	CompLossless
	CompLossy
)

func (m CompMode) String() string {
	switch m {
	case CompLossless:
		return "lossless"
	case CompLossy:
		return "lossy"
	}
	return "none"
}

// SBWC type word: the low nibble carries the compression code,
// the alignment bits are IP specific.
const (
	sbwcTypeMask = 0xF
	sbwcLossless = 1
	sbwcLossy    = 2
	sbwcAlign64  = 0x10
)

const (
	dmaStrideAlign = 16 // Uncompressed line alignment in bytes
	byte32         = 32
	byte64         = 64
)

func divRoundUp(n, d int) int {
	return (n + d - 1) / d
}

func alignUp(n, a int) int {
	return divRoundUp(n, a) * a
}

func alignDown(n, a int) int {
	return (n / a) * a
}

// SbwcType builds the SBWC type word from the node compression selector
// and the alignment bits of the IP.
func SbwcType(e Extra, alignMask uint32) uint32 {
	if e == ExtraNone {
		return 0
	}
	return alignMask | uint32(e)&sbwcTypeMask
}

// CompEnable decodes the SBWC type word. Unknown codes disable compression.
func CompEnable(sbwcType, alignMask uint32) (mode CompMode, align64 bool) {
	switch sbwcType & sbwcTypeMask {
	case sbwcLossless:
		mode = CompLossless
	case sbwcLossy:
		mode = CompLossy
	default:
		return CompNone, false
	}
	return mode, alignMask != 0 && sbwcType&alignMask == alignMask
}

// LossyByte32Num returns the number of 32 byte units a lossy block is
// compressed to. Lossy blocks hold half of the raw block size.
func LossyByte32Num(mode CompMode, bitDepth int, blk BlockSize) int {
	if mode != CompLossy {
		return 0
	}
	raw := divRoundUp(divRoundUp(bitDepth*blk.Width*blk.Height, 8), byte32)
	return divRoundUp(raw, 2)
}

// PayloadStride returns the compressed payload bytes of one block row.
func PayloadStride(mode CompMode, bitDepth, width int, align64 bool, byte32num int, blk BlockSize) int {
	if width <= 0 || blk.Width <= 0 {
		return 0
	}
	blocks := divRoundUp(width, blk.Width)
	unit := byte32
	if align64 {
		unit = byte64
	}
	switch mode {
	case CompLossless:
		return blocks * alignUp(divRoundUp(bitDepth*blk.Width*blk.Height, 8), unit)
	case CompLossy:
		return blocks * alignUp(byte32num*byte32, unit)
	}
	return 0
}

// HeaderStride returns the header bytes of one block row.
// Every block has a 4 bit header.
func HeaderStride(width, blockWidth, unit int) int {
	if width <= 0 || blockWidth <= 0 {
		return 0
	}
	return alignUp(divRoundUp(divRoundUp(width, blockWidth), 2), unit)
}

// PayloadSize returns the payload plane size for height lines.
func PayloadSize(stride, height int, blk BlockSize) int {
	return stride * divRoundUp(height, blk.Height)
}

// HeaderSize returns the header plane size for height lines.
func HeaderSize(stride, height int, blk BlockSize) int {
	return stride * divRoundUp(height, blk.Height)
}

// ImageStride returns the line stride of a DMA buffer.
// bpp is the significant bits per pixel, bitwidth the memory bits per pixel.
// Uncompressed buffers are bit packed when the two are equal.
func ImageStride(width, bpp, bitwidth int, sbwcType, alignMask uint32, blk BlockSize) int {
	if width <= 0 {
		return 0
	}
	mode, align64 := CompEnable(sbwcType, alignMask)
	if mode != CompNone {
		return PayloadStride(mode, bpp, width, align64, LossyByte32Num(mode, bpp, blk), blk)
	}
	if bpp == bitwidth {
		return alignUp(divRoundUp(width*bitwidth, 8), dmaStrideAlign)
	}
	return alignUp(width*divRoundUp(bitwidth, 8), dmaStrideAlign)
}
