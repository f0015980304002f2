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

// PixelFormat is a V4L2 fourcc pixel format code.
type PixelFormat uint32

func (p PixelFormat) String() string {
	b := []byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)}
	return string(b)
}

const (
	PixFmtSBGGR8    PixelFormat = 'B' | 'A'<<8 | '8'<<16 | '1'<<24
	PixFmtSBGGR10P  PixelFormat = 'p' | 'B'<<8 | 'A'<<16 | 'A'<<24
	PixFmtSBGGR12P  PixelFormat = 'p' | 'B'<<8 | 'C'<<16 | 'C'<<24
	PixFmtSBGGR10   PixelFormat = 'B' | 'G'<<8 | '1'<<16 | '0'<<24
	PixFmtSBGGR12   PixelFormat = 'B' | 'G'<<8 | '1'<<16 | '2'<<24
	PixFmtSBGGR16   PixelFormat = 'B' | 'Y'<<8 | 'R'<<16 | '2'<<24
	PixFmtGREY      PixelFormat = 'G' | 'R'<<8 | 'E'<<16 | 'Y'<<24
	PixFmtNV12M     PixelFormat = 'N' | 'M'<<8 | '1'<<16 | '2'<<24
	PixFmtNV21M     PixelFormat = 'N' | 'M'<<8 | '2'<<16 | '1'<<24
	PixFmtNV16M     PixelFormat = 'N' | 'M'<<8 | '1'<<16 | '6'<<24
	PixFmtNV12MP010 PixelFormat = 'P' | 'M'<<8 | '1'<<16 | '2'<<24
	PixFmtYUYV      PixelFormat = 'Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24
	PixFmtRGB24     PixelFormat = 'R' | 'G'<<8 | 'B'<<16 | '3'<<24
	PixFmtRAW10                 = PixFmtSBGGR10P
)

// PixelSize selects the memory packing of a pixel format.
type PixelSize uint32

const (
	PixelSizeNative   PixelSize = iota // As implied by the pixel format
	PixelSizePacked10                  // 10 bit packed
	PixelSizePacked12                  // 12 bit packed
	PixelSize13                        // 13 bit packed
)

// Extra selects the SBWC compression of a buffer.
type Extra uint32

const (
	ExtraNone      Extra = iota
	ExtraComp            // Lossless
	ExtraCompLossy       // Lossy
)

// Flag layout of the node flags word.
const (
	flagSizeMask   = 0xF
	flagExtraShift = 16
	flagExtraMask  = 0xF << flagExtraShift
)

// ParseFlags splits the packed node flags word.
func ParseFlags(flags uint32) (PixelSize, Extra) {
	return PixelSize(flags & flagSizeMask), Extra((flags & flagExtraMask) >> flagExtraShift)
}

// PackFlags builds a node flags word.
func PackFlags(s PixelSize, e Extra) uint32 {
	return uint32(s)&flagSizeMask | (uint32(e)<<flagExtraShift)&flagExtraMask
}

// HWFormat is the format code programmed in the DMA and OTF blocks.
type HWFormat uint32

const (
	HWFormatNone HWFormat = iota
	HWFormatBayer
	HWFormatYUV420
	HWFormatYUV422
	HWFormatY
	HWFormatRGB
)

// HWOrder is the component order.
type HWOrder uint32

const (
	OrderNone HWOrder = iota
	OrderBGGR
	OrderCbCr
	OrderCrCb
	OrderYCbYCr
	OrderRGB
)

// Layout is the memory layout of a pixel.
type Layout int

const (
	LayoutPacked   Layout = iota // Bits stored back to back
	LayoutUnpacked               // One pixel per 16 bit word
)

const maxPlanes = 3

// FormatDesc describes how a pixel format is handled by the hardware.
type FormatDesc struct {
	PixelFormat  PixelFormat
	Size         PixelSize
	HWFormat     HWFormat
	HWBitwidth   uint32 // Significant bits per pixel
	HWOrder      HWOrder
	HWPlane      uint32
	Layout       Layout
	BitsPerPixel [maxPlanes]uint32 // Memory bits per pixel, per plane
}

type formatKey struct {
	pf   PixelFormat
	size PixelSize
}

var formatList = []FormatDesc{
	{PixFmtSBGGR8, PixelSizeNative, HWFormatBayer, 8, OrderBGGR, 1, LayoutPacked, [maxPlanes]uint32{8}},
	{PixFmtSBGGR10P, PixelSizeNative, HWFormatBayer, 10, OrderBGGR, 1, LayoutPacked, [maxPlanes]uint32{10}},
	{PixFmtSBGGR12P, PixelSizeNative, HWFormatBayer, 12, OrderBGGR, 1, LayoutPacked, [maxPlanes]uint32{12}},
	{PixFmtSBGGR10, PixelSizeNative, HWFormatBayer, 10, OrderBGGR, 1, LayoutUnpacked, [maxPlanes]uint32{16}},
	{PixFmtSBGGR10, PixelSizePacked10, HWFormatBayer, 10, OrderBGGR, 1, LayoutPacked, [maxPlanes]uint32{10}},
	{PixFmtSBGGR12, PixelSizeNative, HWFormatBayer, 12, OrderBGGR, 1, LayoutUnpacked, [maxPlanes]uint32{16}},
	{PixFmtSBGGR12, PixelSizePacked12, HWFormatBayer, 12, OrderBGGR, 1, LayoutPacked, [maxPlanes]uint32{12}},
	{PixFmtSBGGR16, PixelSizeNative, HWFormatBayer, 16, OrderBGGR, 1, LayoutPacked, [maxPlanes]uint32{16}},
	{PixFmtSBGGR16, PixelSize13, HWFormatBayer, 13, OrderBGGR, 1, LayoutPacked, [maxPlanes]uint32{13}},
	{PixFmtGREY, PixelSizeNative, HWFormatY, 8, OrderNone, 1, LayoutPacked, [maxPlanes]uint32{8}},
	{PixFmtNV12M, PixelSizeNative, HWFormatYUV420, 8, OrderCbCr, 2, LayoutPacked, [maxPlanes]uint32{8, 8}},
	{PixFmtNV21M, PixelSizeNative, HWFormatYUV420, 8, OrderCrCb, 2, LayoutPacked, [maxPlanes]uint32{8, 8}},
	{PixFmtNV16M, PixelSizeNative, HWFormatYUV422, 8, OrderCbCr, 2, LayoutPacked, [maxPlanes]uint32{8, 8}},
	{PixFmtNV12MP010, PixelSizeNative, HWFormatYUV420, 10, OrderCbCr, 2, LayoutUnpacked, [maxPlanes]uint32{16, 16}},
	{PixFmtYUYV, PixelSizeNative, HWFormatYUV422, 8, OrderYCbYCr, 1, LayoutPacked, [maxPlanes]uint32{16}},
	{PixFmtRGB24, PixelSizeNative, HWFormatRGB, 8, OrderRGB, 1, LayoutPacked, [maxPlanes]uint32{24}},
}

// formats is populated once and never modified.
var formats map[formatKey]FormatDesc

func init() {
	formats = make(map[formatKey]FormatDesc, len(formatList))
	for _, f := range formatList {
		formats[formatKey{f.PixelFormat, f.Size}] = f
	}
}

// LookupFormat returns the descriptor for the pixel format and size.
func LookupFormat(pf PixelFormat, size PixelSize) (FormatDesc, error) {
	f, ok := formats[formatKey{pf, size}]
	if !ok {
		return FormatDesc{}, fmt.Errorf("%s size %d: %w", pf, size, ErrFormatNotFound)
	}
	return f, nil
}

// Bits returns the bitwidth and MSB position to program for the format.
// Packed formats use bitwidth-1 as the MSB, except 13 bit Bayer
// which uses the bitwidth itself. Unpacked formats occupy 16 bits and
// carry the significant bit count as the MSB.
func (f FormatDesc) Bits() (bitwidth, msb uint32) {
	if f.Layout == LayoutUnpacked {
		return 16, f.HWBitwidth
	}
	if f.HWFormat == HWFormatBayer && f.HWBitwidth == 13 {
		return 13, 13
	}
	return f.HWBitwidth, f.HWBitwidth - 1
}
