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
	"testing"
)

func TestLookupIdempotent(t *testing.T) {
	for _, f := range formatList {
		a, err := LookupFormat(f.PixelFormat, f.Size)
		if err != nil {
			t.Fatalf("%s/%d: %v", f.PixelFormat, f.Size, err)
		}
		b, err := LookupFormat(f.PixelFormat, f.Size)
		if err != nil {
			t.Fatalf("%s/%d: %v", f.PixelFormat, f.Size, err)
		}
		if a != b || a != f {
			t.Errorf("%s/%d: lookups differ: %+v %+v", f.PixelFormat, f.Size, a, b)
		}
	}
}

func TestLookupNotFound(t *testing.T) {
	if _, err := LookupFormat(PixFmtNV12M, PixelSizePacked10); !errors.Is(err, ErrFormatNotFound) {
		t.Errorf("got %v, want ErrFormatNotFound", err)
	}
	if _, err := LookupFormat(0, PixelSizeNative); !errors.Is(err, ErrFormatNotFound) {
		t.Errorf("got %v, want ErrFormatNotFound", err)
	}
}

func TestBits(t *testing.T) {
	tests := []struct {
		pf       PixelFormat
		size     PixelSize
		bitwidth uint32
		msb      uint32
	}{
		{PixFmtRAW10, PixelSizeNative, 10, 9},
		{PixFmtSBGGR8, PixelSizeNative, 8, 7},
		{PixFmtSBGGR12, PixelSizePacked12, 12, 11},
		{PixFmtSBGGR10, PixelSizeNative, 16, 10},
		{PixFmtSBGGR12, PixelSizeNative, 16, 12},
		{PixFmtSBGGR16, PixelSize13, 13, 13},
		{PixFmtSBGGR16, PixelSizeNative, 16, 15},
		{PixFmtNV12M, PixelSizeNative, 8, 7},
	}
	for _, tc := range tests {
		f, err := LookupFormat(tc.pf, tc.size)
		if err != nil {
			t.Fatalf("%s: %v", tc.pf, err)
		}
		bw, msb := f.Bits()
		if bw != tc.bitwidth || msb != tc.msb {
			t.Errorf("%s/%d: got %d/%d, want %d/%d", tc.pf, tc.size, bw, msb, tc.bitwidth, tc.msb)
		}
	}
}

func TestFlags(t *testing.T) {
	flags := PackFlags(PixelSizePacked12, ExtraCompLossy)
	s, e := ParseFlags(flags)
	if s != PixelSizePacked12 || e != ExtraCompLossy {
		t.Errorf("got %d/%d from 0x%x", s, e, flags)
	}
	if s, e := ParseFlags(0); s != PixelSizeNative || e != ExtraNone {
		t.Errorf("zero flags: got %d/%d", s, e)
	}
	if PixFmtRAW10.String() != "pBAA" {
		t.Errorf("fourcc: got %q", PixFmtRAW10.String())
	}
}
