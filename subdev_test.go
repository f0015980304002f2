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
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNullCropInputSubstituted(t *testing.T) {
	c, g := testContext(t, NewConfig().EnableIP(BYRP), BYRP)
	g.Leader = Node{Vid: VidBYRP, Width: 4000, Height: 3000, PixelFormat: PixFmtRAW10, Request: RequestOn}
	g.Capture[0] = Node{Vid: VidBYRPHdr, PixelFormat: PixFmtRAW10, Request: RequestOn}
	require.NoError(t, tagBYRP(c), "tagBYRP")
	d, _ := c.f.Params.DmaInput(ParamBYRPDmaInput)
	if d.Cmd != CmdEnable || d.CropWidth != 4000 || d.CropHeight != 3000 {
		t.Errorf("leader input %+v", *d)
	}
	hdr, _ := c.f.Params.DmaInput(ParamBYRPHdrInput)
	if hdr.Cmd != CmdEnable || hdr.Width != 4000 || hdr.CropHeight != 3000 {
		t.Errorf("HDR input %+v", *hdr)
	}
}

func TestNullCropOutputDisabled(t *testing.T) {
	c, g := testContext(t, NewConfig().EnableIP(BYRP), BYRP)
	g.Leader = Node{Vid: VidBYRP, Input: Crop{0, 0, 1920, 1080}, PixelFormat: PixFmtRAW10, Request: RequestOn}
	g.Capture[0] = Node{Vid: VidBYRPByr, PixelFormat: PixFmtRAW10, Request: RequestOn}
	err := tagBYRP(c)
	if !errors.Is(err, ErrNullCrop) || !NodeOnly(err) {
		t.Fatalf("got %v, want a null crop node error", err)
	}
	out, _ := c.f.Params.DmaOutput(ParamBYRPByrOutput)
	if out.Cmd != CmdDisable || !c.pm.Test(ParamBYRPByrOutput) {
		t.Errorf("BYR output not disabled and marked")
	}
}

func TestRequestOff(t *testing.T) {
	c, g := testContext(t, NewConfig().EnableIP(RGBP), RGBP)
	g.Leader = Node{Vid: VidRGBP, Input: Crop{0, 0, 1920, 1080}, PixelFormat: PixFmtRAW10, Request: RequestOn}
	g.Capture[0] = Node{Vid: VidRGBPYuv, Output: Crop{0, 0, 1920, 1080}, PixelFormat: PixFmtNV12M, Request: RequestOff}
	g.Capture[1] = Node{Vid: VidRGBPRgb, Output: Crop{0, 0, 1920, 1081}, PixelFormat: PixFmtRGB24, Request: RequestOn}
	require.NoError(t, tagRGBP(c), "tagRGBP")
	yuv, _ := c.f.Params.DmaOutput(ParamRGBPYuvOutput)
	if yuv.Cmd != CmdDisable || !c.pm.Test(ParamRGBPYuvOutput) {
		t.Errorf("YUV output not disabled")
	}
	rgb, _ := c.f.Params.DmaOutput(ParamRGBPRgbOutput)
	if rgb.Stride != 1920*3 || rgb.Height != 1081 {
		t.Errorf("RGB output %+v", *rgb)
	}
}

func TestEvenYUV(t *testing.T) {
	c, g := testContext(t, NewConfig().EnableIP(RGBP), RGBP)
	g.Leader = Node{Vid: VidRGBP, Input: Crop{0, 0, 1920, 1080}, PixelFormat: PixFmtRAW10, Request: RequestOn}
	g.Capture[0] = Node{Vid: VidRGBPYuv, Output: Crop{0, 0, 1919, 1080}, PixelFormat: PixFmtNV12M, Request: RequestOn}
	if err := tagRGBP(c); !errors.Is(err, ErrInvalidConstraint) {
		t.Errorf("odd YUV width: got %v", err)
	}
}

func TestFormatNotFoundDisables(t *testing.T) {
	c, g := testContext(t, NewConfig().EnableIP(YUVP), YUVP)
	g.Leader = Node{Vid: VidYUVP, Input: Crop{0, 0, 1920, 1080}, PixelFormat: PixFmtNV12M, Request: RequestOn}
	g.Capture[0] = Node{Vid: VidYUVPSeg, Input: Crop{0, 0, 1920, 1080}, PixelFormat: PixFmtNV12M, PixelSize: PixelSizePacked12, Request: RequestOn}
	g.Capture[1] = Node{Vid: VidYUVPDrc, Input: Crop{0, 0, 64, 48}, PixelFormat: PixFmtGREY, Request: RequestOn}
	err := tagYUVP(c)
	if !errors.Is(err, ErrFormatNotFound) {
		t.Fatalf("got %v, want ErrFormatNotFound", err)
	}
	seg, _ := c.f.Params.DmaInput(ParamYUVPSegInput)
	if seg.Cmd != CmdDisable {
		t.Errorf("segmentation input left enabled")
	}
	if g.Capture[1].Result != 1 {
		t.Errorf("DRC input not configured after a failing node")
	}
}

func TestVotfRequiresPeer(t *testing.T) {
	c, g := testContext(t, NewConfig().EnableIP(RGBP), RGBP)
	g.Leader = Node{Vid: VidRGBP, Input: Crop{0, 0, 1920, 1080}, PixelFormat: PixFmtRAW10, Request: RequestOn}
	g.Capture[0] = Node{Vid: VidRGBPSf, Output: Crop{0, 0, 1920, 1080}, PixelFormat: PixFmtNV12M, Request: RequestVotf}
	g.Capture[1] = Node{Vid: VidRGBPHf, Output: Crop{0, 0, 1920, 1080}, PixelFormat: PixFmtGREY, Request: RequestVotf}
	err := tagRGBP(c)
	if !errors.Is(err, ErrUnsupportedVideoID) {
		t.Fatalf("got %v, want ErrUnsupportedVideoID", err)
	}
	// SF has no vOTF link, HF links to YUVP which is disabled.
	for _, i := range []ParamIndex{ParamRGBPSfOutput, ParamRGBPHfOutput} {
		d, _ := c.f.Params.DmaOutput(i)
		if d.Cmd != CmdDisable || d.VotfEn != 0 {
			t.Errorf("%s left enabled", i)
		}
	}
}

func TestSbwcStride(t *testing.T) {
	c, g := testContext(t, NewConfig().EnableIP(MCFP), MCFP)
	g.Leader = Node{Vid: VidMCFP, Input: Crop{0, 0, 1920, 1080}, PixelFormat: PixFmtNV12M, Request: RequestOn}
	g.Capture[0] = Node{Vid: VidMCFPYuv, Output: Crop{0, 0, 1920, 1080}, PixelFormat: PixFmtNV12M, Request: RequestOn}
	g.Capture[0].SetFlags(PackFlags(PixelSizeNative, ExtraComp))
	g.Capture[1] = Node{Vid: VidMCFPW, PixelFormat: PixFmtGREY, Request: RequestOn}
	require.NoError(t, tagMCFP(c), "tagMCFP")
	d, _ := c.f.Params.DmaOutput(ParamMCFPYuvOutput)
	blk := c.cfg().Block
	want := PayloadStride(CompLossless, 8, 1920, true, 0, blk)
	if d.SbwcType != sbwcAlign64|sbwcLossless || int(d.Stride) != want || d.HeaderStride == 0 {
		t.Errorf("compressed output %+v, want stride %d", *d, want)
	}
	w, _ := c.f.Params.DmaOutput(ParamMCFPWOutput)
	if w.Width != 960 || w.Height != 540 || w.Cmd != CmdEnable {
		t.Errorf("weight map %+v", *w)
	}
}

func TestLMEMotionSize(t *testing.T) {
	c, g := testContext(t, NewConfig().EnableIP(LME), LME)
	g.Leader = Node{Vid: VidLME, Input: Crop{0, 0, 1920, 1080}, PixelFormat: PixFmtGREY, Request: RequestOn}
	g.Capture[0] = Node{Vid: VidLMEMv, PixelFormat: PixFmtGREY, Request: RequestOn}
	g.Capture[0].SetFlags(PackFlags(PixelSizeNative, ExtraComp))
	require.NoError(t, tagLME(c), "tagLME")
	mv, _ := c.f.Params.DmaOutput(ParamLMEMvOutput)
	if mv.Width != 120*4 || mv.Height != 68 || mv.SbwcType != 0 {
		t.Errorf("motion vectors %+v", *mv)
	}
}

func TestOtfInputFollowsUpstream(t *testing.T) {
	cfg := NewConfig().EnableIP(BYRP).EnableIP(RGBP)
	c, g := testContext(t, cfg, BYRP)
	g.Leader = Node{Vid: VidBYRP, Input: Crop{0, 0, 1920, 1080}, Output: Crop{0, 0, 1280, 720}, PixelFormat: PixFmtRAW10, Request: RequestOn}
	require.NoError(t, tagBYRP(c), "tagBYRP")
	rg := c.f.Group(RGBP)
	rg.InputOTF = true
	rg.Leader = Node{Vid: VidRGBP, Request: RequestOn}
	rc := &ipContext{p: c.p, f: c.f, ip: RGBP, g: rg, pm: new(Pmap), log: c.log}
	require.NoError(t, tagRGBP(rc), "tagRGBP")
	in, _ := c.f.Params.OtfInput(ParamRGBPOtfInput)
	if in.Cmd != CmdEnable || in.Width != 1280 || in.Height != 720 || in.Bitwidth != 10 {
		t.Errorf("OTF input %+v", *in)
	}
	dma, _ := c.f.Params.DmaInput(ParamRGBPDmaInput)
	if dma.Cmd != CmdDisable || !rc.pm.Test(ParamRGBPDmaInput) {
		t.Errorf("DMA input not disabled")
	}
}

func TestDiffFields(t *testing.T) {
	a := DmaInput{DMA{Width: 10, Cmd: 1}}
	b := a
	b.Width = 20
	b.Stride = 32
	var got []string
	diffFields("", reflect.ValueOf(a), reflect.ValueOf(b), func(name string, o, n uint64) {
		got = append(got, name)
	})
	want := []string{"Width", "Stride"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOtfInputWithoutSource(t *testing.T) {
	c, g := testContext(t, NewConfig().EnableIP(YUVP), YUVP)
	g.InputOTF = true
	g.Leader = Node{Vid: VidYUVP, Request: RequestOn}
	g.Capture[0] = Node{Vid: VidYUVPDrc, Input: Crop{0, 0, 64, 48}, PixelFormat: PixFmtGREY, Request: RequestOn}
	err := tagYUVP(c)
	require.True(t, NodeOnly(err), "got %v", err)
	require.ErrorIs(t, err, ErrNullCrop)
	require.ErrorIs(t, err, ErrLeaderFailed)
	in, _ := c.f.Params.OtfInput(ParamYUVPOtfInput)
	ctl, _ := c.f.Params.Control(ParamYUVPControl)
	require.EqualValues(t, CmdDisable, in.Cmd)
	require.EqualValues(t, CmdDisable, ctl.Cmd)
	for _, i := range []ParamIndex{ParamYUVPControl, ParamYUVPOtfInput, ParamYUVPDmaInput, ParamYUVPOtfOutput, ParamYUVPDrcInput} {
		require.True(t, c.pm.Test(i), "%s not marked", i)
	}
	require.Zero(t, g.Capture[0].Result)
}
