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
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// testContext sets up a configuration pass of one IP.
func testContext(t *testing.T, cfg *Config, ip IP) (*ipContext, *NodeGroup) {
	t.Helper()
	p, err := NewPipeline(cfg, Options{Logger: testLogger()})
	require.NoError(t, err, "NewPipeline")
	f := NewFrame(1)
	g := f.Group(ip)
	return &ipContext{p: p, f: f, ip: ip, g: g, pm: new(Pmap), log: p.log}, g
}

func TestCSTATDmaInput(t *testing.T) {
	c, g := testContext(t, NewConfig().EnableIP(CSTAT), CSTAT)
	g.Leader = Node{Vid: VidCSTAT, Input: Crop{0, 0, 1920, 1080}, PixelFormat: PixFmtRAW10, Request: RequestOn}
	g.Leader.SetFlags(0)
	require.NoError(t, c.configureDMA(&g.Leader, dmaOpt{substitute: c.fullSize}), "configureDMA")
	d, _ := c.f.Params.DmaInput(ParamCSTATDmaInput)
	if HWFormat(d.Format) != HWFormatBayer || d.Bitwidth != 10 || d.MSB != 9 {
		t.Errorf("format %d bitwidth %d msb %d", d.Format, d.Bitwidth, d.MSB)
	}
	if d.Width != 1920 || d.Height != 1080 || d.Cmd != CmdEnable {
		t.Errorf("dma input %+v", *d)
	}
	if got := c.pm.Indices(); len(got) != 1 || got[0] != ParamCSTATDmaInput {
		t.Errorf("dirty blocks %v, want [%s]", got, ParamCSTATDmaInput)
	}
	if g.Leader.Result != 1 {
		t.Errorf("result not set")
	}
}

func TestCSTATTag(t *testing.T) {
	c, g := testContext(t, NewConfig().EnableIP(CSTAT), CSTAT)
	g.Leader = Node{Vid: VidCSTAT, Input: Crop{0, 0, 1920, 1080}, PixelFormat: PixFmtRAW10, Request: RequestOn}
	g.Capture[0] = Node{Vid: VidCSTATLmeDS, Output: Crop{0, 0, 4000, 1080}, PixelFormat: PixFmtGREY, Request: RequestOn}
	g.Capture[1] = Node{Vid: VidCSTATCds, Output: Crop{0, 0, 480, 270}, PixelFormat: PixFmtNV12M, Request: RequestOn}
	err := tagCSTAT(c)
	if !NodeOnly(err) || !errors.Is(err, ErrInvalidConstraint) {
		t.Fatalf("got %v, want a node error", err)
	}
	var ne *NodeError
	if !errors.As(err, &ne) || ne.Vid != VidCSTATLmeDS {
		t.Errorf("error not attributed to the LME DS node: %v", err)
	}
	ds, _ := c.f.Params.DmaOutput(ParamCSTATLmeDS)
	if ds.Cmd != CmdDisable || g.Capture[0].Result != 0 {
		t.Errorf("oversized LME DS output left enabled")
	}
	cds, _ := c.f.Params.DmaOutput(ParamCSTATCds)
	if cds.Cmd != CmdEnable || cds.Width != 480 || g.Capture[1].Result != 1 {
		t.Errorf("CDS output %+v", *cds)
	}
	for _, i := range []ParamIndex{ParamCSTATControl, ParamCSTATOtfInput, ParamCSTATDmaInput, ParamCSTATOtfOutput, ParamCSTATLmeDS, ParamCSTATCds} {
		if !c.pm.Test(i) {
			t.Errorf("%s written but not marked", i)
		}
	}
	out, _ := c.f.Params.OtfOutput(ParamCSTATOtfOutput)
	if out.Width != 1920 || out.Bitwidth != 10 || HWFormat(out.Format) != HWFormatBayer {
		t.Errorf("OTF output %+v", *out)
	}
}
