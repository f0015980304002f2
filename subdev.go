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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
)

// ipParams names the control path blocks of an IP.
type ipParams struct {
	control ParamIndex
	otfIn   ParamIndex
	dmaIn   ParamIndex
	otfOut  ParamIndex
	stripe  ParamIndex
}

var ipParamTable = [numIPs]ipParams{
	CSI:   {ParamCSIControl, noParam, noParam, ParamCSIOtfOutput, noParam},
	CSTAT: {ParamCSTATControl, ParamCSTATOtfInput, ParamCSTATDmaInput, ParamCSTATOtfOutput, noParam},
	BYRP:  {ParamBYRPControl, ParamBYRPOtfInput, ParamBYRPDmaInput, ParamBYRPOtfOutput, ParamBYRPStripeInput},
	RGBP:  {ParamRGBPControl, ParamRGBPOtfInput, ParamRGBPDmaInput, ParamRGBPOtfOutput, ParamRGBPStripeInput},
	LME:   {ParamLMEControl, noParam, ParamLMEDmaInput, noParam, noParam},
	MCFP:  {ParamMCFPControl, ParamMCFPOtfInput, ParamMCFPDmaInput, ParamMCFPOtfOutput, ParamMCFPStripeInput},
	YUVP:  {ParamYUVPControl, ParamYUVPOtfInput, ParamYUVPDmaInput, ParamYUVPOtfOutput, ParamYUVPStripeInput},
}

// ipContext is the state of one configuration pass of one IP.
type ipContext struct {
	p   *Pipeline
	f   *Frame
	ip  IP
	g   *NodeGroup
	pm  *Pmap
	log *slog.Logger
}

func (c *ipContext) cfg() IPConfig {
	return c.p.cfg.IP(c.ip)
}

// striped returns true when the IP processes the frame region by region.
func (c *ipContext) striped() bool {
	return c.cfg().Stripe && c.f.Stripe.Active()
}

// update modifies a parameter block in place and marks it.
func update[T any](c *ipContext, i ParamIndex, vid VideoID, fn func(*T)) error {
	b, err := blockOf[T](c.f.Params, i)
	if err != nil {
		return err
	}
	old := *b
	fn(b)
	c.logChanges(i, vid, old, *b)
	c.pm.Set(i)
	return nil
}

// updateDMA modifies the DMA fields of a DMA input or output block and marks it.
func (c *ipContext) updateDMA(i ParamIndex, vid VideoID, fn func(*DMA)) error {
	d, err := c.f.Params.dma(i)
	if err != nil {
		return err
	}
	old := *d
	fn(d)
	c.logChanges(i, vid, old, *d)
	c.pm.Set(i)
	return nil
}

func (c *ipContext) logChanges(i ParamIndex, vid VideoID, old, cur any) {
	if !c.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	diffFields("", reflect.ValueOf(old), reflect.ValueOf(cur), func(name string, o, n uint64) {
		c.log.Debug("pablo: param changed", "param", i, "vid", vid, "field", name, "old", o, "new", n)
	})
}

// diffFields reports every uint32 field that differs between a and b.
func diffFields(prefix string, a, b reflect.Value, emit func(string, uint64, uint64)) {
	t := a.Type()
	for i := 0; i < t.NumField(); i++ {
		fa, fb := a.Field(i), b.Field(i)
		sf := t.Field(i)
		if fa.Kind() == reflect.Struct {
			p := prefix
			if !sf.Anonymous {
				p += sf.Name + "."
			}
			diffFields(p, fa, fb, emit)
			continue
		}
		if fa.Uint() != fb.Uint() {
			emit(prefix+sf.Name, fa.Uint(), fb.Uint())
		}
	}
}

// hwFormat is a node format resolved for the hardware.
type hwFormat struct {
	desc     FormatDesc
	bitwidth uint32
	msb      uint32
	sbwc     uint32
}

func (c *ipContext) resolve(n *Node) (hwFormat, error) {
	desc, err := LookupFormat(n.PixelFormat, n.PixelSize)
	if err != nil {
		return hwFormat{}, err
	}
	bw, msb := desc.Bits()
	return hwFormat{desc: desc, bitwidth: bw, msb: msb, sbwc: SbwcType(n.Extra, c.cfg().SbwcAlign)}, nil
}

// nodeError logs and wraps a failure confined to the node.
func (c *ipContext) nodeError(n *Node, err error) error {
	n.Result = 0
	c.log.Warn("pablo: node not configured", "vid", n.Vid, "error", err)
	return &NodeError{IP: c.ip, Vid: n.Vid, Err: err}
}

// disableDMA turns off a DMA block, reporting err when not nil.
func (c *ipContext) disableDMA(i ParamIndex, n *Node, err error) error {
	if uerr := c.updateDMA(i, n.Vid, func(d *DMA) {
		d.Cmd = CmdDisable
		d.VotfEn = 0
	}); uerr != nil {
		return c.nodeError(n, uerr)
	}
	n.Result = 0
	if err == nil {
		return nil
	}
	return c.nodeError(n, fmt.Errorf("%s disabled: %w", i, err))
}

// dmaOpt selects the IP specific handling of a DMA node.
type dmaOpt struct {
	substitute func(n *Node) Crop             // Replaces a null crop, nil disables the path instead
	stripe     bool                           // Geometry follows the current stripe region
	noSbwc     bool                           // The block cannot compress
	check      func(n *Node, crop Crop) error // Extra validation
}

// fullSize substitutes the full leader input for a null crop.
func (c *ipContext) fullSize(*Node) Crop {
	l := &c.g.Leader
	if !l.Input.IsNull() {
		return l.Input
	}
	return Crop{0, 0, l.Width, l.Height}
}

// configureDMA sets up the DMA block fed by the node.
func (c *ipContext) configureDMA(n *Node, opt dmaOpt) error {
	vi, err := lookupVid(n.Vid)
	if err == nil && (vi.ip != c.ip || vi.param == noParam) {
		err = fmt.Errorf("%s on %s: %w", n.Vid, c.ip, ErrUnsupportedVideoID)
	}
	if err != nil {
		return c.nodeError(n, err)
	}
	i := vi.param
	switch {
	case n.Request == RequestOff:
		return c.disableDMA(i, n, nil)
	case n.Request == RequestVotf:
		if err := c.checkVotf(n, vi); err != nil {
			return c.disableDMA(i, n, err)
		}
	}
	crop := n.Input
	if vi.dir == DirOut {
		crop = n.Output
	}
	if crop.IsNull() {
		if opt.substitute == nil {
			return c.disableDMA(i, n, ErrNullCrop)
		}
		crop = opt.substitute(n)
		if crop.IsNull() {
			return c.disableDMA(i, n, ErrNullCrop)
		}
		c.log.Warn("pablo: null crop, using full size", "vid", n.Vid, "w", crop.W, "h", crop.H)
	}
	hf, err := c.resolve(n)
	if err != nil {
		return c.disableDMA(i, n, err)
	}
	if opt.noSbwc && hf.sbwc != 0 {
		c.log.Warn("pablo: compression not supported, ignored", "vid", n.Vid, "extra", n.Extra)
		hf.sbwc = 0
	}
	if opt.check != nil {
		if err := opt.check(n, crop); err != nil {
			return c.disableDMA(i, n, err)
		}
	}
	dmaCrop := crop
	if opt.stripe && c.striped() {
		r, err := c.region(crop.W)
		if err != nil {
			return c.disableDMA(i, n, err)
		}
		if vi.dir == DirIn {
			dmaCrop.X, dmaCrop.W = crop.X+r.CropX, r.CropWidth
		} else {
			dmaCrop.X, dmaCrop.W = crop.X+r.Start, r.Width
		}
	}
	w, h := n.size(crop)
	ic := c.cfg()
	if err := c.updateDMA(i, n.Vid, func(d *DMA) {
		d.Cmd = CmdEnable
		d.Format = uint32(hf.desc.HWFormat)
		d.Bitwidth = hf.bitwidth
		d.MSB = hf.msb
		d.Order = uint32(hf.desc.HWOrder)
		d.Plane = hf.desc.HWPlane
		d.Width, d.Height = uint32(w), uint32(h)
		d.CropX, d.CropY = uint32(crop.X), uint32(crop.Y)
		d.CropWidth, d.CropHeight = uint32(crop.W), uint32(crop.H)
		d.DmaCropX, d.DmaCropY = uint32(dmaCrop.X), uint32(dmaCrop.Y)
		d.DmaCropWidth, d.DmaCropHeight = uint32(dmaCrop.W), uint32(dmaCrop.H)
		d.SbwcType = hf.sbwc
		d.VotfEn = 0
		if n.Request == RequestVotf {
			d.VotfEn = 1
		}
		d.Stride = uint32(ImageStride(w, int(hf.desc.HWBitwidth), int(hf.desc.BitsPerPixel[0]), hf.sbwc, ic.SbwcAlign, ic.Block))
		d.HeaderStride = 0
		if mode, _ := CompEnable(hf.sbwc, ic.SbwcAlign); mode != CompNone {
			d.HeaderStride = uint32(HeaderStride(w, ic.Block.Width, c.p.cfg.HeaderAlign))
		}
	}); err != nil {
		return c.nodeError(n, err)
	}
	n.Result = 1
	return nil
}

// checkVotf validates a vOTF request against the linked node.
func (c *ipContext) checkVotf(n *Node, vi vidInfo) error {
	if vi.peer == VidNone {
		return fmt.Errorf("vOTF request: %w", ErrUnsupportedVideoID)
	}
	peer, err := vi.peer.IP()
	if err != nil {
		return err
	}
	if !c.p.cfg.Enabled(peer) {
		return fmt.Errorf("vOTF peer %s on disabled %s: %w", vi.peer, peer, ErrUnsupportedVideoID)
	}
	_, err = c.p.pool(n.Vid)
	return err
}

// region returns the current stripe region mapped onto a line of width.
// The boundary table is filled by the first IP reaching region 0.
func (c *ipContext) region(width int) (StripeRegion, error) {
	st := &c.f.Stripe
	sc := c.p.cfg.Stripe
	if !st.Planned() {
		if st.RegionID != 0 {
			return StripeRegion{}, fmt.Errorf("stripe table missing at region %d: %w", st.RegionID, ErrInvalidIndex)
		}
		st.Plan(width, sc)
	}
	r, err := st.Region(st.RegionID, sc)
	if err != nil {
		return r, err
	}
	st.In = r
	return st.Scale(r, width, sc), nil
}

// configureControl enables the IP.
func (c *ipContext) configureControl() error {
	return update(c, ipParamTable[c.ip].control, c.g.Leader.Vid, func(ctl *Control) {
		ctl.Cmd = CmdEnable
		ctl.Bypass = 0
	})
}

// upstream returns the OTF output of the closest preceding IP.
func (c *ipContext) upstream() (*OtfOutput, bool) {
	for ip := c.ip - 1; ip >= CSI; ip-- {
		idx := ipParamTable[ip].otfOut
		if idx == noParam || !c.p.cfg.Enabled(ip) || c.f.Groups[ip] == nil {
			continue
		}
		o, err := c.f.Params.OtfOutput(idx)
		if err != nil || o.Cmd != CmdEnable {
			return nil, false
		}
		return o, true
	}
	return nil, false
}

// pixelPath is the pixel stream handed between IPs on the fly.
type pixelPath struct {
	format   HWFormat
	bitwidth uint32
	order    HWOrder
}

// configureInput sets up the leader input, on the fly from the previous
// IP or from memory, and returns the processed input crop.
func (c *ipContext) configureInput(opt dmaOpt) (Crop, pixelPath, error) {
	ipp := ipParamTable[c.ip]
	n := &c.g.Leader
	if c.g.InputOTF && ipp.otfIn != noParam {
		if ipp.dmaIn != noParam {
			if err := c.disableDMA(ipp.dmaIn, n, nil); err != nil {
				return Crop{}, pixelPath{}, err
			}
		}
		up, ok := c.upstream()
		if !ok {
			if err := update(c, ipp.otfIn, n.Vid, func(o *OtfInput) { o.Cmd = CmdDisable }); err != nil {
				return Crop{}, pixelPath{}, err
			}
			return Crop{}, pixelPath{}, c.nodeError(n, fmt.Errorf("no OTF source for %s: %w", c.ip, ErrNullCrop))
		}
		crop := n.Input
		if crop.IsNull() {
			crop = Crop{0, 0, int(up.Width), int(up.Height)}
		}
		err := update(c, ipp.otfIn, n.Vid, func(o *OtfInput) {
			o.Cmd = CmdEnable
			o.Format, o.Bitwidth, o.Order = up.Format, up.Bitwidth, up.Order
			o.Width, o.Height = up.Width, up.Height
			o.CropX, o.CropY = uint32(crop.X), uint32(crop.Y)
			o.CropWidth, o.CropHeight = uint32(crop.W), uint32(crop.H)
		})
		if err != nil {
			return Crop{}, pixelPath{}, err
		}
		n.Result = 1
		return crop, pixelPath{HWFormat(up.Format), up.Bitwidth, HWOrder(up.Order)}, nil
	}
	if ipp.otfIn != noParam {
		if err := update(c, ipp.otfIn, n.Vid, func(o *OtfInput) { o.Cmd = CmdDisable }); err != nil {
			return Crop{}, pixelPath{}, err
		}
	}
	if opt.substitute == nil {
		opt.substitute = c.fullSize
	}
	if err := c.configureDMA(n, opt); err != nil {
		return Crop{}, pixelPath{}, err
	}
	crop := n.Input
	if crop.IsNull() {
		crop = c.fullSize(n)
	}
	hf, err := c.resolve(n)
	if err != nil {
		return Crop{}, pixelPath{}, c.nodeError(n, err)
	}
	return crop, pixelPath{hf.desc.HWFormat, hf.desc.HWBitwidth, hf.desc.HWOrder}, nil
}

// configureLeader runs the control path shared by the processing IPs:
// control, input, stripe and OTF output. The returned crop is the
// processed input.
func (c *ipContext) configureLeader(opt dmaOpt) (Crop, error) {
	if err := c.configureControl(); err != nil {
		return Crop{}, err
	}
	in, px, err := c.configureInput(opt)
	if err != nil {
		if !NodeOnly(err) {
			return Crop{}, err
		}
		if derr := c.disableOtfOutput(); derr != nil {
			return Crop{}, derr
		}
		return Crop{}, c.abandon(err)
	}
	if err := c.configureStripe(in.W); err != nil {
		return Crop{}, err
	}
	if err := c.configureOtfOutput(in, px); err != nil {
		return Crop{}, err
	}
	return in, nil
}

// abandon turns the IP off after its leader failed. Every capture
// block is disabled and marked so the slot holds no stale setup from an
// earlier frame. The leader error is returned with one error per capture
// node that was requested.
func (c *ipContext) abandon(leaderErr error) error {
	l := &c.g.Leader
	if err := update(c, ipParamTable[c.ip].control, l.Vid, func(ctl *Control) {
		ctl.Cmd = CmdDisable
	}); err != nil {
		return err
	}
	errs := []error{leaderErr}
	for i := range c.g.Capture {
		n := &c.g.Capture[i]
		if n.Vid == VidNone {
			continue
		}
		vi, err := lookupVid(n.Vid)
		if err == nil && (vi.ip != c.ip || vi.param == noParam) {
			err = fmt.Errorf("%s on %s: %w", n.Vid, c.ip, ErrUnsupportedVideoID)
		}
		if err != nil {
			errs = append(errs, c.nodeError(n, err))
			continue
		}
		var reason error
		if n.Request != RequestOff {
			reason = fmt.Errorf("%s: %w", l.Vid, ErrLeaderFailed)
		}
		if err := c.disableDMA(vi.param, n, reason); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// configureStripe writes the stripe block for a line of width.
// Without stripe processing the block is cleared.
func (c *ipContext) configureStripe(width int) error {
	i := ipParamTable[c.ip].stripe
	if i == noParam {
		return nil
	}
	if !c.striped() {
		return update(c, i, c.g.Leader.Vid, func(s *StripeInput) { *s = StripeInput{} })
	}
	r, err := c.region(width)
	if err != nil {
		return err
	}
	st := &c.f.Stripe
	return update(c, i, c.g.Leader.Vid, func(s *StripeInput) {
		s.RegionNum = uint32(st.RegionNum)
		s.RegionID = uint32(st.RegionID)
		s.LeftMargin = uint32(r.LeftMargin)
		s.RightMargin = uint32(r.RightMargin)
		s.FullWidth = uint32(width)
		s.StartPosX = uint32(r.Start)
		s.StripeWidth = uint32(r.Width)
	})
}

// configureOtfOutput drives the next IP with the leader output, or the
// input crop when no output crop is set.
func (c *ipContext) configureOtfOutput(in Crop, px pixelPath) error {
	i := ipParamTable[c.ip].otfOut
	if i == noParam {
		return nil
	}
	out := c.g.Leader.Output
	if out.IsNull() {
		out = Crop{0, 0, in.W, in.H}
	}
	if c.striped() {
		c.f.Stripe.Out = c.f.Stripe.Scale(c.f.Stripe.In, out.W, c.p.cfg.Stripe)
	}
	return update(c, i, c.g.Leader.Vid, func(o *OtfOutput) {
		o.Cmd = CmdEnable
		o.Format, o.Bitwidth, o.Order = uint32(px.format), px.bitwidth, uint32(px.order)
		o.Width, o.Height = uint32(out.W), uint32(out.H)
		o.CropX, o.CropY = uint32(out.X), uint32(out.Y)
		o.CropWidth, o.CropHeight = uint32(out.W), uint32(out.H)
	})
}

// disableOtfOutput turns off the OTF output of the IP.
func (c *ipContext) disableOtfOutput() error {
	i := ipParamTable[c.ip].otfOut
	if i == noParam {
		return nil
	}
	return update(c, i, c.g.Leader.Vid, func(o *OtfOutput) { o.Cmd = CmdDisable })
}

// configureCaptures sets up every capture node in array order.
// A failing node does not stop the others.
func (c *ipContext) configureCaptures(opts func(n *Node) dmaOpt) []error {
	var errs []error
	for i := range c.g.Capture {
		n := &c.g.Capture[i]
		if n.Vid == VidNone {
			continue
		}
		if err := c.configureDMA(n, opts(n)); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
