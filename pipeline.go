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
	"log/slog"

	"github.com/google/uuid"
)

// Options supplies the collaborators of a Pipeline. All fields are optional.
type Options struct {
	Logger    *slog.Logger
	Submitter Submitter         // Receives the modified blocks of each IP
	Regs      Registers         // Register window, used for the CSI virtual channels
	CSIRegs   *CSIRegMap        // Defaults to the map derived from the config
	Pools     map[VideoID]*Pool // vOTF pools keyed by the producing node
}

// Pipeline configures frames through the chain of IPs.
// A Pipeline must not configure the same Frame from more than one goroutine.
type Pipeline struct {
	cfg     *Config
	log     *slog.Logger
	session uuid.UUID
	sub     Submitter
	regs    Registers
	csiRegs *CSIRegMap
	pools   map[VideoID]*Pool
	global  *Params
}

// tagFuncs holds the configuration function of each IP, in pipeline order.
var tagFuncs = [numIPs]func(*ipContext) error{
	CSI:   tagCSI,
	CSTAT: tagCSTAT,
	BYRP:  tagBYRP,
	RGBP:  tagRGBP,
	LME:   tagLME,
	MCFP:  tagMCFP,
	YUVP:  tagYUVP,
}

// NewPipeline creates a pipeline for the configuration. If cfg is nil,
// DefaultConfig is used.
func NewPipeline(cfg *Config, opts Options) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:     cfg,
		session: uuid.New(),
		sub:     opts.Submitter,
		regs:    opts.Regs,
		csiRegs: opts.CSIRegs,
		pools:   make(map[VideoID]*Pool),
		global:  NewParams(),
	}
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	p.log = lg.With("session", p.session.String())
	if p.regs != nil && p.csiRegs == nil {
		p.csiRegs = NewCSIRegMap(cfg)
	}
	for v, pool := range opts.Pools {
		vi, err := lookupVid(v)
		if err != nil {
			return nil, err
		}
		if vi.peer == VidNone || vi.dir != DirOut {
			return nil, fmt.Errorf("pool for %s: not a vOTF producer: %w", v, ErrUnsupportedVideoID)
		}
		p.pools[v] = pool
	}
	return p, nil
}

// Session returns the id attached to every log record of the pipeline.
func (p *Pipeline) Session() uuid.UUID {
	return p.session
}

// Config returns the configuration of the pipeline.
func (p *Pipeline) Config() *Config {
	return p.cfg
}

// ParamBlock returns a parameter block of the frame. A nil frame selects
// the global set used for control path setup.
func (p *Pipeline) ParamBlock(f *Frame, i ParamIndex) (any, error) {
	if f == nil {
		return p.global.Block(i)
	}
	if f.Params == nil {
		f.Params = NewParams()
	}
	return f.Params.Block(i)
}

// nodeWidth is the widest line the node carries.
func nodeWidth(n *Node) int {
	return max(n.Input.W, n.Output.W, n.Width)
}

// regionCount returns the number of stripe regions for the frame,
// taken from the widest node of the stripe capable IPs against the
// narrowest of their width constraints. A requested count wins.
func (p *Pipeline) regionCount(f *Frame) (int, error) {
	if f.StripeRegionNum != 0 {
		if f.StripeRegionNum < 0 || f.StripeRegionNum > p.cfg.Stripe.MaxRegions {
			return 0, fmt.Errorf("requested %d stripe regions: %w", f.StripeRegionNum, ErrInvalidIndex)
		}
		return f.StripeRegionNum, nil
	}
	width, constraint := 0, 0
	for ip := CSI; ip < numIPs; ip++ {
		g := f.Groups[ip]
		ic := p.cfg.IP(ip)
		if g == nil || !ic.Enabled || !ic.Stripe {
			continue
		}
		if constraint == 0 || ic.ConstraintWidth < constraint {
			constraint = ic.ConstraintWidth
		}
		width = max(width, nodeWidth(&g.Leader))
		for i := range g.Capture {
			n := &g.Capture[i]
			if n.Vid != VidNone && n.Request != RequestOff {
				width = max(width, nodeWidth(n))
			}
		}
	}
	if width == 0 {
		return 0, nil
	}
	return p.cfg.Stripe.RegionCount(width, constraint)
}

// Shot configures every IP for the frame, region by region when the
// frame is split, and submits the modified parameter blocks of each IP.
// Failures confined to single nodes are returned joined once the whole
// frame is configured; any other failure aborts the frame.
func (p *Pipeline) Shot(f *Frame) error {
	if f.Params == nil {
		f.Params = NewParams()
	}
	log := p.log.With("fcount", f.Count)
	regions, err := p.regionCount(f)
	if err != nil {
		log.Error("pablo: stripe split failed", "error", err)
		return err
	}
	f.Stripe.Reset(regions)
	if regions > 0 {
		log.Debug("pablo: stripe split", "regions", regions)
	}
	var nodeErrs []error
	for {
		rid := f.Stripe.RegionID
		if rid > 0 && !f.Stripe.Planned() {
			break
		}
		skip := false
		if rid > 0 {
			_, err := f.Stripe.Region(rid, p.cfg.Stripe)
			switch {
			case errors.Is(err, ErrStripeRegionTooSmall):
				log.Warn("pablo: stripe region skipped", "region", rid, "error", err)
				skip = true
			case err != nil:
				return err
			}
		}
		for ip := CSI; ip < numIPs && !skip; ip++ {
			g := f.Groups[ip]
			if g == nil || !p.cfg.Enabled(ip) {
				continue
			}
			if rid > 0 && !p.cfg.IP(ip).Stripe {
				continue
			}
			if err := p.tag(f, ip, g, log); err != nil {
				if !NodeOnly(err) {
					return err
				}
				nodeErrs = append(nodeErrs, err)
			}
		}
		if !f.Stripe.Next() {
			break
		}
	}
	if err := p.bindTargets(f); err != nil {
		nodeErrs = append(nodeErrs, err)
	}
	return errors.Join(nodeErrs...)
}

// tag runs one configuration pass of the IP and submits the blocks it modified.
func (p *Pipeline) tag(f *Frame, ip IP, g *NodeGroup, log *slog.Logger) error {
	c := &ipContext{p: p, f: f, ip: ip, g: g, pm: new(Pmap), log: log.With("ip", ip)}
	tagErr := tagFuncs[ip](c)
	if tagErr != nil && !NodeOnly(tagErr) {
		c.log.Error("pablo: configuration failed", "error", tagErr)
		return tagErr
	}
	if p.sub != nil && !c.pm.Empty() {
		if err := p.sub.Submit(f, ip, c.pm); err != nil {
			c.log.Error("pablo: submit failed", "blocks", c.pm.Count(), "error", err)
			if !errors.Is(err, ErrSubmit) {
				err = fmt.Errorf("%w: %w", ErrSubmit, err)
			}
			return fmt.Errorf("%s frame %d: %w", ip, f.Count, err)
		}
	}
	return tagErr
}
