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
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// IP identifies one hardware block of the ISP chain.
// The values are in pipeline order.
type IP int

const (
	CSI IP = iota
	CSTAT
	BYRP
	RGBP
	LME
	MCFP
	YUVP
	numIPs
)

var ipNames = [numIPs]string{"csi", "cstat", "byrp", "rgbp", "lme", "mcfp", "yuvp"}

func (ip IP) String() string {
	if ip < 0 || ip >= numIPs {
		return fmt.Sprintf("ip(%d)", int(ip))
	}
	return strings.ToUpper(ipNames[ip])
}

// ParseIP converts an IP name (case insensitive) to the IP.
func ParseIP(s string) (IP, error) {
	for i, n := range ipNames {
		if strings.EqualFold(n, s) {
			return IP(i), nil
		}
	}
	return 0, fmt.Errorf("unknown IP %q: %w", s, ErrInvalidIndex)
}

const (
	maxVirtualChannels = 8
	maxLanes           = 4
)

// BlockSize is the SBWC compression block of an IP.
type BlockSize struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// IPConfig holds the static description of one IP.
type IPConfig struct {
	Enabled         bool      `yaml:"enabled"`
	Base            uint32    `yaml:"base"`             // Register block offset in the window
	ConstraintWidth int       `yaml:"constraint_width"` // Maximum line width the IP accepts
	Block           BlockSize `yaml:"sbwc_block"`
	SbwcAlign       uint32    `yaml:"sbwc_align"` // Alignment bits ORed into the SBWC type
	Stripe          bool      `yaml:"stripe"`     // IP takes part in stripe processing
}

// StripeConfig sets the stripe geometry constants.
type StripeConfig struct {
	Margin     int `yaml:"margin"`
	PixelAlign int `yaml:"pixel_align"` // Pixel clock granularity
	WidthAlign int `yaml:"width_align"` // Compressed block granularity
	MaxRegions int `yaml:"max_regions"`
}

// CSIConfig describes the CSI receiver.
type CSIConfig struct {
	VirtualChannels int    `yaml:"virtual_channels"`
	Lanes           int    `yaml:"lanes"`
	DmaBase         uint32 `yaml:"dma_base"`
}

// DeviceConfig names the UIO device files.
type DeviceConfig struct {
	MemBase  string `yaml:"mem_base"`
	MemSize  string `yaml:"mem_size"`
	Regs     string `yaml:"regs"`
	IrqBase  string `yaml:"irq_base"`
	ParamOff uint32 `yaml:"param_offset"` // Start of the parameter region in the window
}

// Config contains the hardware description used by the Device and Pipeline.
// A configuration is built through config methods on this structure e.g:
//
//	c := NewConfig()
//	c.EnableIP(pablo.CSI).EnableIP(pablo.BYRP).Constraint(pablo.BYRP, 2048)
//	d, err := pablo.Open(c)
type Config struct {
	ips [numIPs]IPConfig

	Stripe        StripeConfig
	CSI           CSIConfig
	Device        DeviceConfig
	ResetAttempts int
	ResetDelay    time.Duration
	PoolSize      int // Internal vOTF frame pool depth
	PoolBufSize   int // Bytes of each internal vOTF frame
	ParamSlots    int // Frame instances held in the parameter region
	HeaderAlign   int // SBWC header stride alignment
}

// DefaultConfig enables every IP with the default geometry.
// Before the device is opened, this may be modified e.g
// DefaultConfig.Clear().EnableIP(CSI).EnableIP(CSTAT)
var DefaultConfig *Config

func init() {
	DefaultConfig = NewConfig()
	for ip := CSI; ip < numIPs; ip++ {
		DefaultConfig.EnableIP(ip)
	}
}

// NewConfig creates a Config with the default geometry and no IPs enabled.
func NewConfig() *Config {
	c := new(Config)
	c.Clear()
	c.Stripe = StripeConfig{Margin: 256, PixelAlign: 4, WidthAlign: 512, MaxRegions: 16}
	c.CSI = CSIConfig{VirtualChannels: 4, Lanes: 4, DmaBase: 0x8000}
	c.Device = DeviceConfig{
		MemBase:  "/sys/class/uio/uio0/maps/map0/addr",
		MemSize:  "/sys/class/uio/uio0/maps/map0/size",
		Regs:     "/dev/uio0",
		IrqBase:  "/dev/uio%d",
		ParamOff: 0x100000,
	}
	c.ResetAttempts = 10
	c.ResetDelay = time.Microsecond
	c.PoolSize = 8
	c.PoolBufSize = 4 << 20
	c.ParamSlots = 4
	c.HeaderAlign = 16
	return c
}

// Clear resets the IP table to the defaults with all IPs disabled.
func (c *Config) Clear() *Config {
	for ip := CSI; ip < numIPs; ip++ {
		c.ips[ip] = IPConfig{
			Base:            uint32(ip) * 0x10000,
			ConstraintWidth: 8192,
			Block:           BlockSize{32, 4},
			SbwcAlign:       sbwcAlign64,
		}
	}
	for _, ip := range []IP{CSI, CSTAT, BYRP} {
		c.ips[ip].Block = BlockSize{256, 1}
	}
	for _, ip := range []IP{BYRP, RGBP, MCFP, YUVP} {
		c.ips[ip].Stripe = true
		c.ips[ip].ConstraintWidth = 4096
	}
	c.ips[CSI].Base = 0
	return c
}

// EnableIP enables configuration of the IP.
func (c *Config) EnableIP(ip IP) *Config {
	c.ips[ip%numIPs].Enabled = true
	return c
}

// Constraint sets the maximum line width of the IP.
func (c *Config) Constraint(ip IP, width int) *Config {
	c.ips[ip%numIPs].ConstraintWidth = width
	return c
}

// Block sets the SBWC block size of the IP.
func (c *Config) Block(ip IP, w, h int) *Config {
	c.ips[ip%numIPs].Block = BlockSize{w, h}
	return c
}

// IP returns the configuration of the IP.
func (c *Config) IP(ip IP) IPConfig {
	return c.ips[ip%numIPs]
}

// Enabled returns true if the IP is enabled.
func (c *Config) Enabled(ip IP) bool {
	return ip >= 0 && ip < numIPs && c.ips[ip].Enabled
}

// configFile is the YAML layout. Absent keys keep the default values.
type configFile struct {
	IPs    map[string]yaml.Node `yaml:"ips"`
	Stripe *StripeConfig        `yaml:"stripe"`
	CSI    *CSIConfig           `yaml:"csi"`
	Device *DeviceConfig        `yaml:"device"`
	Reset  *struct {
		Attempts int `yaml:"attempts"`
		DelayUS  int `yaml:"delay_us"`
	} `yaml:"reset"`
	PoolSize    int `yaml:"votf_pool_size"`
	PoolBufSize int `yaml:"votf_buf_size"`
	ParamSlots  int `yaml:"param_slots"`
	HeaderAlign int `yaml:"header_align"`
}

// LoadConfig reads a YAML hardware description.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML hardware description on top of the defaults.
func ParseConfig(data []byte) (*Config, error) {
	c := NewConfig()
	cf := configFile{Stripe: &c.Stripe, CSI: &c.CSI, Device: &c.Device}
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	for name, node := range cf.IPs {
		ip, err := ParseIP(name)
		if err != nil {
			return nil, err
		}
		if err := node.Decode(&c.ips[ip]); err != nil {
			return nil, fmt.Errorf("ip %s: %w", name, err)
		}
	}
	if cf.Reset != nil {
		if cf.Reset.Attempts > 0 {
			c.ResetAttempts = cf.Reset.Attempts
		}
		if cf.Reset.DelayUS > 0 {
			c.ResetDelay = time.Duration(cf.Reset.DelayUS) * time.Microsecond
		}
	}
	if cf.PoolSize > 0 {
		c.PoolSize = cf.PoolSize
	}
	if cf.PoolBufSize > 0 {
		c.PoolBufSize = cf.PoolBufSize
	}
	if cf.ParamSlots > 0 {
		c.ParamSlots = cf.ParamSlots
	}
	if cf.HeaderAlign > 0 {
		c.HeaderAlign = cf.HeaderAlign
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	s := c.Stripe
	if s.Margin < 0 || s.PixelAlign <= 0 || s.WidthAlign <= 0 || s.MaxRegions <= 0 {
		return fmt.Errorf("stripe margin %d align %d/%d max %d: %w",
			s.Margin, s.PixelAlign, s.WidthAlign, s.MaxRegions, ErrInvalidConstraint)
	}
	for ip := CSI; ip < numIPs; ip++ {
		ic := c.ips[ip]
		if !ic.Enabled {
			continue
		}
		if ic.Block.Width <= 0 || ic.Block.Height <= 0 {
			return fmt.Errorf("%s: SBWC block %dx%d: %w", ip, ic.Block.Width, ic.Block.Height, ErrInvalidConstraint)
		}
		if ic.Stripe && ic.ConstraintWidth <= 2*s.Margin {
			return fmt.Errorf("%s: constraint width %d within margins: %w", ip, ic.ConstraintWidth, ErrInvalidConstraint)
		}
	}
	if c.CSI.VirtualChannels <= 0 || c.CSI.VirtualChannels > maxVirtualChannels {
		return fmt.Errorf("%d virtual channels: %w", c.CSI.VirtualChannels, ErrInvalidVirtualChannel)
	}
	if c.CSI.Lanes <= 0 || c.CSI.Lanes > maxLanes {
		return fmt.Errorf("%d lanes: %w", c.CSI.Lanes, ErrInvalidIndex)
	}
	if c.PoolSize <= 0 || c.PoolBufSize <= 0 || c.ParamSlots <= 0 || c.HeaderAlign <= 0 || c.ResetAttempts <= 0 {
		return fmt.Errorf("pool %d slots %d header align %d reset attempts %d: %w",
			c.PoolSize, c.ParamSlots, c.HeaderAlign, c.ResetAttempts, ErrInvalidConstraint)
	}
	return nil
}
