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
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// versionReg holds the ISP revision, read to detect the byte order.
var versionReg = Reg{0xFFFC, "isp_version"}

// Known ISP revisions.
const (
	version10 = 0x10010000
	version11 = 0x11000000
	version13 = 0x13000000
)

// Device is an open ISP register window.
type Device struct {
	cfg       *Config
	log       *slog.Logger
	mmapFile  *os.File
	memBase   int
	memSize   int
	mem       []byte
	version   uint32
	regs      *MemRegs
	units     [numIPs]*Unit
	dmaCommon *Unit
	csiRegs   *CSIRegMap
	params    *ParamRegion
	irqs      []*Irq

	Order binary.ByteOrder // Byte order of the parameter region
}

// Single instance of Device.
var dev *Device

// Open maps the ISP register window using the configuration provided.
func Open(c *Config) (*Device, error) {
	if dev != nil {
		return nil, fmt.Errorf("device already open; must close it first")
	}
	if c == nil {
		c = DefaultConfig
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	memBase, err := readDriverValue(c.Device.MemBase)
	if err != nil {
		return nil, err
	}
	memSize, err := readDriverValue(c.Device.MemSize)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(c.Device.Regs, os.O_RDWR|os.O_SYNC, 0660)
	if err != nil {
		return nil, err
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, memSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %v", c.Device.Regs, err)
	}
	d, err := newDevice(c, mem)
	if err != nil {
		unix.Munmap(mem)
		f.Close()
		return nil, err
	}
	d.mmapFile = f
	d.memBase = memBase
	d.memSize = memSize
	dev = d
	return d, nil
}

// newDevice sets up the device over an already mapped window.
func newDevice(c *Config, mem []byte) (*Device, error) {
	d := &Device{cfg: c, log: slog.Default(), mem: mem, memSize: len(mem)}
	if int(c.Device.ParamOff) >= len(mem) || int(versionReg.Offset)+4 > len(mem) {
		return nil, fmt.Errorf("window of %d bytes too small: %w", len(mem), ErrInvalidConstraint)
	}
	d.regs = NewMemRegs(mem)
	// Determine the byte order from the revision register.
	v := d.regs.Read(versionReg)
	switch {
	case knownVersion(v):
		d.Order = binary.LittleEndian
		d.version = v
	case knownVersion(bits.ReverseBytes32(v)):
		d.Order = binary.BigEndian
		d.version = bits.ReverseBytes32(v)
	default:
		return nil, fmt.Errorf("unknown ISP version: 0x%08x", v)
	}
	for ip := CSI; ip < numIPs; ip++ {
		if c.Enabled(ip) {
			d.units[ip] = newUnit(ip.String(), d.regs.Window(c.IP(ip).Base), c)
		}
	}
	d.dmaCommon = newUnit("CSI_DMA", d.regs.Window(c.CSI.DmaBase), c)
	d.csiRegs = NewCSIRegMap(c)
	var err error
	d.params, err = NewParamRegion(mem[c.Device.ParamOff:], d.Order, c.ParamSlots)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func knownVersion(v uint32) bool {
	switch v {
	case version10, version11, version13:
		return true
	}
	return false
}

// Unit returns the register block of the IP, or nil if it is not enabled.
func (d *Device) Unit(ip IP) *Unit {
	if ip < 0 || ip >= numIPs {
		return nil
	}
	return d.units[ip]
}

// Regs returns access to the whole register window.
func (d *Device) Regs() Registers {
	return d.regs
}

// ParamRegion returns the shared parameter region.
func (d *Device) ParamRegion() *ParamRegion {
	return d.params
}

// Start resets the CSI DMA common block and every enabled IP, then
// enables them. A reset timeout is returned once all IPs were tried;
// the IPs that did reset are enabled regardless.
func (d *Device) Start() error {
	var errs []error
	if err := d.dmaCommon.Reset(); err != nil {
		d.log.Error("pablo: reset failed", "unit", d.dmaCommon.Name(), "error", err)
		errs = append(errs, err)
	}
	for _, u := range d.units {
		if u == nil {
			continue
		}
		if err := u.Reset(); err != nil {
			d.log.Error("pablo: reset failed", "unit", u.Name(), "error", err)
			errs = append(errs, err)
			continue
		}
		u.Enable()
	}
	return errors.Join(errs...)
}

// Stop disables every enabled IP.
func (d *Device) Stop() {
	for _, u := range d.units {
		if u != nil {
			u.Disable()
		}
	}
}

// Pipeline creates a pipeline that submits to the parameter region and
// programs the CSI registers of the device. vOTF pools are allocated
// after the parameter region unless opts supplies them.
func (d *Device) Pipeline(opts Options) (*Pipeline, error) {
	if opts.Submitter == nil {
		opts.Submitter = d.params
	}
	if opts.Regs == nil {
		opts.Regs = d.regs
		opts.CSIRegs = d.csiRegs
	}
	if opts.Pools == nil {
		pools, err := d.pools()
		if err != nil {
			return nil, err
		}
		opts.Pools = pools
	}
	return NewPipeline(d.cfg, opts)
}

// pools lays out one internal frame pool per vOTF producer.
func (d *Device) pools() (map[VideoID]*Pool, error) {
	const pageSize = 4096
	off := alignUp(int(d.cfg.Device.ParamOff)+d.params.slotSize*d.params.slots, pageSize)
	pools := make(map[VideoID]*Pool)
	for v := VidNone; v < numVids; v++ {
		vi := vidTable[v]
		if vi.peer == VidNone || vi.dir != DirOut || !d.cfg.Enabled(vi.ip) {
			continue
		}
		size := d.cfg.PoolSize * d.cfg.PoolBufSize
		if off+size > d.memSize {
			return nil, fmt.Errorf("no room for %s vOTF pool at 0x%x: %w", v, off, ErrInvalidConstraint)
		}
		p, err := NewPool(d.cfg.PoolSize, uint64(d.memBase+off), uint64(d.cfg.PoolBufSize))
		if err != nil {
			return nil, err
		}
		pools[v] = p
		off += size
	}
	return pools, nil
}

// Close disables the IPs and releases the resources of the device.
func (d *Device) Close() {
	d.Stop()
	for _, q := range d.irqs {
		q.Close()
	}
	d.irqs = nil
	if d.mmapFile != nil {
		unix.Munmap(d.mem)
		d.mmapFile.Close()
	}
	if dev == d {
		dev = nil
	}
}

// Description returns a human readable string describing the device
func (d *Device) Description() string {
	var s strings.Builder
	fmt.Fprintf(&s, "ISP v%x.%x", d.version>>24, (d.version>>16)&0xFF)
	if d.Order == binary.LittleEndian {
		fmt.Fprint(&s, " Little endian")
	} else {
		fmt.Fprint(&s, " Big endian")
	}
	for ip := CSI; ip < numIPs; ip++ {
		if d.units[ip] != nil {
			fmt.Fprintf(&s, " %s", ip)
		}
	}
	return s.String()
}

// readDriverValue opens and reads a string from a device file and decodes
// the string as an integer. This is used to retrieve the window
// parameters from the UIO kernel driver.
func readDriverValue(s string) (int, error) {
	var val int
	f, err := os.Open(s)
	if err != nil {
		return -1, err
	}
	defer f.Close()
	n, err := fmt.Fscanf(f, "%v", &val)
	if err != nil {
		return -1, fmt.Errorf("%s: %v", s, err)
	}
	if n != 1 {
		return -1, fmt.Errorf("%s: no value found", s)
	}
	return val, nil
}
