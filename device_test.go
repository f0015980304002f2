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
	"math/bits"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testWindow = 0x100000 + 0x40000

func testDevice(t *testing.T, c *Config, version uint32) *Device {
	t.Helper()
	mem := make([]byte, testWindow)
	binary.NativeEndian.PutUint32(mem[versionReg.Offset:], version)
	d, err := newDevice(c, mem)
	require.NoError(t, err, "newDevice")
	d.log = testLogger()
	return d
}

func TestDeviceOrder(t *testing.T) {
	c := NewConfig().EnableIP(CSI).EnableIP(BYRP)
	d := testDevice(t, c, version10)
	if d.Order != binary.LittleEndian {
		t.Errorf("got %v, want little endian", d.Order)
	}
	if s := d.Description(); s != "ISP v10.1 Little endian CSI BYRP" {
		t.Errorf("description %q", s)
	}
	if d.Unit(BYRP) == nil || d.Unit(RGBP) != nil || d.Unit(numIPs) != nil {
		t.Errorf("units not created for the enabled IPs only")
	}
	d = testDevice(t, c, bits.ReverseBytes32(version13))
	if d.Order != binary.BigEndian || d.version != version13 {
		t.Errorf("got %v version 0x%x, want big endian 0x%x", d.Order, d.version, version13)
	}
	mem := make([]byte, testWindow)
	binary.NativeEndian.PutUint32(mem[versionReg.Offset:], 0x12345678)
	if _, err := newDevice(c, mem); err == nil || !strings.Contains(err.Error(), "unknown ISP version") {
		t.Errorf("unknown version accepted: %v", err)
	}
	if _, err := newDevice(c, make([]byte, 0x1000)); !errors.Is(err, ErrInvalidConstraint) {
		t.Errorf("got %v, want ErrInvalidConstraint", err)
	}
}

func TestDeviceStart(t *testing.T) {
	c := NewConfig().EnableIP(CSI).EnableIP(CSTAT)
	c.ResetAttempts = 3
	d := testDevice(t, c, version11)
	polls := 0
	for _, u := range []*Unit{d.dmaCommon, d.Unit(CSI), d.Unit(CSTAT)} {
		u.sleep = func(time.Duration) { polls++ }
	}
	// Memory never clears the reset bit.
	err := d.Start()
	if !errors.Is(err, ErrResetTimeout) {
		t.Fatalf("got %v, want ErrResetTimeout", err)
	}
	if polls != 9 {
		t.Errorf("polled %d times, want 9", polls)
	}
	if d.Unit(CSI).IsEnabled() {
		t.Errorf("unit enabled after a failed reset")
	}
	d.Unit(CSTAT).Enable()
	d.Stop()
	if d.Unit(CSTAT).IsEnabled() {
		t.Errorf("unit enabled after Stop")
	}
}

func TestDevicePipeline(t *testing.T) {
	c := NewConfig().EnableIP(RGBP).EnableIP(LME).EnableIP(YUVP)
	c.PoolSize = 2
	c.PoolBufSize = 0x1000
	d := testDevice(t, c, version10)
	d.memBase = 0x40000000
	p, err := d.Pipeline(Options{Logger: testLogger()})
	require.NoError(t, err)
	if p.sub != d.params || p.regs != d.regs {
		t.Errorf("pipeline not attached to the device")
	}
	if len(p.pools) != 2 {
		t.Fatalf("got %d pools, want 2", len(p.pools))
	}
	base := uint64(d.memBase) + uint64(alignUp(int(c.Device.ParamOff)+d.params.slotSize*d.params.slots, 4096))
	hf := p.pools[VidRGBPHf]
	if hf == nil || hf.Get(1).Addrs[0] != base+0x1000 {
		t.Errorf("RGBP HF pool not placed after the parameter region")
	}
	if mv := p.pools[VidLMEMv]; mv == nil || mv.Get(0).Addrs[0] != base+0x2000 {
		t.Errorf("LME MV pool not placed after the HF pool")
	}
	c.PoolBufSize = testWindow
	if _, err := d.Pipeline(Options{}); !errors.Is(err, ErrInvalidConstraint) {
		t.Errorf("got %v, want ErrInvalidConstraint", err)
	}
}
