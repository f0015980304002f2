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
	"time"
)

// Control registers present at the start of every IP block.
var (
	regSwReset = Reg{0x0000, "sw_reset"}
	regEnable  = Reg{0x0004, "ip_enable"}
	regStatus  = Reg{0x0008, "ip_status"}

	fieldSwReset = Field{"sw_reset", 0, 1}
	fieldEnable  = Field{"enable", 0, 1}
	fieldBusy    = Field{"busy", 0, 1}
)

// Unit represents the register block of one IP.
type Unit struct {
	name     string
	regs     Registers
	attempts int
	delay    time.Duration
	sleep    func(time.Duration) // Replaceable for tests
}

// newUnit initialises the unit's fields
func newUnit(name string, regs Registers, c *Config) *Unit {
	return &Unit{name: name, regs: regs, attempts: c.ResetAttempts, delay: c.ResetDelay, sleep: time.Sleep}
}

// Name returns the name of the IP.
func (u *Unit) Name() string {
	return u.name
}

// Regs returns the register access of the IP block.
func (u *Unit) Regs() Registers {
	return u.regs
}

// Reset requests a software reset and polls until the hardware
// clears the reset bit, waiting a fixed delay between polls.
func (u *Unit) Reset() error {
	WriteField(u.regs, regSwReset, fieldSwReset, 1)
	for i := 0; i < u.attempts; i++ {
		if ReadField(u.regs, regSwReset, fieldSwReset) == 0 {
			return nil
		}
		u.sleep(u.delay)
	}
	return fmt.Errorf("%s: still in reset after %d polls: %w", u.name, u.attempts, ErrResetTimeout)
}

// Disable disables the IP
func (u *Unit) Disable() {
	WriteField(u.regs, regEnable, fieldEnable, 0)
}

// Enable enables the IP
func (u *Unit) Enable() {
	WriteField(u.regs, regEnable, fieldEnable, 1)
}

// IsEnabled returns true if the IP is enabled.
func (u *Unit) IsEnabled() bool {
	return ReadField(u.regs, regEnable, fieldEnable) != 0
}

// IsBusy returns true while the IP is processing a frame.
func (u *Unit) IsBusy() bool {
	return ReadField(u.regs, regStatus, fieldBusy) != 0
}
