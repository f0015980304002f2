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
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Irq delivers the decoded interrupts of a UIO interrupt device.
type Irq struct {
	id                int
	file              io.ReadWriteCloser
	decode            func() IrqSource
	mu                sync.Mutex
	handlerRegistered bool
	irqChan           chan IrqSource
	hStop             chan chan int
}

// Irq opens the CSI interrupt device id. Each interrupt is decoded and
// acknowledged before it is delivered.
func (d *Device) Irq(id int) (*Irq, error) {
	f, err := os.OpenFile(fmt.Sprintf(d.cfg.Device.IrqBase, id), os.O_RDWR|os.O_SYNC, 0660)
	if err != nil {
		return nil, err
	}
	vcs, lanes := d.cfg.CSI.VirtualChannels, d.cfg.CSI.Lanes
	q := newIrq(id, f, func() IrqSource {
		return ReadCSIIrq(d.regs, d.csiRegs, vcs, lanes, true)
	})
	d.irqs = append(d.irqs, q)
	return q, nil
}

// newIrq starts reading the interrupt device.
func newIrq(id int, f io.ReadWriteCloser, decode func() IrqSource) *Irq {
	q := &Irq{
		id:      id,
		file:    f,
		decode:  decode,
		irqChan: make(chan IrqSource, 50),
	}
	q.enable()
	go q.irqReader()
	return q
}

// Close frees the resources associated with this interrupt device.
func (q *Irq) Close() {
	q.ClearHandler()
	q.file.Close()
}

// SetHandler installs an asynch handler that is invoked with every
// decoded interrupt.
func (q *Irq) SetHandler(f func(IrqSource)) {
	q.ClearHandler()
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlerRegistered = true
	q.hStop = make(chan chan int)
	go q.hDispatcher(f, q.hStop)
}

// ClearHandler removes any currently installed handler for this interrupt device.
func (q *Irq) ClearHandler() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.handlerRegistered {
		// Create a channel to be used to signal when the handler has exited.
		c := make(chan int)
		q.hStop <- c
		<-c
		close(q.hStop)
		q.handlerRegistered = false
	}
}

func (q *Irq) registered() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.handlerRegistered
}

// Wait returns the next interrupt.
// This cannot be used if a handler has been installed on this device.
func (q *Irq) Wait() (IrqSource, error) {
	if q.registered() {
		return IrqSource{}, fmt.Errorf("handler registered, cannot use Wait")
	}
	s, ok := <-q.irqChan
	if !ok {
		return IrqSource{}, io.EOF
	}
	return s, nil
}

// WaitTimeout returns the next interrupt, or false if the timeout expires e.g
//
//	s, ok, err := q.WaitTimeout(time.Second)
//	if ok {
//	    // Interrupt received
//	} else {
//	    // Timed out
//	}
func (q *Irq) WaitTimeout(tout time.Duration) (IrqSource, bool, error) {
	if q.registered() {
		return IrqSource{}, false, fmt.Errorf("handler registered, cannot use WaitTimeout")
	}
	timer := time.NewTimer(tout)
	defer timer.Stop()
	select {
	case s, ok := <-q.irqChan:
		if !ok {
			return IrqSource{}, false, io.EOF
		}
		return s, true, nil
	case <-timer.C:
		return IrqSource{}, false, nil
	}
}

// hDispatcher is a shim between the device and the
// external handler that will be invoked when an interrupt is received.
// A stop channel is used to indicate when the handler should terminate.
func (q *Irq) hDispatcher(f func(IrqSource), stop chan chan int) {
	for {
		select {
		case c := <-stop:
			// Send a value back to signal that the handler has terminated.
			c <- 0
			return
		case s, ok := <-q.irqChan:
			if !ok {
				c := <-stop
				c <- 0
				return
			}
			f(s)
		}
	}
}

// enable re-arms the UIO interrupt.
func (q *Irq) enable() {
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], 1)
	q.file.Write(b[:])
}

// irqReader blocks on the device, decoding each interrupt and sending
// it to the channel.
func (q *Irq) irqReader() {
	defer close(q.irqChan)
	b := make([]byte, 4)
	for {
		n, err := q.file.Read(b)
		if err != nil {
			// Assume device has been closed.
			return
		}
		if n == 4 {
			s := q.decode()
			q.enable()
			select {
			case q.irqChan <- s:
			default:
				// Unable to send, the reader is not keeping up.
			}
		}
	}
}

// ID returns the interrupt device number.
func (q *Irq) ID() int {
	return q.id
}
