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

/*

Package pablo configures the camera ISP of Exynos SoCs from userspace, through
the register window and shared parameter region exported by a UIO driver.

Each frame is described by a node graph: per IP, a leader node describing the
input of the IP and up to CaptureNodeMax capture nodes, each feeding one DMA
block. A Pipeline translates the graph of a Frame into parameter blocks for the
IPs in pipeline order (CSI, CSTAT, BYRP, RGBP, LME, MCFP, YUVP), splitting wide
frames into stripe regions, and submits only the blocks modified for each IP.
A minimal sequence is:

	d, err := pablo.Open(pablo.DefaultConfig)
	...
	p, err := d.Pipeline(pablo.Options{})
	f := pablo.NewFrame(count)
	g := f.Group(pablo.CSI)
	...
	err = p.Shot(f)

Errors confined to a single node are returned as *NodeError values (joined when
there are several), and the rest of the frame is still configured; NodeOnly
reports whether a frame can be used.

Interrupts of the CSI receiver are decoded into IrqSource values, and delivered
through an Irq opened on the device.

*/
package pablo
