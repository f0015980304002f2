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

// Crop is a rectangle in pixels.
type Crop struct {
	X, Y, W, H int
}

// IsNull returns true for the empty crop used when no rectangle was supplied.
func (c Crop) IsNull() bool {
	return c.W <= 0 || c.H <= 0
}

// Request values of a node.
const (
	RequestOff  = 0
	RequestOn   = 1
	RequestVotf = 2 // Route through virtual OTF instead of DMA
)

// CaptureNodeMax is the number of capture nodes of a node group.
const CaptureNodeMax = 8

// Node is one entry of a frame's node graph.
type Node struct {
	Vid         VideoID
	Width       int // Buffer size, 0 when it equals the crop
	Height      int
	Input       Crop
	Output      Crop
	PixelFormat PixelFormat
	PixelSize   PixelSize
	Extra       Extra
	Request     uint32
	Result      uint32   // Set to 1 once the node was configured
	Addrs       []uint64 // Plane addresses of the buffer
}

// SetFlags decodes the packed flags word supplied with the node.
func (n *Node) SetFlags(flags uint32) {
	n.PixelSize, n.Extra = ParseFlags(flags)
}

// size returns the buffer size holding crop.
func (n *Node) size(crop Crop) (int, int) {
	w, h := n.Width, n.Height
	if w == 0 || h == 0 {
		w, h = crop.X+crop.W, crop.Y+crop.H
	}
	return w, h
}

// NodeGroup is the node graph of one IP for one frame.
type NodeGroup struct {
	Leader   Node
	InputOTF bool // Leader input arrives on the fly from the previous IP
	Capture  [CaptureNodeMax]Node
}

// Frame holds everything configured for one frame.
type Frame struct {
	Count           uint32
	Groups          [numIPs]*NodeGroup
	StripeRegionNum int // Requested split, overrides the computed count when non-zero
	Stripe          StripeState
	Params          *Params
	Targets         Targets
}

// NewFrame creates a frame with an empty parameter set.
func NewFrame(count uint32) *Frame {
	return &Frame{Count: count, Params: NewParams()}
}

// Group returns the node group of the IP, creating it if needed.
func (f *Frame) Group(ip IP) *NodeGroup {
	if f.Groups[ip] == nil {
		f.Groups[ip] = new(NodeGroup)
	}
	return f.Groups[ip]
}
