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
)

// halfSize is the geometry of the weight map of an image.
func halfSize(in Crop) Crop {
	return Crop{0, 0, divRoundUp(in.W, 2), divRoundUp(in.H, 2)}
}

// tagMCFP configures temporal noise reduction. The previous output and
// weight map are read back, and motion vectors arrive from LME by memory
// or vOTF.
func tagMCFP(c *ipContext) error {
	in, err := c.configureLeader(dmaOpt{stripe: true})
	if err != nil {
		return err
	}
	half := func(*Node) Crop { return halfSize(in) }
	errs := c.configureCaptures(func(n *Node) dmaOpt {
		switch n.Vid {
		case VidMCFPPrevYuv:
			return dmaOpt{substitute: c.fullSize, stripe: true}
		case VidMCFPPrevW, VidMCFPW:
			return dmaOpt{substitute: half, stripe: true}
		case VidMCFPMv:
			return dmaOpt{noSbwc: true, substitute: func(*Node) Crop { return mvSize(in.W, in.H) }}
		case VidMCFPYuv:
			return dmaOpt{stripe: true, check: evenSize}
		}
		return dmaOpt{stripe: true}
	})
	return errors.Join(errs...)
}
