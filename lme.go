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

// Motion vectors are produced per 16x16 block, 4 bytes each.
const (
	mvBlock = 16
	mvBytes = 4
)

// mvSize returns the motion vector buffer geometry for an image.
func mvSize(w, h int) Crop {
	return Crop{0, 0, divRoundUp(w, mvBlock) * mvBytes, divRoundUp(h, mvBlock)}
}

// tagLME configures the motion estimator. It reads the current and
// previous frame from memory and never takes part in stripe processing.
func tagLME(c *ipContext) error {
	in, err := c.configureLeader(dmaOpt{})
	if err != nil {
		return err
	}
	errs := c.configureCaptures(func(n *Node) dmaOpt {
		switch n.Vid {
		case VidLMEPrev:
			return dmaOpt{substitute: c.fullSize}
		case VidLMEMv, VidLMESad:
			return dmaOpt{noSbwc: true, substitute: func(*Node) Crop { return mvSize(in.W, in.H) }}
		}
		return dmaOpt{}
	})
	return errors.Join(errs...)
}
