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
)

// tagCSTAT configures the statistics block. CSTAT takes the sensor
// stream and writes the statistics and downscaled images to memory.
func tagCSTAT(c *ipContext) error {
	in, err := c.configureLeader(dmaOpt{})
	if err != nil {
		return err
	}
	errs := c.configureCaptures(func(n *Node) dmaOpt {
		if n.Vid == VidCSTATLmeDS {
			return dmaOpt{check: func(n *Node, crop Crop) error {
				if crop.W > in.W || crop.H > in.H {
					return fmt.Errorf("%dx%d larger than input %dx%d: %w", crop.W, crop.H, in.W, in.H, ErrInvalidConstraint)
				}
				return nil
			}}
		}
		return dmaOpt{}
	})
	return errors.Join(errs...)
}
