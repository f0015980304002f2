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

// evenSize rejects odd YUV geometry, which chroma subsampling cannot hold.
func evenSize(n *Node, crop Crop) error {
	if crop.X%2 != 0 || crop.W%2 != 0 || crop.H%2 != 0 {
		return fmt.Errorf("yuv crop %+v not 2 pixel aligned: %w", crop, ErrInvalidConstraint)
	}
	return nil
}

// tagRGBP configures the RGB pipeline. The HF output can feed YUVP
// through vOTF.
func tagRGBP(c *ipContext) error {
	if _, err := c.configureLeader(dmaOpt{stripe: true}); err != nil {
		return err
	}
	errs := c.configureCaptures(func(n *Node) dmaOpt {
		if n.Vid == VidRGBPYuv {
			return dmaOpt{stripe: true, check: evenSize}
		}
		return dmaOpt{stripe: true}
	})
	return errors.Join(errs...)
}
