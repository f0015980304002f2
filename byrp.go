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

// tagBYRP configures the Bayer pre-processor.
// The HDR input is the long exposure of the same frame, so a missing
// crop falls back to the full input.
func tagBYRP(c *ipContext) error {
	if _, err := c.configureLeader(dmaOpt{stripe: true}); err != nil {
		return err
	}
	errs := c.configureCaptures(func(n *Node) dmaOpt {
		switch n.Vid {
		case VidBYRPHdr:
			return dmaOpt{substitute: c.fullSize, stripe: true}
		}
		return dmaOpt{stripe: true}
	})
	return errors.Join(errs...)
}
