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

var (
	ErrFormatNotFound        = errors.New("pablo: format not found")
	ErrNullCrop              = errors.New("pablo: null crop")
	ErrInvalidVirtualChannel = errors.New("pablo: invalid virtual channel")
	ErrInvalidIndex          = errors.New("pablo: invalid index")
	ErrStripeRegionTooSmall  = errors.New("pablo: stripe region too small")
	ErrResetTimeout          = errors.New("pablo: reset timeout")
	ErrUnsupportedVideoID    = errors.New("pablo: unsupported video id")
	ErrInvalidConstraint     = errors.New("pablo: invalid width constraint")
	ErrSubmit                = errors.New("pablo: parameter submission rejected")
	ErrLeaderFailed          = errors.New("pablo: leader node not configured")
)

// NodeError reports a failure confined to one node of a frame.
// Other nodes of the same frame continue to be configured.
type NodeError struct {
	IP  IP
	Vid VideoID
	Err error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.IP, e.Vid, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// NodeOnly returns true if every error contained in err is a NodeError,
// in which case the frame was still configured.
func NodeOnly(err error) bool {
	if err == nil {
		return true
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			if !NodeOnly(e) {
				return false
			}
		}
		return true
	}
	var ne *NodeError
	return errors.As(err, &ne)
}
