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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	p, err := NewPool(4, 0x1000, 0x100)
	require.NoError(t, err)
	if p.Size() != 4 {
		t.Errorf("size %d", p.Size())
	}
	for count := uint32(0); count < 10; count++ {
		f := p.Get(count)
		if f.Index != int(count%4) {
			t.Errorf("count %d: got index %d", count, f.Index)
		}
		if f.Addrs[0] != 0x1000+uint64(f.Index)*0x100 {
			t.Errorf("count %d: address 0x%x", count, f.Addrs[0])
		}
	}
	if p.Get(5) != p.Get(1) {
		t.Errorf("frames 1 and 5 do not share a slot")
	}
	// Concurrent frames read the ring without writing it.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(count uint32) {
			defer wg.Done()
			for n := uint32(0); n < 100; n++ {
				if f := p.Get(count + n); f.Addrs[0] != 0x1000+uint64(f.Index)*0x100 {
					t.Errorf("count %d: address 0x%x", count+n, f.Addrs[0])
				}
			}
		}(uint32(i))
	}
	wg.Wait()
	if _, err := NewPool(0, 0, 0); err == nil {
		t.Errorf("empty pool accepted")
	}
}
