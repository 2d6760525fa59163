// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package radixjoin

import (
	"context"

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/moerr"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/hash"
)

// Partition copies every tuple of the input range into its bucket of
// in.Dst. Jobs of the same level share the cursors, so the relative order
// inside a bucket is unspecified.
func Partition(ctx context.Context, in *PartitionInput) error {
	for _, t := range in.Src.Tuples[in.Left:in.Right] {
		b := hash.KeyBucket(t.Item, in.Shift, in.Bits)
		slot := in.PrefixSum[b] + in.Cursors.Next(b)
		if slot >= in.PrefixSum[b+1] {
			// the prefix sum was not built from this source and level
			return moerr.NewInvalidState(ctx, "bucket %d overflows at slot %d", b, slot)
		}
		in.Dst.Tuples[slot] = t
	}
	return nil
}
