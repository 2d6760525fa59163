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

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/hash"
)

// Histogram counts every tuple of the input range into in.Hist.
func Histogram(_ context.Context, in *HistogramInput) error {
	for _, t := range in.Rel.Tuples[in.Left:in.Right] {
		in.Hist[hash.KeyBucket(t.Item, in.Shift, in.Bits)]++
	}
	return nil
}

// MergeHistograms sums per-job histograms of the same level. The order of
// hists does not matter.
func MergeHistograms(hists [][]int, buckets int) []int {
	merged := make([]int, buckets)
	for _, h := range hists {
		for b, cnt := range h {
			merged[b] += cnt
		}
	}
	return merged
}

// PrefixSum returns the bucket offsets of hist: bucket b starts at
// prefix[b] and ends at prefix[b+1].
func PrefixSum(hist []int) []int {
	prefix := make([]int, len(hist)+1)
	for b, cnt := range hist {
		prefix[b+1] = prefix[b] + cnt
	}
	return prefix
}
