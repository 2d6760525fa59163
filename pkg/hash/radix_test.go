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

package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMask(t *testing.T) {
	require.Equal(t, uint64(0), Mask(0))
	require.Equal(t, uint64(1), Mask(1))
	require.Equal(t, uint64(0xffff), Mask(16))
	require.Equal(t, ^uint64(0), Mask(64))
}

func TestBucketRange(t *testing.T) {
	for k := uint64(0); k < 10000; k++ {
		require.Less(t, KeyBucket(k, 0, 4), uint64(16))
		require.Less(t, KeyBucket(k, 4, 3), uint64(8))
	}
}

func TestBucketLevelsCompose(t *testing.T) {
	// a level at shift 4 refines the parent level: the first 4+3 bits
	// of the hash select exactly one (parent, child) pair.
	for k := uint64(0); k < 1000; k++ {
		h := Key(k)
		parent := Bucket(h, 0, 4)
		child := Bucket(h, 4, 3)
		require.Equal(t, Bucket(h, 0, 7), child<<4|parent)
	}
}

func TestKeyDeterministic(t *testing.T) {
	require.Equal(t, Key(5), Key(5))
	require.NotEqual(t, Key(5), Key(6))
	require.NotEqual(t, Mix(5), Mix(6))
}

func TestBucketSpread(t *testing.T) {
	var counts [16]int
	for k := uint64(0); k < 16000; k++ {
		counts[KeyBucket(k, 0, 4)]++
	}
	for _, c := range counts {
		require.Greater(t, c, 500)
	}
}
