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

// Package hash holds the hash functions shared by the radix partitioning
// phases and the join hash tables.
//
// The radix bucket of a key at a partition level is
//
//	(Key(k) >> shift) & (1<<bits - 1)
//
// where Key is xxhash64 over the little-endian bytes of k, shift is the
// number of hash bits consumed by the enclosing levels and bits is the width
// of the level. The top level uses shift 0, i.e. the low-order bits.
// Histogram and partition jobs must both go through Bucket so that they agree
// on bucket boundaries.
package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

const (
	// MaxBits is the number of hash bits available to all partition levels.
	MaxBits = 64
	// MaxLevelBits bounds the width of one partition level, a level has at
	// most 1<<MaxLevelBits buckets.
	MaxLevelBits = 24
)

// Key is the radix hash of a join key.
func Key(k uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], k)
	return xxhash.Sum64(buf[:])
}

// Bucket extracts bits hash bits starting at shift.
func Bucket(h uint64, shift, bits uint) uint64 {
	return (h >> shift) & Mask(bits)
}

// KeyBucket is Bucket(Key(k), shift, bits).
func KeyBucket(k uint64, shift, bits uint) uint64 {
	return Bucket(Key(k), shift, bits)
}

func Mask(bits uint) uint64 {
	if bits >= MaxBits {
		return ^uint64(0)
	}
	return uint64(1)<<bits - 1
}

// Mix is a 64-bit finalizer (murmur3 fmix64) used for hash table home
// slots. It is unrelated to Key, so keys that share a radix bucket still
// spread over a table.
func Mix(k uint64) uint64 {
	k ^= k >> 33
	k *= 0xff51afd7ed558ccd
	k ^= k >> 33
	k *= 0xc4ceb9fe1a85ec53
	k ^= k >> 33
	return k
}
