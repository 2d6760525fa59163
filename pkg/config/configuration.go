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

package config

import (
	"context"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/moerr"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/container/hashtable"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/hash"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/logutil"
)

const (
	defaultMaxRadixBits    uint = 16
	defaultRecursionBits   uint = 4
	defaultMaxBucketTuples int  = 4096
	defaultMaxDepth        int  = 4
	defaultPhaseRetries    int  = 1

	defaultHopscotchBuckets    int     = 1024
	defaultHopscotchRange      int     = 32
	defaultHopscotchLoadFactor float64 = 0.8
)

// HopscotchParameters of the per-bucket join hash table
type HopscotchParameters struct {
	//initial slot count of the table built for one bucket pair
	Buckets int `toml:"buckets"`

	//neighborhood size; a key is always found within range slots of its home
	Range int `toml:"range"`

	//default is true. if false, a full neighborhood fails the join job instead of growing the table
	ResizableByLoadFactor bool `toml:"resizableByLoadFactor"`

	//upper bound of distinct keys / slots once the table is resizable. default: 0.8
	LoadFactor float64 `toml:"loadFactor"`
}

func (hp HopscotchParameters) Options() hashtable.HopscotchOptions {
	return hashtable.HopscotchOptions{
		Buckets:               hp.Buckets,
		Range:                 hp.Range,
		ResizableByLoadFactor: hp.ResizableByLoadFactor,
		LoadFactor:            hp.LoadFactor,
	}
}

// JoinParameters of the radix hash join
type JoinParameters struct {
	//size of the worker pool. default: number of cpus
	Workers int `toml:"workers"`

	//radix bits of the top partition level. 0 derives them from the column statistics
	RadixBits uint `toml:"radixBits"`

	//upper bound of derived top level radix bits. default: 16
	MaxRadixBits uint `toml:"maxRadixBits"`

	//extra radix bits used for each recursive partition level. default: 4
	RecursionBits uint `toml:"recursionBits"`

	//a bucket with more tuples than this on either side is partitioned again. default: 4096
	MaxBucketTuples int `toml:"maxBucketTuples"`

	//maximum number of recursive partition levels below the top one. default: 4
	MaxDepth int `toml:"maxDepth"`

	//number of times a failed phase is run again before the join fails. default: 1
	PhaseRetries int `toml:"phaseRetries"`

	Hopscotch HopscotchParameters `toml:"hopscotch"`
}

// Config is the toml file layout
type Config struct {
	Join JoinParameters    `toml:"join"`
	Log  logutil.LogConfig `toml:"log"`
}

// NewConfig returns a config filled with default values
func NewConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaultValues()
	return cfg
}

// SetDefaultValues fills every unset field
func (c *Config) SetDefaultValues() {
	c.Join.SetDefaultValues()
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

func (jp *JoinParameters) SetDefaultValues() {
	if jp.Workers == 0 {
		jp.Workers = runtime.NumCPU()
	}
	if jp.MaxRadixBits == 0 {
		jp.MaxRadixBits = defaultMaxRadixBits
	}
	if jp.RecursionBits == 0 {
		jp.RecursionBits = defaultRecursionBits
	}
	if jp.MaxBucketTuples == 0 {
		jp.MaxBucketTuples = defaultMaxBucketTuples
	}
	if jp.MaxDepth == 0 {
		jp.MaxDepth = defaultMaxDepth
	}
	if jp.PhaseRetries == 0 {
		jp.PhaseRetries = defaultPhaseRetries
	}
	if jp.Hopscotch.Buckets == 0 {
		jp.Hopscotch.Buckets = defaultHopscotchBuckets
		// a fully unset table section is resizable
		jp.Hopscotch.ResizableByLoadFactor = true
	}
	if jp.Hopscotch.Range == 0 {
		jp.Hopscotch.Range = defaultHopscotchRange
		if jp.Hopscotch.Range > jp.Hopscotch.Buckets {
			jp.Hopscotch.Range = jp.Hopscotch.Buckets
		}
	}
	if jp.Hopscotch.LoadFactor == 0 {
		jp.Hopscotch.LoadFactor = defaultHopscotchLoadFactor
	}
}

// Validate reports the first invalid parameter. Nothing is clamped silently.
func (jp *JoinParameters) Validate(ctx context.Context) error {
	if jp.Workers <= 0 {
		return moerr.NewBadConfig(ctx, "workers must be positive, got %d", jp.Workers)
	}
	if jp.MaxRadixBits == 0 || jp.MaxRadixBits > hash.MaxLevelBits {
		return moerr.NewBadConfig(ctx, "maxRadixBits must be in [1, %d], got %d", hash.MaxLevelBits, jp.MaxRadixBits)
	}
	if jp.RadixBits > jp.MaxRadixBits {
		return moerr.NewBadConfig(ctx, "radixBits %d exceeds maxRadixBits %d", jp.RadixBits, jp.MaxRadixBits)
	}
	if jp.RecursionBits == 0 || jp.RecursionBits > hash.MaxLevelBits {
		return moerr.NewBadConfig(ctx, "recursionBits must be in [1, %d], got %d", hash.MaxLevelBits, jp.RecursionBits)
	}
	if jp.MaxBucketTuples <= 0 {
		return moerr.NewBadConfig(ctx, "maxBucketTuples must be positive, got %d", jp.MaxBucketTuples)
	}
	if jp.MaxDepth < 0 {
		return moerr.NewBadConfig(ctx, "maxDepth must not be negative, got %d", jp.MaxDepth)
	}
	if jp.PhaseRetries < 0 {
		return moerr.NewBadConfig(ctx, "phaseRetries must not be negative, got %d", jp.PhaseRetries)
	}
	return jp.Hopscotch.Options().Validate(ctx)
}

func (c *Config) Validate(ctx context.Context) error {
	return c.Join.Validate(ctx)
}

// ParseConfigFromFile decodes a toml file, fills defaults and validates it
func ParseConfigFromFile(file string) (*Config, error) {
	if file == "" {
		return nil, moerr.NewBadConfig(context.Background(), "toml config file not set")
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(file, cfg); err != nil {
		return nil, moerr.NewBadConfig(context.Background(), "decode %s: %v", file, err).WithCause(err)
	}
	cfg.SetDefaultValues()
	if err := cfg.Validate(context.Background()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfig decodes toml text the same way ParseConfigFromFile does
func ParseConfig(data string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, moerr.NewBadConfig(context.Background(), "decode config: %v", err).WithCause(err)
	}
	cfg.SetDefaultValues()
	if err := cfg.Validate(context.Background()); err != nil {
		return nil, err
	}
	return cfg, nil
}
