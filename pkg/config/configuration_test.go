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
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/moerr"
)

func TestDefaultValues(t *testing.T) {
	cfg := NewConfig()
	require.Equal(t, runtime.NumCPU(), cfg.Join.Workers)
	require.Equal(t, uint(0), cfg.Join.RadixBits)
	require.Equal(t, uint(16), cfg.Join.MaxRadixBits)
	require.Equal(t, uint(4), cfg.Join.RecursionBits)
	require.Equal(t, 4096, cfg.Join.MaxBucketTuples)
	require.Equal(t, 4, cfg.Join.MaxDepth)
	require.Equal(t, 1, cfg.Join.PhaseRetries)
	require.Equal(t, HopscotchParameters{
		Buckets:               1024,
		Range:                 32,
		ResizableByLoadFactor: true,
		LoadFactor:            0.8,
	}, cfg.Join.Hopscotch)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Format)
	require.NoError(t, cfg.Validate(context.Background()))
}

func TestParseConfig(t *testing.T) {
	data := `
[join]
workers = 4
radixBits = 4
maxBucketTuples = 128

[join.hopscotch]
buckets = 64
range = 8
resizableByLoadFactor = false
loadFactor = 0.5

[log]
level = "debug"
format = "json"
`
	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Join.Workers)
	require.Equal(t, uint(4), cfg.Join.RadixBits)
	require.Equal(t, 128, cfg.Join.MaxBucketTuples)
	require.Equal(t, 64, cfg.Join.Hopscotch.Buckets)
	require.Equal(t, 8, cfg.Join.Hopscotch.Range)
	require.False(t, cfg.Join.Hopscotch.ResizableByLoadFactor)
	require.Equal(t, 0.5, cfg.Join.Hopscotch.LoadFactor)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestParseConfigFromFile(t *testing.T) {
	_, err := ParseConfigFromFile("")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))

	file := filepath.Join(t.TempDir(), "join.toml")
	require.NoError(t, os.WriteFile(file, []byte("[join]\nworkers = 2\n"), 0o644))
	cfg, err := ParseConfigFromFile(file)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Join.Workers)

	require.NoError(t, os.WriteFile(file, []byte("[join\n"), 0o644))
	_, err = ParseConfigFromFile(file)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		modify func(*JoinParameters)
	}{
		{"negative workers", func(jp *JoinParameters) { jp.Workers = -1 }},
		{"radix bits above max", func(jp *JoinParameters) { jp.RadixBits = 20 }},
		{"max radix bits above level width", func(jp *JoinParameters) { jp.MaxRadixBits = 25 }},
		{"negative depth", func(jp *JoinParameters) { jp.MaxDepth = -1 }},
		{"negative retries", func(jp *JoinParameters) { jp.PhaseRetries = -1 }},
		{"load factor above one", func(jp *JoinParameters) { jp.Hopscotch.LoadFactor = 1.5 }},
		{"range above buckets", func(jp *JoinParameters) { jp.Hopscotch.Range = 2048 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.modify(&cfg.Join)
			err := cfg.Validate(ctx)
			require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig), "%v", err)
		})
	}
}

func TestParseShippedConfig(t *testing.T) {
	cfg, err := ParseConfigFromFile("../../etc/radixjoin/join.toml")
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Join.Workers)
	require.Equal(t, uint(0), cfg.Join.RadixBits)
	require.True(t, cfg.Join.Hopscotch.ResizableByLoadFactor)
	require.Equal(t, "console", cfg.Log.Format)
}
