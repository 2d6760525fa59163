// Copyright 2021 - 2022 Matrix Origin
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

package moerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMoErrCode(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		err      error
		code     uint16
		expected bool
	}{
		{
			name:     "nil error is ok",
			err:      nil,
			code:     Ok,
			expected: true,
		},
		{
			name:     "nil error is not a failure",
			err:      nil,
			code:     ErrBuildFailure,
			expected: false,
		},
		{
			name:     "build failure",
			err:      NewBuildFailure(ctx, 3, "no free slot"),
			code:     ErrBuildFailure,
			expected: true,
		},
		{
			name:     "wrapped build failure",
			err:      fmt.Errorf("job: %w", NewBuildFailure(ctx, 3, "no free slot")),
			code:     ErrBuildFailure,
			expected: true,
		},
		{
			name:     "bad config is not a build failure",
			err:      NewBadConfig(ctx, "range is zero"),
			code:     ErrBuildFailure,
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("some error"),
			code:     ErrInternal,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsMoErrCode(tt.err, tt.code))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, "hash table build failed for bucket pair 7: neighborhood full",
		NewBuildFailure(ctx, 7, "neighborhood full").Error())
	require.Equal(t, "invalid configuration: load factor 1.5 not in (0, 1)",
		NewBadConfig(ctx, "load factor %v not in (0, 1)", 1.5).Error())

	first := NewBuildFailure(ctx, 1, "full")
	err := NewPhaseFailure(ctx, "join", 2, 8, first)
	require.Equal(t, "join phase failed: 2 of 8 jobs failed, first failure: hash table build failed for bucket pair 1: full", err.Error())
	require.True(t, errors.Is(err, first))
	require.Equal(t, ErrPhaseFailure, err.ErrorCode())
}

func TestConvertPanicError(t *testing.T) {
	ctx := context.Background()
	err := ConvertPanicError(ctx, "boom")
	require.Equal(t, ErrInternal, err.ErrorCode())
	require.Equal(t, "internal error: panic boom", err.Error())
	require.NotEmpty(t, err.Detail())

	orig := NewInvalidInput(ctx, "left limit 3 > right limit 2")
	require.Same(t, orig, ConvertPanicError(ctx, orig))
}

func TestConvertGoError(t *testing.T) {
	ctx := context.Background()
	require.Nil(t, ConvertGoError(ctx, nil))

	orig := NewOutOfRange(ctx, "x")
	require.Equal(t, orig, ConvertGoError(ctx, orig))

	plain := errors.New("plain")
	converted := ConvertGoError(ctx, plain)
	require.True(t, IsMoErrCode(converted, ErrInternal))
	require.True(t, errors.Is(converted, plain))
	require.Equal(t, ErrInternal, DowncastError(converted).ErrorCode())
}

func TestOkCodes(t *testing.T) {
	require.True(t, GetOkStopCurrRecur().Succeeded())
	require.False(t, NewJoinFailure(context.Background(), "x").Succeeded())
	require.Equal(t, "invalid input: x: more", NewInvalidInput(context.Background(), "x").WithDetail("more").Display())
}
