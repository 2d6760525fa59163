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
	"runtime/debug"
	"sync/atomic"
)

const (
	// 0 - 99 is OK. They do not contain info, and are special handled
	// using a static instance, no alloc.
	Ok              uint16 = 0
	OkStopCurrRecur uint16 = 1

	OkMax uint16 = 99

	// Group 1: internal errors
	ErrStart        uint16 = 20100
	ErrInternal     uint16 = 20101
	ErrNYI          uint16 = 20102
	ErrNotSupported uint16 = 20105

	// Group 2: invalid input
	ErrBadConfig    uint16 = 20300
	ErrInvalidInput uint16 = 20301
	ErrOutOfRange   uint16 = 20302

	// Group 3: execution
	ErrBuildFailure  uint16 = 20400
	ErrPhaseFailure  uint16 = 20401
	ErrJoinFailure   uint16 = 20402
	ErrNoSuchColumn  uint16 = 20403
	ErrInvalidState  uint16 = 20404
	ErrSchedulerDown uint16 = 20405

	// Group End: max value of MOErrorCode
	ErrEnd uint16 = 65535
)

type moErrorMsgItem struct {
	errorMsgOrFormat string
}

var errorMsgRefer = map[uint16]moErrorMsgItem{
	Ok:              {"ok"},
	OkStopCurrRecur: {"StopCurrRecur"},

	ErrStart:        {"internal error: error code start"},
	ErrInternal:     {"internal error: %s"},
	ErrNYI:          {"%s is not yet implemented"},
	ErrNotSupported: {"not supported: %s"},

	ErrBadConfig:    {"invalid configuration: %s"},
	ErrInvalidInput: {"invalid input: %s"},
	ErrOutOfRange:   {"out of range: %s"},

	ErrBuildFailure:  {"hash table build failed for bucket pair %d: %s"},
	ErrPhaseFailure:  {"%s phase failed: %d of %d jobs failed, first failure: %s"},
	ErrJoinFailure:   {"join failed: %s"},
	ErrNoSuchColumn:  {"no such column %d in relation %d"},
	ErrInvalidState:  {"invalid state %s"},
	ErrSchedulerDown: {"job scheduler is closed"},

	ErrEnd: {"internal error: end of errcode code"},
}

func newError(ctx context.Context, code uint16, args ...any) *Error {
	item, has := errorMsgRefer[code]
	if !has {
		panic(NewInternalError(ctx, "not exist MOErrorCode: %d", code))
	}
	if len(args) == 0 {
		return &Error{
			code:    code,
			message: item.errorMsgOrFormat,
		}
	}
	return &Error{
		code:    code,
		message: fmt.Sprintf(item.errorMsgOrFormat, args...),
	}
}

type Error struct {
	code    uint16
	message string
	detail  string
	cause   error
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Detail() string {
	return e.detail
}

func (e *Error) Display() string {
	if len(e.detail) == 0 {
		return e.message
	}
	return fmt.Sprintf("%s: %s", e.message, e.detail)
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

// Unwrap returns the error this one was raised for, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Succeeded() bool {
	return e.code < OkMax
}

// WithCause attaches the underlying error and returns e.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// WithDetail attaches free-form context shown by Display.
func (e *Error) WithDetail(detail string) *Error {
	e.detail = detail
	return e
}

func IsMoErrCode(e error, rc uint16) bool {
	if e == nil {
		return rc == Ok
	}

	var me *Error
	if !errors.As(e, &me) {
		// This is not a moerr
		return false
	}
	return me.code == rc
}

func DowncastError(e error) *Error {
	var me *Error
	if errors.As(e, &me) {
		return me
	}
	return newError(Context(), ErrInternal, fmt.Sprintf("downcast error failed: %v", e))
}

// ConvertPanicError converts a runtime panic to internal error.
func ConvertPanicError(ctx context.Context, v interface{}) *Error {
	if e, ok := v.(*Error); ok {
		return e
	}
	return newError(ctx, ErrInternal, fmt.Sprintf("panic %v", v)).WithDetail(string(debug.Stack()))
}

// ConvertGoError converts a go error into mo error.
// Note here we must return error, because nil error
// is the same as nil *Error -- Go strangeness.
func ConvertGoError(ctx context.Context, err error) error {
	if err == nil {
		return err
	}
	var me *Error
	if errors.As(err, &me) {
		return err
	}
	return NewInternalError(ctx, "convert go error to mo error %v", err).WithCause(err)
}

var errOkStopCurrRecur = Error{code: OkStopCurrRecur, message: "StopCurrRecur"}

func GetOkStopCurrRecur() *Error {
	return &errOkStopCurrRecur
}

func NewInternalError(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInternal, xmsg)
}

func NewNYI(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrNYI, xmsg)
}

func NewNotSupported(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrNotSupported, xmsg)
}

func NewBadConfig(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrBadConfig, xmsg)
}

func NewInvalidInput(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInvalidInput, xmsg)
}

func NewOutOfRange(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrOutOfRange, xmsg)
}

// NewBuildFailure reports a hash table that could not place a key for the
// bucket pair identified by rank.
func NewBuildFailure(ctx context.Context, rank uint32, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrBuildFailure, rank, xmsg)
}

func NewPhaseFailure(ctx context.Context, phase string, failed, total int, first error) *Error {
	msg := "none"
	if first != nil {
		msg = first.Error()
	}
	return newError(ctx, ErrPhaseFailure, phase, failed, total, msg).WithCause(first)
}

func NewJoinFailure(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrJoinFailure, xmsg)
}

func NewNoSuchColumn(ctx context.Context, relation, column int) *Error {
	return newError(ctx, ErrNoSuchColumn, column, relation)
}

func NewInvalidState(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInvalidState, xmsg)
}

func NewSchedulerDown(ctx context.Context) *Error {
	return newError(ctx, ErrSchedulerDown)
}

var contextFunc atomic.Value

func SetContextFunc(f func() context.Context) {
	contextFunc.Store(f)
}

// Context returns the context used by errors raised without one.
func Context() context.Context {
	return contextFunc.Load().(func() context.Context)()
}

func init() {
	SetContextFunc(func() context.Context { return context.Background() })
}
