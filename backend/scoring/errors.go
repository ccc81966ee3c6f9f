// Copyright (c) 2026 TTBT Enterprises LLC
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

package scoring

import (
	"errors"
	"fmt"
)

// Code identifies the kind of a rejected command.
type Code string

const (
	CodeInvalidGameState   Code = "INVALID_GAME_STATE"
	CodeBatterMismatch     Code = "BATTER_MISMATCH"
	CodeInvalidAdvancement Code = "INVALID_ADVANCEMENT"
	CodeLineupInvalid      Code = "LINEUP_INVALID"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
)

// Error is returned by every rejected session command.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code, so the sentinels below work
// with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

var (
	ErrInvalidGameState   = &Error{Code: CodeInvalidGameState, Message: "invalid game state"}
	ErrBatterMismatch     = &Error{Code: CodeBatterMismatch, Message: "batter mismatch"}
	ErrInvalidAdvancement = &Error{Code: CodeInvalidAdvancement, Message: "invalid advancement"}
	ErrLineupInvalid      = &Error{Code: CodeLineupInvalid, Message: "lineup invalid"}
	ErrPersistenceFailure = &Error{Code: CodePersistenceFailure, Message: "persistence failure"}
)

func errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
