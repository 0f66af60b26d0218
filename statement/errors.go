// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package statement

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrWrongBoxType indicates a box of the wrong type was supplied as
	// the inbox or outbox of a statement.
	ErrWrongBoxType ErrorCode = iota

	// ErrIdentityMismatch indicates a collaborator whose identifiers do
	// not match the inbox the statement is generated for.
	ErrIdentityMismatch

	// ErrInvalidArgument indicates a missing collaborator.
	ErrInvalidArgument

	// ErrEncode indicates the statement could not be encoded or decoded.
	ErrEncode

	// ErrSignature indicates signing or signature verification failed.
	ErrSignature
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrWrongBoxType:     "ErrWrongBoxType",
	ErrIdentityMismatch: "ErrIdentityMismatch",
	ErrInvalidArgument:  "ErrInvalidArgument",
	ErrEncode:           "ErrEncode",
	ErrSignature:        "ErrSignature",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for errors that can happen while building a
// balance statement.
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error.
func (e Error) Unwrap() error {
	return e.Err
}

func stmtError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsErrorCode reports whether err is an Error, or wraps one, with the given
// code.
func IsErrorCode(err error, c ErrorCode) bool {
	var e Error
	return errors.As(err, &e) && e.ErrorCode == c
}
