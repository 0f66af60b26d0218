// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package otbox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrDuplicateNumber indicates a record with the same number is
	// already held by the box.
	ErrDuplicateNumber ErrorCode = iota

	// ErrRecordNotFound indicates the box holds no record with the
	// requested number.
	ErrRecordNotFound

	// ErrStructure indicates a malformed box or record: a type or field
	// mismatch, a bad element or an encoding failure. Loads failing with
	// this code return no box.
	ErrStructure

	// ErrIdentityMismatch indicates the server, owner or container ids of a
	// box or record do not match the ids they were checked against.
	ErrIdentityMismatch

	// ErrCountMismatch indicates the declared number of abbreviated
	// records differs from the number actually present.
	ErrCountMismatch

	// ErrIntegrity indicates a box receipt whose digest does not match the
	// content hash of its abbreviated record.
	ErrIntegrity

	// ErrReceiptMissing indicates the box receipt of a record is not in
	// the receipt store.
	ErrReceiptMissing

	// ErrNotAbbreviated indicates an operation that needs an abbreviated
	// record found a full one.
	ErrNotAbbreviated

	// ErrNotMaterialized indicates an operation that needs the full
	// content of a record found it abbreviated.
	ErrNotMaterialized

	// ErrWrongBoxType indicates an operation was invoked on a box of a
	// type it does not apply to. This is a programming error of the
	// caller.
	ErrWrongBoxType

	// ErrSignature indicates a signature that failed verification.
	ErrSignature

	// ErrStore indicates a failure of the receipt or blob store. The Err
	// field holds the store error.
	ErrStore

	// ErrAccountNotFound indicates the account a box is keyed by is not
	// known to the account lookup.
	ErrAccountNotFound
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateNumber:  "ErrDuplicateNumber",
	ErrRecordNotFound:   "ErrRecordNotFound",
	ErrStructure:        "ErrStructure",
	ErrIdentityMismatch: "ErrIdentityMismatch",
	ErrCountMismatch:    "ErrCountMismatch",
	ErrIntegrity:        "ErrIntegrity",
	ErrReceiptMissing:   "ErrReceiptMissing",
	ErrNotAbbreviated:   "ErrNotAbbreviated",
	ErrNotMaterialized:  "ErrNotMaterialized",
	ErrWrongBoxType:     "ErrWrongBoxType",
	ErrSignature:        "ErrSignature",
	ErrStore:            "ErrStore",
	ErrAccountNotFound:  "ErrAccountNotFound",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for errors that can happen during box
// operation.
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

// boxError creates an Error given a set of arguments.
func boxError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsErrorCode reports whether err is an Error, or wraps one, with the given
// code.
func IsErrorCode(err error, c ErrorCode) bool {
	var e Error
	if !errors.As(err, &e) {
		return false
	}
	return e.ErrorCode == c
}

// BulkMaterializeError is returned by MaterializeAll when at least one record
// failed to materialize.
type BulkMaterializeError struct {
	// Failed holds the numbers of the records that failed, ascending.
	Failed []int64

	// Causes maps each failed number to its error.
	Causes map[int64]error
}

// Error satisfies the error interface.
func (e *BulkMaterializeError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, n := range e.Failed {
		parts = append(parts, fmt.Sprintf("%d: %v", n, e.Causes[n]))
	}
	return fmt.Sprintf("materialize failed for %d record(s): %s",
		len(e.Failed), strings.Join(parts, "; "))
}

// Unwrap returns the per record causes in ascending record order.
func (e *BulkMaterializeError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, n := range e.Failed {
		errs = append(errs, e.Causes[n])
	}
	return errs
}

// FailedSet returns the failed record numbers as a set.
func (e *BulkMaterializeError) FailedSet() fn.Set[int64] {
	return fn.NewSet(e.Failed...)
}
