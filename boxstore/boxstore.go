// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package boxstore defines the box types, storage keys and the persistence
// interfaces consumed by the box engine. Concrete backends live in the
// subpackages bdbstore, ldbstore and sqlstore, and cachestore layers a
// read-through receipt cache over any of them.
package boxstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/btcsuite/otledger/txdata"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// ErrNotFound is returned by every store when the requested key holds
	// no value.
	ErrNotFound = errors.New("not found")

	// ErrInvalidKey is returned when a key is missing one of the
	// identifiers its box type needs.
	ErrInvalidKey = errors.New("invalid store key")
)

// BoxType is the kind of a box.
type BoxType uint8

const (
	// BoxInvalid is the sentinel for an unknown or unparsable type.
	BoxInvalid BoxType = iota

	// BoxMessage holds full records inline.
	BoxMessage

	// BoxNymbox is the per-identity box delivering numbers and notices.
	BoxNymbox

	// BoxInbox holds the incoming receipts of an account.
	BoxInbox

	// BoxOutbox holds the outgoing pending transfers of an account.
	BoxOutbox

	// BoxPaymentInbox holds incoming payment instruments of an identity.
	BoxPaymentInbox

	// BoxRecordBox archives closed receipts.
	BoxRecordBox

	// BoxExpiredBox archives expired payment instruments.
	BoxExpiredBox
)

var boxTypeNames = map[BoxType]string{
	BoxMessage:      "message",
	BoxNymbox:       "nymbox",
	BoxInbox:        "inbox",
	BoxOutbox:       "outbox",
	BoxPaymentInbox: "paymentInbox",
	BoxRecordBox:    "recordBox",
	BoxExpiredBox:   "expiredBox",
}

// String returns the canonical name of the box type.
func (t BoxType) String() string {
	if s, ok := boxTypeNames[t]; ok {
		return s
	}
	return "invalid"
}

// ParseBoxType maps a canonical name back to its BoxType. Unknown names map
// to BoxInvalid.
func ParseBoxType(s string) BoxType {
	for t, name := range boxTypeNames {
		if name == s {
			return t
		}
	}
	return BoxInvalid
}

// RecordTag returns the element name of an abbreviated record for the box
// type. Message boxes carry no abbreviated records and return "".
func (t BoxType) RecordTag() string {
	if t == BoxMessage || t == BoxInvalid {
		return ""
	}
	return t.String() + "Record"
}

// StoresAbbreviated reports whether the box keeps its records abbreviated
// inline with the full content stored as separate receipts.
func (t BoxType) StoresAbbreviated() bool {
	return t != BoxMessage && t != BoxInvalid
}

// KeyedByOwner reports whether the container of the box must be its owner.
func (t BoxType) KeyedByOwner() bool {
	switch t {
	case BoxNymbox, BoxPaymentInbox, BoxExpiredBox:
		return true
	}
	return false
}

// KeyedByAccount reports whether the container of the box is an account.
func (t BoxType) KeyedByAccount() bool {
	return t == BoxInbox || t == BoxOutbox
}

// MaxIDLength is the longest server, owner or container id a key accepts.
const MaxIDLength = 1 << 16

// Key identifies one box.
type Key struct {
	ServerID    string
	OwnerID     string
	ContainerID string
	Type        BoxType
}

// String returns a human readable form of the key.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.ServerID, k.OwnerID,
		k.ContainerID, k.Type)
}

// Validate checks the key carries every identifier and a valid type.
func (k Key) Validate() error {
	switch {
	case k.Type == BoxInvalid:
		return fmt.Errorf("%w: invalid box type", ErrInvalidKey)
	case k.ServerID == "":
		return fmt.Errorf("%w: empty server id", ErrInvalidKey)
	case k.OwnerID == "":
		return fmt.Errorf("%w: empty owner id", ErrInvalidKey)
	case k.ContainerID == "":
		return fmt.Errorf("%w: empty container id", ErrInvalidKey)
	case len(k.ServerID) > MaxIDLength || len(k.OwnerID) > MaxIDLength ||
		len(k.ContainerID) > MaxIDLength:

		return fmt.Errorf("%w: id longer than %d bytes", ErrInvalidKey,
			MaxIDLength)
	}
	return nil
}

// ReceiptKey identifies one box receipt.
type ReceiptKey struct {
	Key
	Number int64
}

// String returns a human readable form of the receipt key.
func (k ReceiptKey) String() string {
	return k.Key.String() + "/" + strconv.FormatInt(k.Number, 10)
}

// ReceiptStore persists the full bytes of box records. Implementations must
// make each SaveReceipt atomic with respect to concurrent LoadReceipt calls
// for the same key.
type ReceiptStore interface {
	// ReceiptExists reports whether a receipt is stored under key.
	ReceiptExists(ctx context.Context, key ReceiptKey) (bool, error)

	// LoadReceipt returns the receipt stored under key, or ErrNotFound.
	LoadReceipt(ctx context.Context, key ReceiptKey) ([]byte, error)

	// SaveReceipt stores b under key, replacing any previous value.
	SaveReceipt(ctx context.Context, key ReceiptKey, b []byte) error

	// DeleteReceipt removes the receipt stored under key. Deleting a
	// missing receipt is not an error.
	DeleteReceipt(ctx context.Context, key ReceiptKey) error
}

// BlobStore persists serialized boxes. Blobs are keyed by server, container
// and box type; the owner is not part of the key.
type BlobStore interface {
	// LoadBox returns the blob stored for key, or ErrNotFound.
	LoadBox(ctx context.Context, key Key) ([]byte, error)

	// SaveBox stores b for key, replacing any previous blob.
	SaveBox(ctx context.Context, key Key, b []byte) error
}

// AccountSummary is the part of an account the box engine needs.
type AccountSummary struct {
	AccountID string
	ServerID  string
	OwnerID   string
	Balance   txdata.Amount
}

// AccountLookup resolves accounts by identifier.
type AccountLookup interface {
	// LookupAccount returns the account with the given id on serverID,
	// or None when no such account exists.
	LookupAccount(ctx context.Context, accountID,
		serverID string) (fn.Option[AccountSummary], error)
}

// Store is implemented by backends serving every store interface.
type Store interface {
	ReceiptStore
	BlobStore
	AccountLookup

	// PutAccount records an account summary.
	PutAccount(ctx context.Context, acct AccountSummary) error

	// Close releases the backend.
	Close() error
}
