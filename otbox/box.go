// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package otbox implements the transaction box: a typed container of
// records belonging to one account or identity, its canonical serialization,
// content hash and the materialization of abbreviated records from their box
// receipts.
//
// A Box is not safe for concurrent mutation. Callers serialize Insert,
// Remove, Materialize and Save on one box, for instance with a Locker keyed by
// the box key. Read only queries may run concurrently with each other.
package otbox

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/hashsign"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Config holds the collaborators of a box.
type Config struct {
	// Receipts stores the full records of abbreviated boxes. It is
	// required for every box type except message boxes.
	Receipts boxstore.ReceiptStore

	// Hasher computes content hashes and checks and makes signatures.
	Hasher hashsign.Service

	// SigningKey, when set, signs saved boxes.
	SigningKey *btcec.PrivateKey
}

// validate checks the config serves a box of type t.
func (c *Config) validate(t boxstore.BoxType) error {
	if c.Hasher == nil {
		return errors.New("no hash service configured")
	}
	if c.Receipts == nil && t.StoresAbbreviated() {
		return fmt.Errorf("no receipt store configured for %v box", t)
	}
	return nil
}

// Box is a typed collection of records identified by its key.
type Box struct {
	cfg Config

	// key holds the purported identifiers of the box: those it was
	// created with or found in its serialized form.
	key boxstore.Key

	records map[int64]*Record

	legacyDataLoaded bool
}

// New returns an empty box. Nymboxes, payment inboxes and expired boxes are
// keyed by their owner, so their container id must equal the owner id.
func New(cfg Config, key boxstore.Key) (*Box, error) {
	if err := key.Validate(); err != nil {
		return nil, boxError(ErrStructure, "new box", err)
	}
	if err := cfg.validate(key.Type); err != nil {
		return nil, boxError(ErrStructure, "new box", err)
	}
	if key.Type.KeyedByOwner() && key.ContainerID != key.OwnerID {
		str := fmt.Sprintf("%v box container %s differs from owner %s",
			key.Type, key.ContainerID, key.OwnerID)
		return nil, boxError(ErrIdentityMismatch, str, nil)
	}

	return &Box{
		cfg:     cfg,
		key:     key,
		records: make(map[int64]*Record),
	}, nil
}

// Key returns the purported key of the box.
func (b *Box) Key() boxstore.Key {
	return b.key
}

// Type returns the box type.
func (b *Box) Type() boxstore.BoxType {
	return b.key.Type
}

// LegacyDataLoaded reports whether parsing found full records inline in a
// box that stores them as receipts.
func (b *Box) LegacyDataLoaded() bool {
	return b.legacyDataLoaded
}

// Len returns the number of records in the box.
func (b *Box) Len() int {
	return len(b.records)
}

// numbers returns the record numbers in ascending order.
func (b *Box) numbers() []int64 {
	return slices.Sorted(maps.Keys(b.records))
}

// Records returns the records in ascending number order.
func (b *Box) Records() []*Record {
	numbers := b.numbers()
	records := make([]*Record, len(numbers))
	for i, n := range numbers {
		records[i] = b.records[n]
	}
	return records
}

// Insert adds r to the box. A record with the same number must not already
// be present; Insert never replaces. Full records must belong to the box.
func (b *Box) Insert(r *Record) error {
	if r == nil {
		return boxError(ErrStructure, "insert nil record", nil)
	}
	if _, ok := b.records[r.Number]; ok {
		str := fmt.Sprintf("record %d already in %v", r.Number, b.key)
		return boxError(ErrDuplicateNumber, str, nil)
	}
	if b.key.Type == boxstore.BoxMessage && r.IsAbbreviated() {
		str := fmt.Sprintf("message box %v holds full records only",
			b.key)
		return boxError(ErrStructure, str, nil)
	}
	if b.key.Type != boxstore.BoxNymbox && r.Numbers().IsSome() {
		str := fmt.Sprintf("record %d carries a number list outside "+
			"a nymbox", r.Number)
		return boxError(ErrStructure, str, nil)
	}
	if !r.IsAbbreviated() {
		if err := b.verifyRecordIdentity(r); err != nil {
			return err
		}
	}

	r.box = b
	b.records[r.Number] = r

	return nil
}

// Remove detaches and returns the record with the given number.
func (b *Box) Remove(number int64) (*Record, error) {
	r, ok := b.records[number]
	if !ok {
		str := fmt.Sprintf("record %d not in %v", number, b.key)
		return nil, boxError(ErrRecordNotFound, str, nil)
	}

	delete(b.records, number)
	r.box = nil

	return r, nil
}

// VerifyIdentity compares the purported identifiers of the box with the
// trusted key real.
func (b *Box) VerifyIdentity(real boxstore.Key) error {
	switch {
	case b.key.Type != real.Type:
		str := fmt.Sprintf("box type %v, expected %v", b.key.Type,
			real.Type)
		return boxError(ErrIdentityMismatch, str, nil)

	case b.key.ServerID != real.ServerID:
		str := fmt.Sprintf("box server %s, expected %s",
			b.key.ServerID, real.ServerID)
		return boxError(ErrIdentityMismatch, str, nil)

	case b.key.ContainerID != real.ContainerID:
		str := fmt.Sprintf("box container %s, expected %s",
			b.key.ContainerID, real.ContainerID)
		return boxError(ErrIdentityMismatch, str, nil)

	case b.key.OwnerID != real.OwnerID:
		str := fmt.Sprintf("box owner %s, expected %s", b.key.OwnerID,
			real.OwnerID)
		return boxError(ErrIdentityMismatch, str, nil)
	}

	return nil
}

// verifyRecordIdentity checks a full record belongs to the box.
func (b *Box) verifyRecordIdentity(r *Record) error {
	if r.ServerID != b.key.ServerID || r.AccountID != b.key.ContainerID ||
		r.OwnerID != b.key.OwnerID {

		str := fmt.Sprintf("record %d (%s/%s/%s) does not belong to "+
			"box %v", r.Number, r.ServerID, r.OwnerID, r.AccountID,
			b.key)
		return boxError(ErrIdentityMismatch, str, nil)
	}
	return nil
}

// receiptKey returns the receipt store key of record number.
func (b *Box) receiptKey(number int64) boxstore.ReceiptKey {
	return boxstore.ReceiptKey{Key: b.key, Number: number}
}

// wrongType logs and returns the error for an operation invoked on a box of
// the wrong type.
func (b *Box) wrongType(op, requires string) error {
	str := fmt.Sprintf("%s called on %v box %v, requires %s", op,
		b.key.Type, b.key, requires)
	log.Criticalf("Contract violation: %s", str)

	return boxError(ErrWrongBoxType, str, nil)
}

// FindByNumber returns the record with the given number.
func (b *Box) FindByNumber(number int64) fn.Option[*Record] {
	r, ok := b.records[number]
	if !ok {
		return fn.None[*Record]()
	}
	return fn.Some(r)
}

// IndexOf returns the position of record number in ascending number order.
func (b *Box) IndexOf(number int64) fn.Option[int] {
	if _, ok := b.records[number]; !ok {
		return fn.None[int]()
	}

	i, _ := slices.BinarySearch(b.numbers(), number)
	return fn.Some(i)
}

// RecordAt returns the record at position i in ascending number order.
func (b *Box) RecordAt(i int) fn.Option[*Record] {
	numbers := b.numbers()
	if i < 0 || i >= len(numbers) {
		return fn.None[*Record]()
	}
	return fn.Some(b.records[numbers[i]])
}
