// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package otbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/otledger/boxstore"
)

// Materialize replaces the abbreviated record number with its full record
// loaded from the receipt store. The receipt must belong to this box, match
// the abbreviated header and hash to the abbreviated content hash. On any
// failure the abbreviated record is left in place.
func (b *Box) Materialize(ctx context.Context, number int64) error {
	r, ok := b.records[number]
	switch {
	case !ok:
		str := fmt.Sprintf("record %d not in %v", number, b.key)
		return boxError(ErrRecordNotFound, str, nil)

	case !r.IsAbbreviated():
		str := fmt.Sprintf("record %d of %v is already full", number,
			b.key)
		return boxError(ErrNotAbbreviated, str, nil)
	}

	key := b.receiptKey(number)
	raw, err := b.cfg.Receipts.LoadReceipt(ctx, key)
	switch {
	case errors.Is(err, boxstore.ErrNotFound):
		str := fmt.Sprintf("no box receipt for record %d", number)
		return boxError(ErrReceiptMissing, str, err)

	case err != nil:
		str := fmt.Sprintf("load box receipt %v", key)
		return boxError(ErrStore, str, err)
	}

	full, err := ParseFullRecord(raw, b.cfg.Hasher)
	if err != nil {
		return err
	}
	if err := b.verifyRecordIdentity(full); err != nil {
		return err
	}
	if full.Number != r.Number || full.Type != r.Type ||
		full.ReferenceNumber != r.ReferenceNumber {

		str := fmt.Sprintf("box receipt %v holds record %d of kind %s "+
			"referencing %d, abbreviated record is %d of kind %s "+
			"referencing %d", key, full.Number, full.Type,
			full.ReferenceNumber, r.Number, r.Type,
			r.ReferenceNumber)
		return boxError(ErrIdentityMismatch, str, nil)
	}

	digest := b.cfg.Hasher.Digest(full.canonical)
	if digest != r.abbrev.ContentHash {
		str := fmt.Sprintf("box receipt %v hashes to %v, abbreviated "+
			"record expects %v", key, digest, r.abbrev.ContentHash)
		return boxError(ErrIntegrity, str, nil)
	}

	r.box = nil
	full.box = b
	b.records[number] = full

	log.Tracef("Materialized record %d of %v", number, b.key)

	return nil
}

// MaterializeAll materializes every abbreviated record in ascending number
// order. With collectFailures unset it stops at the first failure; otherwise
// it attempts every record. Either way the failures are reported as a
// *BulkMaterializeError.
func (b *Box) MaterializeAll(ctx context.Context,
	collectFailures bool) error {

	var bulkErr *BulkMaterializeError
	for _, n := range b.numbers() {
		if !b.records[n].IsAbbreviated() {
			continue
		}

		err := b.Materialize(ctx, n)
		if err == nil {
			continue
		}

		log.Warnf("Unable to materialize record %d of %v: %v", n,
			b.key, err)

		if bulkErr == nil {
			bulkErr = &BulkMaterializeError{
				Causes: make(map[int64]error),
			}
		}
		bulkErr.Failed = append(bulkErr.Failed, n)
		bulkErr.Causes[n] = err

		if !collectFailures {
			break
		}
	}

	if bulkErr != nil {
		return bulkErr
	}
	return nil
}

// DeleteReceipt removes the box receipt of record number from the receipt
// store. The record itself, if still held, is not touched.
func (b *Box) DeleteReceipt(ctx context.Context, number int64) error {
	if !b.key.Type.StoresAbbreviated() {
		return b.wrongType("DeleteReceipt", "a receipt box")
	}

	key := b.receiptKey(number)
	if err := b.cfg.Receipts.DeleteReceipt(ctx, key); err != nil {
		str := fmt.Sprintf("delete box receipt %v", key)
		return boxError(ErrStore, str, err)
	}

	return nil
}
