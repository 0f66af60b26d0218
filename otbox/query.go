// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package otbox

import (
	"fmt"

	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/txdata"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ChequeMatch is a cheque receipt found by FindChequeReceipt together with
// the cheque decoded from it.
type ChequeMatch struct {
	Record *Record
	Cheque *txdata.Cheque
}

// find returns the first record, in ascending number order, accepted by
// match.
func (b *Box) find(match func(r *Record) bool) fn.Option[*Record] {
	for _, n := range b.numbers() {
		if r := b.records[n]; match(r) {
			return fn.Some(r)
		}
	}
	return fn.None[*Record]()
}

// FindByType returns the lowest numbered record of kind t.
func (b *Box) FindByType(t txdata.Type) fn.Option[*Record] {
	return b.find(func(r *Record) bool {
		return r.Type == t
	})
}

// CountReferencing returns the number of records whose reference number is
// ref.
func (b *Box) CountReferencing(ref int64) int {
	count := 0
	for _, r := range b.records {
		if r.ReferenceNumber == ref {
			count++
		}
	}
	return count
}

// FindReplyNotice returns the reply notice answering request number
// requestNumber. It applies to nymboxes only.
func (b *Box) FindReplyNotice(requestNumber int64) (fn.Option[*Record],
	error) {

	if b.key.Type != boxstore.BoxNymbox {
		return fn.None[*Record](), b.wrongType("FindReplyNotice",
			"a nymbox")
	}

	return b.find(func(r *Record) bool {
		return r.Type == txdata.ReplyNotice &&
			r.Summary().RequestNumber == requestNumber
	}), nil
}

// FindFinalReceipt returns the final receipt whose reference number is ref.
func (b *Box) FindFinalReceipt(ref int64) fn.Option[*Record] {
	return b.find(func(r *Record) bool {
		return r.Type == txdata.FinalReceipt && r.ReferenceNumber == ref
	})
}

// findFull walks the full records of kind t in ascending order until match
// reports a hit. Abbreviated records of kind t cannot be inspected; if no full
// record matches and one of them was skipped, ErrNotMaterialized is returned
// rather than a false miss.
func (b *Box) findFull(t txdata.Type,
	match func(r *Record) (bool, error)) (fn.Option[*Record], error) {

	var skipped []int64
	for _, n := range b.numbers() {
		r := b.records[n]
		if r.Type != t {
			continue
		}
		if r.IsAbbreviated() {
			skipped = append(skipped, n)
			continue
		}

		ok, err := match(r)
		if err != nil {
			return fn.None[*Record](), err
		}
		if ok {
			return fn.Some(r), nil
		}
	}

	if len(skipped) > 0 {
		str := fmt.Sprintf("%s records %v of %v are not materialized",
			t, skipped, b.key)
		return fn.None[*Record](), boxError(ErrNotMaterialized, str,
			nil)
	}

	return fn.None[*Record](), nil
}

// FindTransferReceipt returns the transfer receipt whose accept item
// originates from transaction numberOfOrigin. The reference number of a
// transfer receipt points at the accept item and is not consulted.
func (b *Box) FindTransferReceipt(numberOfOrigin int64) (fn.Option[*Record],
	error) {

	return b.findFull(txdata.TransferReceipt, func(r *Record) (bool,
		error) {

		it, err := r.InReferenceToItem()
		if err != nil {
			return false, err
		}
		return it.NumberOfOrigin == numberOfOrigin, nil
	})
}

// FindChequeReceipt returns the cheque receipt for the cheque with
// transaction number chequeNumber along with the decoded cheque. Receipts
// that do not reference a cheque deposit are logged and skipped.
func (b *Box) FindChequeReceipt(chequeNumber int64) (fn.Option[ChequeMatch],
	error) {

	var cheque *txdata.Cheque
	res, err := b.findFull(txdata.ChequeReceipt, func(r *Record) (bool,
		error) {

		c, err := depositedCheque(r)
		if err != nil {
			log.Warnf("Skipping malformed cheque receipt %d of %v: %v",
				r.Number, b.key, err)
			return false, nil
		}
		if c.Number != chequeNumber {
			return false, nil
		}

		cheque = c
		return true, nil
	})
	if err != nil {
		return fn.None[ChequeMatch](), err
	}

	return fn.MapOption(func(r *Record) ChequeMatch {
		return ChequeMatch{Record: r, Cheque: cheque}
	})(res), nil
}

// depositedCheque decodes the cheque attached to the deposit item behind the
// cheque receipt r.
func depositedCheque(r *Record) (*txdata.Cheque, error) {
	it, err := r.InReferenceToItem()
	if err != nil {
		return nil, err
	}
	if it.Type != txdata.ItemDepositCheque {
		str := fmt.Sprintf("cheque receipt %d references a %s item",
			r.Number, it.Type)
		return nil, boxError(ErrStructure, str, nil)
	}

	c, err := txdata.DecodeCheque(it.Attachment)
	if err != nil {
		str := fmt.Sprintf("cheque receipt %d attachment", r.Number)
		return nil, boxError(ErrStructure, str, err)
	}

	return c, nil
}
