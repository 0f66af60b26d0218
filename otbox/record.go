// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package otbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/otledger/hashsign"
	"github.com/btcsuite/otledger/txdata"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Header holds the identity fields every record carries regardless of its
// representation.
type Header struct {
	ServerID  string
	OwnerID   string
	AccountID string

	// Number is unique within the box holding the record.
	Number int64

	// ReferenceNumber is the number of the transaction or item this record
	// answers. For transfer receipts it is the number of the accepting
	// item, not the original transfer; match those on NumberOfOrigin.
	ReferenceNumber int64

	Type txdata.Type

	// NumberOfOrigin is the transaction number that started the chain
	// this record belongs to.
	NumberOfOrigin int64

	DateSigned time.Time
}

// Summary holds the fields shared by the abbreviated projection and the
// full content of a record.
type Summary struct {
	DisplayReferenceNumber int64
	AdjustmentAmount       txdata.Amount
	DisplayAmount          txdata.Amount
	ClosingNumber          int64
	RequestNumber          int64
	ReplySuccess           bool
}

// Abbreviated is the compact representation of a record kept inline in a
// box.
type Abbreviated struct {
	Summary

	// ContentHash is the digest of the canonical unsigned bytes of the
	// full record.
	ContentHash hashsign.Digest

	// Numbers is the auxiliary transaction number list. It is only
	// present for kinds that carry one.
	Numbers fn.Option[[]int64]
}

// Full is the complete content of a record.
type Full struct {
	Summary

	// Numbers is the auxiliary transaction number list. It is only
	// present for kinds that carry one.
	Numbers fn.Option[[]int64]

	// Items are the request or response lines of the transaction.
	Items []*txdata.Item

	// InReferenceTo is the encoded item or instrument that caused the
	// record, for instance the accept item behind a transfer receipt.
	InReferenceTo []byte

	Note string
}

// Record is one transaction held by a box, either abbreviated or full.
type Record struct {
	Header

	abbrev *Abbreviated
	full   *Full

	// canonical is the canonical unsigned encoding of a full record and
	// receipt its sealed form as kept in the receipt store.
	canonical []byte
	receipt   []byte

	box *Box
}

// checkNumbers enforces that only kinds carrying a number list have one.
func checkNumbers(t txdata.Type, numbers fn.Option[[]int64]) error {
	if numbers.IsSome() && !t.CarriesNumberList() {
		return boxError(ErrStructure, fmt.Sprintf("records of kind %q "+
			"carry no number list", t), nil)
	}
	return nil
}

// normalizeNumbers maps an empty list to None.
func normalizeNumbers(numbers fn.Option[[]int64]) fn.Option[[]int64] {
	if len(numbers.UnwrapOr(nil)) == 0 {
		return fn.None[[]int64]()
	}
	return numbers
}

// normalizeTime truncates t to the whole seconds records are encoded with.
func normalizeTime(t time.Time) time.Time {
	return txdata.TimeFromUnix(txdata.UnixOrZero(t))
}

// NewAbbreviatedRecord returns an abbreviated record. An empty number list
// is treated as absent.
func NewAbbreviatedRecord(h Header, a Abbreviated) (*Record, error) {
	h.DateSigned = normalizeTime(h.DateSigned)
	a.Numbers = normalizeNumbers(a.Numbers)
	if err := checkNumbers(h.Type, a.Numbers); err != nil {
		return nil, err
	}

	return &Record{Header: h, abbrev: &a}, nil
}

// NewFullRecord returns a full record along with its canonical encoding and
// an unsigned receipt. An empty number list is treated as absent.
func NewFullRecord(h Header, f Full) (*Record, error) {
	h.DateSigned = normalizeTime(h.DateSigned)
	f.Numbers = normalizeNumbers(f.Numbers)
	if err := checkNumbers(h.Type, f.Numbers); err != nil {
		return nil, err
	}

	canonical, err := encodeTransaction(&h, &f)
	if err != nil {
		return nil, boxError(ErrStructure, "encode record", err)
	}

	receipt, err := txdata.Seal(txdata.KindSignedTransaction, canonical,
		nil, nil)
	if err != nil {
		return nil, boxError(ErrStructure, "seal record", err)
	}

	return &Record{
		Header:    h,
		full:      &f,
		canonical: canonical,
		receipt:   receipt,
	}, nil
}

// ParseFullRecord parses a sealed full record. When v is non-nil a signed
// receipt must carry a valid signature.
func ParseFullRecord(raw []byte, v hashsign.Verifier) (*Record, error) {
	env, err := txdata.Open(raw, txdata.KindSignedTransaction, v)
	switch {
	case errors.Is(err, txdata.ErrSignature):
		return nil, boxError(ErrSignature, "record receipt", err)
	case err != nil:
		return nil, boxError(ErrStructure, "open record receipt", err)
	}

	h, f, err := decodeTransaction(env.Content)
	if err != nil {
		return nil, boxError(ErrStructure, "decode record", err)
	}
	if err := checkNumbers(h.Type, f.Numbers); err != nil {
		return nil, err
	}

	return &Record{
		Header:    *h,
		full:      f,
		canonical: env.Content,
		receipt:   raw,
	}, nil
}

// Seal signs the receipt of a full record with key.
func (r *Record) Seal(signer hashsign.Signer, key *btcec.PrivateKey) error {
	if r.full == nil {
		return boxError(ErrNotMaterialized, fmt.Sprintf("record %d is "+
			"abbreviated", r.Number), nil)
	}

	receipt, err := txdata.Seal(txdata.KindSignedTransaction, r.canonical,
		signer, key)
	if err != nil {
		return boxError(ErrSignature, "seal record", err)
	}
	r.receipt = receipt

	return nil
}

// IsAbbreviated reports whether the record holds only its abbreviated
// projection.
func (r *Record) IsAbbreviated() bool {
	return r.full == nil
}

// Abbreviated returns the abbreviated projection of an abbreviated record.
// Full records return None; use Abbreviate to derive their projection.
func (r *Record) Abbreviated() fn.Option[Abbreviated] {
	if r.abbrev == nil {
		return fn.None[Abbreviated]()
	}
	return fn.Some(*r.abbrev)
}

// Full returns the full content of a full record.
func (r *Record) Full() fn.Option[Full] {
	if r.full == nil {
		return fn.None[Full]()
	}
	return fn.Some(*r.full)
}

// Summary returns the summary fields of the record in either
// representation.
func (r *Record) Summary() Summary {
	if r.full != nil {
		return r.full.Summary
	}
	return r.abbrev.Summary
}

// Numbers returns the auxiliary number list of the record.
func (r *Record) Numbers() fn.Option[[]int64] {
	if r.full != nil {
		return r.full.Numbers
	}
	return r.abbrev.Numbers
}

// ReceiptAmount returns the amount by which the record changes the balance
// of its account once processed.
func (r *Record) ReceiptAmount() txdata.Amount {
	return r.Summary().AdjustmentAmount
}

// CanonicalBytes returns the canonical unsigned encoding of a full record,
// or nil for an abbreviated one.
func (r *Record) CanonicalBytes() []byte {
	return r.canonical
}

// ReceiptBytes returns the sealed receipt of a full record, or nil for an
// abbreviated one.
func (r *Record) ReceiptBytes() []byte {
	return r.receipt
}

// Box returns the box holding the record, or nil when the record is not
// held by a box.
func (r *Record) Box() *Box {
	return r.box
}

// Abbreviate returns the abbreviated projection of the record. The content
// hash of a full record is the digest of its canonical unsigned bytes.
func (r *Record) Abbreviate(d hashsign.Digester) Abbreviated {
	if r.abbrev != nil {
		return *r.abbrev
	}

	return Abbreviated{
		Summary:     r.full.Summary,
		ContentHash: d.Digest(r.canonical),
		Numbers:     r.full.Numbers,
	}
}

// ContentHash returns the content hash of the record: the stored hash of an
// abbreviated record or the computed digest of a full one.
func (r *Record) ContentHash(d hashsign.Digester) hashsign.Digest {
	return r.Abbreviate(d).ContentHash
}

// InReferenceToItem decodes the item a full record was caused by.
func (r *Record) InReferenceToItem() (*txdata.Item, error) {
	if r.full == nil {
		return nil, boxError(ErrNotMaterialized, fmt.Sprintf("record "+
			"%d is abbreviated", r.Number), nil)
	}
	if len(r.full.InReferenceTo) == 0 {
		return nil, boxError(ErrStructure, fmt.Sprintf("record %d "+
			"has no reference payload", r.Number), nil)
	}

	it, err := txdata.DecodeItem(r.full.InReferenceTo)
	if err != nil {
		return nil, boxError(ErrStructure, fmt.Sprintf("record %d "+
			"reference payload", r.Number), err)
	}

	return it, nil
}
