// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package otbox

import (
	"fmt"

	"github.com/btcsuite/otledger/hashsign"
	"github.com/btcsuite/otledger/txdata"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Format versions of the box document.
const (
	ledgerVersion       = "2.0"
	legacyLedgerVersion = "1.0"
)

// Keys of the box document body.
const (
	keyLedger            = "accountLedger"
	keyType              = "type"
	keyVersion           = "version"
	keyServerID          = "notaryID"
	keyOwnerID           = "nymID"
	keyAccountID         = "accountID"
	keyNumPartialRecords = "numPartialRecords"
	keyTransactions      = "transaction"
)

// transactionBody is the wire shape of a full record.
type transactionBody struct {
	ServerID               string         `json:"notaryID"`
	OwnerID                string         `json:"nymID"`
	AccountID              string         `json:"accountID"`
	Number                 int64          `json:"transactionNum,string"`
	ReferenceNumber        int64          `json:"inReferenceTo,string"`
	Type                   txdata.Type    `json:"type"`
	NumberOfOrigin         int64          `json:"numberOfOrigin,string"`
	DateSigned             int64          `json:"dateSigned,string"`
	DisplayReferenceNumber int64          `json:"displayReferenceNum,string"`
	Adjustment             txdata.Amount  `json:"adjustment,string"`
	DisplayValue           txdata.Amount  `json:"displayValue,string"`
	ClosingNumber          int64          `json:"closingNum,string"`
	RequestNumber          int64          `json:"requestNum,string"`
	ReplySuccess           bool           `json:"replyTransSuccess"`
	NumList                string         `json:"numlist,omitempty"`
	Items                  []*txdata.Item `json:"items,omitempty"`
	ReferencePayload       []byte         `json:"referencePayload,omitempty"`
	Note                   string         `json:"note,omitempty"`
}

// transactionDocument wraps a transactionBody.
type transactionDocument struct {
	Transaction *transactionBody `json:"transaction"`
}

// abbreviatedElement is the wire shape of an abbreviated record.
type abbreviatedElement struct {
	Number                 int64         `json:"transactionNum,string"`
	ReferenceNumber        int64         `json:"inReferenceTo,string"`
	Type                   txdata.Type   `json:"type"`
	NumberOfOrigin         int64         `json:"numberOfOrigin,string"`
	DateSigned             int64         `json:"dateSigned,string"`
	DisplayReferenceNumber int64         `json:"displayReferenceNum,string"`
	ReceiptHash            string        `json:"receiptHash"`
	Adjustment             txdata.Amount `json:"adjustment,string"`
	DisplayValue           txdata.Amount `json:"displayValue,string"`
	ClosingNumber          int64         `json:"closingNum,string"`
	RequestNumber          int64         `json:"requestNum,string"`
	ReplySuccess           bool          `json:"replyTransSuccess"`
	NumList                string        `json:"numlist,omitempty"`
}

// encodeNumList encodes an optional number list; None is the empty string.
func encodeNumList(numbers fn.Option[[]int64]) string {
	return txdata.FormatNumList(numbers.UnwrapOr(nil))
}

// decodeNumList reverses encodeNumList.
func decodeNumList(s string) (fn.Option[[]int64], error) {
	list, err := txdata.ParseNumList(s)
	if err != nil || len(list) == 0 {
		return fn.None[[]int64](), err
	}
	return fn.Some(list), nil
}

// encodeTransaction returns the canonical unsigned bytes of a full record.
func encodeTransaction(h *Header, f *Full) ([]byte, error) {
	return txdata.Canonical(transactionDocument{
		Transaction: &transactionBody{
			ServerID:               h.ServerID,
			OwnerID:                h.OwnerID,
			AccountID:              h.AccountID,
			Number:                 h.Number,
			ReferenceNumber:        h.ReferenceNumber,
			Type:                   h.Type,
			NumberOfOrigin:         h.NumberOfOrigin,
			DateSigned:             txdata.UnixOrZero(h.DateSigned),
			DisplayReferenceNumber: f.DisplayReferenceNumber,
			Adjustment:             f.AdjustmentAmount,
			DisplayValue:           f.DisplayAmount,
			ClosingNumber:          f.ClosingNumber,
			RequestNumber:          f.RequestNumber,
			ReplySuccess:           f.ReplySuccess,
			NumList:                encodeNumList(f.Numbers),
			Items:                  f.Items,
			ReferencePayload:       f.InReferenceTo,
			Note:                   f.Note,
		},
	})
}

// decodeTransaction parses canonical full record bytes. Bytes that are not
// in canonical form are rejected so the content hash always covers exactly
// what was decoded.
func decodeTransaction(b []byte) (*Header, *Full, error) {
	var doc transactionDocument
	if err := txdata.DecodeStrict(b, &doc); err != nil {
		return nil, nil, err
	}
	if doc.Transaction == nil {
		return nil, nil, fmt.Errorf("missing transaction element")
	}
	t := doc.Transaction

	numbers, err := decodeNumList(t.NumList)
	if err != nil {
		return nil, nil, err
	}

	h := &Header{
		ServerID:        t.ServerID,
		OwnerID:         t.OwnerID,
		AccountID:       t.AccountID,
		Number:          t.Number,
		ReferenceNumber: t.ReferenceNumber,
		Type:            t.Type,
		NumberOfOrigin:  t.NumberOfOrigin,
		DateSigned:      txdata.TimeFromUnix(t.DateSigned),
	}
	f := &Full{
		Summary: Summary{
			DisplayReferenceNumber: t.DisplayReferenceNumber,
			AdjustmentAmount:       t.Adjustment,
			DisplayAmount:          t.DisplayValue,
			ClosingNumber:          t.ClosingNumber,
			RequestNumber:          t.RequestNumber,
			ReplySuccess:           t.ReplySuccess,
		},
		Numbers:       numbers,
		Items:         t.Items,
		InReferenceTo: t.ReferencePayload,
		Note:          t.Note,
	}

	canonical, err := encodeTransaction(h, f)
	if err != nil {
		return nil, nil, err
	}
	if string(canonical) != string(b) {
		return nil, nil, fmt.Errorf("record is not in canonical form")
	}

	return h, f, nil
}

// newAbbreviatedElement returns the wire shape of an abbreviated record.
// The number list is only written for boxes that carry it.
func newAbbreviatedElement(h *Header, a *Abbreviated,
	withNumbers bool) abbreviatedElement {

	e := abbreviatedElement{
		Number:                 h.Number,
		ReferenceNumber:        h.ReferenceNumber,
		Type:                   h.Type,
		NumberOfOrigin:         h.NumberOfOrigin,
		DateSigned:             txdata.UnixOrZero(h.DateSigned),
		DisplayReferenceNumber: a.DisplayReferenceNumber,
		ReceiptHash:            a.ContentHash.String(),
		Adjustment:             a.AdjustmentAmount,
		DisplayValue:           a.DisplayAmount,
		ClosingNumber:          a.ClosingNumber,
		RequestNumber:          a.RequestNumber,
		ReplySuccess:           a.ReplySuccess,
	}
	if withNumbers {
		e.NumList = encodeNumList(a.Numbers)
	}

	return e
}

// header returns the header of an abbreviated element held by the box
// identified by the given ids.
func (e *abbreviatedElement) header(serverID, ownerID,
	accountID string) Header {

	return Header{
		ServerID:        serverID,
		OwnerID:         ownerID,
		AccountID:       accountID,
		Number:          e.Number,
		ReferenceNumber: e.ReferenceNumber,
		Type:            e.Type,
		NumberOfOrigin:  e.NumberOfOrigin,
		DateSigned:      txdata.TimeFromUnix(e.DateSigned),
	}
}

// abbreviated returns the abbreviated fields of the element.
func (e *abbreviatedElement) abbreviated() (Abbreviated, error) {
	hash, err := hashsign.ParseDigest(e.ReceiptHash)
	if err != nil {
		return Abbreviated{}, err
	}

	numbers, err := decodeNumList(e.NumList)
	if err != nil {
		return Abbreviated{}, err
	}

	return Abbreviated{
		Summary: Summary{
			DisplayReferenceNumber: e.DisplayReferenceNumber,
			AdjustmentAmount:       e.Adjustment,
			DisplayAmount:          e.DisplayValue,
			ClosingNumber:          e.ClosingNumber,
			RequestNumber:          e.RequestNumber,
			ReplySuccess:           e.ReplySuccess,
		},
		ContentHash: hash,
		Numbers:     numbers,
	}, nil
}
