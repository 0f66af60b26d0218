// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txdata

import (
	"fmt"
	"time"
)

// ItemType is the kind of a transaction item.
type ItemType string

// Item kinds referenced by box receipts.
const (
	ItemTransfer       ItemType = "transfer"
	ItemAcceptPending  ItemType = "acceptPending"
	ItemRejectPending  ItemType = "rejectPending"
	ItemDepositCheque  ItemType = "depositCheque"
	ItemWithdrawal     ItemType = "withdrawal"
	ItemAcceptReceipt  ItemType = "acceptItemReceipt"
	ItemBalanceStmt    ItemType = "balanceStatement"
	ItemAcceptCronItem ItemType = "acceptCronReceipt"
)

// Item is one request or response line of a transaction. Receipts carry the
// item that caused them (for instance the acceptPending item behind a
// transferReceipt, or the depositCheque item behind a chequeReceipt) as their
// in-reference-to payload.
type Item struct {
	Type            ItemType `json:"type"`
	ServerID        string   `json:"notaryID"`
	NymID           string   `json:"nymID"`
	AccountID       string   `json:"accountID"`
	Number          int64    `json:"transactionNum,string"`
	ReferenceNumber int64    `json:"inReferenceTo,string"`
	NumberOfOrigin  int64    `json:"numberOfOrigin,string"`
	Amount          Amount   `json:"amount,string"`
	Attachment      []byte   `json:"attachment,omitempty"`
	Note            string   `json:"note,omitempty"`
}

// itemDocument is the canonical document wrapping an Item.
type itemDocument struct {
	Item *Item `json:"item"`
}

// EncodeItem returns the canonical bytes of it.
func EncodeItem(it *Item) ([]byte, error) {
	return Canonical(itemDocument{Item: it})
}

// DecodeItem parses bytes produced by EncodeItem.
func DecodeItem(b []byte) (*Item, error) {
	var doc itemDocument
	if err := DecodeStrict(b, &doc); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	if doc.Item == nil {
		return nil, fmt.Errorf("decode item: missing item element")
	}

	return doc.Item, nil
}

// Cheque is a signed promise to pay drawn on the sender's account. Its
// transaction number is the number the sender burns when the cheque is
// deposited.
type Cheque struct {
	Number                 int64
	Amount                 Amount
	ServerID               string
	InstrumentDefinitionID string
	SenderAccountID        string
	SenderNymID            string
	RecipientNymID         string
	Memo                   string
	ValidFrom              time.Time
	ValidTo                time.Time
}

// chequeDocument is the wire shape of a Cheque.
type chequeDocument struct {
	Cheque struct {
		Number                 int64  `json:"transactionNum,string"`
		Amount                 Amount `json:"amount,string"`
		ServerID               string `json:"notaryID"`
		InstrumentDefinitionID string `json:"instrumentDefinitionID"`
		SenderAccountID        string `json:"senderAcctID"`
		SenderNymID            string `json:"senderNymID"`
		RecipientNymID         string `json:"recipientNymID,omitempty"`
		Memo                   string `json:"memo,omitempty"`
		ValidFrom              int64  `json:"validFrom,string"`
		ValidTo                int64  `json:"validTo,string"`
	} `json:"cheque"`
}

// EncodeCheque returns the canonical bytes of c.
func EncodeCheque(c *Cheque) ([]byte, error) {
	var doc chequeDocument
	doc.Cheque.Number = c.Number
	doc.Cheque.Amount = c.Amount
	doc.Cheque.ServerID = c.ServerID
	doc.Cheque.InstrumentDefinitionID = c.InstrumentDefinitionID
	doc.Cheque.SenderAccountID = c.SenderAccountID
	doc.Cheque.SenderNymID = c.SenderNymID
	doc.Cheque.RecipientNymID = c.RecipientNymID
	doc.Cheque.Memo = c.Memo
	doc.Cheque.ValidFrom = unixOrZero(c.ValidFrom)
	doc.Cheque.ValidTo = unixOrZero(c.ValidTo)

	return Canonical(doc)
}

// DecodeCheque parses bytes produced by EncodeCheque.
func DecodeCheque(b []byte) (*Cheque, error) {
	var doc chequeDocument
	if err := DecodeStrict(b, &doc); err != nil {
		return nil, fmt.Errorf("decode cheque: %w", err)
	}

	return &Cheque{
		Number:                 doc.Cheque.Number,
		Amount:                 doc.Cheque.Amount,
		ServerID:               doc.Cheque.ServerID,
		InstrumentDefinitionID: doc.Cheque.InstrumentDefinitionID,
		SenderAccountID:        doc.Cheque.SenderAccountID,
		SenderNymID:            doc.Cheque.SenderNymID,
		RecipientNymID:         doc.Cheque.RecipientNymID,
		Memo:                   doc.Cheque.Memo,
		ValidFrom:              TimeFromUnix(doc.Cheque.ValidFrom),
		ValidTo:                TimeFromUnix(doc.Cheque.ValidTo),
	}, nil
}

// UnixOrZero returns t as unix seconds, mapping the zero time to 0.
func UnixOrZero(t time.Time) int64 {
	return unixOrZero(t)
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// TimeFromUnix is the inverse of UnixOrZero.
func TimeFromUnix(s int64) time.Time {
	if s == 0 {
		return time.Time{}
	}
	return time.Unix(s, 0).UTC()
}
