// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txdata holds the payload types carried by box records: amounts,
// transaction kinds, items and cheques, along with the canonical encoding,
// ASCII armor and signed envelope shared by every serialized form.
package txdata

import "strconv"

// Amount is a signed quantity of an instrument definition, in its smallest
// unit.
type Amount int64

// String returns the amount as a decimal string.
func (a Amount) String() string {
	return strconv.FormatInt(int64(a), 10)
}

// Type is the kind of a transaction record. The set is open: kinds not named
// below are carried through parsing and serialization unchanged.
type Type string

// Transaction kinds found in boxes.
const (
	Blank               Type = "blank"
	Message             Type = "message"
	Notice              Type = "notice"
	ReplyNotice         Type = "replyNotice"
	SuccessNotice       Type = "successNotice"
	InstrumentNotice    Type = "instrumentNotice"
	InstrumentRejection Type = "instrumentRejection"
	Pending             Type = "pending"
	TransferReceipt     Type = "transferReceipt"
	ChequeReceipt       Type = "chequeReceipt"
	VoucherReceipt      Type = "voucherReceipt"
	MarketReceipt       Type = "marketReceipt"
	PaymentReceipt      Type = "paymentReceipt"
	FinalReceipt        Type = "finalReceipt"
	BasketReceipt       Type = "basketReceipt"
)

// Transaction kinds that cause a balance statement.
const (
	ProcessNymbox  Type = "processNymbox"
	ProcessInbox   Type = "processInbox"
	Transfer       Type = "transfer"
	Deposit        Type = "deposit"
	Withdrawal     Type = "withdrawal"
	MarketOffer    Type = "marketOffer"
	PaymentPlan    Type = "paymentPlan"
	SmartContract  Type = "smartContract"
	CancelCronItem Type = "cancelCronItem"
	ExchangeBasket Type = "exchangeBasket"
	PayDividend    Type = "payDividend"
)

// String returns the kind name.
func (t Type) String() string {
	return string(t)
}

// CarriesNumberList reports whether records of this kind carry the auxiliary
// transaction number list when abbreviated inside a nymbox.
func (t Type) CarriesNumberList() bool {
	return t == Blank || t == SuccessNotice
}

// MovesBalance reports whether a record of this kind, sitting in an inbox or
// outbox, changes the account balance once processed.
func (t Type) MovesBalance() bool {
	switch t {
	case Pending, TransferReceipt, ChequeReceipt, VoucherReceipt,
		MarketReceipt, PaymentReceipt, FinalReceipt, BasketReceipt:

		return true
	}
	return false
}
