// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package statement

import (
	"github.com/btcsuite/otledger/otbox"
	"github.com/btcsuite/otledger/txdata"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ReportLine is one record of the inbox or outbox as listed in a balance
// statement.
type ReportLine struct {
	Number          int64         `json:"transactionNum,string"`
	ReferenceNumber int64         `json:"inReferenceTo,string"`
	NumberOfOrigin  int64         `json:"numberOfOrigin,string"`
	Type            txdata.Type   `json:"type"`
	Amount          txdata.Amount `json:"amount,string"`
}

// ReportLiner decides which records of the inbox and outbox appear in a
// statement and how.
type ReportLiner interface {
	// InboxLine returns the line reporting inbox record r, or None when
	// r is not reported.
	InboxLine(r *otbox.Record) fn.Option[ReportLine]

	// OutboxLine returns the line reporting outbox record r, or None
	// when r is not reported.
	OutboxLine(r *otbox.Record) fn.Option[ReportLine]
}

// DefaultReportLiner reports every record that moves the balance, except
// those already covered by a prior balance agreement.
type DefaultReportLiner struct {
	// Covered holds the numbers of records already covered.
	Covered fn.Set[int64]
}

// A compile time check to ensure DefaultReportLiner satisfies the
// ReportLiner interface.
var _ ReportLiner = DefaultReportLiner{}

func (l DefaultReportLiner) line(r *otbox.Record) fn.Option[ReportLine] {
	if l.Covered != nil && l.Covered.Contains(r.Number) {
		return fn.None[ReportLine]()
	}
	if !r.Type.MovesBalance() {
		return fn.None[ReportLine]()
	}

	return fn.Some(ReportLine{
		Number:          r.Number,
		ReferenceNumber: r.ReferenceNumber,
		NumberOfOrigin:  r.NumberOfOrigin,
		Type:            r.Type,
		Amount:          r.ReceiptAmount(),
	})
}

// InboxLine implements ReportLiner.
func (l DefaultReportLiner) InboxLine(r *otbox.Record) fn.Option[ReportLine] {
	return l.line(r)
}

// OutboxLine implements ReportLiner.
func (l DefaultReportLiner) OutboxLine(r *otbox.Record) fn.Option[ReportLine] {
	return l.line(r)
}
