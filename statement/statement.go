// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package statement builds balance statements: the signed claim an account
// owner attaches to a transaction stating the balance and the transaction
// numbers the owner will hold once the transaction is processed, together
// with the inbox and outbox it was computed against.
package statement

import (
	"errors"
	"fmt"
	"slices"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/hashsign"
	"github.com/btcsuite/otledger/otbox"
	"github.com/btcsuite/otledger/txdata"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// AccountSnapshot is the state of an account when a statement is made.
type AccountSnapshot struct {
	AccountID string
	ServerID  string
	OwnerID   string
	Balance   txdata.Amount
}

// SnapshotFromSummary returns the snapshot of a stored account.
func SnapshotFromSummary(s boxstore.AccountSummary) AccountSnapshot {
	return AccountSnapshot{
		AccountID: s.AccountID,
		ServerID:  s.ServerID,
		OwnerID:   s.OwnerID,
		Balance:   s.Balance,
	}
}

// NumberSnapshot is the set of transaction numbers the owner expects to hold
// on a server once the statement's transaction is processed.
type NumberSnapshot struct {
	ServerID  string
	Issued    []int64
	Available []int64
}

// numbersDocument is the wire shape of a NumberSnapshot.
type numbersDocument struct {
	Numbers struct {
		ServerID  string `json:"notaryID"`
		Issued    string `json:"issued"`
		Available string `json:"available"`
	} `json:"transactionNums"`
}

// Encode returns the canonical bytes of the snapshot.
func (s NumberSnapshot) Encode() ([]byte, error) {
	var doc numbersDocument
	doc.Numbers.ServerID = s.ServerID
	doc.Numbers.Issued = txdata.FormatNumList(s.Issued)
	doc.Numbers.Available = txdata.FormatNumList(s.Available)

	return txdata.Canonical(doc)
}

// DecodeNumberSnapshot parses bytes produced by NumberSnapshot.Encode.
func DecodeNumberSnapshot(b []byte) (NumberSnapshot, error) {
	var doc numbersDocument
	if err := txdata.DecodeStrict(b, &doc); err != nil {
		return NumberSnapshot{}, fmt.Errorf("decode numbers: %w", err)
	}

	issued, err := txdata.ParseNumList(doc.Numbers.Issued)
	if err != nil {
		return NumberSnapshot{}, err
	}
	available, err := txdata.ParseNumList(doc.Numbers.Available)
	if err != nil {
		return NumberSnapshot{}, err
	}

	return NumberSnapshot{
		ServerID:  doc.Numbers.ServerID,
		Issued:    issued,
		Available: available,
	}, nil
}

// BalanceStatement is the statement generated for one transaction.
type BalanceStatement struct {
	ServerID  string
	OwnerID   string
	AccountID string

	// CausingNumber and CausingType identify the transaction the
	// statement is attached to.
	CausingNumber int64
	CausingType   txdata.Type

	// Amount is the predicted balance after the transaction.
	Amount txdata.Amount

	// Numbers is the predicted number snapshot and Attachment its
	// encoding.
	Numbers    NumberSnapshot
	Attachment []byte

	// InboxHash and OutboxHash are the box hashes the statement was
	// computed against.
	InboxHash  hashsign.Digest
	OutboxHash hashsign.Digest

	InboxLines  []ReportLine
	OutboxLines []ReportLine
}

// statementDocument is the wire shape of a BalanceStatement.
type statementDocument struct {
	Statement struct {
		ServerID      string        `json:"notaryID"`
		OwnerID       string        `json:"nymID"`
		AccountID     string        `json:"accountID"`
		CausingNumber int64         `json:"transactionNum,string"`
		CausingType   txdata.Type   `json:"transactionType"`
		Amount        txdata.Amount `json:"amount,string"`
		Attachment    []byte        `json:"attachment"`
		InboxHash     string        `json:"inboxHash"`
		OutboxHash    string        `json:"outboxHash"`
		InboxLines    []ReportLine  `json:"inboxReport"`
		OutboxLines   []ReportLine  `json:"outboxReport"`
	} `json:"balanceStatement"`
}

// Canonical returns the canonical unsigned bytes of the statement.
func (s *BalanceStatement) Canonical() ([]byte, error) {
	var doc statementDocument
	d := &doc.Statement
	d.ServerID = s.ServerID
	d.OwnerID = s.OwnerID
	d.AccountID = s.AccountID
	d.CausingNumber = s.CausingNumber
	d.CausingType = s.CausingType
	d.Amount = s.Amount
	d.Attachment = s.Attachment
	d.InboxHash = s.InboxHash.String()
	d.OutboxHash = s.OutboxHash.String()
	d.InboxLines = nonNil(s.InboxLines)
	d.OutboxLines = nonNil(s.OutboxLines)

	b, err := txdata.Canonical(doc)
	if err != nil {
		return nil, stmtError(ErrEncode, "encode statement", err)
	}
	return b, nil
}

func nonNil(lines []ReportLine) []ReportLine {
	if lines == nil {
		return []ReportLine{}
	}
	return lines
}

// Seal returns the statement sealed in a signed envelope made by signer
// with key.
func (s *BalanceStatement) Seal(signer hashsign.Signer,
	key *btcec.PrivateKey) ([]byte, error) {

	content, err := s.Canonical()
	if err != nil {
		return nil, err
	}

	sealed, err := txdata.Seal(txdata.KindSignedStatement, content,
		signer, key)
	if err != nil {
		return nil, stmtError(ErrSignature, "sign statement", err)
	}
	return sealed, nil
}

// Item returns the balance statement item carried by the causing
// transaction.
func (s *BalanceStatement) Item() *txdata.Item {
	return &txdata.Item{
		Type:       txdata.ItemBalanceStmt,
		ServerID:   s.ServerID,
		NymID:      s.OwnerID,
		AccountID:  s.AccountID,
		Number:     s.CausingNumber,
		Amount:     s.Amount,
		Attachment: s.Attachment,
	}
}

// Open parses a sealed statement. When v is non-nil a signed statement must
// carry a valid signature.
func Open(raw []byte, v hashsign.Verifier) (*BalanceStatement, error) {
	env, err := txdata.Open(raw, txdata.KindSignedStatement, v)
	switch {
	case errors.Is(err, txdata.ErrSignature):
		return nil, stmtError(ErrSignature, "statement signature", err)
	case err != nil:
		return nil, stmtError(ErrEncode, "open statement", err)
	}

	var doc statementDocument
	if err := txdata.DecodeStrict(env.Content, &doc); err != nil {
		return nil, stmtError(ErrEncode, "decode statement", err)
	}
	d := &doc.Statement

	numbers, err := DecodeNumberSnapshot(d.Attachment)
	if err != nil {
		return nil, stmtError(ErrEncode, "statement numbers", err)
	}
	inboxHash, err := hashsign.ParseDigest(d.InboxHash)
	if err != nil {
		return nil, stmtError(ErrEncode, "statement inbox hash", err)
	}
	outboxHash, err := hashsign.ParseDigest(d.OutboxHash)
	if err != nil {
		return nil, stmtError(ErrEncode, "statement outbox hash", err)
	}

	return &BalanceStatement{
		ServerID:      d.ServerID,
		OwnerID:       d.OwnerID,
		AccountID:     d.AccountID,
		CausingNumber: d.CausingNumber,
		CausingType:   d.CausingType,
		Amount:        d.Amount,
		Numbers:       numbers,
		Attachment:    d.Attachment,
		InboxHash:     inboxHash,
		OutboxHash:    outboxHash,
		InboxLines:    d.InboxLines,
		OutboxLines:   d.OutboxLines,
	}, nil
}

// numberRule is what a causing transaction kind does to its own number in
// the predicted snapshot.
type numberRule uint8

const (
	ruleUnknown numberRule = iota
	ruleRemove
	ruleRetain
)

// ruleFor returns the number rule of kind t. Transactions that consume
// their number are removed from the snapshot. Those whose number stays open
// until a later statement closes it are retained.
func ruleFor(t txdata.Type) numberRule {
	switch t {
	case txdata.ProcessInbox, txdata.Withdrawal, txdata.Deposit,
		txdata.CancelCronItem, txdata.ExchangeBasket,
		txdata.PayDividend:

		return ruleRemove

	case txdata.Transfer, txdata.MarketOffer, txdata.PaymentPlan,
		txdata.SmartContract:

		return ruleRetain
	}
	return ruleUnknown
}

// Builder generates balance statements.
type Builder struct {
	// Hasher computes the box hashes of the inbox and outbox.
	Hasher hashsign.Service

	// Liner selects the report lines. DefaultReportLiner{} is used when
	// nil.
	Liner ReportLiner
}

// checkCollaborators validates that every collaborator belongs to the
// inbox.
func checkCollaborators(causing *otbox.Record, owner Owner,
	account AccountSnapshot, outbox, inbox *otbox.Box) error {

	switch {
	case inbox == nil || outbox == nil || causing == nil || owner == nil:
		return stmtError(ErrInvalidArgument, "statement needs a "+
			"causing record, owner, inbox and outbox", nil)

	case inbox.Type() != boxstore.BoxInbox:
		str := fmt.Sprintf("statement generated against %v box %v",
			inbox.Type(), inbox.Key())
		log.Criticalf("Contract violation: %s", str)
		return stmtError(ErrWrongBoxType, str, nil)

	case outbox.Type() != boxstore.BoxOutbox:
		str := fmt.Sprintf("statement outbox is a %v box %v",
			outbox.Type(), outbox.Key())
		log.Criticalf("Contract violation: %s", str)
		return stmtError(ErrWrongBoxType, str, nil)
	}

	key := inbox.Key()
	out := outbox.Key()

	var str string
	switch {
	case account.AccountID != key.ContainerID ||
		account.ServerID != key.ServerID ||
		account.OwnerID != key.OwnerID:

		str = fmt.Sprintf("account %s/%s/%s does not match inbox %v",
			account.ServerID, account.OwnerID, account.AccountID,
			key)

	case out.ContainerID != key.ContainerID ||
		out.ServerID != key.ServerID || out.OwnerID != key.OwnerID:

		str = fmt.Sprintf("outbox %v does not match inbox %v", out, key)

	case owner.NymID() != key.OwnerID:
		str = fmt.Sprintf("owner %s does not match inbox %v",
			owner.NymID(), key)
	}
	if str != "" {
		log.Criticalf("Contract violation: %s", str)
		return stmtError(ErrIdentityMismatch, str, nil)
	}

	return nil
}

// Generate builds the statement for transaction causing, which changes the
// balance of account by adjustment. inbox and outbox are the current boxes of
// the account. The statement is returned unsigned.
func (b *Builder) Generate(adjustment txdata.Amount, causing *otbox.Record,
	owner Owner, account AccountSnapshot, outbox,
	inbox *otbox.Box) (*BalanceStatement, error) {

	if b.Hasher == nil {
		return nil, stmtError(ErrInvalidArgument, "no hash service "+
			"configured", nil)
	}
	if err := checkCollaborators(causing, owner, account, outbox,
		inbox); err != nil {

		return nil, err
	}

	serverID := inbox.Key().ServerID
	issued := copySet(owner.IssuedNumbers(serverID))
	available := copySet(owner.AvailableNumbers(serverID))

	switch ruleFor(causing.Type) {
	case ruleRemove:
		issued.Remove(causing.Number)
		available.Remove(causing.Number)

	case ruleRetain:

	default:
		log.Warnf("Unexpected transaction kind %q for balance "+
			"statement of %d, keeping its number", causing.Type,
			causing.Number)
	}

	numbers := NumberSnapshot{
		ServerID:  serverID,
		Issued:    sortedSlice(issued),
		Available: sortedSlice(available),
	}
	attachment, err := numbers.Encode()
	if err != nil {
		return nil, stmtError(ErrEncode, "encode numbers", err)
	}

	inboxHash, err := inbox.InboxHash()
	if err != nil {
		return nil, err
	}
	outboxHash, err := outbox.OutboxHash()
	if err != nil {
		return nil, err
	}

	var liner ReportLiner = DefaultReportLiner{}
	if b.Liner != nil {
		liner = b.Liner
	}

	st := &BalanceStatement{
		ServerID:      serverID,
		OwnerID:       account.OwnerID,
		AccountID:     account.AccountID,
		CausingNumber: causing.Number,
		CausingType:   causing.Type,
		Amount:        account.Balance + adjustment,
		Numbers:       numbers,
		Attachment:    attachment,
		InboxHash:     inboxHash,
		OutboxHash:    outboxHash,
		InboxLines:    collectLines(inbox, liner.InboxLine),
		OutboxLines:   collectLines(outbox, liner.OutboxLine),
	}

	log.Debugf("Generated balance statement for %s %d: amount %v, %d "+
		"inbox and %d outbox lines", causing.Type, causing.Number,
		st.Amount, len(st.InboxLines), len(st.OutboxLines))

	return st, nil
}

func collectLines(box *otbox.Box,
	line func(*otbox.Record) fn.Option[ReportLine]) []ReportLine {

	lines := make([]ReportLine, 0, box.Len())
	for _, r := range box.Records() {
		line(r).WhenSome(func(l ReportLine) {
			lines = append(lines, l)
		})
	}
	return lines
}

func sortedSlice(s fn.Set[int64]) []int64 {
	list := s.ToSlice()
	slices.Sort(list)
	return list
}
