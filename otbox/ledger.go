// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package otbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/hashsign"
	"github.com/btcsuite/otledger/txdata"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Serialize returns the canonical unsigned bytes of the box. Message boxes
// embed every record as an armored receipt; all other boxes embed the
// abbreviated projection of every record, full or not.
func (b *Box) Serialize() ([]byte, error) {
	body := map[string]any{
		keyType:      b.key.Type.String(),
		keyVersion:   ledgerVersion,
		keyServerID:  b.key.ServerID,
		keyOwnerID:   b.key.OwnerID,
		keyAccountID: b.key.ContainerID,
	}

	records := b.Records()
	if !b.key.Type.StoresAbbreviated() {
		txs := make([]string, 0, len(records))
		for _, r := range records {
			armored, err := txdata.Armor(r.receipt)
			if err != nil {
				return nil, boxError(ErrStructure, fmt.Sprintf(
					"armor record %d", r.Number), err)
			}
			txs = append(txs, armored)
		}
		body[keyTransactions] = txs

		return b.canonical(body)
	}

	declared := len(records)
	body[keyNumPartialRecords] = declared

	withNumbers := b.key.Type == boxstore.BoxNymbox
	elements := make([]abbreviatedElement, 0, declared)
	for _, r := range records {
		a := r.Abbreviate(b.cfg.Hasher)
		elements = append(elements, newAbbreviatedElement(
			&r.Header, &a, withNumbers,
		))
	}
	if len(elements) != declared {
		str := fmt.Sprintf("emitted %d abbreviated records, declared "+
			"%d", len(elements), declared)
		return nil, boxError(ErrCountMismatch, str, nil)
	}
	body[b.key.Type.RecordTag()] = elements

	return b.canonical(body)
}

func (b *Box) canonical(body map[string]any) ([]byte, error) {
	content, err := txdata.Canonical(map[string]any{keyLedger: body})
	if err != nil {
		return nil, boxError(ErrStructure, "encode box", err)
	}
	return content, nil
}

// ComputeBoxHash returns the digest of the canonical unsigned bytes of the
// box.
func (b *Box) ComputeBoxHash() (hashsign.Digest, error) {
	content, err := b.Serialize()
	if err != nil {
		return hashsign.Digest{}, err
	}
	return b.cfg.Hasher.Digest(content), nil
}

func (b *Box) typedHash(op string, t boxstore.BoxType) (hashsign.Digest,
	error) {

	if b.key.Type != t {
		return hashsign.Digest{}, b.wrongType(op, "an "+t.String())
	}
	return b.ComputeBoxHash()
}

// InboxHash returns the box hash of an inbox.
func (b *Box) InboxHash() (hashsign.Digest, error) {
	return b.typedHash("InboxHash", boxstore.BoxInbox)
}

// OutboxHash returns the box hash of an outbox.
func (b *Box) OutboxHash() (hashsign.Digest, error) {
	return b.typedHash("OutboxHash", boxstore.BoxOutbox)
}

// NymboxHash returns the box hash of a nymbox.
func (b *Box) NymboxHash() (hashsign.Digest, error) {
	if b.key.Type != boxstore.BoxNymbox {
		return hashsign.Digest{}, b.wrongType("NymboxHash", "a nymbox")
	}
	return b.ComputeBoxHash()
}

// ensureReceipt stores the receipt of full record r unless the receipt store
// already holds one.
func (b *Box) ensureReceipt(ctx context.Context, r *Record) (bool, error) {
	key := b.receiptKey(r.Number)

	exists, err := b.cfg.Receipts.ReceiptExists(ctx, key)
	if err != nil {
		return false, boxError(ErrStore, fmt.Sprintf("check box "+
			"receipt %v", key), err)
	}
	if exists {
		return false, nil
	}

	if err := b.cfg.Receipts.SaveReceipt(ctx, key, r.receipt); err != nil {
		return false, boxError(ErrStore, fmt.Sprintf("save box "+
			"receipt %v", key), err)
	}

	return true, nil
}

// Save returns the serialized box, signed when the config holds a signing
// key. For boxes storing abbreviated records, every full record whose box
// receipt is missing has it saved first.
func (b *Box) Save(ctx context.Context) ([]byte, error) {
	if b.key.Type.StoresAbbreviated() {
		for _, r := range b.Records() {
			if r.IsAbbreviated() {
				continue
			}
			created, err := b.ensureReceipt(ctx, r)
			if err != nil {
				return nil, err
			}
			if created {
				log.Debugf("Saved box receipt for record %d "+
					"of %v", r.Number, b.key)
			}
		}
	}

	content, err := b.Serialize()
	if err != nil {
		return nil, err
	}
	if b.cfg.SigningKey == nil {
		return content, nil
	}

	sealed, err := txdata.Seal(txdata.KindSignedLedger, content,
		b.cfg.Hasher, b.cfg.SigningKey)
	if err != nil {
		return nil, boxError(ErrSignature, "sign box", err)
	}

	return sealed, nil
}

// Persist saves the box and writes the result to blobs.
func (b *Box) Persist(ctx context.Context, blobs boxstore.BlobStore) error {
	blob, err := b.Save(ctx)
	if err != nil {
		return err
	}

	if err := blobs.SaveBox(ctx, b.key, blob); err != nil {
		return boxError(ErrStore, fmt.Sprintf("save box %v", b.key), err)
	}

	return nil
}

// Parse parses a serialized box. The box type is taken from expected, which
// must match the type found in the document, or detected from the document
// when expected is BoxInvalid. Any structural problem aborts the parse and no
// box is returned.
//
// Full records found inline in a box that stores abbreviated records are
// accepted as legacy data: the box is flagged and a box receipt is created
// for each of them unless one already exists.
func Parse(ctx context.Context, cfg Config, raw []byte,
	expected boxstore.BoxType) (*Box, error) {

	return parse(ctx, cfg, raw, expected, fn.None[boxstore.Key]())
}

// Load fetches the box stored for real from blobs, parses it with the real
// box type and verifies its purported identifiers against real before any
// record is read.
func Load(ctx context.Context, cfg Config, blobs boxstore.BlobStore,
	real boxstore.Key) (*Box, error) {

	raw, err := blobs.LoadBox(ctx, real)
	if err != nil {
		return nil, boxError(ErrStore, fmt.Sprintf("load box %v", real),
			err)
	}

	return parse(ctx, cfg, raw, real.Type, fn.Some(real))
}

// ledgerFields is the decoded top level of a box document.
type ledgerFields map[string]json.RawMessage

func (f ledgerFields) str(key string) (string, error) {
	raw, ok := f[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return s, nil
}

// readLedger unwraps an optionally signed box document into its fields.
func readLedger(raw []byte, v hashsign.Verifier) (ledgerFields, error) {
	content := raw
	if txdata.EnvelopeKind(raw) == txdata.KindSignedLedger {
		env, err := txdata.Open(raw, txdata.KindSignedLedger, v)
		switch {
		case errors.Is(err, txdata.ErrSignature):
			return nil, boxError(ErrSignature, "box signature", err)
		case err != nil:
			return nil, boxError(ErrStructure, "open box", err)
		}
		content = env.Content
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, boxError(ErrStructure, "decode box", err)
	}
	body, ok := doc[keyLedger]
	if !ok || len(doc) != 1 {
		return nil, boxError(ErrStructure, "box document has no "+
			keyLedger+" element", nil)
	}

	var fields ledgerFields
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, boxError(ErrStructure, "decode box header", err)
	}

	return fields, nil
}

func parse(ctx context.Context, cfg Config, raw []byte,
	expected boxstore.BoxType, real fn.Option[boxstore.Key]) (*Box, error) {

	fields, err := readLedger(raw, cfg.Hasher)
	if err != nil {
		return nil, err
	}

	b, err := parseHeader(cfg, fields, expected)
	if err != nil {
		return nil, err
	}

	if realKey, err := real.UnwrapOrErr(errNoKey); err == nil {
		if err := b.VerifyIdentity(realKey); err != nil {
			return nil, err
		}
	}

	if err := b.parseAbbreviated(fields); err != nil {
		return nil, err
	}
	if err := b.parseInline(ctx, fields); err != nil {
		return nil, err
	}

	return b, nil
}

var errNoKey = errors.New("no key")

// parseHeader reads the type and identifiers of a box and checks the
// document holds no element foreign to that type.
func parseHeader(cfg Config, fields ledgerFields,
	expected boxstore.BoxType) (*Box, error) {

	typeName, err := fields.str(keyType)
	if err != nil {
		return nil, boxError(ErrStructure, "box header", err)
	}
	typ := boxstore.ParseBoxType(typeName)
	switch {
	case typ == boxstore.BoxInvalid:
		str := fmt.Sprintf("unknown box type %q", typeName)
		return nil, boxError(ErrStructure, str, nil)

	case expected != boxstore.BoxInvalid && typ != expected:
		str := fmt.Sprintf("box type %v, expected %v", typ, expected)
		return nil, boxError(ErrStructure, str, nil)
	}

	version, err := fields.str(keyVersion)
	if err != nil {
		return nil, boxError(ErrStructure, "box header", err)
	}
	if version != ledgerVersion && version != legacyLedgerVersion {
		str := fmt.Sprintf("unsupported box version %q", version)
		return nil, boxError(ErrStructure, str, nil)
	}

	var key boxstore.Key
	key.Type = typ
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{keyServerID, &key.ServerID},
		{keyOwnerID, &key.OwnerID},
		{keyAccountID, &key.ContainerID},
	} {
		if *f.dst, err = fields.str(f.name); err != nil {
			return nil, boxError(ErrStructure, "box header", err)
		}
	}

	tag := typ.RecordTag()
	for name := range fields {
		switch name {
		case keyType, keyVersion, keyServerID, keyOwnerID,
			keyAccountID, keyNumPartialRecords, keyTransactions:

			continue
		}
		if tag != "" && name == tag {
			continue
		}

		str := fmt.Sprintf("%v box carries unexpected element %q",
			typ, name)
		return nil, boxError(ErrStructure, str, nil)
	}

	return New(cfg, key)
}

// parseAbbreviated reads exactly the declared number of abbreviated records.
func (b *Box) parseAbbreviated(fields ledgerFields) error {
	declared := 0
	if raw, ok := fields[keyNumPartialRecords]; ok {
		if err := json.Unmarshal(raw, &declared); err != nil {
			return boxError(ErrStructure, "numPartialRecords", err)
		}
	} else if b.key.Type.StoresAbbreviated() {
		return boxError(ErrStructure, "box header missing "+
			keyNumPartialRecords, nil)
	}

	if declared < 0 {
		str := fmt.Sprintf("negative record count %d", declared)
		return boxError(ErrCountMismatch, str, nil)
	}
	if !b.key.Type.StoresAbbreviated() {
		if declared != 0 {
			str := fmt.Sprintf("message box declares %d "+
				"abbreviated records", declared)
			return boxError(ErrCountMismatch, str, nil)
		}
		return nil
	}

	var elements []json.RawMessage
	if raw, ok := fields[b.key.Type.RecordTag()]; ok {
		if err := json.Unmarshal(raw, &elements); err != nil {
			return boxError(ErrStructure, "abbreviated records",
				err)
		}
	}

	withNumbers := b.key.Type == boxstore.BoxNymbox
	for i, raw := range elements {
		if i >= declared {
			str := fmt.Sprintf("more than the %d declared "+
				"abbreviated records", declared)
			return boxError(ErrCountMismatch, str, nil)
		}

		var e abbreviatedElement
		if err := txdata.DecodeStrict(raw, &e); err != nil {
			str := fmt.Sprintf("abbreviated record %d", i)
			return boxError(ErrStructure, str, err)
		}
		if e.NumList != "" && !withNumbers {
			str := fmt.Sprintf("record %d carries a number list "+
				"in a %v", e.Number, b.key.Type)
			return boxError(ErrStructure, str, nil)
		}

		a, err := e.abbreviated()
		if err != nil {
			str := fmt.Sprintf("abbreviated record %d", e.Number)
			return boxError(ErrStructure, str, err)
		}

		r, err := NewAbbreviatedRecord(e.header(b.key.ServerID,
			b.key.OwnerID, b.key.ContainerID), a)
		if err != nil {
			return err
		}
		if err := b.Insert(r); err != nil {
			return err
		}
	}

	if len(elements) != declared {
		str := fmt.Sprintf("found %d abbreviated records, declared %d",
			len(elements), declared)
		return boxError(ErrCountMismatch, str, nil)
	}

	return nil
}

// parseInline reads the armored full records of the box.
func (b *Box) parseInline(ctx context.Context, fields ledgerFields) error {
	raw, ok := fields[keyTransactions]
	if !ok {
		return nil
	}

	var txs []string
	if err := json.Unmarshal(raw, &txs); err != nil {
		return boxError(ErrStructure, "inline records", err)
	}

	for i, armored := range txs {
		receipt, err := txdata.Dearmor(armored)
		if err != nil {
			str := fmt.Sprintf("inline record %d", i)
			return boxError(ErrStructure, str, err)
		}

		r, err := ParseFullRecord(receipt, b.cfg.Hasher)
		if err != nil {
			return err
		}
		if err := b.verifyRecordIdentity(r); err != nil {
			return err
		}
		if err := b.Insert(r); err != nil {
			return err
		}

		if !b.key.Type.StoresAbbreviated() {
			continue
		}

		if !b.legacyDataLoaded {
			log.Warnf("Legacy inline records found in %v", b.key)
		}
		b.legacyDataLoaded = true

		created, err := b.ensureReceipt(ctx, r)
		if err != nil {
			return err
		}
		if created {
			log.Infof("Created box receipt for legacy record %d "+
				"of %v", r.Number, b.key)
		}
	}

	return nil
}

// Generate creates an empty box of type typ for containerID on serverID,
// resolving the owner by the rule of the type. Inboxes and outboxes take the
// owner of their account, which must exist. Record boxes take the owner of
// the account when containerID names one and are otherwise owned by
// containerID itself, as are all other box types.
func Generate(ctx context.Context, cfg Config,
	accounts boxstore.AccountLookup, typ boxstore.BoxType, serverID,
	containerID string) (*Box, error) {

	owner := containerID

	switch {
	case typ.KeyedByAccount() || typ == boxstore.BoxRecordBox:
		res, err := accounts.LookupAccount(ctx, containerID, serverID)
		if err != nil {
			str := fmt.Sprintf("lookup account %s", containerID)
			return nil, boxError(ErrStore, str, err)
		}

		acct, err := res.UnwrapOrErr(errNoKey)
		switch {
		case err == nil:
			owner = acct.OwnerID

		case typ.KeyedByAccount():
			str := fmt.Sprintf("account %s on %s not found",
				containerID, serverID)
			return nil, boxError(ErrAccountNotFound, str, nil)
		}
	}

	return New(cfg, boxstore.Key{
		ServerID:    serverID,
		OwnerID:     owner,
		ContainerID: containerID,
		Type:        typ,
	})
}
