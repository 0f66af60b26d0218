// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bdbstore

import (
	"bytes"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/tlv"
)

const (
	typeValueVersion tlv.Type = 0
	typeValuePayload tlv.Type = 1
	typeValueSavedAt tlv.Type = 2

	typeAccountOwner   tlv.Type = 3
	typeAccountBalance tlv.Type = 4
)

// valueVersion is the version written into every stored value.
const valueVersion uint8 = 1

// storedValue is a receipt or box blob together with its bookkeeping fields.
type storedValue struct {
	Payload []byte
	SavedAt time.Time
}

// tlvEncodeValue encodes v as a TLV stream carrying the value version, the
// payload and the save time.
func tlvEncodeValue(v *storedValue) ([]byte, error) {
	version := valueVersion
	savedAt := uint64(v.SavedAt.UnixNano())

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(typeValueVersion, &version),
		tlv.MakePrimitiveRecord(typeValuePayload, &v.Payload),
		tlv.MakePrimitiveRecord(typeValueSavedAt, &savedAt),
	)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := stream.Encode(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// tlvDecodeValue decodes a stream written by tlvEncodeValue.
func tlvDecodeValue(b []byte) (*storedValue, error) {
	var (
		version uint8
		savedAt uint64
		v       storedValue
	)

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(typeValueVersion, &version),
		tlv.MakePrimitiveRecord(typeValuePayload, &v.Payload),
		tlv.MakePrimitiveRecord(typeValueSavedAt, &savedAt),
	)
	if err != nil {
		return nil, err
	}

	parsed, err := stream.DecodeWithParsedTypes(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	if _, ok := parsed[typeValuePayload]; !ok {
		return nil, fmt.Errorf("stored value missing payload")
	}
	if version != valueVersion {
		return nil, fmt.Errorf("unknown stored value version %d",
			version)
	}
	v.SavedAt = time.Unix(0, int64(savedAt))

	return &v, nil
}

// tlvEncodeAccount encodes the owner and balance of an account.
func tlvEncodeAccount(ownerID string, balance int64) ([]byte, error) {
	version := valueVersion
	owner := []byte(ownerID)
	bal := uint64(balance)

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(typeValueVersion, &version),
		tlv.MakePrimitiveRecord(typeAccountOwner, &owner),
		tlv.MakePrimitiveRecord(typeAccountBalance, &bal),
	)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := stream.Encode(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// tlvDecodeAccount decodes a stream written by tlvEncodeAccount.
func tlvDecodeAccount(b []byte) (string, int64, error) {
	var (
		version uint8
		owner   []byte
		bal     uint64
	)

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(typeValueVersion, &version),
		tlv.MakePrimitiveRecord(typeAccountOwner, &owner),
		tlv.MakePrimitiveRecord(typeAccountBalance, &bal),
	)
	if err != nil {
		return "", 0, err
	}

	if err := stream.Decode(bytes.NewReader(b)); err != nil {
		return "", 0, err
	}
	if version != valueVersion {
		return "", 0, fmt.Errorf("unknown account version %d", version)
	}

	return string(owner), int64(bal), nil
}
