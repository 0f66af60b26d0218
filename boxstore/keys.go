// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package boxstore

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// byteOrder is the preferred byte order used for serializing numeric fields
// of store keys.
var byteOrder = binary.BigEndian

// errShortKey is returned when a serialized key ends early.
var errShortKey = errors.New("short key")

// putString appends s with a uvarint length prefix.
func putString(b []byte, s string) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

// readString reads a string written by putString.
func readString(b []byte) (string, []byte, error) {
	n, size := binary.Uvarint(b)
	if size <= 0 {
		return "", nil, errShortKey
	}
	b = b[size:]
	if uint64(len(b)) < n {
		return "", nil, errShortKey
	}
	return string(b[:n]), b[n:], nil
}

// BlobKey returns the serialized form of the blob key of k: the box type
// followed by the length prefixed server and container ids. The owner is not
// part of the key.
func (k Key) BlobKey() []byte {
	b := make([]byte, 0, 1+4+len(k.ServerID)+len(k.ContainerID))
	b = append(b, byte(k.Type))
	b = putString(b, k.ServerID)
	return putString(b, k.ContainerID)
}

// ReceiptPrefix returns the serialized prefix shared by every receipt of the
// box identified by k.
func (k Key) ReceiptPrefix() []byte {
	b := k.BlobKey()
	return putString(b, k.OwnerID)
}

// Bytes returns the serialized form of the receipt key. Keys of one box sort
// by ascending record number for non-negative numbers.
func (k ReceiptKey) Bytes() []byte {
	return byteOrder.AppendUint64(k.ReceiptPrefix(), uint64(k.Number))
}

// ParseReceiptKey reverses ReceiptKey.Bytes.
func ParseReceiptKey(b []byte) (ReceiptKey, error) {
	var (
		k   ReceiptKey
		err error
	)

	if len(b) < 1 {
		return k, errShortKey
	}
	k.Type = BoxType(b[0])
	b = b[1:]

	if k.ServerID, b, err = readString(b); err != nil {
		return k, err
	}
	if k.ContainerID, b, err = readString(b); err != nil {
		return k, err
	}
	if k.OwnerID, b, err = readString(b); err != nil {
		return k, err
	}
	if len(b) != 8 {
		return k, fmt.Errorf("receipt key: want 8 number bytes, "+
			"got %d", len(b))
	}
	k.Number = int64(byteOrder.Uint64(b))

	return k, nil
}

// AccountKey returns the serialized key of an account record.
func AccountKey(serverID, accountID string) []byte {
	b := make([]byte, 0, 4+len(serverID)+len(accountID))
	b = putString(b, serverID)
	return putString(b, accountID)
}
