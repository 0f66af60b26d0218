// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package statement

import (
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/otledger/hashsign"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Owner is the identity a balance statement is made for.
type Owner interface {
	// NymID returns the identifier of the owner.
	NymID() string

	// IssuedNumbers returns the transaction numbers issued to the owner
	// on serverID and not yet closed.
	IssuedNumbers(serverID string) fn.Set[int64]

	// AvailableNumbers returns the issued numbers the owner has not yet
	// used.
	AvailableNumbers(serverID string) fn.Set[int64]
}

// Nym is an Owner identified by a public key that tracks its transaction
// numbers in memory.
type Nym struct {
	id string

	mu        sync.Mutex
	issued    map[string]fn.Set[int64]
	available map[string]fn.Set[int64]
}

// A compile time check to ensure Nym satisfies the Owner interface.
var _ Owner = (*Nym)(nil)

// NewNym returns a Nym for key with no transaction numbers.
func NewNym(d hashsign.Digester, key *btcec.PublicKey) *Nym {
	return &Nym{
		id:        hashsign.NymID(d, key),
		issued:    make(map[string]fn.Set[int64]),
		available: make(map[string]fn.Set[int64]),
	}
}

// NymID returns the identifier derived from the public key of the nym.
func (n *Nym) NymID() string {
	return n.id
}

// IssueNumbers records numbers as issued on serverID and available for use.
func (n *Nym) IssueNumbers(serverID string, numbers ...int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, m := range []map[string]fn.Set[int64]{n.issued, n.available} {
		set, ok := m[serverID]
		if !ok {
			set = fn.NewSet[int64]()
			m[serverID] = set
		}
		for _, num := range numbers {
			set.Add(num)
		}
	}
}

// UseNumber marks number as used on serverID. It stays issued until
// CloseNumber is called.
func (n *Nym) UseNumber(serverID string, number int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if set, ok := n.available[serverID]; ok {
		set.Remove(number)
	}
}

// CloseNumber removes number from both sets on serverID.
func (n *Nym) CloseNumber(serverID string, number int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, m := range []map[string]fn.Set[int64]{n.issued, n.available} {
		if set, ok := m[serverID]; ok {
			set.Remove(number)
		}
	}
}

// IssuedNumbers returns a copy of the issued numbers on serverID.
func (n *Nym) IssuedNumbers(serverID string) fn.Set[int64] {
	n.mu.Lock()
	defer n.mu.Unlock()

	return copySet(n.issued[serverID])
}

// AvailableNumbers returns a copy of the available numbers on serverID.
func (n *Nym) AvailableNumbers(serverID string) fn.Set[int64] {
	n.mu.Lock()
	defer n.mu.Unlock()

	return copySet(n.available[serverID])
}

func copySet(s fn.Set[int64]) fn.Set[int64] {
	if s == nil {
		return fn.NewSet[int64]()
	}
	return fn.NewSet(s.ToSlice()...)
}
