// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package otbox

import (
	"sync"

	"github.com/btcsuite/otledger/boxstore"
)

// Locker hands out one mutex per box key so boxes loaded from the same
// storage slot are mutated by one caller at a time.
type Locker struct {
	mu    sync.Mutex
	locks map[boxstore.Key]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[boxstore.Key]*keyLock)}
}

// Lock blocks until the lock for key is held and returns the function
// releasing it.
func (l *Locker) Lock(key boxstore.Key) func() {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			kl.Unlock()

			l.mu.Lock()
			kl.refs--
			if kl.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}
}

// held returns the number of keys with a holder or waiter.
func (l *Locker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
