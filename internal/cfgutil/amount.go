// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import (
	"strconv"
	"strings"

	"github.com/btcsuite/otledger/txdata"
)

// AmountFlag embeds a txdata.Amount and implements the flags.Marshaler and
// Unmarshaler interfaces so it can be used as a config struct field.
type AmountFlag struct {
	txdata.Amount
}

// NewAmountFlag creates an AmountFlag with a default txdata.Amount.
func NewAmountFlag(defaultValue txdata.Amount) *AmountFlag {
	return &AmountFlag{defaultValue}
}

// MarshalFlag satisfies the flags.Marshaler interface.
func (a *AmountFlag) MarshalFlag() (string, error) {
	return a.Amount.String(), nil
}

// UnmarshalFlag satisfies the flags.Unmarshaler interface. Amounts are
// given in the smallest unit of the instrument; digit group separators are
// accepted.
func (a *AmountFlag) UnmarshalFlag(value string) error {
	value = strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return err
	}
	a.Amount = txdata.Amount(v)
	return nil
}
