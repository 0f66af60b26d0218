// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/internal/cfgutil"
	"github.com/btcsuite/otledger/otbox"
	"github.com/davecgh/go-spew/spew"
)

// app holds what every command works with.
type app struct {
	cfg    *config
	store  boxstore.Store
	boxCfg otbox.Config
	locker *otbox.Locker

	in         io.Reader
	out        io.Writer
	isTerminal func() bool
}

// runner is implemented by the data struct of every command.
type runner interface {
	run(ctx context.Context, a *app) error
}

// command describes a subcommand registered with the flag parser.
type command struct {
	name  string
	short string
	long  string
	data  runner
}

func commands() []command {
	return []command{
		{
			name:  "show",
			short: "List the records of a box",
			long:  "Load the selected box and list its records.",
			data:  &showCmd{},
		},
		{
			name:  "hash",
			short: "Print the box hash",
			long:  "Print the hash of the canonical form of the box.",
			data:  &hashCmd{},
		},
		{
			name:  "materialize",
			short: "Load the full records of a box",
			long: "Materialize every abbreviated record of the box " +
				"from its box receipt.",
			data: &materializeCmd{},
		},
		{
			name:  "verify",
			short: "Check every box receipt",
			long: "Materialize every record and report each one " +
				"whose box receipt is missing or does not " +
				"match.",
			data: &verifyCmd{},
		},
		{
			name:  "import",
			short: "Store a serialized box",
			long: "Parse a serialized box, migrating inline legacy " +
				"records to box receipts, and store it.",
			data: &importCmd{},
		},
		{
			name:  "export",
			short: "Write a box to a file",
			long:  "Write the saved form of the box to FILE, or - for stdout.",
			data:  &exportCmd{},
		},
		{
			name:  "generate",
			short: "Create an empty box",
			long:  "Create and store an empty box of the selected type.",
			data:  &generateCmd{},
		},
		{
			name:  "account",
			short: "Record an account",
			long: "Record the owner and balance of the account given " +
				"by --container.",
			data: &accountCmd{Balance: cfgutil.NewAmountFlag(0)},
		},
	}
}

// boxKey returns the selected box key, resolving its owner by the rule of
// the box type when --owner is omitted.
func (a *app) boxKey(ctx context.Context) (boxstore.Key, error) {
	key, err := a.cfg.boxSelector()
	if err != nil || key.OwnerID != "" {
		return key, err
	}

	b, err := otbox.Generate(ctx, a.boxCfg, a.store, key.Type,
		key.ServerID, key.ContainerID)
	if err != nil {
		return boxstore.Key{}, err
	}
	return b.Key(), nil
}

// loadBox locks and loads the selected box. The returned function releases
// the lock.
func (a *app) loadBox(ctx context.Context) (*otbox.Box, func(), error) {
	key, err := a.boxKey(ctx)
	if err != nil {
		return nil, nil, err
	}

	unlock := a.locker.Lock(key)
	b, err := otbox.Load(ctx, a.boxCfg, a.store, key)
	if err != nil {
		unlock()
		return nil, nil, err
	}

	if b.LegacyDataLoaded() {
		log.Warnf("Box %v holds legacy inline records, export or "+
			"import it to migrate them", key)
	}

	return b, unlock, nil
}

func yes(s string) bool {
	switch s {
	case "y", "Y", "yes", "Yes":
		return true
	default:
		return false
	}
}

func no(s string) bool {
	switch s {
	case "n", "N", "no", "No":
		return true
	default:
		return false
	}
}

// confirm asks question on the terminal. Without --force a non interactive
// input never confirms.
func (a *app) confirm(question string) (bool, error) {
	if a.cfg.Force {
		return true, nil
	}
	if !a.isTerminal() {
		return false, errors.New("input is not a terminal, use " +
			"--force to confirm")
	}

	scanner := bufio.NewScanner(a.in)
	for {
		fmt.Fprintf(a.out, "%s [y/N] ", question)
		if !scanner.Scan() {
			// Exit on EOF.
			return false, scanner.Err()
		}

		resp := scanner.Text()
		switch {
		case yes(resp):
			return true, nil
		case no(resp) || resp == "":
			return false, nil
		}

		fmt.Fprintln(a.out, "Enter yes or no.")
	}
}

// storeBox persists b, asking first when a box is already stored for its key.
func (a *app) storeBox(ctx context.Context, b *otbox.Box) error {
	_, err := a.store.LoadBox(ctx, b.Key())
	switch {
	case err == nil:
		ok, err := a.confirm(fmt.Sprintf("Replace the stored box %v?",
			b.Key()))
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("box not replaced")
		}

	case !errors.Is(err, boxstore.ErrNotFound):
		return err
	}

	return b.Persist(ctx, a.store)
}

type showCmd struct {
	Dump bool `long:"dump" description:"Dump every record in full"`
}

func (c *showCmd) run(ctx context.Context, a *app) error {
	b, unlock, err := a.loadBox(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	fmt.Fprintf(a.out, "%v: %d records\n", b.Key(), b.Len())
	for _, r := range b.Records() {
		form := "full"
		if r.IsAbbreviated() {
			form = "abbreviated"
		}
		fmt.Fprintf(a.out, "%8d %-20s ref %-8d origin %-8d amount "+
			"%-10v %s\n", r.Number, r.Type, r.ReferenceNumber,
			r.NumberOfOrigin, r.ReceiptAmount(), form)

		if c.Dump {
			spew.Fdump(a.out, r.Header, r.Summary(), r.Numbers())
		}
	}

	return nil
}

type hashCmd struct{}

func (c *hashCmd) run(ctx context.Context, a *app) error {
	b, unlock, err := a.loadBox(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	hash, err := b.ComputeBoxHash()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, hash)

	return nil
}

type materializeCmd struct {
	Collect bool `long:"collect" description:"Continue past records that fail"`
}

func (c *materializeCmd) run(ctx context.Context, a *app) error {
	b, unlock, err := a.loadBox(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	err = b.MaterializeAll(ctx, c.Collect)

	full := 0
	for _, r := range b.Records() {
		if !r.IsAbbreviated() {
			full++
		}
	}
	fmt.Fprintf(a.out, "%d of %d records materialized\n", full, b.Len())

	return err
}

type verifyCmd struct{}

func (c *verifyCmd) run(ctx context.Context, a *app) error {
	b, unlock, err := a.loadBox(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	err = b.MaterializeAll(ctx, true)

	var bulkErr *otbox.BulkMaterializeError
	switch {
	case err == nil:
		fmt.Fprintf(a.out, "%v: %d records verified\n", b.Key(),
			b.Len())
		return nil

	case !errors.As(err, &bulkErr):
		return err
	}

	for _, n := range bulkErr.Failed {
		fmt.Fprintf(a.out, "record %d: %v\n", n, bulkErr.Causes[n])
	}
	return fmt.Errorf("%d of %d records failed verification",
		len(bulkErr.Failed), b.Len())
}

type fileArgs struct {
	File string `positional-arg-name:"FILE" required:"yes"`
}

type importCmd struct {
	Args fileArgs `positional-args:"yes"`
}

func (c *importCmd) run(ctx context.Context, a *app) error {
	raw, err := os.ReadFile(c.Args.File)
	if err != nil {
		return err
	}

	b, err := otbox.Parse(ctx, a.boxCfg, raw, a.cfg.boxType)
	if err != nil {
		return err
	}

	// When a box is selected the document must be that box.
	if a.cfg.Server != "" || a.cfg.Container != "" {
		key, err := a.boxKey(ctx)
		if err != nil {
			return err
		}
		if err := b.VerifyIdentity(key); err != nil {
			return err
		}
	}

	unlock := a.locker.Lock(b.Key())
	defer unlock()

	if err := a.storeBox(ctx, b); err != nil {
		return err
	}

	if b.LegacyDataLoaded() {
		log.Infof("Migrated legacy records of %v to box receipts",
			b.Key())
	}
	fmt.Fprintf(a.out, "Imported %v with %d records\n", b.Key(), b.Len())

	return nil
}

type exportCmd struct {
	Args fileArgs `positional-args:"yes"`
}

func (c *exportCmd) run(ctx context.Context, a *app) error {
	b, unlock, err := a.loadBox(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	raw, err := b.Save(ctx)
	if err != nil {
		return err
	}

	if c.Args.File == "-" {
		_, err := a.out.Write(append(raw, '\n'))
		return err
	}
	return os.WriteFile(c.Args.File, raw, 0600)
}

type generateCmd struct{}

func (c *generateCmd) run(ctx context.Context, a *app) error {
	key, err := a.cfg.boxSelector()
	if err != nil {
		return err
	}

	b, err := otbox.Generate(ctx, a.boxCfg, a.store, key.Type,
		key.ServerID, key.ContainerID)
	if err != nil {
		return err
	}

	unlock := a.locker.Lock(b.Key())
	defer unlock()

	if err := a.storeBox(ctx, b); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %v\n", b.Key())

	return nil
}

type accountCmd struct {
	Balance *cfgutil.AmountFlag `long:"balance" description:"Account balance in the smallest unit"`
}

func (c *accountCmd) run(ctx context.Context, a *app) error {
	if a.cfg.Server == "" || a.cfg.Container == "" || a.cfg.Owner == "" {
		return errors.New("give the account with --server, " +
			"--container and --owner")
	}

	return a.store.PutAccount(ctx, boxstore.AccountSummary{
		AccountID: a.cfg.Container,
		ServerID:  a.cfg.Server,
		OwnerID:   a.cfg.Owner,
		Balance:   c.Balance.Amount,
	})
}
