// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/btcsuite/otledger/otbox"
	"github.com/jessevdk/go-flags"
	"golang.org/x/term"
)

func main() {
	os.Exit(mainInt())
}

func mainInt() int {
	cmds := commands()

	cfg, parser, err := loadConfig(cmds)
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			return 0
		}
		return 1
	}
	defer logWriter.Close()

	var selected runner
	for _, c := range cmds {
		if parser.Active != nil && parser.Active.Name == c.name {
			selected = c.data
		}
	}
	if selected == nil {
		parser.WriteHelp(os.Stderr)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to open box database:", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf("Unable to close box database: %v", err)
		}
	}()

	boxCfg, report, err := boxConfig(cfg, store)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer report()

	a := &app{
		cfg:    cfg,
		store:  store,
		boxCfg: boxCfg,
		locker: otbox.NewLocker(),
		in:     os.Stdin,
		out:    os.Stdout,
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
	if err := selected.run(ctx, a); err != nil {
		log.Errorf("%s failed: %v", parser.Active.Name, err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}
