// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/otledger/boxstore"
	"github.com/btcsuite/otledger/boxstore/cachestore"
	"github.com/btcsuite/otledger/hashsign"
	"github.com/btcsuite/otledger/internal/cfgutil"
	"github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "boxctl.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "boxctl.log"
	defaultDBBackend      = "bdb"
	defaultDigest         = "sha256d"
	defaultDBTimeout      = 60 * time.Second
	defaultSignKeyName    = "sign.key"
	defaultMaxLogFileSize = 10 * 1024
	defaultMaxLogFiles    = 3
)

var (
	otledgerHomeDir   = btcutil.AppDataDir("otledger", false)
	defaultConfigFile = filepath.Join(otledgerHomeDir, defaultConfigFilename)
	defaultDataDir    = otledgerHomeDir
	defaultLogDir     = filepath.Join(otledgerHomeDir, defaultLogDirname)
	defaultSignKey    = filepath.Join(otledgerHomeDir, defaultSignKeyName)
)

// dbFileNames maps file based backends to the name of their database below
// the data directory.
var dbFileNames = map[string]string{
	"bdb":     "boxes.db",
	"leveldb": "boxes.ldb",
	"sqlite":  "boxes.sqlite",
}

type config struct {
	// General application behavior
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir    string `short:"b" long:"datadir" description:"Directory holding the box database"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical, off} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	Force      bool   `short:"f" long:"force" description:"Overwrite existing boxes without prompting"`

	// Storage options
	DBBackend string        `long:"dbbackend" description:"Database backend {bdb, leveldb, sqlite, postgres}"`
	DBDSN     string        `long:"dbdsn" description:"Data source name of the postgres backend"`
	DBTimeout time.Duration `long:"dbtimeout" description:"Time to wait for the bdb file lock"`
	CacheSize uint64        `long:"cachesize" description:"Receipt cache size in bytes (0 disables the cache)"`

	// Crypto options
	Digest  string                  `long:"digest" description:"Content digest algorithm {sha256d, blake2b}"`
	SignKey *cfgutil.ExplicitString `long:"signkey" description:"File holding the hex private key used to sign saved boxes"`

	// Box selection
	Server    string `long:"server" description:"Notary id of the box"`
	Owner     string `long:"owner" description:"Nym id owning the box (resolved from the account when omitted)"`
	Container string `long:"container" description:"Account id, or nym id for nym keyed boxes"`
	Type      string `long:"type" description:"Box type {nymbox, inbox, outbox, paymentInbox, recordBox, expiredBox, message}"`

	// Resolved settings
	digest   hashsign.Algorithm
	boxType  boxstore.BoxType
	dbPath   string
	signPath string
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical", "off":
		return true
	}
	return false
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") &&
		!strings.Contains(debugLevel, "=") {

		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		logWriter.SetLogLevels(debugLevel)
		return nil
	}

	// Split the specified string into subsystem/level pairs while
	// detecting issues and update the log levels accordingly.
	supported := logWriter.SupportedSubsystems()
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		subsysID, logLevel, ok := strings.Cut(logLevelPair, "=")
		if !ok {
			str := "the specified debug level contains an " +
				"invalid subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		known := false
		for _, s := range supported {
			known = known || s == subsysID
		}
		if !known {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, supported)
		}

		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		logWriter.SetLogLevel(subsysID, logLevel)
	}

	return nil
}

func defaultConfig() config {
	return config{
		ConfigFile: defaultConfigFile,
		DataDir:    defaultDataDir,
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
		DBBackend:  defaultDBBackend,
		DBTimeout:  defaultDBTimeout,
		CacheSize:  cachestore.DefaultCapacity,
		Digest:     defaultDigest,
		SignKey:    cfgutil.NewExplicitString(defaultSignKey),
	}
}

// loadConfig initializes and parses the config using a config file and
// command line options, then registers cmds on the parser. The returned
// parser has run, so its Active command is the one selected.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// Command line options always take precedence.
func loadConfig(cmds []command) (*config, *flags.Parser, error) {
	cfg := defaultConfig()

	// Pre-parse the command line options to see if an alternative config
	// file was specified. Command names and their options are left for
	// the full parse.
	preCfg := defaultConfig()
	preParser := flags.NewParser(&preCfg, flags.HelpFlag|
		flags.PassDoubleDash|flags.IgnoreUnknown)
	// Help is left for the full parser, which knows the commands.
	var flagErr *flags.Error
	if _, err := preParser.Parse(); err != nil &&
		!(errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp) {

		return nil, nil, err
	}

	parser := flags.NewParser(&cfg, flags.Default)
	for _, c := range cmds {
		_, err := parser.AddCommand(c.name, c.short, c.long, c.data)
		if err != nil {
			return nil, nil, err
		}
	}

	// Load additional config from file.
	var configFileError error
	configFile := cfgutil.ExpandPath(preCfg.ConfigFile, otledgerHomeDir)
	err := flags.NewIniParser(parser).ParseFile(configFile)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return nil, nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	if _, err := parser.Parse(); err != nil {
		return nil, nil, err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems",
			logWriter.SupportedSubsystems())
		os.Exit(0)
	}

	cfg.DataDir = cfgutil.ExpandPath(cfg.DataDir, otledgerHomeDir)
	cfg.LogDir = cfgutil.ExpandPath(cfg.LogDir, otledgerHomeDir)

	// Initialize log rotation. After it is initialized the log writer
	// writes to both stdout and the log file.
	err = logWriter.InitLogRotator(
		filepath.Join(cfg.LogDir, defaultLogFilename),
		defaultMaxLogFileSize, defaultMaxLogFiles,
	)
	if err != nil {
		return nil, nil, err
	}
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("loadConfig: %w", err)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Warn about missing config file after the final command line parse
	// succeeds. This prevents the warning on help messages and invalid
	// options.
	if configFileError != nil {
		log.Debugf("%v", configFileError)
	}

	if err := cfg.resolve(); err != nil {
		err := fmt.Errorf("loadConfig: %w", err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	return &cfg, parser, nil
}

// resolve validates the options and derives the settings that depend on
// several of them.
func (c *config) resolve() error {
	alg, err := hashsign.ParseAlgorithm(c.Digest)
	if err != nil {
		return err
	}
	c.digest = alg

	switch c.DBBackend {
	case "postgres":
		if c.DBDSN == "" {
			return errors.New("the postgres backend requires " +
				"--dbdsn")
		}

	default:
		name, ok := dbFileNames[c.DBBackend]
		if !ok {
			return fmt.Errorf("unknown database backend %q",
				c.DBBackend)
		}
		c.dbPath = filepath.Join(c.DataDir, name)
	}

	if c.Type != "" {
		c.boxType = boxstore.ParseBoxType(c.Type)
		if c.boxType == boxstore.BoxInvalid {
			return fmt.Errorf("unknown box type %q", c.Type)
		}
	}

	// The default key file is optional; an explicit one must exist.
	path := cfgutil.ExpandPath(c.SignKey.Value, otledgerHomeDir)
	exists, err := cfgutil.FileExists(path)
	switch {
	case err != nil:
		return err

	case exists:
		c.signPath = path

	case c.SignKey.ExplicitlySet():
		return fmt.Errorf("signing key file %s does not exist", path)
	}

	return nil
}

// boxSelector returns the selected box with the owner left empty when it
// was not given.
func (c *config) boxSelector() (boxstore.Key, error) {
	if c.Server == "" || c.Container == "" || c.Type == "" {
		return boxstore.Key{}, errors.New("select a box with --server, " +
			"--container and --type")
	}

	return boxstore.Key{
		ServerID:    c.Server,
		OwnerID:     c.Owner,
		ContainerID: c.Container,
		Type:        c.boxType,
	}, nil
}
