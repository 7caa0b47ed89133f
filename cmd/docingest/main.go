// Copyright 2025 The Codewords Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements docingest, which loads JSON documents from stdin into
a document store that codewords can later read its code set from.

# Usage

Load an array of airport records keyed by their IATA code:

	docingest -store 'sqlite://airports.db?table=airports' -id-field iata < airports.json

The same URL with a field selects the codes for codewords:

	codewords -codes 'sqlite://airports.db?table=airports&field=iata' -index words.cwix

A field given in the store URL is also used as the id field when -id-field is
not set. Without either, a document's "_id" is used, and documents with no
"_id" get a generated ULID. Documents whose id field is null or empty are
skipped and logged.

Load one object instead of an array:

	echo '{"iata": "FCO", "city": "Roma"}' | docingest -single -store 'postgres://localhost/geo?table=airports' -id-field iata

# Existing Documents

-when-existing decides what happens when a document id is already stored:

	ignore     keep the stored document (default)
	overwrite  replace it
	merge      add and update fields, keep the rest ("update" is an alias)

A document whose fields already appear, with equal values, in the stored one
is never written.

# Command Line Flags

	-store url          sqlite://path?table=t or postgres://...?table=t
	-id-field name      field copied into the document id
	-when-existing p    ignore, overwrite or merge
	-single             read one object instead of an array
	-pool-size n        writer workers
	-batch-size n       documents per write
	-create             create the table when missing
	-config path        config file
	-d                  debug logging
	-version            show version
*/
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/codewords/internal/logger"
	"github.com/bastiangx/codewords/internal/utils"
	"github.com/bastiangx/codewords/pkg/config"
	"github.com/bastiangx/codewords/pkg/docstore"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const (
	Version = "0.1.0"
	AppName = "docingest"
	gh      = "https://github.com/bastiangx/codewords"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	defaults := config.DefaultConfig()

	storeURL := flag.String("store", defaults.Store.URL, "Document store URL")
	idField := flag.String("id-field", defaults.Store.IDField, "Field copied into the document id")
	whenExisting := flag.String("when-existing", defaults.Store.WhenExisting, "Policy for stored ids: ignore, overwrite, merge")
	single := flag.Bool("single", false, "Input is a single JSON object")
	poolSize := flag.Int("pool-size", defaults.Store.PoolSize, "Number of writer workers")
	batchSize := flag.Int("batch-size", defaults.Store.BatchSize, "Documents per write")
	create := flag.Bool("create", defaults.Store.Create, "Create the table if missing")
	configPath := flag.String("config", "", "Path to a config file")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	showVersion := flag.Bool("version", false, "Show current version")
	flag.Parse()

	if *showVersion {
		logger.PrintVersion("docingest", "Loads JSON documents into a store", Version, gh)
		return 0
	}
	logger.SetDebug(*debugMode)
	l := logger.New(AppName)

	cfg, _, err := config.LoadConfigWithPriority(*configPath, l)
	if err != nil {
		l.Errorf("Failed to load config: %v", err)
		return 2
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		l.Errorf("Bad environment: %v", err)
		return 2
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "store":
			cfg.Store.URL = *storeURL
		case "id-field":
			cfg.Store.IDField = *idField
		case "when-existing":
			cfg.Store.WhenExisting = *whenExisting
		case "pool-size":
			cfg.Store.PoolSize = *poolSize
		case "batch-size":
			cfg.Store.BatchSize = *batchSize
		case "create":
			cfg.Store.Create = *create
		}
	})
	if err := cfg.Validate(); err != nil {
		l.Errorf("Invalid configuration: %v", err)
		return 2
	}

	policy, err := docstore.ParsePolicy(cfg.Store.WhenExisting)
	if err != nil {
		l.Error(err)
		return 2
	}
	if cfg.Store.URL == "" {
		l.Error("-store is required")
		flag.Usage()
		return 2
	}
	loc, err := docstore.ParseURL(cfg.Store.URL)
	if err != nil {
		l.Error(err)
		return 2
	}
	if cfg.Store.IDField == "" {
		cfg.Store.IDField = loc.Field
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := docstore.Open(ctx, loc, cfg.Store.Create)
	if err != nil {
		l.Errorf("Failed to open store: %v", err)
		return 1
	}
	defer backend.Close()
	l.Debug("store open", "scheme", loc.Scheme, "table", loc.Table, "policy", policy.String())

	stats, err := docstore.Ingest(ctx, os.Stdin, backend, docstore.IngestOptions{
		Single:    *single,
		IDField:   cfg.Store.IDField,
		Policy:    policy,
		Workers:   cfg.Store.PoolSize,
		BatchSize: cfg.Store.BatchSize,
	}, l)

	sl := logger.NewWithConfig(AppName, log.InfoLevel, false, false, log.TextFormatter)
	sl.Info("documents",
		"read", utils.FormatWithCommas(stats.Read),
		"written", utils.FormatWithCommas(stats.Written),
		"unchanged", utils.FormatWithCommas(stats.Unchanged),
		"ignored", utils.FormatWithCommas(stats.Ignored),
		"skipped", utils.FormatWithCommas(stats.Skipped))

	if err != nil {
		if errors.Is(err, context.Canceled) {
			l.Warn("interrupted")
		} else {
			l.Errorf("Ingest failed: %v", err)
		}
		return 1
	}
	return 0
}
