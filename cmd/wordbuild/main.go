// Copyright 2025 The Codewords Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements wordbuild, the corpus ingestion tool.

wordbuild reads wordlists and dictionary dumps, normalizes every line to
plain uppercase ASCII letters, removes duplicates and persists the result
as a sorted, compressed index that the codewords segmenter can load.

# Usage

Build an index from two wordlists:

	wordbuild -wordlist en.txt -wordlist it.txt -output words.cwix

Add an aspell and a hunspell dictionary, with six cleaning workers:

	wordbuild -aspell en -hunspell it_IT -pool-size 6 -output words.cwix

Any source descriptor is accepted through -source, including "-" for
standard input and http(s) URLs:

	curl -s https://example.org/words.txt | wordbuild -source - -output words.cwix

Building with no sources is valid and writes an empty index.

# Pipeline

Each source streams into raw chunk files of at most -raw-chunk-mb. A pool of
-pool-size cleaning workers normalizes raw chunks into clean chunks of at
most -clean-chunk-mb, a pool of -dedup-workers collapses every clean chunk
into a duplicate-free shard, and the index builder finally merges all shards.
Chunk files live in a fresh working directory that is removed on exit unless
-keep is given.

Dictionary tools are checked before any work starts. A missing aspell,
unmunch or sed, or an unreadable wordlist, exits with status 2 and leaves no
output. Any I/O failure during the run aborts it with status 1.

# Configuration

Flags default from the [build] section of the config file:

	[build]
	pool_size = 3
	dedup_workers = 0
	raw_chunk_mb = 50
	clean_chunk_mb = 10
	workdir = ""
	keep = false
	hunspell_dir = "/usr/share/hunspell"

CODEWORDS_* variables, read from the environment or a .env file, override
the file; explicit flags override both.

# Command Line Flags

	-wordlist path     wordlist file, repeatable
	-aspell lang       aspell dictionary, repeatable
	-hunspell lang     hunspell dictionary, repeatable
	-source desc       generic source descriptor, repeatable
	-output path       index file to write (required)
	-pool-size n       cleaning workers
	-dedup-workers n   dedup workers (default: pool size)
	-raw-chunk-mb n    raw chunk size
	-clean-chunk-mb n  clean chunk size
	-workdir dir       parent of the working directory
	-keep              keep the working directory
	-config path       config file
	-d                 debug logging
	-version           show version
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bastiangx/codewords/internal/logger"
	"github.com/bastiangx/codewords/internal/utils"
	"github.com/bastiangx/codewords/pkg/config"
	"github.com/bastiangx/codewords/pkg/pipeline"
	"github.com/bastiangx/codewords/pkg/source"
	"github.com/bastiangx/codewords/pkg/workdir"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const (
	Version = "0.1.0"
	AppName = "wordbuild"
	gh      = "https://github.com/bastiangx/codewords"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	os.Exit(run())
}

// run owns the process lifetime so deferred cleanup happens before exit.
func run() int {
	_ = godotenv.Load()
	defaults := config.DefaultConfig()

	var wordlists, aspells, hunspells, sources listFlag
	flag.Var(&wordlists, "wordlist", "Wordlist file (repeatable)")
	flag.Var(&aspells, "aspell", "Aspell dictionary language (repeatable)")
	flag.Var(&hunspells, "hunspell", "Hunspell dictionary language (repeatable)")
	flag.Var(&sources, "source", "Source descriptor: path, file:path, aspell:lang, hunspell:lang, -, http(s)://... (repeatable)")
	output := flag.String("output", defaults.Build.Output, "Index file to write")
	poolSize := flag.Int("pool-size", defaults.Build.PoolSize, "Number of cleaning workers")
	dedupWorkers := flag.Int("dedup-workers", defaults.Build.DedupWorkers, "Number of dedup workers (0 = pool size)")
	rawChunkMB := flag.Int("raw-chunk-mb", defaults.Build.RawChunkMB, "Raw chunk size in MB")
	cleanChunkMB := flag.Int("clean-chunk-mb", defaults.Build.CleanChunkMB, "Clean chunk size in MB")
	workDir := flag.String("workdir", defaults.Build.Workdir, "Parent directory for the working directory")
	keep := flag.Bool("keep", defaults.Build.Keep, "Keep the working directory after the run")
	configPath := flag.String("config", "", "Path to a config file")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	showVersion := flag.Bool("version", false, "Show current version")
	flag.Parse()

	if *showVersion {
		logger.PrintVersion("wordbuild", "Builds the codewords word index", Version, gh)
		return 0
	}
	logger.SetDebug(*debugMode)
	l := logger.New(AppName)

	cfg, cfgPath, err := config.LoadConfigWithPriority(*configPath, l)
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
		case "output":
			cfg.Build.Output = *output
		case "pool-size":
			cfg.Build.PoolSize = *poolSize
		case "dedup-workers":
			cfg.Build.DedupWorkers = *dedupWorkers
		case "raw-chunk-mb":
			cfg.Build.RawChunkMB = *rawChunkMB
		case "clean-chunk-mb":
			cfg.Build.CleanChunkMB = *cleanChunkMB
		case "workdir":
			cfg.Build.Workdir = *workDir
		case "keep":
			cfg.Build.Keep = *keep
		}
	})
	if err := cfg.Validate(); err != nil {
		l.Errorf("Invalid configuration: %v", err)
		return 2
	}
	if cfg.Build.Output == "" {
		l.Error("-output is required")
		flag.Usage()
		return 2
	}
	l.Debug("config resolved", "path", cfgPath, "pool_size", cfg.Build.PoolSize, "output", cfg.Build.Output)

	providers, err := buildProviders(cfg, wordlists, aspells, hunspells, sources)
	if err == nil {
		err = source.CheckAll(providers)
	}
	if err != nil {
		l.Errorf("Source configuration: %v", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := workdir.New(cfg.Build.Workdir, cfg.Build.Keep, l)
	if err != nil {
		l.Errorf("Failed to create working directory: %v", err)
		return 1
	}
	defer func() {
		if err := dir.Cleanup(); err != nil {
			l.Warn("workdir cleanup failed", "path", dir.Path(), "err", err)
		}
	}()

	p := pipeline.New(dir, pipeline.Options{
		CleanWorkers:    cfg.Build.PoolSize,
		DedupWorkers:    cfg.Build.DedupWorkers,
		RawQueueSize:    cfg.Build.RawQueue,
		CleanQueueSize:  cfg.Build.CleanQueue,
		RawChunkBytes:   int64(cfg.Build.RawChunkMB) << 20,
		CleanChunkBytes: int64(cfg.Build.CleanChunkMB) << 20,
	}, l)

	stats, err := p.Build(ctx, providers, cfg.Build.Output)
	if err != nil {
		if errors.Is(err, source.ErrConfig) {
			l.Errorf("Source configuration: %v", err)
			return 2
		}
		l.Errorf("Build failed: %v", err)
		return 1
	}

	showStats(stats, cfg.Build.Output)
	return 0
}

// buildProviders turns every source flag into a Provider, in flag order per kind.
func buildProviders(cfg *config.Config, wordlists, aspells, hunspells, sources []string) ([]source.Provider, error) {
	opts := source.Options{HunspellDir: cfg.Build.HunspellDir}

	var descriptors []string
	for _, w := range wordlists {
		descriptors = append(descriptors, "file:"+w)
	}
	for _, lang := range aspells {
		descriptors = append(descriptors, "aspell:"+lang)
	}
	for _, lang := range hunspells {
		descriptors = append(descriptors, "hunspell:"+lang)
	}
	descriptors = append(descriptors, sources...)

	var (
		providers []source.Provider
		errs      []error
	)
	for _, d := range descriptors {
		p, err := source.Parse(d, opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		providers = append(providers, p)
	}
	return providers, errors.Join(errs...)
}

// showStats prints the end of run summary.
func showStats(s pipeline.Stats, output string) {
	sl := logger.NewWithConfig(AppName, log.InfoLevel, false, false, log.TextFormatter)

	fmt.Fprintln(os.Stderr, "===========")
	fmt.Fprintln(os.Stderr, " wordbuild ")
	fmt.Fprintln(os.Stderr, "===========")
	sl.Info("run", "id", s.RunID, "elapsed", s.Elapsed.Round(time.Millisecond))
	sl.Info("sources", "count", s.Sources, "lines", utils.FormatWithCommas(s.SourceLines))
	sl.Info("chunks", "raw", s.RawChunks, "clean", s.CleanChunks, "shards", s.Shards)
	sl.Info("records", "kept", utils.FormatWithCommas(s.Records), "dropped", utils.FormatWithCommas(s.Dropped))
	sl.Info("index", "keys", utils.FormatWithCommas(int64(s.Keys)), "duplicates", utils.FormatWithCommas(int64(s.Duplicates)+s.ChunkDups))
	if st, err := os.Stat(output); err == nil {
		sl.Info("output", "path", utils.GetAbsolutePath(output), "size", utils.FormatBytes(st.Size()))
	}
	fmt.Fprintln(os.Stderr, "===========")
}
