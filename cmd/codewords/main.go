// Copyright 2025 The Codewords Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements codewords, the word segmenter and index query tool.

codewords loads an index built by wordbuild and a reference code set, and
lists every indexed word that splits completely into codes from the set.
With the IATA airport code list, ROMA is not a match but FCOMIA is, as
FCO + MIA.

# Usage

Print every segmentable word, one per line:

	codewords -codes iata.txt -index words.cwix

Separate the codes and keep only words made of two to four codes:

	codewords -codes iata.txt -index words.cwix -format spaced -min-size 6 -max-size 12

Bounds are rounded to whole codes: a minimum of 4 becomes 6 and a maximum of
10 becomes 9, both logged once at startup. A negative -max-size means no
upper bound.

The code set may come from a local file, an http(s) URL, or a document
store written by docingest:

	codewords -codes 'sqlite://airports.db?table=airports&field=iata' -index words.cwix
	codewords -codes 'postgres://localhost/geo?table=airports' -index words.cwix

# Query Modes

Besides batch segmentation the loaded index can be queried.

-serve runs a MessagePack IPC server on stdin/stdout. The first message is a
ready status; every request gets one response:

	{"id": "q1", "action": "contains", "q": "ROMA"}
	{"id": "q1", "status": "ok", "f": true, "t": 12}

	{"id": "q2", "action": "prefix", "q": "FCO", "l": 5}
	{"id": "q3", "action": "segment", "q": "FCOMIA"}
	{"id": "q4", "action": "info"}

-http serves the same queries as JSON:

	GET /health
	GET /v1/info
	GET /v1/contains/{word}
	GET /v1/prefix/{prefix}?limit=20
	GET /v1/segment/{word}

-c runs an interactive explorer reading words from stdin. The code set is
optional in the query modes; without it the segment action is unavailable.

# Configuration

Flags default from the [segment] and [server] sections of the config file:

	[segment]
	codes = "iata.txt"
	index = "words.cwix"
	code_len = 3
	min_size = 0
	max_size = -1
	format = "plain"

	[server]
	http_addr = ":8080"
	default_limit = 10

CODEWORDS_* variables, read from the environment or a .env file, override
the file; explicit flags override both.

# Command Line Flags

	-codes url        code set location (alias -iata-codes)
	-index path       index built by wordbuild
	-code-len n       code length
	-min-size n       minimum word length
	-max-size n       maximum word length, negative for none
	-format f         plain or spaced
	-serve            MessagePack IPC on stdin/stdout
	-http addr        HTTP query server
	-c                interactive explorer
	-limit n          prefix matches per query
	-config path      config file
	-d                debug logging
	-version          show version
*/
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bastiangx/codewords/internal/cli"
	"github.com/bastiangx/codewords/internal/logger"
	"github.com/bastiangx/codewords/internal/utils"
	"github.com/bastiangx/codewords/pkg/codes"
	"github.com/bastiangx/codewords/pkg/config"
	"github.com/bastiangx/codewords/pkg/index"
	"github.com/bastiangx/codewords/pkg/segment"
	"github.com/bastiangx/codewords/pkg/server"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const (
	Version = "0.1.0"
	AppName = "codewords"
	gh      = "https://github.com/bastiangx/codewords"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	defaults := config.DefaultConfig()

	codesURL := flag.String("codes", defaults.Segment.Codes, "Code set location: path, file://, http(s)://, sqlite://, postgres://")
	flag.StringVar(codesURL, "iata-codes", defaults.Segment.Codes, "Alias of -codes")
	indexPath := flag.String("index", defaults.Segment.Index, "Index file built by wordbuild")
	codeLen := flag.Int("code-len", defaults.Segment.CodeLen, "Length of every code")
	minSize := flag.Int("min-size", defaults.Segment.MinSize, "Minimum word length")
	maxSize := flag.Int("max-size", defaults.Segment.MaxSize, "Maximum word length (negative = unbounded)")
	format := flag.String("format", defaults.Segment.Format, "Output format: plain or spaced")
	serveMode := flag.Bool("serve", false, "Run the MessagePack IPC server on stdin/stdout")
	httpAddr := flag.String("http", "", "Run the HTTP query server on this address")
	cliMode := flag.Bool("c", false, "Run the interactive explorer")
	limit := flag.Int("limit", defaults.Server.DefaultLimit, "Number of prefix matches to return")
	configPath := flag.String("config", "", "Path to a config file")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	showVersion := flag.Bool("version", false, "Show current version")
	flag.Parse()

	if *showVersion {
		logger.PrintVersion("codewords", "Finds words made of codes", Version, gh)
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
		case "codes", "iata-codes":
			cfg.Segment.Codes = *codesURL
		case "index":
			cfg.Segment.Index = *indexPath
		case "code-len":
			cfg.Segment.CodeLen = *codeLen
		case "min-size":
			cfg.Segment.MinSize = *minSize
		case "max-size":
			cfg.Segment.MaxSize = *maxSize
		case "format":
			cfg.Segment.Format = *format
		case "limit":
			cfg.Server.DefaultLimit = *limit
		}
	})
	if err := cfg.Validate(); err != nil {
		l.Errorf("Invalid configuration: %v", err)
		return 2
	}
	queryMode := *serveMode || *httpAddr != "" || *cliMode

	if cfg.Segment.Index == "" {
		l.Error("-index is required")
		flag.Usage()
		return 2
	}
	if cfg.Segment.Codes == "" && !queryMode {
		l.Error("-codes is required")
		flag.Usage()
		return 2
	}
	outFormat, err := segment.ParseFormat(cfg.Segment.Format)
	if err != nil {
		l.Error(err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	indexFile := cfg.Segment.Index
	if pr, err := utils.NewPathResolver(); err == nil {
		indexFile = pr.ResolveIndexPath(indexFile)
	}
	ix, err := index.Load(indexFile)
	if err != nil {
		l.Errorf("Failed to load index: %v", err)
		return 1
	}
	l.Debug("index loaded", "path", indexFile, "keys", ix.Len(), "run", ix.Header().RunID)

	// Info level so the one-time bounds adjustment is always reported.
	segLog := logger.NewWithConfig(AppName, min(log.GetLevel(), log.InfoLevel), false, false, log.TextFormatter)

	var seg *segment.Segmenter
	if cfg.Segment.Codes != "" {
		cs, err := codes.Open(ctx, cfg.Segment.Codes, cfg.Segment.CodeLen, l)
		if err != nil {
			l.Errorf("Failed to load codes: %v", err)
			if errors.Is(err, codes.ErrScheme) || errors.Is(err, segment.ErrCodeLen) {
				return 2
			}
			return 1
		}
		seg = segment.New(cs, segment.Bounds{Min: cfg.Segment.MinSize, Max: cfg.Segment.MaxSize}, segLog)
	}

	switch {
	case *cliMode:
		log.SetReportTimestamp(false)
		cl := logger.NewWithConfig("", log.InfoLevel, false, false, log.TextFormatter)
		if err := cli.NewInputHandler(ix, seg, cfg.Server.DefaultLimit, cl).Start(os.Stdin); err != nil {
			l.Errorf("CLI error: %v", err)
			return 1
		}
		return 0

	case *serveMode:
		showStartupInfo(indexFile, ix.Len())
		if err := server.New(ix, seg, l).Serve(ctx, os.Stdin, os.Stdout); err != nil {
			l.Errorf("IPC server: %v", err)
			return 1
		}
		return 0

	case *httpAddr != "":
		return serveHTTP(ctx, *httpAddr, server.New(ix, seg, l), l)
	}

	w := bufio.NewWriterSize(os.Stdout, 64<<10)
	n, err := seg.WriteAll(w, ix, outFormat)
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		l.Errorf("Segmentation failed: %v", err)
		return 1
	}
	l.Debug("segmentation done", "words", n, "bounds", seg.Bounds().String())
	return 0
}

// serveHTTP runs the query router until ctx is cancelled.
func serveHTTP(ctx context.Context, addr string, s *server.Server, l *log.Logger) int {
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(s),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	l.Warn("http server listening", "addr", addr)

	select {
	case err := <-errc:
		l.Errorf("HTTP server: %v", err)
		return 1
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Errorf("HTTP shutdown: %v", err)
		return 1
	}
	return 0
}

// showStartupInfo displays some basic info about the IPC server on stderr.
func showStartupInfo(indexFile string, keys int) {
	il := logger.NewWithConfig(AppName, log.InfoLevel, false, false, log.TextFormatter)
	il.Infof("Version: %s", Version)
	il.Infof("Process ID: [ %d ]", os.Getpid())
	il.Infof("index: ( %s ) keys=%d", indexFile, keys)
	il.Info("status: ready")
}
