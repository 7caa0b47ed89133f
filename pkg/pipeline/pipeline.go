// Package pipeline runs the wordlist ingestion: sources are split into raw
// chunks, a pool of cleaning workers normalizes them, a pool of dedup
// workers collapses each clean chunk into a shard, and finally every shard
// is streamed into the index builder.
//
// Stages share nothing but bounded queues and the working directory. A file
// path put on a queue transfers ownership of the file to whoever takes it.
// Shutdown follows the sentinel protocol: producers are joined, one sentinel
// per cleaning worker is queued, cleaners are joined, one sentinel per dedup
// worker is queued, dedupers are joined, and only then are shards read. The
// first I/O failure cancels the run; every blocked stage returns and the
// failure is reported.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bastiangx/codewords/internal/logger"
	"github.com/bastiangx/codewords/pkg/index"
	"github.com/bastiangx/codewords/pkg/queue"
	"github.com/bastiangx/codewords/pkg/source"
	"github.com/bastiangx/codewords/pkg/workdir"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const mb = 1 << 20

// Options size the worker pools, queues and chunks.
type Options struct {
	CleanWorkers    int
	DedupWorkers    int
	RawQueueSize    int
	CleanQueueSize  int
	RawChunkBytes   int64
	CleanChunkBytes int64
}

// DefaultOptions returns the stock build settings.
func DefaultOptions() Options {
	return Options{
		CleanWorkers:    3,
		DedupWorkers:    3,
		RawQueueSize:    8,
		CleanQueueSize:  20,
		RawChunkBytes:   50 * mb,
		CleanChunkBytes: 10 * mb,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CleanWorkers <= 0 {
		o.CleanWorkers = d.CleanWorkers
	}
	if o.DedupWorkers <= 0 {
		o.DedupWorkers = o.CleanWorkers
	}
	if o.RawQueueSize <= 0 {
		o.RawQueueSize = d.RawQueueSize
	}
	if o.CleanQueueSize <= 0 {
		o.CleanQueueSize = d.CleanQueueSize
	}
	if o.RawChunkBytes <= 0 {
		o.RawChunkBytes = d.RawChunkBytes
	}
	if o.CleanChunkBytes <= 0 {
		o.CleanChunkBytes = d.CleanChunkBytes
	}
	return o
}

// Stats summarizes a run.
type Stats struct {
	RunID       string
	Sources     int
	SourceLines int64
	RawChunks   int64
	CleanChunks int64
	Shards      int64
	Records     int64
	Dropped     int64
	ShardLines  int64
	ChunkDups   int64
	Keys        int
	Duplicates  int
	Elapsed     time.Duration
}

type counters struct {
	sourceLines atomic.Int64
	rawChunks   atomic.Int64
	cleanChunks atomic.Int64
	shards      atomic.Int64
	records     atomic.Int64
	dropped     atomic.Int64
	shardLines  atomic.Int64
	chunkDups   atomic.Int64
}

// Pipeline is one build run over a working directory.
type Pipeline struct {
	opts  Options
	dir   *workdir.Dir
	log   *log.Logger
	runID string
	c     counters
}

// New prepares a run. Zero option fields take their defaults; DedupWorkers
// defaults to CleanWorkers.
func New(dir *workdir.Dir, opts Options, l *log.Logger) *Pipeline {
	runID := uuid.NewString()
	return &Pipeline{
		opts:  opts.withDefaults(),
		dir:   dir,
		log:   logger.OrDiscard(l).With("run", runID[:8]),
		runID: runID,
	}
}

// RunID identifies this run in logs and in the index header.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Options returns the effective options.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Build ingests every provider and writes the resulting index to output.
// Configuration errors are reported before any work starts and wrap
// source.ErrConfig.
func (p *Pipeline) Build(ctx context.Context, providers []source.Provider, output string) (Stats, error) {
	start := time.Now()

	shards, err := p.Ingest(ctx, providers)
	if err != nil {
		return p.Stats(start, nil, len(providers)), err
	}

	b, err := p.BuildIndex(ctx, shards)
	if err != nil {
		return p.Stats(start, nil, len(providers)), err
	}
	if err := b.Save(output); err != nil {
		return p.Stats(start, b, len(providers)), fmt.Errorf("save index: %w", err)
	}
	p.log.Info("index written", "path", output, "keys", b.Len())
	return p.Stats(start, b, len(providers)), nil
}

// Ingest runs the producer, cleaning and dedup stages and returns the shard
// paths once every dedup worker has exited.
func (p *Pipeline) Ingest(ctx context.Context, providers []source.Provider) ([]string, error) {
	if err := source.CheckAll(providers); err != nil {
		return nil, err
	}
	for _, pr := range providers {
		p.log.Info("source ready", "source", pr.Name())
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	raw, err := queue.New[string](p.opts.RawQueueSize)
	if err != nil {
		return nil, err
	}
	clean, err := queue.New[string](p.opts.CleanQueueSize)
	if err != nil {
		return nil, err
	}

	var producers, cleaners, dedupers errgroup.Group
	spawn := func(g *errgroup.Group, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				cancel(err)
				return err
			}
			return nil
		})
	}

	for _, pr := range providers {
		spawn(&producers, func() error { return p.produce(ctx, pr, raw) })
	}
	for i := 0; i < p.opts.CleanWorkers; i++ {
		spawn(&cleaners, func() error { return p.cleanWorker(ctx, i, raw, clean) })
	}
	for i := 0; i < p.opts.DedupWorkers; i++ {
		spawn(&dedupers, func() error { return p.dedupWorker(ctx, i, clean) })
	}

	if producers.Wait() == nil {
		p.log.Debug("sources done, stopping cleaners", "workers", p.opts.CleanWorkers)
		if err := raw.Stop(ctx, p.opts.CleanWorkers); err != nil {
			cancel(err)
		}
	}
	if cleaners.Wait() == nil {
		p.log.Debug("cleaners done, stopping dedupers", "workers", p.opts.DedupWorkers)
		if err := clean.Stop(ctx, p.opts.DedupWorkers); err != nil {
			cancel(err)
		}
	}
	_ = dedupers.Wait()

	if err := context.Cause(ctx); err != nil {
		return nil, err
	}
	return p.dir.Glob(workdir.StageShard)
}

// Stats snapshots the run counters. b may be nil when no index was built.
func (p *Pipeline) Stats(start time.Time, b *index.Builder, sources int) Stats {
	s := Stats{
		RunID:       p.runID,
		Sources:     sources,
		SourceLines: p.c.sourceLines.Load(),
		RawChunks:   p.c.rawChunks.Load(),
		CleanChunks: p.c.cleanChunks.Load(),
		Shards:      p.c.shards.Load(),
		Records:     p.c.records.Load(),
		Dropped:     p.c.dropped.Load(),
		ShardLines:  p.c.shardLines.Load(),
		ChunkDups:   p.c.chunkDups.Load(),
		Elapsed:     time.Since(start),
	}
	if b != nil {
		s.Keys = b.Len()
		s.Duplicates = b.Duplicates()
	}
	return s
}
