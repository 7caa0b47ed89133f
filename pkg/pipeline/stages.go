package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bastiangx/codewords/internal/utils"
	"github.com/bastiangx/codewords/pkg/normalize"
	"github.com/bastiangx/codewords/pkg/queue"
	"github.com/bastiangx/codewords/pkg/rotate"
	"github.com/bastiangx/codewords/pkg/source"
	"github.com/bastiangx/codewords/pkg/workdir"
)

func (p *Pipeline) produce(ctx context.Context, pr source.Provider, raw *queue.Queue[string]) error {
	l := p.log.With("source", pr.Name())
	l.Debug("start source")

	r := rotate.New(p.dir, workdir.StageRaw, p.opts.RawChunkBytes, raw, l)
	lines, err := source.Chunk(ctx, pr, r)
	p.c.sourceLines.Add(lines)
	p.c.rawChunks.Add(int64(r.Published()))
	if err != nil {
		return err
	}
	l.Info("source done", "lines", utils.FormatWithCommas(lines), "chunks", r.Published())
	return nil
}

// cleanWorker normalizes raw chunks until it receives its sentinel. Every
// raw chunk is cleaned into its own rotated run of clean chunks.
func (p *Pipeline) cleanWorker(ctx context.Context, id int, raw, clean *queue.Queue[string]) error {
	l := p.log.With("stage", "clean", "worker", id)
	l.Debug("worker started")

	norm := normalize.New()
	for {
		path, ok, err := raw.Get(ctx)
		if err != nil {
			return err
		}
		if !ok {
			l.Debug("got sentinel, exiting")
			return nil
		}

		r := rotate.New(p.dir, workdir.StageClean, p.opts.CleanChunkBytes, clean, l)
		if err := p.cleanChunk(ctx, path, norm, r); err != nil {
			r.Abort()
			return fmt.Errorf("clean %s: %w", path, err)
		}
		if err := r.Close(ctx); err != nil {
			return err
		}
		p.c.cleanChunks.Add(int64(r.Published()))
	}
}

func (p *Pipeline) cleanChunk(ctx context.Context, path string, norm *normalize.Normalizer, r *rotate.Rotator) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		tokens  []string
		kept    int64
		dropped int64
	)
	err = eachLine(f, func(line string) error {
		tokens = norm.Append(tokens[:0], line)
		if len(tokens) == 0 {
			dropped++
			return nil
		}
		for _, tok := range tokens {
			if err := r.WriteLine(ctx, tok); err != nil {
				return err
			}
		}
		kept += int64(len(tokens))
		return nil
	})
	p.c.records.Add(kept)
	p.c.dropped.Add(dropped)
	if err != nil {
		return err
	}
	return p.dir.Remove(path)
}

// dedupWorker collapses each clean chunk into a shard of distinct lines.
func (p *Pipeline) dedupWorker(ctx context.Context, id int, clean *queue.Queue[string]) error {
	l := p.log.With("stage", "dedup", "worker", id)
	l.Debug("worker started")

	for {
		path, ok, err := clean.Get(ctx)
		if err != nil {
			return err
		}
		if !ok {
			l.Debug("got sentinel, exiting")
			return nil
		}
		if err := p.dedupChunk(path); err != nil {
			return fmt.Errorf("dedup %s: %w", path, err)
		}
	}
}

func (p *Pipeline) dedupChunk(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	set := utils.NewLineSet(0)
	err = eachLine(f, func(line string) error {
		set.Add(line)
		return nil
	})
	f.Close()
	if err != nil {
		return err
	}
	if err := p.dir.Remove(path); err != nil {
		return err
	}

	if set.Len() == 0 {
		return nil
	}
	out, err := p.dir.Create(workdir.StageShard)
	if err != nil {
		return err
	}
	w := bufio.NewWriterSize(out, 64*1024)
	for _, line := range set.Lines() {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	err = w.Flush()
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out.Name())
		return err
	}

	p.c.shards.Add(1)
	p.c.shardLines.Add(int64(set.Len()))
	p.c.chunkDups.Add(int64(set.Duplicates()))
	return nil
}

// eachLine calls fn with every line of r, without the line terminator.
func eachLine(r io.Reader, fn func(line string) error) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if ferr := fn(strings.TrimRight(line, "\r\n")); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
