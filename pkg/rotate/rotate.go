// Package rotate bounds the size of the chunk files a stage writes and hands
// every completed chunk to the next stage.
package rotate

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/bastiangx/codewords/internal/logger"
	"github.com/bastiangx/codewords/pkg/queue"
	"github.com/bastiangx/codewords/pkg/workdir"
	"github.com/charmbracelet/log"
)

// Rotator writes lines into stage files of roughly limit bytes. Once the
// current file grows past limit it is closed and its path published on out;
// the next line opens a fresh file. A Rotator belongs to one worker.
type Rotator struct {
	dir   *workdir.Dir
	stage workdir.Stage
	limit int64
	out   *queue.Queue[string]
	log   *log.Logger

	f    *os.File
	w    *bufio.Writer
	size int64

	published int
	written   int64
}

// New creates a Rotator. A non-positive limit disables rotation, so every
// line goes into a single chunk published on Close.
func New(dir *workdir.Dir, stage workdir.Stage, limit int64, out *queue.Queue[string], l *log.Logger) *Rotator {
	return &Rotator{
		dir:   dir,
		stage: stage,
		limit: limit,
		out:   out,
		log:   logger.OrDiscard(l),
	}
}

// WriteLine appends line plus a newline, rotating when the chunk is full.
// Publishing blocks while the downstream queue is full.
func (r *Rotator) WriteLine(ctx context.Context, line string) error {
	if r.f == nil {
		if err := r.open(); err != nil {
			return err
		}
	}
	n, err := r.w.WriteString(line)
	if err == nil {
		err = r.w.WriteByte('\n')
		n++
	}
	if err != nil {
		return fmt.Errorf("write %s chunk: %w", r.stage, err)
	}
	r.size += int64(n)
	r.written += int64(n)

	if r.limit > 0 && r.size > r.limit {
		r.log.Debug("rotating output", "stage", r.stage, "bytes", r.size)
		return r.publish(ctx)
	}
	return nil
}

// Close publishes the last, possibly undersized chunk. An empty chunk is
// removed instead of published.
func (r *Rotator) Close(ctx context.Context) error {
	if r.f == nil {
		return nil
	}
	if r.size == 0 {
		path := r.f.Name()
		r.f.Close()
		r.f, r.w = nil, nil
		return r.dir.Remove(path)
	}
	r.log.Debug("send last piece", "stage", r.stage, "bytes", r.size)
	return r.publish(ctx)
}

// Abort drops the chunk in progress. Used when the owning worker fails.
func (r *Rotator) Abort() {
	if r.f == nil {
		return
	}
	path := r.f.Name()
	r.f.Close()
	r.f, r.w = nil, nil
	_ = os.Remove(path)
}

// Published returns how many chunks were handed downstream.
func (r *Rotator) Published() int {
	return r.published
}

// Written returns the total bytes written across all chunks.
func (r *Rotator) Written() int64 {
	return r.written
}

func (r *Rotator) open() error {
	f, err := r.dir.Create(r.stage)
	if err != nil {
		return err
	}
	r.f = f
	r.w = bufio.NewWriterSize(f, 64*1024)
	r.size = 0
	return nil
}

func (r *Rotator) publish(ctx context.Context) error {
	path := r.f.Name()
	if err := r.w.Flush(); err != nil {
		r.Abort()
		return fmt.Errorf("flush %s chunk: %w", r.stage, err)
	}
	if err := r.f.Close(); err != nil {
		r.f, r.w = nil, nil
		_ = os.Remove(path)
		return fmt.Errorf("close %s chunk: %w", r.stage, err)
	}
	r.f, r.w = nil, nil
	r.size = 0

	// The file now belongs to whoever dequeues it.
	if err := r.out.Put(ctx, path); err != nil {
		_ = os.Remove(path)
		return err
	}
	r.published++
	return nil
}
