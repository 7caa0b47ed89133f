package docstore

import (
	"context"
	"sync/atomic"

	"github.com/bastiangx/codewords/internal/logger"
	"github.com/charmbracelet/log"
)

// DefaultBatchSize is how many documents a Sink buffers before writing.
const DefaultBatchSize = 100

// SinkStats counts what a Sink did with its documents.
type SinkStats struct {
	Written   int64
	Unchanged int64
	Ignored   int64
}

// Sink buffers documents and writes them in batches, applying a Policy to
// ids that already exist. A Sink belongs to one goroutine; several sinks may
// share a Backend.
type Sink struct {
	backend   Backend
	policy    Policy
	batchSize int
	pending   []Document
	log       *log.Logger

	written   atomic.Int64
	unchanged atomic.Int64
	ignored   atomic.Int64
}

// NewSink creates a sink. A non-positive batchSize uses DefaultBatchSize.
func NewSink(b Backend, p Policy, batchSize int, l *log.Logger) *Sink {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Sink{
		backend:   b,
		policy:    p,
		batchSize: batchSize,
		pending:   make([]Document, 0, batchSize),
		log:       logger.OrDiscard(l),
	}
}

// Add queues doc and flushes once the batch is full.
func (s *Sink) Add(ctx context.Context, doc Document) error {
	s.pending = append(s.pending, doc)
	if len(s.pending) >= s.batchSize {
		return s.Flush(ctx)
	}
	return nil
}

// Flush resolves the pending documents against the store and writes the
// ones that changed. Later documents in a batch see earlier ones.
func (s *Sink) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	ids := make([]string, 0, len(s.pending))
	for _, d := range s.pending {
		ids = append(ids, d.ID)
	}
	stored, err := s.backend.Get(ctx, ids)
	if err != nil {
		return err
	}

	order := make([]string, 0, len(s.pending))
	writes := make(map[string]Document, len(s.pending))
	for _, d := range s.pending {
		var current *Document
		if w, ok := writes[d.ID]; ok {
			current = &w
		} else if st, ok := stored[d.ID]; ok {
			current = &st
		}

		out, write := Resolve(current, d, s.policy)
		if !write {
			if current != nil && s.policy == PolicyIgnore && !subset(d.Fields, current.Fields) {
				s.ignored.Add(1)
			} else {
				s.unchanged.Add(1)
			}
			continue
		}
		if current != nil {
			s.log.Debug("updating existing document", "id", d.ID, "policy", s.policy)
		}
		if _, seen := writes[d.ID]; !seen {
			order = append(order, d.ID)
		}
		writes[d.ID] = out
	}

	batch := make([]Document, 0, len(order))
	for _, id := range order {
		batch = append(batch, writes[id])
	}
	if err := s.backend.Put(ctx, batch); err != nil {
		return err
	}
	s.written.Add(int64(len(batch)))
	s.pending = s.pending[:0]
	return nil
}

// Close flushes what is left.
func (s *Sink) Close(ctx context.Context) error {
	return s.Flush(ctx)
}

// Stats returns the counters so far.
func (s *Sink) Stats() SinkStats {
	return SinkStats{
		Written:   s.written.Load(),
		Unchanged: s.unchanged.Load(),
		Ignored:   s.ignored.Load(),
	}
}
