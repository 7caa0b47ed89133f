package docstore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/bastiangx/codewords/internal/logger"
	"github.com/bastiangx/codewords/pkg/queue"
	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

// IDKey is the field that carries a document id when no IDField is set.
const IDKey = "_id"

// IngestOptions configure Ingest.
type IngestOptions struct {
	// Single means the input is one JSON object rather than an array.
	Single bool
	// IDField names the field copied into the document id. Documents whose
	// field is missing, null or empty are skipped.
	IDField   string
	Policy    Policy
	Workers   int
	BatchSize int
	QueueSize int
}

// IngestStats summarizes an Ingest run.
type IngestStats struct {
	Read    int64
	Skipped int64
	SinkStats
}

// Ingest streams JSON documents from r into b. Decoding happens on the
// calling goroutine; Workers sinks drain a bounded queue and stop on their
// sentinel once the input is exhausted.
func Ingest(ctx context.Context, r io.Reader, b Backend, opts IngestOptions, l *log.Logger) (IngestStats, error) {
	l = logger.OrDiscard(l)
	if opts.Workers < 1 {
		opts.Workers = 2
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 50
	}

	var stats IngestStats
	q, err := queue.New[Document](opts.QueueSize)
	if err != nil {
		return stats, err
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	sinks := make([]*Sink, opts.Workers)
	var g errgroup.Group
	for i := range sinks {
		sinks[i] = NewSink(b, opts.Policy, opts.BatchSize, l.With("worker", i))
		sink := sinks[i]
		g.Go(func() error {
			err := drain(ctx, q, sink)
			if err != nil {
				cancel(err)
			}
			return err
		})
	}

	readErr := decodeDocuments(r, opts, func(doc map[string]any) error {
		stats.Read++
		d, ok := toDocument(doc, opts.IDField)
		if !ok {
			stats.Skipped++
			l.Warn("skipping null id", "doc", doc)
			return nil
		}
		return q.Put(ctx, d)
	})
	if readErr != nil {
		cancel(readErr)
	} else if err := q.Stop(ctx, opts.Workers); err != nil {
		cancel(err)
	}
	_ = g.Wait()

	for _, s := range sinks {
		st := s.Stats()
		stats.Written += st.Written
		stats.Unchanged += st.Unchanged
		stats.Ignored += st.Ignored
	}
	return stats, context.Cause(ctx)
}

func drain(ctx context.Context, q *queue.Queue[Document], s *Sink) error {
	for {
		d, ok, err := q.Get(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return s.Close(ctx)
		}
		if err := s.Add(ctx, d); err != nil {
			return err
		}
	}
}

func decodeDocuments(r io.Reader, opts IngestOptions, fn func(map[string]any) error) error {
	dec := json.NewDecoder(bufio.NewReader(r))
	if opts.Single {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			return fmt.Errorf("decode document: %w", err)
		}
		return fn(doc)
	}

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return errors.New("decode input: expected a JSON array of objects")
	}
	for dec.More() {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			return fmt.Errorf("decode document: %w", err)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}

func toDocument(fields map[string]any, idField string) (Document, bool) {
	key := IDKey
	if idField != "" {
		key = idField
	}
	id := idString(fields[key])
	if id == "" {
		if idField != "" {
			return Document{}, false
		}
		id = ulid.Make().String()
	}
	delete(fields, IDKey)
	return Document{ID: id, Fields: fields}, true
}

func idString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
