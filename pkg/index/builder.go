// Package index implements the persisted, ordered string index produced by
// the ingestion pipeline and queried by the segmenter.
//
// Construction goes through a patricia trie, which makes the Builder a true
// set: residual duplicates left by per-chunk dedup collapse on insertion.
// The file stores the keys sorted and front-coded inside a zstd stream.
package index

import (
	"bufio"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/bastiangx/codewords/internal/utils"
	"github.com/google/uuid"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Builder accumulates distinct keys. It is not safe for concurrent use.
type Builder struct {
	trie  *patricia.Trie
	count int
	dups  int
	runID string
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		trie:  patricia.NewTrie(),
		runID: uuid.NewString(),
	}
}

// SetRunID tags the persisted header with the id of the build run.
func (b *Builder) SetRunID(id string) {
	b.runID = id
}

// Add inserts key and reports whether it was new. Empty keys are ignored.
func (b *Builder) Add(key string) bool {
	if key == "" {
		return false
	}
	if b.trie.Insert(patricia.Prefix(key), true) {
		b.count++
		return true
	}
	b.dups++
	return false
}

// AddLines inserts every non-empty line of r and returns the number of lines read.
func (b *Builder) AddLines(r io.Reader) (int, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	n := 0
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			n++
			b.Add(strings.TrimRight(line, "\r\n"))
		}
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}

// Len returns the number of distinct keys.
func (b *Builder) Len() int {
	return b.count
}

// Duplicates returns how many Add calls hit an existing key.
func (b *Builder) Duplicates() int {
	return b.dups
}

// Keys returns the distinct keys in ascending byte order.
func (b *Builder) Keys() []string {
	keys := make([]string, 0, b.count)
	_ = b.trie.Visit(func(p patricia.Prefix, _ patricia.Item) error {
		keys = append(keys, string(p))
		return nil
	})
	sort.Strings(keys)
	return keys
}

// Header returns the header Write would persist now.
func (b *Builder) Header() Header {
	return Header{
		Version:     Version,
		Count:       b.count,
		RunID:       b.runID,
		CreatedUnix: time.Now().Unix(),
	}
}

// Write serializes the index to w.
func (b *Builder) Write(w io.Writer) error {
	return writeIndex(w, b.Header(), b.Keys())
}

// Save writes the index to path atomically; readers never see a partial file.
func (b *Builder) Save(path string) error {
	return utils.WriteFileAtomic(path, b.Write)
}

// Index returns an in-memory Index over the current keys.
func (b *Builder) Index() *Index {
	return newIndex(b.Header(), b.Keys())
}
