package index

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"
)

// Index is a loaded, read-only index. Keys are held sorted for enumeration
// and in a patricia trie for membership, so lookups cost O(len(key)).
// It is safe for concurrent readers.
type Index struct {
	hdr  Header
	keys []string
	trie *patricia.Trie
}

func newIndex(hdr Header, keys []string) *Index {
	trie := patricia.NewTrie()
	for i, key := range keys {
		trie.Insert(patricia.Prefix(key), i)
	}
	hdr.Count = len(keys)
	return &Index{hdr: hdr, keys: keys, trie: trie}
}

// Load reads an index file.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ix, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return ix, nil
}

// Read decodes an index from r.
func Read(r io.Reader) (*Index, error) {
	hdr, keys, err := readIndex(r)
	if err != nil {
		return nil, err
	}
	return newIndex(hdr, keys), nil
}

// Header returns the file header.
func (ix *Index) Header() Header {
	return ix.hdr
}

// Len returns the number of keys.
func (ix *Index) Len() int {
	return len(ix.keys)
}

// At returns the i-th key in ascending order.
func (ix *Index) At(i int) string {
	return ix.keys[i]
}

// Walk calls fn for every key in ascending order and stops at the first error.
func (ix *Index) Walk(fn func(key string) error) error {
	for _, key := range ix.keys {
		if err := fn(key); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether key is in the index.
func (ix *Index) Contains(key string) bool {
	return ix.trie.Get(patricia.Prefix(key)) != nil
}

// Lookup returns the ordinal of key in ascending order.
func (ix *Index) Lookup(key string) (int, bool) {
	item := ix.trie.Get(patricia.Prefix(key))
	if item == nil {
		return 0, false
	}
	return item.(int), true
}

// HasPrefix reports whether any key starts with prefix.
func (ix *Index) HasPrefix(prefix string) bool {
	if prefix == "" {
		return len(ix.keys) > 0
	}
	return ix.trie.MatchSubtree(patricia.Prefix(prefix))
}

// WithPrefix returns up to limit keys starting with prefix, in ascending
// order. A non-positive limit returns all of them.
func (ix *Index) WithPrefix(prefix string, limit int) []string {
	start := sort.SearchStrings(ix.keys, prefix)
	var out []string
	for i := start; i < len(ix.keys); i++ {
		if !strings.HasPrefix(ix.keys[i], prefix) {
			break
		}
		out = append(out, ix.keys[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
