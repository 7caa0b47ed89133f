// Package docstore is the ingestion sink: it writes JSON-like documents
// keyed by id into a table, deciding per document what happens when the id
// already exists. Writes are batched.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// ErrPolicy is returned for an unknown existing-document policy.
var ErrPolicy = errors.New("docstore: unknown policy")

// Policy decides what happens when a document id already exists.
type Policy int

const (
	// PolicyIgnore keeps the stored document.
	PolicyIgnore Policy = iota
	// PolicyOverwrite replaces the stored document.
	PolicyOverwrite
	// PolicyMerge updates the stored fields with the incoming ones.
	PolicyMerge
)

func (p Policy) String() string {
	switch p {
	case PolicyIgnore:
		return "ignore"
	case PolicyOverwrite:
		return "overwrite"
	case PolicyMerge:
		return "merge"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy accepts overwrite, merge, ignore and update, an alias of merge.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ignore", "":
		return PolicyIgnore, nil
	case "overwrite":
		return PolicyOverwrite, nil
	case "merge", "update":
		return PolicyMerge, nil
	}
	return PolicyIgnore, fmt.Errorf("%w: %q", ErrPolicy, s)
}

// Document is one record: an id plus arbitrary fields.
type Document struct {
	ID     string
	Fields map[string]any
}

// Backend persists documents. Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the stored documents among ids, keyed by id.
	Get(ctx context.Context, ids []string) (map[string]Document, error)
	// Put upserts docs, replacing stored fields entirely.
	Put(ctx context.Context, docs []Document) error
	// Walk visits every stored document in id order.
	Walk(ctx context.Context, fn func(Document) error) error
	Close() error
}

// Resolve decides what to store for incoming given the stored document, if
// any. write is false when nothing needs to be written: the incoming fields
// are already part of the stored document, or the policy is ignore.
func Resolve(stored *Document, incoming Document, p Policy) (out Document, write bool) {
	if stored == nil {
		return incoming, true
	}
	if subset(incoming.Fields, stored.Fields) {
		return *stored, false
	}
	switch p {
	case PolicyOverwrite:
		return incoming, true
	case PolicyMerge:
		merged := make(map[string]any, len(stored.Fields)+len(incoming.Fields))
		for k, v := range stored.Fields {
			merged[k] = v
		}
		for k, v := range incoming.Fields {
			merged[k] = v
		}
		return Document{ID: incoming.ID, Fields: merged}, true
	default:
		return *stored, false
	}
}

func subset(a, b map[string]any) bool {
	for k, v := range a {
		bv, ok := b[k]
		if !ok || !reflect.DeepEqual(v, bv) {
			return false
		}
	}
	return true
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

func checkTable(name string) error {
	if !tableName.MatchString(name) {
		return fmt.Errorf("docstore: invalid table name %q", name)
	}
	return nil
}
