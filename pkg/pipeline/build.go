package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/bastiangx/codewords/pkg/index"
)

// BuildIndex streams every shard into a new index builder. Shards are read
// in the order given, each in file order. Zero shards yield an empty index.
func (p *Pipeline) BuildIndex(ctx context.Context, shards []string) (*index.Builder, error) {
	b := index.NewBuilder()
	b.SetRunID(p.runID)

	p.log.Info("making trie", "shards", len(shards))
	for _, path := range shards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := addShard(b, path); err != nil {
			return nil, err
		}
	}
	p.log.Debug("trie ready", "keys", b.Len(), "duplicates", b.Duplicates())
	return b, nil
}

func addShard(b *index.Builder, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := b.AddLines(f); err != nil {
		return fmt.Errorf("read shard %s: %w", path, err)
	}
	return nil
}
