package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bastiangx/codewords/pkg/index"
	"github.com/bastiangx/codewords/pkg/normalize"
	"github.com/bastiangx/codewords/pkg/source"
	"github.com/bastiangx/codewords/pkg/workdir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallOptions force many tiny chunks so rotation and hand-off are exercised.
func smallOptions() Options {
	return Options{
		CleanWorkers:    4,
		DedupWorkers:    3,
		RawQueueSize:    2,
		CleanQueueSize:  2,
		RawChunkBytes:   64,
		CleanChunkBytes: 32,
	}
}

func newPipeline(t *testing.T, opts Options) (*Pipeline, *workdir.Dir) {
	t.Helper()
	dir, err := workdir.New(t.TempDir(), false, nil)
	require.NoError(t, err)
	t.Cleanup(func() { dir.Cleanup() })
	return New(dir, opts, nil), dir
}

func corpus(n int) string {
	var b strings.Builder
	words := []string{"Città", "roma", "ROMA", "l'isola", "Milano-Torino", "über", "café", "x1y", "...", "Rom.Mia", "FCO"}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%s\n", words[i%len(words)])
		fmt.Fprintf(&b, "word%c%c\n", 'a'+rune(i%26), 'a'+rune((i/26)%26))
	}
	return b.String()
}

func expectedSet(texts ...string) map[string]bool {
	norm := normalize.New()
	want := map[string]bool{}
	for _, text := range texts {
		for _, line := range strings.Split(text, "\n") {
			for _, tok := range norm.Normalize(line) {
				want[tok] = true
			}
		}
	}
	return want
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestIngestShardsAreUniqueAndCoverCorpus(t *testing.T) {
	p, dir := newPipeline(t, smallOptions())
	a, b := corpus(300), corpus(180)

	shards, err := p.Ingest(context.Background(), []source.Provider{
		source.NewReader("a", strings.NewReader(a)),
		source.NewReader("b", strings.NewReader(b)),
	})
	require.NoError(t, err)
	require.NotEmpty(t, shards)

	union := map[string]bool{}
	for _, shard := range shards {
		seen := map[string]bool{}
		for _, line := range readLines(t, shard) {
			assert.False(t, seen[line], "duplicate %q in shard %s", line, filepath.Base(shard))
			seen[line] = true
			union[line] = true
		}
	}
	assert.Equal(t, expectedSet(a, b), union)

	// consumed chunks are gone
	for _, stage := range []workdir.Stage{workdir.StageRaw, workdir.StageClean} {
		left, err := dir.Glob(stage)
		require.NoError(t, err)
		assert.Empty(t, left, "stage %s", stage)
	}

	s := p.Stats(time.Now(), nil, 2)
	assert.EqualValues(t, len(shards), s.Shards)
	assert.Greater(t, s.RawChunks, int64(1))
	assert.Greater(t, s.CleanChunks, int64(1))
	assert.Positive(t, s.Dropped)
}

func TestBuildIndexEqualsUnionOfShards(t *testing.T) {
	p, _ := newPipeline(t, smallOptions())
	text := corpus(250)
	out := filepath.Join(t.TempDir(), "words.cwix")

	stats, err := p.Build(context.Background(), []source.Provider{
		source.NewReader("a", strings.NewReader(text)),
		source.NewReader("b", strings.NewReader(text)),
	}, out)
	require.NoError(t, err)

	ix, err := index.Load(out)
	require.NoError(t, err)

	want := expectedSet(text)
	got := map[string]bool{}
	require.NoError(t, ix.Walk(func(k string) error {
		got[k] = true
		return nil
	}))
	assert.Equal(t, want, got)
	assert.Equal(t, len(want), stats.Keys)
	assert.Equal(t, p.RunID(), ix.Header().RunID)
	// the same text twice always leaves cross-chunk duplicates for the builder
	assert.Positive(t, stats.Duplicates)
}

func TestBuildEmptyCorpus(t *testing.T) {
	p, _ := newPipeline(t, Options{})
	out := filepath.Join(t.TempDir(), "empty.cwix")

	stats, err := p.Build(context.Background(), nil, out)
	require.NoError(t, err)
	assert.Zero(t, stats.Keys)

	ix, err := index.Load(out)
	require.NoError(t, err)
	assert.Zero(t, ix.Len())
}

func TestConfigErrorBeforeAnyWork(t *testing.T) {
	p, dir := newPipeline(t, smallOptions())
	out := filepath.Join(t.TempDir(), "never.cwix")

	_, err := p.Build(context.Background(), []source.Provider{
		source.NewReader("ok", strings.NewReader("roma\n")),
		source.NewFile(filepath.Join(t.TempDir(), "missing.txt")),
	}, out)
	require.ErrorIs(t, err, source.ErrConfig)

	entries, err := os.ReadDir(dir.Path())
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, err = os.Stat(out)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type failingProvider struct {
	err error
}

func (f failingProvider) Name() string { return "failing" }
func (f failingProvider) Check() error { return nil }
func (f failingProvider) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(io.MultiReader(strings.NewReader(corpus(50)), errReader{f.err})), nil
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func TestIOFailureAbortsRun(t *testing.T) {
	p, _ := newPipeline(t, smallOptions())
	boom := errors.New("disk on fire")

	done := make(chan error, 1)
	go func() {
		_, err := p.Ingest(context.Background(), []source.Provider{
			source.NewReader("ok", strings.NewReader(corpus(400))),
			failingProvider{err: boom},
		})
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not shut down after a source failure")
	}
}

func TestCancelledContextStopsRun(t *testing.T) {
	p, _ := newPipeline(t, smallOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Ingest(ctx, []source.Provider{source.NewReader("ok", strings.NewReader(corpus(100)))})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{CleanWorkers: 5}.withDefaults()
	assert.Equal(t, 5, o.DedupWorkers)
	assert.Equal(t, DefaultOptions().RawQueueSize, o.RawQueueSize)
	assert.EqualValues(t, 50<<20, o.RawChunkBytes)
	assert.EqualValues(t, 10<<20, o.CleanChunkBytes)
}
