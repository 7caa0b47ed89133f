package rotate

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/bastiangx/codewords/pkg/queue"
	"github.com/bastiangx/codewords/pkg/workdir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, q *queue.Queue[string]) []string {
	t.Helper()
	var paths []string
	for q.Len() > 0 {
		p, ok, err := q.Get(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		paths = append(paths, p)
	}
	return paths
}

func TestRotatesPastLimit(t *testing.T) {
	ctx := context.Background()
	dir, err := workdir.New(t.TempDir(), false, nil)
	require.NoError(t, err)
	out, err := queue.New[string](16)
	require.NoError(t, err)

	r := New(dir, workdir.StageClean, 10, out, nil)
	// each line is 5 bytes with its newline; rotation happens once size > 10
	for _, w := range []string{"ROMA", "MILA", "TORI", "NAPO", "BARI"} {
		require.NoError(t, r.WriteLine(ctx, w))
	}
	require.NoError(t, r.Close(ctx))

	paths := drain(t, out)
	require.Len(t, paths, 2)
	assert.Equal(t, 2, r.Published())
	assert.EqualValues(t, 25, r.Written())

	first, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "ROMA\nMILA\nTORI\n", string(first))

	last, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "NAPO\nBARI\n", string(last))
}

func TestCloseWithoutWritesPublishesNothing(t *testing.T) {
	dir, err := workdir.New(t.TempDir(), false, nil)
	require.NoError(t, err)
	out, err := queue.New[string](1)
	require.NoError(t, err)

	r := New(dir, workdir.StageRaw, 100, out, nil)
	require.NoError(t, r.Close(context.Background()))
	assert.Zero(t, out.Len())
}

func TestExactBoundaryStaysInOneChunk(t *testing.T) {
	ctx := context.Background()
	dir, err := workdir.New(t.TempDir(), false, nil)
	require.NoError(t, err)
	out, err := queue.New[string](4)
	require.NoError(t, err)

	r := New(dir, workdir.StageRaw, 10, out, nil)
	require.NoError(t, r.WriteLine(ctx, "ABCD"))
	require.NoError(t, r.WriteLine(ctx, "EFGH"))
	assert.Zero(t, out.Len(), "10 bytes does not exceed a 10 byte limit")
	require.NoError(t, r.Close(ctx))

	paths := drain(t, out)
	require.Len(t, paths, 1)
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "ABCD\nEFGH\n", string(data))
}

func TestAbortRemovesPartialChunk(t *testing.T) {
	ctx := context.Background()
	dir, err := workdir.New(t.TempDir(), false, nil)
	require.NoError(t, err)
	out, err := queue.New[string](1)
	require.NoError(t, err)

	r := New(dir, workdir.StageClean, 0, out, nil)
	require.NoError(t, r.WriteLine(ctx, strings.Repeat("A", 64)))
	r.Abort()

	files, err := dir.Glob(workdir.StageClean)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Zero(t, out.Len())
}
