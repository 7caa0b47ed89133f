package workdir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGlobByStage(t *testing.T) {
	d, err := New(t.TempDir(), false, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(d.Path(), Suffix))

	for _, stage := range []Stage{StageRaw, StageClean, StageClean, StageShard} {
		f, err := d.Create(stage)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	clean, err := d.Glob(StageClean)
	require.NoError(t, err)
	assert.Len(t, clean, 2)
	for _, p := range clean {
		assert.True(t, strings.HasPrefix(filepath.Base(p), string(StageClean)))
	}

	shards, err := d.Glob(StageShard)
	require.NoError(t, err)
	assert.Len(t, shards, 1)

	require.NoError(t, d.Remove(shards[0]))
	shards, err = d.Glob(StageShard)
	require.NoError(t, err)
	assert.Empty(t, shards)
}

func TestCleanup(t *testing.T) {
	d, err := New(t.TempDir(), false, nil)
	require.NoError(t, err)
	f, err := d.Create(StageRaw)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, d.Cleanup())
	_, err = os.Stat(d.Path())
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, d.Cleanup())
}

func TestCleanupKeep(t *testing.T) {
	d, err := New(t.TempDir(), true, nil)
	require.NoError(t, err)
	require.NoError(t, d.Cleanup())
	_, err = os.Stat(d.Path())
	assert.NoError(t, err)
}
