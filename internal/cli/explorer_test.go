package cli

import (
	"strings"
	"testing"

	"github.com/bastiangx/codewords/pkg/index"
	"github.com/bastiangx/codewords/pkg/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T) *InputHandler {
	t.Helper()
	b := index.NewBuilder()
	for _, w := range []string{"ROMMIA", "ROMA", "ROMANO", "CITTA"} {
		b.Add(w)
	}
	codes, err := segment.NewCodeSet(3, "ROM", "MIA")
	require.NoError(t, err)
	return NewInputHandler(b.Index(), segment.New(codes, segment.Unbounded, nil), 2, nil)
}

func TestHandleNormalizesInput(t *testing.T) {
	h := newHandler(t)

	res := h.Handle("  città ")
	require.Len(t, res, 1)
	assert.Equal(t, "CITTA", res[0].Token)
	assert.True(t, res[0].Found)
	assert.Empty(t, res[0].Segments)
}

func TestHandleSegmentsAndPrefixes(t *testing.T) {
	h := newHandler(t)

	res := h.Handle("rom-rommia")
	require.Len(t, res, 2)

	assert.Equal(t, "ROM", res[0].Token)
	assert.False(t, res[0].Found)
	assert.Equal(t, []string{"ROMA", "ROMANO"}, res[0].Matches, "limited to 2")

	assert.True(t, res[1].Found)
	assert.Equal(t, segment.Segmentation{"ROM", "MIA"}, res[1].Segments)
}

func TestHandleDropsInvalidInput(t *testing.T) {
	assert.Empty(t, newHandler(t).Handle("1234"))
}

func TestStartReadsUntilEOF(t *testing.T) {
	assert.NoError(t, newHandler(t).Start(strings.NewReader("roma\n\nrommia")))
}
