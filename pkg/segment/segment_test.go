package segment

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bastiangx/codewords/pkg/index"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(words ...string) *index.Index {
	b := index.NewBuilder()
	for _, w := range words {
		b.Add(w)
	}
	return b.Index()
}

func airportCodes(t *testing.T) *CodeSet {
	t.Helper()
	cs, err := NewCodeSet(IATACodeLen, "ROM", "MIA", "FCO")
	require.NoError(t, err)
	return cs
}

func TestRunFindsOnlyFullDecompositions(t *testing.T) {
	s := New(airportCodes(t), Unbounded, nil)
	ix := buildIndex("ROMMIA", "ROMXYZ", "ROMA", "FCOROMMIA", "MIAROM", "ROMMI")

	var got []Segmentation
	n, err := s.Run(ix, func(seg Segmentation) error {
		got = append(got, seg)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []Segmentation{
		{"FCO", "ROM", "MIA"},
		{"MIA", "ROM"},
		{"ROM", "MIA"},
	}, got)
}

func TestSegmentationsReconstructEntries(t *testing.T) {
	cs := airportCodes(t)
	s := New(cs, Unbounded, nil)
	ix := buildIndex("ROMMIA", "FCOFCO", "MIAMIAMIA", "ROMXYZ", "ROMMIAX")

	_, err := s.Run(ix, func(seg Segmentation) error {
		w := seg.Word()
		assert.True(t, ix.Contains(w))
		assert.Zero(t, len(w)%cs.CodeLen())
		for _, c := range seg {
			assert.True(t, cs.Contains(c))
		}
		return nil
	})
	require.NoError(t, err)
}

func TestOutputFormats(t *testing.T) {
	s := New(airportCodes(t), Unbounded, nil)
	ix := buildIndex("ROMMIA", "ROMXYZ")

	var plain, spaced bytes.Buffer
	_, err := s.WriteAll(&plain, ix, FormatPlain)
	require.NoError(t, err)
	_, err = s.WriteAll(&spaced, ix, FormatSpaced)
	require.NoError(t, err)

	assert.Equal(t, "ROMMIA\n", plain.String())
	assert.Equal(t, "ROM MIA\n", spaced.String())
}

func TestBoundsAdjust(t *testing.T) {
	tests := []struct {
		name    string
		in      Bounds
		want    Bounds
		changed bool
	}{
		{"min up and max down", Bounds{Min: 4, Max: 10}, Bounds{Min: 6, Max: 9}, true},
		{"already aligned", Bounds{Min: 3, Max: 9}, Bounds{Min: 3, Max: 9}, false},
		{"unbounded", Unbounded, Unbounded, false},
		{"negative min", Bounds{Min: -2, Max: -1}, Bounds{Min: 0, Max: -1}, true},
		{"max below code length", Bounds{Min: 0, Max: 2}, Bounds{Min: 0, Max: 0}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := tc.in.Adjust(3)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.changed, changed)
		})
	}
}

func TestBoundsFilterEntries(t *testing.T) {
	s := New(airportCodes(t), Bounds{Min: 4, Max: 10}, nil)
	assert.Equal(t, Bounds{Min: 6, Max: 9}, s.Bounds())

	_, ok := s.Split("ROM")
	assert.False(t, ok, "below effective minimum")
	_, ok = s.Split("ROMMIA")
	assert.True(t, ok)
	_, ok = s.Split("ROMMIAFCO")
	assert.True(t, ok)
	_, ok = s.Split("ROMMIAFCOROM")
	assert.False(t, ok, "above effective maximum")
}

func TestBoundsAdjustmentLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	l := log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel})

	New(airportCodes(t), Bounds{Min: 4, Max: 10}, l)
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "adjusting bounds"), out)
	assert.Equal(t, 1, strings.Count(out, "effective_min_size=6"), out)
	assert.Equal(t, 1, strings.Count(out, "effective_max_size=9"), out)

	buf.Reset()
	New(airportCodes(t), Bounds{Min: 3, Max: 9}, l)
	assert.Empty(t, buf.String(), "aligned bounds are left alone")
}

func TestSplitRejectsEmptyAndMisaligned(t *testing.T) {
	s := New(airportCodes(t), Unbounded, nil)
	for _, w := range []string{"", "RO", "ROMM", "ROMMIAF"} {
		_, ok := s.Split(w)
		assert.False(t, ok, w)
	}
}

func TestReadCodeSet(t *testing.T) {
	cs, err := ReadCodeSet(strings.NewReader("ROM\n  MIA  \n\nFCOX\nFC\nFCO\nROM\n"), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cs.Len())
	assert.True(t, cs.Contains("MIA"))
	assert.False(t, cs.Contains("FCOX"))

	_, err = ReadCodeSet(strings.NewReader("ROM"), 0, nil)
	assert.ErrorIs(t, err, ErrCodeLen)
}

func TestNewCodeSetRejectsWrongLength(t *testing.T) {
	_, err := NewCodeSet(3, "ROM", "ROMA")
	assert.Error(t, err)
	_, err = NewCodeSet(-1)
	assert.ErrorIs(t, err, ErrCodeLen)
}

func TestFromStrings(t *testing.T) {
	cs, err := FromStrings([]string{"ROM", " MIA", "", "TOOLONG"}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cs.Len())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("spaced")
	require.NoError(t, err)
	assert.Equal(t, FormatSpaced, f)
	assert.Equal(t, "spaced", f.String())

	f, err = ParseFormat("plain")
	require.NoError(t, err)
	assert.Equal(t, FormatPlain, f)

	_, err = ParseFormat("json")
	assert.Error(t, err)
}
