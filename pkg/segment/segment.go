// Package segment finds index entries that split exactly into a sequence of
// fixed-length codes, such as words spelled entirely with IATA airport codes.
//
// An entry qualifies when its length is a multiple of the code length, it
// falls within the configured bounds, and every consecutive group is a known
// code. There are no partial or overlapping decompositions: an entry either
// splits fully or yields nothing.
package segment

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/bastiangx/codewords/internal/logger"
	"github.com/charmbracelet/log"
)

// Walker enumerates keys in lexicographic order.
type Walker interface {
	Walk(fn func(key string) error) error
}

// Bounds limit entry length, inclusive. A negative Max means unbounded.
type Bounds struct {
	Min int
	Max int
}

// Unbounded accepts every length.
var Unbounded = Bounds{Min: 0, Max: -1}

// Adjust snaps the bounds onto multiples of codeLen: Min rounds up and Max
// rounds down. The second result reports whether anything changed.
func (b Bounds) Adjust(codeLen int) (Bounds, bool) {
	out := b
	if out.Min < 0 {
		out.Min = 0
	}
	if r := out.Min % codeLen; r != 0 {
		out.Min += codeLen - r
	}
	if out.Max >= 0 {
		out.Max -= out.Max % codeLen
	}
	return out, out != b
}

// Contains reports whether n is inside the bounds.
func (b Bounds) Contains(n int) bool {
	return n >= b.Min && (b.Max < 0 || n <= b.Max)
}

func (b Bounds) String() string {
	if b.Max < 0 {
		return fmt.Sprintf("[%d, inf)", b.Min)
	}
	return fmt.Sprintf("[%d, %d]", b.Min, b.Max)
}

// Segmentation is an ordered tuple of codes whose concatenation is an entry.
type Segmentation []string

// Word returns the entry the segmentation reconstructs.
func (s Segmentation) Word() string {
	return strings.Join(s, "")
}

// Format renders s in the given output format.
func (s Segmentation) Format(f Format) string {
	if f == FormatSpaced {
		return strings.Join(s, " ")
	}
	return s.Word()
}

// Segmenter matches entries against a CodeSet. It is safe for concurrent use.
type Segmenter struct {
	codes  *CodeSet
	bounds Bounds
}

// New creates a Segmenter. Bounds that are not multiples of the code length
// are adjusted once, with an informational log line.
func New(codes *CodeSet, b Bounds, l *log.Logger) *Segmenter {
	l = logger.OrDiscard(l)
	adjusted, changed := b.Adjust(codes.CodeLen())
	if changed {
		l.Info("adjusting bounds", "effective_min_size", adjusted.Min, "effective_max_size", adjusted.Max)
	}
	return &Segmenter{codes: codes, bounds: adjusted}
}

// Bounds returns the effective bounds.
func (s *Segmenter) Bounds() Bounds {
	return s.bounds
}

// Split decomposes word into codes. ok is false when word does not fully
// decompose or falls outside the bounds.
func (s *Segmenter) Split(word string) (seg Segmentation, ok bool) {
	n := s.codes.CodeLen()
	if len(word) == 0 || len(word)%n != 0 || !s.bounds.Contains(len(word)) {
		return nil, false
	}
	for i := 0; i < len(word); i += n {
		if !s.codes.Contains(word[i : i+n]) {
			return nil, false
		}
	}
	seg = make(Segmentation, 0, len(word)/n)
	for i := 0; i < len(word); i += n {
		seg = append(seg, word[i:i+n])
	}
	return seg, true
}

// Run walks src in order and calls fn for every segmentation. It returns the
// number of segmentations found.
func (s *Segmenter) Run(src Walker, fn func(Segmentation) error) (int, error) {
	found := 0
	err := src.Walk(func(key string) error {
		seg, ok := s.Split(key)
		if !ok {
			return nil
		}
		found++
		return fn(seg)
	})
	return found, err
}

// WriteAll writes one formatted segmentation per line to w.
func (s *Segmenter) WriteAll(w io.Writer, src Walker, f Format) (int, error) {
	bw := bufio.NewWriter(w)
	n, err := s.Run(src, func(seg Segmentation) error {
		if _, err := bw.WriteString(seg.Format(f)); err != nil {
			return err
		}
		return bw.WriteByte('\n')
	})
	if err != nil {
		return n, err
	}
	return n, bw.Flush()
}
