// Package cli provides a simple interactive explorer for a built index:
// type a word, see whether it is indexed, how it splits into codes and what
// else starts with it.
package cli

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/bastiangx/codewords/internal/logger"
	"github.com/bastiangx/codewords/internal/utils"
	"github.com/bastiangx/codewords/pkg/index"
	"github.com/bastiangx/codewords/pkg/normalize"
	"github.com/bastiangx/codewords/pkg/segment"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	wordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	codeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

// Lookup is what the explorer found for one normalized token.
type Lookup struct {
	Token    string
	Found    bool
	Segments segment.Segmentation
	Matches  []string
	Took     time.Duration
}

// InputHandler handles CLI input against a loaded index
type InputHandler struct {
	ix    *index.Index
	seg   *segment.Segmenter
	norm  *normalize.Normalizer
	limit int
	log   *log.Logger
}

// NewInputHandler creates a new CLI input handler. seg may be nil when no
// code set was loaded.
func NewInputHandler(ix *index.Index, seg *segment.Segmenter, limit int, l *log.Logger) *InputHandler {
	if limit < 1 {
		limit = 10
	}
	return &InputHandler{
		ix:    ix,
		seg:   seg,
		norm:  normalize.New(),
		limit: limit,
		log:   logger.OrDiscard(l),
	}
}

// Start begins the CLI input loop and returns when in is exhausted.
func (h *InputHandler) Start(in io.Reader) error {
	h.log.Print("codewords explorer", "keys", utils.FormatWithCommas(int64(h.ix.Len())))
	h.log.Print("type a word, press enter to look it up (Ctrl+D to exit):")

	reader := bufio.NewReader(in)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			h.show(h.Handle(line))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Handle normalizes input the way the build does and looks up every record
// it yields.
func (h *InputHandler) Handle(input string) []Lookup {
	tokens := h.norm.Normalize(input)
	if len(tokens) == 0 {
		h.log.Warn("nothing left after normalization", "input", input)
		return nil
	}

	out := make([]Lookup, 0, len(tokens))
	for _, tok := range tokens {
		start := time.Now()
		res := Lookup{Token: tok, Found: h.ix.Contains(tok)}
		if res.Found && h.seg != nil {
			res.Segments, _ = h.seg.Split(tok)
		}
		res.Matches = h.ix.WithPrefix(tok, h.limit)
		res.Took = time.Since(start)
		out = append(out, res)
	}
	return out
}

func (h *InputHandler) show(results []Lookup) {
	for _, res := range results {
		h.log.Debugf("took %v for '%s'", res.Took, res.Token)
		if !res.Found {
			h.log.Warnf("'%s' is not indexed", res.Token)
		} else if len(res.Segments) > 0 {
			h.log.Printf("%s splits into %s", wordStyle.Render(res.Token), codeStyle.Render(res.Segments.Format(segment.FormatSpaced)))
		} else {
			h.log.Printf("%s is indexed", wordStyle.Render(res.Token))
		}

		if len(res.Matches) == 0 {
			continue
		}
		h.log.Printf("%d entries start with '%s':", len(res.Matches), res.Token)
		for i, m := range res.Matches {
			h.log.Printf("%2d. %s", i+1, wordStyle.Render(m))
		}
	}
}
