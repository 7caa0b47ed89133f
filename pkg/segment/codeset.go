package segment

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bastiangx/codewords/internal/logger"
	"github.com/charmbracelet/log"
)

// IATACodeLen is the length of IATA airport codes.
const IATACodeLen = 3

// ErrCodeLen is returned for a non-positive code length.
var ErrCodeLen = errors.New("segment: code length must be positive")

// CodeSet is an immutable set of fixed-length codes.
type CodeSet struct {
	codeLen int
	codes   map[string]struct{}
}

// NewCodeSet builds a set from codes. Codes whose length is not codeLen are
// rejected with an error.
func NewCodeSet(codeLen int, codes ...string) (*CodeSet, error) {
	if codeLen <= 0 {
		return nil, ErrCodeLen
	}
	cs := &CodeSet{codeLen: codeLen, codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		if len(c) != codeLen {
			return nil, fmt.Errorf("code %q is not %d characters long", c, codeLen)
		}
		cs.codes[c] = struct{}{}
	}
	return cs, nil
}

// ReadCodeSet reads one code per line. Lines are trimmed and blank lines
// skipped; codes of the wrong length are skipped with a warning.
func ReadCodeSet(r io.Reader, codeLen int, l *log.Logger) (*CodeSet, error) {
	if codeLen <= 0 {
		return nil, ErrCodeLen
	}
	l = logger.OrDiscard(l)

	cs := &CodeSet{codeLen: codeLen, codes: make(map[string]struct{})}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		code := strings.TrimSpace(sc.Text())
		if code == "" {
			continue
		}
		if !cs.add(code) {
			l.Warn("skipping code of wrong length", "line", lineNo, "code", code, "want", codeLen)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read code list: %w", err)
	}
	return cs, nil
}

// FromStrings builds a set from codes already in memory, skipping wrong
// lengths with a warning like ReadCodeSet.
func FromStrings(codes []string, codeLen int, l *log.Logger) (*CodeSet, error) {
	if codeLen <= 0 {
		return nil, ErrCodeLen
	}
	l = logger.OrDiscard(l)
	cs := &CodeSet{codeLen: codeLen, codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !cs.add(c) {
			l.Warn("skipping code of wrong length", "code", c, "want", codeLen)
		}
	}
	return cs, nil
}

func (cs *CodeSet) add(code string) bool {
	if len(code) != cs.codeLen {
		return false
	}
	cs.codes[code] = struct{}{}
	return true
}

// Contains reports whether code is in the set.
func (cs *CodeSet) Contains(code string) bool {
	_, ok := cs.codes[code]
	return ok
}

// Len returns the number of codes.
func (cs *CodeSet) Len() int {
	return len(cs.codes)
}

// CodeLen returns the fixed code length.
func (cs *CodeSet) CodeLen() int {
	return cs.codeLen
}
