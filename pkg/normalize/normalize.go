// Package normalize turns one raw dictionary line into zero or more canonical
// records: runs of ASCII uppercase letters with no punctuation, digits or
// whitespace.
//
// The transformation is fixed and deterministic:
//
//  1. trim surrounding whitespace
//  2. canonical decomposition (NFKD), then drop every non-ASCII rune, which
//     strips diacritics ("Città" -> "Citta")
//  3. uppercase
//  4. split on the delimiters '.', '-' and '\''
//  5. keep each sub-token that is one or more letters A-Z
//
// A Normalizer holds transformer state and must not be shared between
// goroutines; each cleaning worker creates its own.
package normalize

import (
	"strings"
	"unicode"

	"github.com/bastiangx/codewords/internal/utils"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Delimiters split a line into sub-tokens.
const Delimiters = ".-'"

// Normalizer applies the canonical record transformation.
type Normalizer struct {
	ascii transform.Transformer
}

// New creates a Normalizer.
func New() *Normalizer {
	return &Normalizer{
		ascii: transform.Chain(
			norm.NFKD,
			runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
		),
	}
}

// Normalize returns the valid records found in line, in order.
// Invalid sub-tokens are dropped; a nil result means the line carried nothing usable.
func (n *Normalizer) Normalize(line string) []string {
	return n.Append(nil, line)
}

// Append is Normalize appending into dst, for callers that reuse a buffer.
func (n *Normalizer) Append(dst []string, line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return dst
	}

	folded, _, err := transform.String(n.ascii, line)
	if err != nil {
		return dst
	}
	folded = strings.ToUpper(folded)

	for _, tok := range strings.FieldsFunc(folded, isDelimiter) {
		if utils.IsUpperWord(tok) {
			dst = append(dst, tok)
		}
	}
	return dst
}

// Valid reports whether s already is a canonical record.
func Valid(s string) bool {
	return utils.IsUpperWord(s)
}

func isDelimiter(r rune) bool {
	return strings.ContainsRune(Delimiters, r)
}
