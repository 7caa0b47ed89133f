package segment

import "fmt"

// Format selects how a segmentation is printed.
type Format int

const (
	// FormatPlain prints the concatenated codes: ROMMIA.
	FormatPlain Format = iota
	// FormatSpaced prints space separated codes: ROM MIA.
	FormatSpaced
)

func (f Format) String() string {
	switch f {
	case FormatPlain:
		return "plain"
	case FormatSpaced:
		return "spaced"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat parses "plain" or "spaced".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "plain", "":
		return FormatPlain, nil
	case "spaced":
		return FormatSpaced, nil
	}
	return FormatPlain, fmt.Errorf("unknown format %q (want plain or spaced)", s)
}
