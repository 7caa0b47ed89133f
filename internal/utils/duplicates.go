package utils

// LineSet collects distinct lines. It is not safe for concurrent use; each
// dedup worker owns its own set for the lifetime of one chunk.
type LineSet struct {
	seen  map[string]struct{}
	order []string
	total int
}

// NewLineSet creates an empty set sized for roughly hint lines.
func NewLineSet(hint int) *LineSet {
	if hint < 0 {
		hint = 0
	}
	return &LineSet{
		seen:  make(map[string]struct{}, hint),
		order: make([]string, 0, hint),
	}
}

// Add records line and reports whether it was new.
func (s *LineSet) Add(line string) bool {
	s.total++
	if _, ok := s.seen[line]; ok {
		return false
	}
	s.seen[line] = struct{}{}
	s.order = append(s.order, line)
	return true
}

// Contains reports whether line was added before.
func (s *LineSet) Contains(line string) bool {
	_, ok := s.seen[line]
	return ok
}

// Len returns the number of distinct lines.
func (s *LineSet) Len() int {
	return len(s.order)
}

// Duplicates returns how many Add calls hit an existing line.
func (s *LineSet) Duplicates() int {
	return s.total - len(s.order)
}

// Lines returns the distinct lines in first-seen order.
func (s *LineSet) Lines() []string {
	return s.order
}
