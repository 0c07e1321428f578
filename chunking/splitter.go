package chunking

import (
	"strings"
	"unicode/utf8"
)

// separators in order of preference.
var separators = []string{"\n\n", "\n", ". ", " "}

// Span is a half-open byte range [Start, End) of a text.
type Span struct {
	Start int
	End   int
}

// Splitter cuts text into windows of at most Size characters. Adjacent
// windows share at most Overlap characters.
type Splitter struct {
	Size    int
	Overlap int
}

// Split returns the windows of text in order. Windows prefer to end just
// after a paragraph break, then a line break, then a sentence end, then a
// space, and are hard cut on a rune boundary when none is found in the
// second half of the window. Each window after the first starts at a word
// boundary inside the tail of its predecessor, so text outside the overlaps
// is covered exactly once.
func (s Splitter) Split(text string) []Span {
	var spans []Span
	start := 0
	for start < len(text) {
		limit := advance(text, start, s.Size)
		if limit >= len(text) {
			spans = append(spans, Span{start, len(text)})
			break
		}
		end := s.cut(text, start, limit)
		spans = append(spans, Span{start, end})
		start = s.resume(text, start, end)
	}
	return spans
}

// cut picks the end of the window starting at start and bounded by limit.
func (s Splitter) cut(text string, start, limit int) int {
	floor := advance(text, start, s.Size/2)
	window := text[floor:limit]
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i >= 0 {
			return floor + i + len(sep)
		}
	}
	return limit
}

// resume picks where the window after [start, end) begins.
func (s Splitter) resume(text string, start, end int) int {
	back := retreat(text, end, s.Overlap)
	if back <= start {
		return end
	}
	if i := strings.IndexAny(text[back:end], " \n"); i >= 0 {
		next := back + i + 1
		if next > start && next < end {
			return next
		}
	}
	return end
}

// advance returns the byte index n runes after from, capped at len(s).
func advance(s string, from, n int) int {
	i := from
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

// retreat returns the byte index n runes before to, floored at 0.
func retreat(s string, to, n int) int {
	i := to
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return i
}
