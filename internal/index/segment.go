package index

import (
	"fmt"
	"strings"
	"unicode"
)

// Segmenter splits document text into overlapping character windows,
// cutting at the best natural boundary inside each window.
type Segmenter struct {
	Size    int // maximum chunk length in runes
	Overlap int // runes shared between consecutive chunks
}

// DefaultSegmenter matches the chunking used for the shipped cookbook.
var DefaultSegmenter = Segmenter{Size: 1000, Overlap: 150}

// Validate checks the window parameters.
func (s Segmenter) Validate() error {
	if s.Size < 2 {
		return fmt.Errorf("index: chunk size must be at least 2, got %d", s.Size)
	}
	if s.Overlap < 0 || s.Overlap >= s.Size {
		return fmt.Errorf("index: chunk overlap must be in [0, %d), got %d", s.Size, s.Overlap)
	}
	return nil
}

// Split returns the chunks of text in order. Blank text yields no chunks.
func (s Segmenter) Split(text string) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= s.Size {
		return []string{text}
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + s.Size
		if end >= len(runes) {
			if piece := strings.TrimSpace(string(runes[start:])); piece != "" {
				out = append(out, piece)
			}
			break
		}
		cut := breakPoint(runes, start, end)
		if piece := strings.TrimSpace(string(runes[start:cut])); piece != "" {
			out = append(out, piece)
		}

		next := cut - s.Overlap
		if next <= start {
			next = cut
		}
		// Start the overlap on a word boundary when one is near.
		for i := next; i < cut && i < next+s.Overlap; i++ {
			if unicode.IsSpace(runes[i]) {
				next = i + 1
				break
			}
		}
		start = next
	}
	return out
}

// breakPoint picks the end of the window [start, end): the last paragraph
// break, else sentence end, else newline, else space in the second half of
// the window. Falls back to a hard cut at end.
func breakPoint(runes []rune, start, end int) int {
	floor := start + (end-start)/2

	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) && isSentenceEnd(runes[i-1]) {
			return i + 1
		}
	}
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
