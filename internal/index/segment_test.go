package index

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	got := Segmenter{Size: 100, Overlap: 10}.Split("  Boil the pasta.\r\n")
	if len(got) != 1 || got[0] != "Boil the pasta." {
		t.Errorf("got %q", got)
	}
}

func TestSplitBlank(t *testing.T) {
	if got := DefaultSegmenter.Split(" \n\t "); got != nil {
		t.Errorf("expected no chunks, got %q", got)
	}
}

func TestSplitPrefersParagraphBreak(t *testing.T) {
	first := strings.Repeat("a", 60) + "."
	second := strings.Repeat("b ", 40)
	text := first + "\n\n" + second
	got := Segmenter{Size: 80, Overlap: 0}.Split(text)
	if len(got) < 2 {
		t.Fatalf("expected several chunks, got %d", len(got))
	}
	if got[0] != first {
		t.Errorf("first chunk = %q, want the first paragraph", got[0])
	}
}

func TestSplitBoundsAndCoverage(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("Stir the sauce gently and season to taste. ")
	}
	s := Segmenter{Size: 300, Overlap: 50}
	got := s.Split(b.String())
	if len(got) < 20 {
		t.Fatalf("expected many chunks, got %d", len(got))
	}
	for i, c := range got {
		if n := utf8.RuneCountInString(c); n > s.Size {
			t.Errorf("chunk %d has %d runes", i, n)
		}
		if c != strings.TrimSpace(c) {
			t.Errorf("chunk %d is not trimmed", i)
		}
	}
	if !strings.HasSuffix(got[len(got)-1], "taste.") {
		t.Errorf("last chunk does not reach end of text: %q", got[len(got)-1])
	}
}

func TestSplitHardCutWithoutSpaces(t *testing.T) {
	got := Segmenter{Size: 10, Overlap: 3}.Split(strings.Repeat("x", 25))
	if len(got) < 3 {
		t.Fatalf("got %d chunks", len(got))
	}
	for _, c := range got {
		if len(c) > 10 {
			t.Errorf("chunk too long: %q", c)
		}
	}
}

func TestSegmenterValidate(t *testing.T) {
	tests := []struct {
		s       Segmenter
		wantErr bool
	}{
		{DefaultSegmenter, false},
		{Segmenter{Size: 1}, true},
		{Segmenter{Size: 100, Overlap: 100}, true},
		{Segmenter{Size: 100, Overlap: -1}, true},
	}
	for _, tt := range tests {
		if err := tt.s.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) err = %v, wantErr %v", tt.s, err, tt.wantErr)
		}
	}
}
