package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/souschef/internal/apperr"
	"github.com/starford/souschef/internal/index"
	"github.com/starford/souschef/internal/llm"
	"github.com/starford/souschef/internal/models"
)

type staticSource struct{ h *index.Handle }

func (s staticSource) Current() *index.Handle { return s.h }

// vectorEmbedder maps known texts to fixed vectors.
type vectorEmbedder map[string][]float32

func (vectorEmbedder) ModelName() string { return "fixed" }
func (v vectorEmbedder) Embed(_ context.Context, texts []string, _ llm.Intent) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, ok := v[t]
		if !ok {
			return nil, errors.New("unknown text")
		}
		out[i] = vec
	}
	return out, nil
}

func handle() *index.Handle {
	return &index.Handle{
		Dimension: 2,
		Chunks:    []models.Chunk{
			{SourceID: "a", Text: "tomato sauce"},
			{SourceID: "b", Text: "chocolate cake"},
			{SourceID: "c", Text: "tomato soup"},
			{SourceID: "d", Text: "tomato salad"},
		},
		Vectors: [][]float32{
			{1, 0},
			{0, 1},
			{0.8, 0.2},
			{1, 0},
		},
	}
}

func TestQueryAbsentIndex(t *testing.T) {
	e := New(staticSource{}, vectorEmbedder{})
	res, err := e.Query(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Available || res.Found() {
		t.Errorf("result = %+v, want unavailable", res)
	}
}

func TestQueryRanksAndBreaksTiesByPosition(t *testing.T) {
	e := New(staticSource{handle()}, vectorEmbedder{"tomato": {1, 0}})
	res, err := e.Query(context.Background(), "tomato", 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []string{"a", "d", "c"}
	if len(res.Chunks) != len(want) {
		t.Fatalf("got %d chunks", len(res.Chunks))
	}
	for i, id := range want {
		if res.Chunks[i].SourceID != id {
			t.Errorf("rank %d = %s, want %s", i, res.Chunks[i].SourceID, id)
		}
	}
}

func TestQueryTieBreaksByOrdinal(t *testing.T) {
	h := &index.Handle{
		Dimension: 2,
		Chunks:    []models.Chunk{
			{SourceID: "a", Text: "later", Ordinal: 4},
			{SourceID: "b", Text: "earlier", Ordinal: 1},
		},
		Vectors: [][]float32{{1, 0}, {1, 0}},
	}
	e := New(staticSource{h}, vectorEmbedder{"q": {1, 0}})
	res, err := e.Query(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Chunks[0].SourceID != "b" {
		t.Errorf("first = %s, want lower ordinal b", res.Chunks[0].SourceID)
	}
}

func TestQueryClampsTopK(t *testing.T) {
	e := New(staticSource{handle()}, vectorEmbedder{"cake": {0, 1}})
	tests := []struct {
		topK int
		want int
	}{
		{0, DefaultTopK},
		{-4, DefaultTopK},
		{1, 1},
		{99, 4},
	}
	for _, tt := range tests {
		res, err := e.Query(context.Background(), "cake", tt.topK)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(res.Chunks) != tt.want {
			t.Errorf("topK=%d: got %d chunks, want %d", tt.topK, len(res.Chunks), tt.want)
		}
	}
}

func TestQueryEmbedFailureIsUnavailable(t *testing.T) {
	e := New(staticSource{handle()}, vectorEmbedder{})
	_, err := e.Query(context.Background(), "unknown", 3)
	if apperr.KindOf(err) != apperr.KindUnavailable {
		t.Errorf("kind = %v, want unavailable", apperr.KindOf(err))
	}
}

func TestQueryDimensionMismatchIsUnavailable(t *testing.T) {
	e := New(staticSource{handle()}, vectorEmbedder{"cake": {0, 1, 0}})
	res, err := e.Query(context.Background(), "cake", 1)
	if apperr.KindOf(err) != apperr.KindUnavailable {
		t.Fatalf("kind = %v, want unavailable", apperr.KindOf(err))
	}
	if res.Found() {
		t.Errorf("result = %+v, want no chunks", res)
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{2, 0}); got < 0.999 {
		t.Errorf("parallel = %f", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal = %f", got)
	}
	if got := Cosine([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Errorf("zero vector = %f", got)
	}
	if got := Cosine([]float32{1}, []float32{1, 1}); got != 0 {
		t.Errorf("length mismatch = %f", got)
	}
}

func TestFormat(t *testing.T) {
	got := Format(models.QueryResult{Available: true, Chunks: []models.Chunk{{Text: "one"}, {Text: "two"}}})
	want := "[Source 1]: one\n\n[Source 2]: two"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
	if Format(models.QueryResult{}) != "" {
		t.Error("empty result should format to empty string")
	}
}
