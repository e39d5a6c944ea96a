// Package retrieval answers nearest-chunk queries against the published index.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/starford/souschef/internal/apperr"
	"github.com/starford/souschef/internal/index"
	"github.com/starford/souschef/internal/llm"
	"github.com/starford/souschef/internal/models"
)

// DefaultTopK is the number of chunks returned when the caller does not say.
const DefaultTopK = 3

// Source yields the currently published index. *index.Manager implements it.
type Source interface {
	Current() *index.Handle
}

// Engine runs similarity queries. It holds no state of its own; each query
// works on whichever handle is current when it starts.
type Engine struct {
	source   Source
	embedder llm.Embedder
}

// New creates an Engine.
func New(source Source, embedder llm.Embedder) *Engine {
	return &Engine{source: source, embedder: embedder}
}

// Query returns up to topK chunks closest to question. A missing index is
// reported as QueryResult{Available: false}, not as an error. topK <= 0
// means DefaultTopK; larger values are clamped to the index size.
func (e *Engine) Query(ctx context.Context, question string, topK int) (models.QueryResult, error) {
	h := e.source.Current()
	if h == nil {
		return models.QueryResult{}, nil
	}
	if h.Len() == 0 {
		return models.QueryResult{Available: true}, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	topK = min(topK, h.Len())

	vecs, err := e.embedder.Embed(ctx, []string{question}, llm.IntentQuery)
	if err != nil {
		return models.QueryResult{Available: true}, apperr.New(apperr.KindUnavailable, "retrieval.query", err, "search is unavailable right now")
	}
	if len(vecs) != 1 {
		return models.QueryResult{Available: true}, apperr.New(apperr.KindUnavailable, "retrieval.query",
			fmt.Errorf("embedder returned %d vectors", len(vecs)), "search is unavailable right now")
	}
	q := vecs[0]
	if len(q) != h.Dimension {
		return models.QueryResult{Available: true}, apperr.New(apperr.KindUnavailable, "retrieval.query",
			fmt.Errorf("query vector has %d dimensions, index has %d", len(q), h.Dimension),
			"the cookbook index needs rebuilding")
	}

	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, h.Len())
	for i, v := range h.Vectors {
		scores[i] = scored{pos: i, score: Cosine(q, v)}
	}
	// Equal scores fall back to chunk ordinal, then handle position.
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return h.Chunks[scores[i].pos].Ordinal < h.Chunks[scores[j].pos].Ordinal
	})

	chunks := make([]models.Chunk, topK)
	for i := range chunks {
		chunks[i] = h.Chunks[scores[i].pos]
	}
	return models.QueryResult{Available: true, Chunks: chunks}, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Format renders a result as numbered source blocks for narration or for
// an extraction prompt.
func Format(r models.QueryResult) string {
	parts := make([]string, len(r.Chunks))
	for i, c := range r.Chunks {
		parts[i] = fmt.Sprintf("[Source %d]: %s", i+1, c.Text)
	}
	return strings.Join(parts, "\n\n")
}
