// Package llm defines the inference capabilities the core consumes and
// provides an OpenAI-compatible HTTP implementation plus an offline embedder.
package llm

import (
	"context"
	"encoding/json"
)

// Intent tells an embedder whether text is a stored document or a search query.
// Models that do not distinguish the two ignore it.
type Intent int

const (
	IntentDocument Intent = iota
	IntentQuery
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string, intent Intent) ([][]float32, error)
	// ModelName identifies the vector space; indexes built with another model are not reusable.
	ModelName() string
}

// ExtractRequest asks for structured output conforming to Schema.
type ExtractRequest struct {
	System     string
	Prompt     string
	SchemaName string
	Schema     json.RawMessage
}

// Extractor performs structured generation. It returns the raw JSON document
// produced by the model; callers decode and validate it.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) ([]byte, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, req ExtractRequest) ([]byte, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, req ExtractRequest) ([]byte, error) {
	return f(ctx, req)
}
