// Package models defines the domain types for SousChef.
package models

import "time"

// DocumentMetadata is a lightweight view of a Document Store file.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chunk is a contiguous span of document text, the unit of retrieval.
// Ordinal is its position within the source document.
type Chunk struct {
	SourceID string `json:"source_id"`
	Text     string `json:"text"`
	Ordinal  int    `json:"ordinal"`
}

// QueryResult is the outcome of a retrieval query, closest chunk first.
// Available is false when no index exists; callers use it to tell
// "nothing indexed" apart from "indexed but no relevant match".
type QueryResult struct {
	Available bool    `json:"available"`
	Chunks    []Chunk `json:"chunks"`
}

// Found reports whether the query matched anything.
func (r QueryResult) Found() bool {
	return r.Available && len(r.Chunks) > 0
}
