package index

import (
	"time"

	"github.com/starford/souschef/internal/models"
)

// Handle is one built generation of the index. It is immutable once
// published; a rebuild produces a new Handle rather than mutating this one.
type Handle struct {
	Generation  int64
	Model       string
	Dimension   int
	Chunks      []models.Chunk
	Vectors     [][]float32 // Vectors[i] embeds Chunks[i]
	Documents   []models.DocumentMetadata
	Fingerprint string
	BuiltAt     time.Time
}

// Len returns the number of chunks.
func (h *Handle) Len() int { return len(h.Chunks) }

// Status summarizes the index for callers and the display.
type Status struct {
	Available  bool      `json:"available"`
	Generation int64     `json:"generation,omitempty"`
	Documents  int       `json:"documents"`
	Chunks     int       `json:"chunks"`
	BuiltAt    time.Time `json:"built_at,omitzero"`
	Message    string    `json:"message,omitempty"`
}

func statusOf(h *Handle, msg string) Status {
	if h == nil {
		return Status{Message: msg}
	}
	return Status{
		Available:  true,
		Generation: h.Generation,
		Documents:  len(h.Documents),
		Chunks:     h.Len(),
		BuiltAt:    h.BuiltAt,
		Message:    msg,
	}
}
