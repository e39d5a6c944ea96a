// Package storage defines the Document Store abstraction.
package storage

import "github.com/starford/souschef/internal/models"

// DefaultIncludes are the document globs indexed when none are configured.
var DefaultIncludes = []string{"**/*.pdf", "**/*.txt", "**/*.md"}

// Provider is the interface for Document Store operations.
// All paths are relative to the store root.
type Provider interface {
	// List returns metadata for every document matching the include globs, sorted by path.
	List() ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the document at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the document at path.
	Delete(path string) error
	// DeleteAll removes every listed document and returns how many were removed.
	DeleteAll() (int, error)
	// Matches reports whether path (relative) is a document this store indexes.
	Matches(path string) bool
	// Root returns the absolute store directory.
	Root() string
}
