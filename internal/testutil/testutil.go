// Package testutil provides shared test helpers for building a cookbook,
// an index database, and the component stack beneath the assistant.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/souschef/internal/cooking"
	"github.com/starford/souschef/internal/events"
	"github.com/starford/souschef/internal/index"
	"github.com/starford/souschef/internal/kitchen"
	"github.com/starford/souschef/internal/llm"
	"github.com/starford/souschef/internal/recipe"
	"github.com/starford/souschef/internal/retrieval"
	"github.com/starford/souschef/internal/storage"
)

// LasagnaJSON is a six-step extraction response.
const LasagnaJSON = `{
	"name": "Lasagna",
	"servings": "6 servings",
	"prep_time": "30 mins",
	"cook_time": "45 mins",
	"ingredients": [
		{"name": "lasagna sheets", "quantity": "12", "emoji": "🍝"},
		{"name": "ground beef", "quantity": "500g", "emoji": "🥩"},
		{"name": "ricotta", "quantity": "250g", "emoji": "🧀"}
	],
	"steps": [
		{"step_number": 1, "instruction": "Brown the beef.", "duration_minutes": 10},
		{"step_number": 2, "instruction": "Simmer the sauce.", "duration_minutes": 20},
		{"step_number": 3, "instruction": "Mix the ricotta."},
		{"step_number": 4, "instruction": "Layer sheets, sauce and cheese.", "tips": "Finish with sauce."},
		{"step_number": 5, "instruction": "Bake covered.", "duration_minutes": 25},
		{"step_number": 6, "instruction": "Rest before slicing.", "duration_minutes": 10}
	]
}`

// LasagnaDoc is a cookbook page matching LasagnaJSON.
const LasagnaDoc = "# Lasagna\n\nBrown the beef. Simmer the sauce. Mix the ricotta. Layer sheets, sauce and cheese. Bake covered. Rest before slicing."

// Logger returns a logger that only prints errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "souschef-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary document directory with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteDoc writes a document under dir, creating parent directories.
func WriteDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Scripted returns an extractor that always answers with out.
func Scripted(out string) llm.Extractor {
	return llm.ExtractorFunc(func(context.Context, llm.ExtractRequest) ([]byte, error) {
		return []byte(out), nil
	})
}

// Stack is every component below the assistant, wired with offline
// capabilities and an event recorder.
type Stack struct {
	Dir      string
	Store    storage.Provider
	DB       *index.DB
	Manager  *index.Manager
	Engine   *retrieval.Engine
	Session  *cooking.Session
	Timers   *kitchen.Timers
	Shopping *kitchen.ShoppingList
	Display  *events.Display
	Recorder *events.Recorder
}

// NewStack builds a Stack whose extractor answers with extraction.
func NewStack(t *testing.T, extraction llm.Extractor) *Stack {
	t.Helper()
	dir, store := TestStore(t)
	db := TestDB(t)
	logger := Logger()
	embedder := llm.NewHashEmbedder(64)

	rec := &events.Recorder{}
	display := events.NewDisplay(rec, logger)
	mgr := index.NewManager(store, db, embedder, logger, index.Options{})
	engine := retrieval.New(mgr, embedder)
	session := cooking.NewSession(engine, recipe.NewExtractor(extraction, logger), display, logger)

	return &Stack{
		Dir:      dir,
		Store:    store,
		DB:       db,
		Manager:  mgr,
		Engine:   engine,
		Session:  session,
		Timers:   kitchen.NewTimers(display),
		Shopping: kitchen.NewShoppingList(display),
		Display:  display,
		Recorder: rec,
	}
}

// Build writes docs (name -> content) and builds the index.
func (s *Stack) Build(t *testing.T, docs map[string]string) {
	t.Helper()
	for name, content := range docs {
		WriteDoc(t, s.Dir, name, content)
	}
	if _, err := s.Manager.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
}
