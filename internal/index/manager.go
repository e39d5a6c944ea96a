package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/souschef/internal/apperr"
	"github.com/starford/souschef/internal/checksum"
	"github.com/starford/souschef/internal/llm"
	"github.com/starford/souschef/internal/models"
	"github.com/starford/souschef/internal/parser"
	"github.com/starford/souschef/internal/storage"
)

const embedBatchSize = 32

// Options tunes index construction.
type Options struct {
	Segmenter Segmenter
	Workers   int // concurrent embedding batches
}

// Manager owns the index lifecycle. Readers call Current, which is a single
// atomic load; builds stage a complete Handle and swap it in at the end so
// a query never observes a half-built index.
//
// Every Build and Clear bumps an epoch. A build publishes only if the epoch
// is still the one it started under; a later rebuild or a clear supersedes it.
type Manager struct {
	store    storage.Provider
	db       *DB
	embedder llm.Embedder
	opts     Options
	logger   *slog.Logger

	current atomic.Pointer[Handle]
	epoch   atomic.Uint64

	buildMu   sync.Mutex // serializes builds
	publishMu sync.Mutex // guards swap + persistence; never held while embedding

	wg sync.WaitGroup
}

// NewManager creates a Manager with no index loaded.
func NewManager(store storage.Provider, db *DB, embedder llm.Embedder, logger *slog.Logger, opts Options) *Manager {
	if opts.Segmenter.Size == 0 {
		opts.Segmenter = DefaultSegmenter
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Manager{store: store, db: db, embedder: embedder, opts: opts, logger: logger}
}

// IsAvailable reports whether a built index is published.
func (m *Manager) IsAvailable() bool { return m.current.Load() != nil }

// Current returns the published handle, or nil when the index is absent.
func (m *Manager) Current() *Handle { return m.current.Load() }

// Embedder returns the capability the index was built with.
func (m *Manager) Embedder() llm.Embedder { return m.embedder }

// Store returns the Document Store the index is built from.
func (m *Manager) Store() storage.Provider { return m.store }

// Status describes the current index.
func (m *Manager) Status() Status {
	h := m.current.Load()
	if h == nil {
		return statusOf(nil, "no cookbook indexed")
	}
	return statusOf(h, fmt.Sprintf("%d items indexed", len(h.Documents)))
}

// Load restores the last published generation from the database. A
// generation embedded with a different model is ignored.
func (m *Manager) Load(ctx context.Context) (Status, error) {
	h, err := m.db.LoadCurrent(ctx)
	if err != nil {
		return m.Status(), apperr.New(apperr.KindInternal, "index.load", err, "could not read the saved index")
	}
	if h == nil {
		return m.Status(), nil
	}
	if h.Model != m.embedder.ModelName() {
		m.logger.Warn("index: saved index uses another embedding model",
			slog.String("saved", h.Model),
			slog.String("configured", m.embedder.ModelName()))
		return m.Status(), nil
	}

	m.publishMu.Lock()
	defer m.publishMu.Unlock()
	if !m.current.CompareAndSwap(nil, h) {
		return m.Status(), nil
	}
	m.logger.Info("index: loaded",
		slog.Int64("generation", h.Generation),
		slog.Int("documents", len(h.Documents)),
		slog.Int("chunks", h.Len()))
	return m.Status(), nil
}

// Build indexes every document in the store and publishes the result.
// On any failure the previous index stays current.
func (m *Manager) Build(ctx context.Context) (Status, error) {
	return m.build(ctx, "index.build")
}

// Rebuild is Build; the previous index remains queryable until the swap.
func (m *Manager) Rebuild(ctx context.Context) (Status, error) {
	return m.build(ctx, "index.rebuild")
}

// RebuildAsync runs Rebuild in the background and reports through done.
// ctx must outlive the caller's request.
func (m *Manager) RebuildAsync(ctx context.Context, done func(Status, error)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		st, err := m.Rebuild(ctx)
		if done != nil {
			done(st, err)
		}
	}()
}

// Wait blocks until background rebuilds finish.
func (m *Manager) Wait() { m.wg.Wait() }

func (m *Manager) build(ctx context.Context, op string) (Status, error) {
	epoch := m.epoch.Add(1)

	m.buildMu.Lock()
	defer m.buildMu.Unlock()

	if m.epoch.Load() != epoch {
		return m.Status(), apperr.New(apperr.KindUnavailable, op, apperr.ErrSuperseded, "")
	}

	start := time.Now()
	metas, err := m.store.List()
	if err != nil {
		return m.Status(), apperr.New(apperr.KindInternal, op, err, "could not list documents")
	}
	if len(metas) == 0 {
		return m.Status(), apperr.New(apperr.KindNotFound, op, apperr.ErrNoDocuments, "")
	}

	docs, chunks, err := m.segment(metas)
	if err != nil {
		return m.Status(), apperr.New(apperr.KindInternal, op, err, "could not read documents")
	}
	if len(chunks) == 0 {
		return m.Status(), apperr.New(apperr.KindNotFound, op, apperr.ErrNoDocuments, "no readable text in documents")
	}

	vectors, err := m.embed(ctx, chunks)
	if err != nil {
		return m.Status(), apperr.New(apperr.KindUnavailable, op, err, "embedding failed")
	}

	h := &Handle{
		Model:       m.embedder.ModelName(),
		Dimension:   len(vectors[0]),
		Chunks:      chunks,
		Vectors:     vectors,
		Documents:   docs,
		Fingerprint: checksum.Fingerprint(metas),
		BuiltAt:     time.Now().UTC(),
	}
	if err := m.db.Stage(ctx, h); err != nil {
		return m.Status(), apperr.New(apperr.KindInternal, op, err, "could not save index")
	}

	if err := m.publish(ctx, epoch, h); err != nil {
		m.discard(h.Generation)
		if errors.Is(err, apperr.ErrSuperseded) {
			return m.Status(), apperr.New(apperr.KindUnavailable, op, err, "")
		}
		return m.Status(), apperr.New(apperr.KindInternal, op, err, "could not publish index")
	}

	m.logger.Info("index: published",
		slog.Int64("generation", h.Generation),
		slog.Int("documents", len(docs)),
		slog.Int("chunks", len(chunks)),
		slog.Duration("elapsed", time.Since(start)))
	return statusOf(h, fmt.Sprintf("%d items indexed", len(docs))), nil
}

func (m *Manager) publish(ctx context.Context, epoch uint64, h *Handle) error {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	if m.epoch.Load() != epoch {
		return apperr.ErrSuperseded
	}
	if err := m.db.Publish(ctx, h.Generation); err != nil {
		return err
	}
	m.current.Store(h)
	return nil
}

func (m *Manager) discard(gen int64) {
	if err := m.db.Discard(context.Background(), gen); err != nil {
		m.logger.Warn("index: discard staged generation failed",
			slog.Int64("generation", gen),
			slog.String("error", err.Error()))
	}
}

// Clear removes the index and every persisted generation. Clearing an
// absent index succeeds.
func (m *Manager) Clear(ctx context.Context) (Status, error) {
	m.epoch.Add(1)

	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	prev := m.current.Swap(nil)
	if err := m.db.DeleteAll(ctx); err != nil {
		return statusOf(nil, ""), apperr.New(apperr.KindInternal, "index.clear", err, "could not delete saved index")
	}
	if prev == nil {
		return statusOf(nil, "index already empty"), nil
	}
	m.logger.Info("index: cleared", slog.Int64("generation", prev.Generation))
	return statusOf(nil, "index cleared"), nil
}

// segment parses and chunks documents in path order. Unparseable documents
// are skipped with a warning.
func (m *Manager) segment(metas []models.DocumentMetadata) ([]models.DocumentMetadata, []models.Chunk, error) {
	var docs []models.DocumentMetadata
	var chunks []models.Chunk
	for _, meta := range metas {
		data, err := m.store.Read(meta.Path)
		if err != nil {
			return nil, nil, err
		}
		res, err := parser.Parse(meta.Path, data)
		if err != nil {
			m.logger.Warn("index: skipping document", slog.String("path", meta.Path), slog.String("error", err.Error()))
			continue
		}
		docs = append(docs, meta)
		for i, text := range m.opts.Segmenter.Split(res.Body) {
			chunks = append(chunks, models.Chunk{SourceID: meta.Path, Text: text, Ordinal: i})
		}
	}
	return docs, chunks, nil
}

func (m *Manager) embed(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Workers)
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, end-start)
			for i := range texts {
				texts[i] = chunks[start+i].Text
			}
			vecs, err := m.embedder.Embed(gctx, texts, llm.IntentDocument)
			if err != nil {
				return err
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("index: embedder returned %d vectors for %d chunks", len(vecs), len(texts))
			}
			copy(vectors[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
