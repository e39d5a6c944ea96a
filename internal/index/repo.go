package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/starford/souschef/internal/models"
)

// Stage writes h as a non-current generation and sets h.Generation.
func (db *DB) Stage(ctx context.Context, h *Handle) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	res, err := tx.ExecContext(ctx, `
		INSERT INTO generations (model, dimension, fingerprint, built_at, current)
		VALUES (?, ?, ?, ?, 0)
	`, h.Model, h.Dimension, h.Fingerprint, h.BuiltAt)
	if err != nil {
		return fmt.Errorf("index: insert generation: %w", err)
	}
	gen, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("index: generation id: %w", err)
	}

	docStmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (generation, path, checksum, size, updated_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare document insert: %w", err)
	}
	defer docStmt.Close()
	for _, d := range h.Documents {
		if _, err := docStmt.ExecContext(ctx, gen, d.Path, d.Checksum, d.Size, d.UpdatedAt); err != nil {
			return fmt.Errorf("index: insert document: %w", err)
		}
	}

	chunkStmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (generation, position, source_id, ordinal, text, vector) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare chunk insert: %w", err)
	}
	defer chunkStmt.Close()
	for i, c := range h.Chunks {
		if _, err := chunkStmt.ExecContext(ctx, gen, i, c.SourceID, c.Ordinal, c.Text, encodeVector(h.Vectors[i])); err != nil {
			return fmt.Errorf("index: insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit stage: %w", err)
	}
	h.Generation = gen
	return nil
}

// Publish marks gen current and drops every other generation.
func (db *DB) Publish(ctx context.Context, gen int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `UPDATE generations SET current = 1 WHERE id = ?`, gen)
	if err != nil {
		return fmt.Errorf("index: mark current: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("index: generation %d not staged", gen)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM generations WHERE id != ?`, gen); err != nil {
		return fmt.Errorf("index: drop old generations: %w", err)
	}
	return tx.Commit()
}

// Discard removes a generation and its rows.
func (db *DB) Discard(ctx context.Context, gen int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM generations WHERE id = ?`, gen); err != nil {
		return fmt.Errorf("index: discard generation %d: %w", gen, err)
	}
	return nil
}

// DeleteAll removes every generation, staged or current.
func (db *DB) DeleteAll(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM generations`); err != nil {
		return fmt.Errorf("index: delete all: %w", err)
	}
	return nil
}

// LoadCurrent reads the current generation. It returns nil, nil when none exists.
func (db *DB) LoadCurrent(ctx context.Context) (*Handle, error) {
	h := &Handle{}
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, model, dimension, fingerprint, built_at
		FROM generations WHERE current = 1
		ORDER BY id DESC LIMIT 1
	`).Scan(&h.Generation, &h.Model, &h.Dimension, &h.Fingerprint, &h.BuiltAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: load generation: %w", err)
	}

	docRows, err := db.conn.QueryContext(ctx, `
		SELECT path, checksum, size, updated_at FROM documents
		WHERE generation = ? ORDER BY path
	`, h.Generation)
	if err != nil {
		return nil, fmt.Errorf("index: load documents: %w", err)
	}
	defer docRows.Close()
	for docRows.Next() {
		var d models.DocumentMetadata
		if err := docRows.Scan(&d.Path, &d.Checksum, &d.Size, &d.UpdatedAt); err != nil {
			return nil, err
		}
		h.Documents = append(h.Documents, d)
	}
	if err := docRows.Err(); err != nil {
		return nil, err
	}

	chunkRows, err := db.conn.QueryContext(ctx, `
		SELECT source_id, ordinal, text, vector FROM chunks
		WHERE generation = ? ORDER BY position
	`, h.Generation)
	if err != nil {
		return nil, fmt.Errorf("index: load chunks: %w", err)
	}
	defer chunkRows.Close()
	for chunkRows.Next() {
		var c models.Chunk
		var blob []byte
		if err := chunkRows.Scan(&c.SourceID, &c.Ordinal, &c.Text, &blob); err != nil {
			return nil, err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		h.Chunks = append(h.Chunks, c)
		h.Vectors = append(h.Vectors, vec)
	}
	return h, chunkRows.Err()
}

// GenerationCount returns how many generations are stored.
func (db *DB) GenerationCount(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM generations`).Scan(&n)
	return n, err
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("index: corrupt vector of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
