// Package store exports selection records into SQLite.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/agentic-research/nixsel/internal/selector"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS values_ctx (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file TEXT NOT NULL,
	path TEXT NOT NULL,
	idx INTEGER NOT NULL,
	value TEXT NOT NULL,
	value_start INTEGER NOT NULL,
	value_end INTEGER NOT NULL,
	context TEXT,
	context_start INTEGER,
	context_end INTEGER,
	frames TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_values_ctx_path ON values_ctx(file, path);
`

// Writer batches records into values_ctx. It is safe for concurrent use.
type Writer struct {
	db        *sql.DB
	tx        *sql.Tx
	stmt      *sql.Stmt
	batchSize int
	count     int
	mu        sync.Mutex
}

// NewWriter opens (or creates) the database and its schema.
func NewWriter(dbPath string) (*Writer, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	w := &Writer{db: db, batchSize: 5000}
	if err := w.beginTx(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) beginTx() error {
	var err error
	w.tx, err = w.db.Begin()
	if err != nil {
		return err
	}
	w.stmt, err = w.tx.Prepare(`
		INSERT INTO values_ctx (file, path, idx, value, value_start, value_end,
			context, context_start, context_end, frames)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	return err
}

func (w *Writer) commitTx() error {
	if w.stmt != nil {
		_ = w.stmt.Close()
		w.stmt = nil
	}
	return w.tx.Commit()
}

// Add inserts one record for file.
func (w *Writer) Add(file string, r selector.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ctxStart, ctxEnd *int64
	if r.ContextSpan != nil {
		s, e := int64(r.ContextSpan.Start), int64(r.ContextSpan.End)
		ctxStart, ctxEnd = &s, &e
	}
	_, err := w.stmt.Exec(
		file,
		r.Path,
		r.Index,
		r.Value,
		int64(r.ValueSpan.Start),
		int64(r.ValueSpan.End),
		r.Context,
		ctxStart,
		ctxEnd,
		strings.Join(r.Frames, ","),
	)
	if err != nil {
		return fmt.Errorf("insert %s[%d]: %w", r.Path, r.Index, err)
	}

	w.count++
	if w.count >= w.batchSize {
		if err := w.commitTx(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		if err := w.beginTx(); err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		w.count = 0
	}
	return nil
}

// Close commits pending rows and closes the database.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.commitTx()
	if cerr := w.db.Close(); err == nil {
		err = cerr
	}
	return err
}
