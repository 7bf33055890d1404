package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/agentic-research/nixsel/internal/selector"
	"github.com/agentic-research/nixsel/internal/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_RoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "out.db")
	w, err := NewWriter(dbPath)
	require.NoError(t, err)

	ctx := "lib.maintainers"
	require.NoError(t, w.Add("default.nix", selector.Record{
		Path: "maintainers", Index: 0, Value: "a",
		ValueSpan:   syntax.Span{Start: 10, End: 11},
		Context:     &ctx,
		ContextSpan: &syntax.Span{Start: 2, End: 8},
		Frames:      []string{"with", "let"},
	}))
	require.NoError(t, w.Add("default.nix", selector.Record{
		Path: "maintainers", Index: 1, Value: "b",
		ValueSpan: syntax.Span{Start: 12, End: 13},
	}))
	require.NoError(t, w.Close())

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM values_ctx`).Scan(&n))
	assert.Equal(t, 2, n)

	var (
		value, frames string
		context       sql.NullString
		start         sql.NullInt64
	)
	row := db.QueryRow(`SELECT value, context, context_start, frames FROM values_ctx WHERE idx = 0`)
	require.NoError(t, row.Scan(&value, &context, &start, &frames))
	assert.Equal(t, "a", value)
	assert.Equal(t, "lib.maintainers", context.String)
	assert.Equal(t, int64(2), start.Int64)
	assert.Equal(t, "with,let", frames)

	row = db.QueryRow(`SELECT context, context_start FROM values_ctx WHERE idx = 1`)
	require.NoError(t, row.Scan(&context, &start))
	assert.False(t, context.Valid)
	assert.False(t, start.Valid)
}

func TestWriter_Batches(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "out.db")
	w, err := NewWriter(dbPath)
	require.NoError(t, err)
	w.batchSize = 2

	for i := range 5 {
		require.NoError(t, w.Add("f.nix", selector.Record{Path: "xs", Index: i, Value: "v"}))
	}
	require.NoError(t, w.Close())

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM values_ctx`).Scan(&n))
	assert.Equal(t, 5, n)
}
