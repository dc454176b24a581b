package journals

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/acodispatch/core/dispatch/journal"
)

func TestOpenJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replans.jsonl")
	store, err := Open("jsonl", map[string]any{"path": path})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Append(context.Background(), journal.Record{RunID: "r", Minute: 4}))
	recs, err := store.Query(context.Background(), journal.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 4, recs[0].Minute)
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("sqlite", map[string]any{"path": "x.db"})
	assert.Error(t, err)
	assert.Equal(t, []string{"jsonl", "jsonl-rotating"}, Backends())
	assert.Error(t, Register("jsonl", nil))
}

func TestOpenRotating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replans.jsonl")
	store, err := Open("jsonl-rotating", map[string]any{"path": path, "max_size_mb": "2"})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	assert.IsType(t, &journal.RotatingJSONLStore{}, store)

	require.NoError(t, store.Append(context.Background(), journal.Record{RunID: "r", Minute: 9}))
	recs, err := store.Query(context.Background(), journal.Query{FromMinute: 5})
	require.NoError(t, err)
	require.Len(t, recs, 1)
}
