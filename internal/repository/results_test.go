package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oladayo-ade/solarbill/constants"
	"github.com/oladayo-ade/solarbill/internal/pipeline"
)

func newTestStore(t *testing.T) *ResultStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "results.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewResultStore(db, logger)
}

func TestInsertAndListRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	res := &pipeline.Result{
		ID:          uuid.New(),
		SourcePath:  "march.txt",
		State:       constants.StateComplete,
		Confidence:  90,
		NeedsReview: false,
	}
	require.NoError(t, store.Insert(ctx, res))

	got, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, res.ID, got[0].ID)
	assert.Equal(t, res.SourcePath, got[0].SourcePath)
	assert.Equal(t, res.State, got[0].State)
	assert.Equal(t, 90, got[0].Confidence)
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	res := &pipeline.Result{ID: uuid.New(), SourcePath: "a.txt", State: constants.StateComplete}
	require.NoError(t, store.Insert(ctx, res))
	assert.Error(t, store.Insert(ctx, res))
}

func TestListRecentEmptyStore(t *testing.T) {
	store := newTestStore(t)

	got, err := store.ListRecent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
