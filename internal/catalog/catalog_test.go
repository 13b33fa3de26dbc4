package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gyscontrol/internal"
	"gyscontrol/internal/storage"
)

type sourceFunc func(ctx context.Context) ([]internal.CatalogEntry, error)

func (f sourceFunc) ScrollCatalog(ctx context.Context) ([]internal.CatalogEntry, error) {
	return f(ctx)
}

func remoteEntries() []internal.CatalogEntry {
	return []internal.CatalogEntry{
		{ID: "c-1", Code: "EQ001", Description: "Variador 5kW"},
		{ID: "c-2", Code: "EQ002", Description: "Motor 10HP"},
		{ID: "c-3", Code: "eq002 ", Description: "Motor 10HP bis"},
		{ID: "c-4", Code: "EQ010", Description: "Tablero eléctrico 400A"},
	}
}

func TestIndex(t *testing.T) {
	idx := BuildIndex(remoteEntries())

	assert.Equal(t, []string{"eq002"}, idx.AmbiguousCodes())
	unique := idx.Unique()
	require.Len(t, unique, 2)
	assert.Equal(t, "c-1", unique[0].ID)
}

func TestSyncStoresUniqueEntries(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	svc := NewSyncService(db, sourceFunc(func(context.Context) ([]internal.CatalogEntry, error) {
		return remoteEntries(), nil
	}))
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	last, err := svc.LastSync(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	result, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Fetched: 4, Stored: 2, Skipped: []string{"eq002"}}, result)

	entries, err := db.ListCatalogEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	found, err := db.FindCatalogEntry(ctx, internal.ImportRow{Code: "EQ010"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "c-4", found.ID)

	last, err = svc.LastSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), last)

	_, err = svc.Sync(ctx)
	require.NoError(t, err)
	entries, err = db.ListCatalogEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSyncPropagatesSourceErrors(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := NewSyncService(db, sourceFunc(func(context.Context) ([]internal.CatalogEntry, error) {
		return nil, errors.New("erp down")
	}))
	_, err = svc.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "erp down")

	last, err := svc.LastSync(context.Background())
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}
