package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gyscontrol/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedProject(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, db.UpsertCatalogEntries(ctx, []internal.CatalogEntry{
		{ID: "cat-1", Code: "EQ010", Description: "Tablero eléctrico 400A"},
	}))
	require.NoError(t, db.UpsertEquipmentGroup(ctx, internal.EquipmentGroup{
		ID: "g-1", ProjectID: "p-1", Name: "Tableros",
		Items: []internal.QuotedItem{
			{ID: "q-1", Code: "EQ001", Description: "Variador 5kW", Quantity: 1, CatalogID: "cat-1"},
			{ID: "q-2", Code: "EQ002", Description: "Motor 10HP", Quantity: 3},
		},
	}))
	require.NoError(t, db.UpsertEquipmentGroup(ctx, internal.EquipmentGroup{ID: "g-2", ProjectID: "p-1", Name: "Vacío"}))
}

func TestFindCatalogEntry(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db)
	ctx := context.Background()

	byCode, err := db.FindCatalogEntry(ctx, internal.ImportRow{Code: " eq010 "})
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.Equal(t, "cat-1", byCode.ID)

	byDescription, err := db.FindCatalogEntry(ctx, internal.ImportRow{Code: "X-1", Description: "TABLERO ELECTRICO 400A"})
	require.NoError(t, err)
	require.NotNil(t, byDescription)
	assert.Equal(t, "cat-1", byDescription.ID)

	missing, err := db.FindCatalogEntry(ctx, internal.ImportRow{Code: "NOPE", Description: "Otra cosa"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateCatalogEntriesIsIdempotentPerCode(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	payloads := []internal.CatalogEntryPayload{{Code: "EQ100", Description: "Bomba"}, {Code: "eq100", Description: "Bomba bis"}}
	require.NoError(t, db.CreateCatalogEntries(ctx, payloads))
	require.NoError(t, db.CreateCatalogEntries(ctx, payloads))
	require.NoError(t, db.CreateCatalogEntries(ctx, nil))

	entries, err := db.ListCatalogEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Bomba", entries[0].Description)
}

func TestFetchQuotedItems(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db)

	groups, err := db.FetchQuotedItems(context.Background(), "p-1")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Tableros", groups[0].Name)
	assert.Len(t, groups[0].Items, 2)
	assert.Equal(t, "cat-1", groups[0].Items[0].CatalogID)
	assert.Empty(t, groups[1].Items)

	opt, err := db.FindQuotedItem(context.Background(), "p-1", internal.ImportRow{Code: "eq002"})
	require.NoError(t, err)
	require.NotNil(t, opt)
	assert.Equal(t, "q-2", opt.ID)
	assert.Equal(t, "g-1", opt.GroupID)

	other, err := db.FindQuotedItem(context.Background(), "p-2", internal.ImportRow{Code: "eq002"})
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestImportLinkedUpdatesQuantityOnRerun(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db)
	ctx := context.Background()

	overrides := []internal.QuantityOverride{{Code: "EQ001", QuotedItemID: "q-1", Quantity: 4}}
	require.NoError(t, db.ImportLinked(ctx, "list-1", []string{"q-1"}, overrides))

	overrides[0].Quantity = 6
	require.NoError(t, db.ImportLinked(ctx, "list-1", []string{"q-1"}, overrides))

	items, err := db.ListItems(ctx, "list-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 6.0, items[0].Quantity)
	assert.Equal(t, internal.OriginLinked, items[0].Origin)
	require.NotNil(t, items[0].QuotedItemID)
	assert.Equal(t, "q-1", *items[0].QuotedItemID)

	require.Error(t, db.ImportLinked(ctx, "list-1", []string{"missing"}, nil))
}

func TestImportPathsAreIdempotent(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db)
	ctx := context.Background()

	run := func() {
		require.NoError(t, db.ImportReplacement(ctx, "list-1", "g-1", []internal.Replacement{
			{Row: internal.ImportRow{Code: "EQ002B", Description: "Motor 15HP", Quantity: 2}, QuotedItemID: "q-2", Motive: "Equipment upgrade"},
		}, "u-1"))
		require.NoError(t, db.ImportFromCatalog(ctx, "list-1", "g-2", []string{"cat-1"}, map[string]float64{"cat-1": 3}, "u-1"))
		require.NoError(t, db.ImportDirect(ctx, "list-1", "g-2", []internal.ImportRow{{Code: "EQ900", Description: "Cable", Quantity: 100}}, "u-1"))
	}
	run()
	run()

	items, err := db.ListItems(ctx, "list-1")
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, internal.OriginReplaced, items[0].Origin)
	require.NotNil(t, items[0].Motive)
	assert.Equal(t, "Equipment upgrade", *items[0].Motive)
	assert.Equal(t, internal.OriginCatalog, items[1].Origin)
	assert.Equal(t, 3.0, items[1].Quantity)
	assert.Equal(t, internal.OriginDirect, items[2].Origin)
	assert.Nil(t, items[2].CatalogID)

	require.NoError(t, db.ImportReplacement(ctx, "list-1", "g-1", nil, "u-1"))
	require.NoError(t, db.ImportFromCatalog(ctx, "list-1", "g-1", nil, nil, "u-1"))
	require.NoError(t, db.ImportDirect(ctx, "list-1", "g-1", nil, "u-1"))
	require.NoError(t, db.ImportLinked(ctx, "list-1", nil, nil))
}

func TestRunsAndMetadata(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertRun(ctx, internal.RunRecord{
		TraceID: "t-1", ProjectID: "p-1", ListID: "list-1", Status: "completed",
		Timings: map[string]float64{"totalMs": 12}, Counts: map[string]int{"linked": 2},
	}))
	runs, err := db.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Counts["linked"])

	value, err := db.GetMetadata(ctx, "catalog.last_sync")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, db.SetMetadata(ctx, "catalog.last_sync", "2026-01-01T00:00:00Z"))
	value, err = db.GetMetadata(ctx, "catalog.last_sync")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "2026-01-01T00:00:00Z", *value)
}

func TestImportReplacementKeepsEveryRowForOneQuotedItem(t *testing.T) {
	db := openTestDB(t)
	seedProject(t, db)
	ctx := context.Background()

	reps := []internal.Replacement{
		{Row: internal.ImportRow{LineNo: 3, Code: "EQ002B", Description: "Motor 15HP", Quantity: 2}, QuotedItemID: "q-2", Motive: "Equipment upgrade"},
		{Row: internal.ImportRow{LineNo: 4, Code: "EQ002C", Description: "Motor 15HP con freno", Quantity: 1}, QuotedItemID: "q-2", Motive: "Equipment upgrade"},
	}
	require.NoError(t, db.ImportReplacement(ctx, "list-1", "g-1", reps, "u-1"))
	require.NoError(t, db.ImportReplacement(ctx, "list-1", "g-1", reps, "u-1"))

	items, err := db.ListItems(ctx, "list-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "EQ002B", items[0].Code)
	assert.Equal(t, "EQ002C", items[1].Code)
	for _, it := range items {
		require.NotNil(t, it.ReplacedQuotedItemID)
		assert.Equal(t, "q-2", *it.ReplacedQuotedItemID)
	}
}
