package pipeline

import (
	"context"

	"gyscontrol/internal"
)

// Gateway is the persistence boundary of the import engine. Every mutating
// call must be a no-op on an empty collection and idempotent on the same input.
type Gateway interface {
	FindCatalogEntry(ctx context.Context, row internal.ImportRow) (*internal.CatalogEntry, error)
	FindQuotedItem(ctx context.Context, projectID string, row internal.ImportRow) (*internal.QuotedItemOption, error)
	FetchQuotedItems(ctx context.Context, projectID string) ([]internal.EquipmentGroup, error)

	CreateCatalogEntries(ctx context.Context, payloads []internal.CatalogEntryPayload) error
	ImportLinked(ctx context.Context, listID string, quotedItemIDs []string, overrides []internal.QuantityOverride) error
	ImportReplacement(ctx context.Context, listID, groupID string, replacements []internal.Replacement, actorID string) error
	ImportFromCatalog(ctx context.Context, listID, groupID string, catalogIDs []string, quantities map[string]float64, actorID string) error
	ImportDirect(ctx context.Context, listID, groupID string, rows []internal.ImportRow, actorID string) error
}
