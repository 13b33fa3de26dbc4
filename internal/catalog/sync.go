package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"gyscontrol/internal"
	"gyscontrol/internal/logging"
)

const lastSyncKey = "catalog.last_sync"

type Source interface {
	ScrollCatalog(ctx context.Context) ([]internal.CatalogEntry, error)
}

type Store interface {
	UpsertCatalogEntries(ctx context.Context, entries []internal.CatalogEntry) error
	SetMetadata(ctx context.Context, key, value string) error
	GetMetadata(ctx context.Context, key string) (*string, error)
}

type SyncResult struct {
	Fetched int
	Stored  int
	Skipped []string
}

// SyncService mirrors the remote ERP catalog into the local store.
type SyncService struct {
	store  Store
	source Source
	now    func() time.Time
}

func NewSyncService(store Store, source Source) *SyncService {
	return &SyncService{store: store, source: source, now: time.Now}
}

// Sync pulls every remote entry and upserts the ones whose code is unique.
// Entries sharing a code key are skipped, since a row could not resolve to one of them.
func (s *SyncService) Sync(ctx context.Context) (SyncResult, error) {
	entries, err := s.source.ScrollCatalog(ctx)
	if err != nil {
		return SyncResult{}, errors.Wrap(err, "fetch remote catalog")
	}

	idx := BuildIndex(entries)
	result := SyncResult{Fetched: len(entries), Skipped: idx.AmbiguousCodes()}
	unique := idx.Unique()

	log := logging.Ctx(ctx)
	for _, code := range result.Skipped {
		log.Warn().Str("code", code).Int("entries", len(idx.ByCode[code])).Msg("skipping ambiguous catalog code")
	}

	if err := s.store.UpsertCatalogEntries(ctx, unique); err != nil {
		return result, errors.Wrap(err, "store catalog entries")
	}
	result.Stored = len(unique)

	if err := s.store.SetMetadata(ctx, lastSyncKey, s.now().UTC().Format(time.RFC3339)); err != nil {
		return result, errors.Wrap(err, "record sync time")
	}
	log.Info().Int("fetched", result.Fetched).Int("stored", result.Stored).Int("skipped", len(result.Skipped)).Msg("catalog synced")
	return result, nil
}

// LastSync returns the time of the last successful sync, or the zero time.
func (s *SyncService) LastSync(ctx context.Context) (time.Time, error) {
	value, err := s.store.GetMetadata(ctx, lastSyncKey)
	if err != nil {
		return time.Time{}, err
	}
	if value == nil {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse %s", lastSyncKey)
	}
	return parsed, nil
}
