package catalog

import (
	"sort"

	"gyscontrol/internal"
	"gyscontrol/internal/util"
)

// Index groups catalog entries by code key.
type Index struct {
	EntriesByID map[string]internal.CatalogEntry
	ByCode      map[string][]internal.CatalogEntry
}

func BuildIndex(entries []internal.CatalogEntry) *Index {
	idx := &Index{
		EntriesByID: map[string]internal.CatalogEntry{},
		ByCode:      map[string][]internal.CatalogEntry{},
	}
	for _, e := range entries {
		if _, dup := idx.EntriesByID[e.ID]; dup {
			continue
		}
		idx.EntriesByID[e.ID] = e
		if key := util.NormalizeKey(e.Code); key != "" {
			idx.ByCode[key] = append(idx.ByCode[key], e)
		}
	}
	return idx
}

// AmbiguousCodes lists code keys carried by more than one entry, sorted.
func (idx *Index) AmbiguousCodes() []string {
	out := []string{}
	for key, entries := range idx.ByCode {
		if len(entries) > 1 {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Unique returns the entries whose code key is not ambiguous, in id order.
func (idx *Index) Unique() []internal.CatalogEntry {
	out := []internal.CatalogEntry{}
	for _, entries := range idx.ByCode {
		if len(entries) == 1 {
			out = append(out, entries[0])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
