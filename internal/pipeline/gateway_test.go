package pipeline

import (
	"context"
	"fmt"

	"gyscontrol/internal"
	"gyscontrol/internal/util"
)

type gatewayCall struct {
	Method       string
	ListID       string
	GroupID      string
	ActorID      string
	IDs          []string
	Overrides    []internal.QuantityOverride
	Replacements []internal.Replacement
	Quantities   map[string]float64
	Rows         []internal.ImportRow
	Payloads     []internal.CatalogEntryPayload
}

// fakeGateway keeps catalog and quotation in memory and records every mutating call.
type fakeGateway struct {
	catalog   []internal.CatalogEntry
	groups    []internal.EquipmentGroup
	calls     []gatewayCall
	failOn    map[string]error
	lookupErr map[string]error
	lookups   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{failOn: map[string]error{}, lookupErr: map[string]error{}}
}

func (f *fakeGateway) methods() []string {
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Method)
	}
	return out
}

func (f *fakeGateway) call(method string) *gatewayCall {
	for i := range f.calls {
		if f.calls[i].Method == method {
			return &f.calls[i]
		}
	}
	return nil
}

func (f *fakeGateway) FindCatalogEntry(_ context.Context, row internal.ImportRow) (*internal.CatalogEntry, error) {
	f.lookups++
	if err := f.lookupErr[row.Key()]; err != nil {
		return nil, err
	}
	for _, e := range f.catalog {
		if util.NormalizeKey(e.Code) == row.Key() {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (f *fakeGateway) FindQuotedItem(_ context.Context, projectID string, row internal.ImportRow) (*internal.QuotedItemOption, error) {
	for _, opt := range FlattenQuotedItems(f.project(projectID)) {
		if util.NormalizeKey(opt.Code) == row.Key() {
			found := opt
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeGateway) FetchQuotedItems(_ context.Context, projectID string) ([]internal.EquipmentGroup, error) {
	return f.project(projectID), nil
}

func (f *fakeGateway) project(projectID string) []internal.EquipmentGroup {
	out := []internal.EquipmentGroup{}
	for _, g := range f.groups {
		if g.ProjectID == projectID {
			out = append(out, g)
		}
	}
	return out
}

func (f *fakeGateway) CreateCatalogEntries(_ context.Context, payloads []internal.CatalogEntryPayload) error {
	f.calls = append(f.calls, gatewayCall{Method: "CreateCatalogEntries", Payloads: payloads})
	if err := f.failOn["CreateCatalogEntries"]; err != nil {
		return err
	}
	for _, p := range payloads {
		exists := false
		for _, e := range f.catalog {
			if util.NormalizeKey(e.Code) == util.NormalizeKey(p.Code) {
				exists = true
			}
		}
		if !exists {
			f.catalog = append(f.catalog, internal.CatalogEntry{
				ID:          fmt.Sprintf("new-%s", util.NormalizeKey(p.Code)),
				Code:        p.Code,
				Description: p.Description,
			})
		}
	}
	return nil
}

func (f *fakeGateway) ImportLinked(_ context.Context, listID string, ids []string, overrides []internal.QuantityOverride) error {
	f.calls = append(f.calls, gatewayCall{Method: "ImportLinked", ListID: listID, IDs: ids, Overrides: overrides})
	return f.failOn["ImportLinked"]
}

func (f *fakeGateway) ImportReplacement(_ context.Context, listID, groupID string, reps []internal.Replacement, actorID string) error {
	f.calls = append(f.calls, gatewayCall{Method: "ImportReplacement", ListID: listID, GroupID: groupID, Replacements: reps, ActorID: actorID})
	return f.failOn["ImportReplacement"]
}

func (f *fakeGateway) ImportFromCatalog(_ context.Context, listID, groupID string, ids []string, quantities map[string]float64, actorID string) error {
	f.calls = append(f.calls, gatewayCall{Method: "ImportFromCatalog", ListID: listID, GroupID: groupID, IDs: ids, Quantities: quantities, ActorID: actorID})
	return f.failOn["ImportFromCatalog"]
}

func (f *fakeGateway) ImportDirect(_ context.Context, listID, groupID string, rows []internal.ImportRow, actorID string) error {
	f.calls = append(f.calls, gatewayCall{Method: "ImportDirect", ListID: listID, GroupID: groupID, Rows: rows, ActorID: actorID})
	return f.failOn["ImportDirect"]
}

// seededGateway holds one project with two groups and one catalog entry.
func seededGateway() *fakeGateway {
	gw := newFakeGateway()
	gw.catalog = []internal.CatalogEntry{
		{ID: "cat-10", Code: "EQ010", Description: "Tablero eléctrico 400A"},
		{ID: "cat-1", Code: "EQ001", Description: "Variador 5kW"},
	}
	gw.groups = []internal.EquipmentGroup{
		{ID: "g-1", ProjectID: "p-1", Name: "Accionamientos", Items: []internal.QuotedItem{
			{ID: "q-1", Code: "EQ001", Description: "Variador 5kW", Quantity: 1, CatalogID: "cat-1"},
			{ID: "q-2", Code: "EQ005", Description: "Motor 10HP", Quantity: 3},
		}},
		{ID: "g-2", ProjectID: "p-1", Name: "Bombeo", Items: []internal.QuotedItem{
			{ID: "q-3", Code: "EQ007", Description: "Bomba centrífuga 2HP", Quantity: 2},
		}},
	}
	return gw
}
