package pipeline

import "gyscontrol/internal"

type ImportPath string

const (
	PathLinked   ImportPath = "LINKED"
	PathReplaced ImportPath = "REPLACED"
	PathCatalog  ImportPath = "CATALOG_IMPORT"
	PathDirect   ImportPath = "DIRECT_IMPORT"
)

// Assignment is the import path chosen for one row. The set of
// implementations is closed: LinkedRow, ReplacedRow, CatalogRow, DirectRow.
type Assignment interface {
	Path() ImportPath
	Verified() internal.VerifiedRow
	assignment()
}

type LinkedRow struct {
	Row    internal.VerifiedRow
	Target internal.QuotedItemOption
}

type ReplacedRow struct {
	Row    internal.VerifiedRow
	Target internal.QuotedItemOption
	Motive string
}

// CatalogRow imports through the catalog. CreateEntry is set for rows the user
// opted into the catalog; their entry is created during execution.
type CatalogRow struct {
	Row         internal.VerifiedRow
	CreateEntry bool
}

type DirectRow struct {
	Row internal.VerifiedRow
}

func (LinkedRow) Path() ImportPath   { return PathLinked }
func (ReplacedRow) Path() ImportPath { return PathReplaced }
func (CatalogRow) Path() ImportPath  { return PathCatalog }
func (DirectRow) Path() ImportPath   { return PathDirect }

func (a LinkedRow) Verified() internal.VerifiedRow   { return a.Row }
func (a ReplacedRow) Verified() internal.VerifiedRow { return a.Row }
func (a CatalogRow) Verified() internal.VerifiedRow  { return a.Row }
func (a DirectRow) Verified() internal.VerifiedRow   { return a.Row }

func (LinkedRow) assignment()   {}
func (ReplacedRow) assignment() {}
func (CatalogRow) assignment()  {}
func (DirectRow) assignment()   {}

// Plan is the classification of a whole session. Assignments keeps input
// order; the typed slices hold the same rows split by path.
type Plan struct {
	ProjectID   string
	Assignments []Assignment

	Linked   []LinkedRow
	Replaced []ReplacedRow
	Catalog  []CatalogRow
	Direct   []DirectRow
}

func (p *Plan) add(a Assignment) {
	p.Assignments = append(p.Assignments, a)
	switch v := a.(type) {
	case LinkedRow:
		p.Linked = append(p.Linked, v)
	case ReplacedRow:
		p.Replaced = append(p.Replaced, v)
	case CatalogRow:
		p.Catalog = append(p.Catalog, v)
	case DirectRow:
		p.Direct = append(p.Direct, v)
	}
}

func (p Plan) Counts() map[ImportPath]int {
	return map[ImportPath]int{
		PathLinked:   len(p.Linked),
		PathReplaced: len(p.Replaced),
		PathCatalog:  len(p.Catalog),
		PathDirect:   len(p.Direct),
	}
}

// NewEntries counts catalog rows whose entry is created during execution.
func (p Plan) NewEntries() int {
	n := 0
	for _, c := range p.Catalog {
		if c.CreateEntry {
			n++
		}
	}
	return n
}
