package internal

import "strings"

type RowSource string

const (
	SourceXLSX      RowSource = "xlsx"
	SourceHTMLTable RowSource = "html_table"
	SourcePDF       RowSource = "pdf"
	SourceEmail     RowSource = "eml"
)

// ImportRow is one equipment line as extracted from the uploaded file.
// LineNo is the 1-based position in the file and identifies the row inside a session.
type ImportRow struct {
	LineNo      int       `json:"lineNo"`
	Source      RowSource `json:"source"`
	Code        string    `json:"code" validate:"required"`
	Description string    `json:"description" validate:"required"`
	Category    string    `json:"category"`
	Unit        string    `json:"unit"`
	Brand       string    `json:"brand"`
	Quantity    float64   `json:"quantity" validate:"gte=0"`
}

// Key is the identity key of the row: trimmed, lower-cased code.
func (r ImportRow) Key() string {
	return strings.ToLower(strings.TrimSpace(r.Code))
}

type RowState string

const (
	StateNew         RowState = "new"
	StateCatalogOnly RowState = "catalog_only"
	StateQuoted      RowState = "quoted"
)

type CatalogRef struct {
	CatalogID    string `json:"catalogId,omitempty"`
	QuotedItemID string `json:"quotedItemId,omitempty"`
}

type VerifiedRow struct {
	ImportRow
	State      RowState    `json:"state"`
	CatalogRef *CatalogRef `json:"catalogRef,omitempty"`
}

// HasCatalogEntry reports whether the row is backed by a permanent catalog entry.
func (v VerifiedRow) HasCatalogEntry() bool {
	return v.CatalogRef != nil && v.CatalogRef.CatalogID != ""
}

type CatalogEntry struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Unit        string `json:"unit"`
	Brand       string `json:"brand"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

type CatalogEntryPayload struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Unit        string `json:"unit"`
	Brand       string `json:"brand"`
}

type QuotedItem struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Unit        string  `json:"unit"`
	Brand       string  `json:"brand"`
	Quantity    float64 `json:"quantity"`
	CatalogID   string  `json:"catalogId,omitempty"`
}

type EquipmentGroup struct {
	ID        string       `json:"id"`
	ProjectID string       `json:"projectId"`
	Name      string       `json:"name"`
	Items     []QuotedItem `json:"items"`
}

// QuotedItemOption is a quoted item flattened together with its owning group.
type QuotedItemOption struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Category    string `json:"category"`
	GroupID     string `json:"groupId"`
	GroupName   string `json:"groupName"`
	CatalogID   string `json:"catalogId,omitempty"`
}

type QuantityOverride struct {
	Code         string  `json:"code"`
	QuotedItemID string  `json:"quotedItemId"`
	Quantity     float64 `json:"quantity"`
}

type Replacement struct {
	Row          ImportRow `json:"row"`
	QuotedItemID string    `json:"quotedItemId"`
	Motive       string    `json:"motive"`
}

type ListItemOrigin string

const (
	OriginLinked   ListItemOrigin = "linked"
	OriginReplaced ListItemOrigin = "replaced"
	OriginCatalog  ListItemOrigin = "catalog"
	OriginDirect   ListItemOrigin = "direct"
)

type ListItem struct {
	ID                   int            `json:"id"`
	ListID               string         `json:"listId"`
	GroupID              string         `json:"groupId"`
	Origin               ListItemOrigin `json:"origin"`
	Code                 string         `json:"code"`
	Description          string         `json:"description"`
	Category             string         `json:"category"`
	Unit                 string         `json:"unit"`
	Brand                string         `json:"brand"`
	Quantity             float64        `json:"quantity"`
	QuotedItemID         *string        `json:"quotedItemId"`
	CatalogID            *string        `json:"catalogId"`
	ReplacedQuotedItemID *string        `json:"replacedQuotedItemId"`
	Motive               *string        `json:"motive"`
	ActorID              *string        `json:"actorId"`
}

type RunRecord struct {
	ID        int
	TraceID   string
	ProjectID string
	ListID    string
	Status    string
	Timings   map[string]float64
	Counts    map[string]int
	CreatedAt string
}
