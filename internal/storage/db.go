package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gyscontrol/internal"
	"gyscontrol/internal/pipeline"
	"gyscontrol/internal/util"
)

var _ pipeline.Gateway = (*DB)(nil)

// DB is the SQLite-backed gateway. It also keeps the import run log.
type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create data directory")
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "enable wal")
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "init schema")
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS catalog_entries (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  codeKey TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL,
  descriptionKey TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  unit TEXT NOT NULL DEFAULT '',
  brand TEXT NOT NULL DEFAULT '',
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_catalog_descriptionKey ON catalog_entries(descriptionKey);

CREATE TABLE IF NOT EXISTS equipment_groups (
  id TEXT PRIMARY KEY,
  projectId TEXT NOT NULL,
  name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_groups_projectId ON equipment_groups(projectId);

CREATE TABLE IF NOT EXISTS quoted_items (
  id TEXT PRIMARY KEY,
  groupId TEXT NOT NULL,
  code TEXT NOT NULL,
  codeKey TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  unit TEXT NOT NULL DEFAULT '',
  brand TEXT NOT NULL DEFAULT '',
  quantity REAL NOT NULL DEFAULT 0,
  catalogId TEXT,
  FOREIGN KEY(groupId) REFERENCES equipment_groups(id)
);
CREATE INDEX IF NOT EXISTS idx_quoted_codeKey ON quoted_items(codeKey);

CREATE TABLE IF NOT EXISTS list_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  listId TEXT NOT NULL,
  groupId TEXT NOT NULL DEFAULT '',
  origin TEXT NOT NULL,
  dedupeKey TEXT NOT NULL,
  code TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  unit TEXT NOT NULL DEFAULT '',
  brand TEXT NOT NULL DEFAULT '',
  quantity REAL NOT NULL DEFAULT 0,
  quotedItemId TEXT,
  catalogId TEXT,
  replacedQuotedItemId TEXT,
  motive TEXT,
  actorId TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(listId, dedupeKey)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  projectId TEXT NOT NULL,
  listId TEXT NOT NULL,
  status TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// UpsertCatalogEntries stores entries keyed by id. Used by the catalog sync.
func (d *DB) UpsertCatalogEntries(ctx context.Context, entries []internal.CatalogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO catalog_entries (id, code, codeKey, description, descriptionKey, category, unit, brand, updatedAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, COALESCE(NULLIF(?, ''), CURRENT_TIMESTAMP))
ON CONFLICT(id) DO UPDATE SET
  code=excluded.code,
  codeKey=excluded.codeKey,
  description=excluded.description,
  descriptionKey=excluded.descriptionKey,
  category=excluded.category,
  unit=excluded.unit,
  brand=excluded.brand,
  updatedAt=excluded.updatedAt
ON CONFLICT(codeKey) DO UPDATE SET
  code=excluded.code,
  description=excluded.description,
  descriptionKey=excluded.descriptionKey,
  category=excluded.category,
  unit=excluded.unit,
  brand=excluded.brand,
  updatedAt=excluded.updatedAt
`)
	if err != nil {
		return errors.Wrap(err, "prepare catalog upsert")
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.Code, util.NormalizeKey(e.Code), e.Description, util.NormalizeDescription(e.Description),
			e.Category, e.Unit, e.Brand, e.UpdatedAt,
		); err != nil {
			return errors.Wrapf(err, "upsert catalog entry %s", e.ID)
		}
	}

	return tx.Commit()
}

func (d *DB) ListCatalogEntries(ctx context.Context) ([]internal.CatalogEntry, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT id, code, description, category, unit, brand, updatedAt
FROM catalog_entries ORDER BY codeKey`)
	if err != nil {
		return nil, errors.Wrap(err, "query catalog")
	}
	defer rows.Close()

	var out []internal.CatalogEntry
	for rows.Next() {
		var e internal.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Code, &e.Description, &e.Category, &e.Unit, &e.Brand, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindCatalogEntry looks the row up by code key and falls back to a unique
// normalized-description match.
func (d *DB) FindCatalogEntry(ctx context.Context, row internal.ImportRow) (*internal.CatalogEntry, error) {
	if key := row.Key(); key != "" {
		entries, err := d.queryCatalog(ctx, `WHERE codeKey = ?`, key)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			return &entries[0], nil
		}
	}

	descKey := util.NormalizeDescription(row.Description)
	if descKey == "" {
		return nil, nil
	}
	entries, err := d.queryCatalog(ctx, `WHERE descriptionKey = ? LIMIT 2`, descKey)
	if err != nil {
		return nil, err
	}
	if len(entries) == 1 {
		return &entries[0], nil
	}
	return nil, nil
}

func (d *DB) queryCatalog(ctx context.Context, where string, args ...any) ([]internal.CatalogEntry, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT id, code, description, category, unit, brand, updatedAt
FROM catalog_entries `+where, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query catalog")
	}
	defer rows.Close()

	var out []internal.CatalogEntry
	for rows.Next() {
		var e internal.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Code, &e.Description, &e.Category, &e.Unit, &e.Brand, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateCatalogEntries inserts one entry per unique code; codes already in the
// catalog are left untouched.
func (d *DB) CreateCatalogEntries(ctx context.Context, payloads []internal.CatalogEntryPayload) error {
	if len(payloads) == 0 {
		return nil
	}
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range payloads {
		key := util.NormalizeKey(p.Code)
		if key == "" {
			return errors.Errorf("catalog entry without code: %q", p.Description)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO catalog_entries (id, code, codeKey, description, descriptionKey, category, unit, brand)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(codeKey) DO NOTHING
`, uuid.NewString(), p.Code, key, p.Description, util.NormalizeDescription(p.Description), p.Category, p.Unit, p.Brand); err != nil {
			return errors.Wrapf(err, "create catalog entry %s", p.Code)
		}
	}

	return tx.Commit()
}

// UpsertEquipmentGroup stores a quotation group and its items.
func (d *DB) UpsertEquipmentGroup(ctx context.Context, group internal.EquipmentGroup) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO equipment_groups (id, projectId, name) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET projectId=excluded.projectId, name=excluded.name
`, group.ID, group.ProjectID, group.Name); err != nil {
		return errors.Wrapf(err, "upsert group %s", group.ID)
	}

	for _, item := range group.Items {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO quoted_items (id, groupId, code, codeKey, description, category, unit, brand, quantity, catalogId)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''))
ON CONFLICT(id) DO UPDATE SET
  groupId=excluded.groupId,
  code=excluded.code,
  codeKey=excluded.codeKey,
  description=excluded.description,
  category=excluded.category,
  unit=excluded.unit,
  brand=excluded.brand,
  quantity=excluded.quantity,
  catalogId=excluded.catalogId
`, item.ID, group.ID, item.Code, util.NormalizeKey(item.Code), item.Description, item.Category, item.Unit, item.Brand, item.Quantity, item.CatalogID); err != nil {
			return errors.Wrapf(err, "upsert quoted item %s", item.ID)
		}
	}

	return tx.Commit()
}

// FetchQuotedItems returns every equipment group of the project with its items.
func (d *DB) FetchQuotedItems(ctx context.Context, projectID string) ([]internal.EquipmentGroup, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT g.id, g.projectId, g.name,
       q.id, q.code, q.description, q.category, q.unit, q.brand, q.quantity, COALESCE(q.catalogId, '')
FROM equipment_groups g
LEFT JOIN quoted_items q ON q.groupId = g.id
WHERE g.projectId = ?
ORDER BY g.name, g.id, q.code, q.id
`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "query quoted items")
	}
	defer rows.Close()

	var out []internal.EquipmentGroup
	index := map[string]int{}
	for rows.Next() {
		var g internal.EquipmentGroup
		var itemID, code, description, category, unit, brand, catalogID sql.NullString
		var quantity sql.NullFloat64
		if err := rows.Scan(&g.ID, &g.ProjectID, &g.Name, &itemID, &code, &description, &category, &unit, &brand, &quantity, &catalogID); err != nil {
			return nil, err
		}
		pos, ok := index[g.ID]
		if !ok {
			g.Items = []internal.QuotedItem{}
			out = append(out, g)
			pos = len(out) - 1
			index[g.ID] = pos
		}
		if !itemID.Valid {
			continue
		}
		out[pos].Items = append(out[pos].Items, internal.QuotedItem{
			ID:          itemID.String,
			Code:        code.String,
			Description: description.String,
			Category:    category.String,
			Unit:        unit.String,
			Brand:       brand.String,
			Quantity:    quantity.Float64,
			CatalogID:   catalogID.String,
		})
	}
	return out, rows.Err()
}

// FindQuotedItem returns the project's quoted item sharing the row's code key.
func (d *DB) FindQuotedItem(ctx context.Context, projectID string, row internal.ImportRow) (*internal.QuotedItemOption, error) {
	key := row.Key()
	if key == "" {
		return nil, nil
	}
	var opt internal.QuotedItemOption
	err := d.conn.QueryRowContext(ctx, `
SELECT q.id, q.code, q.description, q.category, g.id, g.name, COALESCE(q.catalogId, '')
FROM quoted_items q
JOIN equipment_groups g ON g.id = q.groupId
WHERE g.projectId = ? AND q.codeKey = ?
ORDER BY q.id
LIMIT 1
`, projectID, key).Scan(&opt.ID, &opt.Code, &opt.Description, &opt.Category, &opt.GroupID, &opt.GroupName, &opt.CatalogID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query quoted item")
	}
	return &opt, nil
}

const upsertListItem = `
INSERT INTO list_items (
  listId, groupId, origin, dedupeKey, code, description, category, unit, brand, quantity,
  quotedItemId, catalogId, replacedQuotedItemId, motive, actorId
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(listId, dedupeKey) DO UPDATE SET
  groupId=excluded.groupId,
  code=excluded.code,
  description=excluded.description,
  category=excluded.category,
  unit=excluded.unit,
  brand=excluded.brand,
  quantity=excluded.quantity,
  quotedItemId=excluded.quotedItemId,
  catalogId=excluded.catalogId,
  replacedQuotedItemId=excluded.replacedQuotedItemId,
  motive=excluded.motive,
  actorId=excluded.actorId,
  updatedAt=CURRENT_TIMESTAMP
`

func (d *DB) writeListItems(ctx context.Context, items []internal.ListItem, dedupeKeys []string) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertListItem)
	if err != nil {
		return errors.Wrap(err, "prepare list item upsert")
	}
	defer stmt.Close()

	for i, it := range items {
		if _, err := stmt.ExecContext(ctx,
			it.ListID, it.GroupID, string(it.Origin), dedupeKeys[i], it.Code, it.Description, it.Category, it.Unit, it.Brand, it.Quantity,
			it.QuotedItemID, it.CatalogID, it.ReplacedQuotedItemID, it.Motive, it.ActorID,
		); err != nil {
			return errors.Wrapf(err, "upsert list item %s", dedupeKeys[i])
		}
	}
	return tx.Commit()
}

func (d *DB) quotedItemsByID(ctx context.Context, ids []string) (map[string]internal.QuotedItemOption, error) {
	out := make(map[string]internal.QuotedItemOption, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		var opt internal.QuotedItemOption
		err := d.conn.QueryRowContext(ctx, `
SELECT q.id, q.code, q.description, q.category, g.id, g.name, COALESCE(q.catalogId, '')
FROM quoted_items q JOIN equipment_groups g ON g.id = q.groupId
WHERE q.id = ?`, id).Scan(&opt.ID, &opt.Code, &opt.Description, &opt.Category, &opt.GroupID, &opt.GroupName, &opt.CatalogID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("quoted item not found: %s", id)
		}
		if err != nil {
			return nil, errors.Wrap(err, "query quoted item")
		}
		out[id] = opt
	}
	return out, nil
}

// ImportLinked associates spreadsheet quantities with quoted items. Re-importing
// the same quoted item and code updates the quantity in place.
func (d *DB) ImportLinked(ctx context.Context, listID string, quotedItemIDs []string, overrides []internal.QuantityOverride) error {
	if len(quotedItemIDs) == 0 {
		return nil
	}
	quoted, err := d.quotedItemsByID(ctx, quotedItemIDs)
	if err != nil {
		return err
	}

	byItem := map[string][]internal.QuantityOverride{}
	for _, o := range overrides {
		byItem[o.QuotedItemID] = append(byItem[o.QuotedItemID], o)
	}

	var items []internal.ListItem
	var keys []string
	seen := map[string]struct{}{}
	for _, id := range quotedItemIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		q := quoted[id]
		for _, o := range byItem[id] {
			items = append(items, internal.ListItem{
				ListID:       listID,
				GroupID:      q.GroupID,
				Origin:       internal.OriginLinked,
				Code:         o.Code,
				Description:  q.Description,
				Category:     q.Category,
				Quantity:     o.Quantity,
				QuotedItemID: util.StringPtr(id),
				CatalogID:    nullable(q.CatalogID),
			})
			keys = append(keys, "linked:"+id+":"+util.NormalizeKey(o.Code))
		}
	}
	if len(items) == 0 {
		return nil
	}
	return d.writeListItems(ctx, items, keys)
}

// ImportReplacement records spreadsheet rows that substitute quoted items of one group.
// Several rows may replace the same quoted item; each stays its own list item.
func (d *DB) ImportReplacement(ctx context.Context, listID, groupID string, replacements []internal.Replacement, actorID string) error {
	if len(replacements) == 0 {
		return nil
	}
	items := make([]internal.ListItem, 0, len(replacements))
	keys := make([]string, 0, len(replacements))
	for _, r := range replacements {
		items = append(items, internal.ListItem{
			ListID:               listID,
			GroupID:              groupID,
			Origin:               internal.OriginReplaced,
			Code:                 r.Row.Code,
			Description:          r.Row.Description,
			Category:             r.Row.Category,
			Unit:                 r.Row.Unit,
			Brand:                r.Row.Brand,
			Quantity:             r.Row.Quantity,
			ReplacedQuotedItemID: util.StringPtr(r.QuotedItemID),
			Motive:               util.StringPtr(r.Motive),
			ActorID:              nullable(actorID),
		})
		keys = append(keys, fmt.Sprintf("replaced:%s:%s:%d", r.QuotedItemID, r.Row.Key(), r.Row.LineNo))
	}
	return d.writeListItems(ctx, items, keys)
}

// ImportFromCatalog adds catalog-backed items to the group using the explicit quantity map.
func (d *DB) ImportFromCatalog(ctx context.Context, listID, groupID string, catalogIDs []string, quantities map[string]float64, actorID string) error {
	if len(catalogIDs) == 0 {
		return nil
	}
	items := make([]internal.ListItem, 0, len(catalogIDs))
	keys := make([]string, 0, len(catalogIDs))
	for _, id := range catalogIDs {
		entries, err := d.queryCatalog(ctx, `WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errors.Errorf("catalog entry not found: %s", id)
		}
		e := entries[0]
		items = append(items, internal.ListItem{
			ListID:      listID,
			GroupID:     groupID,
			Origin:      internal.OriginCatalog,
			Code:        e.Code,
			Description: e.Description,
			Category:    e.Category,
			Unit:        e.Unit,
			Brand:       e.Brand,
			Quantity:    quantities[id],
			CatalogID:   util.StringPtr(id),
			ActorID:     nullable(actorID),
		})
		keys = append(keys, "catalog:"+groupID+":"+id)
	}
	return d.writeListItems(ctx, items, keys)
}

// ImportDirect adds rows with no catalog backing. Rows sharing a code stay
// separate items, keyed by their line in the source file.
func (d *DB) ImportDirect(ctx context.Context, listID, groupID string, rows []internal.ImportRow, actorID string) error {
	if len(rows) == 0 {
		return nil
	}
	items := make([]internal.ListItem, 0, len(rows))
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		items = append(items, internal.ListItem{
			ListID:      listID,
			GroupID:     groupID,
			Origin:      internal.OriginDirect,
			Code:        r.Code,
			Description: r.Description,
			Category:    r.Category,
			Unit:        r.Unit,
			Brand:       r.Brand,
			Quantity:    r.Quantity,
			ActorID:     nullable(actorID),
		})
		keys = append(keys, fmt.Sprintf("direct:%s:%s:%d", groupID, r.Key(), r.LineNo))
	}
	return d.writeListItems(ctx, items, keys)
}

func (d *DB) ListItems(ctx context.Context, listID string) ([]internal.ListItem, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT id, listId, groupId, origin, code, description, category, unit, brand, quantity,
       quotedItemId, catalogId, replacedQuotedItemId, motive, actorId
FROM list_items WHERE listId = ? ORDER BY id`, listID)
	if err != nil {
		return nil, errors.Wrap(err, "query list items")
	}
	defer rows.Close()

	var out []internal.ListItem
	for rows.Next() {
		var it internal.ListItem
		var origin string
		if err := rows.Scan(
			&it.ID, &it.ListID, &it.GroupID, &origin, &it.Code, &it.Description, &it.Category, &it.Unit, &it.Brand, &it.Quantity,
			&it.QuotedItemID, &it.CatalogID, &it.ReplacedQuotedItemID, &it.Motive, &it.ActorID,
		); err != nil {
			return nil, err
		}
		it.Origin = internal.ListItemOrigin(origin)
		out = append(out, it)
	}
	return out, rows.Err()
}

func (d *DB) InsertRun(ctx context.Context, run internal.RunRecord) error {
	timingsJSON, _ := json.Marshal(run.Timings)
	countsJSON, _ := json.Marshal(run.Counts)
	if _, err := d.conn.ExecContext(ctx, `INSERT INTO runs (traceId, projectId, listId, status, timingsJson, countsJson) VALUES (?, ?, ?, ?, ?, ?)`,
		run.TraceID, run.ProjectID, run.ListID, run.Status, string(timingsJSON), string(countsJSON)); err != nil {
		return errors.Wrap(err, "insert run")
	}
	return nil
}

func (d *DB) ListRuns(ctx context.Context, limit int) ([]internal.RunRecord, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT id, traceId, projectId, listId, status, timingsJson, countsJson, createdAt
FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var out []internal.RunRecord
	for rows.Next() {
		var r internal.RunRecord
		var timingsJSON, countsJSON string
		if err := rows.Scan(&r.ID, &r.TraceID, &r.ProjectID, &r.ListID, &r.Status, &timingsJSON, &countsJSON, &r.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(timingsJSON), &r.Timings)
		_ = json.Unmarshal([]byte(countsJSON), &r.Counts)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(ctx context.Context, key, value string) error {
	if _, err := d.conn.ExecContext(ctx, `
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value); err != nil {
		return errors.Wrap(err, "set metadata")
	}
	return nil
}

func (d *DB) GetMetadata(ctx context.Context, key string) (*string, error) {
	var value string
	err := d.conn.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get metadata")
	}
	return &value, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
