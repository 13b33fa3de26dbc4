package pipeline

import (
	"strings"

	"github.com/go-faster/errors"

	"gyscontrol/internal"
)

// Session owns the user's decisions for one uploaded list: mappings to quoted
// items, replacement flags and catalog opt-ins. Rows are addressed by line number.
type Session struct {
	ProjectID string

	rows       []internal.VerifiedRow
	byLine     map[int]int
	matcher    *QuotedMatcher
	duplicates map[string]struct{}

	mappings     map[int]string
	replacements map[int]string
	optIns       map[string]struct{}
}

// NewSession seeds mappings with the matcher's defaults. duplicates holds the
// code keys repeated in the source file; when nil it is derived from rows.
func NewSession(projectID string, rows []internal.VerifiedRow, duplicates map[string]struct{}, matcher *QuotedMatcher) *Session {
	rows = append([]internal.VerifiedRow(nil), rows...)
	s := &Session{
		ProjectID:    projectID,
		rows:         rows,
		byLine:       make(map[int]int, len(rows)),
		matcher:      matcher,
		mappings:     map[int]string{},
		replacements: map[int]string{},
		optIns:       map[string]struct{}{},
	}

	plain := make([]internal.ImportRow, 0, len(rows))
	for i, row := range rows {
		s.byLine[row.LineNo] = i
		plain = append(plain, row.ImportRow)
	}
	s.duplicates = duplicates
	if s.duplicates == nil {
		s.duplicates = DetectDuplicates(plain)
	}
	if matcher != nil {
		s.mappings = matcher.DefaultMappings(rows)
	}
	return s
}

func (s *Session) Rows() []internal.VerifiedRow {
	return append([]internal.VerifiedRow(nil), s.rows...)
}

func (s *Session) IsDuplicate(lineNo int) bool {
	row, ok := s.row(lineNo)
	if !ok {
		return false
	}
	_, dup := s.duplicates[row.Key()]
	return dup
}

func (s *Session) Mapping(lineNo int) (string, bool) {
	target, ok := s.mappings[lineNo]
	return target, ok
}

// SetMapping overrides the mapping of a row. An empty quotedItemID unmaps the
// row and discards any replacement flag on it.
func (s *Session) SetMapping(lineNo int, quotedItemID string) error {
	if _, ok := s.row(lineNo); !ok {
		return errors.Wrapf(ErrUnknownRow, "line %d", lineNo)
	}
	quotedItemID = strings.TrimSpace(quotedItemID)
	if quotedItemID == "" {
		delete(s.mappings, lineNo)
		delete(s.replacements, lineNo)
		return nil
	}
	if _, ok := s.option(quotedItemID); !ok {
		return errors.Wrapf(ErrUnknownQuotedItem, "%s", quotedItemID)
	}
	s.mappings[lineNo] = quotedItemID
	return nil
}

// FlagReplacement marks a mapped row as replacing its target instead of linking to it.
func (s *Session) FlagReplacement(lineNo int, motive string) error {
	if _, ok := s.row(lineNo); !ok {
		return errors.Wrapf(ErrUnknownRow, "line %d", lineNo)
	}
	if _, mapped := s.mappings[lineNo]; !mapped {
		return errors.Wrapf(ErrNotMapped, "line %d", lineNo)
	}
	s.replacements[lineNo] = strings.TrimSpace(motive)
	return nil
}

func (s *Session) ClearReplacement(lineNo int) error {
	if _, ok := s.row(lineNo); !ok {
		return errors.Wrapf(ErrUnknownRow, "line %d", lineNo)
	}
	delete(s.replacements, lineNo)
	return nil
}

// OptIntoCatalog asks for a new catalog entry to be created for the row.
// Only rows unknown to the catalog and not duplicated in the file qualify.
func (s *Session) OptIntoCatalog(lineNo int) error {
	row, ok := s.row(lineNo)
	if !ok {
		return errors.Wrapf(ErrUnknownRow, "line %d", lineNo)
	}
	if !s.eligibleForOptIn(row) {
		return errors.Wrapf(ErrOptInIneligible, "line %d (%s)", lineNo, row.Code)
	}
	s.optIns[row.Key()] = struct{}{}
	return nil
}

func (s *Session) OptOutOfCatalog(lineNo int) error {
	row, ok := s.row(lineNo)
	if !ok {
		return errors.Wrapf(ErrUnknownRow, "line %d", lineNo)
	}
	delete(s.optIns, row.Key())
	return nil
}

func (s *Session) eligibleForOptIn(row internal.VerifiedRow) bool {
	if row.State != internal.StateNew || row.Key() == "" {
		return false
	}
	_, dup := s.duplicates[row.Key()]
	return !dup
}

func (s *Session) optedIn(row internal.VerifiedRow) bool {
	if !s.eligibleForOptIn(row) {
		return false
	}
	_, ok := s.optIns[row.Key()]
	return ok
}

// Classify assigns every row exactly one import path. An explicit mapping wins
// over catalog presence; a replacement flag turns a link into a replacement.
func (s *Session) Classify() Plan {
	plan := Plan{ProjectID: s.ProjectID}
	for _, row := range s.rows {
		plan.add(s.classifyRow(row))
	}
	return plan
}

func (s *Session) classifyRow(row internal.VerifiedRow) Assignment {
	if target, ok := s.mappings[row.LineNo]; ok {
		if opt, found := s.option(target); found {
			if motive, replace := s.replacements[row.LineNo]; replace {
				return ReplacedRow{Row: row, Target: opt, Motive: motive}
			}
			return LinkedRow{Row: row, Target: opt}
		}
	}

	switch {
	case row.State == internal.StateCatalogOnly, row.State == internal.StateQuoted && row.HasCatalogEntry():
		return CatalogRow{Row: row}
	case s.optedIn(row):
		return CatalogRow{Row: row, CreateEntry: true}
	default:
		return DirectRow{Row: row}
	}
}

func (s *Session) row(lineNo int) (internal.VerifiedRow, bool) {
	idx, ok := s.byLine[lineNo]
	if !ok {
		return internal.VerifiedRow{}, false
	}
	return s.rows[idx], true
}

func (s *Session) option(id string) (internal.QuotedItemOption, bool) {
	if s.matcher == nil {
		return internal.QuotedItemOption{}, false
	}
	return s.matcher.Option(id)
}
