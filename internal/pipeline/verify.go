package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-faster/errors"

	"gyscontrol/internal"
	"gyscontrol/internal/logging"
)

// Verifier resolves every row against the catalog and the project's quotation.
// It only reads through the gateway.
type Verifier struct {
	gw Gateway
}

func NewVerifier(gw Gateway) *Verifier {
	return &Verifier{gw: gw}
}

type VerificationCounts struct {
	New         int `json:"new"`
	CatalogOnly int `json:"catalogOnly"`
	Quoted      int `json:"quoted"`
}

// VerificationReport holds the outcome of one verification pass. Rows that
// failed stay in the report until they are retried successfully or dropped.
type VerificationReport struct {
	ProjectID string

	order      []int
	inputs     map[int]internal.ImportRow
	duplicates map[string]struct{}
	verified map[int]internal.VerifiedRow
	failed   map[int]*VerificationError
}

// Verify looks up every row and collects per-row failures instead of stopping
// on the first one. The returned error is reserved for invalid input and
// cancellation; lookup failures are reported by VerificationReport.Err.
func (v *Verifier) Verify(ctx context.Context, rows []internal.ImportRow, projectID string) (*VerificationReport, error) {
	report := &VerificationReport{
		ProjectID: projectID,
		order:     make([]int, 0, len(rows)),
		inputs:    make(map[int]internal.ImportRow, len(rows)),
		verified:  make(map[int]internal.VerifiedRow, len(rows)),
		failed:    map[int]*VerificationError{},
	}
	for i, row := range rows {
		if row.LineNo == 0 {
			row.LineNo = i + 1
		}
		if _, dup := report.inputs[row.LineNo]; dup {
			return nil, &ValidationError{Field: "lineNo", Message: fmt.Sprintf("line %d appears more than once", row.LineNo)}
		}
		report.order = append(report.order, row.LineNo)
		report.inputs[row.LineNo] = row
	}
	report.duplicates = DetectDuplicates(rows)

	if err := v.verifyLines(ctx, report, report.order); err != nil {
		return nil, err
	}
	return report, nil
}

// Retry re-runs the lookups of the rows that failed previously.
func (v *Verifier) Retry(ctx context.Context, report *VerificationReport) error {
	if report == nil || len(report.failed) == 0 {
		return nil
	}
	lines := make([]int, 0, len(report.failed))
	for lineNo := range report.failed {
		lines = append(lines, lineNo)
	}
	sort.Ints(lines)
	return v.verifyLines(ctx, report, lines)
}

func (v *Verifier) verifyLines(ctx context.Context, report *VerificationReport, lines []int) error {
	log := logging.Ctx(ctx)
	for _, lineNo := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := report.inputs[lineNo]
		verified, err := v.verifyRow(ctx, report.ProjectID, row)
		if err != nil {
			log.Warn().Err(err).Int("line", lineNo).Str("code", row.Code).Msg("row verification failed")
			report.failed[lineNo] = &VerificationError{LineNo: lineNo, Code: row.Code, Err: err}
			delete(report.verified, lineNo)
			continue
		}
		delete(report.failed, lineNo)
		report.verified[lineNo] = verified
	}

	counts := report.Counts()
	log.Debug().
		Int("new", counts.New).
		Int("catalogOnly", counts.CatalogOnly).
		Int("quoted", counts.Quoted).
		Int("failed", len(report.failed)).
		Msg("verification finished")
	return nil
}

func (v *Verifier) verifyRow(ctx context.Context, projectID string, row internal.ImportRow) (internal.VerifiedRow, error) {
	entry, err := v.gw.FindCatalogEntry(ctx, row)
	if err != nil {
		return internal.VerifiedRow{}, errors.Wrap(err, "catalog lookup")
	}
	quoted, err := v.gw.FindQuotedItem(ctx, projectID, row)
	if err != nil {
		return internal.VerifiedRow{}, errors.Wrap(err, "quotation lookup")
	}

	out := internal.VerifiedRow{ImportRow: row, State: internal.StateNew}
	switch {
	case quoted != nil:
		ref := &internal.CatalogRef{QuotedItemID: quoted.ID, CatalogID: quoted.CatalogID}
		if entry != nil {
			ref.CatalogID = entry.ID
		}
		out.State = internal.StateQuoted
		out.CatalogRef = ref
	case entry != nil:
		out.State = internal.StateCatalogOnly
		out.CatalogRef = &internal.CatalogRef{CatalogID: entry.ID}
	}
	return out, nil
}

// Rows returns the verified rows in input order. Rows with an unresolved
// failure are not included.
func (r *VerificationReport) Rows() []internal.VerifiedRow {
	out := make([]internal.VerifiedRow, 0, len(r.verified))
	for _, lineNo := range r.order {
		if row, ok := r.verified[lineNo]; ok {
			out = append(out, row)
		}
	}
	return out
}

func (r *VerificationReport) Failures() VerificationErrors {
	out := make(VerificationErrors, 0, len(r.failed))
	for _, lineNo := range r.order {
		if e, ok := r.failed[lineNo]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Err is non-nil while any row has an unresolved verification failure.
func (r *VerificationReport) Err() error {
	if len(r.failed) == 0 {
		return nil
	}
	return r.Failures()
}

// Duplicates returns the code keys repeated in the verified input. It is
// fixed at Verify time, so dropping a row does not clear its key.
func (r *VerificationReport) Duplicates() map[string]struct{} {
	out := make(map[string]struct{}, len(r.duplicates))
	for key := range r.duplicates {
		out[key] = struct{}{}
	}
	return out
}

// Drop removes a row from the session altogether.
func (r *VerificationReport) Drop(lineNo int) error {
	if _, ok := r.inputs[lineNo]; !ok {
		return errors.Wrapf(ErrUnknownRow, "line %d", lineNo)
	}
	delete(r.inputs, lineNo)
	delete(r.verified, lineNo)
	delete(r.failed, lineNo)
	for i, n := range r.order {
		if n == lineNo {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *VerificationReport) Counts() VerificationCounts {
	var c VerificationCounts
	for _, row := range r.verified {
		switch row.State {
		case internal.StateNew:
			c.New++
		case internal.StateCatalogOnly:
			c.CatalogOnly++
		case internal.StateQuoted:
			c.Quoted++
		}
	}
	return c
}
