package pipeline

import (
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	"gyscontrol/internal"
	"gyscontrol/internal/util"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NormalizeRows parses quantities and units, validates every row and returns
// one ExtractionError listing all malformed rows. No partial result is returned
// on error.
func NormalizeRows(source string, raw []RawRow) ([]internal.ImportRow, error) {
	if len(raw) == 0 {
		return nil, &ExtractionError{Source: source}
	}

	rows := make([]internal.ImportRow, 0, len(raw))
	var issues []RowIssue
	for _, r := range raw {
		row, rowIssues := normalizeRow(r)
		if len(rowIssues) > 0 {
			issues = append(issues, rowIssues...)
			continue
		}
		rows = append(rows, row)
	}
	if len(issues) > 0 {
		return nil, &ExtractionError{Source: source, Issues: issues}
	}
	return rows, nil
}

func normalizeRow(r RawRow) (internal.ImportRow, []RowIssue) {
	row := internal.ImportRow{
		LineNo:      r.LineNo,
		Source:      r.Source,
		Code:        normalizeSpaces(r.Code),
		Description: normalizeSpaces(r.Description),
		Category:    normalizeSpaces(r.Category),
		Brand:       normalizeSpaces(r.Brand),
	}

	var issues []RowIssue
	qtyCell := normalizeSpaces(r.Quantity)
	parsed := util.ParseQty(qtyCell)
	switch {
	case qtyCell == "":
		issues = append(issues, RowIssue{LineNo: r.LineNo, Field: "quantity", Message: "is required"})
	case parsed.Qty == nil || strings.HasPrefix(qtyCell, "-"):
		issues = append(issues, RowIssue{LineNo: r.LineNo, Field: "quantity", Message: "is not a valid quantity: " + qtyCell})
	default:
		row.Quantity = *parsed.Qty
	}

	switch {
	case strings.TrimSpace(r.Unit) != "":
		row.Unit = util.NormalizeUnit(r.Unit)
	case parsed.Unit != nil:
		row.Unit = *parsed.Unit
	}

	if err := validate.Struct(row); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			issues = append(issues, RowIssue{LineNo: r.LineNo, Message: err.Error()})
			return row, issues
		}
		for _, fe := range verrs {
			issues = append(issues, RowIssue{LineNo: r.LineNo, Field: fe.Field(), Message: describeTag(fe)})
		}
	}
	return row, issues
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
