package pipeline

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

var (
	ErrExtraction   = errors.New("extraction failed")
	ErrVerification = errors.New("verification failed")
	ErrValidation   = errors.New("validation failed")
	ErrExecution    = errors.New("execution failed")

	ErrUnknownRow        = errors.New("unknown row")
	ErrUnknownQuotedItem = errors.New("unknown quoted item")
	ErrNotMapped         = errors.New("row is not mapped to a quoted item")
	ErrOptInIneligible   = errors.New("row is not eligible for catalog opt-in")
)

// RowIssue describes one malformed spreadsheet row.
type RowIssue struct {
	LineNo  int
	Field   string
	Message string
}

func (i RowIssue) String() string {
	if i.Field == "" {
		return fmt.Sprintf("line %d: %s", i.LineNo, i.Message)
	}
	return fmt.Sprintf("line %d: %s %s", i.LineNo, i.Field, i.Message)
}

// ExtractionError aborts the session before verification.
type ExtractionError struct {
	Source string
	Issues []RowIssue
	Err    error
}

func (e *ExtractionError) Error() string {
	if len(e.Issues) == 0 {
		if e.Err != nil {
			return fmt.Sprintf("extract %s: %v", e.Source, e.Err)
		}
		return fmt.Sprintf("extract %s: no rows found", e.Source)
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}
	return fmt.Sprintf("extract %s: %d row issues: %s", e.Source, len(e.Issues), strings.Join(parts, "; "))
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// VerificationError is a failed catalog or quotation lookup for one row.
type VerificationError struct {
	LineNo int
	Code   string
	Err    error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify line %d (%s): %v", e.LineNo, e.Code, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

func (e *VerificationError) Is(target error) bool { return target == ErrVerification }

// VerificationErrors aggregates every unresolved per-row failure.
type VerificationErrors []*VerificationError

func (es VerificationErrors) Error() string {
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, e.Error())
	}
	return fmt.Sprintf("%d rows failed verification: %s", len(es), strings.Join(parts, "; "))
}

func (es VerificationErrors) Is(target error) bool { return target == ErrVerification }

// ValidationError is a structural problem detected before any gateway call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ExecutionError reports the stage whose batched call failed. Earlier stages stay committed.
type ExecutionError struct {
	Stage Stage
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }
