package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"

	"gyscontrol/internal"
)

// DetectInputType maps a file extension to an input type understood by ExtractRowsFromInput.
func DetectInputType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return string(internal.SourceXLSX)
	case ".html", ".htm":
		return string(internal.SourceHTMLTable)
	case ".pdf":
		return string(internal.SourcePDF)
	case ".eml":
		return string(internal.SourceEmail)
	default:
		return ""
	}
}

// ExtractRowsFromInput reads the equipment list at path and returns validated rows.
// An empty inputType is detected from the extension.
func ExtractRowsFromInput(inputType, path string) ([]internal.ImportRow, error) {
	if inputType == "" {
		inputType = DetectInputType(path)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	var raw []RawRow
	switch internal.RowSource(inputType) {
	case internal.SourceXLSX:
		raw, err = parseXLSX(blob)
	case internal.SourceHTMLTable:
		raw, err = parseHTMLTables(string(blob))
	case internal.SourcePDF:
		raw, err = parsePDF(blob)
	case internal.SourceEmail:
		raw, err = parseEmail(blob)
	default:
		return nil, errors.Errorf("unsupported input type: %q", inputType)
	}
	source := filepath.Base(path)
	if err != nil {
		return nil, &ExtractionError{Source: source, Err: err}
	}
	return NormalizeRows(source, raw)
}
