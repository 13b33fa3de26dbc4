package pipeline

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-faster/errors"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"gyscontrol/internal"
	"gyscontrol/internal/util"
)

// RawRow is one equipment line as read from the file, before any parsing or validation.
type RawRow struct {
	LineNo      int
	Source      internal.RowSource
	Origin      string
	Code        string
	Description string
	Category    string
	Unit        string
	Brand       string
	Quantity    string
}

func (r RawRow) empty() bool {
	return r.Code == "" && r.Description == "" && r.Category == "" && r.Unit == "" && r.Brand == "" && r.Quantity == ""
}

type columns struct {
	code, description, category, unit, brand, quantity int
}

func (c columns) found() bool {
	return c.code >= 0 && c.description >= 0
}

var headerProbes = struct {
	code, description, category, unit, brand, quantity []string
}{
	code:        []string{"código", "codigo", "cód", "cod", "code", "item code", "sku"},
	description: []string{"descripción", "descripcion", "description", "equipo", "detalle", "desc"},
	category:    []string{"categoría", "categoria", "category", "familia", "tipo"},
	unit:        []string{"unidad", "unit", "und", "u.m", "um"},
	brand:       []string{"marca", "brand", "fabricante"},
	quantity:    []string{"cantidad", "cant", "quantity", "qty"},
}

var (
	reSpaces   = regexp.MustCompile(`\s+`)
	reUnitTail = regexp.MustCompile(`(?i)\b(und|unid|unidades|pza|piezas|jgo|juego|glb|global|lote|m|mts|kg)\.?\s*$`)
	rePDFNoise = []*regexp.Regexp{
		regexp.MustCompile(`^--+$`),
		regexp.MustCompile(`(?i)^p[áa]gina\s+\d+`),
		regexp.MustCompile(`(?i)^page\s+\d+`),
		regexp.MustCompile(`(?i)^total\b`),
	}
)

func inferColumns(headers []string) columns {
	norm := make([]string, 0, len(headers))
	for _, h := range headers {
		norm = append(norm, strings.ToLower(normalizeSpaces(h)))
	}
	c := columns{
		code:        findHeaderIndex(norm, headerProbes.code),
		description: findHeaderIndex(norm, headerProbes.description),
		category:    findHeaderIndex(norm, headerProbes.category),
		unit:        findHeaderIndex(norm, headerProbes.unit),
		brand:       findHeaderIndex(norm, headerProbes.brand),
		quantity:    findHeaderIndex(norm, headerProbes.quantity),
	}
	// A header such as "Código equipo" satisfies both probes.
	if c.description == c.code && c.code >= 0 {
		c.description = findHeaderIndexExcept(norm, headerProbes.description, c.code)
	}
	return c
}

func (c columns) row(source internal.RowSource, lineNo int, origin string, cells []string) RawRow {
	return RawRow{
		LineNo:      lineNo,
		Source:      source,
		Origin:      origin,
		Code:        pickCell(cells, c.code),
		Description: pickCell(cells, c.description),
		Category:    pickCell(cells, c.category),
		Unit:        pickCell(cells, c.unit),
		Brand:       pickCell(cells, c.brand),
		Quantity:    pickCell(cells, c.quantity),
	}
}

// positional is the layout assumed when a sheet carries no recognizable header row.
var positional = columns{code: 0, description: 1, quantity: 2, unit: 3, category: -1, brand: -1}

func parseXLSX(content []byte) ([]RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer f.Close()

	lineNo := 0
	out := []RawRow{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		cols := positional
		start := 0
		for i := 0; i < len(rows) && i < 5; i++ {
			if c := inferColumns(rows[i]); c.found() {
				cols, start = c, i+1
				break
			}
		}

		for i := start; i < len(rows); i++ {
			raw := cols.row(internal.SourceXLSX, 0, sheet, normalizeCells(rows[i]))
			if raw.empty() {
				continue
			}
			lineNo++
			raw.LineNo = lineNo
			out = append(out, raw)
		}
	}
	return out, nil
}

func parseHTMLTables(html string) ([]RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}

	out := []RawRow{}
	lineNo := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		headers := []string{}
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, cell.Text())
		})
		cols := inferColumns(headers)
		if !cols.found() {
			return
		}

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			raw := cols.row(internal.SourceHTMLTable, 0, "table", cells)
			if raw.empty() {
				return
			}
			lineNo++
			raw.LineNo = lineNo
			out = append(out, raw)
		})
	})
	return out, nil
}

func parsePDF(content []byte) ([]RawRow, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, errors.Wrap(err, "open pdf")
	}

	out := []RawRow{}
	lineNo := 0
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range splitLines(text) {
			raw, ok := lineToRawRow(internal.SourcePDF, line)
			if !ok {
				continue
			}
			lineNo++
			raw.LineNo = lineNo
			out = append(out, raw)
		}
	}
	return out, nil
}

// lineToRawRow reads "CODE description ... qty [unit]". Lines that do not start
// with a code-like token are headers or prose and are skipped.
func lineToRawRow(source internal.RowSource, line string) (RawRow, bool) {
	compact := normalizeSpaces(line)
	if compact == "" || isLikelyNoise(compact) {
		return RawRow{}, false
	}
	fields := strings.Fields(compact)
	if len(fields) < 2 || !util.LooksLikeCode(fields[0]) {
		return RawRow{}, false
	}

	rest := strings.Join(fields[1:], " ")
	raw := RawRow{Source: source, Origin: "text", Code: fields[0]}

	parsed := util.ParseQty(rest)
	if parsed.QtyRaw != nil && strings.HasSuffix(rest, *parsed.QtyRaw) {
		raw.Quantity = *parsed.QtyRaw
		rest = strings.TrimSpace(strings.TrimSuffix(rest, *parsed.QtyRaw))
		if parsed.Unit != nil {
			raw.Unit = *parsed.Unit
		}
	} else if m := reUnitTail.FindStringIndex(rest); m != nil {
		raw.Unit = strings.TrimSpace(rest[m[0]:])
		rest = strings.TrimSpace(rest[:m[0]])
	}
	raw.Description = rest
	return raw, true
}

func parseEmail(content []byte) ([]RawRow, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrap(err, "read message")
	}

	out := []RawRow{}
	if env.HTML != "" {
		rows, err := parseHTMLTables(env.HTML)
		if err == nil {
			for i := range rows {
				rows[i].Source = internal.SourceEmail
				rows[i].Origin = "body"
			}
			out = append(out, rows...)
		}
	}

	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		lower := strings.ToLower(filename)

		var rows []RawRow
		switch {
		case strings.HasSuffix(lower, ".xlsx"):
			rows, err = parseXLSX(att.Content)
		case strings.HasSuffix(lower, ".pdf"):
			rows, err = parsePDF(att.Content)
		default:
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "attachment %s", filename)
		}
		for i := range rows {
			rows[i].Source = internal.SourceEmail
			rows[i].Origin = filename
		}
		out = append(out, rows...)
	}

	for i := range out {
		out[i].LineNo = i + 1
	}
	return out, nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeSpaces(input string) string {
	input = strings.ReplaceAll(input, "\u00A0", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func isLikelyNoise(line string) bool {
	for _, re := range rePDFNoise {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func findHeaderIndex(headers []string, probes []string) int {
	return findHeaderIndexExcept(headers, probes, -1)
}

func findHeaderIndexExcept(headers []string, probes []string, skip int) int {
	for _, probe := range probes {
		for i, h := range headers {
			if i == skip {
				continue
			}
			if h == probe || strings.HasPrefix(h, probe+" ") || strings.HasPrefix(h, probe+".") {
				return i
			}
		}
	}
	for _, probe := range probes {
		if len([]rune(probe)) < 4 {
			continue
		}
		for i, h := range headers {
			if i != skip && strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	return ""
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, normalizeSpaces(c))
	}
	return out
}
