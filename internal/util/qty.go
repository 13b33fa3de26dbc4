package util

import (
	"regexp"
	"strconv"
	"strings"
)

const unitAlternation = `unidades|unidad|unid|und|uds|ud|u|piezas|pieza|pzas|pza|pcs|pc|ea|juegos|juego|jgo|global|glb|lotes|lote|sets|set|ml|mts|m\.?|metros|metro|kg|kilos`

var (
	unitPattern     = regexp.MustCompile(`(?i)\b(` + unitAlternation + `)\b`)
	numberPattern   = regexp.MustCompile(`(?i)(?:^|[^0-9.,])(\d{1,3}(?:[\s.,]\d{3})+|\d+(?:[.,]\d+)?)`)
	withUnitPattern = regexp.MustCompile(`(?i)(?:^|[^0-9.,])(\d{1,3}(?:[\s.,]\d{3})+|\d+(?:[.,]\d+)?)\s*(` + unitAlternation + `)\b`)
	thousandsDot    = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	thousandsComma  = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

type ParsedQty struct {
	Qty    *float64
	Unit   *string
	QtyRaw *string
}

// ParseQty finds the last quantity in input, preferring one followed by a unit.
func ParseQty(input string) ParsedQty {
	line := strings.ReplaceAll(input, "\u00A0", " ")

	qtyRaw := ""
	qtyToken := ""

	wm := withUnitPattern.FindAllStringSubmatch(line, -1)
	if len(wm) > 0 {
		last := wm[len(wm)-1]
		qtyRaw = strings.TrimSpace(last[1] + " " + last[2])
		qtyToken = strings.TrimSpace(last[1])
	} else {
		nm := numberPattern.FindAllStringSubmatch(line, -1)
		if len(nm) > 0 {
			last := nm[len(nm)-1]
			qtyRaw = strings.TrimSpace(last[1])
			qtyToken = strings.TrimSpace(last[1])
		}
	}

	var qtyPtr *float64
	if qtyToken != "" {
		if parsed, err := strconv.ParseFloat(normalizeNumericToken(qtyToken), 64); err == nil {
			qtyPtr = FloatPtr(parsed)
		}
	}

	var unitPtr *string
	if len(wm) > 0 {
		unitPtr = StringPtr(NormalizeUnit(wm[len(wm)-1][2]))
	} else if um := unitPattern.FindStringSubmatch(line); len(um) > 1 {
		unitPtr = StringPtr(NormalizeUnit(um[1]))
	}

	var qtyRawPtr *string
	if qtyRaw != "" {
		qtyRawPtr = &qtyRaw
	}

	return ParsedQty{Qty: qtyPtr, Unit: unitPtr, QtyRaw: qtyRawPtr}
}

// NormalizeUnit maps unit spellings found in equipment lists to one short form.
func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch u {
	case "unidades", "unidad", "unid", "und", "uds", "ud", "u", "pcs", "pc", "ea":
		return "und"
	case "piezas", "pieza", "pzas", "pza":
		return "pza"
	case "juegos", "juego", "jgo", "sets", "set":
		return "jgo"
	case "global", "glb":
		return "glb"
	case "lotes", "lote":
		return "lote"
	case "m", "m.", "mts", "ml", "metros", "metro":
		return "m"
	case "kg", "kilos":
		return "kg"
	default:
		return u
	}
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if thousandsDot.MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if thousandsComma.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}
