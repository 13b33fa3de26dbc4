package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reQuotes     = regexp.MustCompile(`["'` + "`" + `«»“”]`)
	reNonAllowed = regexp.MustCompile(`[^A-Z0-9Ñ\-/\s.]`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// NormalizeKey is the row identity key: trimmed and lower-cased.
func NormalizeKey(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// NormalizeDescription folds a description for catalog lookups: upper case,
// diacritics removed (Ñ kept), punctuation collapsed to single spaces.
func NormalizeDescription(input string) string {
	s := strings.ToUpper(input)
	s = strings.ReplaceAll(s, "Ñ", "\x00")
	s = foldDiacritics(s)
	s = strings.ReplaceAll(s, "\x00", "Ñ")
	repl := strings.NewReplacer("×", "X", "*", "X", "Ø", "O")
	s = repl.Replace(s)
	s = reQuotes.ReplaceAllString(s, " ")
	s = reNonAllowed.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ContainsFold reports whether either string contains the other, ignoring case.
// Empty strings never match.
func ContainsFold(a, b string) bool {
	la := NormalizeKey(a)
	lb := NormalizeKey(b)
	if la == "" || lb == "" {
		return false
	}
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}

func Tokenize(input string) []string {
	parts := strings.Split(NormalizeDescription(input), " ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

func LooksLikeCode(input string) bool {
	if len(strings.TrimSpace(input)) < 3 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, r := range input {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if r >= '0' && r <= '9' {
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func DiceCoefficient(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	pairs := func(s string) []string {
		r := []rune(s)
		if len(r) < 2 {
			return nil
		}
		out := make([]string, 0, len(r)-1)
		for i := 0; i < len(r)-1; i++ {
			out = append(out, string(r[i:i+2]))
		}
		return out
	}

	aPairs := pairs(a)
	bPairs := pairs(b)
	if len(aPairs) == 0 || len(bPairs) == 0 {
		return 0
	}

	bCount := map[string]int{}
	for _, p := range bPairs {
		bCount[p]++
	}
	inter := 0
	for _, p := range aPairs {
		if bCount[p] > 0 {
			inter++
			bCount[p]--
		}
	}

	return float64(2*inter) / float64(len(aPairs)+len(bPairs))
}
