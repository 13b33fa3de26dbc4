package pipeline

import "gyscontrol/internal"

// DetectDuplicates returns the identity keys that occur more than once in rows.
// Empty codes are never reported.
func DetectDuplicates(rows []internal.ImportRow) map[string]struct{} {
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		if key := row.Key(); key != "" {
			counts[key]++
		}
	}
	out := map[string]struct{}{}
	for key, n := range counts {
		if n > 1 {
			out[key] = struct{}{}
		}
	}
	return out
}
