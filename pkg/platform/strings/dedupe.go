// Package strings holds helpers for list-valued settings.
package strings

import (
	"strings"
)

// SplitList splits a comma separated value into trimmed, non-empty,
// de-duplicated items in first-seen order.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return Dedupe(strings.Split(raw, ","), false)
}

// Dedupe trims each value and drops blanks and repeats. With fold set,
// repeats are matched case-insensitively and the first spelling wins.
func Dedupe(values []string, fold bool) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := v
		if fold {
			key = strings.ToLower(v)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
