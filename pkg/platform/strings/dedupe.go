// Package strings holds small list helpers shared by config parsing and
// gesture order parsing.
package strings

import (
	"strings"
)

// SplitList splits a comma separated value and drops blank entries.
// Entries are trimmed; duplicates are kept.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// DedupeFold trims every value, applies fold (nil means identity) and keeps
// the first occurrence of each folded value. Blank values are dropped.
//
//	DedupeFold([]string{" smile", "BLINK", "Smile"}, strings.ToUpper)
//	// []string{"SMILE", "BLINK"}
func DedupeFold(values []string, fold func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if fold != nil {
			v = fold(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
