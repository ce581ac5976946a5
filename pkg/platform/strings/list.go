// Package strings parses list-valued settings.
package strings

import "strings"

// SplitList splits a comma separated value into its trimmed, non-empty,
// distinct entries in first-seen order. Entries are compared exactly.
func SplitList(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
