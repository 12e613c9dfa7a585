package queue

import "strings"

// TagBudget is the maximum combined serialized tag length the destination
// platform accepts (tags joined by commas).
const TagBudget = 500

// NormalizeTags trims, deduplicates (case-insensitively, first occurrence
// wins), and enforces the combined budget. A tag that would push the combined
// length past the budget is skipped while later, shorter tags may still fit.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	used := 0
	for _, tag := range tags {
		cleaned := strings.TrimSpace(tag)
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, ok := seen[key]; ok {
			continue
		}
		cost := len(cleaned)
		if len(out) > 0 {
			cost++ // separator
		}
		if used+cost > TagBudget {
			continue
		}
		seen[key] = struct{}{}
		used += cost
		out = append(out, cleaned)
	}
	return out
}

// CombinedTagLength returns the serialized length of a tag list (tags joined
// by commas), matching the budget NormalizeTags enforces.
func CombinedTagLength(tags []string) int {
	total := 0
	for idx, tag := range tags {
		if idx > 0 {
			total++
		}
		total += len(tag)
	}
	return total
}
