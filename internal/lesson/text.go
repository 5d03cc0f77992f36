package lesson

import (
	"slices"
	"strings"
)

// MergeText unions two pipe-delimited free-text fields without duplicating
// segments. Segments of current keep their original order; segments of
// incoming that are not already present are appended in their own order.
// The result is re-joined with " | ". Idempotent after normalization:
// MergeText(x, x) == x.
func MergeText(current, incoming string) string {
	if current == "" {
		return incoming
	}
	if incoming == "" {
		return current
	}

	parts := splitSegments(current)
	for _, p := range splitSegments(incoming) {
		if !slices.Contains(parts, p) {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " | ")
}

func splitSegments(s string) []string {
	raw := strings.Split(s, "|")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
