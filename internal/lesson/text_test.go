package lesson

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeText(t *testing.T) {
	testCases := []struct {
		name     string
		current  string
		incoming string
		expected string
	}{
		{
			name:     "empty current returns incoming verbatim",
			current:  "",
			incoming: "A|B",
			expected: "A|B",
		},
		{
			name:     "empty incoming returns current verbatim",
			current:  "A | B",
			incoming: "",
			expected: "A | B",
		},
		{
			name:     "both empty",
			current:  "",
			incoming: "",
			expected: "",
		},
		{
			name:     "disjoint segments are appended",
			current:  "A|B",
			incoming: "C|D",
			expected: "A | B | C | D",
		},
		{
			name:     "overlapping segments appear once",
			current:  "A|B",
			incoming: "B|C",
			expected: "A | B | C",
		},
		{
			name:     "identical inputs are idempotent",
			current:  "A|B",
			incoming: "A|B",
			expected: "A | B",
		},
		{
			name:     "whitespace around segments is trimmed",
			current:  " A |  B",
			incoming: "B |C ",
			expected: "A | B | C",
		},
		{
			name:     "blank segments are dropped",
			current:  "A||B",
			incoming: "| C",
			expected: "A | B | C",
		},
		{
			name:     "plain sentences merge as single segments",
			current:  "Room moved",
			incoming: "Bring materials",
			expected: "Room moved | Bring materials",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MergeText(tc.current, tc.incoming))
		})
	}
}

func TestMergeTextConvergesRegardlessOfOrder(t *testing.T) {
	// Repeated pairwise merges must converge to the same segment set; only
	// the first-appearance order differs.
	a := MergeText(MergeText("A|B", "B|C"), "C|D")
	b := MergeText(MergeText("C|D", "B|C"), "A|B")

	assert.Equal(t, "A | B | C | D", a)
	assert.Equal(t, "C | D | B | A", b)

	// Stable once converged.
	assert.Equal(t, a, MergeText(a, a))
	assert.Equal(t, a, MergeText(a, b))
}
