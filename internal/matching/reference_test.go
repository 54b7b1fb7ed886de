package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "po-1001", "PO1001"},
		{"mixed separators", "wbs-2385_22.4", "WBS2385224"},
		{"inner spaces", "PO 1001 A", "PO1001A"},
		{"surrounding whitespace", "  PO-1001  ", "PO1001"},
		{"already normalized", "PO1001", "PO1001"},
		{"empty", "", ""},
		{"only separators", "-_. ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize("wbs-2385_22.4")
	assert.Equal(t, once, Normalize(once))
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 0, Distance("PO1001", "PO1001"))
	assert.Equal(t, 1, Distance("PO1001", "PO1002"))
	assert.Equal(t, 6, Distance("", "PO1001"))

	// Symmetry.
	assert.Equal(t, Distance("PO1001", "INVOICE"), Distance("INVOICE", "PO1001"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected MatchType
	}{
		{"identical", "PO-1001", "PO-1001", MatchExact},
		{"separator variants", "WBS2385224", "WBS2385-224", MatchExact},
		{"case variants", "po-1001", "PO-1001", MatchExact},
		{"one edit", "PO-1001", "PO-1002", MatchClose},
		{"two edits", "PO-1001", "PO-1022", MatchClose},
		{"three edits", "PO-1001", "PO-1222", MatchNone},
		{"unrelated", "INVALID123", "PO-1001", MatchNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.a, tt.b, DefaultFuzzyThreshold))
		})
	}
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 100, Confidence("PO-1001", "PO1001", MatchExact))
	assert.Equal(t, 0, Confidence("PO-1001", "INVALID", MatchNone))

	// One edit over ten normalized characters decays to 90.
	assert.Equal(t, 90, Confidence("WBS238522X", "WBS2385224", MatchClose))

	// Shorter references decay faster: one edit over six characters.
	assert.Equal(t, 83, Confidence("PO1001", "PO1002", MatchClose))

	// Nothing to compare scores zero even when classified close.
	assert.Equal(t, 0, Confidence("", "", MatchClose))
}

func TestFindBestMatchExact(t *testing.T) {
	pool := NewPool([]string{"PO-2001", "PO-1001", "PO-3001"})

	match, ok := pool.FindBestMatch("po1001", DefaultFuzzyThreshold)
	require.True(t, ok)
	assert.Equal(t, "PO-1001", match.Reference)
	assert.Equal(t, MatchExact, match.Type)
}

func TestFindBestMatchExactWinsOverCloserEarlierEntry(t *testing.T) {
	// A close candidate earlier in the pool must not shadow a later exact one.
	pool := NewPool([]string{"PO-1002", "PO-1001"})

	match, ok := pool.FindBestMatch("PO-1001", DefaultFuzzyThreshold)
	require.True(t, ok)
	assert.Equal(t, "PO-1001", match.Reference)
	assert.Equal(t, MatchExact, match.Type)
}

func TestFindBestMatchClose(t *testing.T) {
	pool := NewPool([]string{"PO-1001", "PO-5005"})

	match, ok := pool.FindBestMatch("PO-1002", DefaultFuzzyThreshold)
	require.True(t, ok)
	assert.Equal(t, "PO-1001", match.Reference)
	assert.Equal(t, MatchClose, match.Type)
}

func TestFindBestMatchTieBreaksOnPoolOrder(t *testing.T) {
	// Both candidates are one edit away; the first one in the pool wins.
	pool := NewPool([]string{"PO-1001", "PO-1003"})

	match, ok := pool.FindBestMatch("PO-1002", DefaultFuzzyThreshold)
	require.True(t, ok)
	assert.Equal(t, "PO-1001", match.Reference)
}

func TestFindBestMatchPrefersSmallerDistance(t *testing.T) {
	pool := NewPool([]string{"PO-1022", "PO-1002"})

	match, ok := pool.FindBestMatch("PO-1001", DefaultFuzzyThreshold)
	require.True(t, ok)
	assert.Equal(t, "PO-1002", match.Reference)
}

func TestFindBestMatchNone(t *testing.T) {
	pool := NewPool([]string{"PO-1001", "PO-2001"})

	_, ok := pool.FindBestMatch("INVALID123", DefaultFuzzyThreshold)
	assert.False(t, ok)
}

func TestFindBestMatchEmptyInputs(t *testing.T) {
	pool := NewPool([]string{"PO-1001"})

	_, ok := pool.FindBestMatch("", DefaultFuzzyThreshold)
	assert.False(t, ok)

	_, ok = pool.FindBestMatch("   ", DefaultFuzzyThreshold)
	assert.False(t, ok)

	empty := NewPool(nil)
	_, ok = empty.FindBestMatch("PO-1001", DefaultFuzzyThreshold)
	assert.False(t, ok)
}

func TestFindBestMatchSkipsEmptyCandidates(t *testing.T) {
	// Blank pool entries must not become accidental close matches for short
	// references.
	pool := NewPool([]string{"", "  ", "PO-1001"})

	match, ok := pool.FindBestMatch("PO-1001", DefaultFuzzyThreshold)
	require.True(t, ok)
	assert.Equal(t, "PO-1001", match.Reference)
}
