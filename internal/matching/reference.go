// Package matching implements the PO matching and reconciliation core: fuzzy
// reference resolution backed by Levenshtein distance, tolerance-aware field
// comparison, and the reduction of per-field outcomes into a single
// auto-approve / escalate decision for the AP workflow.
package matching

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
)

// DefaultFuzzyThreshold is the default maximum edit distance for a close
// reference match.
const DefaultFuzzyThreshold = 2

// MatchType classifies how a reference string relates to a candidate.
type MatchType int

const (
	// MatchNone means the candidate is outside the fuzzy threshold.
	MatchNone MatchType = iota

	// MatchClose means the normalized edit distance is within the threshold.
	MatchClose

	// MatchExact means the normalized forms are identical.
	MatchExact
)

// String returns the string representation of MatchType
func (mt MatchType) String() string {
	switch mt {
	case MatchExact:
		return "exact"
	case MatchClose:
		return "close"
	default:
		return "none"
	}
}

// referenceSeparators are the formatting characters stripped during
// normalization. Other punctuation is meaningful and kept.
var referenceSeparators = []string{"-", "_", ".", " "}

// Normalize prepares a document reference (PO number, invoice number) for
// comparison: uppercase, whitespace trimmed, separators removed.
// Normalize is idempotent.
func Normalize(reference string) string {
	normalized := strings.ToUpper(strings.TrimSpace(reference))
	for _, sep := range referenceSeparators {
		normalized = strings.ReplaceAll(normalized, sep, "")
	}
	return normalized
}

// Distance returns the Levenshtein edit distance between two strings.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Classify determines the match type between two references after
// normalization.
func Classify(a, b string, threshold int) MatchType {
	normA, normB := Normalize(a), Normalize(b)
	if normA == normB {
		return MatchExact
	}
	if Distance(normA, normB) <= threshold {
		return MatchClose
	}
	return MatchNone
}

// Confidence scores a resolved match on a 0-100 scale. Exact matches score
// 100; close matches decay linearly with edit distance relative to the longer
// normalized reference. Two empty references score 0 by policy (there is
// nothing to be confident about). The formula is a heuristic carried over from
// the AP workflow, not a calibrated metric.
func Confidence(extracted, matched string, matchType MatchType) int {
	switch matchType {
	case MatchExact:
		return 100
	case MatchClose:
		normExtracted, normMatched := Normalize(extracted), Normalize(matched)
		maxLength := len(normExtracted)
		if len(normMatched) > maxLength {
			maxLength = len(normMatched)
		}
		if maxLength == 0 {
			return 0
		}
		distance := Distance(normExtracted, normMatched)
		confidence := int(math.Round(100 * (1 - float64(distance)/float64(maxLength))))
		if confidence < 0 {
			confidence = 0
		}
		return confidence
	default:
		return 0
	}
}

// Pool is a read-only snapshot of the known PO reference strings, fetched once
// per batch. It carries no mutable state, so concurrent lookups from parallel
// invoice runs need no locking.
type Pool struct {
	references []string
}

// NewPool copies the given references into an immutable snapshot.
func NewPool(references []string) *Pool {
	refs := make([]string, len(references))
	copy(refs, references)
	return &Pool{references: refs}
}

// Size returns the number of references in the snapshot.
func (p *Pool) Size() int {
	return len(p.references)
}

// Match is a resolved reference match.
type Match struct {
	Reference string
	Type      MatchType
}

// FindBestMatch resolves an extracted reference against the pool. An exact
// match wins immediately regardless of pool order. Otherwise the close match
// with the smallest edit distance is returned, ties broken by first occurrence
// in the pool. The second return value is false when nothing reaches at least
// a close match; that is a normal outcome, not an error. Empty candidates are
// skipped silently.
func (p *Pool) FindBestMatch(extracted string, threshold int) (Match, bool) {
	extracted = strings.TrimSpace(extracted)
	if extracted == "" || len(p.references) == 0 {
		return Match{Type: MatchNone}, false
	}

	normExtracted := Normalize(extracted)

	best := Match{Type: MatchNone}
	bestDistance := math.MaxInt

	for _, candidate := range p.references {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		normCandidate := Normalize(candidate)
		if normExtracted == normCandidate {
			return Match{Reference: candidate, Type: MatchExact}, true
		}
		distance := Distance(normExtracted, normCandidate)
		// Strict < keeps the first-seen candidate on equal distance.
		if distance <= threshold && distance < bestDistance {
			bestDistance = distance
			best = Match{Reference: candidate, Type: MatchClose}
		}
	}

	if best.Type == MatchClose {
		return best, true
	}
	return Match{Type: MatchNone}, false
}
