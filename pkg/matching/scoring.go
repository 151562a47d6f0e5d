package matching

import (
	"math"
	"strings"
)

// Confidence bounds for a transaction-linked purchaser.
const (
	TransactionLinkMaxConfidence = 95
	TransactionLinkMinConfidence = 60
	TransactionLinkDailyDecay    = 5
)

// Scorer provides the string and date comparisons used to resolve purchaser names
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// ExactMatch returns true when a and b are equal, optionally ignoring case
func (s *Scorer) ExactMatch(a, b string, caseSensitive bool) bool {
	if !caseSensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// Ratio returns the indel similarity of a and b as a whole percentage.
// It is 100 for equal strings and 0 when nothing is shared.
func (s *Scorer) Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	distance := s.indelDistance(ra, rb)
	return int(math.Round(100 * float64(total-distance) / float64(total)))
}

// IndelDistance is the number of single-rune insertions and deletions needed to
// turn a into b
func (s *Scorer) IndelDistance(a, b string) int {
	return s.indelDistance([]rune(a), []rune(b))
}

func (s *Scorer) indelDistance(a, b []rune) int {
	return len(a) + len(b) - 2*longestCommonSubsequence(a, b)
}

func longestCommonSubsequence(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	// Create two rows for dynamic programming
	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		row[0] = 0
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				row[j] = prevRow[j-1] + 1
			} else {
				row[j] = max(row[j-1], prevRow[j])
			}
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// DayLagConfidence scores a transaction that happened daysBefore days ahead of
// the visit. Same-day purchases score highest; the score never drops below the floor.
func (s *Scorer) DayLagConfidence(daysBefore int) int {
	if daysBefore < 0 {
		daysBefore = 0
	}
	return max(TransactionLinkMinConfidence, TransactionLinkMaxConfidence-daysBefore*TransactionLinkDailyDecay)
}
