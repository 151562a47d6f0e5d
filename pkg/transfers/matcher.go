package transfers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// GuestPassType is the pass type recorded for every guest pass transfer.
const GuestPassType = "Guest Pass"

var (
	guestPattern         = regexp.MustCompile(`(?i)Guest Pass from (.+)`)
	entryCountPattern    = regexp.MustCompile(`(?i)(.+?) from ([^(]+) \((\d+) remaining\)`)
	entryFallbackPattern = regexp.MustCompile(`(?i)(.+?) from (.+)`)
	remainingPattern     = regexp.MustCompile(`\((\d+) remaining\)`)
)

// Match is the result of running one Matcher against a description.
type Match struct {
	Matched       bool
	Matcher       string
	PassType      string
	PurchaserName string
	Remaining     *int
}

// Matcher extracts a transfer from one description shape.
type Matcher interface {
	Name() string
	Match(method models.EntryMethod, description string) Match
}

// DefaultMatchers returns the matchers in priority order.
func DefaultMatchers() []Matcher {
	return []Matcher{
		GuestMatcher{},
		EntryCountMatcher{},
		EntryFallbackMatcher{},
	}
}

// GuestMatcher handles "Guest Pass from Mary Jones".
type GuestMatcher struct{}

func (GuestMatcher) Name() string { return "guest" }

func (m GuestMatcher) Match(method models.EntryMethod, description string) Match {
	if method != models.EntryMethodGuestPass {
		return Match{}
	}
	groups := guestPattern.FindStringSubmatch(description)
	if groups == nil {
		return Match{}
	}
	return Match{
		Matched:       true,
		Matcher:       m.Name(),
		PassType:      GuestPassType,
		PurchaserName: strings.TrimSpace(groups[1]),
	}
}

// EntryCountMatcher handles "5 Climb Punch Pass from Nancy Davis (3 remaining)".
type EntryCountMatcher struct{}

func (EntryCountMatcher) Name() string { return "entry_count" }

func (m EntryCountMatcher) Match(method models.EntryMethod, description string) Match {
	if method != models.EntryMethodEntryPass {
		return Match{}
	}
	groups := entryCountPattern.FindStringSubmatch(description)
	if groups == nil {
		return Match{}
	}
	remaining, ok := parseCount(groups[3])
	if !ok {
		return Match{}
	}
	return Match{
		Matched:       true,
		Matcher:       m.Name(),
		PassType:      strings.TrimSpace(groups[1]),
		PurchaserName: strings.TrimSpace(groups[2]),
		Remaining:     &remaining,
	}
}

// EntryFallbackMatcher handles entry descriptions without a well formed count.
type EntryFallbackMatcher struct{}

func (EntryFallbackMatcher) Name() string { return "entry_fallback" }

func (m EntryFallbackMatcher) Match(method models.EntryMethod, description string) Match {
	if method != models.EntryMethodEntryPass {
		return Match{}
	}
	groups := entryFallbackPattern.FindStringSubmatch(description)
	if groups == nil {
		return Match{}
	}
	match := Match{
		Matched:       true,
		Matcher:       m.Name(),
		PassType:      strings.TrimSpace(groups[1]),
		PurchaserName: strings.TrimSpace(groups[2]),
	}
	if rem := remainingPattern.FindStringSubmatch(description); rem != nil {
		if n, ok := parseCount(rem[1]); ok {
			match.Remaining = &n
		}
	}
	return match
}

func parseCount(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
