// Package transfers turns free-text check-in descriptions into pass transfer records.
package transfers

import (
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

var (
	punchTerms = []string{"punch", "climb"}
	youthTerms = []string{"youth", "under 14"}
)

// Parser runs an ordered list of matchers over each qualifying check-in.
// The first matcher that matches wins.
type Parser struct {
	matchers []Matcher
}

// NewParser creates a parser. With no matchers it uses DefaultMatchers.
func NewParser(matchers ...Matcher) *Parser {
	if len(matchers) == 0 {
		matchers = DefaultMatchers()
	}
	return &Parser{matchers: matchers}
}

// Parse extracts one transfer per qualifying check-in, preserving input order.
// Processed counts every check-in and Skipped counts qualifying check-ins that
// could not be parsed.
func (p *Parser) Parse(checkins []models.CheckIn) ([]models.Transfer, models.StageStats) {
	stats := models.StageStats{Stage: "transfers.parse", Processed: len(checkins)}
	transfers := make([]models.Transfer, 0)

	for _, c := range checkins {
		if !Qualifies(c) {
			continue
		}
		t, ok := p.ParseOne(c)
		if !ok {
			stats.Skipped++
			continue
		}
		transfers = append(transfers, t)
	}

	stats.Produced = len(transfers)
	return transfers, stats
}

// Qualifies reports whether a check-in could describe a transfer at all.
func Qualifies(c models.CheckIn) bool {
	method := c.Method()
	if method != models.EntryMethodEntryPass && method != models.EntryMethodGuestPass {
		return false
	}
	return strings.Contains(strings.ToLower(c.Description), " from ")
}

// ParseOne parses a single check-in. It returns false when the check-in does not
// qualify, no matcher matches, or the purchaser name is empty.
func (p *Parser) ParseOne(c models.CheckIn) (models.Transfer, bool) {
	if !Qualifies(c) {
		return models.Transfer{}, false
	}

	method := c.Method()
	var match Match
	for _, m := range p.matchers {
		if match = m.Match(method, c.Description); match.Matched {
			break
		}
	}
	if !match.Matched || match.PurchaserName == "" {
		return models.Transfer{}, false
	}

	transferType := models.TransferTypeEntryPass
	if method == models.EntryMethodGuestPass {
		transferType = models.TransferTypeGuestPass
	}

	lower := strings.ToLower(c.Description)
	return models.Transfer{
		CheckInID:      c.ID,
		CheckedInAt:    c.CheckedInAt,
		TransferType:   transferType,
		PassType:       match.PassType,
		PurchaserName:  match.PurchaserName,
		UserCustomerID: c.CustomerID,
		RemainingCount: match.Remaining,
		IsPunchPass:    containsAny(lower, punchTerms),
		IsYouthPass:    containsAny(lower, youthTerms),
		Location:       c.Location,
		MatchMethod:    models.MatchMethodNoMatch,
	}, true
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
