package flags

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Input is the data a rule is evaluated against. A nil Messages or
// Memberships slice means the source is absent; an empty one means it was read
// and had no rows.
type Input struct {
	Customers   []models.Customer
	CheckIns    []models.CheckIn
	Messages    []models.Message
	Memberships []models.Membership
	History     []models.FlagHistoryEntry
	Current     []models.CustomerFlag
}

type idSet map[int64]struct{}

func (s idSet) intersect(keep idSet) idSet {
	out := make(idSet, len(s))
	for id := range s {
		if _, ok := keep[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func (s idSet) minus(drop idSet) idSet {
	out := make(idSet, len(s))
	for id := range s {
		if _, ok := drop[id]; !ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// criterion narrows the eligible set. Each one is a pure function of Input.
type criterion struct {
	name string
	// requires names the optional source the criterion reads, if any
	requires string
	apply    func(in Input, eligible idSet) idSet
}

// buildCriteria returns the rule's criteria in evaluation order.
func buildCriteria(rule models.FlagRule, now time.Time) ([]criterion, error) {
	c := rule.Criteria
	var out []criterion

	if c.TextedKeyword != "" {
		keyword := strings.ToLower(c.TextedKeyword)
		out = append(out, criterion{
			name:     "texted_keyword",
			requires: "messages",
			apply: func(in Input, eligible idSet) idSet {
				return eligible.intersect(textedKeyword(in, keyword))
			},
		})
	}

	if c.HasDayPassCheckin {
		pattern := c.DayPassPattern
		if pattern == "" {
			pattern = DefaultDayPassPattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: day_pass_pattern: %w", rule.FlagName, err)
		}
		out = append(out, criterion{
			name: "has_day_pass_checkin",
			apply: func(in Input, eligible idSet) idSet {
				return eligible.intersect(dayPassVisitors(in.CheckIns, re))
			},
		})
	}

	if c.IsNotActiveMember {
		out = append(out, criterion{
			name:     "is_not_active_member",
			requires: "memberships",
			apply: func(in Input, eligible idSet) idSet {
				return eligible.minus(activeOwners(in.Memberships))
			},
		})
	}

	if c.NoRecentFlagDays != nil {
		cutoff := now.AddDate(0, 0, -*c.NoRecentFlagDays)
		flagName := rule.FlagName
		out = append(out, criterion{
			name: "no_recent_flag_days",
			apply: func(in Input, eligible idSet) idSet {
				return eligible.minus(recentlySet(in.History, flagName, cutoff))
			},
		})
	}

	return out, nil
}

// textedKeyword returns customers whose phone sent an inbound message
// containing keyword.
func textedKeyword(in Input, keyword string) idSet {
	senders := make(map[string]struct{})
	for _, m := range in.Messages {
		if m.Direction != models.MessageInbound {
			continue
		}
		if !strings.Contains(strings.ToLower(m.Body), keyword) {
			continue
		}
		if phone := normalizers.NormalizePhone(m.FromNumber); phone != "" {
			senders[phone] = struct{}{}
		}
	}

	out := make(idSet)
	for _, c := range in.Customers {
		phone := normalizers.NormalizePhone(c.Phone)
		if phone == "" {
			continue
		}
		if _, ok := senders[phone]; ok {
			out[c.ID] = struct{}{}
		}
	}
	return out
}

func dayPassVisitors(checkins []models.CheckIn, re *regexp.Regexp) idSet {
	out := make(idSet)
	for _, ci := range checkins {
		if re.MatchString(ci.Description) {
			out[ci.CustomerID] = struct{}{}
		}
	}
	return out
}

func activeOwners(memberships []models.Membership) idSet {
	out := make(idSet)
	for _, m := range memberships {
		if m.IsActive() {
			out[m.OwnerID] = struct{}{}
		}
	}
	return out
}

// recentlySet returns customers with a set entry for flagName at or after cutoff.
func recentlySet(history []models.FlagHistoryEntry, flagName string, cutoff time.Time) idSet {
	out := make(idSet)
	for _, h := range history {
		if h.FlagName == flagName && h.Action == models.FlagActionSet && !h.Timestamp.Before(cutoff) {
			out[h.CustomerID] = struct{}{}
		}
	}
	return out
}
