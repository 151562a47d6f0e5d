package models

import (
	"sort"
	"strings"
	"time"
)

// Membership is one roster group. Members hang off it by MembershipID.
type Membership struct {
	ID         int64      `json:"membership_id" db:"membership_id"`
	Name       string     `json:"name" db:"name"`
	Size       string     `json:"size" db:"size"`
	Status     string     `json:"status" db:"status"`
	OwnerID    int64      `json:"owner_id" db:"owner_id"`
	OwnerEmail string     `json:"owner_email" db:"owner_email"`
	StartDate  time.Time  `json:"start_date" db:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty" db:"end_date"`
}

// IsActive reports whether the status code marks a current membership.
func (m Membership) IsActive() bool {
	switch strings.ToUpper(strings.TrimSpace(m.Status)) {
	case "ACT", "ACTIVE":
		return true
	}
	return false
}

// IsShared reports whether the membership is a family or duo plan.
func (m Membership) IsShared() bool {
	switch strings.ToLower(strings.TrimSpace(m.Size)) {
	case "family", "duo":
		return true
	}
	return false
}

var youthMembershipTerms = []string{"youth", "team dues", "junior", "kid"}

// IsYouth reports whether the membership name marks a plan owned by a minor.
func (m Membership) IsYouth() bool {
	name := strings.ToLower(m.Name)
	for _, term := range youthMembershipTerms {
		if strings.Contains(name, term) {
			return true
		}
	}
	return false
}

// MembershipMember is one occupied roster slot.
type MembershipMember struct {
	MembershipID int64     `json:"membership_id" db:"membership_id"`
	MemberID     int64     `json:"member_id" db:"member_id"`
	CustomerID   int64     `json:"customer_id" db:"customer_id"`
	StartDate    time.Time `json:"start_date" db:"start_date"`
}

// Roster is a membership with its members.
type Roster struct {
	Membership Membership
	Members    []MembershipMember
}

// Occupants returns the distinct customer ids on the roster ordered by member id.
func (r Roster) Occupants() []int64 {
	members := append([]MembershipMember(nil), r.Members...)
	sort.SliceStable(members, func(i, j int) bool { return members[i].MemberID < members[j].MemberID })

	seen := make(map[int64]struct{}, len(members))
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if _, dup := seen[m.CustomerID]; dup {
			continue
		}
		seen[m.CustomerID] = struct{}{}
		ids = append(ids, m.CustomerID)
	}
	return ids
}
