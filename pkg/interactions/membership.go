package interactions

import (
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
)

type familyMembershipMetadata struct {
	MembershipID   int64   `json:"membership_id"`
	MembershipName string  `json:"membership_name"`
	MemberIDs      []int64 `json:"member_ids"`
}

// extractFamilyMembership pairs the occupants of family and duo memberships.
// One membership id can hold several households, so members are split into
// runs whose consecutive member ids differ by at most gap.
func extractFamilyMembership(c *collector, rosters []models.Roster, gap int64) {
	shared := make([]models.Roster, 0, len(rosters))
	for _, r := range rosters {
		if r.Membership.IsShared() {
			shared = append(shared, r)
		}
	}
	sort.SliceStable(shared, func(i, j int) bool { return shared[i].Membership.ID < shared[j].Membership.ID })

	for _, r := range shared {
		for _, group := range SubGroups(r.Members, gap) {
			if len(group) < 2 {
				continue
			}
			memberIDs := make([]int64, 0, len(group))
			for _, m := range group {
				memberIDs = append(memberIDs, m.MemberID)
			}
			metadata := familyMembershipMetadata{
				MembershipID:   r.Membership.ID,
				MembershipName: r.Membership.Name,
				MemberIDs:      memberIDs,
			}
			for i := 0; i < len(group); i++ {
				for j := i + 1; j < len(group); j++ {
					c.add(group[i].StartDate, models.InteractionFamilyMembership, group[i].CustomerID, group[j].CustomerID, metadata)
				}
			}
		}
	}
}

// SubGroups sorts members by member id and splits them greedily: the next
// member joins the current run when its id is within gap of the run's last id.
func SubGroups(members []models.MembershipMember, gap int64) [][]models.MembershipMember {
	if len(members) == 0 {
		return nil
	}
	sorted := append([]models.MembershipMember(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MemberID < sorted[j].MemberID })

	var groups [][]models.MembershipMember
	current := []models.MembershipMember{sorted[0]}
	for _, m := range sorted[1:] {
		if m.MemberID-current[len(current)-1].MemberID <= gap {
			current = append(current, m)
			continue
		}
		groups = append(groups, current)
		current = []models.MembershipMember{m}
	}
	return append(groups, current)
}
