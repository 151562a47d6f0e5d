package transfers

import (
	"sort"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Summary is the aggregate view over a set of transfers.
type Summary struct {
	TotalTransfers     int        `json:"total_transfers"`
	EntryPassTransfers int        `json:"entry_pass_transfers"`
	GuestPassTransfers int        `json:"guest_pass_transfers"`
	PunchPassTransfers int        `json:"punch_pass_transfers"`
	YouthPassTransfers int        `json:"youth_pass_transfers"`
	UniquePurchasers   int        `json:"unique_purchasers"`
	UniqueUsers        int        `json:"unique_users"`
	MatchedTransfers   int        `json:"matched_transfers"`
	FirstCheckIn       *time.Time `json:"first_checkin,omitempty"`
	LastCheckIn        *time.Time `json:"last_checkin,omitempty"`
}

// Sharer is one purchaser ranked by how often their passes were used by others.
type Sharer struct {
	PurchaserName string              `json:"purchaser_name"`
	ShareCount    int                 `json:"share_count"`
	PrimaryType   models.TransferType `json:"primary_type"`
	YouthShares   int                 `json:"youth_shares"`
	PunchShares   int                 `json:"punch_shares"`
}

// Summarize computes totals over transfers.
func Summarize(transfers []models.Transfer) Summary {
	s := Summary{TotalTransfers: len(transfers)}
	if len(transfers) == 0 {
		return s
	}

	purchasers := make(map[string]struct{})
	users := make(map[int64]struct{})
	first, last := transfers[0].CheckedInAt, transfers[0].CheckedInAt

	for _, t := range transfers {
		switch t.TransferType {
		case models.TransferTypeEntryPass:
			s.EntryPassTransfers++
		case models.TransferTypeGuestPass:
			s.GuestPassTransfers++
		}
		if t.IsPunchPass {
			s.PunchPassTransfers++
		}
		if t.IsYouthPass {
			s.YouthPassTransfers++
		}
		if t.IsResolved() {
			s.MatchedTransfers++
		}
		purchasers[t.PurchaserName] = struct{}{}
		users[t.UserCustomerID] = struct{}{}
		if t.CheckedInAt.Before(first) {
			first = t.CheckedInAt
		}
		if t.CheckedInAt.After(last) {
			last = t.CheckedInAt
		}
	}

	s.UniquePurchasers = len(purchasers)
	s.UniqueUsers = len(users)
	s.FirstCheckIn = &first
	s.LastCheckIn = &last
	return s
}

// TopSharers ranks purchasers by share count, then name. n <= 0 returns all.
func TopSharers(transfers []models.Transfer, n int) []Sharer {
	type tally struct {
		sharer Sharer
		byType map[models.TransferType]int
	}

	tallies := make(map[string]*tally)
	for _, t := range transfers {
		tl, ok := tallies[t.PurchaserName]
		if !ok {
			tl = &tally{sharer: Sharer{PurchaserName: t.PurchaserName}, byType: make(map[models.TransferType]int)}
			tallies[t.PurchaserName] = tl
		}
		tl.sharer.ShareCount++
		tl.byType[t.TransferType]++
		if t.IsYouthPass {
			tl.sharer.YouthShares++
		}
		if t.IsPunchPass {
			tl.sharer.PunchShares++
		}
	}

	sharers := ectolinq.Map(ectolinq.Values(tallies), func(tl *tally) Sharer {
		tl.sharer.PrimaryType = models.TransferTypeEntryPass
		if tl.byType[models.TransferTypeGuestPass] > tl.byType[models.TransferTypeEntryPass] {
			tl.sharer.PrimaryType = models.TransferTypeGuestPass
		}
		return tl.sharer
	})

	sort.Slice(sharers, func(i, j int) bool {
		if sharers[i].ShareCount != sharers[j].ShareCount {
			return sharers[i].ShareCount > sharers[j].ShareCount
		}
		return sharers[i].PurchaserName < sharers[j].PurchaserName
	})

	if n > 0 && len(sharers) > n {
		sharers = sharers[:n]
	}
	return sharers
}
