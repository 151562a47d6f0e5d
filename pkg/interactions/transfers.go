package interactions

import (
	"sort"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Ramsey-B/fern/pkg/models"
)

type sharedPassMetadata struct {
	PassType      string `json:"pass_type"`
	Remaining     *int   `json:"remaining"`
	CheckInID     int64  `json:"checkin_id"`
	PurchaserName string `json:"purchaser_name"`
}

type purchaseGroupMetadata struct {
	PurchaserName string `json:"purchaser_name"`
	PassType      string `json:"pass_type"`
	GroupSize     int    `json:"group_size"`
}

// extractSharedPass emits purchaser and user for every resolved transfer.
// Customers using their own pass are skipped by the collector.
func extractSharedPass(c *collector, transfers []models.Transfer) {
	for _, t := range transfers {
		if !t.IsResolved() {
			continue
		}
		c.add(t.CheckedInAt, models.InteractionSharedPass, *t.PurchaserCustomerID, t.UserCustomerID, sharedPassMetadata{
			PassType:      t.PassType,
			Remaining:     t.RemainingCount,
			CheckInID:     t.CheckInID,
			PurchaserName: t.PurchaserName,
		})
	}
}

type purchaseKey struct {
	purchaser string
	date      time.Time
	passType  string
}

// extractSamePurchaseGroup pairs every user who received the same purchaser's
// pass type on the same day.
func extractSamePurchaseGroup(c *collector, transfers []models.Transfer) {
	groups := make(map[purchaseKey][]int64)
	for _, t := range transfers {
		if !t.IsResolved() {
			continue
		}
		key := purchaseKey{purchaser: t.PurchaserName, date: t.Date(), passType: t.PassType}
		if !ectolinq.Contains(groups[key], t.UserCustomerID) {
			groups[key] = append(groups[key], t.UserCustomerID)
		}
	}

	keys := make([]purchaseKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].purchaser != keys[j].purchaser {
			return keys[i].purchaser < keys[j].purchaser
		}
		if !keys[i].date.Equal(keys[j].date) {
			return keys[i].date.Before(keys[j].date)
		}
		return keys[i].passType < keys[j].passType
	})

	for _, key := range keys {
		users := groups[key]
		if len(users) < 2 {
			continue
		}
		metadata := purchaseGroupMetadata{PurchaserName: key.purchaser, PassType: key.passType, GroupSize: len(users)}
		for i := 0; i < len(users); i++ {
			for j := i + 1; j < len(users); j++ {
				c.add(key.date, models.InteractionSamePurchaseGroup, users[i], users[j], metadata)
			}
		}
	}
}
