package interactions

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

type sameDayMetadata struct {
	TimeDiffMinutes float64 `json:"time_diff_minutes"`
	Location        string  `json:"location"`
}

type frequentGuestMetadata struct {
	HostName  string `json:"host_name"`
	CheckInID int64  `json:"checkin_id"`
}

type visitKey struct {
	date     time.Time
	location string
}

type dayPairKey struct {
	date time.Time
	pair models.Pair
}

// extractSameDayCheckin pairs different customers who checked in at the same
// location within window of each other. Each pair is kept once per day.
func extractSameDayCheckin(c *collector, checkins []models.CheckIn, window time.Duration) {
	partitions := make(map[visitKey][]models.CheckIn)
	for _, ci := range checkins {
		key := visitKey{date: ci.Date(), location: ci.Location}
		partitions[key] = append(partitions[key], ci)
	}

	keys := make([]visitKey, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].date.Equal(keys[j].date) {
			return keys[i].date.Before(keys[j].date)
		}
		return keys[i].location < keys[j].location
	})

	seen := make(map[dayPairKey]struct{})
	for _, key := range keys {
		group := partitions[key]
		sort.SliceStable(group, func(i, j int) bool {
			if !group[i].CheckedInAt.Equal(group[j].CheckedInAt) {
				return group[i].CheckedInAt.Before(group[j].CheckedInAt)
			}
			return group[i].ID < group[j].ID
		})

		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				diff := group[j].CheckedInAt.Sub(group[i].CheckedInAt)
				if diff > window {
					// sorted by time, later check-ins are further away
					break
				}
				if group[i].CustomerID == group[j].CustomerID {
					continue
				}
				dk := dayPairKey{date: key.date, pair: models.NewPair(group[i].CustomerID, group[j].CustomerID)}
				if _, dup := seen[dk]; dup {
					continue
				}
				seen[dk] = struct{}{}
				c.add(key.date, models.InteractionSameDayCheckin, group[i].CustomerID, group[j].CustomerID, sameDayMetadata{
					TimeDiffMinutes: math.Round(diff.Minutes()*10) / 10,
					Location:        key.location,
				})
			}
		}
	}
}

// extractFrequentGuest links a guest to the host named after "from" on their
// guest check-in. Only an exact full name match resolves the host.
func extractFrequentGuest(c *collector, checkins []models.CheckIn, customers []models.Customer) {
	hosts := hostIndex(customers)

	for _, ci := range checkins {
		if ci.Method() != models.EntryMethodGuestPass {
			continue
		}
		if !strings.Contains(strings.ToLower(ci.Description), "from") {
			continue
		}
		_, after, found := strings.Cut(ci.Description, "from")
		if !found {
			continue
		}
		hostName := strings.TrimSpace(after)
		hostID, ok := hosts[hostName]
		if !ok {
			continue
		}
		c.add(ci.CheckedInAt, models.InteractionFrequentGuest, hostID, ci.CustomerID, frequentGuestMetadata{
			HostName:  hostName,
			CheckInID: ci.ID,
		})
	}
}

// hostIndex maps "first last" to the earliest-created customer with that name.
func hostIndex(customers []models.Customer) map[string]int64 {
	sorted := append([]models.Customer(nil), customers...)
	sort.SliceStable(sorted, func(i, j int) bool { return models.CustomerLess(sorted[i], sorted[j]) })

	index := make(map[string]int64, len(sorted))
	for _, cust := range sorted {
		name := cust.FullName()
		if _, exists := index[name]; !exists {
			index[name] = cust.ID
		}
	}
	return index
}
