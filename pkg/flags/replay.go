package flags

import (
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
)

type flagKey struct {
	customerID int64
	flagName   string
}

// Replay rebuilds the current flag state from history in the given order.
// A set after a set refreshes flagged_at; a clear removes the row.
func Replay(history []models.FlagHistoryEntry) []models.CustomerFlag {
	state := make(map[flagKey]models.CustomerFlag)
	for _, h := range history {
		key := flagKey{customerID: h.CustomerID, flagName: h.FlagName}
		switch h.Action {
		case models.FlagActionSet:
			state[key] = models.CustomerFlag{CustomerID: h.CustomerID, FlagName: h.FlagName, FlaggedAt: h.Timestamp, CriteriaMet: true}
		case models.FlagActionClear:
			delete(state, key)
		}
	}

	flags := make([]models.CustomerFlag, 0, len(state))
	for _, f := range state {
		flags = append(flags, f)
	}
	sort.Slice(flags, func(i, j int) bool {
		if flags[i].FlagName != flags[j].FlagName {
			return flags[i].FlagName < flags[j].FlagName
		}
		return flags[i].CustomerID < flags[j].CustomerID
	})
	return flags
}
