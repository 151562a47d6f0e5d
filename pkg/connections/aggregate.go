// Package connections collapses the interaction history into one scored row per customer pair.
package connections

import (
	"fmt"
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
)

// MaxStrength is the top of the strength scale.
const MaxStrength = 5

// Strength maps an interaction count onto the 1..5 scale:
// 1, 2, 3-4, 5-9 and 10 or more.
func Strength(count int) int {
	switch {
	case count >= 10:
		return 5
	case count >= 5:
		return 4
	case count >= 3:
		return 3
	case count == 2:
		return 2
	default:
		return 1
	}
}

// Aggregate groups interactions by pair. Rows are ordered by strength and count
// descending, then by pair, so identical input always yields identical output.
func Aggregate(interactions []models.Interaction) ([]models.Connection, models.StageStats) {
	stats := models.StageStats{Stage: "connections.aggregate", Processed: len(interactions), Breakdown: make(map[string]int)}

	byPair := make(map[models.Pair]*models.Connection)
	for _, in := range interactions {
		pair := in.Pair()
		if pair.IsSelf() || pair.CustomerID1 > pair.CustomerID2 {
			stats.Skipped++
			continue
		}
		conn, ok := byPair[pair]
		if !ok {
			conn = &models.Connection{
				CustomerID1:          pair.CustomerID1,
				CustomerID2:          pair.CustomerID2,
				FirstInteractionDate: in.InteractionDate,
				LastInteractionDate:  in.InteractionDate,
				Metadata:             models.ConnectionMetadata{TypeCounts: make(map[string]int)},
			}
			byPair[pair] = conn
		}
		conn.InteractionCount++
		conn.Metadata.TypeCounts[string(in.InteractionType)]++
		if in.InteractionDate.Before(conn.FirstInteractionDate) {
			conn.FirstInteractionDate = in.InteractionDate
		}
		if in.InteractionDate.After(conn.LastInteractionDate) {
			conn.LastInteractionDate = in.InteractionDate
		}
	}

	out := make([]models.Connection, 0, len(byPair))
	for _, conn := range byPair {
		conn.StrengthScore = Strength(conn.InteractionCount)
		types := make([]string, 0, len(conn.Metadata.TypeCounts))
		for typ := range conn.Metadata.TypeCounts {
			types = append(types, typ)
		}
		sort.Strings(types)
		conn.InteractionTypes = types
		conn.Metadata.FirstDate = conn.FirstInteractionDate.Format(models.DateLayout)
		conn.Metadata.LastDate = conn.LastInteractionDate.Format(models.DateLayout)
		out = append(out, *conn)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StrengthScore != b.StrengthScore {
			return a.StrengthScore > b.StrengthScore
		}
		if a.InteractionCount != b.InteractionCount {
			return a.InteractionCount > b.InteractionCount
		}
		return models.Pair{CustomerID1: a.CustomerID1, CustomerID2: a.CustomerID2}.Less(models.Pair{CustomerID1: b.CustomerID1, CustomerID2: b.CustomerID2})
	})

	stats.Produced = len(out)
	for _, conn := range out {
		stats.Breakdown[strengthLabel(conn.StrengthScore)]++
	}
	return out, stats
}

// ForCustomer returns the connections touching id with at least minStrength.
func ForCustomer(conns []models.Connection, id int64, minStrength int) []models.Connection {
	var out []models.Connection
	for _, c := range conns {
		if (c.CustomerID1 == id || c.CustomerID2 == id) && c.StrengthScore >= minStrength {
			out = append(out, c)
		}
	}
	return out
}

func strengthLabel(score int) string {
	return fmt.Sprintf("strength_%d", score)
}
