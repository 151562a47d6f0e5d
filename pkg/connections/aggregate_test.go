package connections

import (
	"testing"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interaction(c1, c2 int64, date string, typ models.InteractionType) models.Interaction {
	d, _ := time.Parse(models.DateLayout, date)
	return models.Interaction{ID: date + string(typ), InteractionDate: d, InteractionType: typ, CustomerID1: c1, CustomerID2: c2}
}

func TestStrength(t *testing.T) {
	tests := []struct {
		count    int
		expected int
	}{
		{0, 1}, {1, 1}, {2, 2}, {3, 3}, {4, 3}, {5, 4}, {9, 4}, {10, 5}, {250, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Strength(tt.count), "count %d", tt.count)
	}
}

func TestStrength_NonDecreasing(t *testing.T) {
	prev := Strength(1)
	for n := 2; n <= 100; n++ {
		s := Strength(n)
		assert.GreaterOrEqual(t, s, prev)
		assert.LessOrEqual(t, s, MaxStrength)
		prev = s
	}
}

func TestAggregate(t *testing.T) {
	interactions := []models.Interaction{
		interaction(1, 2, "2025-01-03", models.InteractionSameDayCheckin),
		interaction(1, 2, "2025-01-01", models.InteractionSharedPass),
		interaction(1, 2, "2025-02-10", models.InteractionSameDayCheckin),
		interaction(3, 4, "2025-01-05", models.InteractionFrequentGuest),
		interaction(2, 9, "2025-01-05", models.InteractionSharedPass),
		interaction(2, 9, "2025-01-06", models.InteractionSharedPass),
	}

	conns, stats := Aggregate(interactions)

	require.Len(t, conns, 3)
	assert.Equal(t, 6, stats.Processed)
	assert.Equal(t, 3, stats.Produced)

	top := conns[0]
	assert.Equal(t, int64(1), top.CustomerID1)
	assert.Equal(t, int64(2), top.CustomerID2)
	assert.Equal(t, 3, top.InteractionCount)
	assert.Equal(t, 3, top.StrengthScore)
	assert.Equal(t, []string{"same_day_checkin", "shared_pass"}, []string(top.InteractionTypes))
	assert.Equal(t, "2025-01-01", top.Metadata.FirstDate)
	assert.Equal(t, "2025-02-10", top.Metadata.LastDate)
	assert.Equal(t, map[string]int{"same_day_checkin": 2, "shared_pass": 1}, top.Metadata.TypeCounts)
	assert.Equal(t, "2025-01-01", top.FirstInteractionDate.Format(models.DateLayout))

	assert.Equal(t, int64(2), conns[1].CustomerID1)
	assert.Equal(t, 2, conns[1].StrengthScore)
	assert.Equal(t, int64(3), conns[2].CustomerID1)
	assert.Equal(t, 1, conns[2].StrengthScore)
}

func TestAggregate_TiesOrderByPair(t *testing.T) {
	interactions := []models.Interaction{
		interaction(5, 6, "2025-01-01", models.InteractionSharedPass),
		interaction(1, 7, "2025-01-01", models.InteractionSharedPass),
		interaction(1, 3, "2025-01-01", models.InteractionSharedPass),
	}

	first, _ := Aggregate(interactions)
	second, _ := Aggregate([]models.Interaction{interactions[2], interactions[0], interactions[1]})

	assert.Equal(t, first, second)
	assert.Equal(t, int64(3), first[0].CustomerID2)
	assert.Equal(t, int64(7), first[1].CustomerID2)
	assert.Equal(t, int64(5), first[2].CustomerID1)
}

func TestAggregate_SkipsNonCanonicalRows(t *testing.T) {
	conns, stats := Aggregate([]models.Interaction{
		interaction(4, 4, "2025-01-01", models.InteractionSharedPass),
		interaction(9, 2, "2025-01-01", models.InteractionSharedPass),
	})
	assert.Empty(t, conns)
	assert.Equal(t, 2, stats.Skipped)
}

func TestForCustomer(t *testing.T) {
	conns := []models.Connection{
		{CustomerID1: 1, CustomerID2: 2, StrengthScore: 4},
		{CustomerID1: 2, CustomerID2: 3, StrengthScore: 1},
		{CustomerID1: 5, CustomerID2: 6, StrengthScore: 5},
	}
	assert.Len(t, ForCustomer(conns, 2, 1), 2)
	assert.Len(t, ForCustomer(conns, 2, 2), 1)
	assert.Empty(t, ForCustomer(conns, 9, 1))
}
