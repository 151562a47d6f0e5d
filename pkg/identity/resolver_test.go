package identity

import (
	"testing"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 14, 17, 30, 0, 0, time.UTC)

func ptr(id int64) *int64 { return &id }

func customer(id int64, first, last string, createdDaysAgo int) models.Customer {
	return models.Customer{ID: id, FirstName: first, LastName: last, CreatedAt: base.AddDate(0, 0, -createdDaysAgo)}
}

func txn(id int64, customerID *int64, daysBefore int, description string) models.Transaction {
	return models.Transaction{ID: id, CustomerID: customerID, Date: models.DateOf(base).AddDate(0, 0, -daysBefore), Description: description}
}

func transfer(passType, purchaser string) models.Transfer {
	return models.Transfer{
		CheckInID:     1,
		CheckedInAt:   base,
		PassType:      passType,
		PurchaserName: purchaser,
		MatchMethod:   models.MatchMethodNoMatch,
	}
}

func TestResolver_TransactionLink(t *testing.T) {
	customers := []models.Customer{customer(1, "Nancy", "Davis", 100)}

	t.Run("same day scores 95", func(t *testing.T) {
		r := NewResolver(DefaultConfig(), customers, []models.Transaction{
			txn(10, ptr(42), 0, "5 Climb Punch Pass purchase"),
		})
		res := r.Resolve(transfer("5 Climb Punch Pass", "Somebody Else"))
		require.NotNil(t, res.CustomerID)
		assert.Equal(t, int64(42), *res.CustomerID)
		assert.Equal(t, models.MatchMethodTransactionLink, res.Method)
		assert.Equal(t, 95, res.Confidence)
	})

	t.Run("most recent candidate wins", func(t *testing.T) {
		r := NewResolver(DefaultConfig(), customers, []models.Transaction{
			txn(10, ptr(41), 5, "Climb punch card"),
			txn(11, ptr(42), 2, "punch pass"),
		})
		res := r.Resolve(transfer("5 Climb Punch Pass", "Nancy Davis"))
		require.NotNil(t, res.CustomerID)
		assert.Equal(t, int64(42), *res.CustomerID)
		assert.Equal(t, 85, res.Confidence)
	})

	t.Run("floor at 60", func(t *testing.T) {
		r := NewResolver(DefaultConfig(), customers, []models.Transaction{
			txn(10, ptr(42), 6, "day pass"),
		})
		res, ok := r.LinkTransaction("Day Pass", base)
		require.True(t, ok)
		assert.Equal(t, 65, res.Confidence)

		r = NewResolver(Config{LookbackDays: 30, LookaheadDays: 1, FuzzyThreshold: 80}, customers, []models.Transaction{
			txn(10, ptr(42), 20, "day pass"),
		})
		res, ok = r.LinkTransaction("Day Pass", base)
		require.True(t, ok)
		assert.Equal(t, 60, res.Confidence)
	})

	t.Run("purchase after the visit is clamped", func(t *testing.T) {
		r := NewResolver(DefaultConfig(), customers, []models.Transaction{
			{ID: 10, CustomerID: ptr(42), Date: base.Add(20 * time.Hour), Description: "day pass"},
		})
		res, ok := r.LinkTransaction("Day Pass", base)
		require.True(t, ok)
		assert.Equal(t, 95, res.Confidence)
	})

	t.Run("outside window falls through to name match", func(t *testing.T) {
		r := NewResolver(DefaultConfig(), customers, []models.Transaction{
			txn(10, ptr(42), 9, "punch pass"),
		})
		res := r.Resolve(transfer("5 Climb Punch Pass", "Nancy Davis"))
		assert.Equal(t, models.MatchMethodNameMatch, res.Method)
		assert.Equal(t, 100, res.Confidence)
	})

	t.Run("best candidate without customer fails the strategy", func(t *testing.T) {
		r := NewResolver(DefaultConfig(), customers, []models.Transaction{
			txn(10, ptr(42), 3, "punch pass"),
			txn(11, nil, 1, "punch pass"),
		})
		_, ok := r.LinkTransaction("5 Climb Punch Pass", base)
		assert.False(t, ok)
	})

	t.Run("description must share a keyword", func(t *testing.T) {
		r := NewResolver(DefaultConfig(), customers, []models.Transaction{
			txn(10, ptr(42), 0, "membership dues"),
		})
		_, ok := r.LinkTransaction("Day Pass", base)
		assert.False(t, ok)
	})

	t.Run("equal dates prefer lowest transaction id", func(t *testing.T) {
		r := NewResolver(DefaultConfig(), customers, []models.Transaction{
			txn(12, ptr(3), 1, "day pass"),
			txn(11, ptr(2), 1, "day pass"),
		})
		res, ok := r.LinkTransaction("Day Pass", base)
		require.True(t, ok)
		assert.Equal(t, int64(2), *res.CustomerID)
	})
}

func TestResolver_MatchName(t *testing.T) {
	customers := []models.Customer{
		customer(3, "Jon", "Smith", 10),
		customer(2, "John", "Smith", 50),
		customer(1, "Mary", "Ann Jones", 30),
	}
	r := NewResolver(DefaultConfig(), customers, nil)

	t.Run("exact ignores case", func(t *testing.T) {
		res, ok := r.MatchName("john SMITH")
		require.True(t, ok)
		assert.Equal(t, int64(2), *res.CustomerID)
		assert.Equal(t, 100, res.Confidence)
	})

	t.Run("multi word last name", func(t *testing.T) {
		res, ok := r.MatchName("Mary Ann Jones")
		require.True(t, ok)
		assert.Equal(t, int64(1), *res.CustomerID)
		assert.Equal(t, 100, res.Confidence)
	})

	t.Run("fuzzy above threshold", func(t *testing.T) {
		res, ok := r.MatchName("Jonh Smith")
		require.True(t, ok)
		assert.Equal(t, models.MatchMethodNameMatch, res.Method)
		assert.GreaterOrEqual(t, res.Confidence, 80)
		assert.Less(t, res.Confidence, 100)
	})

	t.Run("below threshold", func(t *testing.T) {
		_, ok := r.MatchName("Zed Quixote")
		assert.False(t, ok)
	})

	t.Run("single word never exact", func(t *testing.T) {
		_, ok := r.MatchName("Smith")
		assert.False(t, ok)
	})
}

func TestResolver_FuzzyTiesKeepEarliestCreated(t *testing.T) {
	// "ann le" is equally similar to both names; customer 9 was created first
	customers := []models.Customer{
		customer(5, "Ann", "Lea", 10),
		customer(9, "Ann", "Lee", 20),
	}
	r := NewResolver(Config{FuzzyThreshold: 80}, customers, nil)

	res, ok := r.MatchName("Ann Le")
	require.True(t, ok)
	assert.Equal(t, int64(9), *res.CustomerID)
}

func TestResolver_NoMatch(t *testing.T) {
	r := NewResolver(DefaultConfig(), nil, nil)
	res := r.Resolve(transfer("Day Pass", "John Smith"))
	assert.Equal(t, models.NoMatch(), res)
	assert.Nil(t, res.CustomerID)
	assert.Equal(t, 0, res.Confidence)
}

func TestResolver_ResolveAllIsDeterministic(t *testing.T) {
	customers := []models.Customer{
		customer(2, "John", "Smith", 50),
		customer(7, "Nancy", "Davis", 20),
	}
	txns := []models.Transaction{txn(10, ptr(7), 1, "punch card")}
	transfers := []models.Transfer{
		transfer("5 Climb Punch Pass", "Nancy Davis"),
		transfer("Guest Pass", "john smith"),
		transfer("Guest Pass", "Nobody Known"),
	}

	first, stats := NewResolver(DefaultConfig(), customers, txns).ResolveAll(transfers)
	second, _ := NewResolver(DefaultConfig(), customers, txns).ResolveAll(transfers)

	assert.Equal(t, first, second)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 2, stats.Produced)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, models.MatchMethodTransactionLink, first[0].MatchMethod)
	assert.Equal(t, models.MatchMethodNameMatch, first[1].MatchMethod)
	assert.Equal(t, models.MatchMethodNoMatch, first[2].MatchMethod)
}

func TestResolver_NeverDowngrades(t *testing.T) {
	prior := transfer("Guest Pass", "Nobody Known").WithResolution(models.Resolution{
		CustomerID: ptr(99),
		Method:     models.MatchMethodNameMatch,
		Confidence: 100,
	})

	out, _ := NewResolver(DefaultConfig(), nil, nil).ResolveAll([]models.Transfer{prior})

	require.NotNil(t, out[0].PurchaserCustomerID)
	assert.Equal(t, int64(99), *out[0].PurchaserCustomerID)
	assert.Equal(t, 100, out[0].MatchConfidence)
}

func TestKeepBest(t *testing.T) {
	low := models.Resolution{CustomerID: ptr(1), Method: models.MatchMethodNameMatch, Confidence: 82}
	high := models.Resolution{CustomerID: ptr(2), Method: models.MatchMethodTransactionLink, Confidence: 95}

	assert.Equal(t, high, KeepBest(high, low))
	assert.Equal(t, high, KeepBest(low, high))
	assert.Equal(t, low, KeepBest(models.NoMatch(), low))
	// equal confidence takes the newer result
	assert.Equal(t, high, KeepBest(models.Resolution{Confidence: 95}, high))
}
