package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type customers struct {
	rows []models.Customer
	err  error
}

func (c customers) List(context.Context) ([]models.Customer, error) { return c.rows, c.err }

type checkins struct{ rows []models.CheckIn }

func (c checkins) List(context.Context) ([]models.CheckIn, error) { return c.rows, nil }

type messages struct{ err error }

func (m messages) ListInbound(context.Context) ([]models.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	return nil, nil
}

type rosters struct{ err error }

func (r rosters) Rosters(context.Context) ([]models.Roster, error) {
	return []models.Roster{{Membership: models.Membership{ID: 1, OwnerID: 7, Status: "ACT"}}}, r.err
}

type slowRelations struct{}

func (slowRelations) List(ctx context.Context) ([]models.Relation, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestLoad(t *testing.T) {
	loadedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	readers := Readers{
		Customers: customers{rows: []models.Customer{{ID: 7, FirstName: "Ann"}}},
		CheckIns:  checkins{},
		Messages:  messages{},
		Rosters:   rosters{},
	}

	s, err := Load(context.Background(), readers, Options{Timeout: time.Second, Now: func() time.Time { return loadedAt }}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, loadedAt, s.LoadedAt)
	assert.NotNil(t, s.CheckIns)
	assert.NotNil(t, s.Messages, "read sources are empty, not absent")
	assert.Nil(t, s.Transactions)
	assert.Nil(t, s.Relations)
	assert.Equal(t, []string{SourceTransactions, SourceRelations}, s.Absent)

	c, ok := s.Customer(7)
	assert.True(t, ok)
	assert.Equal(t, "Ann", c.FirstName)
	_, ok = s.Customer(8)
	assert.False(t, ok)

	require.Len(t, s.Memberships(), 1)
	assert.Equal(t, int64(7), s.Memberships()[0].OwnerID)
}

func TestLoad_VenueLocation(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	// 7pm Central on March 1st is already March 2nd in UTC.
	evening := time.Date(2025, 3, 2, 1, 0, 0, 0, time.UTC)
	readers := Readers{
		Customers: customers{},
		CheckIns:  checkins{rows: []models.CheckIn{{ID: 1, CustomerID: 7, CheckedInAt: evening}}},
	}

	s, err := Load(context.Background(), readers, Options{Location: chicago}, testLogger())
	require.NoError(t, err)
	require.Len(t, s.CheckIns, 1)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), s.CheckIns[0].Date())
	assert.True(t, evening.Equal(s.CheckIns[0].CheckedInAt))

	s, err = Load(context.Background(), readers, Options{}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), s.CheckIns[0].Date())
}

func TestLoad_RequiredSourceFailure(t *testing.T) {
	readers := Readers{
		Customers: customers{err: errors.New("connection refused")},
		CheckIns:  checkins{},
	}
	_, err := Load(context.Background(), readers, Options{}, testLogger())

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, SourceCustomers, srcErr.Source)
	assert.Contains(t, err.Error(), "customers")
}

func TestLoad_MissingTableIsAbsent(t *testing.T) {
	readers := Readers{
		Customers: customers{},
		CheckIns:  checkins{},
		Rosters:   rosters{err: database.ErrTableMissing},
	}
	s, err := Load(context.Background(), readers, Options{}, testLogger())
	require.NoError(t, err)
	assert.Nil(t, s.Rosters)
	assert.Nil(t, s.Memberships())
	assert.Contains(t, s.Absent, SourceMemberships)
}

func TestLoad_OptionalReadFailureIsFatal(t *testing.T) {
	readers := Readers{
		Customers: customers{},
		CheckIns:  checkins{},
		Messages:  messages{err: errors.New("permission denied")},
	}
	_, err := Load(context.Background(), readers, Options{}, testLogger())

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, SourceMessages, srcErr.Source)
}

func TestLoad_Timeout(t *testing.T) {
	readers := Readers{
		Customers: customers{},
		CheckIns:  checkins{},
		Relations: slowRelations{},
	}
	_, err := Load(context.Background(), readers, Options{Timeout: 10 * time.Millisecond}, testLogger())

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, SourceRelations, srcErr.Source)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
