// Package snapshot loads the upstream tables once per run into an immutable,
// run-scoped store that every stage reads from.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Source names as they appear in errors and logs.
const (
	SourceCustomers    = "customers"
	SourceCheckIns     = "checkins"
	SourceTransactions = "transactions"
	SourceMessages     = "messages"
	SourceMemberships  = "memberships"
	SourceRelations    = "customer_relations"
)

// SourceError is a failed read of one upstream source. It is always fatal.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

type CustomerReader interface {
	List(ctx context.Context) ([]models.Customer, error)
}

type CheckInReader interface {
	List(ctx context.Context) ([]models.CheckIn, error)
}

type TransactionReader interface {
	List(ctx context.Context) ([]models.Transaction, error)
}

type MessageReader interface {
	ListInbound(ctx context.Context) ([]models.Message, error)
}

type RosterReader interface {
	Rosters(ctx context.Context) ([]models.Roster, error)
}

type RelationReader interface {
	List(ctx context.Context) ([]models.Relation, error)
}

// Readers are the upstream sources. Customers and CheckIns are required; a nil
// optional reader leaves that source absent.
type Readers struct {
	Customers    CustomerReader
	CheckIns     CheckInReader
	Transactions TransactionReader
	Messages     MessageReader
	Rosters      RosterReader
	Relations    RelationReader
}

type Options struct {
	// Timeout bounds each source read.
	Timeout time.Duration
	// Location is the venue timezone. Event timestamps are moved into it so
	// calendar dates are venue-local. Nil keeps the driver's location.
	Location *time.Location
	Now      func() time.Time
}

// Store is one run's view of the upstream data. Optional sources are nil when
// absent and non-nil (possibly empty) when read.
type Store struct {
	Customers    []models.Customer
	CheckIns     []models.CheckIn
	Transactions []models.Transaction
	Messages     []models.Message
	Rosters      []models.Roster
	Relations    []models.Relation
	LoadedAt     time.Time
	// Absent lists the optional sources that were not available.
	Absent []string

	customers map[int64]models.Customer
}

// New builds a store from already loaded data.
func New(s Store) *Store {
	s.customers = make(map[int64]models.Customer, len(s.Customers))
	for _, c := range s.Customers {
		s.customers[c.ID] = c
	}
	return &s
}

// Customer looks up a customer by id.
func (s *Store) Customer(id int64) (models.Customer, bool) {
	c, ok := s.customers[id]
	return c, ok
}

// Memberships returns the membership half of each roster, or nil when rosters are absent.
func (s *Store) Memberships() []models.Membership {
	if s.Rosters == nil {
		return nil
	}
	out := make([]models.Membership, 0, len(s.Rosters))
	for _, r := range s.Rosters {
		out = append(out, r.Membership)
	}
	return out
}

// Load reads every source under its own timeout.
func Load(ctx context.Context, readers Readers, opts Options, logger ectologger.Logger) (*Store, error) {
	ctx, span := tracing.StartSpan(ctx, "snapshot.Load")
	defer span.End()

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if readers.Customers == nil || readers.CheckIns == nil {
		return nil, errors.New("customers and checkins readers are required")
	}

	s := Store{LoadedAt: opts.Now()}
	var err error

	if s.Customers, err = read(ctx, opts.Timeout, SourceCustomers, readers.Customers.List); err != nil {
		return nil, err
	}
	if s.CheckIns, err = read(ctx, opts.Timeout, SourceCheckIns, readers.CheckIns.List); err != nil {
		return nil, err
	}

	if readers.Transactions != nil {
		if s.Transactions, err = readOptional(ctx, opts.Timeout, SourceTransactions, readers.Transactions.List); err != nil {
			return nil, err
		}
	}
	if readers.Messages != nil {
		if s.Messages, err = readOptional(ctx, opts.Timeout, SourceMessages, readers.Messages.ListInbound); err != nil {
			return nil, err
		}
	}
	if readers.Rosters != nil {
		if s.Rosters, err = readOptional(ctx, opts.Timeout, SourceMemberships, readers.Rosters.Rosters); err != nil {
			return nil, err
		}
	}
	if readers.Relations != nil {
		if s.Relations, err = readOptional(ctx, opts.Timeout, SourceRelations, readers.Relations.List); err != nil {
			return nil, err
		}
	}

	if opts.Location != nil {
		s.localize(opts.Location)
	}

	if s.Transactions == nil {
		s.Absent = append(s.Absent, SourceTransactions)
	}
	if s.Messages == nil {
		s.Absent = append(s.Absent, SourceMessages)
	}
	if s.Rosters == nil {
		s.Absent = append(s.Absent, SourceMemberships)
	}
	if s.Relations == nil {
		s.Absent = append(s.Absent, SourceRelations)
	}
	if len(s.Absent) > 0 {
		logger.WithContext(ctx).WithField("absent", s.Absent).Warn("Optional sources are absent; dependent steps will be skipped")
	}

	logger.WithContext(ctx).WithFields(map[string]any{
		"customers":    len(s.Customers),
		"checkins":     len(s.CheckIns),
		"transactions": len(s.Transactions),
		"messages":     len(s.Messages),
		"rosters":      len(s.Rosters),
		"relations":    len(s.Relations),
	}).Info("Loaded snapshot")

	return New(s), nil
}

// localize copies the event sources so reader-owned slices are left untouched.
func (s *Store) localize(loc *time.Location) {
	s.CheckIns = localized(s.CheckIns, func(c *models.CheckIn) { c.CheckedInAt = c.CheckedInAt.In(loc) })
	s.Transactions = localized(s.Transactions, func(t *models.Transaction) { t.Date = t.Date.In(loc) })
	s.Messages = localized(s.Messages, func(m *models.Message) { m.SentAt = m.SentAt.In(loc) })
}

func localized[T any](rows []T, move func(*T)) []T {
	if rows == nil {
		return nil
	}
	out := make([]T, len(rows))
	copy(out, rows)
	for i := range out {
		move(&out[i])
	}
	return out
}

func read[T any](ctx context.Context, timeout time.Duration, source string, fn func(context.Context) ([]T, error)) ([]T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	rows, err := fn(ctx)
	if err != nil {
		return nil, &SourceError{Source: source, Err: err}
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

// readOptional treats a missing table as an absent source. Any other failure
// is still fatal.
func readOptional[T any](ctx context.Context, timeout time.Duration, source string, fn func(context.Context) ([]T, error)) ([]T, error) {
	rows, err := read(ctx, timeout, source, fn)
	if err != nil && errors.Is(err, database.ErrTableMissing) {
		return nil, nil
	}
	return rows, err
}
