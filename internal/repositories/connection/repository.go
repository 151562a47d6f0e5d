package connection

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const batchSize = 1000

var columns = []string{
	"customer_id_1",
	"customer_id_2",
	"interaction_count",
	"strength_score",
	"first_interaction_date",
	"last_interaction_date",
	"interaction_types",
	"metadata",
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Rebuild replaces the whole table in one transaction.
func (r *Repository) Rebuild(ctx context.Context, conns []models.Connection) error {
	ctx, span := tracing.StartSpan(ctx, "connection.Repository.Rebuild")
	defer span.End()

	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		del := database.NewDeleteBuilder()
		del.DeleteFrom("customer_connections")
		query, args := del.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		for _, batch := range database.Chunk(conns, batchSize) {
			ib := database.NewInsertBuilder("customer_connections", columns...)
			for _, c := range batch {
				ib.Values(c.CustomerID1, c.CustomerID2, c.InteractionCount, c.StrengthScore, c.FirstInteractionDate, c.LastInteractionDate, c.InteractionTypes, c.Metadata)
			}
			query, args := ib.Build()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("count", len(conns)).Error("Failed to rebuild customer connections")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to rebuild customer connections")
	}
	return nil
}

// ForCustomer returns connections touching id with at least minStrength,
// strongest first.
func (r *Repository) ForCustomer(ctx context.Context, id int64, minStrength int) ([]models.Connection, error) {
	ctx, span := tracing.StartSpan(ctx, "connection.Repository.ForCustomer")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("customer_connections")
	sb.Where(
		sb.Or(sb.Equal("customer_id_1", id), sb.Equal("customer_id_2", id)),
		sb.GreaterEqualThan("strength_score", minStrength),
	)
	sb.OrderBy("strength_score DESC", "interaction_count DESC", "customer_id_1", "customer_id_2")

	query, args := sb.Build()
	out := make([]models.Connection, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("customer_id", id).Error("Failed to list customer connections")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list customer connections")
	}
	return out, nil
}

// List returns every connection, strongest first.
func (r *Repository) List(ctx context.Context) ([]models.Connection, error) {
	ctx, span := tracing.StartSpan(ctx, "connection.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("customer_connections")
	sb.OrderBy("strength_score DESC", "interaction_count DESC", "customer_id_1", "customer_id_2")

	query, args := sb.Build()
	out := make([]models.Connection, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list customer connections")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list customer connections")
	}
	return out, nil
}
