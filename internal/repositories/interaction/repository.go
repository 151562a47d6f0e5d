package interaction

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

var columns = []string{"interaction_id", "interaction_date", "interaction_type", "customer_id_1", "customer_id_2", "metadata"}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Append upserts interactions by id and returns how many were new. An existing
// row takes the metadata of the later write.
func (r *Repository) Append(ctx context.Context, rows []models.Interaction) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "interaction.Repository.Append")
	defer span.End()

	inserted := 0
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		for _, batch := range database.Chunk(rows, batchSize) {
			ib := database.NewInsertBuilder("customer_interactions", columns...)
			for _, row := range batch {
				ib.Values(row.ID, row.InteractionDate, row.InteractionType, row.CustomerID1, row.CustomerID2, string(row.Metadata))
			}
			ib.OnConflictUpdate([]string{"interaction_id"}, []string{"metadata"}, "")
			// xmax is zero only for freshly inserted tuples
			ib.SQL("RETURNING (xmax = 0) AS inserted")

			query, args := ib.Build()
			var flags []bool
			if err := tx.SelectContext(ctx, &flags, query, args...); err != nil {
				return err
			}
			for _, isNew := range flags {
				if isNew {
					inserted++
				}
			}
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("count", len(rows)).Error("Failed to append customer interactions")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to append customer interactions")
	}
	return inserted, nil
}

// List returns the full interaction history ordered by date, type and pair.
func (r *Repository) List(ctx context.Context) ([]models.Interaction, error) {
	ctx, span := tracing.StartSpan(ctx, "interaction.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("customer_interactions")
	sb.OrderBy("interaction_date", "interaction_type", "customer_id_1", "customer_id_2")

	query, args := sb.Build()
	out := make([]models.Interaction, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list customer interactions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list customer interactions")
	}
	return out, nil
}
