package transaction

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// List returns the payment log. A missing table yields database.ErrTableMissing.
func (r *Repository) List(ctx context.Context) ([]models.Transaction, error) {
	ctx, span := tracing.StartSpan(ctx, "transaction.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("transaction_id", "customer_id", "date", "description", "amount")
	sb.From("transactions")
	sb.OrderBy("date").Desc()

	query, args := sb.Build()
	out := make([]models.Transaction, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		if database.IsUndefinedTable(err) {
			return nil, database.ErrTableMissing
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list transactions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list transactions")
	}
	return out, nil
}
