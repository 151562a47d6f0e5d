package relation

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

// List returns explicit relation records. A missing table yields database.ErrTableMissing.
func (r *Repository) List(ctx context.Context) ([]models.Relation, error) {
	ctx, span := tracing.StartSpan(ctx, "relation.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("customer_id", "related_customer_id", "relationship")
	sb.From("customer_relations")
	sb.OrderBy("customer_id", "related_customer_id")

	query, args := sb.Build()
	out := make([]models.Relation, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		if database.IsUndefinedTable(err) {
			return nil, database.ErrTableMissing
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list customer relations")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list customer relations")
	}
	return out, nil
}
