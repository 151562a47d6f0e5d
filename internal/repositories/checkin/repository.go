package checkin

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

// List returns every attributed check-in in time order. Rows without a
// customer_id are skipped.
func (r *Repository) List(ctx context.Context) ([]models.CheckIn, error) {
	ctx, span := tracing.StartSpan(ctx, "checkin.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("checkin_id", "customer_id", "checkin_datetime", "location_name", "entry_method", "entry_method_description")
	sb.From("checkins")
	sb.Where(sb.IsNotNull("customer_id"))
	sb.OrderBy("checkin_datetime", "checkin_id")

	query, args := sb.Build()
	out := make([]models.CheckIn, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list check-ins")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list check-ins")
	}
	return out, nil
}
