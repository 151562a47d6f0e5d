package customer

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var columns = []string{"customer_id", "first_name", "last_name", "email", "phone", "birthdate", "created_at"}

// Repository reads the upstream customer roster.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// List returns every customer ordered by id.
func (r *Repository) List(ctx context.Context) ([]models.Customer, error) {
	ctx, span := tracing.StartSpan(ctx, "customer.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("customers")
	sb.OrderBy("customer_id")

	query, args := sb.Build()
	out := make([]models.Customer, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list customers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list customers")
	}
	return out, nil
}

// Get returns one customer, or nil when the id is unknown.
func (r *Repository) Get(ctx context.Context, id int64) (*models.Customer, error) {
	ctx, span := tracing.StartSpan(ctx, "customer.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("customers")
	sb.Where(sb.Equal("customer_id", id))

	query, args := sb.Build()
	var out models.Customer
	if err := r.db.GetContext(ctx, &out, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("customer_id", id).Error("Failed to get customer")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get customer")
	}
	return &out, nil
}
