package familylink

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var columns = []string{"parent_customer_id", "child_customer_id", "relationship_type", "confidence", "source"}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Rebuild replaces every family link in one transaction.
func (r *Repository) Rebuild(ctx context.Context, links []models.FamilyLink) error {
	ctx, span := tracing.StartSpan(ctx, "familylink.Repository.Rebuild")
	defer span.End()

	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		del := database.NewDeleteBuilder()
		del.DeleteFrom("family_relationships")
		query, args := del.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		for _, batch := range database.Chunk(links, 1000) {
			ib := database.NewInsertBuilder("family_relationships", columns...)
			for _, l := range batch {
				ib.Values(l.ParentCustomerID, l.ChildCustomerID, l.RelationshipType, l.Confidence, l.Source)
			}
			query, args := ib.Build()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("count", len(links)).Error("Failed to rebuild family relationships")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to rebuild family relationships")
	}
	return nil
}

// ForCustomer returns links where id is the parent or the child.
func (r *Repository) ForCustomer(ctx context.Context, id int64) ([]models.FamilyLink, error) {
	ctx, span := tracing.StartSpan(ctx, "familylink.Repository.ForCustomer")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("family_relationships")
	sb.Where(sb.Or(sb.Equal("parent_customer_id", id), sb.Equal("child_customer_id", id)))
	sb.OrderBy("parent_customer_id", "child_customer_id")

	query, args := sb.Build()
	out := make([]models.FamilyLink, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("customer_id", id).Error("Failed to list family relationships")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list family relationships")
	}
	return out, nil
}

// List returns every family link.
func (r *Repository) List(ctx context.Context) ([]models.FamilyLink, error) {
	ctx, span := tracing.StartSpan(ctx, "familylink.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("family_relationships")
	sb.OrderBy("parent_customer_id", "child_customer_id")

	query, args := sb.Build()
	out := make([]models.FamilyLink, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list family relationships")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list family relationships")
	}
	return out, nil
}
