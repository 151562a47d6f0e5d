package transfer

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const batchSize = 500

var columns = []string{
	"checkin_id",
	"checkin_datetime",
	"transfer_type",
	"pass_type",
	"purchaser_name",
	"user_customer_id",
	"remaining_count",
	"is_punch_pass",
	"is_youth_pass",
	"location_name",
	"purchaser_customer_id",
	"match_method",
	"match_confidence",
}

// the stored resolution is replaced only by one at least as confident
const keepBest = "pass_transfers.match_confidence <= EXCLUDED.match_confidence"

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Upsert writes transfers keyed by checkin_id and returns the rows written.
func (r *Repository) Upsert(ctx context.Context, transfers []models.Transfer) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "transfer.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	var written int64
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		for _, batch := range database.Chunk(transfers, batchSize) {
			ib := database.NewInsertBuilder("pass_transfers", append(columns, "updated_at")...)
			for _, t := range batch {
				ib.Values(
					t.CheckInID,
					t.CheckedInAt,
					t.TransferType,
					t.PassType,
					t.PurchaserName,
					t.UserCustomerID,
					t.RemainingCount,
					t.IsPunchPass,
					t.IsYouthPass,
					t.Location,
					t.PurchaserCustomerID,
					t.MatchMethod,
					t.MatchConfidence,
					now,
				)
			}
			ib.OnConflictUpdate([]string{"checkin_id"}, append(columns[1:], "updated_at"), keepBest)

			query, args := ib.Build()
			result, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return err
			}
			n, _ := result.RowsAffected()
			written += n
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("count", len(transfers)).Error("Failed to upsert pass transfers")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert pass transfers")
	}
	return written, nil
}

// List returns every stored transfer ordered by check-in time.
func (r *Repository) List(ctx context.Context) ([]models.Transfer, error) {
	ctx, span := tracing.StartSpan(ctx, "transfer.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("pass_transfers")
	sb.OrderBy("checkin_datetime", "checkin_id")

	query, args := sb.Build()
	out := make([]models.Transfer, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pass transfers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pass transfers")
	}
	return out, nil
}
