package flag

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var (
	flagColumns    = []string{"customer_id", "flag_name", "flagged_at", "criteria_met"}
	historyColumns = []string{"entry_id", "customer_id", "flag_name", "action", "timestamp"}
)

// Repository owns customer_flags and customer_flag_history.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// ApplyFlagChange appends the history entry and updates the current state in
// one transaction: a set upserts the flag row, a clear deletes it.
func (r *Repository) ApplyFlagChange(ctx context.Context, entry models.FlagHistoryEntry) error {
	ctx, span := tracing.StartSpan(ctx, "flag.Repository.ApplyFlagChange")
	defer span.End()

	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		hb := database.NewInsertBuilder("customer_flag_history", historyColumns...)
		hb.Values(entry.ID, entry.CustomerID, entry.FlagName, entry.Action, entry.Timestamp)
		query, args := hb.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		switch entry.Action {
		case models.FlagActionSet:
			ib := database.NewInsertBuilder("customer_flags", flagColumns...)
			ib.Values(entry.CustomerID, entry.FlagName, entry.Timestamp, true)
			ib.OnConflictUpdate([]string{"customer_id", "flag_name"}, []string{"flagged_at", "criteria_met"}, "")
			query, args = ib.Build()
		default:
			del := database.NewDeleteBuilder()
			del.DeleteFrom("customer_flags")
			del.Where(del.Equal("customer_id", entry.CustomerID), del.Equal("flag_name", entry.FlagName))
			query, args = del.Build()
		}
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"customer_id": entry.CustomerID,
			"flag_name":   entry.FlagName,
			"action":      entry.Action,
		}).Error("Failed to apply flag change")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to apply flag change")
	}
	return nil
}

// Current returns every set flag. A customerID of zero lists all customers.
func (r *Repository) Current(ctx context.Context, customerID int64) ([]models.CustomerFlag, error) {
	ctx, span := tracing.StartSpan(ctx, "flag.Repository.Current")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(flagColumns...)
	sb.From("customer_flags")
	if customerID != 0 {
		sb.Where(sb.Equal("customer_id", customerID))
	}
	sb.OrderBy("flag_name", "customer_id")

	query, args := sb.Build()
	out := make([]models.CustomerFlag, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list customer flags")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list customer flags")
	}
	return out, nil
}

// HistoryFilter narrows History. Empty fields match everything.
type HistoryFilter struct {
	FlagName   string
	CustomerID int64
}

// History returns entries in the order they were recorded.
func (r *Repository) History(ctx context.Context, filter HistoryFilter) ([]models.FlagHistoryEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "flag.Repository.History")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(historyColumns...)
	sb.From("customer_flag_history")
	if filter.FlagName != "" {
		sb.Where(sb.Equal("flag_name", filter.FlagName))
	}
	if filter.CustomerID != 0 {
		sb.Where(sb.Equal("customer_id", filter.CustomerID))
	}
	sb.OrderBy("timestamp", "entry_id")

	query, args := sb.Build()
	out := make([]models.FlagHistoryEntry, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"flag_name":   filter.FlagName,
			"customer_id": filter.CustomerID,
		}).Error("Failed to list flag history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list flag history")
	}
	return out, nil
}
