package message

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

// ListInbound returns inbound messages. A missing table yields database.ErrTableMissing.
func (r *Repository) ListInbound(ctx context.Context) ([]models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.ListInbound")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("message_id", "direction", "from_number", "to_number", "body", "sent_at")
	sb.From("messages")
	sb.Where(sb.Equal("direction", string(models.MessageInbound)))
	sb.OrderBy("sent_at")

	query, args := sb.Build()
	out := make([]models.Message, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		if database.IsUndefinedTable(err) {
			return nil, database.ErrTableMissing
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list messages")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list messages")
	}
	return out, nil
}
