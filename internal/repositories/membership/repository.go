package membership

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

// Rosters reads memberships and their members in one snapshot. Either table
// missing yields database.ErrTableMissing.
func (r *Repository) Rosters(ctx context.Context) ([]models.Roster, error) {
	ctx, span := tracing.StartSpan(ctx, "membership.Repository.Rosters")
	defer span.End()

	var rosters []models.Roster
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		ms := database.NewSelectBuilder()
		ms.Select("membership_id", "name", "size", "status", "owner_id", "owner_email", "start_date", "end_date")
		ms.From("memberships")
		ms.OrderBy("membership_id")
		query, args := ms.Build()

		memberships := make([]models.Membership, 0)
		if err := tx.SelectContext(ctx, &memberships, query, args...); err != nil {
			return err
		}

		mm := database.NewSelectBuilder()
		mm.Select("membership_id", "member_id", "customer_id", "start_date")
		mm.From("membership_members")
		mm.OrderBy("membership_id", "member_id")
		query, args = mm.Build()

		members := make([]models.MembershipMember, 0)
		if err := tx.SelectContext(ctx, &members, query, args...); err != nil {
			return err
		}

		rosters = Assemble(memberships, members)
		return nil
	})
	if err != nil {
		if database.IsUndefinedTable(err) {
			return nil, database.ErrTableMissing
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to read membership rosters")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to read membership rosters")
	}
	return rosters, nil
}

// Assemble attaches members to their membership, keeping membership order.
// Members of unknown memberships are dropped.
func Assemble(memberships []models.Membership, members []models.MembershipMember) []models.Roster {
	byID := make(map[int64][]models.MembershipMember, len(memberships))
	for _, m := range members {
		byID[m.MembershipID] = append(byID[m.MembershipID], m)
	}
	rosters := make([]models.Roster, 0, len(memberships))
	for _, m := range memberships {
		rosters = append(rosters, models.Roster{Membership: m, Members: byID[m.ID]})
	}
	return rosters
}
