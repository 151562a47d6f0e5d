package flags

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/fern/internal/repositories/flag"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

type HistoryStore interface {
	History(ctx context.Context, filter flag.HistoryFilter) ([]models.FlagHistoryEntry, error)
}

type Handler struct {
	store HistoryStore
}

func NewHandler(store HistoryStore) *Handler {
	return &Handler{store: store}
}

// Register registers flag routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/:flag/history", h.History)
}

type historyRequest struct {
	Flag       string `param:"flag" validate:"required"`
	CustomerID int64  `query:"customer_id" validate:"gte=0"`
}

type HistoryResponse struct {
	FlagName string                    `json:"flag_name"`
	Entries  []models.FlagHistoryEntry `json:"entries"`
}

// History returns a flag's set and clear events in recorded order.
func (h *Handler) History(c echo.Context) error {
	var req historyRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	entries, err := h.store.History(c.Request().Context(), flag.HistoryFilter{FlagName: req.Flag, CustomerID: req.CustomerID})
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []models.FlagHistoryEntry{}
	}
	return c.JSON(http.StatusOK, HistoryResponse{FlagName: req.Flag, Entries: entries})
}
