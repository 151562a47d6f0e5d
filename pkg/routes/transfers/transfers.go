package transfers

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/transfers"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

type Lister interface {
	List(ctx context.Context) ([]models.Transfer, error)
}

type Handler struct {
	store Lister
}

func NewHandler(store Lister) *Handler {
	return &Handler{store: store}
}

// Register registers transfer routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/summary", h.Summary)
}

type summaryRequest struct {
	Top int `query:"top" validate:"gte=0,lte=100"`
}

type SummaryResponse struct {
	transfers.Summary
	TopSharers []transfers.Sharer `json:"top_sharers"`
}

// Summary returns totals over stored transfers and the top sharers.
func (h *Handler) Summary(c echo.Context) error {
	req := summaryRequest{Top: 10}
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	all, err := h.store.List(c.Request().Context())
	if err != nil {
		return err
	}

	top := transfers.TopSharers(all, req.Top)
	if top == nil {
		top = []transfers.Sharer{}
	}
	return c.JSON(http.StatusOK, SummaryResponse{Summary: transfers.Summarize(all), TopSharers: top})
}
