package customers

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

type CustomerStore interface {
	Get(ctx context.Context, id int64) (*models.Customer, error)
}

type ConnectionStore interface {
	ForCustomer(ctx context.Context, id int64, minStrength int) ([]models.Connection, error)
}

type FamilyStore interface {
	ForCustomer(ctx context.Context, id int64) ([]models.FamilyLink, error)
}

type FlagStore interface {
	Current(ctx context.Context, customerID int64) ([]models.CustomerFlag, error)
}

type Handler struct {
	customers   CustomerStore
	connections ConnectionStore
	family      FamilyStore
	flags       FlagStore
}

func NewHandler(customers CustomerStore, connections ConnectionStore, family FamilyStore, flags FlagStore) *Handler {
	return &Handler{customers: customers, connections: connections, family: family, flags: flags}
}

// Register registers customer routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/:id/connections", h.Connections)
	g.GET("/:id/family", h.Family)
	g.GET("/:id/flags", h.Flags)
}

type customerRequest struct {
	ID int64 `param:"id" validate:"required,gt=0"`
}

type connectionsRequest struct {
	ID          int64 `param:"id" validate:"required,gt=0"`
	MinStrength int   `query:"min_strength" validate:"gte=0,lte=5"`
}

type ConnectionView struct {
	CustomerID       int64    `json:"customer_id"`
	Name             string   `json:"name"`
	StrengthScore    int      `json:"strength_score"`
	InteractionCount int      `json:"interaction_count"`
	InteractionTypes []string `json:"interaction_types"`
	FirstInteraction string   `json:"first_interaction_date"`
	LastInteraction  string   `json:"last_interaction_date"`
}

type ConnectionsResponse struct {
	Customer    models.Customer  `json:"customer"`
	Connections []ConnectionView `json:"connections"`
}

type FamilyResponse struct {
	Customer models.Customer     `json:"customer"`
	Parents  []models.FamilyLink `json:"parents"`
	Children []models.FamilyLink `json:"children"`
}

type FlagsResponse struct {
	Customer models.Customer       `json:"customer"`
	Flags    []models.CustomerFlag `json:"flags"`
}

// Connections lists the customer's connections, strongest first.
func (h *Handler) Connections(c echo.Context) error {
	var req connectionsRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	customer, err := h.lookup(ctx, req.ID)
	if err != nil {
		return err
	}

	conns, err := h.connections.ForCustomer(ctx, req.ID, req.MinStrength)
	if err != nil {
		return err
	}

	views := make([]ConnectionView, 0, len(conns))
	for _, conn := range conns {
		other := conn.Other(req.ID)
		view := ConnectionView{
			CustomerID:       other,
			StrengthScore:    conn.StrengthScore,
			InteractionCount: conn.InteractionCount,
			InteractionTypes: conn.InteractionTypes,
			FirstInteraction: conn.FirstInteractionDate.Format("2006-01-02"),
			LastInteraction:  conn.LastInteractionDate.Format("2006-01-02"),
		}
		if o, err := h.customers.Get(ctx, other); err == nil && o != nil {
			view.Name = o.FullName()
		}
		views = append(views, view)
	}

	return c.JSON(http.StatusOK, ConnectionsResponse{Customer: *customer, Connections: views})
}

// Family splits the customer's links into parents and children.
func (h *Handler) Family(c echo.Context) error {
	id, err := bindCustomer(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	customer, err := h.lookup(ctx, id)
	if err != nil {
		return err
	}

	links, err := h.family.ForCustomer(ctx, id)
	if err != nil {
		return err
	}

	resp := FamilyResponse{Customer: *customer, Parents: []models.FamilyLink{}, Children: []models.FamilyLink{}}
	for _, l := range links {
		if l.ChildCustomerID == id {
			resp.Parents = append(resp.Parents, l)
		} else {
			resp.Children = append(resp.Children, l)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Flags returns the flags currently set on the customer.
func (h *Handler) Flags(c echo.Context) error {
	id, err := bindCustomer(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	customer, err := h.lookup(ctx, id)
	if err != nil {
		return err
	}

	set, err := h.flags.Current(ctx, id)
	if err != nil {
		return err
	}
	if set == nil {
		set = []models.CustomerFlag{}
	}
	return c.JSON(http.StatusOK, FlagsResponse{Customer: *customer, Flags: set})
}

func bindCustomer(c echo.Context) (int64, error) {
	var req customerRequest
	if err := c.Bind(&req); err != nil {
		return 0, httperror.NewHTTPError(http.StatusBadRequest, "invalid customer id")
	}
	if err := validate.Struct(req); err != nil {
		return 0, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return req.ID, nil
}

func (h *Handler) lookup(ctx context.Context, id int64) (*models.Customer, error) {
	customer, err := h.customers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "customer not found")
	}
	return customer, nil
}
