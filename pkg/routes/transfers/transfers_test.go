package transfers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lister []models.Transfer

func (l lister) List(context.Context) ([]models.Transfer, error) { return l, nil }

func newServer(l lister) *echo.Echo {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	NewHandler(l).Register(e.Group("/api/v1/transfers"))
	return e
}

func TestSummary(t *testing.T) {
	at := time.Date(2025, 8, 14, 17, 30, 0, 0, time.UTC)
	purchaser := int64(1)
	e := newServer(lister{
		{CheckInID: 1, CheckedInAt: at, TransferType: models.TransferTypeEntryPass, PurchaserName: "Nancy Davis", UserCustomerID: 2, IsPunchPass: true, PurchaserCustomerID: &purchaser},
		{CheckInID: 2, CheckedInAt: at.Add(time.Hour), TransferType: models.TransferTypeGuestPass, PurchaserName: "Nancy Davis", UserCustomerID: 3},
		{CheckInID: 3, CheckedInAt: at.Add(2 * time.Hour), TransferType: models.TransferTypeEntryPass, PurchaserName: "Sam Lee", UserCustomerID: 4},
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/transfers/summary?top=1", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.TotalTransfers)
	assert.Equal(t, 1, resp.GuestPassTransfers)
	assert.Equal(t, 1, resp.MatchedTransfers)
	assert.Equal(t, 2, resp.UniquePurchasers)
	require.Len(t, resp.TopSharers, 1)
	assert.Equal(t, "Nancy Davis", resp.TopSharers[0].PurchaserName)
	assert.Equal(t, 2, resp.TopSharers[0].ShareCount)
}

func TestSummary_Empty(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/transfers/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"top_sharers":[]`)
	assert.Contains(t, rec.Body.String(), `"total_transfers":0`)
}

func TestSummary_BadTop(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/transfers/summary?top=500", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
