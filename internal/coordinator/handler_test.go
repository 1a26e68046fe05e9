package coordinator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shoplab/order-coordination-go/pkg/api"
	"github.com/shoplab/order-coordination-go/pkg/metrics"
)

// Registered once; the default prometheus registry rejects duplicates.
var testMetrics = metrics.NewServerMetrics("coordinator_test")

func postRoute(t *testing.T, users UserDirectory, inventory Inventory, req api.RouteRequest) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(users, inventory, zap.NewNop())
	r := chi.NewRouter()
	NewHandler(router, testMetrics).Register(r)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(req))
	httpReq := httptest.NewRequest(http.MethodPost, "/route", &buf)
	httpReq.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httpReq)
	return rec
}

func TestRouteEndpoint_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		users      fakeUsers
		inventory  fakeInventory
		req        api.RouteRequest
		wantCode   int
		wantStatus string
	}{
		{
			name:       "approved",
			users:      fakeUsers{exists: true},
			inventory:  fakeInventory{remaining: 8},
			req:        api.RouteRequest{UserID: 1, ProductID: 7, Quantity: 2},
			wantCode:   http.StatusOK,
			wantStatus: "Success",
		},
		{
			name:       "invalid",
			req:        api.RouteRequest{UserID: 1, ProductID: 7},
			wantCode:   http.StatusBadRequest,
			wantStatus: "Missing required fields",
		},
		{
			name:       "user missing",
			users:      fakeUsers{exists: false},
			req:        api.RouteRequest{UserID: 9, ProductID: 7, Quantity: 2},
			wantCode:   http.StatusNotFound,
			wantStatus: "User not found",
		},
		{
			name:       "product missing",
			users:      fakeUsers{exists: true},
			inventory:  fakeInventory{err: ErrProductNotFound},
			req:        api.RouteRequest{UserID: 1, ProductID: 99, Quantity: 2},
			wantCode:   http.StatusNotFound,
			wantStatus: "Product not found",
		},
		{
			name:       "stock exceeded",
			users:      fakeUsers{exists: true},
			inventory:  fakeInventory{err: ErrInsufficientStock},
			req:        api.RouteRequest{UserID: 1, ProductID: 7, Quantity: 50},
			wantCode:   http.StatusConflict,
			wantStatus: "QuantityExceeded",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postRoute(t, &tc.users, &tc.inventory, tc.req)
			require.Equal(t, tc.wantCode, rec.Code)
			var status api.StatusResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			require.Equal(t, tc.wantStatus, status.Status)
		})
	}
}
