package order

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shoplab/order-coordination-go/pkg/api"
	"github.com/shoplab/order-coordination-go/pkg/httpx"
)

func startCoordinatorStub(t *testing.T, code int, status string) *HTTPRouteClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteStatus(w, code, status)
	}))
	t.Cleanup(srv.Close)
	return NewHTTPRouteClient(srv.URL, time.Second)
}

func TestHTTPRouteClient_OutcomeMapping(t *testing.T) {
	cases := []struct {
		name   string
		code   int
		status string
		want   api.Outcome
	}{
		{"approved", http.StatusOK, "Success", api.OutcomeApproved},
		{"invalid", http.StatusBadRequest, "Missing required fields", api.OutcomeInvalidRequest},
		{"exceeded", http.StatusConflict, "QuantityExceeded", api.OutcomeQuantityExceeded},
		// Both misses travel as 404; the body tells them apart.
		{"user missing", http.StatusNotFound, "User not found", api.OutcomeUserNotFound},
		{"product missing", http.StatusNotFound, "Product not found", api.OutcomeProductNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := startCoordinatorStub(t, tc.code, tc.status)
			outcome, err := c.Route(context.Background(), 1, 7, 2)
			require.NoError(t, err)
			require.Equal(t, tc.want, outcome)
		})
	}
}

func TestHTTPRouteClient_ServerFault(t *testing.T) {
	c := startCoordinatorStub(t, http.StatusInternalServerError, "Internal Error")
	outcome, err := c.Route(context.Background(), 1, 7, 2)
	require.Error(t, err)
	require.Equal(t, api.OutcomeInternalError, outcome)
}

func TestHTTPRouteClient_Unreachable(t *testing.T) {
	c := NewHTTPRouteClient("http://127.0.0.1:1", 200*time.Millisecond)
	outcome, err := c.Route(context.Background(), 1, 7, 2)
	require.Error(t, err)
	require.Equal(t, api.OutcomeInternalError, outcome)
}
