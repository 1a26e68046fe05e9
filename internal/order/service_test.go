package order

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/shoplab/order-coordination-go/pkg/api"
)

func TestMain(m *testing.M) {
	// Idle keep-alive connections from the HTTP client tests linger briefly.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

type fakeRouter struct {
	outcome api.Outcome
	err     error
	calls   int
}

func (f *fakeRouter) Route(context.Context, int, int, int) (api.Outcome, error) {
	f.calls++
	return f.outcome, f.err
}

type fakeDirectory struct {
	exists bool
	err    error
}

func (f *fakeDirectory) Exists(context.Context, int) (bool, error) {
	return f.exists, f.err
}

func newTestService(router RouteClient) (*Service, *MemoryLedger) {
	ledger := NewMemoryLedger()
	return NewService(ledger, router, &fakeDirectory{exists: true}, zap.NewNop()), ledger
}

func TestPlaceOrder_Approved(t *testing.T) {
	svc, ledger := newTestService(&fakeRouter{outcome: api.OutcomeApproved})

	res := svc.PlaceOrder(context.Background(), 1, 7, 2)
	require.Equal(t, api.OutcomeApproved, res.Outcome)
	require.Equal(t, StatusPlaced, res.Order.Status)
	require.NotEmpty(t, res.Order.ID)

	stored, err := ledger.Get(context.Background(), res.Order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPlaced, stored.Status)
	require.Equal(t, api.OutcomeApproved, stored.Outcome)

	purchases, err := ledger.Purchases(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, map[int]int{7: 2}, purchases)
}

func TestPlaceOrder_RejectedStaysFailed(t *testing.T) {
	for _, outcome := range []api.Outcome{
		api.OutcomeUserNotFound,
		api.OutcomeProductNotFound,
		api.OutcomeQuantityExceeded,
	} {
		t.Run(string(outcome), func(t *testing.T) {
			svc, ledger := newTestService(&fakeRouter{outcome: outcome})

			res := svc.PlaceOrder(context.Background(), 1, 7, 2)
			require.Equal(t, outcome, res.Outcome)
			require.Equal(t, StatusFailed, res.Order.Status)

			// The failed attempt stays recorded but never accumulates.
			stored, err := ledger.Get(context.Background(), res.Order.ID)
			require.NoError(t, err)
			require.Equal(t, StatusFailed, stored.Status)

			purchases, err := ledger.Purchases(context.Background(), 1)
			require.NoError(t, err)
			require.Empty(t, purchases)
		})
	}
}

func TestPlaceOrder_CoordinatorUnreachable(t *testing.T) {
	svc, ledger := newTestService(&fakeRouter{err: errors.New("connection refused")})

	res := svc.PlaceOrder(context.Background(), 1, 7, 2)
	require.Equal(t, api.OutcomeInternalError, res.Outcome)
	require.Equal(t, StatusFailed, res.Order.Status)

	purchases, err := ledger.Purchases(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, purchases)
}

func TestPlaceOrder_InvalidIntentSkipsLedgerAndRouter(t *testing.T) {
	router := &fakeRouter{outcome: api.OutcomeApproved}
	svc, ledger := newTestService(router)

	for _, args := range [][3]int{{0, 7, 2}, {1, 0, 2}, {1, 7, 0}, {1, 7, -1}} {
		res := svc.PlaceOrder(context.Background(), args[0], args[1], args[2])
		require.Equal(t, api.OutcomeInvalidRequest, res.Outcome)
		require.Empty(t, res.Order.ID)
	}
	require.Zero(t, router.calls)

	purchases, err := ledger.Purchases(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, purchases)
}

func TestPlaceOrder_AccumulationAcrossOrders(t *testing.T) {
	svc, ledger := newTestService(&fakeRouter{outcome: api.OutcomeApproved})

	svc.PlaceOrder(context.Background(), 1, 7, 2)
	svc.PlaceOrder(context.Background(), 1, 7, 3)
	svc.PlaceOrder(context.Background(), 1, 9, 1)

	purchases, err := ledger.Purchases(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, map[int]int{7: 5, 9: 1}, purchases)

	// Reads do not mutate the accumulation.
	again, err := ledger.Purchases(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, purchases, again)
}

func TestPlaceOrder_StagesLifecycleEvents(t *testing.T) {
	ledger := NewMemoryLedger()
	dir := &fakeDirectory{exists: true}
	approving := NewService(ledger, &fakeRouter{outcome: api.OutcomeApproved}, dir, zap.NewNop())
	rejecting := NewService(ledger, &fakeRouter{outcome: api.OutcomeQuantityExceeded}, dir, zap.NewNop())

	placed := approving.PlaceOrder(context.Background(), 1, 7, 2)
	failed := rejecting.PlaceOrder(context.Background(), 1, 7, 50)

	events, err := ledger.PendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, api.EventOrderPlaced, events[0].Type)
	require.Equal(t, placed.Order.ID, events[0].OrderID)
	require.Equal(t, api.EventOrderFailed, events[1].Type)
	require.Equal(t, failed.Order.ID, events[1].OrderID)
	require.NotEmpty(t, events[0].EventID)
	require.NotEqual(t, events[0].EventID, events[1].EventID)
}

func TestGetPurchases(t *testing.T) {
	ledger := NewMemoryLedger()
	svc := NewService(ledger, &fakeRouter{outcome: api.OutcomeApproved}, &fakeDirectory{exists: true}, zap.NewNop())
	svc.PlaceOrder(context.Background(), 1, 7, 2)

	purchases, outcome := svc.GetPurchases(context.Background(), 1)
	require.Equal(t, api.OutcomeApproved, outcome)
	require.Equal(t, map[int]int{7: 2}, purchases)
}

func TestGetPurchases_UnknownUser(t *testing.T) {
	svc := NewService(NewMemoryLedger(), &fakeRouter{}, &fakeDirectory{exists: false}, zap.NewNop())
	_, outcome := svc.GetPurchases(context.Background(), 42)
	require.Equal(t, api.OutcomeUserNotFound, outcome)
}

func TestGetPurchases_DirectoryUnreachable(t *testing.T) {
	svc := NewService(NewMemoryLedger(), &fakeRouter{}, &fakeDirectory{err: errors.New("timeout")}, zap.NewNop())
	_, outcome := svc.GetPurchases(context.Background(), 1)
	require.Equal(t, api.OutcomeInternalError, outcome)
}
