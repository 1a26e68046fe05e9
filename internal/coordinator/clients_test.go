package coordinator

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shoplab/order-coordination-go/internal/product"
	"github.com/shoplab/order-coordination-go/internal/user"
	"github.com/shoplab/order-coordination-go/pkg/api"
)

func startUserService(t *testing.T, users ...user.User) *httptest.Server {
	t.Helper()
	store := user.NewMemoryStore()
	for _, u := range users {
		require.NoError(t, store.Create(context.Background(), u))
	}
	r := chi.NewRouter()
	user.NewHandler(store, zap.NewNop()).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func startProductService(t *testing.T, products ...product.Product) (*httptest.Server, *product.MemoryStore) {
	t.Helper()
	store := product.NewMemoryStore()
	for _, p := range products {
		require.NoError(t, store.Create(context.Background(), p))
	}
	r := chi.NewRouter()
	product.NewHandler(store, zap.NewNop()).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestUserClient_Exists(t *testing.T) {
	srv := startUserService(t, user.User{ID: 1, Username: "alice", Email: "a@example.com", PasswordHash: user.HashPassword("x")})
	c := NewUserClient(srv.URL, time.Second)

	ok, err := c.Exists(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.Exists(context.Background(), 2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInventoryClient_Deduct(t *testing.T) {
	srv, _ := startProductService(t, product.Product{ID: 7, Name: "widget", Description: "w", Price: 1, Quantity: 10})
	c := NewInventoryClient(srv.URL, time.Second)

	remaining, err := c.Deduct(context.Background(), 7, 4)
	require.NoError(t, err)
	require.Equal(t, 6, remaining)

	_, err = c.Deduct(context.Background(), 7, 7)
	require.ErrorIs(t, err, ErrInsufficientStock)

	_, err = c.Deduct(context.Background(), 99, 1)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestRoute_EndToEnd(t *testing.T) {
	userSrv := startUserService(t, user.User{ID: 1, Username: "alice", Email: "a@example.com", PasswordHash: user.HashPassword("x")})
	productSrv, store := startProductService(t, product.Product{ID: 7, Name: "widget", Description: "w", Price: 1, Quantity: 10})

	r := NewRouter(
		NewUserClient(userSrv.URL, time.Second),
		NewInventoryClient(productSrv.URL, time.Second),
		zap.NewNop(),
	)

	require.Equal(t, api.OutcomeApproved, r.Route(context.Background(), 1, 7, 2))
	p, err := store.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 8, p.Quantity)

	// A rejected route never touches stock.
	require.Equal(t, api.OutcomeUserNotFound, r.Route(context.Background(), 2, 7, 2))
	require.Equal(t, api.OutcomeProductNotFound, r.Route(context.Background(), 1, 99, 2))
	require.Equal(t, api.OutcomeQuantityExceeded, r.Route(context.Background(), 1, 7, 9))
	p, err = store.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 8, p.Quantity)
}

func TestRoute_ConcurrentApprovalsBoundedByStock(t *testing.T) {
	const stock = 25
	const attempts = 60

	userSrv := startUserService(t, user.User{ID: 1, Username: "alice", Email: "a@example.com", PasswordHash: user.HashPassword("x")})
	productSrv, store := startProductService(t, product.Product{ID: 7, Name: "widget", Description: "w", Price: 1, Quantity: stock})

	r := NewRouter(
		NewUserClient(userSrv.URL, 5*time.Second),
		NewInventoryClient(productSrv.URL, 5*time.Second),
		zap.NewNop(),
	)

	var wg sync.WaitGroup
	outcomes := make([]api.Outcome, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = r.Route(context.Background(), 1, 7, 1)
		}(i)
	}
	wg.Wait()

	approved, rejected := 0, 0
	for _, o := range outcomes {
		switch o {
		case api.OutcomeApproved:
			approved++
		case api.OutcomeQuantityExceeded:
			rejected++
		default:
			t.Fatalf("unexpected outcome %s", o)
		}
	}
	require.Equal(t, stock, approved)
	require.Equal(t, attempts-stock, rejected)

	p, err := store.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 0, p.Quantity)
}
