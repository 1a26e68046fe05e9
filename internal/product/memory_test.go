package product

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func seedStore(t *testing.T, id, quantity int) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, s.Create(context.Background(), Product{
		ID:          id,
		Name:        "widget",
		Description: "a widget",
		Price:       4.99,
		Quantity:    quantity,
	}))
	return s
}

func TestMemoryStore_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t, 1, 10)

	p, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "widget", p.Name)
	require.Equal(t, 10, p.Quantity)

	require.ErrorIs(t, s.Create(ctx, Product{ID: 1}), ErrDuplicateID)

	_, err = s.Get(ctx, 2)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, 1))
	require.ErrorIs(t, s.Delete(ctx, 1), ErrNotFound)
}

func TestMemoryStore_PartialUpdate(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t, 1, 10)

	price := 7.50
	p, err := s.Update(ctx, 1, nil, nil, &price, nil)
	require.NoError(t, err)
	require.Equal(t, 7.50, p.Price)
	require.Equal(t, "widget", p.Name)
	require.Equal(t, 10, p.Quantity)

	_, err = s.Update(ctx, 99, nil, nil, &price, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Deduct(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t, 1, 10)

	remaining, err := s.Deduct(ctx, 1, 3)
	require.NoError(t, err)
	require.Equal(t, 7, remaining)

	// Exact-stock deducts drain it to zero.
	remaining, err = s.Deduct(ctx, 1, 7)
	require.NoError(t, err)
	require.Equal(t, 0, remaining)

	_, err = s.Deduct(ctx, 1, 1)
	require.ErrorIs(t, err, ErrInsufficientStock)

	// A rejected deduct leaves stock untouched.
	p, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0, p.Quantity)

	_, err = s.Deduct(ctx, 2, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeductConcurrentNeverOversells(t *testing.T) {
	ctx := context.Background()
	const stock = 100
	const attempts = 200
	s := seedStore(t, 1, stock)

	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.Deduct(ctx, 1, 1)
		}(i)
	}
	wg.Wait()

	approved, rejected := 0, 0
	for _, err := range results {
		if err == nil {
			approved++
		} else {
			require.ErrorIs(t, err, ErrInsufficientStock)
			rejected++
		}
	}
	require.Equal(t, stock, approved)
	require.Equal(t, attempts-stock, rejected)
	p, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0, p.Quantity)
}

func TestMemoryStore_DeductConcurrentContendedQuantity(t *testing.T) {
	// Two deducts of 3 against stock 5: exactly one can win.
	ctx := context.Background()
	s := seedStore(t, 1, 5)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.Deduct(ctx, 1, 3)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrInsufficientStock)
		}
	}
	require.Equal(t, 1, wins)
	p, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, p.Quantity)
}
