// Package product implements the inventory store: product records, their
// CRUD surface, and the one operation the coordinator depends on for
// correctness — an atomic conditional decrement of stock. Quantity never
// goes negative because the decrement checks and writes in a single step.
package product

import (
	"context"
	"errors"
)

type Product struct {
	ID          int
	Name        string
	Description string
	Price       float64
	Quantity    int
}

var (
	ErrNotFound          = errors.New("product not found")
	ErrDuplicateID       = errors.New("product id already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Store is the inventory persistence boundary.
//
// Deduct subtracts qty from the product's stock only if the remaining stock
// covers it, as one atomic step; it returns the stock left afterwards. Two
// concurrent deducts for the same product can never interleave between check
// and write.
type Store interface {
	Get(ctx context.Context, id int) (Product, error)
	Create(ctx context.Context, p Product) error
	Update(ctx context.Context, id int, name, description *string, price *float64, quantity *int) (Product, error)
	Delete(ctx context.Context, id int) error
	Deduct(ctx context.Context, id, qty int) (remaining int, err error)
}
