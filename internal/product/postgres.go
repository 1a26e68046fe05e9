package product

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const createProductsTable = `CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity >= 0)
)`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, createProductsTable)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id int) (Product, error) {
	var p Product
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, price, quantity FROM products WHERE id=$1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *PostgresStore) Create(ctx context.Context, p Product) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO products(id, name, description, price, quantity) VALUES($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.Description, p.Price, p.Quantity)
	if isUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

func (s *PostgresStore) Update(ctx context.Context, id int, name, description *string, price *float64, quantity *int) (Product, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			price = COALESCE($4, price),
			quantity = COALESCE($5, quantity)
		WHERE id=$1`,
		id, name, description, price, quantity)
	if err != nil {
		return Product{}, err
	}
	if tag.RowsAffected() == 0 {
		return Product{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) Delete(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deduct pushes the check and the write into one statement; the WHERE clause
// guard makes concurrent deducts of the same product serialize on the row.
func (s *PostgresStore) Deduct(ctx context.Context, id, qty int) (int, error) {
	var remaining int
	err := s.pool.QueryRow(ctx,
		`UPDATE products SET quantity = quantity - $2
		 WHERE id=$1 AND quantity >= $2
		 RETURNING quantity`,
		id, qty).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		// Row untouched: either the product is missing or stock ran short.
		if _, gerr := s.Get(ctx, id); errors.Is(gerr, ErrNotFound) {
			return 0, ErrNotFound
		} else if gerr != nil {
			return 0, gerr
		}
		return 0, ErrInsufficientStock
	}
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
