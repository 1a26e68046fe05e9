package order

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoplab/order-coordination-go/pkg/api"
)

type PostgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	product_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	status TEXT NOT NULL,
	outcome TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS purchases (
	user_id INTEGER NOT NULL,
	product_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	PRIMARY KEY (user_id, product_id)
);
CREATE TABLE IF NOT EXISTS order_events (
	id BIGSERIAL PRIMARY KEY,
	event_id TEXT NOT NULL UNIQUE,
	order_id TEXT NOT NULL,
	type TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	sent_at TIMESTAMPTZ
);`

func (l *PostgresLedger) Migrate(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, ledgerSchema)
	return err
}

func (l *PostgresLedger) Record(ctx context.Context, o Order) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO orders(id, user_id, product_id, quantity, status) VALUES($1, $2, $3, $4, $5)`,
		o.ID, o.UserID, o.ProductID, o.Quantity, o.Status)
	return err
}

// Finalize runs the terminal transition, the accumulation upsert, and the
// event staging in one transaction.
func (l *PostgresLedger) Finalize(ctx context.Context, o Order, evt api.OrderEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE orders SET status=$2, outcome=$3, updated_at=now() WHERE id=$1`,
		o.ID, o.Status, o.Outcome)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if o.Status == StatusPlaced {
		_, err = tx.Exec(ctx,
			`INSERT INTO purchases(user_id, product_id, quantity) VALUES($1, $2, $3)
			 ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = purchases.quantity + EXCLUDED.quantity`,
			o.UserID, o.ProductID, o.Quantity)
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO order_events(event_id, order_id, type, payload) VALUES($1, $2, $3, $4)`,
		evt.EventID, o.ID, evt.Type, payload)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (l *PostgresLedger) Get(ctx context.Context, orderID string) (Order, error) {
	var o Order
	err := l.pool.QueryRow(ctx,
		`SELECT id, user_id, product_id, quantity, status, outcome, created_at, updated_at
		 FROM orders WHERE id=$1`, orderID,
	).Scan(&o.ID, &o.UserID, &o.ProductID, &o.Quantity, &o.Status, &o.Outcome, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (l *PostgresLedger) Purchases(ctx context.Context, userID int) (map[int]int, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT product_id, quantity FROM purchases WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var productID, qty int
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		out[productID] = qty
	}
	return out, rows.Err()
}

func (l *PostgresLedger) PendingEvents(ctx context.Context, limit int) ([]Event, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, event_id, order_id, type, payload, sent_at
		 FROM order_events WHERE sent_at IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.EventID, &e.OrderID, &e.Type, &e.Payload, &e.SentAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *PostgresLedger) MarkEventSent(ctx context.Context, id int64) error {
	_, err := l.pool.Exec(ctx, `UPDATE order_events SET sent_at=now() WHERE id=$1`, id)
	return err
}
