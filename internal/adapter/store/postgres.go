package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/example/btcpay-storefront/internal/domain"
)

// PostgresOrderStore is the durable OrderStore backend. Transitions are
// conditional UPDATEs, so the compare-and-set happens inside the database;
// the unique index on invoice_id doubles as the invoice→order lookup.
type PostgresOrderStore struct {
	Pool *pgxpool.Pool
}

func NewPostgresOrderStore(pool *pgxpool.Pool) *PostgresOrderStore {
	return &PostgresOrderStore{Pool: pool}
}

// EnsureSchema — create the required tables if absent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS orders (
  id uuid PRIMARY KEY,
  status text NOT NULL,
  amount numeric NOT NULL,
  currency text NOT NULL,
  items jsonb NOT NULL,
  customer jsonb NOT NULL,
  invoice_id text UNIQUE,
  created_at timestamptz NOT NULL
);`)
	return err
}

func (s *PostgresOrderStore) Create(ctx context.Context, o domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	cust, err := json.Marshal(o.Customer)
	if err != nil {
		return fmt.Errorf("marshal customer: %w", err)
	}

	_, err = s.Pool.Exec(ctx, `INSERT INTO orders(id, status, amount, currency, items, customer, invoice_id, created_at)
        VALUES($1, $2, $3, $4, $5, $6, NULL, $7)`,
		o.ID, string(o.Status), o.Amount.String(), o.Currency.String(), items, cust, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

const selectOrder = `SELECT id, status, amount::text, currency, items, customer, invoice_id, created_at FROM orders`

func (s *PostgresOrderStore) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return s.scanOne(s.Pool.QueryRow(ctx, selectOrder+` WHERE id = $1`, id))
}

func (s *PostgresOrderStore) FindByInvoice(ctx context.Context, invoiceID string) (domain.Order, error) {
	return s.scanOne(s.Pool.QueryRow(ctx, selectOrder+` WHERE invoice_id = $1`, invoiceID))
}

func (s *PostgresOrderStore) BindInvoice(ctx context.Context, id uuid.UUID, invoiceID string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE orders SET invoice_id = $2, status = $3
        WHERE id = $1 AND status = $4 AND invoice_id IS NULL`,
		id, invoiceID, string(domain.StatusPendingPayment), string(domain.StatusCreated))
	if err != nil {
		return fmt.Errorf("bind invoice: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing updated: distinguish a missing order from a lost bind race.
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return domain.ErrAlreadyBound
}

func (s *PostgresOrderStore) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from []domain.OrderStatus, next domain.OrderStatus) (bool, error) {
	expected := lo.Map(from, func(st domain.OrderStatus, _ int) string { return string(st) })

	tag, err := s.Pool.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1 AND status = ANY($3)`,
		id, string(next), expected)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresOrderStore) scanOne(row pgx.Row) (domain.Order, error) {
	var (
		o         domain.Order
		status    string
		amount    string
		cur       string
		items     []byte
		cust      []byte
		invoiceID *string
	)

	err := row.Scan(&o.ID, &status, &amount, &cur, &items, &cust, &invoiceID, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return o, domain.ErrNotFound
		}
		return o, fmt.Errorf("scan order: %w", err)
	}

	o.Status, err = domain.ToOrderStatus(status)
	if err != nil {
		return o, fmt.Errorf("status[%s]: %w", status, err)
	}

	o.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return o, fmt.Errorf("amount[%s]: %w", amount, err)
	}

	o.Currency, err = currency.ParseISO(cur)
	if err != nil {
		return o, fmt.Errorf("currency[%s] is not valid: %w", cur, err)
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(cust, &o.Customer); err != nil {
		return o, fmt.Errorf("unmarshal customer: %w", err)
	}

	o.InvoiceID = lo.FromPtr(invoiceID)
	return o, nil
}

var _ domain.OrderStore = (*PostgresOrderStore)(nil)
