package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/storely/checkout/internal/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, order *domain.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var expiresAt sql.NullTime
	if order.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *order.ExpiresAt, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_id, total_amount, payment_method, status, payment_status,
			provider_order_ref, provider_payment_ref, provider_signature,
			addr_name, addr_mobile, addr_state, addr_city, addr_pincode, addr_full,
			expires_at, stock_released, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '', '', $8, $9, $10, $11, $12, $13, $14, FALSE, $15, $15)
	`, order.ID, order.CustomerID, order.TotalAmount, order.PaymentMethod,
		order.Status, order.PaymentStatus, order.ProviderOrderRef,
		order.Address.Name, order.Address.Mobile, order.Address.State,
		order.Address.City, order.Address.Pincode, order.Address.FullAddress,
		expiresAt, order.CreatedAt)
	if err != nil {
		return err
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, position, product_id, variant_id, variant_color,
				quantity, unit_price, line_total
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, order.ID, i, item.ProductID, item.VariantID, item.VariantColor,
			item.Quantity, item.UnitPrice, item.LineTotal)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

const orderColumns = `
	id, customer_id, total_amount, payment_method, status, payment_status,
	provider_order_ref, provider_payment_ref, provider_signature,
	addr_name, addr_mobile, addr_state, addr_city, addr_pincode, addr_full,
	expires_at, stock_released, created_at, updated_at
`

func (s *PostgresStore) scanOrder(row *sql.Row) (*domain.Order, error) {
	order := &domain.Order{}
	var expiresAt sql.NullTime

	err := row.Scan(
		&order.ID, &order.CustomerID, &order.TotalAmount, &order.PaymentMethod,
		&order.Status, &order.PaymentStatus,
		&order.ProviderOrderRef, &order.ProviderPaymentRef, &order.ProviderSignature,
		&order.Address.Name, &order.Address.Mobile, &order.Address.State,
		&order.Address.City, &order.Address.Pincode, &order.Address.FullAddress,
		&expiresAt, &order.StockReleased, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if expiresAt.Valid {
		t := expiresAt.Time
		order.ExpiresAt = &t
	}

	return order, nil
}

func (s *PostgresStore) loadItems(ctx context.Context, order *domain.Order) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, variant_id, variant_color, quantity, unit_price, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, order.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.VariantID, &item.VariantColor,
			&item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}

	return rows.Err()
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.scanOrder(s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil || order == nil {
		return nil, err
	}

	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PostgresStore) GetByProviderRef(ctx context.Context, providerOrderRef string) (*domain.Order, error) {
	if providerOrderRef == "" {
		return nil, nil
	}

	order, err := s.scanOrder(s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE provider_order_ref = $1`, providerOrderRef))
	if err != nil || order == nil {
		return nil, err
	}

	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns all orders, or one customer's orders when customerID is
// set, newest first.
func (s *PostgresStore) List(ctx context.Context, customerID string) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []any{}
	if customerID != "" {
		query += ` WHERE customer_id = $1`
		args = append(args, customerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		var expiresAt sql.NullTime
		if err := rows.Scan(
			&order.ID, &order.CustomerID, &order.TotalAmount, &order.PaymentMethod,
			&order.Status, &order.PaymentStatus,
			&order.ProviderOrderRef, &order.ProviderPaymentRef, &order.ProviderSignature,
			&order.Address.Name, &order.Address.Mobile, &order.Address.State,
			&order.Address.City, &order.Address.Pincode, &order.Address.FullAddress,
			&expiresAt, &order.StockReleased, &order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			order.ExpiresAt = &t
		}
		order.Items = []domain.LineItem{}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if err := s.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (s *PostgresStore) ConfirmPaid(ctx context.Context, id, providerPaymentRef, providerSignature string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, payment_status = $3,
			provider_payment_ref = $4, provider_signature = $5, updated_at = NOW()
		WHERE id = $1 AND payment_status = $6
	`, id, domain.OrderStatusConfirmed, domain.PaymentStatusPaid,
		providerPaymentRef, providerSignature, domain.PaymentStatusCreated)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *PostgresStore) CancelIfUnpaid(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1 AND payment_status = $4
	`, id, domain.OrderStatusCancelled, domain.PaymentStatusFailed, domain.PaymentStatusCreated)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ReleaseStock restores the held quantities and sets stock_released in a
// single transaction. The row lock on the order serializes the timer and
// the sweep worker: the first claimant does the release, later ones see
// the flag set and back off. Rolling back on any failure keeps the flag
// unset, so the sweep retries the whole release.
func (s *PostgresStore) ReleaseStock(ctx context.Context, id string, items []domain.LineItem) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var released bool
	err = tx.QueryRowContext(ctx,
		`SELECT stock_released FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&released)
	if err != nil {
		return false, err
	}
	if released {
		return false, nil
	}

	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		result, err := tx.ExecContext(ctx, `
			UPDATE stock_units
			SET available = available + $3, updated_at = NOW()
			WHERE product_id = $1 AND variant_id = $2
		`, item.ProductID, item.VariantID, item.Quantity)
		if err != nil {
			return false, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return false, err
		}
		if affected == 0 {
			return false, fmt.Errorf("stock unit %s not found", item.Unit().Key())
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET stock_released = TRUE, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return false, err
	}

	return true, tx.Commit()
}

func (s *PostgresStore) FindDue(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM orders
		WHERE (payment_status = $1 AND expires_at IS NOT NULL AND expires_at <= $2)
		   OR (status = $3 AND NOT stock_released)
		ORDER BY expires_at NULLS LAST
		LIMIT $4
	`, domain.PaymentStatusCreated, time.Now().UTC(), domain.OrderStatusCancelled, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
