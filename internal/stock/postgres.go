package stock

import (
	"context"
	"database/sql"

	"github.com/storely/checkout/internal/domain"
)

type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Adjust applies the delta as a single conditional update, so the
// non-negative guard and the write are one atomic statement and no
// application-level read-modify-write window exists.
func (l *PostgresLedger) Adjust(ctx context.Context, unit domain.StockUnit, delta int) (int, error) {
	var available int
	err := l.db.QueryRowContext(ctx, `
		UPDATE stock_units
		SET available = available + $3, updated_at = NOW()
		WHERE product_id = $1 AND variant_id = $2 AND available + $3 >= 0
		RETURNING available
	`, unit.ProductID, unit.VariantID, delta).Scan(&available)
	if err == sql.ErrNoRows {
		// Guard failed or the unit does not exist; tell which.
		var exists bool
		checkErr := l.db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM stock_units WHERE product_id = $1 AND variant_id = $2
			)
		`, unit.ProductID, unit.VariantID).Scan(&exists)
		if checkErr != nil {
			return 0, checkErr
		}
		if !exists {
			return 0, domain.ErrProductNotFound
		}
		return 0, domain.ErrInsufficientStock
	}
	if err != nil {
		return 0, err
	}

	return available, nil
}

func (l *PostgresLedger) Get(ctx context.Context, unit domain.StockUnit) (*domain.StockLevel, error) {
	level := &domain.StockLevel{Unit: unit}

	err := l.db.QueryRowContext(ctx, `
		SELECT available
		FROM stock_units
		WHERE product_id = $1 AND variant_id = $2
	`, unit.ProductID, unit.VariantID).Scan(&level.Available)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return level, nil
}

func (l *PostgresLedger) List(ctx context.Context) ([]domain.StockLevel, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT product_id, variant_id, available
		FROM stock_units
		ORDER BY product_id, variant_id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var levels []domain.StockLevel
	for rows.Next() {
		var level domain.StockLevel
		if err := rows.Scan(&level.Unit.ProductID, &level.Unit.VariantID, &level.Available); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return levels, nil
}
