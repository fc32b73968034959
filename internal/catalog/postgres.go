package catalog

import (
	"context"
	"database/sql"

	"github.com/storely/checkout/internal/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ResolveUnit(ctx context.Context, productID, variantID string) (PricedUnit, error) {
	var product Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, base_price, offer_price
		FROM products
		WHERE id = $1 AND is_active
	`, productID).Scan(&product.ID, &product.Name, &product.BasePrice, &product.OfferPrice)
	if err != nil {
		if err == sql.ErrNoRows {
			return PricedUnit{}, domain.ErrProductNotFound
		}
		return PricedUnit{}, err
	}

	if variantID == "" {
		return resolve(&product, nil), nil
	}

	var variant Variant
	err = r.db.QueryRowContext(ctx, `
		SELECT id, product_id, color, price
		FROM product_variants
		WHERE id = $1 AND product_id = $2
	`, variantID, productID).Scan(&variant.ID, &variant.ProductID, &variant.Color, &variant.Price)
	if err != nil {
		if err == sql.ErrNoRows {
			return PricedUnit{}, domain.ErrVariantNotFound
		}
		return PricedUnit{}, err
	}

	return resolve(&product, &variant), nil
}
