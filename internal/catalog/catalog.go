package catalog

import "context"

type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BasePrice  int64  `json:"base_price"`
	OfferPrice int64  `json:"offer_price"`
}

type Variant struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Color     string `json:"color"`
	Price     int64  `json:"price"`
}

// PricedUnit is the catalog's answer for one (product, variant) pair.
type PricedUnit struct {
	UnitPrice    int64
	VariantColor string
}

// Repository resolves unit prices. Price falls back variant price ->
// product offer price -> product base price; a variant price of zero
// defers to the product-level prices.
type Repository interface {
	ResolveUnit(ctx context.Context, productID, variantID string) (PricedUnit, error)
}

func resolve(p *Product, v *Variant) PricedUnit {
	priced := PricedUnit{}
	if v != nil {
		priced.VariantColor = v.Color
		if v.Price > 0 {
			priced.UnitPrice = v.Price
			return priced
		}
	}
	if p.OfferPrice > 0 {
		priced.UnitPrice = p.OfferPrice
		return priced
	}
	priced.UnitPrice = p.BasePrice
	return priced
}
