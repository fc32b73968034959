package domain

// StockUnit identifies one reservable counter: a product, or one of its
// variants. VariantID is empty for products without variants.
type StockUnit struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
}

// Key returns a totally ordered identifier. Hold operations acquire units
// in ascending Key order, which rules out lock-order deadlock between
// concurrent multi-item holds.
func (u StockUnit) Key() string {
	return u.ProductID + "/" + u.VariantID
}

type StockLevel struct {
	Unit      StockUnit `json:"unit"`
	Available int       `json:"available"`
}
