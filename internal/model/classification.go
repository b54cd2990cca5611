package model

// ClassificationChange records a proposed category move for a stored
// product. Changes are reviewed before they are applied.
type ClassificationChange struct {
	ProductID     int64    `json:"product_id"`
	SKU           string   `json:"sku"`
	Name          string   `json:"name"`
	FromCategory  Category `json:"from_category"`
	ToCategory    Category `json:"to_category"`
	Reason        string   `json:"reason"`
	FromRegulated bool     `json:"from_regulated"`
	ToRegulated   bool     `json:"to_regulated"`
}
