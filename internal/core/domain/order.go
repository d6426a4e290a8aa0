package domain

import "time"

// OrderItem snapshots the product at sale time so historical orders stay
// stable even if the catalog entry is later renamed or repriced.
type OrderItem struct {
	ProductID string  `json:"productId"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Qty       int     `json:"qty"`
	Price     float64 `json:"price"`
	Subtotal  float64 `json:"subtotal"`
}

// Order is immutable once created. Total is the sum of item subtotals, each
// subtotal already rounded to 2 decimals on its own.
type Order struct {
	ID     string      `json:"id"`
	Number string      `json:"number"`
	At     time.Time   `json:"at"`
	Items  []OrderItem `json:"items"`
	Total  float64     `json:"total"`
}
