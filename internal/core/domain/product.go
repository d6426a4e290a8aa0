package domain

import (
	"regexp"
	"strings"
	"time"
)

// Product is a catalog entry. Stock is the authoritative on-hand count and
// must never be negative after a committed operation.
type Product struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var skuPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// NormalizeSKU uppercases a raw SKU and checks it is a plain alphanumeric
// token. It returns false for anything else, including the empty string.
func NormalizeSKU(raw string) (string, bool) {
	sku := strings.ToUpper(strings.TrimSpace(raw))
	if !skuPattern.MatchString(sku) {
		return "", false
	}
	return sku, true
}
