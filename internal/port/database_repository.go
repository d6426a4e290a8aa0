package port

import (
	"context"
	"errors"
	"time"

	"github.com/rl1809/pos-ledger/internal/core/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateSKU = errors.New("duplicate sku")

	// ErrStockConflict is returned by AdjustStock when the conditional
	// update would drive stock negative. Nothing is written in that case.
	ErrStockConflict = errors.New("stock conflict")
)

// ProductFilter composes the catalog read filters. Zero values match
// everything.
type ProductFilter struct {
	Search   string // case-insensitive substring on name or sku
	Category string // exact match
}

// TimeRange bounds are inclusive; a nil bound is unbounded.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

func (r TimeRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// ProductPatch carries a partial catalog update; nil fields are untouched.
type ProductPatch struct {
	SKU      *string
	Name     *string
	Category *string
	Price    *float64
	Stock    *int
}

type ProductRepository interface {
	InsertProduct(ctx context.Context, p domain.Product) error
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	// AdjustStock applies a signed delta to a product's stock only if the
	// result stays >= 0 and returns the new stock. The check and the write
	// are one atomic step; concurrent callers can never drive stock
	// negative through it.
	AdjustStock(ctx context.Context, id string, delta int) (int, error)
}

type MovementRepository interface {
	InsertMovement(ctx context.Context, m domain.StockMovement) error
	ListMovements(ctx context.Context, r TimeRange) ([]domain.StockMovement, error)
}

type OrderRepository interface {
	InsertOrder(ctx context.Context, o domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, r TimeRange) ([]domain.Order, error)
}

// DatabaseRepository is the full store surface the core services need.
type DatabaseRepository interface {
	ProductRepository
	MovementRepository
	OrderRepository
}
