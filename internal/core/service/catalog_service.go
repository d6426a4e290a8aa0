package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/pos-ledger/internal/core/domain"
	"github.com/rl1809/pos-ledger/internal/port"
)

// CatalogService handles product CRUD. Stock set here is the opening count;
// every later change should go through the ledger.
type CatalogService struct {
	db    port.ProductRepository
	cache port.CacheRepository
}

func NewCatalogService(db port.ProductRepository, cache port.CacheRepository) *CatalogService {
	return &CatalogService{db: db, cache: cache}
}

type CreateProductInput struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
}

// UpdateProductInput is a partial patch; nil fields are untouched.
type UpdateProductInput struct {
	SKU      *string  `json:"sku,omitempty"`
	Name     *string  `json:"name,omitempty"`
	Category *string  `json:"category,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Stock    *int     `json:"stock,omitempty"`
}

func (s *CatalogService) CreateProduct(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	sku, ok := domain.NormalizeSKU(in.SKU)
	if !ok {
		return nil, fmt.Errorf("%w: sku must be an alphanumeric token", ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Price < 0 {
		return nil, fmt.Errorf("%w: price must be non-negative", ErrInvalidInput)
	}
	if in.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be non-negative", ErrInvalidInput)
	}

	now := time.Now().UTC()
	p := domain.Product{
		ID:        uuid.NewString(),
		SKU:       sku,
		Name:      name,
		Category:  strings.TrimSpace(in.Category),
		Price:     in.Price,
		Stock:     in.Stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.InsertProduct(ctx, p); err != nil {
		if errors.Is(err, port.ErrDuplicateSKU) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSKU, sku)
		}
		return nil, fmt.Errorf("insert product: %w", err)
	}
	s.seedMirror(ctx, p.ID, p.Stock)
	return &p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in UpdateProductInput) (*domain.Product, error) {
	patch := port.ProductPatch{
		Name:     in.Name,
		Category: in.Category,
		Price:    in.Price,
		Stock:    in.Stock,
	}
	if in.SKU != nil {
		sku, ok := domain.NormalizeSKU(*in.SKU)
		if !ok {
			return nil, fmt.Errorf("%w: sku must be an alphanumeric token", ErrInvalidInput)
		}
		patch.SKU = &sku
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}
	if in.Price != nil && *in.Price < 0 {
		return nil, fmt.Errorf("%w: price must be non-negative", ErrInvalidInput)
	}
	if in.Stock != nil && *in.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must be non-negative", ErrInvalidInput)
	}

	p, err := s.db.UpdateProduct(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, port.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		case errors.Is(err, port.ErrDuplicateSKU):
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSKU, *patch.SKU)
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	if in.Stock != nil {
		s.seedMirror(ctx, p.ID, p.Stock)
	}
	return p, nil
}

// DeleteProduct is idempotent; deleting a missing product is an ack, not an
// error.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.db.DeleteProduct(ctx, id); err != nil && !errors.Is(err, port.ErrNotFound) {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// ListProducts filters by case-insensitive substring on name or sku and by
// exact category, newest-created first.
func (s *CatalogService) ListProducts(ctx context.Context, search, category string) ([]domain.Product, error) {
	out, err := s.db.ListProducts(ctx, port.ProductFilter{Search: search, Category: category})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (s *CatalogService) seedMirror(ctx context.Context, id string, stock int) {
	if s.cache == nil {
		return
	}
	_ = s.cache.SetStock(ctx, id, stock)
}
