package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/pos-ledger/internal/core/domain"
	"github.com/rl1809/pos-ledger/internal/port"
)

// MemoryAdapter is an in-process DatabaseRepository. It backs unit tests and
// single-node runs without MySQL. One mutex serializes every write, so the
// conditional stock update is atomic by construction.
type MemoryAdapter struct {
	mu        sync.RWMutex
	products  map[string]domain.Product
	movements []domain.StockMovement
	orders    []domain.Order
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{products: make(map[string]domain.Product)}
}

func (m *MemoryAdapter) InsertProduct(ctx context.Context, p domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.products {
		if existing.SKU == p.SKU {
			return port.ErrDuplicateSKU
		}
	}
	m.products[p.ID] = p
	return nil
}

func (m *MemoryAdapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (m *MemoryAdapter) ListProducts(ctx context.Context, f port.ProductFilter) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	search := strings.ToLower(f.Search)
	out := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryAdapter) UpdateProduct(ctx context.Context, id string, patch port.ProductPatch) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	if patch.SKU != nil {
		for otherID, other := range m.products {
			if otherID != id && other.SKU == *patch.SKU {
				return nil, port.ErrDuplicateSKU
			}
		}
		p.SKU = *patch.SKU
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	p.UpdatedAt = time.Now().UTC()
	m.products[id] = p
	cp := p
	return &cp, nil
}

func (m *MemoryAdapter) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	return nil
}

func (m *MemoryAdapter) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return 0, port.ErrNotFound
	}
	next := p.Stock + delta
	if next < 0 {
		return 0, port.ErrStockConflict
	}
	p.Stock = next
	p.UpdatedAt = time.Now().UTC()
	m.products[id] = p
	return next, nil
}

func (m *MemoryAdapter) InsertMovement(ctx context.Context, mov domain.StockMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements = append(m.movements, mov)
	return nil
}

func (m *MemoryAdapter) ListMovements(ctx context.Context, r port.TimeRange) ([]domain.StockMovement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.StockMovement, 0, len(m.movements))
	for _, mov := range m.movements {
		if r.Contains(mov.At) {
			out = append(out, mov)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	return out, nil
}

func (m *MemoryAdapter) InsertOrder(ctx context.Context, o domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, o)
	return nil
}

func (m *MemoryAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.ID == id {
			cp := o
			return &cp, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *MemoryAdapter) ListOrders(ctx context.Context, r port.TimeRange) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if r.Contains(o.At) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	return out, nil
}
