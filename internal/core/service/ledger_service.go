package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/pos-ledger/internal/core/domain"
	"github.com/rl1809/pos-ledger/internal/port"
)

// LedgerService owns the authoritative stock count per product and its
// append-only movement history. Every committed stock change goes through
// ApplyMovement and leaves exactly one movement record behind.
type LedgerService struct {
	db      port.DatabaseRepository
	cache   port.CacheRepository
	events  port.EventPublisher
	service string
}

func NewLedgerService(db port.DatabaseRepository, cache port.CacheRepository, events port.EventPublisher, serviceName string) *LedgerService {
	return &LedgerService{db: db, cache: cache, events: events, service: serviceName}
}

// ApplyMovement applies the signed delta derived from type and qty. The
// deduction path runs through the store's conditional update, so concurrent
// callers can never drive stock negative; there is no read-then-write window
// on the mutation path.
func (s *LedgerService) ApplyMovement(ctx context.Context, productID string, mtype domain.MovementType, qty int, reason string) (*domain.MovementResult, error) {
	if !mtype.Valid() {
		return nil, fmt.Errorf("%w: movement type %q", ErrInvalidInput, mtype)
	}
	if qty <= 0 {
		return nil, fmt.Errorf("%w: qty must be a positive integer, got %d", ErrInvalidQuantity, qty)
	}
	if _, err := s.db.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		return nil, fmt.Errorf("resolve product: %w", err)
	}

	// Advisory fast path: a mirrored sold-out rejects without touching the
	// store. An unmirrored product or a cache error falls through.
	if s.cache != nil && mtype == domain.MovementOut {
		if ok, err := s.cache.DecrementStock(ctx, productID, qty); err == nil && !ok {
			return nil, fmt.Errorf("%w: product %s", ErrInsufficientStock, productID)
		}
	}

	newStock, err := s.db.AdjustStock(ctx, productID, mtype.Delta(qty))
	if err != nil {
		s.refreshMirror(ctx, productID)
		switch {
		case errors.Is(err, port.ErrStockConflict):
			return nil, fmt.Errorf("%w: product %s", ErrInsufficientStock, productID)
		case errors.Is(err, port.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	mov := domain.StockMovement{
		ID:        uuid.NewString(),
		ProductID: productID,
		Type:      mtype,
		Qty:       qty,
		Reason:    reason,
		At:        time.Now().UTC(),
	}
	if err := s.db.InsertMovement(ctx, mov); err != nil {
		// Undo the stock write so stock and ledger stay in lockstep.
		if _, undoErr := s.db.AdjustStock(ctx, productID, -mtype.Delta(qty)); undoErr != nil {
			return nil, errors.Join(
				fmt.Errorf("append movement: %w", err),
				fmt.Errorf("undo stock adjust for %s: %w", productID, undoErr),
			)
		}
		s.refreshMirror(ctx, productID)
		return nil, fmt.Errorf("append movement: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.SetStock(ctx, productID, newStock)
	}
	s.publishMovement(mov, newStock)

	return &domain.MovementResult{Movement: mov, StockAfter: newStock}, nil
}

// ListMovements returns movements within the inclusive range, newest first.
func (s *LedgerService) ListMovements(ctx context.Context, from, to *time.Time) ([]domain.StockMovement, error) {
	movs, err := s.db.ListMovements(ctx, port.TimeRange{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movs, nil
}

// refreshMirror re-seeds the advisory cache from the store after a failed
// mutation, undoing any fast-path decrement.
func (s *LedgerService) refreshMirror(ctx context.Context, productID string) {
	if s.cache == nil {
		return
	}
	p, err := s.db.GetProduct(ctx, productID)
	if err != nil {
		return
	}
	_ = s.cache.SetStock(ctx, productID, p.Stock)
}

func (s *LedgerService) publishMovement(mov domain.StockMovement, stockAfter int) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(domain.MovementRecordedPayload{
		MovementID: mov.ID,
		ProductID:  mov.ProductID,
		Type:       mov.Type,
		Qty:        mov.Qty,
		StockAfter: stockAfter,
		Reason:     mov.Reason,
	})
	if err != nil {
		return
	}
	env, err := json.Marshal(domain.Envelope{
		EventID:    uuid.NewString(),
		EventType:  domain.EventMovementRecorded,
		OccurredAt: time.Now().UTC(),
		Producer:   s.service,
		Payload:    payload,
	})
	if err != nil {
		return
	}
	s.events.Publish(domain.TopicStockMovement, []byte(mov.ProductID), env)
}
