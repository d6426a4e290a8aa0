package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/pos-ledger/internal/core/domain"
	"github.com/rl1809/pos-ledger/internal/port"
)

// OrderLineInput is one requested line. A nil Price takes the catalog price;
// a non-nil Price overrides it for this sale (discounts, promotions).
type OrderLineInput struct {
	ProductID string   `json:"productId"`
	Qty       int      `json:"qty"`
	Price     *float64 `json:"price,omitempty"`
}

type CreateOrderRequest struct {
	// RequestID, when set, deduplicates retries through the cache guard.
	RequestID string           `json:"requestId,omitempty"`
	Items     []OrderLineInput `json:"items"`
}

// CommitError reports a deduction that failed after earlier lines had
// already committed. Reversed lists the product ids whose deductions were
// compensated back with IN movements.
type CommitError struct {
	FailedLine int
	ProductID  string
	Reversed   []string
	Err        error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("order commit failed at line %d (product %s), reversed %d prior deduction(s): %v",
		e.FailedLine, e.ProductID, len(e.Reversed), e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// OrderService assembles sales orders: it validates every line against
// current stock, drives the ledger's deductions, and persists the immutable
// order record.
type OrderService struct {
	db      port.DatabaseRepository
	ledger  *LedgerService
	cache   port.CacheRepository
	events  port.EventPublisher
	service string
}

func NewOrderService(db port.DatabaseRepository, ledger *LedgerService, cache port.CacheRepository, events port.EventPublisher, serviceName string) *OrderService {
	return &OrderService{db: db, ledger: ledger, cache: cache, events: events, service: serviceName}
}

// CreateOrder validates every line before the first mutation, then commits
// the deductions in caller order through the ledger's conditional update. A
// deduction that fails mid-commit (a lost update surfacing as a failed
// conditional) is compensated by reversing the lines already committed; the
// returned *CommitError names the failed line and the reversed products.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.RequestID != "" && s.cache != nil {
		ok, err := s.cache.SetIdempotency(ctx, "order:req:"+req.RequestID)
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	number := "S" + strconv.FormatInt(time.Now().UnixNano(), 10)

	// Validation phase: nothing mutates until every line checks out.
	items := make([]domain.OrderItem, 0, len(req.Items))
	total := 0.0
	for i, line := range req.Items {
		prod, err := s.db.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, port.ErrNotFound) {
				return nil, fmt.Errorf("%w: line %d (%s)", ErrProductNotFound, i+1, line.ProductID)
			}
			return nil, fmt.Errorf("resolve product: %w", err)
		}
		if line.Qty <= 0 {
			return nil, fmt.Errorf("%w: line %d", ErrInvalidQuantity, i+1)
		}
		price := prod.Price
		if line.Price != nil {
			if *line.Price < 0 {
				return nil, fmt.Errorf("%w: line %d: negative price", ErrInvalidInput, i+1)
			}
			price = *line.Price
		}
		if prod.Stock < line.Qty {
			return nil, fmt.Errorf("%w: %s (have %d, want %d)", ErrInsufficientStock, prod.Name, prod.Stock, line.Qty)
		}
		subtotal := domain.Round2(price * float64(line.Qty))
		total += subtotal
		items = append(items, domain.OrderItem{
			ProductID: prod.ID,
			SKU:       prod.SKU,
			Name:      prod.Name,
			Qty:       line.Qty,
			Price:     price,
			Subtotal:  subtotal,
		})
	}

	// Commit phase, in caller order.
	for i, it := range items {
		if _, err := s.ledger.ApplyMovement(ctx, it.ProductID, domain.MovementOut, it.Qty, "Sale "+number); err != nil {
			reversed, revErr := s.reverse(ctx, items[:i], number)
			cerr := &CommitError{FailedLine: i + 1, ProductID: it.ProductID, Reversed: reversed, Err: err}
			if revErr != nil {
				return nil, errors.Join(cerr, revErr)
			}
			return nil, cerr
		}
	}

	order := domain.Order{
		ID:     uuid.NewString(),
		Number: number,
		At:     time.Now().UTC(),
		Items:  items,
		Total:  domain.Round2(total),
	}
	if err := s.db.InsertOrder(ctx, order); err != nil {
		reversed, revErr := s.reverse(ctx, items, number)
		err = fmt.Errorf("persist order %s (reversed %d deduction(s)): %w", number, len(reversed), err)
		if revErr != nil {
			return nil, errors.Join(err, revErr)
		}
		return nil, err
	}

	s.publishOrderCreated(order)
	return &order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	o, err := s.db.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListOrders returns orders within the inclusive range, newest first.
func (s *OrderService) ListOrders(ctx context.Context, from, to *time.Time) ([]domain.Order, error) {
	out, err := s.db.ListOrders(ctx, port.TimeRange{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

// reverse compensates committed deductions with IN movements of equal
// magnitude. It keeps going past individual failures so as much stock as
// possible is restored.
func (s *OrderService) reverse(ctx context.Context, committed []domain.OrderItem, number string) ([]string, error) {
	var reversed []string
	var errs []error
	for _, it := range committed {
		if _, err := s.ledger.ApplyMovement(ctx, it.ProductID, domain.MovementIn, it.Qty, "Reversal "+number); err != nil {
			errs = append(errs, fmt.Errorf("reverse deduction for %s: %w", it.ProductID, err))
			continue
		}
		reversed = append(reversed, it.ProductID)
	}
	return reversed, errors.Join(errs...)
}

func (s *OrderService) publishOrderCreated(o domain.Order) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(domain.OrderCreatedPayload{
		OrderID: o.ID,
		Number:  o.Number,
		Total:   o.Total,
		Lines:   len(o.Items),
	})
	if err != nil {
		return
	}
	env, err := json.Marshal(domain.Envelope{
		EventID:    uuid.NewString(),
		EventType:  domain.EventOrderCreated,
		OccurredAt: time.Now().UTC(),
		Producer:   s.service,
		Payload:    payload,
	})
	if err != nil {
		return
	}
	s.events.Publish(domain.TopicOrderCreated, []byte(o.ID), env)
}
