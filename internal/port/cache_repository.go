package port

import "context"

// CacheRepository mirrors product stock for fast sold-out rejection and
// holds the idempotency guard for order creation. The mirror is advisory;
// the database repository stays authoritative.
type CacheRepository interface {
	// DecrementStock conditionally decrements the mirrored stock. It
	// returns false only when the mirror knows the stock is insufficient;
	// an unmirrored product passes.
	DecrementStock(ctx context.Context, productID string, qty int) (bool, error)

	// SetStock seeds or refreshes the mirror with an authoritative value.
	SetStock(ctx context.Context, productID string, stock int) error

	// SetIdempotency sets a request key, returning false if it already
	// exists.
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
