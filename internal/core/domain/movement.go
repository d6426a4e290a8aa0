package domain

import "time"

type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

func (t MovementType) Valid() bool {
	return t == MovementIn || t == MovementOut
}

// Delta converts a positive magnitude into the signed stock delta the type
// stands for.
func (t MovementType) Delta(qty int) int {
	if t == MovementOut {
		return -qty
	}
	return qty
}

// StockMovement is one entry of the append-only stock ledger. Qty is always
// the positive magnitude; direction lives in Type. Movements are never
// updated or deleted.
type StockMovement struct {
	ID        string       `json:"id"`
	ProductID string       `json:"productId"`
	Type      MovementType `json:"type"`
	Qty       int          `json:"qty"`
	Reason    string       `json:"reason,omitempty"`
	At        time.Time    `json:"at"`
}

// MovementResult is what a committed ledger application reports back.
type MovementResult struct {
	Movement   StockMovement `json:"movement"`
	StockAfter int           `json:"stockAfter"`
}
