package ledger

import (
	"errors"
	"time"

	"github.com/obrastock/obrastock/internal/allocation"
	"github.com/obrastock/obrastock/internal/shared"
)

// Direction of a warehouse movement.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// SourceType distinguishes OC-backed receipts from out-of-band petty cash.
type SourceType string

const (
	SourcePurchaseOrder SourceType = "PURCHASE_ORDER"
	SourcePettyCash     SourceType = "PETTY_CASH"
)

// Entry is an immutable movement record. Corrections are new entries; rows are
// never edited or deleted.
type Entry struct {
	ID            int64
	Code          string
	Direction     Direction
	Source        SourceType
	Item          shared.ItemRef
	Quantity      float64
	RequisitionID int64
	OrderID       int64
	Destination   string
	PostedAt      time.Time
	CreatedBy     int64
}

// Receipt converts the entry into the allocation core's view.
func (e Entry) Receipt() allocation.Receipt {
	return allocation.Receipt{
		Item:          e.Item,
		RequisitionID: e.RequisitionID,
		Quantity:      e.Quantity,
		PettyCash:     e.Source == SourcePettyCash,
	}
}

// EntryFilter narrows ledger queries.
type EntryFilter struct {
	RequisitionID int64
	Direction     Direction
	Limit         int
}

var (
	// ErrInvalidQuantity rejects zero or negative movement quantities.
	ErrInvalidQuantity = errors.New("ledger: quantity must be positive")
	// ErrExceedsPending rejects a receipt above the order's open pending quantity.
	ErrExceedsPending = errors.New("ledger: quantity exceeds order pending balance")
	// ErrExceedsFree rejects a petty-cash receipt above the free-to-purchase balance.
	ErrExceedsFree = errors.New("ledger: quantity exceeds free balance")
	// ErrOrderNotOpen indicates the target OC is cancelled or absent from the pipeline.
	ErrOrderNotOpen = errors.New("ledger: order not open for receipt")
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("ledger: not found")
)
