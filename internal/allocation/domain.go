package allocation

import (
	"errors"
	"time"

	"github.com/obrastock/obrastock/internal/shared"
)

// OrderStatus enumerates purchase order lifecycle states.
type OrderStatus string

const (
	OrderStatusIssued    OrderStatus = "ISSUED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusReceived  OrderStatus = "RECEIVED"
)

// RequestLine is the snapshot view of a purchase-request (SC) line that order
// lines allocate against.
type RequestLine struct {
	ID            int64
	RequisitionID int64
	Item          shared.ItemRef
	Quantity      float64
}

// Order is the snapshot view of a purchase order (OC) header with its lines.
type Order struct {
	ID        int64
	Number    string
	Status    OrderStatus
	OrderDate time.Time
	Lines     []OrderLine
}

// OrderLine references exactly one request line.
type OrderLine struct {
	ID            int64
	OrderID       int64
	RequestLineID int64
	Quantity      float64
}

// Receipt is the ledger view the resolver consumes. Callers hand in inbound
// entries only; outbound movements never participate in allocation.
type Receipt struct {
	Item          shared.ItemRef
	RequisitionID int64
	Quantity      float64
	PettyCash     bool
}

// Line is the requisition-line view used by reconciliation.
type Line struct {
	ID            int64
	RequisitionID int64
	Item          shared.ItemRef
	Requested     float64
	Fulfilled     float64
}

// Warning records a data-integrity observation. Computation proceeds with
// best-effort clamping; the caller decides whether to log or surface it.
type Warning struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

const (
	// WarnOrphanOrderLine flags an OC line whose request line is absent from
	// the snapshot. Its pending is treated as zero.
	WarnOrphanOrderLine = "ORPHAN_ORDER_LINE"
	// WarnOverFulfilled flags fulfilled quantity above requested.
	WarnOverFulfilled = "OVER_FULFILLED"
	// WarnInvalidOrderLine flags a non-positive ordered quantity skipped by
	// aggregate views.
	WarnInvalidOrderLine = "INVALID_ORDER_LINE"
)

var (
	// ErrInvalidQuantity rejects zero or negative ordered quantities.
	ErrInvalidQuantity = errors.New("allocation: order line quantity must be positive")
	// ErrLineNotFound indicates the requested order line is not part of the snapshot.
	ErrLineNotFound = errors.New("allocation: order line not found")
)
