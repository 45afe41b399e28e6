package procurement

import (
	"errors"
	"time"

	"github.com/obrastock/obrastock/internal/allocation"
	"github.com/obrastock/obrastock/internal/shared"
)

// RequestStatus is the purchase request (SC) lifecycle.
type RequestStatus string

const (
	RequestStatusDraft     RequestStatus = "DRAFT"
	RequestStatusSubmitted RequestStatus = "SUBMITTED"
	RequestStatusClosed    RequestStatus = "CLOSED"
)

// PurchaseRequest is an approved subset of requisition lines submitted for sourcing.
type PurchaseRequest struct {
	ID            int64
	Number        string
	RequisitionID int64
	Status        RequestStatus
	RequestedAt   time.Time
	Note          string
}

// RequestLine carries the approved-for-purchase quantity of one item.
// RequisitionID is denormalized from the header on load; RequisitionLineID is
// zero for legacy rows that link through item identity only.
type RequestLine struct {
	ID                int64
	RequestID         int64
	RequisitionID     int64
	RequisitionLineID int64
	Item              shared.ItemRef
	Quantity          float64
	Status            RequestStatus
}

// PurchaseOrder is a supplier commitment against purchase-request lines.
// Statuses are shared with the allocation core, which excludes cancelled
// orders from every pending computation.
type PurchaseOrder struct {
	ID         int64
	Number     string
	SupplierID int64
	Status     allocation.OrderStatus
	OrderDate  time.Time
	Note       string
	Lines      []OrderLine
}

// OrderLine references exactly one purchase-request line.
type OrderLine struct {
	ID            int64
	OrderID       int64
	RequestLineID int64
	Quantity      float64
	Price         float64
}

// Snapshot converts the request line into the allocation core's view.
func (l RequestLine) Snapshot() allocation.RequestLine {
	return allocation.RequestLine{ID: l.ID, RequisitionID: l.RequisitionID, Item: l.Item, Quantity: l.Quantity}
}

// Snapshot converts the order and its lines into the allocation core's view.
func (o PurchaseOrder) Snapshot() allocation.Order {
	out := allocation.Order{ID: o.ID, Number: o.Number, Status: o.Status, OrderDate: o.OrderDate}
	for _, l := range o.Lines {
		out.Lines = append(out.Lines, allocation.OrderLine{ID: l.ID, OrderID: l.OrderID, RequestLineID: l.RequestLineID, Quantity: l.Quantity})
	}
	return out
}

var (
	// ErrInvalidState occurs when action violates status workflow.
	ErrInvalidState = errors.New("procurement: invalid state transition")
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("procurement: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("procurement: invalid input")
)
