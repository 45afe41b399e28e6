package requisition

import (
	"errors"
	"time"

	"github.com/obrastock/obrastock/internal/allocation"
	"github.com/obrastock/obrastock/internal/shared"
)

// Status is the requisition header lifecycle.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
)

// LineStatus tracks fulfilment of a single demand line.
type LineStatus string

const (
	LineStatusPending   LineStatus = "PENDING"
	LineStatusPartial   LineStatus = "PARTIAL"
	LineStatusFulfilled LineStatus = "FULFILLED"
	LineStatusCancelled LineStatus = "CANCELLED"
)

// Requisition is a demand header raised by a work front.
type Requisition struct {
	ID          int64
	Number      string
	FrontID     int64
	BlockID     int64
	SpecialtyID int64
	RequestedBy int64
	RequestedAt time.Time
	Status      Status
	Note        string
}

// Line is a demand unit. Fulfilled is a denormalized running total maintained
// by receipt posting; the ledger stays the source of truth.
type Line struct {
	ID            int64
	RequisitionID int64
	Item          shared.ItemRef
	Unit          string
	Requested     float64
	Fulfilled     float64
	Status        LineStatus
}

// Allocation converts the line into the allocation core's view.
func (l Line) Allocation() allocation.Line {
	return allocation.Line{
		ID:            l.ID,
		RequisitionID: l.RequisitionID,
		Item:          l.Item,
		Requested:     l.Requested,
		Fulfilled:     l.Fulfilled,
	}
}

// StatusForQuantities derives the line status from its quantities.
func StatusForQuantities(requested, fulfilled float64) LineStatus {
	switch {
	case fulfilled <= 0:
		return LineStatusPending
	case fulfilled < requested:
		return LineStatusPartial
	default:
		return LineStatusFulfilled
	}
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("requisition: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("requisition: invalid input")
	// ErrOverBudget indicates a hard-blocked budget overrun.
	ErrOverBudget = errors.New("requisition: budget exceeded")
)
