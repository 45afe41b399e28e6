package budget

import (
	"errors"

	"github.com/obrastock/obrastock/internal/shared"
)

// Entry maps a (front+specialty, item) pair to its budgeted quantity and the
// monotonically increasing utilized total.
type Entry struct {
	ID               int64
	FrontSpecialtyID int64
	Item             shared.ItemRef
	Budgeted         float64
	Utilized         float64
}

// CheckStatus classifies a projected consumption against the budget.
type CheckStatus string

const (
	StatusOK         CheckStatus = "OK"
	StatusWarn       CheckStatus = "WARN"
	StatusOver       CheckStatus = "OVER"
	StatusUnbudgeted CheckStatus = "UNBUDGETED"
)

// NearBudgetRatio is the projected/budgeted ratio that triggers a warning.
const NearBudgetRatio = 0.90

// CheckResult is the outcome of the soft gate.
type CheckResult struct {
	Status    CheckStatus
	Projected float64
	Budgeted  float64
	Utilized  float64
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("budget: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("budget: invalid input")
)
