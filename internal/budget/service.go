package budget

import (
	"context"
	"errors"

	"github.com/obrastock/obrastock/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	FindForItem(ctx context.Context, frontSpecialtyID int64, item shared.ItemRef) (Entry, error)
	ListByFrontSpecialty(ctx context.Context, frontSpecialtyID int64) ([]Entry, error)
	CreateEntry(ctx context.Context, entry Entry) (int64, error)
	AddUtilization(ctx context.Context, id int64, qty float64) error
}

// Service implements the budget consumption tracker.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the budget service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Check projects utilized + pendingInForm + requested against the budgeted
// quantity. Read-only: actual accumulation happens in Consume when the
// consuming line is persisted. Whether OVER blocks or merely warns is the
// caller's policy.
func (s *Service) Check(ctx context.Context, frontSpecialtyID int64, item shared.ItemRef, requested, pendingInForm float64) (CheckResult, error) {
	if requested <= 0 {
		return CheckResult{}, ErrValidation
	}
	entry, err := s.repo.FindForItem(ctx, frontSpecialtyID, item)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return CheckResult{Status: StatusUnbudgeted, Projected: requested + pendingInForm}, nil
		}
		return CheckResult{}, err
	}
	projected := entry.Utilized + pendingInForm + requested
	result := CheckResult{Projected: projected, Budgeted: entry.Budgeted, Utilized: entry.Utilized}
	switch {
	case projected > entry.Budgeted:
		result.Status = StatusOver
	case entry.Budgeted > 0 && projected/entry.Budgeted >= NearBudgetRatio:
		result.Status = StatusWarn
	default:
		result.Status = StatusOK
	}
	return result, nil
}

// Consume accumulates utilized quantity once the consuming requisition line is
// persisted. Unbudgeted items accumulate nothing.
func (s *Service) Consume(ctx context.Context, frontSpecialtyID int64, item shared.ItemRef, qty float64) error {
	if qty <= 0 {
		return ErrValidation
	}
	entry, err := s.repo.FindForItem(ctx, frontSpecialtyID, item)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return s.repo.AddUtilization(ctx, entry.ID, qty)
}

// CreateEntry registers a budgeted quantity for an item.
func (s *Service) CreateEntry(ctx context.Context, entry Entry) (Entry, error) {
	if entry.FrontSpecialtyID == 0 || entry.Budgeted <= 0 {
		return Entry{}, ErrValidation
	}
	if !entry.Item.Resolved() && entry.Item.Description == "" {
		return Entry{}, ErrValidation
	}
	id, err := s.repo.CreateEntry(ctx, entry)
	if err != nil {
		return Entry{}, err
	}
	entry.ID = id
	return entry, nil
}

// UtilizationRow is a report line with consumption percentage.
type UtilizationRow struct {
	Entry   Entry
	Percent float64
}

// Report lists utilization per item for a front+specialty.
func (s *Service) Report(ctx context.Context, frontSpecialtyID int64) ([]UtilizationRow, error) {
	entries, err := s.repo.ListByFrontSpecialty(ctx, frontSpecialtyID)
	if err != nil {
		return nil, err
	}
	rows := make([]UtilizationRow, 0, len(entries))
	for _, e := range entries {
		row := UtilizationRow{Entry: e}
		if e.Budgeted > 0 {
			row.Percent = e.Utilized / e.Budgeted * 100
		}
		rows = append(rows, row)
	}
	return rows, nil
}
