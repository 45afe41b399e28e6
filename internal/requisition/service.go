package requisition

import (
	"context"
	"fmt"
	"time"

	"github.com/obrastock/obrastock/internal/budget"
	"github.com/obrastock/obrastock/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Requisition, []Line, error)
	GetLine(ctx context.Context, id int64) (Line, error)
	ListByFront(ctx context.Context, frontID int64) ([]Requisition, error)
}

// BudgetPort exposes the budget soft gate.
type BudgetPort interface {
	Check(ctx context.Context, frontSpecialtyID int64, item shared.ItemRef, requested, pendingInForm float64) (budget.CheckResult, error)
	Consume(ctx context.Context, frontSpecialtyID int64, item shared.ItemRef, qty float64) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates requisition flows.
type Service struct {
	repo      RepositoryPort
	budget    BudgetPort
	audit     AuditPort
	hardBlock bool
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// BudgetHardBlock rejects over-budget lines outright instead of letting
	// the caller confirm the overrun.
	BudgetHardBlock bool
}

// NewService constructs the requisition service.
func NewService(repo RepositoryPort, budgetPort BudgetPort, audit AuditPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, budget: budgetPort, audit: audit, hardBlock: cfg.BudgetHardBlock}
}

// LineInput describes a demand line.
type LineInput struct {
	Kind        shared.ItemKind
	ItemID      int64
	Description string
	Category    string
	Unit        string
	Qty         float64
}

// CreateInput describes a new requisition with its lines.
type CreateInput struct {
	Number            string
	FrontID           int64
	BlockID           int64
	SpecialtyID       int64
	FrontSpecialtyID  int64
	RequestedBy       int64
	Note              string
	ConfirmOverBudget bool
	Lines             []LineInput
}

// BudgetNotice pairs a line index with its budget check outcome.
type BudgetNotice struct {
	LineIndex int
	Result    budget.CheckResult
}

// CreateResult returns the persisted requisition plus budget notices.
type CreateResult struct {
	Requisition Requisition
	Lines       []Line
	Notices     []BudgetNotice
}

func (in LineInput) itemRef() shared.ItemRef {
	return shared.ItemRef{Kind: in.Kind, ID: in.ItemID, Description: in.Description, Category: in.Category}
}

// Create persists the requisition after running the budget soft gate on every
// material line. Over-budget lines block when hard blocking is configured and
// the caller did not confirm; otherwise they pass through as notices.
func (s *Service) Create(ctx context.Context, input CreateInput) (CreateResult, error) {
	if len(input.Lines) == 0 || input.FrontID == 0 {
		return CreateResult{}, ErrValidation
	}
	for _, line := range input.Lines {
		if line.Qty <= 0 {
			return CreateResult{}, ErrValidation
		}
		if line.ItemID == 0 && line.Description == "" {
			return CreateResult{}, ErrValidation
		}
	}

	notices, err := s.runBudgetGate(ctx, input)
	if err != nil {
		return CreateResult{}, err
	}

	if input.Number == "" {
		input.Number = fmt.Sprintf("REQ-%d", time.Now().UnixNano())
	}
	header := Requisition{
		Number:      input.Number,
		FrontID:     input.FrontID,
		BlockID:     input.BlockID,
		SpecialtyID: input.SpecialtyID,
		RequestedBy: input.RequestedBy,
		RequestedAt: time.Now().UTC(),
		Status:      StatusOpen,
		Note:        input.Note,
	}
	var lines []Line
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateRequisition(ctx, header)
		if err != nil {
			return err
		}
		header.ID = id
		for _, in := range input.Lines {
			line := Line{
				RequisitionID: id,
				Item:          in.itemRef(),
				Unit:          in.Unit,
				Requested:     in.Qty,
				Status:        LineStatusPending,
			}
			lineID, err := tx.InsertLine(ctx, line)
			if err != nil {
				return err
			}
			line.ID = lineID
			lines = append(lines, line)
		}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}

	if s.budget != nil {
		for _, line := range lines {
			if line.Item.Kind != shared.ItemMaterial {
				continue
			}
			if err := s.budget.Consume(ctx, input.FrontSpecialtyID, line.Item, line.Requested); err != nil {
				// Utilization drift is repairable; do not undo the requisition.
				continue
			}
		}
	}
	s.recordAudit(ctx, "REQ_CREATE", header.ID, map[string]any{"number": header.Number, "lines": len(lines)})
	return CreateResult{Requisition: header, Lines: lines, Notices: notices}, nil
}

// runBudgetGate checks every material line, counting earlier lines of the same
// item in the form as pending quantity.
func (s *Service) runBudgetGate(ctx context.Context, input CreateInput) ([]BudgetNotice, error) {
	if s.budget == nil || input.FrontSpecialtyID == 0 {
		return nil, nil
	}
	var notices []BudgetNotice
	for i, line := range input.Lines {
		if line.Kind != shared.ItemMaterial {
			continue
		}
		item := line.itemRef()
		var pendingInForm float64
		for _, prev := range input.Lines[:i] {
			if prev.Kind == shared.ItemMaterial && prev.itemRef().Matches(item) {
				pendingInForm += prev.Qty
			}
		}
		result, err := s.budget.Check(ctx, input.FrontSpecialtyID, item, line.Qty, pendingInForm)
		if err != nil {
			return nil, err
		}
		if result.Status != budget.StatusOK {
			notices = append(notices, BudgetNotice{LineIndex: i, Result: result})
		}
		if result.Status == budget.StatusOver && s.hardBlock && !input.ConfirmOverBudget {
			return nil, ErrOverBudget
		}
	}
	return notices, nil
}

// Get returns a requisition with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Requisition, []Line, error) {
	return s.repo.Get(ctx, id)
}

// GetLine returns a single line.
func (s *Service) GetLine(ctx context.Context, id int64) (Line, error) {
	return s.repo.GetLine(ctx, id)
}

// ListByFront lists requisitions raised by a work front.
func (s *Service) ListByFront(ctx context.Context, frontID int64) ([]Requisition, error) {
	return s.repo.ListByFront(ctx, frontID)
}

// CancelLine withdraws a demand line. Lines with receipts cannot be cancelled;
// corrections go through the ledger.
func (s *Service) CancelLine(ctx context.Context, lineID int64) error {
	line, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		return err
	}
	if line.Fulfilled > 0 {
		return ErrValidation
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateLineStatus(ctx, lineID, LineStatusCancelled)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "REQ_LINE_CANCEL", lineID, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "requisition", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
