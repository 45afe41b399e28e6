package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/obrastock/obrastock/internal/allocation"
	"github.com/obrastock/obrastock/internal/requisition"
	"github.com/obrastock/obrastock/internal/shared"
)

// RepositoryPort abstracts ledger persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)
	GetEntry(ctx context.Context, id int64) (Entry, error)
}

// TxRepository exposes writes bound to a transaction. Receipt application
// touches both the ledger and the requisition line cache, so both writes
// live here and commit together.
type TxRepository interface {
	InsertEntry(ctx context.Context, entry Entry) (int64, error)
	UpdateRequisitionLine(ctx context.Context, lineID int64, fulfilled float64, status requisition.LineStatus) error
}

// PipelinePort yields the procurement snapshot for a requisition.
type PipelinePort interface {
	PipelineSnapshot(ctx context.Context, requisitionID int64) ([]allocation.RequestLine, []allocation.Order, error)
}

// RequisitionPort reads requisition state.
type RequisitionPort interface {
	Get(ctx context.Context, id int64) (requisition.Requisition, []requisition.Line, error)
	GetLine(ctx context.Context, id int64) (requisition.Line, error)
}

// FeedPort publishes change notifications consumed by the recompute worker.
type FeedPort interface {
	RequisitionChanged(ctx context.Context, requisitionID int64) error
}

// AuditPort records audit trail entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards replayed receipt postings.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service applies warehouse movements and answers reconciliation queries.
type Service struct {
	repo         RepositoryPort
	pipeline     PipelinePort
	requisitions RequisitionPort
	feed         FeedPort
	audit        AuditPort
	idempotency  IdempotencyPort
	logger       *slog.Logger
}

// NewService constructs ledger service.
func NewService(repo RepositoryPort, pipeline PipelinePort, requisitions RequisitionPort, feed FeedPort, audit AuditPort, idem IdempotencyPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pipeline: pipeline, requisitions: requisitions, feed: feed, audit: audit, idempotency: idem, logger: logger}
}

// ReceiptInput describes an inbound movement. Code is the client-supplied
// document code; replays of the same code are rejected. A code is generated
// when the client sends none, which leaves that posting unguarded.
type ReceiptInput struct {
	RequisitionLineID int64
	Code              string
	Quantity          float64
	Source            SourceType
	OrderID           int64
	Destination       string
	ActorID           int64
}

// ReceiptResult reports the requisition line state after the receipt.
type ReceiptResult struct {
	Entry        Entry
	NewFulfilled float64
	NewStatus    requisition.LineStatus
	Warnings     []allocation.Warning
}

// ApplyReceipt validates an inbound movement against the requisition's open
// balances, then appends the ledger entry and refreshes the fulfilled cache in
// one transaction. Nothing is written when validation fails.
func (s *Service) ApplyReceipt(ctx context.Context, input ReceiptInput) (ReceiptResult, error) {
	if input.Quantity <= 0 {
		return ReceiptResult{}, ErrInvalidQuantity
	}
	line, err := s.requisitions.GetLine(ctx, input.RequisitionLineID)
	if err != nil {
		return ReceiptResult{}, err
	}
	if line.Status == requisition.LineStatusCancelled {
		return ReceiptResult{}, fmt.Errorf("%w: requisition line %d is cancelled", shared.ErrValidation, line.ID)
	}

	requests, orders, err := s.pipeline.PipelineSnapshot(ctx, line.RequisitionID)
	if err != nil {
		return ReceiptResult{}, err
	}
	receipts, err := s.receiptsFor(ctx, line.RequisitionID)
	if err != nil {
		return ReceiptResult{}, err
	}

	var warnings []allocation.Warning
	switch input.Source {
	case SourcePurchaseOrder:
		pending, ws, err := orderPending(line, input.OrderID, requests, orders, receipts)
		warnings = ws
		if err != nil {
			return ReceiptResult{}, err
		}
		if input.Quantity > pending {
			return ReceiptResult{}, fmt.Errorf("%w: pending %.3f, got %.3f", ErrExceedsPending, pending, input.Quantity)
		}
	case SourcePettyCash:
		free, ws, err := allocation.FreeToPurchase(line.Allocation(), requests, orders, receipts)
		if err != nil {
			return ReceiptResult{}, err
		}
		warnings = ws
		if input.Quantity > free {
			return ReceiptResult{}, fmt.Errorf("%w: free %.3f, got %.3f", ErrExceedsFree, free, input.Quantity)
		}
	default:
		return ReceiptResult{}, fmt.Errorf("%w: unknown source %q", shared.ErrValidation, input.Source)
	}

	newFulfilled := line.Fulfilled + input.Quantity
	if newFulfilled > line.Requested {
		warnings = append(warnings, allocation.Warning{
			Code:   allocation.WarnOverFulfilled,
			Detail: fmt.Sprintf("requisition line %d fulfilled %.3f exceeds requested %.3f", line.ID, newFulfilled, line.Requested),
		})
		s.logger.Warn("receipt pushes line over requested",
			"requisition_line_id", line.ID, "fulfilled", newFulfilled, "requested", line.Requested)
	}
	newStatus := requisition.StatusForQuantities(line.Requested, newFulfilled)

	code := input.Code
	if code == "" {
		code = entryCode(input.Source, line.RequisitionID, line.ID)
	}
	entry := Entry{
		Code:          code,
		Direction:     DirectionIn,
		Source:        input.Source,
		Item:          line.Item,
		Quantity:      input.Quantity,
		RequisitionID: line.RequisitionID,
		OrderID:       input.OrderID,
		Destination:   input.Destination,
		PostedAt:      time.Now().UTC(),
		CreatedBy:     input.ActorID,
	}

	key := fmt.Sprintf("RCPT:%s", entry.Code)
	inserted := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "ledger.receipt"); err != nil {
			return ReceiptResult{}, err
		}
		inserted = true
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		return tx.UpdateRequisitionLine(ctx, line.ID, newFulfilled, newStatus)
	})
	if err != nil {
		if inserted {
			_ = s.idempotency.Delete(ctx, key)
		}
		return ReceiptResult{}, err
	}
	s.recordAudit(ctx, input.ActorID, "RECEIPT_APPLY", entry.ID, map[string]any{
		"code": entry.Code, "requisition_line_id": line.ID, "qty": input.Quantity, "source": string(input.Source),
	})
	s.notify(ctx, line.RequisitionID)
	return ReceiptResult{Entry: entry, NewFulfilled: newFulfilled, NewStatus: newStatus, Warnings: warnings}, nil
}

// ExitInput describes an outbound movement to a work front.
type ExitInput struct {
	Item          shared.ItemRef
	Quantity      float64
	RequisitionID int64
	Destination   string
	ActorID       int64
}

// RegisterExit appends an OUT movement. Exits do not feed reconciliation;
// they only document where stock went.
func (s *Service) RegisterExit(ctx context.Context, input ExitInput) (Entry, error) {
	if input.Quantity <= 0 {
		return Entry{}, ErrInvalidQuantity
	}
	if input.Destination == "" {
		return Entry{}, fmt.Errorf("%w: destination required for exit", shared.ErrValidation)
	}
	entry := Entry{
		Code:          fmt.Sprintf("OUT-%s", uuid.NewString()[:8]),
		Direction:     DirectionOut,
		Item:          input.Item,
		Quantity:      input.Quantity,
		RequisitionID: input.RequisitionID,
		Destination:   input.Destination,
		PostedAt:      time.Now().UTC(),
		CreatedBy:     input.ActorID,
	}
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		id, err = tx.InsertEntry(ctx, entry)
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	entry.ID = id
	s.recordAudit(ctx, input.ActorID, "EXIT_REGISTER", entry.ID, map[string]any{"code": entry.Code, "qty": input.Quantity})
	return entry, nil
}

// FreeToPurchase answers how much of a requisition line is still open for a
// new SC or a petty-cash buy.
func (s *Service) FreeToPurchase(ctx context.Context, requisitionLineID int64) (float64, []allocation.Warning, error) {
	line, err := s.requisitions.GetLine(ctx, requisitionLineID)
	if err != nil {
		return 0, nil, err
	}
	requests, orders, err := s.pipeline.PipelineSnapshot(ctx, line.RequisitionID)
	if err != nil {
		return 0, nil, err
	}
	receipts, err := s.receiptsFor(ctx, line.RequisitionID)
	if err != nil {
		return 0, nil, err
	}
	free, warnings, err := allocation.FreeToPurchase(line.Allocation(), requests, orders, receipts)
	if err != nil {
		return 0, nil, err
	}
	return free, warnings, nil
}

// PendingForOrderLine reports how much of an OC line remains undelivered
// after oldest-first allocation of the received quantity.
func (s *Service) PendingForOrderLine(ctx context.Context, requisitionID, orderLineID int64) (float64, error) {
	requests, orders, err := s.pipeline.PipelineSnapshot(ctx, requisitionID)
	if err != nil {
		return 0, err
	}
	receipts, err := s.receiptsFor(ctx, requisitionID)
	if err != nil {
		return 0, err
	}
	for _, o := range orders {
		for _, ol := range o.Lines {
			if ol.ID != orderLineID {
				continue
			}
			req, ok := requestLineByID(requests, ol.RequestLineID)
			if !ok {
				return 0, allocation.ErrLineNotFound
			}
			return allocation.PendingForOrderLine(orderLineID, req, orders, receipts)
		}
	}
	return 0, allocation.ErrLineNotFound
}

// ActiveOrders lists the requisition's purchase orders that still have
// pending quantity, oldest first.
func (s *Service) ActiveOrders(ctx context.Context, requisitionID int64) ([]allocation.Order, []allocation.Warning, error) {
	requests, orders, err := s.pipeline.PipelineSnapshot(ctx, requisitionID)
	if err != nil {
		return nil, nil, err
	}
	receipts, err := s.receiptsFor(ctx, requisitionID)
	if err != nil {
		return nil, nil, err
	}
	active, warnings := allocation.ActiveOrders(orders, requests, receipts)
	return active, warnings, nil
}

// LineRecompute reports one repaired requisition line.
type LineRecompute struct {
	LineID       int64
	OldFulfilled float64
	NewFulfilled float64
	OldStatus    requisition.LineStatus
	NewStatus    requisition.LineStatus
}

// RecomputeFulfilled rebuilds the fulfilled cache of every line of a
// requisition from the ledger and persists the lines that drifted. It is the
// repair path behind the reconcile job.
func (s *Service) RecomputeFulfilled(ctx context.Context, requisitionID int64) ([]LineRecompute, error) {
	_, lines, err := s.requisitions.Get(ctx, requisitionID)
	if err != nil {
		return nil, err
	}
	receipts, err := s.receiptsFor(ctx, requisitionID)
	if err != nil {
		return nil, err
	}
	var changed []LineRecompute
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range lines {
			if line.Status == requisition.LineStatusCancelled {
				continue
			}
			fulfilled := allocation.FulfilledFromReceipts(line.Allocation(), receipts)
			status := requisition.StatusForQuantities(line.Requested, fulfilled)
			if fulfilled == line.Fulfilled && status == line.Status {
				continue
			}
			if err := tx.UpdateRequisitionLine(ctx, line.ID, fulfilled, status); err != nil {
				return err
			}
			changed = append(changed, LineRecompute{
				LineID:       line.ID,
				OldFulfilled: line.Fulfilled,
				NewFulfilled: fulfilled,
				OldStatus:    line.Status,
				NewStatus:    status,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		s.logger.Info("fulfilled cache repaired", "requisition_id", requisitionID, "lines", len(changed))
	}
	return changed, nil
}

// ListEntries lists ledger entries by filter.
func (s *Service) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	return s.repo.ListEntries(ctx, filter)
}

// GetEntry fetches one ledger entry.
func (s *Service) GetEntry(ctx context.Context, id int64) (Entry, error) {
	return s.repo.GetEntry(ctx, id)
}

func (s *Service) receiptsFor(ctx context.Context, requisitionID int64) ([]allocation.Receipt, error) {
	entries, err := s.repo.ListEntries(ctx, EntryFilter{RequisitionID: requisitionID, Direction: DirectionIn})
	if err != nil {
		return nil, err
	}
	receipts := make([]allocation.Receipt, 0, len(entries))
	for _, e := range entries {
		receipts = append(receipts, e.Receipt())
	}
	return receipts, nil
}

// orderPending sums the pending quantity of the target order across the
// requisition's request lines that match the item of the receiving line.
func orderPending(line requisition.Line, orderID int64, requests []allocation.RequestLine, orders []allocation.Order, receipts []allocation.Receipt) (float64, []allocation.Warning, error) {
	if orderID == 0 {
		return 0, nil, fmt.Errorf("%w: order id required for purchase order receipt", shared.ErrValidation)
	}
	var order *allocation.Order
	for i := range orders {
		if orders[i].ID == orderID {
			order = &orders[i]
			break
		}
	}
	if order == nil || order.Status == allocation.OrderStatusCancelled {
		return 0, nil, ErrOrderNotOpen
	}
	var (
		total    float64
		warnings []allocation.Warning
		found    bool
	)
	for _, ol := range order.Lines {
		req, ok := requestLineByID(requests, ol.RequestLineID)
		if !ok || !req.Item.Matches(line.Item) {
			continue
		}
		found = true
		pending, err := allocation.PendingForOrderLine(ol.ID, req, orders, receipts)
		if err != nil {
			warnings = append(warnings, allocation.Warning{
				Code:   allocation.WarnInvalidOrderLine,
				Detail: fmt.Sprintf("order line %d skipped: %v", ol.ID, err),
			})
			continue
		}
		total += pending
	}
	if !found {
		return 0, warnings, fmt.Errorf("%w: order %d has no line for this item", ErrOrderNotOpen, orderID)
	}
	return total, warnings, nil
}

func requestLineByID(requests []allocation.RequestLine, id int64) (allocation.RequestLine, bool) {
	for _, r := range requests {
		if r.ID == id {
			return r, true
		}
	}
	return allocation.RequestLine{}, false
}

func entryCode(source SourceType, requisitionID, lineID int64) string {
	prefix := "RC"
	if source == SourcePettyCash {
		prefix = "CJ"
	}
	return fmt.Sprintf("%s-%d-%d-%s", prefix, requisitionID, lineID, uuid.NewString()[:8])
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "ledger", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func (s *Service) notify(ctx context.Context, requisitionID int64) {
	if s.feed == nil {
		return
	}
	if err := s.feed.RequisitionChanged(ctx, requisitionID); err != nil {
		s.logger.Warn("change feed publish failed", "requisition_id", requisitionID, "err", err)
	}
}
