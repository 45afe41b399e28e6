package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/obrastock/obrastock/internal/allocation"
	"github.com/obrastock/obrastock/internal/requisition"
	"github.com/obrastock/obrastock/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRequest(ctx context.Context, id int64) (PurchaseRequest, []RequestLine, error)
	GetRequestLine(ctx context.Context, id int64) (RequestLine, error)
	GetOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	ListRequestLinesByRequisition(ctx context.Context, requisitionID int64) ([]RequestLine, error)
	ListOrdersByRequisition(ctx context.Context, requisitionID int64) ([]PurchaseOrder, error)
}

// RequisitionPort exposes the requisition lookups procurement validates against.
type RequisitionPort interface {
	GetLine(ctx context.Context, id int64) (requisition.Line, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates SC and OC flows.
type Service struct {
	repo         RepositoryPort
	requisitions RequisitionPort
	audit        AuditPort
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, requisitions RequisitionPort, audit AuditPort) *Service {
	return &Service{repo: repo, requisitions: requisitions, audit: audit}
}

// RequestLineInput selects one requisition line for purchase.
type RequestLineInput struct {
	RequisitionLineID int64
	Qty               float64
}

// CreateRequestInput describes an SC raised from a requisition.
type CreateRequestInput struct {
	RequisitionID int64
	Number        string
	Note          string
	Lines         []RequestLineInput
}

// CreateRequest persists an SC whose lines are approved requisition demand.
func (s *Service) CreateRequest(ctx context.Context, input CreateRequestInput) (PurchaseRequest, []RequestLine, error) {
	if input.RequisitionID == 0 || len(input.Lines) == 0 {
		return PurchaseRequest{}, nil, ErrValidation
	}
	if input.Number == "" {
		input.Number = generateNumber("SC")
	}
	var resolved []RequestLine
	for _, in := range input.Lines {
		if in.Qty <= 0 {
			return PurchaseRequest{}, nil, ErrValidation
		}
		reqLine, err := s.requisitions.GetLine(ctx, in.RequisitionLineID)
		if err != nil {
			return PurchaseRequest{}, nil, err
		}
		if reqLine.RequisitionID != input.RequisitionID || reqLine.Status == requisition.LineStatusCancelled {
			return PurchaseRequest{}, nil, ErrValidation
		}
		resolved = append(resolved, RequestLine{
			RequisitionID:     input.RequisitionID,
			RequisitionLineID: reqLine.ID,
			Item:              reqLine.Item,
			Quantity:          in.Qty,
			Status:            RequestStatusDraft,
		})
	}
	header := PurchaseRequest{
		Number:        input.Number,
		RequisitionID: input.RequisitionID,
		Status:        RequestStatusDraft,
		RequestedAt:   time.Now().UTC(),
		Note:          input.Note,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateRequest(ctx, header)
		if err != nil {
			return err
		}
		header.ID = id
		for i := range resolved {
			resolved[i].RequestID = id
			lineID, err := tx.InsertRequestLine(ctx, resolved[i])
			if err != nil {
				return err
			}
			resolved[i].ID = lineID
		}
		return nil
	})
	if err != nil {
		return PurchaseRequest{}, nil, err
	}
	s.recordAudit(ctx, "SC_CREATE", header.ID, map[string]any{"number": header.Number, "requisition_id": input.RequisitionID})
	return header, resolved, nil
}

// SubmitRequest transitions an SC to SUBMITTED.
func (s *Service) SubmitRequest(ctx context.Context, requestID int64) error {
	req, _, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != RequestStatusDraft {
		return ErrInvalidState
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateRequestStatus(ctx, requestID, RequestStatusSubmitted)
	})
}

// OrderLineInput carries ordered quantity against one SC line.
type OrderLineInput struct {
	RequestLineID int64
	Qty           float64
	Price         float64
}

// CreateOrderInput describes a new OC.
type CreateOrderInput struct {
	Number     string
	SupplierID int64
	OrderDate  time.Time
	Note       string
	Lines      []OrderLineInput
}

// CreateOrder issues an OC against submitted SC lines. Over-ordering relative
// to the SC quantity is allowed; allocation caps receipt credit per line.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (PurchaseOrder, error) {
	if input.SupplierID == 0 || len(input.Lines) == 0 {
		return PurchaseOrder{}, ErrValidation
	}
	if input.Number == "" {
		input.Number = generateNumber("OC")
	}
	if input.OrderDate.IsZero() {
		input.OrderDate = time.Now().UTC()
	}
	order := PurchaseOrder{
		Number:     input.Number,
		SupplierID: input.SupplierID,
		Status:     allocation.OrderStatusIssued,
		OrderDate:  input.OrderDate,
		Note:       input.Note,
	}
	for _, in := range input.Lines {
		if in.Qty <= 0 {
			return PurchaseOrder{}, ErrValidation
		}
		reqLine, err := s.repo.GetRequestLine(ctx, in.RequestLineID)
		if err != nil {
			return PurchaseOrder{}, err
		}
		if reqLine.Status == RequestStatusClosed {
			return PurchaseOrder{}, ErrInvalidState
		}
		order.Lines = append(order.Lines, OrderLine{RequestLineID: in.RequestLineID, Quantity: in.Qty, Price: in.Price})
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		for i := range order.Lines {
			order.Lines[i].OrderID = id
			lineID, err := tx.InsertOrderLine(ctx, order.Lines[i])
			if err != nil {
				return err
			}
			order.Lines[i].ID = lineID
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "OC_CREATE", order.ID, map[string]any{"number": order.Number, "supplier_id": order.SupplierID})
	return order, nil
}

// CancelOrder excludes the OC from every pending and allocation computation.
// Receipts already credited to it reallocate to the surviving orders.
func (s *Service) CancelOrder(ctx context.Context, orderID int64) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status == allocation.OrderStatusCancelled {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateOrderStatus(ctx, orderID, allocation.OrderStatusCancelled)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "OC_CANCEL", orderID, map[string]any{"number": order.Number})
	return nil
}

// MarkOrderReceived closes out a fully received OC.
func (s *Service) MarkOrderReceived(ctx context.Context, orderID int64) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != allocation.OrderStatusIssued {
		return ErrInvalidState
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateOrderStatus(ctx, orderID, allocation.OrderStatusReceived)
	})
}

// GetRequest returns an SC with its lines.
func (s *Service) GetRequest(ctx context.Context, id int64) (PurchaseRequest, []RequestLine, error) {
	return s.repo.GetRequest(ctx, id)
}

// GetOrder returns an OC with its lines.
func (s *Service) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

// PipelineSnapshot fetches the SC lines and orders of a requisition in the
// allocation core's view. This is the read side every reconciliation starts from.
func (s *Service) PipelineSnapshot(ctx context.Context, requisitionID int64) ([]allocation.RequestLine, []allocation.Order, error) {
	reqLines, err := s.repo.ListRequestLinesByRequisition(ctx, requisitionID)
	if err != nil {
		return nil, nil, err
	}
	orders, err := s.repo.ListOrdersByRequisition(ctx, requisitionID)
	if err != nil {
		return nil, nil, err
	}
	requests := make([]allocation.RequestLine, 0, len(reqLines))
	for _, l := range reqLines {
		requests = append(requests, l.Snapshot())
	}
	snapshots := make([]allocation.Order, 0, len(orders))
	for _, o := range orders {
		snapshots = append(snapshots, o.Snapshot())
	}
	return requests, snapshots, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "procurement", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
