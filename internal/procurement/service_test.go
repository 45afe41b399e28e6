package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/obrastock/obrastock/internal/allocation"
	"github.com/obrastock/obrastock/internal/requisition"
	"github.com/obrastock/obrastock/internal/shared"
)

type memoryProcRepo struct {
	requests     map[int64]PurchaseRequest
	requestLines map[int64]RequestLine
	orders       map[int64]PurchaseOrder
	orderLines   map[int64]OrderLine
	nextID       int64
}

type memoryProcTx struct {
	repo *memoryProcRepo
}

func newMemoryProcRepo() *memoryProcRepo {
	return &memoryProcRepo{
		requests:     make(map[int64]PurchaseRequest),
		requestLines: make(map[int64]RequestLine),
		orders:       make(map[int64]PurchaseOrder),
		orderLines:   make(map[int64]OrderLine),
	}
}

func (r *memoryProcRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryProcTx{repo: r})
}

func (r *memoryProcRepo) GetRequest(ctx context.Context, id int64) (PurchaseRequest, []RequestLine, error) {
	req, ok := r.requests[id]
	if !ok {
		return PurchaseRequest{}, nil, ErrNotFound
	}
	var lines []RequestLine
	for _, l := range r.requestLines {
		if l.RequestID == id {
			lines = append(lines, l)
		}
	}
	return req, lines, nil
}

func (r *memoryProcRepo) GetRequestLine(ctx context.Context, id int64) (RequestLine, error) {
	line, ok := r.requestLines[id]
	if !ok {
		return RequestLine{}, ErrNotFound
	}
	return line, nil
}

func (r *memoryProcRepo) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	order, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	order.Lines = nil
	for _, l := range r.orderLines {
		if l.OrderID == id {
			order.Lines = append(order.Lines, l)
		}
	}
	return order, nil
}

func (r *memoryProcRepo) ListRequestLinesByRequisition(ctx context.Context, requisitionID int64) ([]RequestLine, error) {
	var lines []RequestLine
	for _, l := range r.requestLines {
		if l.RequisitionID == requisitionID {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (r *memoryProcRepo) ListOrdersByRequisition(ctx context.Context, requisitionID int64) ([]PurchaseOrder, error) {
	lineIDs := make(map[int64]bool)
	for _, l := range r.requestLines {
		if l.RequisitionID == requisitionID {
			lineIDs[l.ID] = true
		}
	}
	seen := make(map[int64]bool)
	var orders []PurchaseOrder
	for _, ol := range r.orderLines {
		if !lineIDs[ol.RequestLineID] || seen[ol.OrderID] {
			continue
		}
		seen[ol.OrderID] = true
		order, err := r.GetOrder(ctx, ol.OrderID)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (tx *memoryProcTx) nextID() int64 {
	tx.repo.nextID++
	return tx.repo.nextID
}

func (tx *memoryProcTx) CreateRequest(ctx context.Context, req PurchaseRequest) (int64, error) {
	id := tx.nextID()
	req.ID = id
	tx.repo.requests[id] = req
	return id, nil
}

func (tx *memoryProcTx) InsertRequestLine(ctx context.Context, line RequestLine) (int64, error) {
	id := tx.nextID()
	line.ID = id
	tx.repo.requestLines[id] = line
	return id, nil
}

func (tx *memoryProcTx) UpdateRequestStatus(ctx context.Context, id int64, status RequestStatus) error {
	req, ok := tx.repo.requests[id]
	if !ok {
		return ErrNotFound
	}
	req.Status = status
	tx.repo.requests[id] = req
	return nil
}

func (tx *memoryProcTx) CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error) {
	id := tx.nextID()
	order.ID = id
	tx.repo.orders[id] = order
	return id, nil
}

func (tx *memoryProcTx) InsertOrderLine(ctx context.Context, line OrderLine) (int64, error) {
	id := tx.nextID()
	line.ID = id
	tx.repo.orderLines[id] = line
	return id, nil
}

func (tx *memoryProcTx) UpdateOrderStatus(ctx context.Context, id int64, status allocation.OrderStatus) error {
	order, ok := tx.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	tx.repo.orders[id] = order
	return nil
}

type stubRequisitions struct {
	lines map[int64]requisition.Line
}

func (s *stubRequisitions) GetLine(ctx context.Context, id int64) (requisition.Line, error) {
	line, ok := s.lines[id]
	if !ok {
		return requisition.Line{}, requisition.ErrNotFound
	}
	return line, nil
}

var cemento = shared.ItemRef{Kind: shared.ItemMaterial, ID: 7, Description: "Cemento Portland"}

func TestProcurementFlow(t *testing.T) {
	repo := newMemoryProcRepo()
	reqs := &stubRequisitions{lines: map[int64]requisition.Line{
		40: {ID: 40, RequisitionID: 1, Item: cemento, Requested: 50, Status: requisition.LineStatusPending},
	}}
	svc := NewService(repo, reqs, nil)
	ctx := context.Background()

	sc, scLines, err := svc.CreateRequest(ctx, CreateRequestInput{
		RequisitionID: 1,
		Lines:         []RequestLineInput{{RequisitionLineID: 40, Qty: 50}},
	})
	require.NoError(t, err)
	require.NotZero(t, sc.ID)
	require.Len(t, scLines, 1)
	require.Equal(t, cemento, scLines[0].Item)
	require.Equal(t, int64(1), scLines[0].RequisitionID)

	require.NoError(t, svc.SubmitRequest(ctx, sc.ID))
	require.ErrorIs(t, svc.SubmitRequest(ctx, sc.ID), ErrInvalidState)

	oc, err := svc.CreateOrder(ctx, CreateOrderInput{
		SupplierID: 3,
		OrderDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines:      []OrderLineInput{{RequestLineID: scLines[0].ID, Qty: 30, Price: 28.5}},
	})
	require.NoError(t, err)
	require.Equal(t, allocation.OrderStatusIssued, oc.Status)
	require.Len(t, oc.Lines, 1)

	requests, orders, err := svc.PipelineSnapshot(ctx, 1)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Len(t, orders, 1)
	require.Equal(t, scLines[0].ID, orders[0].Lines[0].RequestLineID)

	require.NoError(t, svc.CancelOrder(ctx, oc.ID))
	cancelled, err := svc.GetOrder(ctx, oc.ID)
	require.NoError(t, err)
	require.Equal(t, allocation.OrderStatusCancelled, cancelled.Status)
	require.ErrorIs(t, svc.CancelOrder(ctx, oc.ID), ErrInvalidState)
}

func TestCreateRequestValidation(t *testing.T) {
	repo := newMemoryProcRepo()
	reqs := &stubRequisitions{lines: map[int64]requisition.Line{
		40: {ID: 40, RequisitionID: 1, Item: cemento, Requested: 50, Status: requisition.LineStatusPending},
		41: {ID: 41, RequisitionID: 2, Item: cemento, Requested: 10, Status: requisition.LineStatusPending},
		42: {ID: 42, RequisitionID: 1, Item: cemento, Requested: 10, Status: requisition.LineStatusCancelled},
	}}
	svc := NewService(repo, reqs, nil)
	ctx := context.Background()

	_, _, err := svc.CreateRequest(ctx, CreateRequestInput{RequisitionID: 1})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.CreateRequest(ctx, CreateRequestInput{RequisitionID: 1, Lines: []RequestLineInput{{RequisitionLineID: 40, Qty: 0}}})
	require.ErrorIs(t, err, ErrValidation)

	// Line from another requisition.
	_, _, err = svc.CreateRequest(ctx, CreateRequestInput{RequisitionID: 1, Lines: []RequestLineInput{{RequisitionLineID: 41, Qty: 5}}})
	require.ErrorIs(t, err, ErrValidation)

	// Cancelled demand cannot be sourced.
	_, _, err = svc.CreateRequest(ctx, CreateRequestInput{RequisitionID: 1, Lines: []RequestLineInput{{RequisitionLineID: 42, Qty: 5}}})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.CreateRequest(ctx, CreateRequestInput{RequisitionID: 1, Lines: []RequestLineInput{{RequisitionLineID: 99, Qty: 5}}})
	require.ErrorIs(t, err, requisition.ErrNotFound)
}

func TestCreateOrderValidation(t *testing.T) {
	repo := newMemoryProcRepo()
	reqs := &stubRequisitions{lines: map[int64]requisition.Line{
		40: {ID: 40, RequisitionID: 1, Item: cemento, Requested: 50, Status: requisition.LineStatusPending},
	}}
	svc := NewService(repo, reqs, nil)
	ctx := context.Background()

	_, scLines, err := svc.CreateRequest(ctx, CreateRequestInput{RequisitionID: 1, Lines: []RequestLineInput{{RequisitionLineID: 40, Qty: 50}}})
	require.NoError(t, err)

	_, err = svc.CreateOrder(ctx, CreateOrderInput{SupplierID: 3, Lines: []OrderLineInput{{RequestLineID: scLines[0].ID, Qty: -1}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateOrder(ctx, CreateOrderInput{SupplierID: 0, Lines: []OrderLineInput{{RequestLineID: scLines[0].ID, Qty: 5}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateOrder(ctx, CreateOrderInput{SupplierID: 3, Lines: []OrderLineInput{{RequestLineID: 999, Qty: 5}}})
	require.ErrorIs(t, err, ErrNotFound)

	// Over-ordering beyond the SC quantity is allowed.
	oc, err := svc.CreateOrder(ctx, CreateOrderInput{SupplierID: 3, Lines: []OrderLineInput{{RequestLineID: scLines[0].ID, Qty: 80}}})
	require.NoError(t, err)
	require.Equal(t, 80.0, oc.Lines[0].Quantity)
}
