package procurement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obrastock/obrastock/internal/allocation"
	"github.com/obrastock/obrastock/internal/platform/db"
	"github.com/obrastock/obrastock/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreateRequest(ctx context.Context, req PurchaseRequest) (int64, error)
	InsertRequestLine(ctx context.Context, line RequestLine) (int64, error)
	UpdateRequestStatus(ctx context.Context, id int64, status RequestStatus) error
	CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error)
	InsertOrderLine(ctx context.Context, line OrderLine) (int64, error)
	UpdateOrderStatus(ctx context.Context, id int64, status allocation.OrderStatus) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const requestLineColumns = `l.id, l.request_id, r.requisition_id, COALESCE(l.requisition_line_id,0), l.item_kind, COALESCE(l.item_id,0), COALESCE(l.description,''), COALESCE(l.category,''), l.qty, l.status`

func scanRequestLine(row pgx.Row) (RequestLine, error) {
	var line RequestLine
	err := row.Scan(&line.ID, &line.RequestID, &line.RequisitionID, &line.RequisitionLineID, &line.Item.Kind, &line.Item.ID, &line.Item.Description, &line.Item.Category, &line.Quantity, &line.Status)
	return line, err
}

// GetRequest returns a purchase request and its lines.
func (r *Repository) GetRequest(ctx context.Context, id int64) (PurchaseRequest, []RequestLine, error) {
	var req PurchaseRequest
	err := r.pool.QueryRow(ctx, `SELECT id, number, requisition_id, status, requested_at, note FROM purchase_requests WHERE id=$1`, id).
		Scan(&req.ID, &req.Number, &req.RequisitionID, &req.Status, &req.RequestedAt, &req.Note)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRequest{}, nil, ErrNotFound
		}
		return PurchaseRequest{}, nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+requestLineColumns+` FROM purchase_request_lines l JOIN purchase_requests r ON r.id = l.request_id WHERE l.request_id=$1 ORDER BY l.id`, id)
	if err != nil {
		return PurchaseRequest{}, nil, err
	}
	defer rows.Close()
	var lines []RequestLine
	for rows.Next() {
		line, err := scanRequestLine(rows)
		if err != nil {
			return PurchaseRequest{}, nil, err
		}
		lines = append(lines, line)
	}
	return req, lines, rows.Err()
}

// GetRequestLine returns a single SC line.
func (r *Repository) GetRequestLine(ctx context.Context, id int64) (RequestLine, error) {
	line, err := scanRequestLine(r.pool.QueryRow(ctx, `SELECT `+requestLineColumns+` FROM purchase_request_lines l JOIN purchase_requests r ON r.id = l.request_id WHERE l.id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RequestLine{}, ErrNotFound
		}
		return RequestLine{}, err
	}
	return line, nil
}

// GetOrder returns a purchase order with its lines.
func (r *Repository) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	var order PurchaseOrder
	err := r.pool.QueryRow(ctx, `SELECT id, number, supplier_id, status, order_date, note FROM purchase_orders WHERE id=$1`, id).
		Scan(&order.ID, &order.Number, &order.SupplierID, &order.Status, &order.OrderDate, &order.Note)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	lines, err := r.orderLines(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	order.Lines = lines
	return order, nil
}

func (r *Repository) orderLines(ctx context.Context, orderID int64) ([]OrderLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, request_line_id, qty, price FROM purchase_order_lines WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []OrderLine
	for rows.Next() {
		var line OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.RequestLineID, &line.Quantity, &line.Price); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ListRequestLinesByRequisition returns every SC line sourced from a requisition.
func (r *Repository) ListRequestLinesByRequisition(ctx context.Context, requisitionID int64) ([]RequestLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestLineColumns+` FROM purchase_request_lines l JOIN purchase_requests r ON r.id = l.request_id WHERE r.requisition_id=$1 ORDER BY l.id`, requisitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []RequestLine
	for rows.Next() {
		line, err := scanRequestLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ListOrdersByRequisition returns, with nested lines, every OC that references
// an SC line of the requisition.
func (r *Repository) ListOrdersByRequisition(ctx context.Context, requisitionID int64) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT o.id, o.number, o.supplier_id, o.status, o.order_date, o.note
		FROM purchase_orders o
		JOIN purchase_order_lines ol ON ol.order_id = o.id
		JOIN purchase_request_lines l ON l.id = ol.request_line_id
		JOIN purchase_requests r ON r.id = l.request_id
		WHERE r.requisition_id=$1 ORDER BY o.order_date, o.id`, requisitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []PurchaseOrder
	for rows.Next() {
		var order PurchaseOrder
		if err := rows.Scan(&order.ID, &order.Number, &order.SupplierID, &order.Status, &order.OrderDate, &order.Note); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		lines, err := r.orderLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

func (tx *txRepo) CreateRequest(ctx context.Context, req PurchaseRequest) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_requests (number, requisition_id, status, requested_at, note) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		req.Number, req.RequisitionID, req.Status, req.RequestedAt, req.Note).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertRequestLine(ctx context.Context, line RequestLine) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_request_lines (request_id, requisition_line_id, item_kind, item_id, description, description_norm, category, qty, status)
		VALUES ($1, NULLIF($2,0), $3, NULLIF($4,0), $5, $6, $7, $8, $9) RETURNING id`,
		line.RequestID, line.RequisitionLineID, line.Item.Kind, line.Item.ID, line.Item.Description, shared.NormalizeDescription(line.Item.Description), line.Item.Category, line.Quantity, line.Status).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdateRequestStatus(ctx context.Context, id int64, status RequestStatus) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE purchase_requests SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *txRepo) CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_orders (number, supplier_id, status, order_date, note) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		order.Number, order.SupplierID, order.Status, order.OrderDate, order.Note).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertOrderLine(ctx context.Context, line OrderLine) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_order_lines (order_id, request_line_id, qty, price) VALUES ($1, $2, $3, $4) RETURNING id`,
		line.OrderID, line.RequestLineID, line.Quantity, line.Price).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdateOrderStatus(ctx context.Context, id int64, status allocation.OrderStatus) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
