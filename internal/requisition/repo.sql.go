package requisition

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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
	CreateRequisition(ctx context.Context, req Requisition) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	UpdateLineStatus(ctx context.Context, id int64, status LineStatus) error
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

const lineColumns = `id, requisition_id, item_kind, COALESCE(item_id,0), COALESCE(description,''), COALESCE(category,''), unit, requested_qty, fulfilled_qty, status`

func scanLine(row pgx.Row) (Line, error) {
	var line Line
	err := row.Scan(&line.ID, &line.RequisitionID, &line.Item.Kind, &line.Item.ID, &line.Item.Description, &line.Item.Category, &line.Unit, &line.Requested, &line.Fulfilled, &line.Status)
	return line, err
}

// Get returns a requisition header and its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Requisition, []Line, error) {
	var req Requisition
	err := r.pool.QueryRow(ctx, `SELECT id, number, front_id, COALESCE(block_id,0), COALESCE(specialty_id,0), requested_by, requested_at, status, note FROM requisitions WHERE id=$1`, id).
		Scan(&req.ID, &req.Number, &req.FrontID, &req.BlockID, &req.SpecialtyID, &req.RequestedBy, &req.RequestedAt, &req.Status, &req.Note)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Requisition{}, nil, ErrNotFound
		}
		return Requisition{}, nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+lineColumns+` FROM requisition_lines WHERE requisition_id=$1 ORDER BY id`, id)
	if err != nil {
		return Requisition{}, nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return Requisition{}, nil, err
		}
		lines = append(lines, line)
	}
	return req, lines, rows.Err()
}

// GetLine returns a single requisition line.
func (r *Repository) GetLine(ctx context.Context, id int64) (Line, error) {
	line, err := scanLine(r.pool.QueryRow(ctx, `SELECT `+lineColumns+` FROM requisition_lines WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Line{}, ErrNotFound
		}
		return Line{}, err
	}
	return line, nil
}

// ListOpenIDs returns the ids of every open requisition, for the reconcile sweep.
func (r *Repository) ListOpenIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM requisitions WHERE status=$1 ORDER BY id`, StatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByFront lists requisition headers raised by a front, newest first.
func (r *Repository) ListByFront(ctx context.Context, frontID int64) ([]Requisition, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, number, front_id, COALESCE(block_id,0), COALESCE(specialty_id,0), requested_by, requested_at, status, note FROM requisitions WHERE front_id=$1 ORDER BY requested_at DESC, id DESC`, frontID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reqs []Requisition
	for rows.Next() {
		var req Requisition
		if err := rows.Scan(&req.ID, &req.Number, &req.FrontID, &req.BlockID, &req.SpecialtyID, &req.RequestedBy, &req.RequestedAt, &req.Status, &req.Note); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (tx *txRepo) CreateRequisition(ctx context.Context, req Requisition) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO requisitions (number, front_id, block_id, specialty_id, requested_by, requested_at, status, note)
		VALUES ($1, $2, NULLIF($3,0), NULLIF($4,0), $5, $6, $7, $8) RETURNING id`,
		req.Number, req.FrontID, req.BlockID, req.SpecialtyID, req.RequestedBy, req.RequestedAt, req.Status, req.Note).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertLine(ctx context.Context, line Line) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO requisition_lines (requisition_id, item_kind, item_id, description, description_norm, category, unit, requested_qty, fulfilled_qty, status)
		VALUES ($1, $2, NULLIF($3,0), $4, $5, $6, $7, $8, 0, $9) RETURNING id`,
		line.RequisitionID, line.Item.Kind, line.Item.ID, line.Item.Description, shared.NormalizeDescription(line.Item.Description), line.Item.Category, line.Unit, line.Requested, line.Status).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdateLineStatus(ctx context.Context, id int64, status LineStatus) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE requisition_lines SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
