package ledger

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obrastock/obrastock/internal/platform/db"
	"github.com/obrastock/obrastock/internal/requisition"
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

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const entryColumns = `id, code, direction, source_type, item_kind, COALESCE(item_id,0), COALESCE(description,''), COALESCE(category,''), qty, requisition_id, COALESCE(order_id,0), COALESCE(destination,''), posted_at, created_by`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Code, &e.Direction, &e.Source, &e.Item.Kind, &e.Item.ID, &e.Item.Description, &e.Item.Category, &e.Quantity, &e.RequisitionID, &e.OrderID, &e.Destination, &e.PostedAt, &e.CreatedBy)
	return e, err
}

// GetEntry returns one ledger entry.
func (r *Repository) GetEntry(ctx context.Context, id int64) (Entry, error) {
	e, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM warehouse_entries WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

// ListEntries lists movements by filter, oldest first so replays are stable.
func (r *Repository) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM warehouse_entries WHERE 1=1`
	args := []any{}
	if filter.RequisitionID != 0 {
		args = append(args, filter.RequisitionID)
		query += ` AND requisition_id=$1`
	}
	if filter.Direction != "" {
		args = append(args, filter.Direction)
		query += ` AND direction=$` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY posted_at, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (tx *txRepo) InsertEntry(ctx context.Context, e Entry) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO warehouse_entries
		(code, direction, source_type, item_kind, item_id, description, description_norm, category, qty, requisition_id, order_id, destination, posted_at, created_by)
		VALUES ($1, $2, NULLIF($3,''), $4, NULLIF($5,0), $6, $7, $8, $9, $10, NULLIF($11,0), $12, $13, $14) RETURNING id`,
		e.Code, e.Direction, string(e.Source), e.Item.Kind, e.Item.ID, e.Item.Description, shared.NormalizeDescription(e.Item.Description), e.Item.Category, e.Quantity, e.RequisitionID, e.OrderID, e.Destination, e.PostedAt, e.CreatedBy).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdateRequisitionLine(ctx context.Context, lineID int64, fulfilled float64, status requisition.LineStatus) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE requisition_lines SET fulfilled_qty=$2, status=$3 WHERE id=$1`, lineID, fulfilled, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return requisition.ErrNotFound
	}
	return nil
}
