package budget

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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

const entryColumns = `id, front_specialty_id, item_kind, COALESCE(item_id,0), COALESCE(description,''), COALESCE(category,''), budgeted_qty, utilized_qty`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.FrontSpecialtyID, &e.Item.Kind, &e.Item.ID, &e.Item.Description, &e.Item.Category, &e.Budgeted, &e.Utilized)
	return e, err
}

// FindForItem fetches the entry for an item, by id when resolved, otherwise by
// the normalized description+category legacy fallback.
func (r *Repository) FindForItem(ctx context.Context, frontSpecialtyID int64, item shared.ItemRef) (Entry, error) {
	var row pgx.Row
	if item.Resolved() {
		row = r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM budget_entries WHERE front_specialty_id=$1 AND item_kind=$2 AND item_id=$3`,
			frontSpecialtyID, item.Kind, item.ID)
	} else {
		row = r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM budget_entries WHERE front_specialty_id=$1 AND item_kind=$2 AND description_norm=$3 AND lower(category)=lower($4)`,
			frontSpecialtyID, item.Kind, shared.NormalizeDescription(item.Description), item.Category)
	}
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return entry, nil
}

// ListByFrontSpecialty returns every entry for a front+specialty.
func (r *Repository) ListByFrontSpecialty(ctx context.Context, frontSpecialtyID int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM budget_entries WHERE front_specialty_id=$1 ORDER BY id`, frontSpecialtyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CreateEntry inserts a budget entry with zero utilization.
func (r *Repository) CreateEntry(ctx context.Context, entry Entry) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO budget_entries (front_specialty_id, item_kind, item_id, description, description_norm, category, budgeted_qty, utilized_qty)
		VALUES ($1, $2, NULLIF($3,0), $4, $5, $6, $7, 0) RETURNING id`,
		entry.FrontSpecialtyID, entry.Item.Kind, entry.Item.ID, entry.Item.Description, shared.NormalizeDescription(entry.Item.Description), entry.Item.Category, entry.Budgeted).Scan(&id)
	return id, err
}

// AddUtilization accumulates utilized quantity. The column only grows.
func (r *Repository) AddUtilization(ctx context.Context, id int64, qty float64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE budget_entries SET utilized_qty = utilized_qty + $2 WHERE id=$1`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
