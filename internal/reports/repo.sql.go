package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLRepository runs the report aggregations against PostgreSQL.
type SQLRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *SQLRepository {
	return &SQLRepository{pool: pool}
}

// StockSummary groups the ledger by item. Legacy rows without a master-data id
// group by normalized description and category instead.
func (r *SQLRepository) StockSummary(ctx context.Context, filter StockFilter) ([]StockRow, error) {
	query := `SELECT e.item_kind,
		COALESCE(e.item_id, 0),
		MIN(COALESCE(e.description, '')),
		COALESCE(e.category, ''),
		COALESCE(SUM(e.qty) FILTER (WHERE e.direction = 'IN'), 0) AS in_qty,
		COALESCE(SUM(e.qty) FILTER (WHERE e.direction = 'OUT'), 0) AS out_qty
	FROM warehouse_entries e
	LEFT JOIN requisitions r ON r.id = e.requisition_id
	WHERE ($1 = '' OR e.category = $1)
	  AND ($2::bigint = 0 OR r.front_id = $2)
	GROUP BY e.item_kind, COALESCE(e.item_id, 0), COALESCE(e.description_norm, ''), COALESCE(e.category, '')
	ORDER BY e.item_kind, MIN(COALESCE(e.description, ''))`
	rows, err := r.pool.Query(ctx, query, filter.Category, filter.FrontID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockRow
	for rows.Next() {
		var row StockRow
		if err := rows.Scan(&row.ItemKind, &row.ItemID, &row.Description, &row.Category, &row.InQty, &row.OutQty); err != nil {
			return nil, err
		}
		row.OnHand = row.InQty - row.OutQty
		out = append(out, row)
	}
	return out, rows.Err()
}

// FrontConsumption groups outbound movements by destination for a front.
func (r *SQLRepository) FrontConsumption(ctx context.Context, frontID int64) ([]ConsumptionRow, error) {
	query := `SELECT COALESCE(e.destination, ''), e.item_kind, MIN(COALESCE(e.description, '')), SUM(e.qty)
	FROM warehouse_entries e
	JOIN requisitions r ON r.id = e.requisition_id
	WHERE e.direction = 'OUT' AND r.front_id = $1
	GROUP BY COALESCE(e.destination, ''), e.item_kind, COALESCE(e.description_norm, '')
	ORDER BY 1, 3`
	rows, err := r.pool.Query(ctx, query, frontID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ConsumptionRow
	for rows.Next() {
		var row ConsumptionRow
		if err := rows.Scan(&row.Destination, &row.ItemKind, &row.Description, &row.Qty); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
