package materials

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obrastock/obrastock/internal/masterdata/shared"
	internalshared "github.com/obrastock/obrastock/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Material, int, error)
	Get(ctx context.Context, id int64) (Material, error)
	Create(ctx context.Context, material Material) (Material, error)
	Update(ctx context.Context, id int64, material Material) error
	Deactivate(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, code, name, kind, category, unit, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Material, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if filters.Kind != "" {
		args = append(args, filters.Kind)
		where += ` AND kind = $` + strconv.Itoa(len(args))
	}
	if filters.Category != "" {
		args = append(args, filters.Category)
		where += ` AND category = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+internalshared.NormalizeDescription(filters.Search)+"%")
		where += ` AND (name_norm LIKE $` + strconv.Itoa(len(args)) + ` OR code ILIKE $` + strconv.Itoa(len(args)) + `)`
	}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		where += ` AND is_active = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM materials`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + columns + ` FROM materials` + where + ` ORDER BY name`
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.Kind, &m.Category, &m.Unit, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Material, error) {
	var m Material
	err := r.db.QueryRow(ctx, `SELECT `+columns+` FROM materials WHERE id = $1`, id).
		Scan(&m.ID, &m.Code, &m.Name, &m.Kind, &m.Category, &m.Unit, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Material{}, shared.ErrNotFound
	}
	return m, err
}

func (r *repository) Create(ctx context.Context, material Material) (Material, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO materials (code, name, name_norm, kind, category, unit, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`,
		material.Code, material.Name, internalshared.NormalizeDescription(material.Name), material.Kind, material.Category, material.Unit, material.IsActive, now).Scan(&material.ID)
	if err != nil {
		return Material{}, err
	}
	material.CreatedAt = now
	material.UpdatedAt = now
	return material, nil
}

func (r *repository) Update(ctx context.Context, id int64, material Material) error {
	tag, err := r.db.Exec(ctx, `UPDATE materials SET code = $1, name = $2, name_norm = $3, kind = $4, category = $5, unit = $6, is_active = $7, updated_at = $8 WHERE id = $9`,
		material.Code, material.Name, internalshared.NormalizeDescription(material.Name), material.Kind, material.Category, material.Unit, material.IsActive, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes: catalog rows referenced by requisitions must stay.
func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE materials SET is_active = FALSE, updated_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
