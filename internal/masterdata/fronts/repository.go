package fronts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obrastock/obrastock/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context) ([]Front, error)
	Get(ctx context.Context, id int64) (Front, []Block, error)
	Create(ctx context.Context, front Front) (Front, error)
	AddBlock(ctx context.Context, block Block) (Block, error)
	ListSpecialties(ctx context.Context) ([]Specialty, error)
	LinkSpecialty(ctx context.Context, frontID, specialtyID int64) (FrontSpecialty, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Front, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, is_active, created_at FROM fronts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Front
	for rows.Next() {
		var f Front
		if err := rows.Scan(&f.ID, &f.Code, &f.Name, &f.IsActive, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Front, []Block, error) {
	var f Front
	err := r.db.QueryRow(ctx, `SELECT id, code, name, is_active, created_at FROM fronts WHERE id = $1`, id).
		Scan(&f.ID, &f.Code, &f.Name, &f.IsActive, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Front{}, nil, shared.ErrNotFound
	}
	if err != nil {
		return Front{}, nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, front_id, code, name FROM front_blocks WHERE front_id = $1 ORDER BY code`, id)
	if err != nil {
		return Front{}, nil, err
	}
	defer rows.Close()
	var blocks []Block
	for rows.Next() {
		var b Block
		if err := rows.Scan(&b.ID, &b.FrontID, &b.Code, &b.Name); err != nil {
			return Front{}, nil, err
		}
		blocks = append(blocks, b)
	}
	return f, blocks, rows.Err()
}

func (r *repository) Create(ctx context.Context, front Front) (Front, error) {
	front.CreatedAt = time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO fronts (code, name, is_active, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		front.Code, front.Name, front.IsActive, front.CreatedAt).Scan(&front.ID)
	if err != nil {
		return Front{}, err
	}
	return front, nil
}

func (r *repository) AddBlock(ctx context.Context, block Block) (Block, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO front_blocks (front_id, code, name) VALUES ($1, $2, $3) RETURNING id`,
		block.FrontID, block.Code, block.Name).Scan(&block.ID)
	if err != nil {
		return Block{}, err
	}
	return block, nil
}

func (r *repository) ListSpecialties(ctx context.Context) ([]Specialty, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name FROM specialties ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Specialty
	for rows.Next() {
		var s Specialty
		if err := rows.Scan(&s.ID, &s.Code, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) LinkSpecialty(ctx context.Context, frontID, specialtyID int64) (FrontSpecialty, error) {
	link := FrontSpecialty{FrontID: frontID, SpecialtyID: specialtyID}
	err := r.db.QueryRow(ctx, `INSERT INTO front_specialties (front_id, specialty_id) VALUES ($1, $2)
		ON CONFLICT (front_id, specialty_id) DO UPDATE SET front_id = EXCLUDED.front_id RETURNING id`,
		frontID, specialtyID).Scan(&link.ID)
	if err != nil {
		return FrontSpecialty{}, err
	}
	return link, nil
}
