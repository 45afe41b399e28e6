package fronts

import (
	"context"
	"fmt"
	"strings"

	"github.com/obrastock/obrastock/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Front, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Front, []Block, error) {
	if id <= 0 {
		return Front{}, nil, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, front Front) (Front, error) {
	if strings.TrimSpace(front.Code) == "" {
		return Front{}, fmt.Errorf("%w: code", shared.ErrRequiredField)
	}
	if strings.TrimSpace(front.Name) == "" {
		return Front{}, fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	front.IsActive = true
	return s.repo.Create(ctx, front)
}

func (s *Service) AddBlock(ctx context.Context, block Block) (Block, error) {
	if block.FrontID <= 0 {
		return Block{}, shared.ErrInvalidID
	}
	if strings.TrimSpace(block.Code) == "" {
		return Block{}, fmt.Errorf("%w: code", shared.ErrRequiredField)
	}
	return s.repo.AddBlock(ctx, block)
}

func (s *Service) ListSpecialties(ctx context.Context) ([]Specialty, error) {
	return s.repo.ListSpecialties(ctx)
}

func (s *Service) LinkSpecialty(ctx context.Context, frontID, specialtyID int64) (FrontSpecialty, error) {
	if frontID <= 0 || specialtyID <= 0 {
		return FrontSpecialty{}, shared.ErrInvalidID
	}
	return s.repo.LinkSpecialty(ctx, frontID, specialtyID)
}
