package requisition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obrastock/obrastock/internal/budget"
	"github.com/obrastock/obrastock/internal/shared"
)

type memoryReqRepo struct {
	reqs   map[int64]Requisition
	lines  map[int64]Line
	nextID int64
}

type memoryReqTx struct {
	repo *memoryReqRepo
}

func newMemoryReqRepo() *memoryReqRepo {
	return &memoryReqRepo{reqs: make(map[int64]Requisition), lines: make(map[int64]Line)}
}

func (r *memoryReqRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryReqTx{repo: r})
}

func (r *memoryReqRepo) Get(ctx context.Context, id int64) (Requisition, []Line, error) {
	req, ok := r.reqs[id]
	if !ok {
		return Requisition{}, nil, ErrNotFound
	}
	var lines []Line
	for _, l := range r.lines {
		if l.RequisitionID == id {
			lines = append(lines, l)
		}
	}
	return req, lines, nil
}

func (r *memoryReqRepo) GetLine(ctx context.Context, id int64) (Line, error) {
	line, ok := r.lines[id]
	if !ok {
		return Line{}, ErrNotFound
	}
	return line, nil
}

func (r *memoryReqRepo) ListByFront(ctx context.Context, frontID int64) ([]Requisition, error) {
	var out []Requisition
	for _, req := range r.reqs {
		if req.FrontID == frontID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (tx *memoryReqTx) CreateRequisition(ctx context.Context, req Requisition) (int64, error) {
	tx.repo.nextID++
	req.ID = tx.repo.nextID
	tx.repo.reqs[req.ID] = req
	return req.ID, nil
}

func (tx *memoryReqTx) InsertLine(ctx context.Context, line Line) (int64, error) {
	tx.repo.nextID++
	line.ID = tx.repo.nextID
	tx.repo.lines[line.ID] = line
	return line.ID, nil
}

func (tx *memoryReqTx) UpdateLineStatus(ctx context.Context, id int64, status LineStatus) error {
	line, ok := tx.repo.lines[id]
	if !ok {
		return ErrNotFound
	}
	line.Status = status
	tx.repo.lines[id] = line
	return nil
}

type stubBudget struct {
	results  map[int64]budget.CheckResult
	consumed []float64
	checks   []float64 // pendingInForm per check, in call order
}

func (s *stubBudget) Check(ctx context.Context, frontSpecialtyID int64, item shared.ItemRef, requested, pendingInForm float64) (budget.CheckResult, error) {
	s.checks = append(s.checks, pendingInForm)
	if res, ok := s.results[item.ID]; ok {
		return res, nil
	}
	return budget.CheckResult{Status: budget.StatusOK}, nil
}

func (s *stubBudget) Consume(ctx context.Context, frontSpecialtyID int64, item shared.ItemRef, qty float64) error {
	s.consumed = append(s.consumed, qty)
	return nil
}

func materialLine(itemID int64, qty float64) LineInput {
	return LineInput{Kind: shared.ItemMaterial, ItemID: itemID, Description: "Cemento", Unit: "bolsa", Qty: qty}
}

func TestCreateRequisition(t *testing.T) {
	repo := newMemoryReqRepo()
	bp := &stubBudget{}
	svc := NewService(repo, bp, nil, ServiceConfig{})
	ctx := context.Background()

	result, err := svc.Create(ctx, CreateInput{
		FrontID:          1,
		FrontSpecialtyID: 5,
		RequestedBy:      9,
		Lines:            []LineInput{materialLine(7, 50), {Kind: shared.ItemService, Description: "Flete", Unit: "viaje", Qty: 2}},
	})
	require.NoError(t, err)
	require.NotZero(t, result.Requisition.ID)
	require.Len(t, result.Lines, 2)
	require.Equal(t, LineStatusPending, result.Lines[0].Status)
	require.NotEmpty(t, result.Requisition.Number)

	// Budget gate and consumption apply to the material line only.
	require.Len(t, bp.checks, 1)
	require.Equal(t, []float64{50}, bp.consumed)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryReqRepo(), nil, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{FrontID: 1, RequestedBy: 9})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{FrontID: 1, RequestedBy: 9, Lines: []LineInput{materialLine(7, 0)}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{FrontID: 1, RequestedBy: 9, Lines: []LineInput{{Kind: shared.ItemMaterial, Unit: "u", Qty: 3}}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreatePendingInFormAccumulates(t *testing.T) {
	repo := newMemoryReqRepo()
	bp := &stubBudget{}
	svc := NewService(repo, bp, nil, ServiceConfig{})

	_, err := svc.Create(context.Background(), CreateInput{
		FrontID:          1,
		FrontSpecialtyID: 5,
		RequestedBy:      9,
		Lines:            []LineInput{materialLine(7, 10), materialLine(7, 15), materialLine(7, 5)},
	})
	require.NoError(t, err)
	require.Equal(t, []float64{0, 10, 25}, bp.checks)
}

func TestCreateOverBudgetPolicy(t *testing.T) {
	over := map[int64]budget.CheckResult{7: {Status: budget.StatusOver, Projected: 105, Budgeted: 100}}

	t.Run("soft mode passes through with notice", func(t *testing.T) {
		bp := &stubBudget{results: over}
		svc := NewService(newMemoryReqRepo(), bp, nil, ServiceConfig{})
		result, err := svc.Create(context.Background(), CreateInput{
			FrontID: 1, FrontSpecialtyID: 5, RequestedBy: 9,
			Lines: []LineInput{materialLine(7, 20)},
		})
		require.NoError(t, err)
		require.Len(t, result.Notices, 1)
		require.Equal(t, budget.StatusOver, result.Notices[0].Result.Status)
	})

	t.Run("hard block rejects without confirmation", func(t *testing.T) {
		bp := &stubBudget{results: over}
		svc := NewService(newMemoryReqRepo(), bp, nil, ServiceConfig{BudgetHardBlock: true})
		_, err := svc.Create(context.Background(), CreateInput{
			FrontID: 1, FrontSpecialtyID: 5, RequestedBy: 9,
			Lines: []LineInput{materialLine(7, 20)},
		})
		require.ErrorIs(t, err, ErrOverBudget)
	})

	t.Run("hard block honours confirmation", func(t *testing.T) {
		bp := &stubBudget{results: over}
		svc := NewService(newMemoryReqRepo(), bp, nil, ServiceConfig{BudgetHardBlock: true})
		result, err := svc.Create(context.Background(), CreateInput{
			FrontID: 1, FrontSpecialtyID: 5, RequestedBy: 9, ConfirmOverBudget: true,
			Lines: []LineInput{materialLine(7, 20)},
		})
		require.NoError(t, err)
		require.Len(t, result.Notices, 1)
	})
}

func TestCancelLine(t *testing.T) {
	repo := newMemoryReqRepo()
	svc := NewService(repo, nil, nil, ServiceConfig{})
	ctx := context.Background()

	result, err := svc.Create(ctx, CreateInput{FrontID: 1, RequestedBy: 9, Lines: []LineInput{materialLine(7, 10)}})
	require.NoError(t, err)
	lineID := result.Lines[0].ID

	require.NoError(t, svc.CancelLine(ctx, lineID))
	line, err := svc.GetLine(ctx, lineID)
	require.NoError(t, err)
	require.Equal(t, LineStatusCancelled, line.Status)

	// Lines with receipts cannot be cancelled.
	received := repo.lines[lineID]
	received.Fulfilled = 4
	repo.lines[lineID] = received
	require.ErrorIs(t, svc.CancelLine(ctx, lineID), ErrValidation)
}

func TestStatusForQuantities(t *testing.T) {
	require.Equal(t, LineStatusPending, StatusForQuantities(50, 0))
	require.Equal(t, LineStatusPartial, StatusForQuantities(50, 35))
	require.Equal(t, LineStatusFulfilled, StatusForQuantities(50, 50))
	require.Equal(t, LineStatusFulfilled, StatusForQuantities(50, 60))
}
