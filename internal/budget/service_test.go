package budget

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obrastock/obrastock/internal/shared"
)

type memoryBudgetRepo struct {
	entries map[int64]Entry
	nextID  int64
}

func newMemoryBudgetRepo() *memoryBudgetRepo {
	return &memoryBudgetRepo{entries: make(map[int64]Entry)}
}

func (r *memoryBudgetRepo) FindForItem(ctx context.Context, frontSpecialtyID int64, item shared.ItemRef) (Entry, error) {
	for _, e := range r.entries {
		if e.FrontSpecialtyID == frontSpecialtyID && e.Item.Matches(item) {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

func (r *memoryBudgetRepo) ListByFrontSpecialty(ctx context.Context, frontSpecialtyID int64) ([]Entry, error) {
	var out []Entry
	for _, e := range r.entries {
		if e.FrontSpecialtyID == frontSpecialtyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryBudgetRepo) CreateEntry(ctx context.Context, entry Entry) (int64, error) {
	r.nextID++
	entry.ID = r.nextID
	r.entries[entry.ID] = entry
	return entry.ID, nil
}

func (r *memoryBudgetRepo) AddUtilization(ctx context.Context, id int64, qty float64) error {
	e := r.entries[id]
	e.Utilized += qty
	r.entries[id] = e
	return nil
}

var concrete = shared.ItemRef{Kind: shared.ItemMaterial, ID: 3, Description: "Concreto premezclado"}

func seededService(t *testing.T, budgeted, utilized float64) (*Service, *memoryBudgetRepo) {
	t.Helper()
	repo := newMemoryBudgetRepo()
	_, err := NewService(repo).CreateEntry(context.Background(), Entry{FrontSpecialtyID: 5, Item: concrete, Budgeted: budgeted})
	require.NoError(t, err)
	for id, e := range repo.entries {
		e.Utilized = utilized
		repo.entries[id] = e
	}
	return NewService(repo), repo
}

func TestCheckBoundaries(t *testing.T) {
	svc, _ := seededService(t, 100, 85)
	ctx := context.Background()

	t.Run("projected 91 warns at ninety percent", func(t *testing.T) {
		res, err := svc.Check(ctx, 5, concrete, 6, 0)
		require.NoError(t, err)
		require.Equal(t, StatusWarn, res.Status)
		require.Equal(t, 91.0, res.Projected)
	})

	t.Run("projected 105 is over", func(t *testing.T) {
		res, err := svc.Check(ctx, 5, concrete, 20, 0)
		require.NoError(t, err)
		require.Equal(t, StatusOver, res.Status)
		require.Equal(t, 105.0, res.Projected)
	})

	t.Run("projected 89 is ok", func(t *testing.T) {
		res, err := svc.Check(ctx, 5, concrete, 4, 0)
		require.NoError(t, err)
		require.Equal(t, StatusOK, res.Status)
	})

	t.Run("exactly ninety percent warns", func(t *testing.T) {
		res, err := svc.Check(ctx, 5, concrete, 5, 0)
		require.NoError(t, err)
		require.Equal(t, StatusWarn, res.Status)
	})

	t.Run("pending in form counts toward projection", func(t *testing.T) {
		res, err := svc.Check(ctx, 5, concrete, 6, 10)
		require.NoError(t, err)
		require.Equal(t, StatusOver, res.Status)
		require.Equal(t, 101.0, res.Projected)
	})
}

func TestCheckUnbudgeted(t *testing.T) {
	svc, _ := seededService(t, 100, 0)
	other := shared.ItemRef{Kind: shared.ItemMaterial, ID: 99, Description: "Madera tornillo"}
	res, err := svc.Check(context.Background(), 5, other, 10, 0)
	require.NoError(t, err)
	require.Equal(t, StatusUnbudgeted, res.Status)
	require.Equal(t, 0.0, res.Budgeted)
}

func TestCheckRejectsNonPositive(t *testing.T) {
	svc, _ := seededService(t, 100, 0)
	_, err := svc.Check(context.Background(), 5, concrete, 0, 0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestConsumeAccumulates(t *testing.T) {
	svc, repo := seededService(t, 100, 0)
	ctx := context.Background()
	require.NoError(t, svc.Consume(ctx, 5, concrete, 30))
	require.NoError(t, svc.Consume(ctx, 5, concrete, 12))

	entry, err := repo.FindForItem(ctx, 5, concrete)
	require.NoError(t, err)
	require.Equal(t, 42.0, entry.Utilized)

	// Unbudgeted consumption is a no-op, not an error.
	require.NoError(t, svc.Consume(ctx, 5, shared.ItemRef{Kind: shared.ItemMaterial, ID: 77, Description: "x"}, 3))
}

func TestReportPercent(t *testing.T) {
	svc, _ := seededService(t, 200, 50)
	rows, err := svc.Report(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 25.0, rows[0].Percent)
}
