package reports

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	stockRows  []StockRow
	stockCalls int
	consRows   []ConsumptionRow
	consCalls  int
}

func (m *mockRepo) StockSummary(context.Context, StockFilter) ([]StockRow, error) {
	m.stockCalls++
	return m.stockRows, nil
}

func (m *mockRepo) FrontConsumption(context.Context, int64) ([]ConsumptionRow, error) {
	m.consCalls++
	return m.consRows, nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute))
}

func TestStockSummaryCaches(t *testing.T) {
	repo := &mockRepo{stockRows: []StockRow{
		{ItemKind: "MATERIAL", ItemID: 7, Description: "Cemento Portland", Category: "AGLOMERANTES", InQty: 120, OutQty: 45, OnHand: 75},
	}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	rows, err := svc.StockSummary(ctx, StockFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 75.0, rows[0].OnHand)
	require.Equal(t, 1, repo.stockCalls)

	// Second call hits the cache.
	_, err = svc.StockSummary(ctx, StockFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, repo.stockCalls)

	// A different filter has its own key.
	_, err = svc.StockSummary(ctx, StockFilter{Category: "AGLOMERANTES"})
	require.NoError(t, err)
	require.Equal(t, 2, repo.stockCalls)

	// Invalidation forces a reload.
	require.NoError(t, svc.Invalidate(ctx))
	repo.stockRows[0].OnHand = 60
	rows, err = svc.StockSummary(ctx, StockFilter{})
	require.NoError(t, err)
	require.Equal(t, 60.0, rows[0].OnHand)
	require.Equal(t, 3, repo.stockCalls)
}

func TestFrontConsumptionCaches(t *testing.T) {
	repo := &mockRepo{consRows: []ConsumptionRow{
		{Destination: "Bloque 2", ItemKind: "MATERIAL", Description: "Fierro 1/2", Qty: 200},
	}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	rows, err := svc.FrontConsumption(ctx, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, repo.consCalls)

	_, err = svc.FrontConsumption(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, 1, repo.consCalls)
}

func TestServiceWithoutRedis(t *testing.T) {
	repo := &mockRepo{stockRows: []StockRow{{ItemKind: "MATERIAL", Description: "Arena gruesa", InQty: 10, OnHand: 10}}}
	svc := NewService(repo, nil)

	rows, err := svc.StockSummary(context.Background(), StockFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	// Every call reaches the repository when no cache is configured.
	_, err = svc.StockSummary(context.Background(), StockFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, repo.stockCalls)
}
