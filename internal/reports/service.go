package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// StockRow aggregates warehouse movements for one item.
type StockRow struct {
	ItemKind    string  `json:"item_kind"`
	ItemID      int64   `json:"item_id"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	InQty       float64 `json:"in_qty"`
	OutQty      float64 `json:"out_qty"`
	OnHand      float64 `json:"on_hand"`
}

// ConsumptionRow aggregates outbound movements for one destination.
type ConsumptionRow struct {
	Destination string  `json:"destination"`
	ItemKind    string  `json:"item_kind"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
}

// StockFilter narrows the stock summary.
type StockFilter struct {
	Category string
	FrontID  int64
}

// Repository exposes the aggregation queries behind the reports.
type Repository interface {
	StockSummary(ctx context.Context, filter StockFilter) ([]StockRow, error)
	FrontConsumption(ctx context.Context, frontID int64) ([]ConsumptionRow, error)
}

// Service serves read models over the ledger, cached per version.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
}

// NewService constructs a reports service.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// StockSummary returns current on-hand balances per item. Concurrent cache
// misses for the same key collapse into a single repository query.
func (s *Service) StockSummary(ctx context.Context, filter StockFilter) ([]StockRow, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "stock", filter.Category, strconv.FormatInt(filter.FrontID, 10))
	if err != nil {
		return nil, err
	}
	var rows []StockRow
	err = s.fetch(ctx, key, &rows, func(ctx context.Context) (interface{}, error) {
		return s.repo.StockSummary(ctx, filter)
	})
	return rows, err
}

// FrontConsumption returns outbound quantities grouped by destination for a front.
func (s *Service) FrontConsumption(ctx context.Context, frontID int64) ([]ConsumptionRow, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "consumption", strconv.FormatInt(frontID, 10))
	if err != nil {
		return nil, err
	}
	var rows []ConsumptionRow
	err = s.fetch(ctx, key, &rows, func(ctx context.Context) (interface{}, error) {
		return s.repo.FrontConsumption(ctx, frontID)
	})
	return rows, err
}

// Invalidate bumps the cache version after ledger writes.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) fetch(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		var raw json.RawMessage
		err := s.cache.FetchJSON(ctx, key, &raw, loader)
		return raw, err
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return res.Err
		}
		raw, ok := res.Val.(json.RawMessage)
		if !ok {
			return fmt.Errorf("reports: unexpected cache payload %T", res.Val)
		}
		return json.Unmarshal(raw, dest)
	}
}
