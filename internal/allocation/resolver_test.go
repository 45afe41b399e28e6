package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/obrastock/obrastock/internal/shared"
)

var (
	cement = shared.ItemRef{Kind: shared.ItemMaterial, ID: 7, Description: "Cemento Portland"}
	steel  = shared.ItemRef{Kind: shared.ItemMaterial, ID: 8, Description: "Fierro corrugado"}
)

func day(n int) time.Time {
	return time.Date(2026, 3, n, 0, 0, 0, 0, time.UTC)
}

func twoOrderFixture(qtyA, qtyB float64) (RequestLine, []Order) {
	req := RequestLine{ID: 100, RequisitionID: 1, Item: cement, Quantity: qtyA + qtyB}
	orders := []Order{
		{ID: 10, Number: "OC-A", Status: OrderStatusIssued, OrderDate: day(1), Lines: []OrderLine{
			{ID: 11, OrderID: 10, RequestLineID: 100, Quantity: qtyA},
		}},
		{ID: 20, Number: "OC-B", Status: OrderStatusIssued, OrderDate: day(2), Lines: []OrderLine{
			{ID: 21, OrderID: 20, RequestLineID: 100, Quantity: qtyB},
		}},
	}
	return req, orders
}

func receiptsOf(qty float64, pettyCash bool) []Receipt {
	return []Receipt{{Item: cement, RequisitionID: 1, Quantity: qty, PettyCash: pettyCash}}
}

func TestResolveNoDoubleAllocation(t *testing.T) {
	req, orders := twoOrderFixture(10, 5)

	t.Run("consumed 12 yields pending 0 and 3", func(t *testing.T) {
		res, err := Resolve(req, orders, receiptsOf(12, false))
		require.NoError(t, err)
		require.Len(t, res.Allocations, 2)
		require.Equal(t, 0.0, res.Allocations[0].Pending)
		require.Equal(t, 3.0, res.Allocations[1].Pending)
	})

	t.Run("consumed 8 yields pending 2 and 5", func(t *testing.T) {
		res, err := Resolve(req, orders, receiptsOf(8, false))
		require.NoError(t, err)
		require.Equal(t, 2.0, res.Allocations[0].Pending)
		require.Equal(t, 5.0, res.Allocations[1].Pending)
	})
}

func TestResolveConservation(t *testing.T) {
	req, orders := twoOrderFixture(30, 20)
	for _, consumed := range []float64{0, 5, 30, 35, 50, 80} {
		res, err := Resolve(req, orders, receiptsOf(consumed, false))
		require.NoError(t, err)
		var allocated float64
		for _, a := range res.Allocations {
			allocated += a.Allocated
			require.GreaterOrEqual(t, a.Pending, 0.0)
			require.LessOrEqual(t, a.Pending, a.Ordered)
		}
		require.Equal(t, consumed, allocated+res.Remaining)
		require.LessOrEqual(t, allocated, consumed)
	}
}

func TestResolvePendingMonotonic(t *testing.T) {
	req, orders := twoOrderFixture(30, 20)
	prevA, prevB := 30.0, 20.0
	for consumed := 0.0; consumed <= 60; consumed += 7 {
		res, err := Resolve(req, orders, receiptsOf(consumed, false))
		require.NoError(t, err)
		a, _ := res.PendingFor(11)
		b, _ := res.PendingFor(21)
		require.LessOrEqual(t, a, prevA)
		require.LessOrEqual(t, b, prevB)
		prevA, prevB = a, b
	}
}

func TestResolveIgnoresPettyCashAndForeignReceipts(t *testing.T) {
	req, orders := twoOrderFixture(10, 5)
	receipts := []Receipt{
		{Item: cement, RequisitionID: 1, Quantity: 4, PettyCash: true},
		{Item: steel, RequisitionID: 1, Quantity: 9},
		{Item: cement, RequisitionID: 2, Quantity: 9},
	}
	res, err := Resolve(req, orders, receipts)
	require.NoError(t, err)
	require.Equal(t, 0.0, res.Consumed)
	pending, ok := res.PendingFor(11)
	require.True(t, ok)
	require.Equal(t, 10.0, pending)
}

func TestResolveExcludesCancelledOrders(t *testing.T) {
	req, orders := twoOrderFixture(10, 5)
	orders[0].Status = OrderStatusCancelled
	res, err := Resolve(req, orders, receiptsOf(4, false))
	require.NoError(t, err)
	require.Len(t, res.Allocations, 1)
	require.Equal(t, int64(21), res.Allocations[0].LineID)
	require.Equal(t, 1.0, res.Allocations[0].Pending)
	_, ok := res.PendingFor(11)
	require.False(t, ok)
}

func TestResolveTieBreakByLineID(t *testing.T) {
	// Same order date on both orders: creation sequence (line id) decides who
	// absorbs the consumed quantity first.
	req := RequestLine{ID: 100, RequisitionID: 1, Item: cement, Quantity: 15}
	orders := []Order{
		{ID: 20, Number: "OC-B", Status: OrderStatusIssued, OrderDate: day(1), Lines: []OrderLine{
			{ID: 21, OrderID: 20, RequestLineID: 100, Quantity: 5},
		}},
		{ID: 10, Number: "OC-A", Status: OrderStatusIssued, OrderDate: day(1), Lines: []OrderLine{
			{ID: 11, OrderID: 10, RequestLineID: 100, Quantity: 10},
		}},
	}
	res, err := Resolve(req, orders, receiptsOf(6, false))
	require.NoError(t, err)
	require.Equal(t, int64(11), res.Allocations[0].LineID)
	require.Equal(t, 4.0, res.Allocations[0].Pending)
	require.Equal(t, 5.0, res.Allocations[1].Pending)
}

func TestResolveRejectsNonPositiveQuantity(t *testing.T) {
	req, orders := twoOrderFixture(10, 5)
	orders[1].Lines[0].Quantity = 0
	_, err := Resolve(req, orders, nil)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	orders[1].Lines[0].Quantity = -3
	_, err = Resolve(req, orders, nil)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestResolveNoOrderLines(t *testing.T) {
	req := RequestLine{ID: 100, RequisitionID: 1, Item: cement, Quantity: 50}
	res, err := Resolve(req, nil, receiptsOf(10, false))
	require.NoError(t, err)
	require.Empty(t, res.Allocations)
	require.Equal(t, 10.0, res.Remaining)
}

func TestResolveLegacyDescriptionMatch(t *testing.T) {
	req := RequestLine{ID: 100, RequisitionID: 1, Item: shared.ItemRef{Kind: shared.ItemMaterial, Description: "Cemento Portland", Category: "Cementos"}}
	orders := []Order{{ID: 10, Status: OrderStatusIssued, OrderDate: day(1), Lines: []OrderLine{
		{ID: 11, OrderID: 10, RequestLineID: 100, Quantity: 10},
	}}}
	receipts := []Receipt{{Item: shared.ItemRef{Kind: shared.ItemMaterial, Description: "CEMENTO portland", Category: "cementos"}, RequisitionID: 1, Quantity: 6}}
	res, err := Resolve(req, orders, receipts)
	require.NoError(t, err)
	require.Equal(t, 6.0, res.Consumed)
}

func TestPendingForOrderLine(t *testing.T) {
	req, orders := twoOrderFixture(10, 5)
	pending, err := PendingForOrderLine(21, req, orders, receiptsOf(12, false))
	require.NoError(t, err)
	require.Equal(t, 3.0, pending)

	_, err = PendingForOrderLine(999, req, orders, nil)
	require.ErrorIs(t, err, ErrLineNotFound)
}
