package allocation

import "sort"

// Allocation describes how much of one OC line the consumed quantity absorbed.
type Allocation struct {
	OrderID   int64
	LineID    int64
	Ordered   float64
	Allocated float64
	Pending   float64
}

// Resolution is the outcome of an oldest-order-first walk for one request line.
type Resolution struct {
	Consumed    float64
	Remaining   float64
	Allocations []Allocation
}

// PendingFor returns the pending quantity computed for an order line.
func (r Resolution) PendingFor(lineID int64) (float64, bool) {
	for _, a := range r.Allocations {
		if a.LineID == lineID {
			return a.Pending, true
		}
	}
	return 0, false
}

// Consumed sums inbound receipts attributable to the request line: same
// requisition, matching item, petty cash excluded.
func Consumed(req RequestLine, receipts []Receipt) float64 {
	var total float64
	for _, rc := range receipts {
		if rc.PettyCash || rc.RequisitionID != req.RequisitionID {
			continue
		}
		if !rc.Item.Matches(req.Item) {
			continue
		}
		total += rc.Quantity
	}
	return total
}

// linesFor collects the non-cancelled order lines referencing the request
// line, sorted oldest order first. Lines sharing an order date keep creation
// sequence: ascending line id.
func linesFor(req RequestLine, orders []Order) []datedLine {
	var out []datedLine
	for _, o := range orders {
		if o.Status == OrderStatusCancelled {
			continue
		}
		for _, l := range o.Lines {
			if l.RequestLineID != req.ID {
				continue
			}
			out = append(out, datedLine{order: o, line: l})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].order.OrderDate.Equal(out[j].order.OrderDate) {
			return out[i].order.OrderDate.Before(out[j].order.OrderDate)
		}
		return out[i].line.ID < out[j].line.ID
	})
	return out
}

type datedLine struct {
	order Order
	line  OrderLine
}

// Resolve walks the oldest-order-first line list, crediting each OC line with
// min(ordered, remaining consumed) and deriving its pending quantity. Pending
// is never negative and never exceeds the line's own ordered quantity.
func Resolve(req RequestLine, orders []Order, receipts []Receipt) (Resolution, error) {
	lines := linesFor(req, orders)
	res := Resolution{Consumed: Consumed(req, receipts)}
	res.Remaining = res.Consumed
	for _, dl := range lines {
		if dl.line.Quantity <= 0 {
			return Resolution{}, ErrInvalidQuantity
		}
		allocated := dl.line.Quantity
		if res.Remaining < allocated {
			allocated = res.Remaining
		}
		res.Remaining -= allocated
		res.Allocations = append(res.Allocations, Allocation{
			OrderID:   dl.order.ID,
			LineID:    dl.line.ID,
			Ordered:   dl.line.Quantity,
			Allocated: allocated,
			Pending:   dl.line.Quantity - allocated,
		})
	}
	return res, nil
}

// PendingForOrderLine resolves the request line and returns the pending
// quantity of one specific OC line.
func PendingForOrderLine(lineID int64, req RequestLine, orders []Order, receipts []Receipt) (float64, error) {
	res, err := Resolve(req, orders, receipts)
	if err != nil {
		return 0, err
	}
	pending, ok := res.PendingFor(lineID)
	if !ok {
		return 0, ErrLineNotFound
	}
	return pending, nil
}
