package allocation

import "fmt"

// requestsFor selects the request lines derived from the requisition line,
// either through the direct requisition link or by item identity for legacy rows.
func requestsFor(line Line, requests []RequestLine) []RequestLine {
	var out []RequestLine
	for _, req := range requests {
		if req.RequisitionID != line.RequisitionID {
			continue
		}
		if !req.Item.Matches(line.Item) {
			continue
		}
		out = append(out, req)
	}
	return out
}

// PipelinePending sums the pending quantity of every non-cancelled OC line in
// the purchase pipeline of the given requisition line. Order lines whose
// request line is absent from the snapshot contribute zero pending and a
// warning: the total may undercount until the data is repaired.
func PipelinePending(line Line, requests []RequestLine, orders []Order, receipts []Receipt) (float64, []Warning, error) {
	known := make(map[int64]struct{}, len(requests))
	for _, req := range requests {
		known[req.ID] = struct{}{}
	}
	var total float64
	var warnings []Warning
	for _, o := range orders {
		if o.Status == OrderStatusCancelled {
			continue
		}
		for _, l := range o.Lines {
			if _, ok := known[l.RequestLineID]; !ok {
				warnings = append(warnings, Warning{
					Code:   WarnOrphanOrderLine,
					Detail: fmt.Sprintf("order %s line %d has no request line data", o.Number, l.ID),
				})
			}
		}
	}
	for _, req := range requestsFor(line, requests) {
		res, err := Resolve(req, orders, receipts)
		if err != nil {
			return 0, nil, err
		}
		for _, a := range res.Allocations {
			total += a.Pending
		}
	}
	return total, warnings, nil
}

// FreeToPurchase computes requested - fulfilled - pipeline pending, clamped at
// zero. A requisition line is eligible for petty-cash receipt only while the
// result is positive.
func FreeToPurchase(line Line, requests []RequestLine, orders []Order, receipts []Receipt) (float64, []Warning, error) {
	pipeline, warnings, err := PipelinePending(line, requests, orders, receipts)
	if err != nil {
		return 0, nil, err
	}
	if line.Fulfilled > line.Requested {
		warnings = append(warnings, Warning{
			Code:   WarnOverFulfilled,
			Detail: fmt.Sprintf("line %d fulfilled %.4f above requested %.4f", line.ID, line.Fulfilled, line.Requested),
		})
	}
	free := line.Requested - line.Fulfilled - pipeline
	if free < 0 {
		free = 0
	}
	return free, warnings, nil
}

// ActiveOrders returns the orders still open to receive: at least one
// non-cancelled line with positive pending. This is the set offered to
// "register entry against this OC" workflows; fully received orders drop out.
// Aggregate views are best effort: orphan or invalid lines contribute zero
// pending and a warning instead of failing the whole listing.
func ActiveOrders(orders []Order, requests []RequestLine, receipts []Receipt) ([]Order, []Warning) {
	reqByID := make(map[int64]RequestLine, len(requests))
	for _, req := range requests {
		reqByID[req.ID] = req
	}
	resolved := make(map[int64]Resolution, len(requests))

	var active []Order
	var warnings []Warning
	for _, o := range orders {
		if o.Status == OrderStatusCancelled {
			continue
		}
		open := false
		for _, l := range o.Lines {
			req, ok := reqByID[l.RequestLineID]
			if !ok {
				warnings = append(warnings, Warning{
					Code:   WarnOrphanOrderLine,
					Detail: fmt.Sprintf("order %s line %d has no request line data", o.Number, l.ID),
				})
				continue
			}
			res, ok := resolved[req.ID]
			if !ok {
				var err error
				res, err = Resolve(req, orders, receipts)
				if err != nil {
					warnings = append(warnings, Warning{
						Code:   WarnInvalidOrderLine,
						Detail: fmt.Sprintf("order %s: %v", o.Number, err),
					})
					continue
				}
				resolved[req.ID] = res
			}
			if pending, ok := res.PendingFor(l.ID); ok && pending > 0 {
				open = true
				break
			}
		}
		if open {
			active = append(active, o)
		}
	}
	return active, warnings
}

// FulfilledFromReceipts recomputes the denormalized fulfilled total of a
// requisition line from inbound ledger history, any source included. The
// ledger is the source of truth; the stored field is a cache repaired with
// this function.
func FulfilledFromReceipts(line Line, receipts []Receipt) float64 {
	var total float64
	for _, rc := range receipts {
		if rc.RequisitionID != line.RequisitionID {
			continue
		}
		if !rc.Item.Matches(line.Item) {
			continue
		}
		total += rc.Quantity
	}
	return total
}
