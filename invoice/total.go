package invoice

// LineTotal returns quantity times price with negative inputs treated as 0.
func (item LineItem) LineTotal() float64 {
	return nonNegative(item.Quantity) * nonNegative(item.Price)
}

// ItemsTotal sums the line totals.
func ItemsTotal(items []LineItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}

// Total returns the stored total amount, or the sum over line items when the
// amount is absent or zero.
func (inv Invoice) Total() float64 {
	if inv.TotalAmount != nil && *inv.TotalAmount != 0 {
		return *inv.TotalAmount
	}
	return ItemsTotal(inv.Items)
}

// Status derives the invoice status. Deleted wins over modified.
func (inv Invoice) Status() Status {
	switch {
	case inv.IsDeleted:
		return StatusDeleted
	case inv.IsModified:
		return StatusModified
	default:
		return StatusActive
	}
}

func nonNegative(v float64) float64 {
	// NaN compares false, so it falls through to 0 as well.
	if v > 0 {
		return v
	}
	return 0
}
