// internal/domain/order/snapshot.go
package order

import "github.com/your-org/storefront/internal/domain/cart"

// SnapshotLines copies cart lines into order lines exactly as stored in the
// cart. No catalog lookup happens here: the price the buyer saw is the
// price charged.
func SnapshotLines(lines []cart.Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, Line{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return out
}

// TotalOf sums line subtotals
func TotalOf(lines []Line) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}
