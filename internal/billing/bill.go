package billing

import (
	"github.com/shopspring/decimal"

	"github.com/dinepos/kds/internal/kitchen"
)

// GST split applied to dine-in bills.
var (
	sgstRate = decimal.RequireFromString("0.025") // 2.5%
	cgstRate = decimal.RequireFromString("0.025") // 2.5%
)

// Line is one billed item with its extended total.
type Line struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// Bill is the computed charge breakdown for one order.
type Bill struct {
	Lines      []Line
	Subtotal   decimal.Decimal
	SGST       decimal.Decimal
	CGST       decimal.Decimal
	GrandTotal decimal.Decimal
}

// Compute prices an order's items: subtotal is the sum of quantity times
// unit price, SGST and CGST are each 2.5% of the subtotal, and the grand
// total adds both taxes.
func Compute(items []kitchen.Item) Bill {
	b := Bill{
		Lines:    make([]Line, 0, len(items)),
		Subtotal: decimal.Zero,
	}

	for _, it := range items {
		lineTotal := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		b.Lines = append(b.Lines, Line{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Total:     lineTotal,
		})
		b.Subtotal = b.Subtotal.Add(lineTotal)
	}

	b.SGST = b.Subtotal.Mul(sgstRate)
	b.CGST = b.Subtotal.Mul(cgstRate)
	b.GrandTotal = b.Subtotal.Add(b.SGST).Add(b.CGST)
	return b
}
