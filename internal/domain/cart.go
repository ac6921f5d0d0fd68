package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one product line in a user's cart. A user holds at most one line per product.
type CartItem struct {
	UserID    string
	ProductID string
	Quantity  int
	AddedAt   time.Time
	Product   *Product
}

type CartSummary struct {
	TotalItems      int
	TotalPrice      decimal.Decimal
	InStockItems    int
	OutOfStockItems int
}

// Summarize totals the cart. Lines whose product is gone are skipped.
func Summarize(items []CartItem) CartSummary {
	var s CartSummary
	for _, it := range items {
		if it.Product == nil {
			continue
		}
		s.TotalItems += it.Quantity
		s.TotalPrice = s.TotalPrice.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		if it.Product.Covers(it.Quantity) {
			s.InStockItems += it.Quantity
		}
	}
	s.TotalPrice = s.TotalPrice.Round(2)
	s.OutOfStockItems = s.TotalItems - s.InStockItems
	return s
}
