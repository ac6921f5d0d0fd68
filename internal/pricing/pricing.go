// Package pricing holds the pure money rules applied when an order is placed.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

var (
	freeShippingOver = decimal.NewFromInt(50)
	standardRate     = decimal.RequireFromString("5.99")
	expressRate      = decimal.RequireFromString("12.99")
	priorityRate     = decimal.RequireFromString("24.99")

	defaultTaxRate = decimal.RequireFromString("0.10")
	taxRates       = map[string]decimal.Decimal{
		"USA":    decimal.RequireFromString("0.08"),
		"Canada": decimal.RequireFromString("0.13"),
		"UK":     decimal.RequireFromString("0.20"),
	}

	deliveryDays = map[string]int{
		domain.ShippingStandard: 7,
		domain.ShippingExpress:  3,
		domain.ShippingPriority: 1,
	}
)

// ShippingCost prices a shipment. Standard shipping is free strictly above 50;
// unknown methods fall back to the standard rule.
func ShippingCost(method string, amount decimal.Decimal) decimal.Decimal {
	switch method {
	case domain.ShippingExpress:
		return expressRate
	case domain.ShippingPriority:
		return priorityRate
	}
	if amount.GreaterThan(freeShippingOver) {
		return decimal.Zero
	}
	return standardRate
}

// TaxRate returns the rate for a country name, or the default 10%.
func TaxRate(country string) decimal.Decimal {
	if r, ok := taxRates[country]; ok {
		return r
	}
	return defaultTaxRate
}

// Tax is amount * rate rounded to cents.
func Tax(amount decimal.Decimal, country string) decimal.Decimal {
	return amount.Mul(TaxRate(country)).Round(2)
}

func DeliveryDays(method string) int {
	if d, ok := deliveryDays[method]; ok {
		return d
	}
	return deliveryDays[domain.ShippingStandard]
}

// EstimatedDelivery anchors the estimate on now.
func EstimatedDelivery(method string, now time.Time) time.Time {
	return now.AddDate(0, 0, DeliveryDays(method))
}
