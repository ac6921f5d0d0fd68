package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.TrimSpace(s))
	switch st {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return st, true
	}
	return "", false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Cancellable reports whether a customer may still cancel the order.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

// CanTransitionTo enforces the forward-only lifecycle. Re-applying the current
// status is allowed on non-terminal orders so tracking details can be updated.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return !s.IsTerminal()
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "credit_card"
	PaymentPayPal         PaymentMethod = "paypal"
	PaymentStripe         PaymentMethod = "stripe"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCreditCard, PaymentPayPal, PaymentStripe, PaymentCashOnDelivery:
		return true
	}
	return false
}

// Known shipping methods. Orders accept any string; unknown methods price
// and schedule like standard.
const (
	ShippingStandard = "standard"
	ShippingExpress  = "express"
	ShippingPriority = "priority"
)

type Address struct {
	Name    string `json:"name,omitempty"`
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Complete reports whether the address carries every field required to ship.
func (a Address) Complete() bool {
	return strings.TrimSpace(a.Name) != "" &&
		strings.TrimSpace(a.Street) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.Country) != ""
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// ProductSummary is the live view of the product behind an order line.
// Nil when the product row no longer exists.
type ProductSummary struct {
	ID    string
	Name  string
	SKU   string
	Image string
}

// OrderItem is a snapshot of a product at purchase time.
type OrderItem struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
	Image     string
	Product   *ProductSummary
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID                string
	OrderNumber       string
	UserID            string
	Items             []OrderItem
	TotalAmount       decimal.Decimal
	ShippingCost      decimal.Decimal
	TaxAmount         decimal.Decimal
	ShippingAddress   Address
	BillingAddress    Address
	PaymentMethod     PaymentMethod
	PaymentStatus     PaymentStatus
	OrderStatus       OrderStatus
	ShippingMethod    string
	TrackingNumber    string
	EstimatedDelivery *time.Time
	Notes             string
	IdempotencyKey    string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (o Order) FinalTotal() decimal.Decimal {
	return o.TotalAmount.Add(o.ShippingCost).Add(o.TaxAmount)
}

func (o Order) TotalItems() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// StatusUpdate describes a guarded status change: it applies only while the
// order is still in From.
type StatusUpdate struct {
	OrderID           string
	From              OrderStatus
	To                OrderStatus
	TrackingNumber    string
	EstimatedDelivery *time.Time
}

type OrderFilter struct {
	UserID string
	Status OrderStatus
	Page   int
	Limit  int
}
