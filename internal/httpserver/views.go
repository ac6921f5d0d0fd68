package httpserver

import (
	"time"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

type productView struct {
	ID            string             `json:"id"`
	SKU           string             `json:"sku,omitempty"`
	Slug          string             `json:"slug,omitempty"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Price         float64            `json:"price"`
	ComparePrice  *float64           `json:"comparePrice,omitempty"`
	Category      domain.Category    `json:"category"`
	Subcategory   string             `json:"subcategory,omitempty"`
	Brand         string             `json:"brand,omitempty"`
	Images        []domain.Image     `json:"images"`
	FeaturedImage string             `json:"featuredImage,omitempty"`
	Attributes    []domain.Attribute `json:"attributes"`
	Tags          []string           `json:"tags"`
	Inventory     domain.Inventory   `json:"inventory"`
	IsInStock     bool               `json:"isInStock"`
	IsActive      bool               `json:"isActive"`
	Reviews       []domain.Review    `json:"reviews"`
	AverageRating float64            `json:"averageRating"`
	ReviewCount   int                `json:"reviewCount"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func toProductView(p domain.Product) productView {
	v := productView{
		ID:            p.ID,
		SKU:           p.SKU,
		Slug:          p.Slug,
		Name:          p.Name,
		Description:   p.Description,
		Price:         money(p.Price),
		Category:      p.Category,
		Subcategory:   p.Subcategory,
		Brand:         p.Brand,
		Images:        orEmpty(p.Images),
		FeaturedImage: p.FeaturedImage,
		Attributes:    orEmpty(p.Attributes),
		Tags:          orEmpty(p.Tags),
		Inventory:     p.Inventory,
		IsInStock:     p.IsInStock(),
		IsActive:      p.IsActive,
		Reviews:       orEmpty(p.Reviews),
		AverageRating: p.AverageRating,
		ReviewCount:   p.ReviewCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.ComparePrice.Valid {
		cp := money(p.ComparePrice.Decimal)
		v.ComparePrice = &cp
	}
	return v
}

func toProductViews(products []domain.Product) []productView {
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, toProductView(p))
	}
	return out
}

type orderItemView struct {
	Product  interface{} `json:"product"`
	Name     string      `json:"name"`
	Price    float64     `json:"price"`
	Quantity int         `json:"quantity"`
	Image    string      `json:"image,omitempty"`
	Subtotal float64     `json:"subtotal"`
}

type productSummaryView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	SKU   string `json:"sku,omitempty"`
	Image string `json:"featuredImage,omitempty"`
}

type orderView struct {
	ID                string          `json:"id"`
	OrderNumber       string          `json:"orderNumber"`
	User              string          `json:"user"`
	Items             []orderItemView `json:"items"`
	TotalAmount       float64         `json:"totalAmount"`
	ShippingCost      float64         `json:"shippingCost"`
	TaxAmount         float64         `json:"taxAmount"`
	FinalTotal        float64         `json:"finalTotal"`
	TotalItems        int             `json:"totalItems"`
	ShippingAddress   domain.Address  `json:"shippingAddress"`
	BillingAddress    domain.Address  `json:"billingAddress"`
	PaymentMethod     string          `json:"paymentMethod"`
	PaymentStatus     string          `json:"paymentStatus"`
	OrderStatus       string          `json:"orderStatus"`
	ShippingMethod    string          `json:"shippingMethod"`
	TrackingNumber    string          `json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// toOrderView renders an order. Lines whose product still exists carry a
// summary of it; otherwise just the product id.
func toOrderView(o domain.Order) orderView {
	items := make([]orderItemView, 0, len(o.Items))
	for _, it := range o.Items {
		var ref interface{} = it.ProductID
		if it.Product != nil {
			ref = productSummaryView{ID: it.Product.ID, Name: it.Product.Name, SKU: it.Product.SKU, Image: it.Product.Image}
		}
		items = append(items, orderItemView{
			Product:  ref,
			Name:     it.Name,
			Price:    money(it.Price),
			Quantity: it.Quantity,
			Image:    it.Image,
			Subtotal: money(it.Subtotal()),
		})
	}
	return orderView{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		User:              o.UserID,
		Items:             items,
		TotalAmount:       money(o.TotalAmount),
		ShippingCost:      money(o.ShippingCost),
		TaxAmount:         money(o.TaxAmount),
		FinalTotal:        money(o.FinalTotal()),
		TotalItems:        o.TotalItems(),
		ShippingAddress:   o.ShippingAddress,
		BillingAddress:    o.BillingAddress,
		PaymentMethod:     string(o.PaymentMethod),
		PaymentStatus:     string(o.PaymentStatus),
		OrderStatus:       string(o.OrderStatus),
		ShippingMethod:    o.ShippingMethod,
		TrackingNumber:    o.TrackingNumber,
		EstimatedDelivery: o.EstimatedDelivery,
		Notes:             o.Notes,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func toOrderViews(orders []domain.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderView(o))
	}
	return out
}

type cartItemView struct {
	Product  *productView `json:"product"`
	Quantity int          `json:"quantity"`
	AddedAt  time.Time    `json:"addedAt"`
}

func toCartViews(items []domain.CartItem) []cartItemView {
	out := make([]cartItemView, 0, len(items))
	for _, it := range items {
		v := cartItemView{Quantity: it.Quantity, AddedAt: it.AddedAt}
		if it.Product != nil {
			pv := toProductView(*it.Product)
			v.Product = &pv
		}
		out = append(out, v)
	}
	return out
}

type cartSummaryView struct {
	TotalItems      int     `json:"totalItems"`
	TotalPrice      float64 `json:"totalPrice"`
	InStockItems    int     `json:"inStockItems"`
	OutOfStockItems int     `json:"outOfStockItems"`
}

func toCartSummaryView(s domain.CartSummary) cartSummaryView {
	return cartSummaryView{
		TotalItems:      s.TotalItems,
		TotalPrice:      money(s.TotalPrice),
		InStockItems:    s.InStockItems,
		OutOfStockItems: s.OutOfStockItems,
	}
}

// money renders a two-decimal amount as a JSON number.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
