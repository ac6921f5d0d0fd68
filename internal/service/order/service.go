package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/pricing"
	orderrepo "storefront/internal/repository/order"
)

// PlaceholderImage is snapshotted for products without a featured image.
const PlaceholderImage = "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=500&h=500&fit=crop"

const placeAttempts = 3

type orderStore interface {
	Place(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetForUser(ctx context.Context, userID, id string) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error)
	Cancel(ctx context.Context, id, userID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, update domain.StatusUpdate) (*domain.Order, error)
}

type productReader interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type cartClearer interface {
	Clear(ctx context.Context, userID string) error
}

type Service struct {
	orders    orderStore
	products  productReader
	carts     cartClearer
	logger    *log.Logger
	now       func() time.Time
	newNumber func(time.Time) (string, error)
}

func New(orders orderStore, products productReader, carts cartClearer, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		orders:    orders,
		products:  products,
		carts:     carts,
		logger:    logger,
		now:       time.Now,
		newNumber: NewOrderNumber,
	}
}

type ItemInput struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

type CreateInput struct {
	Items           []ItemInput     `json:"items"`
	ShippingAddress domain.Address  `json:"shippingAddress"`
	BillingAddress  *domain.Address `json:"billingAddress,omitempty"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	ShippingMethod  string          `json:"shippingMethod,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	IdempotencyKey  string          `json:"-"`
}

type CreateResult struct {
	Order    *domain.Order
	Replayed bool
	Warnings []string
}

// Create validates the request against live catalog data, prices it and places
// it. Stock is reserved atomically with the insert. Clearing the user's cart
// afterwards is best-effort and reported through Warnings.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*CreateResult, error) {
	if len(in.Items) == 0 {
		return nil, domain.InvalidInput("Order items are required")
	}
	for _, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" || it.Quantity < 1 {
			return nil, domain.InvalidInput("Each item must have product and quantity")
		}
	}
	if !in.ShippingAddress.Complete() {
		return nil, domain.InvalidInput("Complete shipping address is required")
	}
	method := domain.PaymentMethod(strings.TrimSpace(in.PaymentMethod))
	if method == "" {
		method = domain.PaymentCreditCard
	}
	if !method.Valid() {
		return nil, domain.InvalidInput("Invalid payment method: %s", method)
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		existing, err := s.orders.GetByIdempotencyKey(ctx, userID, key)
		switch {
		case err == nil:
			s.logger.Printf("order service: replay key=%s id=%s", key, existing.ID)
			return &CreateResult{Order: existing, Replayed: true}, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	items := make([]domain.OrderItem, 0, len(in.Items))
	total := decimal.Zero
	for _, it := range in.Items {
		p, err := s.products.GetByID(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NotFound("Product not found: %s", it.ProductID)
			}
			return nil, err
		}
		if !p.IsActive {
			return nil, domain.InvalidState("Product is no longer available: %s", p.Name)
		}
		if !p.Covers(it.Quantity) {
			return nil, &domain.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.Inventory.Quantity,
				Requested:   it.Quantity,
			}
		}
		image := p.FeaturedImage
		if image == "" {
			image = PlaceholderImage
		}
		line := domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
			Image:     image,
			Product:   &domain.ProductSummary{ID: p.ID, Name: p.Name, SKU: p.SKU, Image: p.FeaturedImage},
		}
		total = total.Add(line.Subtotal())
		items = append(items, line)
	}

	shipping := strings.TrimSpace(in.ShippingMethod)
	if shipping == "" {
		shipping = domain.ShippingStandard
	}
	billing := in.ShippingAddress
	if in.BillingAddress != nil && !in.BillingAddress.IsZero() {
		billing = *in.BillingAddress
	}
	now := s.now()
	eta := pricing.EstimatedDelivery(shipping, now)

	o := &domain.Order{
		UserID:            userID,
		Items:             items,
		TotalAmount:       total,
		ShippingCost:      pricing.ShippingCost(shipping, total),
		TaxAmount:         pricing.Tax(total, in.ShippingAddress.Country),
		ShippingAddress:   in.ShippingAddress,
		BillingAddress:    billing,
		PaymentMethod:     method,
		PaymentStatus:     domain.PaymentStatusPending,
		OrderStatus:       domain.OrderStatusPending,
		ShippingMethod:    shipping,
		EstimatedDelivery: &eta,
		Notes:             in.Notes,
		IdempotencyKey:    key,
	}

	if err := s.place(ctx, o, now); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) && key != "" {
			existing, getErr := s.orders.GetByIdempotencyKey(ctx, userID, key)
			if getErr != nil {
				return nil, getErr
			}
			s.logger.Printf("order service: replay after race key=%s id=%s", key, existing.ID)
			return &CreateResult{Order: existing, Replayed: true}, nil
		}
		return nil, err
	}
	s.logger.Printf("order service: created id=%s number=%s user_id=%s total=%s final=%s",
		o.ID, o.OrderNumber, userID, o.TotalAmount, o.FinalTotal())

	res := &CreateResult{Order: o}
	if s.carts != nil {
		if err := s.carts.Clear(ctx, userID); err != nil {
			s.logger.Printf("order service: clear cart user_id=%s error=%v", userID, err)
			res.Warnings = append(res.Warnings, "Order placed but the cart could not be cleared")
		}
	}
	return res, nil
}

func (s *Service) place(ctx context.Context, o *domain.Order, now time.Time) error {
	for i := 0; i < placeAttempts; i++ {
		number, err := s.newNumber(now)
		if err != nil {
			return err
		}
		o.OrderNumber = number
		err = s.orders.Place(ctx, o)
		if err == nil {
			return nil
		}
		if errors.Is(err, orderrepo.ErrOrderNumberTaken) {
			continue
		}
		return err
	}
	return fmt.Errorf("order number collision after %d attempts", placeAttempts)
}

func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Order, error) {
	o, err := s.orders.GetForUser(ctx, userID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Order not found")
		}
		return nil, err
	}
	return o, nil
}

// List returns a page of the user's orders, newest first, plus the total count.
func (s *Service) List(ctx context.Context, userID, status string, page, limit int) ([]domain.Order, int, error) {
	filter := domain.OrderFilter{UserID: userID, Page: page, Limit: limit}
	if status = strings.TrimSpace(status); status != "" {
		st, ok := domain.ParseOrderStatus(status)
		if !ok {
			return nil, 0, domain.InvalidInput("Invalid order status: %s", status)
		}
		filter.Status = st
	}
	return s.orders.List(ctx, filter)
}

// UpdateStatus moves an order along its lifecycle. Cancelling through here
// restores stock exactly like a customer cancel.
func (s *Service) UpdateStatus(ctx context.Context, id, status, trackingNumber string) (*domain.Order, error) {
	next, ok := domain.ParseOrderStatus(status)
	if !ok {
		return nil, domain.InvalidInput("Invalid order status: %s", status)
	}
	cur, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Order not found")
		}
		return nil, err
	}
	if !cur.OrderStatus.CanTransitionTo(next) {
		return nil, domain.InvalidState("Cannot change order status from %s to %s", cur.OrderStatus, next)
	}
	tracking := strings.TrimSpace(trackingNumber)

	if next == domain.OrderStatusCancelled {
		o, err := s.orders.Cancel(ctx, id, "")
		if err != nil {
			return nil, err
		}
		if tracking == "" {
			return o, nil
		}
		return s.applyStatus(ctx, domain.StatusUpdate{
			OrderID:        id,
			From:           domain.OrderStatusCancelled,
			To:             domain.OrderStatusCancelled,
			TrackingNumber: tracking,
		})
	}

	update := domain.StatusUpdate{
		OrderID:        id,
		From:           cur.OrderStatus,
		To:             next,
		TrackingNumber: tracking,
	}
	if next == domain.OrderStatusShipped {
		eta := pricing.EstimatedDelivery(cur.ShippingMethod, s.now())
		update.EstimatedDelivery = &eta
	}
	return s.applyStatus(ctx, update)
}

func (s *Service) applyStatus(ctx context.Context, update domain.StatusUpdate) (*domain.Order, error) {
	o, err := s.orders.UpdateStatus(ctx, update)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, &domain.Error{Kind: domain.ErrConflict, Message: "Order was modified concurrently, please retry"}
		}
		return nil, err
	}
	s.logger.Printf("order service: status id=%s %s->%s", update.OrderID, update.From, update.To)
	return o, nil
}

// Cancel lets the owner cancel a pending or confirmed order.
func (s *Service) Cancel(ctx context.Context, userID, id string) (*domain.Order, error) {
	o, err := s.orders.Cancel(ctx, id, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Order not found")
		}
		return nil, err
	}
	s.logger.Printf("order service: cancelled id=%s user_id=%s", id, userID)
	return o, nil
}
