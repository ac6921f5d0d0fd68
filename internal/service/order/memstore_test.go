package order

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"storefront/internal/domain"
)

// memStore is an in-memory order and catalog store with the same atomicity
// guarantees as the Postgres repositories: Place reserves all lines or none.
type memStore struct {
	mu       sync.Mutex
	seq      int
	products map[string]domain.Product
	orders   map[string]domain.Order
	order    []string

	updateErr error
}

func newMemStore(products ...domain.Product) *memStore {
	m := &memStore{products: map[string]domain.Product{}, orders: map[string]domain.Order{}}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memStore) product(id string) domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id]
}

func (m *memStore) putProduct(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *memStore) Place(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.IdempotencyKey != "" {
		for _, existing := range m.orders {
			if existing.UserID == o.UserID && existing.IdempotencyKey == o.IdempotencyKey {
				return domain.ErrAlreadyExists
			}
		}
	}
	need := map[string]int{}
	for _, it := range o.Items {
		need[it.ProductID] += it.Quantity
	}
	ids := make([]string, 0, len(need))
	for id := range need {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p, ok := m.products[id]
		if !ok {
			return domain.NotFound("Product not found: %s", id)
		}
		if !p.Covers(need[id]) {
			return &domain.InsufficientStockError{ProductID: id, ProductName: p.Name, Available: p.Inventory.Quantity, Requested: need[id]}
		}
	}
	for _, id := range ids {
		p := m.products[id]
		if p.Inventory.TrackQuantity {
			p.Inventory.Quantity -= need[id]
		}
		m.products[id] = p
	}
	m.seq++
	o.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", m.seq)
	stored := *o
	stored.Items = append([]domain.OrderItem(nil), o.Items...)
	m.orders[o.ID] = stored
	m.order = append(m.order, o.ID)
	return nil
}

func (m *memStore) get(id string) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return &o, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *memStore) GetForUser(_ context.Context, userID, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.get(id)
	if err != nil || o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (m *memStore) GetByIdempotencyKey(_ context.Context, userID, key string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, o := range m.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			return m.get(id)
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) List(_ context.Context, f domain.OrderFilter) ([]domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []domain.Order
	for i := len(m.order) - 1; i >= 0; i-- {
		o := m.orders[m.order[i]]
		if o.UserID != f.UserID || (f.Status != "" && o.OrderStatus != f.Status) {
			continue
		}
		matched = append(matched, o)
	}
	start := (f.Page - 1) * f.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func (m *memStore) Cancel(_ context.Context, id, userID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || (userID != "" && o.UserID != userID) {
		return nil, domain.ErrNotFound
	}
	if !o.OrderStatus.Cancellable() {
		return nil, domain.InvalidState("Order cannot be cancelled at this stage")
	}
	for _, it := range o.Items {
		p, ok := m.products[it.ProductID]
		if !ok || !p.Inventory.TrackQuantity {
			continue
		}
		p.Inventory.Quantity += it.Quantity
		m.products[it.ProductID] = p
	}
	o.OrderStatus = domain.OrderStatusCancelled
	m.orders[id] = o
	return m.get(id)
}

func (m *memStore) UpdateStatus(_ context.Context, u domain.StatusUpdate) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	o, ok := m.orders[u.OrderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if o.OrderStatus != u.From {
		return nil, domain.ErrConflict
	}
	o.OrderStatus = u.To
	if u.TrackingNumber != "" {
		o.TrackingNumber = u.TrackingNumber
	}
	if u.EstimatedDelivery != nil {
		o.EstimatedDelivery = u.EstimatedDelivery
	}
	m.orders[u.OrderID] = o
	return m.get(u.OrderID)
}

// catalog exposes memStore products through the productReader interface.
type catalog struct{ m *memStore }

func (c catalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	p, ok := c.m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

// staleCatalog always answers with the products it was built with.
type staleCatalog map[string]domain.Product

func (c staleCatalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := c[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

type stubCart struct {
	mu      sync.Mutex
	err     error
	cleared []string
}

func (s *stubCart) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, userID)
	return s.err
}
