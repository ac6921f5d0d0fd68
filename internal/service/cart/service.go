package cart

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"storefront/internal/domain"
)

type Service struct {
	repo        cartRepo
	productRepo productRepo
	logger      *log.Logger
}

type cartRepo interface {
	List(ctx context.Context, userID string) ([]domain.CartItem, error)
	Get(ctx context.Context, userID, productID string) (*domain.CartItem, error)
	Add(ctx context.Context, userID, productID string, qty int) (int, error)
	SetQuantity(ctx context.Context, userID, productID string, qty int) error
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

func New(repo cartRepo, productRepo productRepo, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, productRepo: productRepo, logger: logger}
}

type AddInput struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity,omitempty"`
}

// Get returns the user's cart lines with their current product attached.
// Lines whose product no longer exists are returned without one.
func (s *Service) Get(ctx context.Context, userID string) ([]domain.CartItem, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []domain.CartItem{}, nil
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if p, ok := products[items[i].ProductID]; ok {
			items[i].Product = &p
		}
	}
	return items, nil
}

func (s *Service) Add(ctx context.Context, userID string, in AddInput) ([]domain.CartItem, error) {
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return nil, domain.InvalidInput("Product ID is required")
	}
	qty := 1
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	if qty < 1 {
		return nil, domain.InvalidInput("Quantity must be at least 1")
	}
	p, err := s.activeProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	merged := qty
	existing, err := s.repo.Get(ctx, userID, productID)
	switch {
	case err == nil:
		merged += existing.Quantity
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	if !p.Covers(merged) {
		return nil, shortage(p, merged)
	}

	total, err := s.repo.Add(ctx, userID, productID, qty)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("cart service: add user_id=%s product_id=%s qty=%d line=%d", userID, productID, qty, total)
	return s.Get(ctx, userID)
}

// Update replaces the quantity of a line already in the cart.
func (s *Service) Update(ctx context.Context, userID, productID string, qty int) ([]domain.CartItem, error) {
	if qty < 1 {
		return nil, domain.InvalidInput("Quantity must be at least 1")
	}
	if _, err := s.repo.Get(ctx, userID, productID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Product not found in cart")
		}
		return nil, err
	}
	p, err := s.activeProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Covers(qty) {
		return nil, shortage(p, qty)
	}
	if err := s.repo.SetQuantity(ctx, userID, productID, qty); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Product not found in cart")
		}
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID, productID string) ([]domain.CartItem, error) {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return err
	}
	s.logger.Printf("cart service: cleared user_id=%s", userID)
	return nil
}

func (s *Service) Summary(ctx context.Context, userID string) (domain.CartSummary, error) {
	items, err := s.Get(ctx, userID)
	if err != nil {
		return domain.CartSummary{}, err
	}
	return domain.Summarize(items), nil
}

func (s *Service) activeProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Product not found")
		}
		return nil, err
	}
	if !p.IsActive {
		return nil, domain.NotFound("Product not found")
	}
	return p, nil
}

func shortage(p *domain.Product, requested int) error {
	return &domain.InsufficientStockError{
		ProductID:   p.ID,
		ProductName: p.Name,
		Available:   p.Inventory.Quantity,
		Requested:   requested,
	}
}
