package cart

import (
	"context"

	"storefront/internal/domain"
)

// Repository stores cart lines. Lines are keyed by (user, product); the
// product itself is resolved by the caller.
type Repository interface {
	List(ctx context.Context, userID string) ([]domain.CartItem, error)
	Get(ctx context.Context, userID, productID string) (*domain.CartItem, error)
	// Add merges qty into an existing line or creates one, returning the new line quantity.
	Add(ctx context.Context, userID, productID string, qty int) (int, error)
	SetQuantity(ctx context.Context, userID, productID string, qty int) error
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}
