package order

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

// ErrOrderNumberTaken is returned by Place when the generated order number collides.
var ErrOrderNumberTaken = errors.New("order number taken")

type Repository interface {
	// Place persists the order and reserves stock for every line in one
	// transaction. Nothing is written when any line cannot be reserved.
	Place(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetForUser(ctx context.Context, userID, id string) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error)
	// Cancel restores stock and marks the order cancelled. userID scopes the
	// lookup to the owner; empty means any order.
	Cancel(ctx context.Context, id, userID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, update domain.StatusUpdate) (*domain.Order, error)
}
