package product

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"storefront/internal/domain"
)

type Repository interface {
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	Deactivate(ctx context.Context, id string) error
	AddReview(ctx context.Context, id string, review domain.Review) (*domain.Product, error)
}

// DBTX is the subset of pgxpool.Pool and pgx.Tx used by the stock helpers, so
// they can run inside a caller's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
