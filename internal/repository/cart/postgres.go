package cart

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) List(ctx context.Context, userID string) ([]domain.CartItem, error) {
	rows, err := r.pool.Query(ctx, `
SELECT user_id::text, product_id::text, quantity, added_at
FROM cart_items
WHERE user_id = $1
ORDER BY added_at, product_id
`, userID)
	if err != nil {
		r.logger.Printf("cart repo: list user_id=%s error=%v", userID, err)
		return nil, err
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.UserID, &it.ProductID, &it.Quantity, &it.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *postgresRepo) Get(ctx context.Context, userID, productID string) (*domain.CartItem, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, domain.ErrNotFound
	}
	var it domain.CartItem
	err := r.pool.QueryRow(ctx, `
SELECT user_id::text, product_id::text, quantity, added_at
FROM cart_items
WHERE user_id = $1 AND product_id = $2
`, userID, productID).Scan(&it.UserID, &it.ProductID, &it.Quantity, &it.AddedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (r *postgresRepo) Add(ctx context.Context, userID, productID string, qty int) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
INSERT INTO cart_items (user_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, product_id) DO UPDATE
SET quantity = cart_items.quantity + EXCLUDED.quantity
RETURNING quantity
`, userID, productID, qty).Scan(&total)
	if err != nil {
		r.logger.Printf("cart repo: add user_id=%s product_id=%s error=%v", userID, productID, err)
		return 0, err
	}
	r.logger.Printf("cart repo: add user_id=%s product_id=%s quantity=%d", userID, productID, total)
	return total, nil
}

func (r *postgresRepo) SetQuantity(ctx context.Context, userID, productID string, qty int) error {
	if _, err := uuid.Parse(productID); err != nil {
		return domain.ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE cart_items SET quantity = $1
WHERE user_id = $2 AND product_id = $3
`, qty, userID, productID)
	if err != nil {
		r.logger.Printf("cart repo: set quantity user_id=%s product_id=%s error=%v", userID, productID, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Remove is a no-op when the line is absent.
func (r *postgresRepo) Remove(ctx context.Context, userID, productID string) error {
	if _, err := uuid.Parse(productID); err != nil {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		r.logger.Printf("cart repo: remove user_id=%s product_id=%s error=%v", userID, productID, err)
	}
	return err
}

func (r *postgresRepo) Clear(ctx context.Context, userID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		r.logger.Printf("cart repo: clear user_id=%s error=%v", userID, err)
		return err
	}
	r.logger.Printf("cart repo: cleared user_id=%s lines=%d", userID, cmd.RowsAffected())
	return nil
}
