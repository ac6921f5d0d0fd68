package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/db"
	"storefront/internal/domain"
)

const productColumns = `id::text, COALESCE(sku, ''), COALESCE(slug, ''), name, description, price, compare_price,
category, subcategory, brand, images, featured_image, attributes, tags,
quantity, track_quantity, allow_out_of_stock_purchase, is_active,
reviews, average_rating, review_count, created_at, updated_at`

var sortColumns = map[string]string{
	domain.SortCreatedAt:     "created_at",
	domain.SortPrice:         "price",
	domain.SortName:          "name",
	domain.SortAverageRating: "average_rating",
}

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

func (r *postgresRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error) {
	where, args := listWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE `+where, args...).Scan(&total); err != nil {
		r.logger.Printf("product repo: count error=%v", err)
		return nil, 0, err
	}

	sortCol, ok := sortColumns[f.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	limit, offset := pageWindow(f.Page, f.Limit)
	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		productColumns, where, sortCol, dir, dir, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, 0, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, 0, err
	}
	r.logger.Printf("product repo: list count=%d total=%d", len(result), total)
	return result, total, nil
}

func listWhere(f domain.ProductFilter) (string, []any) {
	conds := []string{"is_active"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Category != "" {
		add("category = $%d", string(f.Category))
	}
	if b := strings.TrimSpace(f.Brand); b != "" {
		add("position(lower($%d) in lower(brand)) > 0", b)
	}
	if f.MinPrice.Valid {
		add("price >= $%d", f.MinPrice.Decimal)
	}
	if f.MaxPrice.Valid {
		add("price <= $%d", f.MaxPrice.Decimal)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, s)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(position(lower($%d) in lower(name)) > 0 OR position(lower($%d) in lower(description)) > 0 OR position(lower($%d) in lower(brand)) > 0)",
			n, n, n))
	}
	if f.InStock {
		conds = append(conds, "(NOT track_quantity OR quantity > 0)")
	}
	return strings.Join(conds, " AND "), args
}

func pageWindow(page, limit int) (int, int) {
	if limit < 1 {
		limit = 12
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("product repo: get id=%s not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return p, nil
}

// GetByIDs returns the products that exist among ids, keyed by id. Malformed
// ids are treated as missing.
func (r *postgresRepo) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	out := make(map[string]domain.Product, len(valid))
	if len(valid) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1::uuid[])`, valid)
	if err != nil {
		r.logger.Printf("product repo: get many error=%v", err)
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = *p
	}
	return out, rows.Err()
}

// Upsert inserts a product or, when the SKU already exists, replaces its catalog
// fields. Stock and reviews of an existing product are left alone.
func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (sku, slug, name, description, price, compare_price, category, subcategory, brand,
    images, featured_image, attributes, tags, quantity, track_quantity, allow_out_of_stock_purchase, is_active)
VALUES (NULLIF($1, ''), NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (sku) DO UPDATE SET
    slug = EXCLUDED.slug,
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    compare_price = EXCLUDED.compare_price,
    category = EXCLUDED.category,
    subcategory = EXCLUDED.subcategory,
    brand = EXCLUDED.brand,
    images = EXCLUDED.images,
    featured_image = EXCLUDED.featured_image,
    attributes = EXCLUDED.attributes,
    tags = EXCLUDED.tags,
    is_active = EXCLUDED.is_active,
    updated_at = now()
RETURNING ` + productColumns

	if p.Slug == "" {
		p.Slug = domain.Slugify(p.Name)
	}
	row := r.pool.QueryRow(ctx, q,
		p.SKU,
		p.Slug,
		p.Name,
		p.Description,
		p.Price,
		p.ComparePrice,
		string(p.Category),
		p.Subcategory,
		p.Brand,
		nonNil(p.Images),
		p.FeaturedImage,
		nonNil(p.Attributes),
		nonNil(p.Tags),
		p.Inventory.Quantity,
		p.Inventory.TrackQuantity,
		p.Inventory.AllowOutOfStockPurchase,
		p.IsActive,
	)
	res, err := scanProduct(row)
	if err != nil {
		r.logger.Printf("product repo: upsert sku=%s error=%v", p.SKU, err)
		return nil, db.Translate(err)
	}
	r.logger.Printf("product repo: upserted sku=%s id=%s", res.SKU, res.ID)
	return res, nil
}

func (r *postgresRepo) Deactivate(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		r.logger.Printf("product repo: deactivate id=%s error=%v", id, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Printf("product repo: deactivated id=%s", id)
	return nil
}

// AddReview appends a review and refreshes the rating aggregates in one transaction.
// A user may review a product once.
func (r *postgresRepo) AddReview(ctx context.Context, id string, review domain.Review) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 AND is_active FOR UPDATE`, id))
	if err != nil {
		return nil, db.Translate(err)
	}
	for _, existing := range p.Reviews {
		if existing.UserID == review.UserID {
			return nil, domain.InvalidState("Product already reviewed")
		}
	}
	p.Reviews = append(p.Reviews, review)
	p.RecomputeRating()

	if _, err := tx.Exec(ctx, `
UPDATE products
SET reviews = $1, average_rating = $2, review_count = $3, updated_at = now()
WHERE id = $4
`, p.Reviews, p.AverageRating, p.ReviewCount, id); err != nil {
		r.logger.Printf("product repo: add review id=%s error=%v", id, err)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("product repo: review added id=%s rating=%d count=%d", id, review.Rating, p.ReviewCount)
	return p, nil
}

// TryReserve decrements tracked stock by qty if enough remains. Untracked
// products always succeed and keep their quantity. It reports false when the
// product is missing or short.
func TryReserve(ctx context.Context, q DBTX, productID string, qty int) (bool, error) {
	cmd, err := q.Exec(ctx, `
UPDATE products
SET quantity = CASE WHEN track_quantity THEN quantity - $1 ELSE quantity END,
    updated_at = now()
WHERE id = $2 AND (NOT track_quantity OR quantity >= $1)
`, qty, productID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// Release returns qty units to a tracked product. Missing or untracked products are skipped.
func Release(ctx context.Context, q DBTX, productID string, qty int) error {
	_, err := q.Exec(ctx, `
UPDATE products
SET quantity = quantity + $1, updated_at = now()
WHERE id = $2 AND track_quantity
`, qty, productID)
	return err
}

// Stock reads the current name and quantity of a product.
func Stock(ctx context.Context, q DBTX, productID string) (string, int, error) {
	var name string
	var qty int
	err := q.QueryRow(ctx, `SELECT name, quantity FROM products WHERE id = $1`, productID).Scan(&name, &qty)
	if err != nil {
		return "", 0, db.Translate(err)
	}
	return name, qty, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var category string
	if err := row.Scan(
		&p.ID,
		&p.SKU,
		&p.Slug,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.ComparePrice,
		&category,
		&p.Subcategory,
		&p.Brand,
		&p.Images,
		&p.FeaturedImage,
		&p.Attributes,
		&p.Tags,
		&p.Inventory.Quantity,
		&p.Inventory.TrackQuantity,
		&p.Inventory.AllowOutOfStockPurchase,
		&p.IsActive,
		&p.Reviews,
		&p.AverageRating,
		&p.ReviewCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Category = domain.Category(category)
	return &p, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
