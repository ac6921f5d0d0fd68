package product

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

const (
	defaultLimit     = 12
	maxCommentLength = 1000
)

type productRepo interface {
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Deactivate(ctx context.Context, id string) error
	AddReview(ctx context.Context, id string, review domain.Review) (*domain.Product, error)
}

type Service struct {
	repo     productRepo
	logger   *log.Logger
	maxLimit int
	now      func() time.Time
}

func New(repo productRepo, maxLimit int, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if maxLimit < 1 {
		maxLimit = 100
	}
	return &Service{repo: repo, logger: logger, maxLimit: maxLimit, now: time.Now}
}

// ListQuery is the raw catalog query as it arrives from the storefront.
type ListQuery struct {
	Category  string `form:"category"`
	Brand     string `form:"brand"`
	MinPrice  string `form:"minPrice"`
	MaxPrice  string `form:"maxPrice"`
	Search    string `form:"search"`
	InStock   string `form:"inStock"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}

type Page struct {
	Products []domain.Product
	Total    int
	Page     int
	Limit    int
}

func (p Page) TotalPages() int {
	if p.Limit < 1 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// List returns active products matching q. Newest first unless sortBy says
// otherwise; sortOrder only flips direction when it is exactly "asc" or "desc".
func (s *Service) List(ctx context.Context, q ListQuery) (*Page, error) {
	f, err := s.filter(q)
	if err != nil {
		return nil, err
	}
	products, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Page{Products: products, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *Service) filter(q ListQuery) (domain.ProductFilter, error) {
	f := domain.ProductFilter{
		Brand:    strings.TrimSpace(q.Brand),
		Search:   strings.TrimSpace(q.Search),
		InStock:  q.InStock == "true",
		SortBy:   domain.SortCreatedAt,
		SortDesc: true,
		Page:     q.Page,
		Limit:    q.Limit,
	}
	if c := strings.TrimSpace(q.Category); c != "" {
		f.Category = domain.Category(c)
		if !f.Category.Valid() {
			return f, domain.InvalidInput("Invalid category: %s", c)
		}
	}
	var err error
	if f.MinPrice, err = parsePrice("minPrice", q.MinPrice); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parsePrice("maxPrice", q.MaxPrice); err != nil {
		return f, err
	}
	if by := strings.TrimSpace(q.SortBy); by != "" {
		if !domain.ValidProductSort(by) {
			return f, domain.InvalidInput("Invalid sort field: %s", by)
		}
		f.SortBy = by
	}
	switch strings.ToLower(strings.TrimSpace(q.SortOrder)) {
	case "asc":
		f.SortDesc = false
	case "desc":
		f.SortDesc = true
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > s.maxLimit {
		f.Limit = s.maxLimit
	}
	return f, nil
}

func parsePrice(name, raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}, domain.InvalidInput("Invalid %s: %s", name, raw)
	}
	return decimal.NewNullDecimal(d), nil
}

// ByCategory is List restricted to one category with default paging.
func (s *Service) ByCategory(ctx context.Context, category string, page, limit int) (*Page, error) {
	return s.List(ctx, ListQuery{Category: category, Page: page, Limit: limit})
}

// Get returns an active product.
func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
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

// Deactivate hides a product from the catalog. Orders keep their snapshots.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("Product not found")
		}
		return err
	}
	s.logger.Printf("product service: deactivated id=%s", id)
	return nil
}

func (s *Service) AddReview(ctx context.Context, userID, productID string, rating int, comment string) (*domain.Product, error) {
	if rating < 1 || rating > 5 {
		return nil, domain.InvalidInput("Rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, domain.InvalidInput("Comment cannot exceed %d characters", maxCommentLength)
	}
	p, err := s.repo.AddReview(ctx, productID, domain.Review{
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Product not found")
		}
		return nil, err
	}
	return p, nil
}
