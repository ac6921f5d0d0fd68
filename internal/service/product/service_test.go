package product

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/domain"
)

type stubRepo struct {
	lastFilter  domain.ProductFilter
	products    map[string]domain.Product
	lastReview  domain.Review
	reviewErr   error
	deactivated []string
}

func (s *stubRepo) List(_ context.Context, f domain.ProductFilter) ([]domain.Product, int, error) {
	s.lastFilter = f
	return []domain.Product{{ID: "p1"}}, 25, nil
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *stubRepo) Deactivate(_ context.Context, id string) error {
	if _, ok := s.products[id]; !ok {
		return domain.ErrNotFound
	}
	s.deactivated = append(s.deactivated, id)
	return nil
}

func (s *stubRepo) AddReview(_ context.Context, id string, r domain.Review) (*domain.Product, error) {
	if s.reviewErr != nil {
		return nil, s.reviewErr
	}
	s.lastReview = r
	p := s.products[id]
	return &p, nil
}

func TestList_Defaults(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo, 50, nil)

	page, err := svc.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	f := repo.lastFilter
	assert.Equal(t, domain.SortCreatedAt, f.SortBy)
	assert.True(t, f.SortDesc)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 12, f.Limit)
	assert.False(t, f.MinPrice.Valid)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.TotalPages())
}

func TestList_ParsesQuery(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo, 50, nil)

	_, err := svc.List(context.Background(), ListQuery{
		Category:  "toys",
		Brand:     " Lego ",
		MinPrice:  "10",
		MaxPrice:  "99.50",
		InStock:   "true",
		SortBy:    "price",
		SortOrder: "asc",
		Page:      3,
		Limit:     500,
	})
	require.NoError(t, err)
	f := repo.lastFilter
	assert.Equal(t, domain.CategoryToys, f.Category)
	assert.Equal(t, "Lego", f.Brand)
	assert.True(t, f.MinPrice.Decimal.Equal(decimal.NewFromInt(10)))
	assert.True(t, f.MaxPrice.Decimal.Equal(decimal.RequireFromString("99.50")))
	assert.True(t, f.InStock)
	assert.Equal(t, domain.SortPrice, f.SortBy)
	assert.False(t, f.SortDesc)
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 50, f.Limit, "limit is capped")
}

func TestList_RejectsBadQuery(t *testing.T) {
	svc := New(&stubRepo{}, 50, nil)
	for _, q := range []ListQuery{
		{Category: "spaceships"},
		{MinPrice: "cheap"},
		{MaxPrice: "-1"},
		{SortBy: "popularity"},
	} {
		_, err := svc.List(context.Background(), q)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "%+v", q)
	}
}

func TestGet_HidesInactive(t *testing.T) {
	repo := &stubRepo{products: map[string]domain.Product{
		"on":  {ID: "on", IsActive: true},
		"off": {ID: "off"},
	}}
	svc := New(repo, 50, nil)

	p, err := svc.Get(context.Background(), "on")
	require.NoError(t, err)
	assert.Equal(t, "on", p.ID)

	_, err = svc.Get(context.Background(), "off")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeactivate(t *testing.T) {
	repo := &stubRepo{products: map[string]domain.Product{"p1": {ID: "p1", IsActive: true}}}
	svc := New(repo, 50, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "p1"))
	assert.Equal(t, []string{"p1"}, repo.deactivated)
	assert.ErrorIs(t, svc.Deactivate(context.Background(), "p2"), domain.ErrNotFound)
}

func TestAddReview_Validation(t *testing.T) {
	repo := &stubRepo{products: map[string]domain.Product{"p1": {ID: "p1", IsActive: true}}}
	svc := New(repo, 50, nil)
	ctx := context.Background()

	_, err := svc.AddReview(ctx, "u1", "p1", 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.AddReview(ctx, "u1", "p1", 6, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.AddReview(ctx, "u1", "p1", 4, strings.Repeat("x", 1001))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.AddReview(ctx, "u1", "p1", 4, "  solid  ")
	require.NoError(t, err)
	assert.Equal(t, "solid", repo.lastReview.Comment)
	assert.Equal(t, "u1", repo.lastReview.UserID)
	assert.False(t, repo.lastReview.CreatedAt.IsZero())

	repo.reviewErr = domain.ErrNotFound
	_, err = svc.AddReview(ctx, "u1", "gone", 4, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, "Product not found", err.Error())
}
