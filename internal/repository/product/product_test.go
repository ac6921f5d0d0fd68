package product

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/domain"
	"storefront/internal/pgtest"
)

func sample(sku, name string, price string, qty int) domain.Product {
	return domain.Product{
		SKU:         sku,
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Category:    domain.CategoryElectronics,
		Brand:       "Acme",
		Inventory:   domain.Inventory{Quantity: qty, TrackQuantity: true},
		IsActive:    true,
	}
}

func TestPostgres_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.New(t)
	repo := NewPostgres(pool, nil)

	p, err := repo.Upsert(ctx, sample("SKU-1", "Noise Cancelling Headphones", "199.99", 5))
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	assert.Equal(t, "noise-cancelling-headphones", p.Slug)

	updated := sample("SKU-1", "Noise Cancelling Headphones", "149.99", 99)
	updated.Slug = p.Slug
	again, err := repo.Upsert(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	assert.True(t, again.Price.Equal(decimal.RequireFromString("149.99")))
	assert.Equal(t, 5, again.Inventory.Quantity, "upsert must not overwrite stock")

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "SKU-1", got.SKU)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_ListFilters(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.New(t)
	repo := NewPostgres(pool, nil)

	cheap := sample("SKU-A", "Budget Mouse", "10.00", 0)
	mid := sample("SKU-B", "Gaming Keyboard", "60.00", 3)
	mid.Brand = "KeyCo"
	toy := sample("SKU-C", "Plush Bear", "25.00", 4)
	toy.Category = domain.CategoryToys
	hidden := sample("SKU-D", "Retired Cable", "5.00", 10)
	hidden.IsActive = false
	for _, p := range []domain.Product{cheap, mid, toy, hidden} {
		_, err := repo.Upsert(ctx, p)
		require.NoError(t, err)
	}

	all, total, err := repo.List(ctx, domain.ProductFilter{SortBy: domain.SortPrice, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, "SKU-A", all[0].SKU)

	inStock, total, err := repo.List(ctx, domain.ProductFilter{InStock: true, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, inStock, 2)

	byBrand, _, err := repo.List(ctx, domain.ProductFilter{Brand: "keyco", Limit: 10})
	require.NoError(t, err)
	require.Len(t, byBrand, 1)
	assert.Equal(t, "SKU-B", byBrand[0].SKU)

	priced, _, err := repo.List(ctx, domain.ProductFilter{
		MinPrice: decimal.NewNullDecimal(decimal.NewFromInt(20)),
		MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(30)),
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, priced, 1)
	assert.Equal(t, "SKU-C", priced[0].SKU)

	searched, _, err := repo.List(ctx, domain.ProductFilter{Search: "BEAR", Category: domain.CategoryToys, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, searched, 1)

	page2, total, err := repo.List(ctx, domain.ProductFilter{SortBy: domain.SortName, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page2, 1)
	assert.Equal(t, "SKU-C", page2[0].SKU)
}

func TestPostgres_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.New(t)
	repo := NewPostgres(pool, nil)

	p, err := repo.Upsert(ctx, sample("SKU-R", "Router", "80.00", 3))
	require.NoError(t, err)

	ok, err := TryReserve(ctx, pool, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = TryReserve(ctx, pool, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok, "only one unit left")

	name, qty, err := Stock(ctx, pool, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Router", name)
	assert.Equal(t, 1, qty)

	require.NoError(t, Release(ctx, pool, p.ID, 2))
	_, qty, err = Stock(ctx, pool, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, qty)

	untracked := sample("SKU-U", "E-Book", "9.00", 0)
	untracked.Inventory.TrackQuantity = false
	u, err := repo.Upsert(ctx, untracked)
	require.NoError(t, err)
	ok, err = TryReserve(ctx, pool, u.ID, 50)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, Release(ctx, pool, u.ID, 50))
	_, qty, err = Stock(ctx, pool, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
}

func TestPostgres_DeactivateAndReview(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.New(t)
	repo := NewPostgres(pool, nil)
	userA := pgtest.InsertUser(ctx, t, pool, "a@example.com", "user")
	userB := pgtest.InsertUser(ctx, t, pool, "b@example.com", "user")

	p, err := repo.Upsert(ctx, sample("SKU-V", "Vacuum", "120.00", 2))
	require.NoError(t, err)

	got, err := repo.AddReview(ctx, p.ID, domain.Review{UserID: userA, Rating: 5, Comment: "great"})
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReviewCount)

	got, err = repo.AddReview(ctx, p.ID, domain.Review{UserID: userB, Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, 3.5, got.AverageRating)

	_, err = repo.AddReview(ctx, p.ID, domain.Review{UserID: userA, Rating: 1})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	require.NoError(t, repo.Deactivate(ctx, p.ID))
	reloaded, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
	assert.Equal(t, 2, reloaded.ReviewCount)

	assert.ErrorIs(t, repo.Deactivate(ctx, "00000000-0000-0000-0000-000000000000"), domain.ErrNotFound)
}
