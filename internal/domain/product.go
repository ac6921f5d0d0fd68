package domain

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryHome        Category = "home"
	CategorySports      Category = "sports"
	CategoryMedia       Category = "media"
	CategoryPets        Category = "pets"
	CategoryAutomotive  Category = "automotive"
	CategoryOffice      Category = "office"
	CategoryToys        Category = "toys"
	CategoryFurniture   Category = "furniture"
	CategoryFashion     Category = "fashion"
)

var categories = map[Category]struct{}{
	CategoryElectronics: {},
	CategoryHome:        {},
	CategorySports:      {},
	CategoryMedia:       {},
	CategoryPets:        {},
	CategoryAutomotive:  {},
	CategoryOffice:      {},
	CategoryToys:        {},
	CategoryFurniture:   {},
	CategoryFashion:     {},
}

func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Inventory struct {
	Quantity                int  `json:"quantity"`
	TrackQuantity           bool `json:"trackQuantity"`
	AllowOutOfStockPurchase bool `json:"allowOutOfStockPurchase"`
}

type Review struct {
	UserID    string    `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Product is a catalog entry. Products are never hard-deleted; IsActive=false hides them.
type Product struct {
	ID            string
	SKU           string
	Slug          string
	Name          string
	Description   string
	Price         decimal.Decimal
	ComparePrice  decimal.NullDecimal
	Category      Category
	Subcategory   string
	Brand         string
	Images        []Image
	FeaturedImage string
	Attributes    []Attribute
	Tags          []string
	Inventory     Inventory
	IsActive      bool
	Reviews       []Review
	AverageRating float64
	ReviewCount   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsInStock reports whether the product can currently be sold.
func (p Product) IsInStock() bool {
	if !p.Inventory.TrackQuantity {
		return true
	}
	return p.Inventory.Quantity > 0 || p.Inventory.AllowOutOfStockPurchase
}

// Covers reports whether tracked stock can satisfy qty units.
// allowOutOfStockPurchase does not relax this check.
func (p Product) Covers(qty int) bool {
	return !p.Inventory.TrackQuantity || p.Inventory.Quantity >= qty
}

// RecomputeRating refreshes AverageRating and ReviewCount from Reviews.
func (p *Product) RecomputeRating() {
	p.ReviewCount = len(p.Reviews)
	if p.ReviewCount == 0 {
		p.AverageRating = 0
		return
	}
	total := 0
	for _, r := range p.Reviews {
		total += r.Rating
	}
	avg := float64(total) / float64(p.ReviewCount)
	p.AverageRating = math.Round(avg*10) / 10
}

var (
	slugStrip  = regexp.MustCompile(`[^\w ]+`)
	slugSpaces = regexp.MustCompile(` +`)
)

// Slugify derives the URL slug used for products created without one.
func Slugify(name string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(name), "")
	return slugSpaces.ReplaceAllString(s, "-")
}

// ProductFilter narrows catalog listings. Zero values mean "no filter".
type ProductFilter struct {
	Category Category
	Brand    string
	MinPrice decimal.NullDecimal
	MaxPrice decimal.NullDecimal
	Search   string
	InStock  bool
	SortBy   string
	SortDesc bool
	Page     int
	Limit    int
}

const (
	SortCreatedAt     = "createdAt"
	SortPrice         = "price"
	SortName          = "name"
	SortAverageRating = "averageRating"
)

func ValidProductSort(s string) bool {
	switch s {
	case SortCreatedAt, SortPrice, SortName, SortAverageRating:
		return true
	}
	return false
}
