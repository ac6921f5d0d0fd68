package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"
	identitysvc "storefront/internal/service/identity"
)

const tokenTTL = 30 * 24 * time.Hour

type productSeed struct {
	SKU          string
	Name         string
	Description  string
	Price        string
	ComparePrice string
	Category     domain.Category
	Subcategory  string
	Brand        string
	Image        string
	Quantity     int
	Attributes   []domain.Attribute
	Tags         []string
}

var catalog = []productSeed{
	{
		SKU:          "MBP16-M3MAX-001",
		Name:         "MacBook Pro 16-inch",
		Description:  "16-inch laptop with an M3 Max chip and a Liquid Retina XDR display.",
		Price:        "3499.99",
		ComparePrice: "3799.99",
		Category:     domain.CategoryElectronics,
		Subcategory:  "computers",
		Brand:        "Apple",
		Image:        "https://images.unsplash.com/photo-1496181133206-80ce9b88a853?w=500&h=500&fit=crop",
		Quantity:     15,
		Attributes:   []domain.Attribute{{Name: "Memory", Value: "36GB"}, {Name: "Storage", Value: "1TB SSD"}},
		Tags:         []string{"laptop", "apple"},
	},
	{
		SKU:          "SONY-XM5-007",
		Name:         "Sony WH-1000XM5 Headphones",
		Description:  "Over-ear wireless headphones with active noise cancelling and 30 hour battery.",
		Price:        "399.99",
		ComparePrice: "449.99",
		Category:     domain.CategoryElectronics,
		Subcategory:  "audio",
		Brand:        "Sony",
		Quantity:     35,
		Attributes:   []domain.Attribute{{Name: "Battery Life", Value: "30 hours"}},
		Tags:         []string{"headphones", "audio"},
	},
	{
		SKU:         "ROBOT-VAC-PRO-003",
		Name:        "Robot Vacuum Cleaner",
		Description: "Mapping robot vacuum with scheduling and app control.",
		Price:       "499.99",
		Category:    domain.CategoryHome,
		Subcategory: "appliances",
		Brand:       "CleanBot",
		Quantity:    30,
		Tags:        []string{"vacuum", "smart-home"},
	},
	{
		SKU:         "ADJ-DUMBBELL-SET-004",
		Name:        "Adjustable Dumbbells Set",
		Description: "Pair of adjustable dumbbells from 5 to 50 lbs each.",
		Price:       "299.99",
		Category:    domain.CategorySports,
		Subcategory: "fitness",
		Brand:       "FitFlex",
		Quantity:    20,
		Tags:        []string{"fitness", "weights"},
	},
	{
		SKU:         "PSYCHOLOGY-MONEY-005",
		Name:        "The Psychology of Money",
		Description: "Hardcover edition, 256 pages.",
		Price:       "16.99",
		Category:    domain.CategoryMedia,
		Subcategory: "books",
		Brand:       "Morgan Housel",
		Quantity:    100,
		Tags:        []string{"books", "finance"},
	},
	{
		SKU:         "DOG-BED-ORTHO-014",
		Name:        "Orthopedic Dog Bed",
		Description: "Memory foam dog bed with a washable cover.",
		Price:       "89.99",
		Category:    domain.CategoryPets,
		Subcategory: "dogs",
		Brand:       "PawRest",
		Quantity:    3,
		Tags:        []string{"dog", "bed"},
	},
	{
		SKU:         "DESK-CHAIR-ERGO-021",
		Name:        "Ergonomic Office Chair",
		Description: "Mesh office chair with lumbar support and adjustable armrests.",
		Price:       "249.00",
		Category:    domain.CategoryOffice,
		Subcategory: "chairs",
		Brand:       "SitWell",
		Quantity:    0,
		Tags:        []string{"chair", "office"},
	},
	{
		SKU:         "LEGO-CITY-TRAIN-030",
		Name:        "City Passenger Train",
		Description: "Remote-controlled building set with track pieces.",
		Price:       "179.99",
		Category:    domain.CategoryToys,
		Subcategory: "building",
		Brand:       "LEGO",
		Quantity:    18,
		Tags:        []string{"lego", "train"},
	},
}

// Result reports what Apply created so the operator can try the API.
type Result struct {
	AdminToken    string
	CustomerToken string
	Products      int
}

// Apply inserts demo users, access tokens and a catalog. Products upsert by SKU
// and keep their current stock, so reruns are safe.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger *log.Logger) (*Result, error) {
	users := userrepo.NewPostgres(pool, logger)
	identity := identitysvc.New(users, tokenrepo.NewPostgres(pool))

	adminUser, err := users.Upsert(ctx, domain.User{Name: "Admin User", Email: "admin@store.com", Role: domain.RoleAdmin})
	if err != nil {
		return nil, fmt.Errorf("upsert admin: %w", err)
	}
	customer, err := users.Upsert(ctx, domain.User{Name: "John Customer", Email: "john@example.com", Role: domain.RoleUser})
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	res := &Result{}
	if res.AdminToken, _, err = identity.Issue(ctx, adminUser.ID, tokenTTL); err != nil {
		return nil, fmt.Errorf("issue admin token: %w", err)
	}
	if res.CustomerToken, _, err = identity.Issue(ctx, customer.ID, tokenTTL); err != nil {
		return nil, fmt.Errorf("issue customer token: %w", err)
	}

	products := productrepo.NewPostgres(pool, logger)
	for _, s := range catalog {
		p, err := s.product()
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", s.SKU, err)
		}
		if _, err := products.Upsert(ctx, p); err != nil {
			return nil, fmt.Errorf("upsert product %s: %w", s.SKU, err)
		}
		res.Products++
	}
	return res, nil
}

func (s productSeed) product() (domain.Product, error) {
	price, err := decimal.NewFromString(s.Price)
	if err != nil {
		return domain.Product{}, err
	}
	p := domain.Product{
		SKU:           s.SKU,
		Name:          s.Name,
		Description:   s.Description,
		Price:         price,
		Category:      s.Category,
		Subcategory:   s.Subcategory,
		Brand:         s.Brand,
		FeaturedImage: s.Image,
		Attributes:    s.Attributes,
		Tags:          s.Tags,
		Inventory:     domain.Inventory{Quantity: s.Quantity, TrackQuantity: true},
		IsActive:      true,
	}
	if s.Image != "" {
		p.Images = []domain.Image{{URL: s.Image, Alt: s.Name}}
	}
	if s.ComparePrice != "" {
		cp, err := decimal.NewFromString(s.ComparePrice)
		if err != nil {
			return domain.Product{}, err
		}
		p.ComparePrice = decimal.NewNullDecimal(cp)
	}
	return p, nil
}
