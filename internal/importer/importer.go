package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog CSV exports and inserts/updates products by SKU.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
	}
}

type csvRow struct {
	line         int
	SKU          string
	Name         string
	Desc         string
	Price        string
	ComparePrice string
	Category     string
	Subcategory  string
	Brand        string
	Quantity     string
	Track        string
	Tags         []string
	ImageURLs    []string
}

// Run parses CSV rows and upserts one product per SKU row. Rows without a SKU
// that carry an image URL add that image to the preceding product.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["sku"]; !ok {
		return 0, errors.New("missing sku column")
	}

	var (
		current  *csvRow
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		row := parseRow(record, index)
		if row == nil {
			continue
		}
		row.line = line

		if row.SKU != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current = row
			continue
		}

		if current != nil && len(row.ImageURLs) > 0 {
			current.ImageURLs = append(current.ImageURLs, row.ImageURLs...)
		}
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	p, err := row.product()
	if err != nil {
		return fmt.Errorf("line %d (sku %q): %w", row.line, row.SKU, err)
	}
	if _, err := i.productRepo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert product %q: %w", row.SKU, err)
	}
	return nil
}

func (row *csvRow) product() (domain.Product, error) {
	if row.Name == "" || row.Price == "" || row.Category == "" {
		return domain.Product{}, errors.New("missing required fields")
	}
	price, err := decimal.NewFromString(row.Price)
	if err != nil || price.IsNegative() {
		return domain.Product{}, fmt.Errorf("invalid price %q", row.Price)
	}
	category := domain.Category(strings.ToLower(row.Category))
	if !category.Valid() {
		return domain.Product{}, fmt.Errorf("invalid category %q", row.Category)
	}

	p := domain.Product{
		SKU:         row.SKU,
		Name:        row.Name,
		Description: row.Desc,
		Price:       price.Round(2),
		Category:    category,
		Subcategory: row.Subcategory,
		Brand:       row.Brand,
		Tags:        row.Tags,
		Inventory:   domain.Inventory{TrackQuantity: true},
		IsActive:    true,
	}
	if row.ComparePrice != "" {
		cp, err := decimal.NewFromString(row.ComparePrice)
		if err != nil {
			return domain.Product{}, fmt.Errorf("invalid comparePrice %q", row.ComparePrice)
		}
		p.ComparePrice = decimal.NewNullDecimal(cp.Round(2))
	}
	if row.Quantity != "" {
		qty, err := strconv.Atoi(row.Quantity)
		if err != nil || qty < 0 {
			return domain.Product{}, fmt.Errorf("invalid quantity %q", row.Quantity)
		}
		p.Inventory.Quantity = qty
	}
	if row.Track != "" {
		track, err := strconv.ParseBool(row.Track)
		if err != nil {
			return domain.Product{}, fmt.Errorf("invalid trackQuantity %q", row.Track)
		}
		p.Inventory.TrackQuantity = track
	}
	for _, u := range row.ImageURLs {
		p.Images = append(p.Images, domain.Image{URL: u, Alt: row.Name})
	}
	if len(p.Images) > 0 {
		p.FeaturedImage = p.Images[0].URL
	}
	return p, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) *csvRow {
	sku := pick(record, index, "sku")
	imageURL := pick(record, index, "image")

	if sku == "" && imageURL == "" {
		return nil
	}

	row := &csvRow{
		SKU:          sku,
		Name:         pick(record, index, "name"),
		Desc:         pick(record, index, "description"),
		Price:        pick(record, index, "price"),
		ComparePrice: pick(record, index, "comparePrice"),
		Category:     pick(record, index, "category"),
		Subcategory:  pick(record, index, "subcategory"),
		Brand:        pick(record, index, "brand"),
		Quantity:     pick(record, index, "quantity"),
		Track:        pick(record, index, "trackQuantity"),
		Tags:         splitList(pick(record, index, "tags")),
	}
	if imageURL != "" {
		row.ImageURLs = []string{imageURL}
	}
	return row
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
