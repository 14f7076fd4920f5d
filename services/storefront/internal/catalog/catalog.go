// Package catalog serves the static product list shown on the storefront.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	apperrors "github.com/NhuHoa123/stationery-storefront/pkg/errors"
	"github.com/NhuHoa123/stationery-storefront/pkg/slug"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/domain"
)

//go:embed catalog.yaml
var embedded []byte

// AllCategories is the pseudo-category matching every product.
const AllCategories = "all"

// Product is a catalog entry.
type Product struct {
	ID            string
	Slug          string
	Name          string
	Description   string
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
	Rating        float64
	Reviews       int
	Image         string
	Category      string
	InStock       bool
	IsNew         bool
}

// CartProduct returns the descriptor stored on a cart line.
func (p Product) CartProduct(variant string) domain.Product {
	return domain.Product{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.Image,
		Category: p.Category,
		Variant:  variant,
	}
}

// Category groups products on the listing page.
type Category struct {
	ID    string
	Name  string
	Slug  string
	Count int
}

// Catalog is an immutable, in-memory product list. It is safe for
// concurrent use.
type Catalog struct {
	products   []Product
	byID       map[string]int
	bySlug     map[string]int
	categories []Category
}

type fileCategory struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type fileProduct struct {
	ID            string  `yaml:"id"`
	Name          string  `yaml:"name"`
	Description   string  `yaml:"description"`
	Price         string  `yaml:"price"`
	OriginalPrice string  `yaml:"original_price"`
	Rating        float64 `yaml:"rating"`
	Reviews       int     `yaml:"reviews"`
	Image         string  `yaml:"image"`
	Category      string  `yaml:"category"`
	InStock       bool    `yaml:"in_stock"`
	IsNew         bool    `yaml:"is_new"`
}

type file struct {
	Categories []fileCategory `yaml:"categories"`
	Products   []fileProduct  `yaml:"products"`
}

// Load reads the catalog from path, or the built-in catalog when path is
// empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(embedded)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Catalog from a YAML document. Product IDs must be unique,
// prices must be non-negative decimals and every product must reference a
// declared category.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		products: make([]Product, 0, len(f.Products)),
		byID:     make(map[string]int, len(f.Products)),
		bySlug:   make(map[string]int, len(f.Products)),
	}

	catIndex := make(map[string]int, len(f.Categories))
	for _, fc := range f.Categories {
		if fc.ID == "" || fc.ID == AllCategories {
			return nil, fmt.Errorf("parse catalog: invalid category id %q", fc.ID)
		}
		if _, dup := catIndex[fc.ID]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate category %q", fc.ID)
		}
		catIndex[fc.ID] = len(c.categories)
		c.categories = append(c.categories, Category{ID: fc.ID, Name: fc.Name, Slug: slug.Generate(fc.Name)})
	}

	for _, fp := range f.Products {
		p, err := fp.toProduct()
		if err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate product id %q", p.ID)
		}
		ci, ok := catIndex[p.Category]
		if !ok {
			return nil, fmt.Errorf("parse catalog: product %q has unknown category %q", p.ID, p.Category)
		}

		c.byID[p.ID] = len(c.products)
		if _, taken := c.bySlug[p.Slug]; !taken {
			c.bySlug[p.Slug] = len(c.products)
		}
		c.categories[ci].Count++
		c.products = append(c.products, p)
	}

	return c, nil
}

func (fp fileProduct) toProduct() (Product, error) {
	if fp.ID == "" {
		return Product{}, fmt.Errorf("product %q has no id", fp.Name)
	}
	price, err := decimal.NewFromString(fp.Price)
	if err != nil {
		return Product{}, fmt.Errorf("product %q price %q: %w", fp.ID, fp.Price, err)
	}
	if price.IsNegative() {
		return Product{}, fmt.Errorf("product %q has negative price", fp.ID)
	}
	original := price
	if fp.OriginalPrice != "" {
		if original, err = decimal.NewFromString(fp.OriginalPrice); err != nil {
			return Product{}, fmt.Errorf("product %q original price %q: %w", fp.ID, fp.OriginalPrice, err)
		}
	}

	return Product{
		ID:            fp.ID,
		Slug:          slug.Generate(fp.Name),
		Name:          fp.Name,
		Description:   fp.Description,
		Price:         price,
		OriginalPrice: original,
		Rating:        fp.Rating,
		Reviews:       fp.Reviews,
		Image:         fp.Image,
		Category:      fp.Category,
		InStock:       fp.InStock,
		IsNew:         fp.IsNew,
	}, nil
}

// Get looks a product up by ID, falling back to its slug.
func (c *Catalog) Get(idOrSlug string) (Product, error) {
	if i, ok := c.byID[idOrSlug]; ok {
		return c.products[i], nil
	}
	if i, ok := c.bySlug[idOrSlug]; ok {
		return c.products[i], nil
	}
	return Product{}, apperrors.NotFound("product", idOrSlug)
}

// Categories returns the "all" pseudo-category followed by the declared
// categories, each with its product count.
func (c *Catalog) Categories() []Category {
	out := make([]Category, 0, len(c.categories)+1)
	out = append(out, Category{ID: AllCategories, Name: "All Products", Slug: AllCategories, Count: len(c.products)})
	return append(out, c.categories...)
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// PriceRange buckets products by price.
type PriceRange string

const (
	PriceAny      PriceRange = "all"
	PriceUnder50  PriceRange = "under-50"
	Price50To100  PriceRange = "50-100"
	Price100To200 PriceRange = "100-200"
	PriceOver200  PriceRange = "over-200"
)

var (
	fifty      = decimal.NewFromInt(50)
	oneHundred = decimal.NewFromInt(100)
	twoHundred = decimal.NewFromInt(200)
)

// Contains reports whether price falls in the range. Both bounds of the
// middle ranges are inclusive.
func (r PriceRange) Contains(price decimal.Decimal) bool {
	switch r {
	case PriceUnder50:
		return price.LessThan(fifty)
	case Price50To100:
		return price.GreaterThanOrEqual(fifty) && price.LessThanOrEqual(oneHundred)
	case Price100To200:
		return price.GreaterThanOrEqual(oneHundred) && price.LessThanOrEqual(twoHundred)
	case PriceOver200:
		return price.GreaterThan(twoHundred)
	default:
		return true
	}
}

func (r PriceRange) valid() bool {
	switch r {
	case "", PriceAny, PriceUnder50, Price50To100, Price100To200, PriceOver200:
		return true
	}
	return false
}

// SortOrder orders a listing.
type SortOrder string

const (
	SortFeatured  SortOrder = "featured"
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
	SortRating    SortOrder = "rating"
	SortNewest    SortOrder = "newest"
)

func (s SortOrder) valid() bool {
	switch s {
	case "", SortFeatured, SortPriceLow, SortPriceHigh, SortRating, SortNewest:
		return true
	}
	return false
}

// Query filters and orders a listing. Zero values match everything in
// catalog order.
type Query struct {
	Category   string
	Search     string
	PriceRange PriceRange
	Sort       SortOrder
}

// List returns the products matching q. Every sort is stable, so ties keep
// catalog order.
func (c *Catalog) List(q Query) ([]Product, error) {
	if !q.PriceRange.valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown price range %q", q.PriceRange))
	}
	if !q.Sort.valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown sort %q", q.Sort))
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if q.Category != "" && q.Category != AllCategories && p.Category != q.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if !q.PriceRange.Contains(p.Price) {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	case SortRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	case SortNewest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].IsNew && !out[j].IsNew })
	}

	return out, nil
}
