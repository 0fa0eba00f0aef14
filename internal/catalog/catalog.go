package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

const allCategoryName = "All Items"

var (
	// ErrCatalogInvalid signals a catalog asset that fails validation.
	ErrCatalogInvalid = errors.New("catalog: invalid data")
	// ErrCatalogEmpty is returned when the asset lists no products.
	ErrCatalogEmpty = errors.New("catalog: no products")
)

// CategoryDef declares a category before product counts are derived.
type CategoryDef struct {
	ID   string
	Name string
	Icon string
}

// Catalog is the fixed product list plus its category definitions. It is read-only after construction.
type Catalog struct {
	products   []domain.Product
	categories []domain.Category
	index      map[int]int
}

type catalogFile struct {
	Categories []categoryRecord `yaml:"categories"`
	Products   []productRecord  `yaml:"products"`
}

type categoryRecord struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Icon string `yaml:"icon"`
}

type productRecord struct {
	ID          int    `yaml:"id"`
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Price       string `yaml:"price"`
	Image       string `yaml:"image"`
	Description string `yaml:"description"`
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile reads a catalog asset from disk. An empty path selects the embedded catalog.
func LoadFile(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML catalog asset.
func Load(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}

	defs := make([]CategoryDef, 0, len(file.Categories))
	for _, c := range file.Categories {
		defs = append(defs, CategoryDef{ID: c.ID, Name: c.Name, Icon: c.Icon})
	}

	products := make([]domain.Product, 0, len(file.Products))
	for _, p := range file.Products {
		price, err := decimal.NewFromString(strings.TrimSpace(p.Price))
		if err != nil {
			return nil, fmt.Errorf("%w: product %d price %q", ErrCatalogInvalid, p.ID, p.Price)
		}
		products = append(products, domain.Product{
			ID:          p.ID,
			Name:        p.Name,
			Category:    p.Category,
			Price:       price,
			Image:       p.Image,
			Description: p.Description,
		})
	}
	return New(defs, products)
}

// New validates the inputs and builds a catalog. Product order is preserved; it is the
// tie-breaker for every sort.
func New(defs []CategoryDef, products []domain.Product) (*Catalog, error) {
	if len(products) == 0 {
		return nil, ErrCatalogEmpty
	}

	counts := make(map[string]int, len(defs))
	for _, def := range defs {
		id := strings.TrimSpace(def.ID)
		if id == "" || id == domain.CategoryAll {
			return nil, fmt.Errorf("%w: category id %q is reserved or empty", ErrCatalogInvalid, def.ID)
		}
		if _, dup := counts[id]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrCatalogInvalid, id)
		}
		counts[id] = 0
	}

	c := &Catalog{
		products: make([]domain.Product, 0, len(products)),
		index:    make(map[int]int, len(products)),
	}
	for _, p := range products {
		if _, dup := c.index[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product id %d", ErrCatalogInvalid, p.ID)
		}
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("%w: product %d has no name", ErrCatalogInvalid, p.ID)
		}
		if _, ok := counts[p.Category]; !ok {
			return nil, fmt.Errorf("%w: product %d has unknown category %q", ErrCatalogInvalid, p.ID, p.Category)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("%w: product %d has negative price", ErrCatalogInvalid, p.ID)
		}
		counts[p.Category]++
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}

	c.categories = make([]domain.Category, 0, len(defs)+1)
	c.categories = append(c.categories, domain.Category{
		ID:    domain.CategoryAll,
		Name:  allCategoryName,
		Icon:  "package",
		Count: len(c.products),
	})
	for _, def := range defs {
		id := strings.TrimSpace(def.ID)
		c.categories = append(c.categories, domain.Category{
			ID:    id,
			Name:  strings.TrimSpace(def.Name),
			Icon:  strings.TrimSpace(def.Icon),
			Count: counts[id],
		})
	}
	return c, nil
}

// Products returns a copy of the catalog in its original order.
func (c *Catalog) Products() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len reports the number of products.
func (c *Catalog) Len() int { return len(c.products) }

// Product looks up a product by id.
func (c *Catalog) Product(id int) (domain.Product, bool) {
	idx, ok := c.index[id]
	if !ok {
		return domain.Product{}, false
	}
	return c.products[idx], true
}

// Categories lists the "all" sentinel followed by the declared categories, with counts.
func (c *Catalog) Categories() []domain.Category {
	out := make([]domain.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// HasCategory reports whether id names a known category or the "all" sentinel.
func (c *Catalog) HasCategory(id string) bool {
	for _, cat := range c.categories {
		if cat.ID == id {
			return true
		}
	}
	return false
}

// Title returns the heading shown above the product grid for a category selection.
func (c *Catalog) Title(categoryID string) string {
	if categoryID == domain.CategoryAll {
		return "All Products"
	}
	for _, cat := range c.categories {
		if cat.ID == categoryID {
			return cat.Name
		}
	}
	return ""
}
