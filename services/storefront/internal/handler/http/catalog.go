package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NhuHoa123/stationery-storefront/pkg/httputil"
	"github.com/NhuHoa123/stationery-storefront/pkg/pagination"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/catalog"
)

// CatalogHandler serves the product listing and detail pages.
type CatalogHandler struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(c *catalog.Catalog, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: c, logger: logger}
}

// ListProducts handles GET /api/v1/products.
//
// Query parameters: category, q, price_range, sort, page, per_page.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.catalog.List(catalog.Query{
		Category:   q.Get("category"),
		Search:     q.Get("q"),
		PriceRange: catalog.PriceRange(q.Get("price_range")),
		Sort:       catalog.SortOrder(q.Get("sort")),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	page := pagination.Paginate(toProductResponses(products), pagination.FromRequest(r))
	httputil.WriteData(w, http.StatusOK, page)
}

// GetProduct handles GET /api/v1/products/{idOrSlug}.
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(chi.URLParam(r, "idOrSlug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, toProductResponse(product))
}

// ListCategories handles GET /api/v1/categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, toCategoryResponses(h.catalog.Categories()))
}
