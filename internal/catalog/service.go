package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/feedspring/backend-store/internal/common"
	"github.com/feedspring/backend-store/internal/events"
	"github.com/feedspring/backend-store/internal/pricing"
	"github.com/feedspring/backend-store/internal/store"
)

// Querier is the subset of store queries the catalog service needs.
type Querier interface {
	SnapshotQuerier
	GetProductBySlug(ctx context.Context, slug string) (store.Product, error)
	ListProducts(ctx context.Context, arg store.ListProductsParams) ([]store.Product, error)
	CountProducts(ctx context.Context) (int64, error)
	CreateProduct(ctx context.Context, arg store.CreateProductParams) (store.Product, error)
}

// Service orchestrates catalog queries, effective-price computation and caching.
type Service struct {
	Queries Querier
	Cache   *Cache
	Events  *events.Bus
	Now     func() time.Time
}

// ProductListItem represents an entry in list responses. EffectivePrice is
// the advertised single-unit, non-autoship price after current discounts.
type ProductListItem struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Slug             string `json:"slug"`
	BasePrice        int64  `json:"basePrice"`
	EffectivePrice   int64  `json:"effectivePrice"`
	InStock          bool   `json:"inStock"`
	AutoshipEligible bool   `json:"autoshipEligible"`
}

// ProductDetail aggregates the full detail payload.
type ProductDetail struct {
	ProductListItem
	Stock     int64                     `json:"stock"`
	Discounts []pricing.AppliedDiscount `json:"discountsApplied"`
	CreatedAt time.Time                 `json:"createdAt"`
}

// ListResult contains list data and pagination metadata.
type ListResult struct {
	Items []ProductListItem `json:"items"`
	Total int64             `json:"total"`
}

// CreateInput is an admin-supplied product definition.
type CreateInput struct {
	Title            string
	Slug             string
	BasePrice        int64
	AutoshipEligible bool
	Stock            int64
}

// ListCacheKey holds the cached first page of the product listing.
const ListCacheKey = "catalog:products:list:first"

// DetailCacheKey returns the cache key for one product detail page.
func DetailCacheKey(slug string) string {
	return "catalog:products:detail:" + slug
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// List returns active products with effective prices. Only the unfiltered
// first page is cached.
func (s *Service) List(ctx context.Context, limit, offset int32) (ListResult, error) {
	useCache := limit == 20 && offset == 0
	if useCache {
		var cached ListResult
		if ok, err := s.Cache.GetJSON(ctx, ListCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	products, err := s.Queries.ListProducts(ctx, store.ListProductsParams{Limit: limit, Offset: offset})
	if err != nil {
		return ListResult{}, fmt.Errorf("list products: %w", err)
	}
	total, err := s.Queries.CountProducts(ctx)
	if err != nil {
		return ListResult{}, fmt.Errorf("count products: %w", err)
	}

	items := make([]ProductListItem, 0, len(products))
	for _, p := range products {
		quote, err := s.unitQuote(ctx, p)
		if err != nil {
			return ListResult{}, err
		}
		items = append(items, listItem(p, quote))
	}
	result := ListResult{Items: items, Total: total}
	if useCache {
		_ = s.Cache.SetJSON(ctx, ListCacheKey, result)
	}
	return result, nil
}

// Detail returns one product by slug with its current discount breakdown.
func (s *Service) Detail(ctx context.Context, slug string) (ProductDetail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ProductDetail{}, common.ErrBadRequest("slug is required")
	}
	key := DetailCacheKey(slug)
	var cached ProductDetail
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	p, err := s.Queries.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ProductDetail{}, common.ErrNotFound("product not found")
		}
		return ProductDetail{}, fmt.Errorf("get product by slug: %w", err)
	}
	quote, err := s.unitQuote(ctx, p)
	if err != nil {
		return ProductDetail{}, err
	}
	detail := ProductDetail{
		ProductListItem: listItem(p, quote),
		Stock:           p.Stock,
		Discounts:       quote.Applied,
		CreatedAt:       p.CreatedAt.Time,
	}
	if detail.Discounts == nil {
		detail.Discounts = []pricing.AppliedDiscount{}
	}
	_ = s.Cache.SetJSON(ctx, key, detail)
	return detail, nil
}

// Create inserts a product and drops stale cache entries.
func (s *Service) Create(ctx context.Context, in CreateInput) (store.Product, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Slug) == "" {
		return store.Product{}, common.ErrBadRequest("title and slug are required")
	}
	if in.BasePrice < 0 || in.Stock < 0 {
		return store.Product{}, common.ErrBadRequest("price and stock must not be negative")
	}
	created, err := s.Queries.CreateProduct(ctx, store.CreateProductParams{
		Title:            strings.TrimSpace(in.Title),
		Slug:             strings.TrimSpace(in.Slug),
		BasePrice:        in.BasePrice,
		AutoshipEligible: in.AutoshipEligible,
		Stock:            in.Stock,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return store.Product{}, common.ErrConflict("slug is already in use")
		}
		return store.Product{}, err
	}
	s.Cache.Invalidate(ctx, ListCacheKey, DetailCacheKey(created.Slug))
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicProductCreated, created.ID, map[string]any{
			"product_id": store.UUIDString(created.ID),
			"slug":       created.Slug,
		})
	}
	return created, nil
}

// unitQuote prices a single non-autoship unit of the product. Malformed
// discount data falls back to the base price; the checkout quote path stays
// strict about it.
func (s *Service) unitQuote(ctx context.Context, p store.Product) (pricing.PriceQuote, error) {
	snapshot := Snapshot{Q: s.Queries}
	asOf := s.now()
	productID := store.UUIDValue(p.ID)
	discounts, err := snapshot.ActiveDiscounts(ctx, productID, asOf)
	if err != nil {
		return pricing.PriceQuote{}, fmt.Errorf("fetch discounts: %w", err)
	}
	usage := map[uuid.UUID]int64{}
	for _, d := range discounts {
		if d.UsageLimit == nil {
			continue
		}
		count, err := snapshot.UsageCount(ctx, d.ID)
		if err != nil {
			return pricing.PriceQuote{}, fmt.Errorf("fetch usage: %w", err)
		}
		usage[d.ID] = count
	}
	eligible := pricing.Filter(discounts, pricing.Context{
		ProductID:     productID,
		IsAutoship:    false,
		OrderSubtotal: p.BasePrice,
		AsOf:          asOf,
		UsageCounts:   usage,
	})
	quote, err := pricing.Resolve(productID, p.BasePrice, eligible, 1)
	if err != nil {
		var verr *pricing.ValidationError
		if errors.As(err, &verr) {
			return pricing.PriceQuote{
				ProductID:      productID,
				Quantity:       1,
				UnitPrice:      p.BasePrice,
				FinalUnitPrice: p.BasePrice,
				BasePrice:      p.BasePrice,
				LineTotal:      p.BasePrice,
			}, nil
		}
		return pricing.PriceQuote{}, err
	}
	return quote, nil
}

func listItem(p store.Product, quote pricing.PriceQuote) ProductListItem {
	return ProductListItem{
		ID:               store.UUIDString(p.ID),
		Title:            p.Title,
		Slug:             p.Slug,
		BasePrice:        p.BasePrice,
		EffectivePrice:   quote.FinalUnitPrice,
		InStock:          p.Stock > 0,
		AutoshipEligible: p.AutoshipEligible,
	}
}
