// Package catalog proxies the public product listing, with a short-lived
// cache so browsing does not hammer the retail backend.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/royaliq/storefront/internal/upstream"
	"github.com/royaliq/storefront/pkg/config"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/localstore"
	"github.com/royaliq/storefront/pkg/logger"
)

const defaultListLimit = 200

type productSource interface {
	ListProducts(ctx context.Context, query upstream.ProductQuery) ([]upstream.Product, error)
	GetProduct(ctx context.Context, sku string) (*upstream.Product, error)
}

// Service answers product browsing requests.
type Service interface {
	List(ctx context.Context, query upstream.ProductQuery) ([]upstream.Product, error)
	Get(ctx context.Context, sku string) (*upstream.Product, error)
}

type service struct {
	source productSource
	cache  localstore.Store
	ttl    time.Duration
	logg   *logger.Logger
}

func NewService(source productSource, cache localstore.Store, cfg config.CatalogConfig, logg *logger.Logger) (Service, error) {
	if source == nil {
		return nil, fmt.Errorf("catalog product source required")
	}
	if cache == nil {
		return nil, fmt.Errorf("catalog cache required")
	}
	if logg == nil {
		return nil, fmt.Errorf("catalog logger required")
	}
	return &service{
		source: source,
		cache:  cache,
		ttl:    cfg.CacheTTL,
		logg:   logg,
	}, nil
}

func (s *service) List(ctx context.Context, query upstream.ProductQuery) ([]upstream.Product, error) {
	if query.Limit <= 0 {
		query.Limit = defaultListLimit
	}

	key := listCacheKey(query)
	var products []upstream.Product
	if s.cacheGet(ctx, key, &products) {
		return products, nil
	}

	products, err := s.source.ListProducts(ctx, query)
	if err != nil {
		return nil, err
	}
	s.cachePut(ctx, key, products)
	return products, nil
}

func (s *service) Get(ctx context.Context, sku string) (*upstream.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}

	key := localstore.CatalogKey("sku:" + sku)
	var product upstream.Product
	if s.cacheGet(ctx, key, &product) {
		return &product, nil
	}

	fetched, err := s.source.GetProduct(ctx, sku)
	if err != nil {
		return nil, err
	}
	s.cachePut(ctx, key, fetched)
	return fetched, nil
}

// cacheGet is best-effort: a miss, an expired entry, or an undecodable
// payload all mean "ask upstream".
func (s *service) cacheGet(ctx context.Context, key string, out any) bool {
	if s.ttl <= 0 {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "discarding undecodable catalog cache entry")
		return false
	}
	return true
}

func (s *service) cachePut(ctx context.Context, key string, value any) {
	if s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "catalog cache write failed")
	}
}

func listCacheKey(query upstream.ProductQuery) string {
	params := url.Values{}
	params.Set("q", strings.TrimSpace(query.Search))
	params.Set("category", strings.TrimSpace(query.Category))
	params.Set("limit", strconv.Itoa(query.Limit))
	return localstore.CatalogKey("list?" + params.Encode())
}
