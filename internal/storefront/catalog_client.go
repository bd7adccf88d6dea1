package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/masad40/next-sc/internal/catalog"
	"github.com/masad40/next-sc/pkg/kit"
)

var (
	ErrCatalogNotFound    = errors.New("catalog item not found")
	ErrCatalogBadStatus   = errors.New("catalog bad status")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

const (
	catalogTimeout  = 3 * time.Second
	maxCatalogBody  = 4 << 20
	listPath        = "/items"
	defaultListTTL  = 30 * time.Minute
	defaultItemTTL  = time.Hour
	cacheHit        = "hit"
	cacheMiss       = "miss"
	cacheRevalidate = "revalidated"
	cacheError      = "error"
)

// Catalog is one fetched snapshot of the item list. Version changes whenever
// the list content does.
type Catalog struct {
	Items   []catalog.Item
	Version string
}

// NewItem is the payload the storefront posts to the catalog.
type NewItem struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
}

// CatalogClient reads and writes the catalog service over HTTP. Reads are
// cached: a fresh entry is served as is, a stale one is revalidated with
// If-None-Match.
type CatalogClient struct {
	BaseURL string
	Client  *http.Client
	Cache   ResponseCache
	Log     *zap.Logger

	ListTTL time.Duration
	ItemTTL time.Duration

	// CacheResults counts lookups by result; nil disables it.
	CacheResults *prometheus.CounterVec

	// Now defaults to time.Now.
	Now func() time.Time

	group singleflight.Group
}

func NewCatalogClient(baseURL string, cache ResponseCache) *CatalogClient {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	return &CatalogClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: catalogTimeout},
		Cache:   cache,
		ListTTL: defaultListTTL,
		ItemTTL: defaultItemTTL,
		Now:     time.Now,
	}
}

func (c *CatalogClient) ListItems(ctx context.Context) (Catalog, error) {
	e, err := c.fetch(ctx, listPath, c.ListTTL)
	if err != nil {
		return Catalog{}, err
	}

	items := make([]catalog.Item, 0, 16)
	if err := json.Unmarshal(e.Body, &items); err != nil {
		return Catalog{}, fmt.Errorf("%w: decode items: %v", ErrCatalogBadStatus, err)
	}

	version := e.ETag
	if version == "" {
		version = kit.ETag(e.Body)
	}
	return Catalog{Items: items, Version: version}, nil
}

// GetItem treats a 404, an empty body, a JSON null and an item without an id
// alike: the item does not exist.
func (c *CatalogClient) GetItem(ctx context.Context, id string) (catalog.Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return catalog.Item{}, ErrCatalogNotFound
	}

	e, err := c.fetch(ctx, "/items/"+url.PathEscape(id), c.ItemTTL)
	if err != nil {
		return catalog.Item{}, err
	}

	body := bytes.TrimSpace(e.Body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return catalog.Item{}, ErrCatalogNotFound
	}

	var it catalog.Item
	if err := json.Unmarshal(body, &it); err != nil {
		return catalog.Item{}, fmt.Errorf("%w: decode item: %v", ErrCatalogBadStatus, err)
	}
	if it.ID == 0 {
		return catalog.Item{}, ErrCatalogNotFound
	}
	return it, nil
}

func (c *CatalogClient) CreateItem(ctx context.Context, in NewItem) (catalog.Item, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return catalog.Item{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+listPath, bytes.NewReader(payload))
	if err != nil {
		return catalog.Item{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return catalog.Item{}, fmt.Errorf("%w: status=%d", ErrCatalogBadStatus, resp.StatusCode)
	}

	var cr catalog.CreateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCatalogBody)).Decode(&cr); err != nil {
		return catalog.Item{}, fmt.Errorf("%w: decode create: %v", ErrCatalogBadStatus, err)
	}
	if !cr.Success {
		return catalog.Item{}, fmt.Errorf("%w: create not acknowledged", ErrCatalogBadStatus)
	}

	if err := c.Cache.Delete(ctx, listPath); err != nil {
		c.logger().Warn("invalidate catalog list", zap.Error(err))
	}
	return cr.Item, nil
}

// fetch collapses concurrent lookups of the same path. The shared request
// outlives a cancelled caller; the client timeout still bounds it.
func (c *CatalogClient) fetch(ctx context.Context, path string, ttl time.Duration) (CacheEntry, error) {
	ch := c.group.DoChan(path, func() (any, error) {
		return c.fetchCached(context.WithoutCancel(ctx), path, ttl)
	})

	select {
	case <-ctx.Done():
		return CacheEntry{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return CacheEntry{}, res.Err
		}
		return res.Val.(CacheEntry), nil
	}
}

func (c *CatalogClient) fetchCached(ctx context.Context, path string, ttl time.Duration) (CacheEntry, error) {
	cached, ok, err := c.Cache.Get(ctx, path)
	if err != nil {
		c.count(cacheError)
		c.logger().Warn("catalog cache get", zap.String("path", path), zap.Error(err))
		ok = false
	}
	if ok && c.clock().Sub(cached.StoredAt) < ttl {
		c.count(cacheHit)
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return CacheEntry{}, err
	}
	if ok && cached.ETag != "" {
		req.Header.Set("If-None-Match", cached.ETag)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return CacheEntry{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && ok:
		cached.StoredAt = c.clock()
		c.store(ctx, path, cached)
		c.count(cacheRevalidate)
		return cached, nil
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return CacheEntry{}, ErrCatalogNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return CacheEntry{}, fmt.Errorf("%w: status=%d", ErrCatalogBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBody))
	if err != nil {
		return CacheEntry{}, fmt.Errorf("%w: read body: %v", ErrCatalogUnavailable, err)
	}

	e := CacheEntry{Body: body, ETag: resp.Header.Get("ETag"), StoredAt: c.clock()}
	c.count(cacheMiss)
	if len(bytes.TrimSpace(body)) > 0 {
		c.store(ctx, path, e)
	}
	return e, nil
}

func (c *CatalogClient) store(ctx context.Context, path string, e CacheEntry) {
	if err := c.Cache.Set(ctx, path, e); err != nil {
		c.count(cacheError)
		c.logger().Warn("catalog cache set", zap.String("path", path), zap.Error(err))
	}
}

func (c *CatalogClient) count(result string) {
	if c.CacheResults != nil {
		c.CacheResults.WithLabelValues(result).Inc()
	}
}

func (c *CatalogClient) clock() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *CatalogClient) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}
