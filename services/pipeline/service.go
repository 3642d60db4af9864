// Package pipeline orchestrates a full scraping run for a roaster:
// platform detection, discovery, extraction, enrichment and the
// hand-off to persistence. Work is batched with bounded concurrency so
// a large catalog neither hammers the storefront nor holds everything
// in flight at once.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"beanscout-backend/lib/catalog"
	"beanscout-backend/lib/discover"
	"beanscout-backend/lib/enrich"
	"beanscout-backend/lib/extract"
	"beanscout-backend/lib/htmlutil"
	"beanscout-backend/lib/pagecache"
	"beanscout-backend/lib/platform"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("beanscout.services.pipeline")

// Store receives the finished records at the end of a run.
type Store interface {
	UpsertRoaster(ctx context.Context, roaster catalog.Roaster) (int64, error)
	UpsertProducts(ctx context.Context, roasterId int64, products []catalog.Product) (int, error)
}

type Options struct {
	// products per persistence batch, default 10
	BatchSize int
	// concurrent extractions within a batch, default 4
	Concurrency int
	// pause between batches
	BatchDelay time.Duration
	// optional, nil disables llm enrichment
	Enricher *enrich.Enricher
}

// Stats counts what a run did. Errors counts products that were
// dropped, not failures of the run itself.
type Stats struct {
	RunId      string
	Discovered int
	Extracted  int
	Enriched   int
	Uploaded   int
	Errors     int
}

type Service struct {
	http      *resty.Client
	cache     *pagecache.Cache
	store     Store
	manager   *discover.Manager
	extractor extract.Extractor

	Options
}

func NewService(http *resty.Client, cache *pagecache.Cache, store Store, options Options) Service {
	if options.BatchSize <= 0 {
		options.BatchSize = 10
	}
	if options.Concurrency <= 0 {
		options.Concurrency = 4
	}
	return Service{
		http:      http,
		cache:     cache,
		store:     store,
		manager:   discover.NewManager(http, cache),
		extractor: extract.New(http, cache),
		Options:   options,
	}
}

// ScrapeRoaster runs the whole pipeline for one roaster. The returned
// error covers run-level failures only; per-product problems are
// logged, counted in Stats.Errors and do not stop the run.
func (s Service) ScrapeRoaster(ctx context.Context, roaster catalog.Roaster) (Stats, error) {
	stats := Stats{RunId: uuid.NewString()}

	ctx, span := tracer.Start(ctx, "ScrapeRoaster")
	defer span.End()
	span.SetAttributes(
		attribute.String("roaster", roaster.Slug),
		attribute.String("run_id", stats.RunId),
	)

	started := time.Now()
	slog.InfoContext(ctx, "starting scrape run", "roaster", roaster.Slug, "run_id", stats.RunId)

	rootUrl, err := url.Parse(roaster.WebsiteUrl)
	if err != nil || rootUrl.Host == "" {
		return stats, fmt.Errorf("invalid roaster website url %q: %w", roaster.WebsiteUrl, err)
	}

	roasterId, err := s.store.UpsertRoaster(ctx, roaster)
	if err != nil {
		return stats, fmt.Errorf("upsert roaster: %w", err)
	}
	roaster.Id = roasterId

	detection := platform.Detect(ctx, s.http, roaster.WebsiteUrl)
	site := discover.Site{RootUrl: rootUrl, Detection: detection}
	slog.InfoContext(ctx, "detected platform", "roaster", roaster.Slug, "platform", detection.Platform)

	stubs := s.manager.DiscoverSite(ctx, site, roaster)
	stats.Discovered = len(stubs)
	if len(stubs) == 0 {
		return stats, nil
	}

	for start := 0; start < len(stubs); start += s.BatchSize {
		if start > 0 && s.BatchDelay > 0 {
			select {
			case <-time.After(s.BatchDelay):
			case <-ctx.Done():
				return stats, ctx.Err()
			}
		}

		end := min(start+s.BatchSize, len(stubs))
		products := s.processBatch(ctx, site, roaster, stubs[start:end], &stats)
		if len(products) == 0 {
			continue
		}

		written, err := s.store.UpsertProducts(ctx, roasterId, products)
		if err != nil {
			slog.ErrorContext(ctx, "failed to persist batch", "roaster", roaster.Slug, "err", err)
			stats.Errors += len(products)
			continue
		}
		stats.Uploaded += written
	}

	slog.InfoContext(
		ctx, "scrape run finished",
		"roaster", roaster.Slug,
		"run_id", stats.RunId,
		"discovered", stats.Discovered,
		"extracted", stats.Extracted,
		"enriched", stats.Enriched,
		"uploaded", stats.Uploaded,
		"errors", stats.Errors,
		"elapsed", time.Since(started),
	)
	return stats, nil
}

// processBatch extracts (and if needed enriches) a slice of stubs with
// bounded concurrency, returning the records worth persisting.
func (s Service) processBatch(ctx context.Context, site discover.Site, roaster catalog.Roaster, stubs []discover.Stub, stats *Stats) []catalog.Product {
	ctx, span := tracer.Start(ctx, "processBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("stubs", len(stubs)))

	var mu sync.Mutex
	var products []catalog.Product

	sem := make(chan struct{}, s.Concurrency)
	wg := sync.WaitGroup{}
	for _, stub := range stubs {
		stub := stub
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			product, enriched, ok := s.processStub(ctx, site, roaster, stub)
			mu.Lock()
			defer mu.Unlock()
			if !ok {
				return
			}
			stats.Extracted++
			if enriched {
				stats.Enriched++
			}
			if err := product.Validate(); err != nil {
				slog.WarnContext(ctx, "dropping invalid product", "roaster", roaster.Slug, "err", err)
				stats.Errors++
				return
			}
			products = append(products, product)
		}()
	}
	wg.Wait()

	return products
}

func (s Service) processStub(ctx context.Context, site discover.Site, roaster catalog.Roaster, stub discover.Stub) (catalog.Product, bool, bool) {
	if product, ok := s.cachedProduct(ctx, roaster, stub); ok {
		return product, false, true
	}

	product, ok := s.extractor.Extract(ctx, site, stub, roaster)
	if !ok {
		return catalog.Product{}, false, false
	}

	enriched := false
	if s.Enricher != nil && enrich.NeedsEnrichment(product) {
		enriched = s.Enricher.Enrich(ctx, &product, s.pageText(ctx, stub))
	}

	s.cacheProduct(ctx, roaster, product)
	return product, enriched, true
}

// pageText renders the product page as the plain text handed to the
// completion model. Extraction already cached the page, so on the
// normal path this never refetches; api-only stubs have no page and
// yield an empty string.
func (s Service) pageText(ctx context.Context, stub discover.Stub) string {
	if s.cache == nil || stub.Url == "" {
		return ""
	}
	body, err := s.cache.Get(ctx, pagecache.NamespaceHtmlPages, pagecache.NormalizeUrlKey(stub.Url))
	if err != nil {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return htmlutil.CleanText(doc)
}

func productCacheKey(roaster catalog.Roaster, slug string) string {
	return roaster.Slug + "/" + slug
}

func (s Service) cachedProduct(ctx context.Context, roaster catalog.Roaster, stub discover.Stub) (catalog.Product, bool) {
	payload, err := s.cache.Get(ctx, pagecache.NamespaceExtractedProducts, productCacheKey(roaster, stub.Slug))
	if err != nil {
		return catalog.Product{}, false
	}
	var product catalog.Product
	if err := json.Unmarshal(payload, &product); err != nil {
		return catalog.Product{}, false
	}
	return product, true
}

func (s Service) cacheProduct(ctx context.Context, roaster catalog.Roaster, product catalog.Product) {
	payload, err := json.Marshal(product)
	if err != nil {
		return
	}
	err = s.cache.Put(ctx, pagecache.NamespaceExtractedProducts, productCacheKey(roaster, product.Slug), payload)
	if err != nil {
		slog.WarnContext(ctx, "failed to cache extracted product", "product", product.Slug, "err", err)
	}
}
