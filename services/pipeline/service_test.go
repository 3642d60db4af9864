package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"beanscout-backend/lib/catalog"
	"beanscout-backend/lib/enrich"
	"beanscout-backend/lib/pagecache"
	"beanscout-backend/lib/testutil"
	"beanscout-backend/lib/vocab"
	"beanscout-backend/services/catalogstore"
	"beanscout-backend/services/catalogstore/db"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

const shopifyStorefront = `<!doctype html>
<html><head>
<link rel="stylesheet" href="https://cdn.shopify.com/s/files/theme.css">
</head><body>Kent Street Roasters</body></html>`

const shopifyProductsPage = `{"products": [
	{
		"id": 1,
		"title": "Ethiopia Yirgacheffe",
		"handle": "ethiopia-yirgacheffe",
		"body_html": "<p>A washed lot with notes of jasmine and lemon.</p>",
		"tags": "Light Roast, Washed, Jasmine, Single Origin",
		"images": [{"src": "https://cdn.example/yirgacheffe.jpg"}],
		"variants": [
			{"title": "250g", "price": "550.00", "grams": 250, "available": true}
		]
	},
	{
		"id": 2,
		"title": "Coffee Mug",
		"handle": "coffee-mug",
		"body_html": "<p>A sturdy ceramic mug.</p>",
		"tags": "Merch",
		"variants": [
			{"title": "Default", "price": "1200.00", "grams": 0, "available": true}
		]
	}
]}`

func newShopifyServer(t *testing.T, productRequests *atomic.Int64) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products.json":
			productRequests.Add(1)
			w.Header().Set("content-type", "application/json")
			if r.URL.Query().Get("page") == "1" {
				fmt.Fprint(w, shopifyProductsPage)
			} else {
				fmt.Fprint(w, `{"products": []}`)
			}
		default:
			fmt.Fprint(w, shopifyStorefront)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestScrapeShopifyRoaster(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "pipeline",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := catalogstore.NewStore(res.DB)

	cache, err := pagecache.Open(t.TempDir(), 0)
	require.NoError(t, err)
	defer cache.Close()

	var productRequests atomic.Int64
	server := newShopifyServer(t, &productRequests)

	roaster := catalog.Roaster{
		Name:       "Kent Street Roasters",
		Slug:       "kent-street-roasters",
		WebsiteUrl: server.URL,
	}

	svc := NewService(resty.New(), cache, store, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	stats, err := svc.ScrapeRoaster(ctx, roaster)
	require.NoError(t, err)
	require.NotEmpty(t, stats.RunId)

	// the mug is rejected at discovery, so only the coffee remains
	require.Equal(t, 1, stats.Discovered)
	require.Equal(t, 1, stats.Extracted)
	require.Equal(t, 1, stats.Uploaded)
	require.Zero(t, stats.Enriched)
	require.Zero(t, stats.Errors)

	roasterId, err := store.UpsertRoaster(ctx, roaster)
	require.NoError(t, err)

	coffees, err := store.Coffees(ctx, roasterId)
	require.NoError(t, err)
	require.Len(t, coffees, 1)

	coffee := coffees[0]
	require.Equal(t, "ethiopia-yirgacheffe", coffee.Slug)
	require.Equal(t, "Ethiopia Yirgacheffe", coffee.Name)
	require.Equal(t, vocab.RoastLight, coffee.RoastLevel)
	require.Equal(t, vocab.ProcessWashed, coffee.Process)
	require.Equal(t, map[int]float64{250: 550}, coffee.Prices)
	require.Contains(t, coffee.FlavorProfiles, "jasmine")
	require.False(t, coffee.EnrichedByLlm)

	// a rerun inside the cache lifetime serves the catalog from cache
	fetchesAfterFirstRun := productRequests.Load()
	stats, err = svc.ScrapeRoaster(ctx, roaster)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Extracted)
	require.Equal(t, 1, stats.Uploaded)
	require.Equal(t, fetchesAfterFirstRun, productRequests.Load())
}

// recordingStore counts persistence batches instead of writing rows.
type recordingStore struct {
	batches []int
}

func (s *recordingStore) UpsertRoaster(ctx context.Context, roaster catalog.Roaster) (int64, error) {
	return 1, nil
}

func (s *recordingStore) UpsertProducts(ctx context.Context, roasterId int64, products []catalog.Product) (int, error) {
	s.batches = append(s.batches, len(products))
	return len(products), nil
}

func TestScrapeBatchesPersistence(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "pipeline"})
	defer cleanup()

	cache, err := pagecache.Open(t.TempDir(), 0)
	require.NoError(t, err)
	defer cache.Close()

	var products string
	for i := 0; i < 12; i++ {
		if i > 0 {
			products += ","
		}
		products += fmt.Sprintf(`{
			"id": %d,
			"title": "Single Origin Lot %d",
			"handle": "single-origin-lot-%d",
			"body_html": "<p>Washed coffee.</p>",
			"tags": "Light Roast",
			"variants": [{"title": "250g", "price": "450.00", "grams": 250, "available": true}]
		}`, i+1, i+1, i+1)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products.json":
			w.Header().Set("content-type", "application/json")
			if r.URL.Query().Get("page") == "1" {
				fmt.Fprintf(w, `{"products": [%s]}`, products)
			} else {
				fmt.Fprint(w, `{"products": []}`)
			}
		default:
			fmt.Fprint(w, shopifyStorefront)
		}
	}))
	defer server.Close()

	store := &recordingStore{}
	svc := NewService(resty.New(), cache, store, Options{
		BatchSize:   5,
		Concurrency: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	stats, err := svc.ScrapeRoaster(ctx, catalog.Roaster{
		Name:       "Batch Roasters",
		Slug:       "batch-roasters",
		WebsiteUrl: server.URL,
	})
	require.NoError(t, err)

	require.Equal(t, 12, stats.Discovered)
	require.Equal(t, 12, stats.Extracted)
	require.Equal(t, 12, stats.Uploaded)
	require.Equal(t, []int{5, 5, 2}, store.batches)
}

// recordingCompleter captures the prompts a run sends to the model.
type recordingCompleter struct {
	mu      sync.Mutex
	prompts []string
	reply   string
}

func (c *recordingCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, user)
	return c.reply, nil
}

func TestScrapeEnrichmentReceivesPageText(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "pipeline"})
	defer cleanup()

	cache, err := pagecache.Open(t.TempDir(), 0)
	require.NoError(t, err)
	defer cache.Close()

	// a bare storefront with a product page that carries almost no
	// structured attributes, so enrichment has to run
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>%s/products/mystery-blend</loc></url>
</urlset>`, server.URL)
		case "/products/mystery-blend":
			fmt.Fprint(w, `<html><body>
<h1>Mystery Blend</h1>
<div class="description"><p>A comforting morning coffee.</p></div>
<span class="price">$15.00</span>
<section><p>Slow dried on raised beds near the mill.</p></section>
</body></html>`)
		default:
			fmt.Fprint(w, `<html><body>Mystery Roasters</body></html>`)
		}
	}))
	defer server.Close()

	completer := &recordingCompleter{
		reply: `{"roast_level": "light", "processing_method": "natural"}`,
	}
	store := &recordingStore{}
	svc := NewService(resty.New(), cache, store, Options{
		Enricher: enrich.New(completer),
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	stats, err := svc.ScrapeRoaster(ctx, catalog.Roaster{
		Name:       "Mystery Roasters",
		Slug:       "mystery-roasters",
		WebsiteUrl: server.URL,
	})
	require.NoError(t, err)

	require.Equal(t, 1, stats.Discovered)
	require.Equal(t, 1, stats.Extracted)
	require.Equal(t, 1, stats.Enriched)

	// the prompt carries the page rendering, not just the extracted
	// description
	require.Len(t, completer.prompts, 1)
	require.Contains(t, completer.prompts[0], "Page text:")
	require.Contains(t, completer.prompts[0], "Slow dried on raised beds near the mill.")
}
