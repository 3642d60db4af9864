// Package discover turns a roaster's root url into candidate product
// stubs. Each strategy reads one signal source (platform API, sitemap,
// structured data, rendered html) and is best-effort: internal failures
// are logged and produce partial or empty results, never errors.
package discover

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"beanscout-backend/lib/pagecache"
	"beanscout-backend/lib/platform"
	"beanscout-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("beanscout.lib.discover")

// Discovery method names recorded on stubs.
const (
	MethodShopifyApi     = "shopify_api"
	MethodWooCommerceApi = "woocommerce_api"
	MethodSitemap        = "sitemap"
	MethodStructuredData = "structured_data"
	MethodDeepCrawl      = "deep_crawl"
	MethodHtml           = "html"
)

// Stub is a minimally-populated candidate product prior to full-page
// extraction. Url is the unique key stubs are reconciled on.
type Stub struct {
	Name        string
	Slug        string
	Url         string
	ImageUrl    string
	Description string
	Tags        []string
	Method      string
	// original API payload where the strategy had one (shopify items),
	// so extraction can reuse it without refetching
	Raw json.RawMessage
}

// populated counts non-empty fields, used to pick a winner when two
// strategies found the same url.
func (s Stub) populated() int {
	n := 0
	for _, field := range []string{s.Name, s.Slug, s.Url, s.ImageUrl, s.Description} {
		if field != "" {
			n++
		}
	}
	if len(s.Tags) > 0 {
		n++
	}
	if len(s.Raw) > 0 {
		n++
	}
	return n
}

// Site is the per-roaster context threaded through every strategy.
type Site struct {
	RootUrl   *url.URL
	Detection platform.Detection
}

func (s Site) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}
	return s.RootUrl.ResolveReference(ref).String()
}

// Discoverer is the shared strategy contract. Implementations never
// return errors; they log and yield whatever they managed to find.
type Discoverer interface {
	Name() string
	Discover(ctx context.Context, site Site) []Stub
}

type fetcher struct {
	http  *resty.Client
	cache *pagecache.Cache
}

// page fetches a url through the html page cache.
func (f fetcher) page(ctx context.Context, namespace, pageUrl string) (string, error) {
	key := pagecache.NormalizeUrlKey(pageUrl)
	if f.cache != nil {
		cached, err := f.cache.Get(ctx, namespace, key)
		if err == nil {
			return string(cached), nil
		}
	}

	res, err := f.http.R().SetContext(ctx).Get(pageUrl)
	if err != nil {
		return "", err
	}
	body := res.String()
	if f.cache != nil && res.StatusCode() == 200 {
		_ = f.cache.Put(ctx, namespace, key, []byte(body))
	}
	return body, nil
}

func (f fetcher) document(ctx context.Context, namespace, pageUrl string) (*goquery.Document, error) {
	body, err := f.page(ctx, namespace, pageUrl)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

// nameFromSlug reconstructs a display name from a url slug, for
// classifying sitemap entries that carry nothing but a url.
func nameFromSlug(slug string) string {
	words := strings.Split(strings.ReplaceAll(slug, "_", "-"), "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.TrimSpace(strings.Join(words, " "))
}

func slugFromUrl(productUrl string) string {
	parsed, err := url.Parse(productUrl)
	if err != nil {
		return textutil.Slugify(productUrl)
	}
	path := strings.Trim(parsed.Path, "/")
	segments := strings.Split(path, "/")
	if len(segments) == 0 {
		return ""
	}
	return textutil.Slugify(segments[len(segments)-1])
}
