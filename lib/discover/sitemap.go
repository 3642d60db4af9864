package discover

import (
	"context"
	"encoding/xml"
	"log/slog"
	"strings"
	"sync"

	"beanscout-backend/lib/classify"
	"beanscout-backend/lib/pagecache"
	"beanscout-backend/lib/textutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
)

// sitemap locations probed in order
var sitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/wp-sitemap.xml",
	"/sitemap_products_1.xml",
}

// a child sitemap is recursed into only if its url looks product related
var productSitemapHints = []string{"product", "shop", "store", "collection"}

// url path fragments that mark an entry as a likely product page
var productUrlHints = []string{"/product/", "/products/", "/shop/", "/store/p/", "/item/"}

const sitemapFetchConcurrency = 2
const maxChildSitemaps = 10
const maxSitemapDepth = 3

type sitemapIndex struct {
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

type urlset struct {
	Urls []sitemapUrl `xml:"url"`
}

type sitemapUrl struct {
	Loc string `xml:"loc"`
}

type SitemapDiscoverer struct {
	fetcher
}

// sitemapWalk guards against index documents that reference each other
// (or themselves): every sitemap url is fetched at most once per walk.
type sitemapWalk struct {
	lock sync.Mutex
	seen map[string]bool
}

func (w *sitemapWalk) visit(sitemapUrl string) bool {
	key := pagecache.NormalizeUrlKey(sitemapUrl)
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.seen[key] {
		return false
	}
	w.seen[key] = true
	return true
}

func NewSitemapDiscoverer(http *resty.Client, cache *pagecache.Cache) SitemapDiscoverer {
	return SitemapDiscoverer{fetcher{http: http, cache: cache}}
}

func (d SitemapDiscoverer) Name() string { return MethodSitemap }

func (d SitemapDiscoverer) Discover(ctx context.Context, site Site) []Stub {
	ctx, span := tracer.Start(ctx, "sitemap:Discover")
	defer span.End()

	for _, path := range sitemapPaths {
		walk := &sitemapWalk{seen: map[string]bool{}}
		entries := d.collectEntries(ctx, site, site.resolve(path), walk, 0)
		if len(entries) == 0 {
			continue
		}

		var stubs []Stub
		seen := map[string]bool{}
		for _, entry := range entries {
			if seen[entry] {
				continue
			}
			seen[entry] = true

			stub, ok := d.stubFromEntry(entry)
			if ok {
				stubs = append(stubs, stub)
			}
		}
		if len(stubs) > 0 {
			span.SetAttributes(
				attribute.String("sitemap", path),
				attribute.Int("stubs", len(stubs)),
			)
			return stubs
		}
	}

	return nil
}

// collectEntries parses one sitemap document; index documents fan out
// into product-looking children under a small fetch bound, a depth cap
// and the walk's visited set.
func (d SitemapDiscoverer) collectEntries(ctx context.Context, site Site, sitemapUrl string, walk *sitemapWalk, depth int) []string {
	if depth > maxSitemapDepth || !walk.visit(sitemapUrl) {
		return nil
	}

	body, err := d.page(ctx, pagecache.NamespaceSitemaps, sitemapUrl)
	if err != nil {
		slog.DebugContext(ctx, "failed to fetch sitemap", "url", sitemapUrl, "err", err)
		return nil
	}

	var index sitemapIndex
	if err := xml.Unmarshal([]byte(body), &index); err == nil && len(index.Sitemaps) > 0 {
		return d.collectFromIndex(ctx, site, index, walk, depth)
	}

	var set urlset
	if err := xml.Unmarshal([]byte(body), &set); err != nil {
		slog.DebugContext(ctx, "skipping malformed sitemap", "url", sitemapUrl, "err", err)
		return nil
	}

	var entries []string
	for _, u := range set.Urls {
		entries = append(entries, strings.TrimSpace(u.Loc))
	}
	return entries
}

func (d SitemapDiscoverer) collectFromIndex(ctx context.Context, site Site, index sitemapIndex, walk *sitemapWalk, depth int) []string {
	var children []string
	for _, child := range index.Sitemaps {
		loc := strings.TrimSpace(child.Loc)
		if textutil.MatchName(loc, productSitemapHints) {
			children = append(children, loc)
		}
		if len(children) >= maxChildSitemaps {
			break
		}
	}

	sem := make(chan struct{}, sitemapFetchConcurrency)
	var wg sync.WaitGroup
	var lock sync.Mutex
	var entries []string

	for _, child := range children {
		wg.Add(1)
		go func(childUrl string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			childEntries := d.collectEntries(ctx, site, childUrl, walk, depth+1)

			lock.Lock()
			defer lock.Unlock()
			entries = append(entries, childEntries...)
		}(child)
	}
	wg.Wait()

	return entries
}

func (d SitemapDiscoverer) stubFromEntry(entry string) (Stub, bool) {
	lower := strings.ToLower(entry)
	isProductUrl := false
	for _, hint := range productUrlHints {
		if strings.Contains(lower, hint) {
			isProductUrl = true
			break
		}
	}
	if !isProductUrl {
		return Stub{}, false
	}

	slug := slugFromUrl(entry)
	name := nameFromSlug(slug)
	if !classify.IsProduct(name, entry, "", nil) {
		return Stub{}, false
	}

	return Stub{
		Name:   name,
		Slug:   slug,
		Url:    entry,
		Method: MethodSitemap,
	}, true
}
