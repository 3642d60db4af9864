package discover

import (
	"context"
	"log/slog"
	"strings"

	"beanscout-backend/lib/classify"
	"beanscout-backend/lib/pagecache"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
)

const (
	deepCrawlMaxDepth = 2
	deepCrawlMaxPages = 30
)

// url path fragments never worth crawling into
var deepCrawlSkipPatterns = []string{
	"/cart", "/checkout", "/account", "/login", "/policies", "/blogs/",
	"/blog/", "/cdn/", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".pdf",
	".css", ".js", "mailto:", "tel:",
}

// DeepCrawlDiscoverer is the last-resort strategy: a bounded
// breadth-first crawl of the whole site, harvesting structured data and
// product grids from every visited page.
type DeepCrawlDiscoverer struct {
	fetcher
}

func NewDeepCrawlDiscoverer(http *resty.Client, cache *pagecache.Cache) DeepCrawlDiscoverer {
	return DeepCrawlDiscoverer{fetcher{http: http, cache: cache}}
}

func (d DeepCrawlDiscoverer) Name() string { return MethodDeepCrawl }

func (d DeepCrawlDiscoverer) Discover(ctx context.Context, site Site) []Stub {
	ctx, span := tracer.Start(ctx, "deepcrawl:Discover")
	defer span.End()

	type queued struct {
		url   string
		depth int
	}
	queue := []queued{{url: site.RootUrl.String(), depth: 0}}

	visited := map[string]bool{}
	seen := map[string]bool{}
	var stubs []Stub

	for len(queue) > 0 && len(visited) < deepCrawlMaxPages {
		item := queue[0]
		queue = queue[1:]

		key := pagecache.NormalizeUrlKey(item.url)
		if visited[key] {
			continue
		}
		visited[key] = true

		doc, err := d.document(ctx, pagecache.NamespaceHtmlPages, item.url)
		if err != nil {
			slog.DebugContext(ctx, "failed to fetch page during deep crawl", "url", item.url, "err", err)
			continue
		}

		found := jsonLdStubs(ctx, site, doc)
		found = append(found, microdataStubs(site, doc)...)
		found = append(found, cardStubs(ctx, site, doc, MethodDeepCrawl)...)
		for _, stub := range found {
			stub.Method = MethodDeepCrawl
			if stub.Url == "" || seen[stub.Url] {
				continue
			}
			seen[stub.Url] = true
			if !classify.IsProduct(stub.Name, stub.Url, stub.Description, stub.Tags) {
				continue
			}
			stubs = append(stubs, stub)
		}

		if item.depth >= deepCrawlMaxDepth {
			continue
		}
		for _, href := range pageLinks(ctx, doc, site) {
			if skipDeepCrawlUrl(href) {
				continue
			}
			queue = append(queue, queued{url: href, depth: item.depth + 1})
		}
	}

	span.SetAttributes(attribute.Int("stubs", len(stubs)), attribute.Int("pages", len(visited)))
	return stubs
}

func skipDeepCrawlUrl(rawUrl string) bool {
	lower := strings.ToLower(rawUrl)
	for _, pattern := range deepCrawlSkipPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
