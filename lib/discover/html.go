package discover

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"beanscout-backend/lib/classify"
	"beanscout-backend/lib/pagecache"
	"beanscout-backend/lib/textutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
)

// catalog seed paths the plain html strategy starts from
var htmlSeedPaths = []string{
	"/shop", "/store", "/products", "/collections/all",
	"/collections/coffee", "/product-category/coffee", "/coffee",
}

// links followed beyond the seeds: pagination and category pages only
var htmlFollowHints = []string{"page=", "/page/", "/collections/", "/product-category/", "/category/"}

const htmlMaxPages = 15

type HtmlDiscoverer struct {
	fetcher
}

func NewHtmlDiscoverer(http *resty.Client, cache *pagecache.Cache) HtmlDiscoverer {
	return HtmlDiscoverer{fetcher{http: http, cache: cache}}
}

func (d HtmlDiscoverer) Name() string { return MethodHtml }

// Discover crawls catalog seed paths plus their pagination/category
// links up to a page budget, pulling stubs out of product-card markup.
func (d HtmlDiscoverer) Discover(ctx context.Context, site Site) []Stub {
	ctx, span := tracer.Start(ctx, "html:Discover")
	defer span.End()

	queue := make([]string, 0, len(htmlSeedPaths))
	for _, path := range htmlSeedPaths {
		queue = append(queue, site.resolve(path))
	}

	visited := map[string]bool{}
	seen := map[string]bool{}
	var stubs []Stub

	for len(queue) > 0 && len(visited) < htmlMaxPages {
		pageUrl := queue[0]
		queue = queue[1:]

		key := pagecache.NormalizeUrlKey(pageUrl)
		if visited[key] {
			continue
		}
		visited[key] = true

		doc, err := d.document(ctx, pagecache.NamespaceHtmlPages, pageUrl)
		if err != nil {
			slog.DebugContext(ctx, "failed to fetch catalog page", "url", pageUrl, "err", err)
			continue
		}

		for _, stub := range cardStubs(ctx, site, doc, MethodHtml) {
			if stub.Url == "" || seen[stub.Url] {
				continue
			}
			seen[stub.Url] = true
			if !classify.IsProduct(stub.Name, stub.Url, stub.Description, stub.Tags) {
				continue
			}
			stubs = append(stubs, stub)
		}

		// enqueue pagination and category links on the same host
		for _, href := range pageLinks(ctx, doc, site) {
			if !textutil.MatchName(href, htmlFollowHints) {
				continue
			}
			queue = append(queue, href)
		}
	}

	span.SetAttributes(attribute.Int("stubs", len(stubs)), attribute.Int("pages", len(visited)))
	return stubs
}

func sameHost(rawUrl string, site Site) bool {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return false
	}
	return parsed.Host == "" || strings.EqualFold(parsed.Host, site.RootUrl.Host)
}
