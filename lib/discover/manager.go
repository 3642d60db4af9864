package discover

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"beanscout-backend/lib/catalog"
	"beanscout-backend/lib/pagecache"
	"beanscout-backend/lib/platform"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
)

// a strategy yielding fewer stubs than this is suspicious: the site
// probably has more products than the signal source exposes. flagged,
// not acted on.
const suspiciouslyFewStubs = 3

// Manager runs discovery strategies as an ordered cascade and stops at
// the first strategy that yields any stubs. Structured sources are
// cheaper and cleaner than full html crawling, which is the point of
// the ordering.
type Manager struct {
	http  *resty.Client
	cache *pagecache.Cache
	// pause between strategies, bounds request rate against the site
	Delay time.Duration
	// overrides the platform-derived cascade when set
	Strategies []Discoverer
}

func NewManager(http *resty.Client, cache *pagecache.Cache) *Manager {
	return &Manager{
		http:  http,
		cache: cache,
		Delay: time.Second,
	}
}

// cascade builds the strategy order for a detected platform. Platform
// API strategies run only when the detector identified that platform.
func (m *Manager) cascade(detection platform.Detection) []Discoverer {
	var order []Discoverer
	switch detection.Platform {
	case platform.Shopify:
		order = append(order, NewShopifyDiscoverer(m.http, m.cache))
	case platform.WooCommerce:
		order = append(order, NewWooCommerceDiscoverer(m.http, m.cache))
	}
	order = append(order,
		NewSitemapDiscoverer(m.http, m.cache),
		NewStructuredDataDiscoverer(m.http, m.cache),
		NewDeepCrawlDiscoverer(m.http, m.cache),
		NewHtmlDiscoverer(m.http, m.cache),
	)
	return order
}

// Discover locates candidate product pages for a roaster. Never fails;
// an unreachable site yields an empty list.
func (m *Manager) Discover(ctx context.Context, roaster catalog.Roaster) []Stub {
	ctx, span := tracer.Start(ctx, "manager:Discover")
	defer span.End()
	span.SetAttributes(attribute.String("roaster", roaster.Slug))

	rootUrl, err := url.Parse(roaster.WebsiteUrl)
	if err != nil || rootUrl.Host == "" {
		slog.WarnContext(ctx, "invalid roaster website url", "roaster", roaster.Name, "url", roaster.WebsiteUrl)
		return nil
	}

	detection := platform.Detect(ctx, m.http, roaster.WebsiteUrl)
	site := Site{RootUrl: rootUrl, Detection: detection}
	slog.InfoContext(ctx, "detected platform", "roaster", roaster.Slug, "platform", detection.Platform)

	return m.DiscoverSite(ctx, site, roaster)
}

// DiscoverSite runs the cascade against an already-detected site.
func (m *Manager) DiscoverSite(ctx context.Context, site Site, roaster catalog.Roaster) []Stub {
	ctx, span := tracer.Start(ctx, "manager:DiscoverSite")
	defer span.End()

	order := m.Strategies
	if order == nil {
		order = m.cascade(site.Detection)
	}

	for i, strategy := range order {
		if i > 0 && m.Delay > 0 {
			select {
			case <-time.After(m.Delay):
			case <-ctx.Done():
				return nil
			}
		}

		stubs := strategy.Discover(ctx, site)
		if len(stubs) == 0 {
			slog.DebugContext(ctx, "strategy found nothing", "strategy", strategy.Name(), "roaster", roaster.Slug)
			continue
		}
		if len(stubs) < suspiciouslyFewStubs {
			slog.WarnContext(
				ctx, "strategy yielded very few stubs, catalog may be larger",
				"strategy", strategy.Name(),
				"roaster", roaster.Slug,
				"stubs", len(stubs),
			)
		}

		deduped := Dedupe(stubs)
		slog.InfoContext(
			ctx, "discovery finished",
			"strategy", strategy.Name(),
			"roaster", roaster.Slug,
			"found", len(stubs),
			"unique", len(deduped),
		)
		span.SetAttributes(
			attribute.String("strategy", strategy.Name()),
			attribute.Int("stubs", len(deduped)),
		)
		return deduped
	}

	slog.WarnContext(ctx, "no discovery strategy found any products", "roaster", roaster.Slug)
	return nil
}

// Dedupe reconciles stubs sharing a url: the stub with strictly more
// populated fields wins, ties keep the first seen. Output order is
// stable by first occurrence.
func Dedupe(stubs []Stub) []Stub {
	byUrl := map[string]int{}
	var out []Stub
	for _, stub := range stubs {
		idx, exists := byUrl[stub.Url]
		if !exists {
			byUrl[stub.Url] = len(out)
			out = append(out, stub)
			continue
		}
		if stub.populated() > out[idx].populated() {
			out[idx] = stub
		}
	}
	return out
}
