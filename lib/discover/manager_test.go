package discover

import (
	"context"
	"net/url"
	"testing"

	"beanscout-backend/lib/catalog"
	"beanscout-backend/lib/platform"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDedupe(t *testing.T) {
	sparse := Stub{
		Name:   "Kenya AA",
		Slug:   "kenya-aa",
		Url:    "https://example.com/products/kenya-aa",
		Method: MethodSitemap,
	}
	rich := Stub{
		Name:        "Kenya AA",
		Slug:        "kenya-aa",
		Url:         "https://example.com/products/kenya-aa",
		ImageUrl:    "https://example.com/kenya.jpg",
		Description: "Bright and juicy",
		Method:      MethodShopifyApi,
	}
	other := Stub{
		Name: "House Blend",
		Slug: "house-blend",
		Url:  "https://example.com/products/house-blend",
	}

	out := Dedupe([]Stub{sparse, other, rich})

	expected := []Stub{rich, other}
	diff := cmp.Diff(expected, out)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestDedupeTieKeepsFirst(t *testing.T) {
	first := Stub{Name: "A", Slug: "a", Url: "https://example.com/p/a", Method: MethodSitemap}
	second := Stub{Name: "B", Slug: "b", Url: "https://example.com/p/a", Method: MethodHtml}

	out := Dedupe([]Stub{first, second})
	require.Len(t, out, 1)
	require.Equal(t, "A", out[0].Name)
}

type fakeStrategy struct {
	name    string
	stubs   []Stub
	invoked *int
}

func (f fakeStrategy) Name() string { return f.name }

func (f fakeStrategy) Discover(ctx context.Context, site Site) []Stub {
	*f.invoked++
	return f.stubs
}

func TestCascadeShortCircuit(t *testing.T) {
	rootUrl, err := url.Parse("https://example.com")
	require.NoError(t, err)

	sitemapCalls := 0
	deepCrawlCalls := 0
	htmlCalls := 0

	manager := NewManager(nil, nil)
	manager.Delay = 0
	manager.Strategies = []Discoverer{
		fakeStrategy{
			name:    MethodSitemap,
			invoked: &sitemapCalls,
			stubs: []Stub{
				{Name: "Kenya AA", Slug: "kenya-aa", Url: "https://example.com/products/kenya-aa"},
			},
		},
		fakeStrategy{name: MethodDeepCrawl, invoked: &deepCrawlCalls},
		fakeStrategy{name: MethodHtml, invoked: &htmlCalls},
	}

	site := Site{RootUrl: rootUrl, Detection: platform.Detection{Platform: platform.Custom}}
	stubs := manager.DiscoverSite(context.Background(), site, catalog.Roaster{Slug: "test"})

	require.Len(t, stubs, 1)
	require.Equal(t, 1, sitemapCalls)
	require.Equal(t, 0, deepCrawlCalls)
	require.Equal(t, 0, htmlCalls)
}

func TestCascadeFallsThroughEmptyStrategies(t *testing.T) {
	rootUrl, err := url.Parse("https://example.com")
	require.NoError(t, err)

	first := 0
	second := 0

	manager := NewManager(nil, nil)
	manager.Delay = 0
	manager.Strategies = []Discoverer{
		fakeStrategy{name: MethodSitemap, invoked: &first},
		fakeStrategy{
			name:    MethodHtml,
			invoked: &second,
			stubs: []Stub{
				{Name: "House Blend", Slug: "house-blend", Url: "https://example.com/p/house-blend"},
			},
		},
	}

	site := Site{RootUrl: rootUrl}
	stubs := manager.DiscoverSite(context.Background(), site, catalog.Roaster{Slug: "test"})

	require.Len(t, stubs, 1)
	require.Equal(t, 1, first)
	require.Equal(t, 1, second)
}
