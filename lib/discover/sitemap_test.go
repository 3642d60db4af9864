package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestSitemapDiscovererIndexRecursion(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			fmt.Fprintf(w, `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<sitemap><loc>%s/sitemap_products_1.xml</loc></sitemap>
	<sitemap><loc>%s/sitemap_pages_1.xml</loc></sitemap>
</sitemapindex>`, server.URL, server.URL)
		case "/sitemap_products_1.xml":
			fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>%s/products/ethiopia-yirgacheffe</loc></url>
	<url><loc>%s/products/coffee-mug</loc></url>
	<url><loc>%s/pages/about-us</loc></url>
</urlset>`, server.URL, server.URL, server.URL)
		default:
			// the pages sitemap is never product-shaped, it must not be fetched
			t.Errorf("unexpected fetch of %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	rootUrl, err := url.Parse(server.URL)
	require.NoError(t, err)

	d := NewSitemapDiscoverer(resty.New(), nil)
	stubs := d.Discover(context.Background(), Site{RootUrl: rootUrl})

	// the mug fails classification, the about page fails the url filter
	require.Len(t, stubs, 1)
	require.Equal(t, "Ethiopia Yirgacheffe", stubs[0].Name)
	require.Equal(t, "ethiopia-yirgacheffe", stubs[0].Slug)
	require.Equal(t, MethodSitemap, stubs[0].Method)
}

func TestSitemapDiscovererCyclicIndex(t *testing.T) {
	// two product indexes referencing each other, one referencing
	// itself; the walk must terminate and still surface the entries
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			fmt.Fprintf(w, `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<sitemap><loc>%s/product_sitemap_a.xml</loc></sitemap>
</sitemapindex>`, server.URL)
		case "/product_sitemap_a.xml":
			fmt.Fprintf(w, `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<sitemap><loc>%s/product_sitemap_b.xml</loc></sitemap>
	<sitemap><loc>%s/product_sitemap_a.xml</loc></sitemap>
</sitemapindex>`, server.URL, server.URL)
		case "/product_sitemap_b.xml":
			fmt.Fprintf(w, `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<sitemap><loc>%s/product_sitemap_a.xml</loc></sitemap>
	<sitemap><loc>%s/product_sitemap_leaf.xml</loc></sitemap>
</sitemapindex>`, server.URL, server.URL)
		case "/product_sitemap_leaf.xml":
			fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>%s/products/kenya-aa</loc></url>
</urlset>`, server.URL)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	rootUrl, err := url.Parse(server.URL)
	require.NoError(t, err)

	done := make(chan []Stub, 1)
	go func() {
		d := NewSitemapDiscoverer(resty.New(), nil)
		done <- d.Discover(context.Background(), Site{RootUrl: rootUrl})
	}()

	select {
	case stubs := <-done:
		require.Len(t, stubs, 1)
		require.Equal(t, "kenya-aa", stubs[0].Slug)
	case <-time.After(10 * time.Second):
		t.Fatal("sitemap discovery did not terminate on a cyclic index")
	}
}

func TestSitemapDiscovererMalformedXml(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not xml")
	}))
	defer server.Close()

	rootUrl, err := url.Parse(server.URL)
	require.NoError(t, err)

	d := NewSitemapDiscoverer(resty.New(), nil)
	stubs := d.Discover(context.Background(), Site{RootUrl: rootUrl})
	require.Empty(t, stubs)
}
