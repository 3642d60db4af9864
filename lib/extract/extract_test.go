package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"beanscout-backend/lib/catalog"
	"beanscout-backend/lib/discover"
	"beanscout-backend/lib/platform"
	"beanscout-backend/lib/vocab"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func shopifyStub(t *testing.T) discover.Stub {
	raw, err := json.Marshal(map[string]any{
		"id":           1,
		"title":        "Ethiopia Yirgacheffe",
		"handle":       "ethiopia-yirgacheffe",
		"body_html":    "<p>A washed lot with notes of jasmine, lemon and peach.</p>",
		"product_type": "Coffee",
		"tags":         []string{"Single Origin", "Light Roast", "Washed", "Jasmine"},
		"variants": []map[string]any{
			{"id": 11, "title": "250g", "price": "550.00", "grams": 250, "available": true},
			{"id": 12, "title": "1kg", "price": "1800.00", "grams": 1000, "available": true},
		},
		"images": []map[string]any{{"src": "https://cdn.example.com/yirg.jpg"}},
	})
	require.NoError(t, err)

	return discover.Stub{
		Name:   "Ethiopia Yirgacheffe",
		Slug:   "ethiopia-yirgacheffe",
		Url:    "https://beans.example.com/products/ethiopia-yirgacheffe",
		Tags:   []string{"Single Origin", "Light Roast", "Washed", "Jasmine"},
		Method: discover.MethodShopifyApi,
		Raw:    raw,
	}
}

func TestExtractFromShopifyPayload(t *testing.T) {
	rootUrl, _ := url.Parse("https://beans.example.com")
	site := discover.Site{
		RootUrl:   rootUrl,
		Detection: platform.Detection{Platform: platform.Shopify},
	}

	e := New(nil, nil)
	product, ok := e.Extract(context.Background(), site, shopifyStub(t), catalog.Roaster{Id: 7})

	require.True(t, ok)
	require.Equal(t, int64(7), product.RoasterId)
	require.Equal(t, "Ethiopia Yirgacheffe", product.Name)
	require.Equal(t, vocab.RoastLight, product.RoastLevel)
	require.Equal(t, vocab.ProcessWashed, product.Process)
	require.Equal(t, "Yirgacheffe", product.RegionName)
	require.True(t, product.IsSingleOrigin)
	require.True(t, product.IsAvailable)
	require.Equal(t, map[int]float64{250: 550, 1000: 1800}, product.Prices)
	require.Contains(t, product.FlavorProfiles, "jasmine")
}

func TestExtractFromHtmlPage(t *testing.T) {
	page := `<html><body>
<h1 class="product_title">Monsooned Malabar AA</h1>
<div class="woocommerce-product-details__short-description">
	<p>Monsooned on the Malabar coast. Notes of dark chocolate and tobacco.</p>
</div>
<p class="price"><span class="woocommerce-Price-amount">&#36;16.00</span></p>
<table class="woocommerce-product-attributes">
	<tr><th>Roast</th><td>Dark</td></tr>
	<tr><th>Origin</th><td>India</td></tr>
</table>
<table class="variations">
	<select><option>250g - $16.00</option><option>500g - $28.00</option></select>
</table>
</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	rootUrl, _ := url.Parse(server.URL)
	site := discover.Site{
		RootUrl:   rootUrl,
		Detection: platform.Detection{Platform: platform.WooCommerce},
	}
	stub := discover.Stub{
		Name:   "Monsooned Malabar AA",
		Slug:   "monsooned-malabar-aa",
		Url:    server.URL + "/product/monsooned-malabar-aa",
		Method: discover.MethodSitemap,
	}

	e := New(resty.New(), nil)
	product, ok := e.Extract(context.Background(), site, stub, catalog.Roaster{Id: 3})

	require.True(t, ok)
	require.Equal(t, "Monsooned Malabar AA", product.Name)
	require.Equal(t, vocab.RoastDark, product.RoastLevel)
	require.Equal(t, vocab.ProcessMonsooned, product.Process)
	require.Equal(t, "India", product.RegionName)
	require.Equal(t, map[int]float64{250: 16, 500: 28}, product.Prices)
	require.Contains(t, product.FlavorProfiles, "dark chocolate")
}

func TestExtractSecondPassRejectsNonProduct(t *testing.T) {
	page := `<html><body>
<h1>Stainless Travel Tumbler</h1>
<div class="description"><p>Keeps coffee hot for 12 hours.</p></div>
<p class="price">$25.00</p>
</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	rootUrl, _ := url.Parse(server.URL)
	site := discover.Site{RootUrl: rootUrl, Detection: platform.Detection{Platform: platform.Custom}}
	stub := discover.Stub{
		Name: "Stainless Travel",
		Slug: "stainless-travel",
		Url:  server.URL + "/products/stainless-travel",
	}

	e := New(resty.New(), nil)
	_, ok := e.Extract(context.Background(), site, stub, catalog.Roaster{})
	require.False(t, ok)
}

func TestExtractFetchFailureReturnsStubUnchanged(t *testing.T) {
	rootUrl, _ := url.Parse("http://127.0.0.1:1")
	site := discover.Site{RootUrl: rootUrl}
	stub := discover.Stub{
		Name:   "Kenya AA",
		Slug:   "kenya-aa",
		Url:    "http://127.0.0.1:1/products/kenya-aa",
		Method: discover.MethodSitemap,
	}

	e := New(resty.New().SetTimeout(1), nil)
	product, ok := e.Extract(context.Background(), site, stub, catalog.Roaster{Id: 2})

	require.True(t, ok)
	require.Equal(t, "Kenya AA", product.Name)
	require.Equal(t, "kenya-aa", product.Slug)
	require.Equal(t, stub.Url, product.DirectBuyUrl)
	// enum fields always land on the sentinel, never empty
	require.Equal(t, vocab.RoastUnknown, product.RoastLevel)
	require.Equal(t, vocab.BeanUnknown, product.BeanType)
	require.Equal(t, vocab.ProcessUnknown, product.Process)
}

func TestDefaultBucketWhenNoWeightFound(t *testing.T) {
	raw := RawAttributes{
		PriceText: "$14.00",
	}
	prices := scanPrices(raw)
	require.Equal(t, map[int]float64{250: 14}, prices)
}
