package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"beanscout-backend/lib/classify"
	"beanscout-backend/lib/pagecache"
	"beanscout-backend/lib/textutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
)

const shopifyPageSize = 250

// ShopifyProduct mirrors one item of the storefront /products.json
// payload. Extraction reuses it through Stub.Raw.
type ShopifyProduct struct {
	Id          int64            `json:"id"`
	Title       string           `json:"title"`
	Handle      string           `json:"handle"`
	BodyHtml    string           `json:"body_html"`
	Vendor      string           `json:"vendor"`
	ProductType string           `json:"product_type"`
	Tags        ShopifyTags      `json:"tags"`
	Variants    []ShopifyVariant `json:"variants"`
	Images      []ShopifyImage   `json:"images"`
}

type ShopifyVariant struct {
	Id        int64  `json:"id"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Grams     int    `json:"grams"`
	Available bool   `json:"available"`
}

type ShopifyImage struct {
	Src string `json:"src"`
}

// ShopifyTags tolerates both spellings shopify uses: a json array and a
// single comma-separated string.
type ShopifyTags []string

func (t *ShopifyTags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	var out []string
	for _, tag := range strings.Split(joined, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	*t = out
	return nil
}

type shopifyPage struct {
	Products []json.RawMessage `json:"products"`
}

type ShopifyDiscoverer struct {
	fetcher
}

func NewShopifyDiscoverer(http *resty.Client, cache *pagecache.Cache) ShopifyDiscoverer {
	return ShopifyDiscoverer{fetcher{http: http, cache: cache}}
}

func (d ShopifyDiscoverer) Name() string { return MethodShopifyApi }

// Discover pages through /products.json until a page comes back with
// fewer than 250 items.
func (d ShopifyDiscoverer) Discover(ctx context.Context, site Site) []Stub {
	ctx, span := tracer.Start(ctx, "shopify:Discover")
	defer span.End()

	var stubs []Stub
	for page := 1; ; page++ {
		endpoint := site.resolve(fmt.Sprintf("/products.json?limit=%d&page=%d", shopifyPageSize, page))
		body, err := d.page(ctx, pagecache.NamespaceProducts, endpoint)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch products.json page", "url", endpoint, "err", err)
			break
		}

		var parsed shopifyPage
		if err := json.Unmarshal([]byte(body), &parsed); err != nil {
			slog.WarnContext(ctx, "failed to parse products.json page", "url", endpoint, "err", err)
			break
		}

		for _, raw := range parsed.Products {
			var product ShopifyProduct
			if err := json.Unmarshal(raw, &product); err != nil {
				slog.WarnContext(ctx, "skipping malformed product entry", "err", err)
				continue
			}
			stub, ok := d.stubFromProduct(site, product, raw)
			if ok {
				stubs = append(stubs, stub)
			}
		}

		if len(parsed.Products) < shopifyPageSize {
			break
		}
	}

	span.SetAttributes(attribute.Int("stubs", len(stubs)))
	return stubs
}

func (d ShopifyDiscoverer) stubFromProduct(site Site, product ShopifyProduct, raw json.RawMessage) (Stub, bool) {
	productUrl := site.resolve("/products/" + product.Handle)

	categories := append([]string{product.ProductType}, product.Tags...)
	if !classify.IsProduct(product.Title, productUrl, product.BodyHtml, categories) {
		return Stub{}, false
	}

	imageUrl := ""
	if len(product.Images) > 0 {
		imageUrl = product.Images[0].Src
	}
	slug := product.Handle
	if slug == "" {
		slug = textutil.Slugify(product.Title)
	}

	return Stub{
		Name:        product.Title,
		Slug:        slug,
		Url:         productUrl,
		ImageUrl:    imageUrl,
		Description: product.BodyHtml,
		Tags:        product.Tags,
		Method:      MethodShopifyApi,
		Raw:         raw,
	}, true
}
