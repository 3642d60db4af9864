package discover

import (
	"context"
	"encoding/json"
	"log/slog"

	"beanscout-backend/lib/classify"
	"beanscout-backend/lib/htmlutil"
	"beanscout-backend/lib/pagecache"
	"beanscout-backend/lib/textutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
)

// wooProduct covers both the wc store api shape and the bare wp/v2
// product post shape.
type wooProduct struct {
	Id          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Permalink   string `json:"permalink"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Title       struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
	Images []struct {
		Src string `json:"src"`
	} `json:"images"`
}

type WooCommerceDiscoverer struct {
	fetcher
}

func NewWooCommerceDiscoverer(http *resty.Client, cache *pagecache.Cache) WooCommerceDiscoverer {
	return WooCommerceDiscoverer{fetcher{http: http, cache: cache}}
}

func (d WooCommerceDiscoverer) Name() string { return MethodWooCommerceApi }

// Discover walks the woocommerce REST endpoints the platform detector
// suggested, stopping at the first endpoint that yields products.
func (d WooCommerceDiscoverer) Discover(ctx context.Context, site Site) []Stub {
	ctx, span := tracer.Start(ctx, "woocommerce:Discover")
	defer span.End()

	for _, path := range site.Detection.ProductAPIPaths {
		endpoint := site.resolve(path + "?per_page=100")
		body, err := d.page(ctx, pagecache.NamespaceProducts, endpoint)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch woocommerce endpoint", "url", endpoint, "err", err)
			continue
		}

		var products []wooProduct
		if err := json.Unmarshal([]byte(body), &products); err != nil {
			slog.DebugContext(ctx, "endpoint did not return a product list", "url", endpoint, "err", err)
			continue
		}

		var stubs []Stub
		for _, product := range products {
			stub, ok := d.stubFromProduct(product)
			if ok {
				stubs = append(stubs, stub)
			}
		}
		if len(stubs) > 0 {
			span.SetAttributes(
				attribute.String("endpoint", path),
				attribute.Int("stubs", len(stubs)),
			)
			return stubs
		}
	}

	return nil
}

func (d WooCommerceDiscoverer) stubFromProduct(product wooProduct) (Stub, bool) {
	name := product.Name
	if name == "" {
		name = product.Title.Rendered
	}
	productUrl := product.Permalink
	if productUrl == "" {
		productUrl = product.Link
	}
	if name == "" || productUrl == "" {
		return Stub{}, false
	}

	description := htmlutil.StripTags(product.Description)
	var categories []string
	for _, c := range product.Categories {
		categories = append(categories, c.Name)
	}
	if !classify.IsProduct(name, productUrl, description, categories) {
		return Stub{}, false
	}

	imageUrl := ""
	if len(product.Images) > 0 {
		imageUrl = product.Images[0].Src
	}
	slug := product.Slug
	if slug == "" {
		slug = textutil.Slugify(name)
	}

	return Stub{
		Name:        name,
		Slug:        slug,
		Url:         productUrl,
		ImageUrl:    imageUrl,
		Description: description,
		Tags:        categories,
		Method:      MethodWooCommerceApi,
	}, true
}
