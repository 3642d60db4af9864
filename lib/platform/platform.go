package platform

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("beanscout.lib.platform")

type Platform string

const (
	Shopify     Platform = "shopify"
	WooCommerce Platform = "woocommerce"
	WordPress   Platform = "wordpress"
	Magento     Platform = "magento"
	BigCommerce Platform = "bigcommerce"
	Static      Platform = "static"
	Custom      Platform = "custom"
	Unknown     Platform = "unknown"
)

// Detection is the result of platform sniffing: the platform itself plus
// the product API paths and structured-data hints downstream components
// should try for it.
type Detection struct {
	Platform            Platform
	ProductAPIPaths     []string
	StructuredDataHints []string
}

func detectionFor(p Platform) Detection {
	switch p {
	case Shopify:
		return Detection{
			Platform:            Shopify,
			ProductAPIPaths:     []string{"/products.json"},
			StructuredDataHints: []string{"/collections/all", "/collections/coffee"},
		}
	case WooCommerce:
		return Detection{
			Platform: WooCommerce,
			ProductAPIPaths: []string{
				"/wp-json/wc/v3/products",
				"/wp-json/wc/v2/products",
				"/wp-json/wp/v2/product",
			},
			StructuredDataHints: []string{"/shop", "/product-category/coffee"},
		}
	case WordPress:
		return Detection{
			Platform:            WordPress,
			StructuredDataHints: []string{"/shop", "/store"},
		}
	default:
		return Detection{Platform: p}
	}
}

// Detect classifies the commerce platform behind a root url. Cheap url
// pattern checks run first; if they are inconclusive the homepage is
// fetched and content signatures are checked in a fixed precedence
// order. It never fails: unreadable sites come back as Unknown.
func Detect(ctx context.Context, client *resty.Client, rootUrl string) Detection {
	ctx, span := tracer.Start(ctx, "Detect")
	defer span.End()
	span.SetAttributes(attribute.String("url", rootUrl))

	if p, ok := detectFromUrl(rootUrl); ok {
		span.SetAttributes(attribute.String("platform", string(p)))
		return detectionFor(p)
	}

	res, err := client.R().SetContext(ctx).Get(rootUrl)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch homepage for platform detection", "url", rootUrl, "err", err)
		return detectionFor(Unknown)
	}
	p := DetectFromContent(res.String())
	span.SetAttributes(attribute.String("platform", string(p)))
	return detectionFor(p)
}

func detectFromUrl(rootUrl string) (Platform, bool) {
	lower := strings.ToLower(rootUrl)
	switch {
	case strings.Contains(lower, ".myshopify.com"):
		return Shopify, true
	case strings.Contains(lower, ".mybigcommerce.com"):
		return BigCommerce, true
	case strings.Contains(lower, ".wordpress.com"):
		return WordPress, true
	}
	return Unknown, false
}

// content signatures in precedence order, first match wins
var contentSignatures = []struct {
	platform Platform
	markers  []string
}{
	{Shopify, []string{"cdn.shopify.com", "shopify.theme", "window.shopify", "shopify-section"}},
	{WooCommerce, []string{"woocommerce", "wc-ajax", "wp-content/plugins/woocommerce"}},
	{Magento, []string{"mage/cookies", "magento_", "x-magento-init"}},
	{BigCommerce, []string{"cdn11.bigcommerce.com", "bigcommerce.com/s-"}},
	{WordPress, []string{"wp-content", "wp-includes", `name="generator" content="wordpress`}},
	{Static, []string{"framerusercontent.com", "website-files.com", "static.parastorage.com", "squarespace.com"}},
}

// DetectFromContent applies the content signature checks to an already
// fetched page.
func DetectFromContent(content string) Platform {
	lower := strings.ToLower(content)
	for _, sig := range contentSignatures {
		for _, marker := range sig.markers {
			if strings.Contains(lower, marker) {
				return sig.platform
			}
		}
	}

	// a page that parses but matches no known generator is a custom build
	_, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil || strings.TrimSpace(content) == "" {
		return Unknown
	}
	return Custom
}
