// Package extract fetches candidate product pages and applies a
// platform-specific field schema to pull raw attributes, normalizing
// them into the closed catalog vocabulary.
package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"beanscout-backend/lib/catalog"
	"beanscout-backend/lib/classify"
	"beanscout-backend/lib/discover"
	"beanscout-backend/lib/htmlutil"
	"beanscout-backend/lib/pagecache"
	"beanscout-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("beanscout.lib.extract")

// RawAttributes is the free-text bag a field schema pulls off a page
// before normalization.
type RawAttributes struct {
	Name        string
	Description string
	ImageUrl    string
	PriceText   string
	RoastText   string
	ProcessText string
	OriginText  string
	Tags        []string
	SpecRows    map[string]string
	Variants    []Variant
}

type Variant struct {
	Title     string
	PriceText string
	Grams     int
	Available bool
	HasStock  bool
}

type Extractor struct {
	http  *resty.Client
	cache *pagecache.Cache
}

func New(http *resty.Client, cache *pagecache.Cache) Extractor {
	return Extractor{http: http, cache: cache}
}

// Extract turns a discovered stub into a canonical product. The second
// return value is false when the stricter post-fetch classification
// pass rejects the candidate. On fetch or parse failure the stub's own
// fields are returned unchanged so the pipeline can still emit a
// minimal record.
func (e Extractor) Extract(ctx context.Context, site discover.Site, stub discover.Stub, roaster catalog.Roaster) (catalog.Product, bool) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()
	span.SetAttributes(attribute.String("url", stub.Url))

	product := productFromStub(stub, roaster)

	raw, ok := e.rawAttributes(ctx, site, stub)
	if !ok {
		// total failure: emit the minimal record
		catalog.FillUnknowns(&product)
		return product, true
	}

	// second, stricter classification pass now that the full page
	// content is available; same predicate, richer inputs
	name := raw.Name
	if name == "" {
		name = stub.Name
	}
	if !classify.IsProduct(name, stub.Url, raw.Description, raw.Tags) {
		span.SetAttributes(attribute.Bool("rejected", true))
		return catalog.Product{}, false
	}

	applyAttributes(&product, raw)
	catalog.FillUnknowns(&product)
	return product, true
}

func productFromStub(stub discover.Stub, roaster catalog.Roaster) catalog.Product {
	slug := stub.Slug
	if slug == "" {
		slug = textutil.Slugify(stub.Name)
	}
	return catalog.Product{
		RoasterId:    roaster.Id,
		Name:         stub.Name,
		Slug:         slug,
		Description:  htmlutil.StripTags(stub.Description),
		ImageUrl:     stub.ImageUrl,
		DirectBuyUrl: stub.Url,
		Tags:         stub.Tags,
		IsAvailable:  true,
	}
}

// rawAttributes prefers the API payload captured at discovery time and
// falls back to fetching and parsing the product page.
func (e Extractor) rawAttributes(ctx context.Context, site discover.Site, stub discover.Stub) (RawAttributes, bool) {
	if len(stub.Raw) > 0 {
		var product discover.ShopifyProduct
		if err := json.Unmarshal(stub.Raw, &product); err == nil {
			return rawFromShopify(product), true
		}
		slog.DebugContext(ctx, "stub payload was not a shopify product", "url", stub.Url)
	}

	if e.http == nil || stub.Url == "" {
		return RawAttributes{}, false
	}

	body, err := e.page(ctx, stub.Url)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch product page", "url", stub.Url, "err", err)
		return RawAttributes{}, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		slog.WarnContext(ctx, "failed to parse product page", "url", stub.Url, "err", err)
		return RawAttributes{}, false
	}

	schema := SchemaFor(site.Detection.Platform)
	raw := rawFromDocument(schema, doc)
	if raw.Name == "" && raw.Description == "" && len(raw.Variants) == 0 {
		return RawAttributes{}, false
	}
	return raw, true
}

func (e Extractor) page(ctx context.Context, pageUrl string) (string, error) {
	key := pagecache.NormalizeUrlKey(pageUrl)
	if e.cache != nil {
		cached, err := e.cache.Get(ctx, pagecache.NamespaceHtmlPages, key)
		if err == nil {
			return string(cached), nil
		}
	}
	res, err := e.http.R().SetContext(ctx).Get(pageUrl)
	if err != nil {
		return "", err
	}
	body := res.String()
	if e.cache != nil && res.StatusCode() == 200 {
		_ = e.cache.Put(ctx, pagecache.NamespaceHtmlPages, key, []byte(body))
	}
	return body, nil
}

func rawFromShopify(product discover.ShopifyProduct) RawAttributes {
	raw := RawAttributes{
		Name:        product.Title,
		Description: htmlutil.StripTags(product.BodyHtml),
		Tags:        product.Tags,
	}
	if len(product.Images) > 0 {
		raw.ImageUrl = product.Images[0].Src
	}
	for _, variant := range product.Variants {
		raw.Variants = append(raw.Variants, Variant{
			Title:     variant.Title,
			PriceText: variant.Price,
			Grams:     variant.Grams,
			Available: variant.Available,
			HasStock:  true,
		})
	}
	return raw
}

func rawFromDocument(schema Schema, doc *goquery.Document) RawAttributes {
	sel := schema.Selectors
	raw := RawAttributes{
		Name:        firstText(doc, sel.Name),
		Description: firstText(doc, sel.Description),
		PriceText:   firstText(doc, sel.Price),
		ImageUrl:    firstAttr(doc, sel.Image, "src"),
		SpecRows:    map[string]string{},
	}

	doc.Find(sel.Tags).Each(func(_ int, tag *goquery.Selection) {
		text := strings.TrimSpace(tag.Text())
		if text != "" {
			raw.Tags = append(raw.Tags, text)
		}
	})

	doc.Find(sel.SpecRows).Each(func(_ int, row *goquery.Selection) {
		label := strings.TrimSpace(row.Find("th, td:first-child, dt").First().Text())
		value := strings.TrimSpace(row.Find("td:last-child, dd").Last().Text())
		if label == "" || value == "" || label == value {
			return
		}
		raw.SpecRows[strings.ToLower(label)] = value
	})

	doc.Find(sel.Variants).Each(func(_ int, option *goquery.Selection) {
		text := strings.TrimSpace(option.Text())
		if text == "" {
			return
		}
		raw.Variants = append(raw.Variants, Variant{Title: text, PriceText: text})
	})

	// spec table rows feed the explicit structured fields
	for label, value := range raw.SpecRows {
		switch {
		case strings.Contains(label, "roast"):
			raw.RoastText = value
		case strings.Contains(label, "process"):
			raw.ProcessText = value
		case strings.Contains(label, "origin"), strings.Contains(label, "region"), strings.Contains(label, "country"):
			raw.OriginText = value
		}
	}

	return raw
}

func firstText(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

func firstAttr(doc *goquery.Document, selector, attr string) string {
	return doc.Find(selector).First().AttrOr(attr, "")
}
