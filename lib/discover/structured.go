package discover

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"beanscout-backend/lib/classify"
	"beanscout-backend/lib/pagecache"
	"beanscout-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
)

// catalog paths scanned in addition to the homepage and any
// platform-specific hints
var structuredDataPaths = []string{
	"/", "/shop", "/store", "/products", "/collections/all", "/coffee",
}

type StructuredDataDiscoverer struct {
	fetcher
}

func NewStructuredDataDiscoverer(http *resty.Client, cache *pagecache.Cache) StructuredDataDiscoverer {
	return StructuredDataDiscoverer{fetcher{http: http, cache: cache}}
}

func (d StructuredDataDiscoverer) Name() string { return MethodStructuredData }

func (d StructuredDataDiscoverer) Discover(ctx context.Context, site Site) []Stub {
	ctx, span := tracer.Start(ctx, "structureddata:Discover")
	defer span.End()

	paths := append([]string{}, structuredDataPaths...)
	paths = append(paths, site.Detection.StructuredDataHints...)

	var stubs []Stub
	seen := map[string]bool{}
	for _, path := range paths {
		pageUrl := site.resolve(path)
		doc, err := d.document(ctx, pagecache.NamespaceHtmlPages, pageUrl)
		if err != nil {
			slog.DebugContext(ctx, "failed to fetch catalog path", "url", pageUrl, "err", err)
			continue
		}

		for _, stub := range append(jsonLdStubs(ctx, site, doc), microdataStubs(site, doc)...) {
			if stub.Url == "" || seen[stub.Url] {
				continue
			}
			seen[stub.Url] = true
			if !classify.IsProduct(stub.Name, stub.Url, stub.Description, stub.Tags) {
				continue
			}
			stubs = append(stubs, stub)
		}
	}

	span.SetAttributes(attribute.Int("stubs", len(stubs)))
	return stubs
}

// jsonLd is the loose shape shared by Product, ItemList and @graph
// wrappers; unknown fields fall away.
type jsonLd struct {
	Type            jsonLdType   `json:"@type"`
	Graph           []jsonLd     `json:"@graph"`
	Name            string       `json:"name"`
	Url             string       `json:"url"`
	Description     string       `json:"description"`
	Image           jsonLdImage  `json:"image"`
	ItemListElement []jsonLdItem `json:"itemListElement"`
}

type jsonLdItem struct {
	Item *jsonLd `json:"item"`
	Name string  `json:"name"`
	Url  string  `json:"url"`
}

// jsonLdType tolerates both a string and a list of strings
type jsonLdType []string

func (t *jsonLdType) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = []string{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*t = list
	return nil
}

func (t jsonLdType) is(name string) bool {
	for _, v := range t {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

// jsonLdImage tolerates a string, an object with url, or a list
type jsonLdImage string

func (i *jsonLdImage) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*i = jsonLdImage(single)
		return nil
	}
	var object struct {
		Url string `json:"url"`
	}
	if err := json.Unmarshal(data, &object); err == nil {
		*i = jsonLdImage(object.Url)
		return nil
	}
	var list []jsonLdImage
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	if len(list) > 0 {
		*i = list[0]
	}
	return nil
}

func jsonLdStubs(ctx context.Context, site Site, doc *goquery.Document) []Stub {
	var stubs []Stub
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var block jsonLd
		if err := json.Unmarshal([]byte(sel.Text()), &block); err != nil {
			// some sites emit a top-level array of blocks
			var blocks []jsonLd
			if err := json.Unmarshal([]byte(sel.Text()), &blocks); err != nil {
				slog.DebugContext(ctx, "skipping malformed ld+json block", "err", err)
				return
			}
			for _, b := range blocks {
				stubs = append(stubs, stubsFromJsonLd(site, b)...)
			}
			return
		}
		stubs = append(stubs, stubsFromJsonLd(site, block)...)
	})
	return stubs
}

func stubsFromJsonLd(site Site, block jsonLd) []Stub {
	var stubs []Stub

	for _, nested := range block.Graph {
		stubs = append(stubs, stubsFromJsonLd(site, nested)...)
	}

	if block.Type.is("Product") && block.Name != "" {
		productUrl := block.Url
		if productUrl != "" {
			productUrl = site.resolve(productUrl)
		}
		stubs = append(stubs, Stub{
			Name:        block.Name,
			Slug:        textutil.Slugify(block.Name),
			Url:         productUrl,
			ImageUrl:    string(block.Image),
			Description: block.Description,
			Method:      MethodStructuredData,
		})
	}

	if block.Type.is("ItemList") {
		for _, element := range block.ItemListElement {
			item := element.Item
			if item == nil {
				item = &jsonLd{Name: element.Name, Url: element.Url}
			}
			if item.Name == "" && item.Url == "" {
				continue
			}
			productUrl := item.Url
			if productUrl != "" {
				productUrl = site.resolve(productUrl)
			}
			name := item.Name
			if name == "" {
				name = nameFromSlug(slugFromUrl(productUrl))
			}
			stubs = append(stubs, Stub{
				Name:        name,
				Slug:        textutil.Slugify(name),
				Url:         productUrl,
				ImageUrl:    string(item.Image),
				Description: item.Description,
				Method:      MethodStructuredData,
			})
		}
	}

	return stubs
}

func microdataStubs(site Site, doc *goquery.Document) []Stub {
	var stubs []Stub
	doc.Find(`[itemtype*="schema.org/Product"]`).Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Find(`[itemprop="name"]`).First().Text())
		if name == "" {
			name, _ = sel.Find(`[itemprop="name"]`).First().Attr("content")
		}
		if name == "" {
			return
		}

		productUrl, _ := sel.Find(`[itemprop="url"]`).First().Attr("href")
		if productUrl == "" {
			productUrl, _ = sel.Find(`a`).First().Attr("href")
		}
		if productUrl != "" {
			productUrl = site.resolve(productUrl)
		}

		imageUrl, _ := sel.Find(`[itemprop="image"]`).First().Attr("src")
		description := strings.TrimSpace(sel.Find(`[itemprop="description"]`).First().Text())

		stubs = append(stubs, Stub{
			Name:        name,
			Slug:        textutil.Slugify(name),
			Url:         productUrl,
			ImageUrl:    imageUrl,
			Description: description,
			Method:      MethodStructuredData,
		})
	})
	return stubs
}
