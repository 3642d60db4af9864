package discover

import (
	"context"
	"strings"

	"beanscout-backend/lib/htmlutil"
	"beanscout-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// common product-card selector patterns, tried in order; the first
// selector with any hits wins for a given page
var productCardSelectors = []string{
	".product-card",
	".product-item",
	".product-grid-item",
	"li.product",
	".grid__item",
	".card--product",
	"[data-product-id]",
	".product",
}

// cardStubs pulls product stubs out of a catalog page's product grid.
func cardStubs(ctx context.Context, site Site, doc *goquery.Document, method string) []Stub {
	var stubs []Stub

	for _, selector := range productCardSelectors {
		cards := doc.Find(selector)
		if cards.Length() == 0 {
			continue
		}
		cards.Each(func(_ int, card *goquery.Selection) {
			stub, ok := stubFromCard(site, card, method)
			if ok {
				stubs = append(stubs, stub)
			}
		})
		if len(stubs) > 0 {
			return stubs
		}
	}

	// no grid matched; fall back to bare product links
	for _, anchor := range htmlutil.GetAnchors(ctx, doc.Find(`a[href*="/products/"], a[href*="/product/"]`)) {
		if anchor.Name == "" {
			continue
		}
		stubs = append(stubs, Stub{
			Name:   anchor.Name,
			Slug:   slugFromUrl(anchor.Href),
			Url:    site.resolve(anchor.Href),
			Method: method,
		})
	}
	return stubs
}

// pageLinks returns all same-host anchor targets on a page, resolved
// against the site root.
func pageLinks(ctx context.Context, doc *goquery.Document, site Site) []string {
	var links []string
	for _, anchor := range htmlutil.GetAnchors(ctx, doc.Find("a[href]")) {
		if anchor.Href == "" || strings.HasPrefix(anchor.Href, "#") {
			continue
		}
		if !sameHost(anchor.Href, site) {
			continue
		}
		links = append(links, site.resolve(anchor.Href))
	}
	return links
}

func stubFromCard(site Site, card *goquery.Selection, method string) (Stub, bool) {
	link := card.Find("a").First()
	href, _ := link.Attr("href")
	if href == "" {
		if h, ok := card.Attr("href"); ok {
			href = h
		}
	}
	if href == "" {
		return Stub{}, false
	}

	name := strings.TrimSpace(card.Find(".product-title, .product-name, .card__heading, h2, h3").First().Text())
	if name == "" {
		name = strings.TrimSpace(link.AttrOr("title", ""))
	}
	if name == "" {
		name = strings.TrimSpace(link.Text())
	}
	if name == "" {
		return Stub{}, false
	}

	imageUrl := card.Find("img").First().AttrOr("src", "")

	return Stub{
		Name:     name,
		Slug:     textutil.Slugify(name),
		Url:      site.resolve(href),
		ImageUrl: imageUrl,
		Method:   method,
	}, true
}
