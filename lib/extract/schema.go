package extract

import "beanscout-backend/lib/platform"

// Kind is the closed set of extraction schemas. The platform detector
// picks one per site and it is threaded explicitly through extraction.
type Kind int

const (
	KindGeneric Kind = iota
	KindShopify
	KindWooCommerce
)

// FieldSelectors maps page regions to named raw fields. Selectors are
// comma-joined goquery selectors; the first matching node wins.
type FieldSelectors struct {
	Name        string
	Description string
	Image       string
	Price       string
	// rows of a specification table, scanned as "label: value" pairs
	SpecRows string
	Tags     string
	Variants string
}

type Schema struct {
	Kind      Kind
	Selectors FieldSelectors
}

var shopifySchema = Schema{
	Kind: KindShopify,
	Selectors: FieldSelectors{
		Name:        "h1.product__title, h1.product-single__title, h1",
		Description: ".product__description, .product-single__description, .product-description, [class*='description']",
		Image:       ".product__media img, .product-single__photo img, .product__image img, img[src*='/products/']",
		Price:       ".price__regular .price-item, .price .money, .product__price, .price",
		SpecRows:    ".product__specs tr, table tr",
		Tags:        ".product-tag, .product__tag, a[href*='/collections/'][class*='tag']",
		Variants:    "select[name='id'] option, .product-form__input input[type='radio'] + label, variant-radios label",
	},
}

var wooCommerceSchema = Schema{
	Kind: KindWooCommerce,
	Selectors: FieldSelectors{
		Name:        "h1.product_title, h1.entry-title, h1",
		Description: ".woocommerce-product-details__short-description, #tab-description, .product-short-description",
		Image:       ".woocommerce-product-gallery__image img, .wp-post-image",
		Price:       "p.price .woocommerce-Price-amount, .price .amount, .price",
		SpecRows:    "table.woocommerce-product-attributes tr, .shop_attributes tr",
		Tags:        ".tagged_as a, .posted_in a",
		Variants:    "table.variations select option, .variations_form select option",
	},
}

var genericSchema = Schema{
	Kind: KindGeneric,
	Selectors: FieldSelectors{
		Name:        "h1, .product-title, .product-name, [itemprop='name']",
		Description: "[itemprop='description'], .product-description, .description, article p",
		Image:       "[itemprop='image'], .product-image img, main img",
		Price:       "[itemprop='price'], .price, .product-price, .amount",
		SpecRows:    "table tr, dl",
		Tags:        ".tag, .tags a, .label",
		Variants:    "select option",
	},
}

// SchemaFor selects the field schema for a detected platform. WordPress
// storefronts that are not woocommerce still render closer to the
// generic shape than anything else.
func SchemaFor(p platform.Platform) Schema {
	switch p {
	case platform.Shopify:
		return shopifySchema
	case platform.WooCommerce:
		return wooCommerceSchema
	default:
		return genericSchema
	}
}
