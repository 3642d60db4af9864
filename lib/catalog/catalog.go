// Package catalog defines the normalized product records the scraping
// core produces, and the single merge policy every attribute source is
// folded in with.
package catalog

import (
	"fmt"

	"beanscout-backend/lib/vocab"
)

// Roaster is the external, immutable input to a scraping run.
type Roaster struct {
	Id         int64  `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	WebsiteUrl string `json:"website_url"`
}

// Product is the canonical record ready for persistence. Enum fields
// always hold a vocabulary member or "unknown", never free text.
type Product struct {
	RoasterId   int64  `json:"roaster_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`

	RoastLevel vocab.RoastLevel    `json:"roast_level"`
	BeanType   vocab.BeanType      `json:"bean_type"`
	Process    vocab.ProcessMethod `json:"processing_method"`
	RegionName string              `json:"region_name,omitempty"`

	ImageUrl     string `json:"image_url,omitempty"`
	DirectBuyUrl string `json:"direct_buy_url"`

	IsSeasonal     bool `json:"is_seasonal"`
	IsAvailable    bool `json:"is_available"`
	IsFeatured     bool `json:"is_featured"`
	IsSingleOrigin bool `json:"is_single_origin"`

	Tags           []string `json:"tags,omitempty"`
	FlavorProfiles []string `json:"flavor_profiles,omitempty"`
	BrewMethods    []string `json:"brew_methods,omitempty"`

	// weight bucket grams -> price
	Prices map[int]float64 `json:"prices,omitempty"`

	EnrichedByLlm bool `json:"enriched_by_llm"`
}

// Validate checks the required-field invariants a product must satisfy
// before it may be handed to persistence.
func (p Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("product has no name")
	}
	if p.Slug == "" {
		return fmt.Errorf("product %q has no slug", p.Name)
	}
	if p.DirectBuyUrl == "" {
		return fmt.Errorf("product %q has no direct buy url", p.Name)
	}
	if p.RoastLevel == "" || p.BeanType == "" || p.Process == "" {
		return fmt.Errorf("product %q has unset enum fields", p.Name)
	}
	return nil
}

// Sentinel-aware emptiness: enum fields are "empty" when unknown.
func emptyString(s string) bool {
	return s == "" || s == vocab.Unknown
}

// MergeMissing folds incoming attribute values into base under the
// overwrite-if-empty-or-unknown policy: an incoming value lands only
// where base has nothing confident. Returns the number of fields that
// were actually merged.
func MergeMissing(base *Product, incoming Product) int {
	merged := 0

	if emptyString(base.Name) && !emptyString(incoming.Name) {
		base.Name = incoming.Name
		merged++
	}
	if emptyString(base.Description) && !emptyString(incoming.Description) {
		base.Description = incoming.Description
		merged++
	}
	if emptyString(string(base.RoastLevel)) && !emptyString(string(incoming.RoastLevel)) {
		base.RoastLevel = incoming.RoastLevel
		merged++
	}
	if emptyString(string(base.BeanType)) && !emptyString(string(incoming.BeanType)) {
		base.BeanType = incoming.BeanType
		merged++
	}
	if emptyString(string(base.Process)) && !emptyString(string(incoming.Process)) {
		base.Process = incoming.Process
		merged++
	}
	if emptyString(base.RegionName) && !emptyString(incoming.RegionName) {
		base.RegionName = incoming.RegionName
		merged++
	}
	if emptyString(base.ImageUrl) && !emptyString(incoming.ImageUrl) {
		base.ImageUrl = incoming.ImageUrl
		merged++
	}
	if len(base.FlavorProfiles) == 0 && len(incoming.FlavorProfiles) > 0 {
		base.FlavorProfiles = incoming.FlavorProfiles
		merged++
	}
	if len(base.BrewMethods) == 0 && len(incoming.BrewMethods) > 0 {
		base.BrewMethods = incoming.BrewMethods
		merged++
	}
	if len(base.Tags) == 0 && len(incoming.Tags) > 0 {
		base.Tags = incoming.Tags
		merged++
	}
	if len(base.Prices) == 0 && len(incoming.Prices) > 0 {
		base.Prices = incoming.Prices
		merged++
	}

	return merged
}

// FillUnknowns replaces any unset enum field with the explicit unknown
// sentinel so records never leave the core with empty enum values.
func FillUnknowns(p *Product) {
	if p.RoastLevel == "" {
		p.RoastLevel = vocab.RoastUnknown
	}
	if p.BeanType == "" {
		p.BeanType = vocab.BeanUnknown
	}
	if p.Process == "" {
		p.Process = vocab.ProcessUnknown
	}
}
