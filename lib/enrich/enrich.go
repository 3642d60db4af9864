// Package enrich fills attribute gaps a storefront page could not be
// parsed for by asking a language model, then folds the answer into the
// record under the same merge policy every other source uses.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"beanscout-backend/lib/catalog"
	"beanscout-backend/lib/extract"
	"beanscout-backend/lib/textutil"
	"beanscout-backend/lib/vocab"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("beanscout.lib.enrich")

const systemPrompt = `You extract coffee product attributes from storefront text.
Respond with a single JSON object and nothing else, using these keys:
roast_level, bean_type, processing_method, region_name, flavor_profiles
(array of strings), brew_methods (array of strings), tags (array of
strings), prices (object mapping weight in grams to numeric price),
is_single_origin (boolean), is_seasonal (boolean).
Omit any key you cannot determine from the text. Never guess.`

const maxPromptChars = 6000

// NeedsEnrichment reports whether a record is incomplete enough to be
// worth a model call. Two or more of roast level, bean type, process
// and flavor profiles must be missing or unknown.
func NeedsEnrichment(product catalog.Product) bool {
	missing := 0
	if product.RoastLevel == "" || product.RoastLevel == vocab.RoastUnknown {
		missing++
	}
	if product.BeanType == "" || product.BeanType == vocab.BeanUnknown {
		missing++
	}
	if product.Process == "" || product.Process == vocab.ProcessUnknown {
		missing++
	}
	if len(product.FlavorProfiles) == 0 {
		missing++
	}
	return missing >= 2
}

// ExtractJSONObject returns the first balanced top-level {...} span in
// text, so model replies wrapped in prose or code fences still parse.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// payload is the shape the model is asked to reply with. every field is
// optional; unparseable members are dropped, never fatal.
type payload struct {
	RoastLevel     string             `json:"roast_level"`
	BeanType       string             `json:"bean_type"`
	Process        string             `json:"processing_method"`
	RegionName     string             `json:"region_name"`
	FlavorProfiles []string           `json:"flavor_profiles"`
	BrewMethods    []string           `json:"brew_methods"`
	Tags           []string           `json:"tags"`
	Prices         map[string]float64 `json:"prices"`
	IsSingleOrigin *bool              `json:"is_single_origin"`
	IsSeasonal     *bool              `json:"is_seasonal"`
}

// toProduct normalizes the model's free-text answers onto the closed
// vocabularies. Values that normalize to unknown come out empty-handed
// and will not merge.
func (p payload) toProduct() catalog.Product {
	out := catalog.Product{
		RoastLevel: vocab.NormalizeRoast(p.RoastLevel),
		BeanType:   vocab.NormalizeBean(p.BeanType),
		Process:    vocab.NormalizeProcess(p.Process),
		RegionName: strings.TrimSpace(p.RegionName),
	}
	for _, raw := range p.FlavorProfiles {
		if flavor, ok := vocab.MatchFlavor(raw); ok && !slices.Contains(out.FlavorProfiles, flavor) {
			out.FlavorProfiles = append(out.FlavorProfiles, flavor)
		}
	}
	for _, raw := range p.BrewMethods {
		if method, ok := vocab.MatchBrewMethod(raw); ok && !slices.Contains(out.BrewMethods, method) {
			out.BrewMethods = append(out.BrewMethods, method)
		}
	}
	for _, raw := range p.Tags {
		tag := strings.TrimSpace(raw)
		if tag != "" && !slices.Contains(out.Tags, tag) {
			out.Tags = append(out.Tags, tag)
		}
	}
	for key, price := range p.Prices {
		grams, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(key), "g"))
		if err != nil || grams <= 0 || price <= 0 {
			continue
		}
		if out.Prices == nil {
			out.Prices = map[int]float64{}
		}
		bucket := extract.BucketFor(grams)
		if _, taken := out.Prices[bucket]; !taken {
			out.Prices[bucket] = price
		}
	}
	return out
}

// Enricher asks a model for the attributes extraction could not find.
type Enricher struct {
	completion Completer
}

func New(completion Completer) *Enricher {
	return &Enricher{completion: completion}
}

// Enrich fills missing attributes of product from a model completion.
// pageText carries cleaned storefront page text for extra context and
// may be empty. Returns true only when at least one field was actually
// merged; every failure mode degrades to returning false.
func (e *Enricher) Enrich(ctx context.Context, product *catalog.Product, pageText string) bool {
	ctx, span := tracer.Start(ctx, "Enrich")
	defer span.End()

	if e == nil || e.completion == nil || !NeedsEnrichment(*product) {
		return false
	}

	reply, err := e.completion.Complete(ctx, systemPrompt, userPrompt(*product, pageText))
	if err != nil {
		slog.WarnContext(ctx, "enrichment completion failed", "product", product.Slug, "err", err)
		return false
	}
	raw, ok := ExtractJSONObject(reply)
	if !ok {
		slog.WarnContext(ctx, "enrichment reply contained no json object", "product", product.Slug)
		return false
	}
	var parsed payload
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		slog.WarnContext(ctx, "enrichment reply failed to decode", "product", product.Slug, "err", err)
		return false
	}

	merged := catalog.MergeMissing(product, parsed.toProduct())
	if parsed.IsSingleOrigin != nil && *parsed.IsSingleOrigin && !product.IsSingleOrigin {
		product.IsSingleOrigin = true
		merged++
	}
	if parsed.IsSeasonal != nil && *parsed.IsSeasonal && !product.IsSeasonal {
		product.IsSeasonal = true
		merged++
	}
	if merged == 0 {
		return false
	}

	product.EnrichedByLlm = true
	slog.DebugContext(ctx, "enriched product", "product", product.Slug, "fields", merged)
	return true
}

func userPrompt(product catalog.Product, pageText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product name: %s\n", product.Name)
	if len(product.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(product.Tags, ", "))
	}
	if product.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", product.Description)
	}
	if pageText != "" {
		fmt.Fprintf(&b, "Page text: %s\n", pageText)
	}
	return textutil.Truncate(b.String(), maxPromptChars)
}
