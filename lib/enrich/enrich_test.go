package enrich

import (
	"context"
	"fmt"
	"testing"

	"beanscout-backend/lib/catalog"
	"beanscout-backend/lib/vocab"

	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func TestNeedsEnrichment(t *testing.T) {
	cases := []struct {
		name    string
		product catalog.Product
		want    bool
	}{
		{
			name: "complete record",
			product: catalog.Product{
				RoastLevel:     vocab.RoastLight,
				BeanType:       vocab.BeanArabica,
				Process:        vocab.ProcessWashed,
				FlavorProfiles: []string{"jasmine"},
			},
			want: false,
		},
		{
			name: "one gap is tolerated",
			product: catalog.Product{
				RoastLevel:     vocab.RoastUnknown,
				BeanType:       vocab.BeanArabica,
				Process:        vocab.ProcessWashed,
				FlavorProfiles: []string{"jasmine"},
			},
			want: false,
		},
		{
			name: "two gaps trigger",
			product: catalog.Product{
				RoastLevel:     vocab.RoastUnknown,
				BeanType:       vocab.BeanUnknown,
				Process:        vocab.ProcessWashed,
				FlavorProfiles: []string{"jasmine"},
			},
			want: true,
		},
		{
			name:    "empty record triggers",
			product: catalog.Product{},
			want:    true,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, NeedsEnrichment(c.product))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "bare object",
			text: `{"roast_level":"light"}`,
			want: `{"roast_level":"light"}`,
			ok:   true,
		},
		{
			name: "wrapped in prose",
			text: "Sure, here you go:\n```json\n{\"roast_level\":\"light\"}\n```\nHope that helps!",
			want: `{"roast_level":"light"}`,
			ok:   true,
		},
		{
			name: "nested object",
			text: `{"prices":{"250":550}}`,
			want: `{"prices":{"250":550}}`,
			ok:   true,
		},
		{
			name: "braces inside strings",
			text: `{"region_name":"Hua}{tusco"}`,
			want: `{"region_name":"Hua}{tusco"}`,
			ok:   true,
		},
		{
			name: "no object",
			text: "I could not find any attributes.",
			ok:   false,
		},
		{
			name: "unterminated object",
			text: `{"roast_level":"light"`,
			ok:   false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(c.text)
			require.Equal(t, c.ok, ok)
			require.Equal(t, c.want, got)
		})
	}
}

func TestEnrichFillsUnknownFields(t *testing.T) {
	completer := &fakeCompleter{
		reply: `Here are the attributes: {
			"roast_level": "Light roast",
			"bean_type": "100% Arabica",
			"processing_method": "Fully washed",
			"region_name": "Yirgacheffe",
			"flavor_profiles": ["Jasmine", "Lemon Zest"],
			"prices": {"250": 550}
		}`,
	}
	enricher := New(completer)

	product := catalog.Product{
		Name:       "Morning Ritual",
		Slug:       "morning-ritual",
		RoastLevel: vocab.RoastUnknown,
		BeanType:   vocab.BeanUnknown,
		Process:    vocab.ProcessUnknown,
	}
	require.True(t, enricher.Enrich(context.Background(), &product, ""))

	require.Equal(t, vocab.RoastLight, product.RoastLevel)
	require.Equal(t, vocab.BeanArabica, product.BeanType)
	require.Equal(t, vocab.ProcessWashed, product.Process)
	require.Equal(t, "Yirgacheffe", product.RegionName)
	require.Contains(t, product.FlavorProfiles, "jasmine")
	require.Equal(t, map[int]float64{250: 550}, product.Prices)
	require.True(t, product.EnrichedByLlm)
	require.Equal(t, 1, completer.calls)
}

func TestEnrichNeverOverwritesConfidentValues(t *testing.T) {
	completer := &fakeCompleter{reply: `{"roast_level": "light"}`}
	enricher := New(completer)

	product := catalog.Product{
		Name:       "Midnight Blend",
		Slug:       "midnight-blend",
		RoastLevel: vocab.RoastDark,
		BeanType:   vocab.BeanUnknown,
		Process:    vocab.ProcessUnknown,
	}
	require.False(t, enricher.Enrich(context.Background(), &product, ""))

	require.Equal(t, vocab.RoastDark, product.RoastLevel)
	require.False(t, product.EnrichedByLlm)
}

func TestEnrichSkipsCompleteRecords(t *testing.T) {
	completer := &fakeCompleter{reply: `{"roast_level": "light"}`}
	enricher := New(completer)

	product := catalog.Product{
		Name:           "House Espresso",
		RoastLevel:     vocab.RoastMedium,
		BeanType:       vocab.BeanBlend,
		Process:        vocab.ProcessNatural,
		FlavorProfiles: []string{"chocolate"},
	}
	require.False(t, enricher.Enrich(context.Background(), &product, ""))
	require.Zero(t, completer.calls)
}

func TestEnrichDegradesOnFailure(t *testing.T) {
	needy := catalog.Product{Name: "Mystery Lot", Slug: "mystery-lot"}

	cases := []struct {
		name      string
		completer *fakeCompleter
	}{
		{"transport error", &fakeCompleter{err: fmt.Errorf("connection refused")}},
		{"no json in reply", &fakeCompleter{reply: "no attributes found"}},
		{"malformed json", &fakeCompleter{reply: `{"roast_level": light}`}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			product := needy
			require.False(t, New(c.completer).Enrich(context.Background(), &product, ""))
			require.False(t, product.EnrichedByLlm)
			require.Empty(t, product.RoastLevel)
		})
	}
}

func TestEnrichNormalizesGarbageToNoMerge(t *testing.T) {
	completer := &fakeCompleter{
		reply: `{"roast_level": "charcoal briquette", "bean_type": "mystery", "processing_method": "quantum"}`,
	}
	product := catalog.Product{Name: "Odd Lot", Slug: "odd-lot"}
	require.False(t, New(completer).Enrich(context.Background(), &product, ""))
	require.False(t, product.EnrichedByLlm)
}
