package ingest

import (
	"testing"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Brave Explorers", "brave-explorers"},
		{"  Brave   Explorers  ", "brave-explorers"},
		{"Climbing & Active Play", "climbing-active-play"},
		{"Tables/Chairs", "tableschairs"},
		{"Kids' Corner", "kids-corner"},
		{"--Weird -- Label--", "weird-label"},
		{"Crème Brûlée", "crme-brle"},
		{"tab\tand\nnewline", "tab-and-newline"},
		{"already-a-slug", "already-a-slug"},
		{"3-6 Years", "3-6-years"},
		{"", ""},
		{"&&&", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
			assert.Equal(t, tt.want, Slugify(Slugify(tt.in)), "slugify must be a fixed point")
		})
	}
}

func TestNormalize_Example(t *testing.T) {
	n := NewNormalizer(DefaultMappings())
	p := n.Normalize(catalog.Product{Category: "Brave Explorers", Subcategory: "climbing-triangles"})
	assert.Equal(t, "brave-explorers", p.Category)
	assert.Equal(t, "climbing-triangles", p.Subcategory)
}

func TestNormalize_TablesAndFallback(t *testing.T) {
	n := NewNormalizer(DefaultMappings())
	tests := []struct {
		category, subcategory string
		wantCat, wantSub      string
	}{
		{"Climbing & Active Play", "Pikler Triangles", "brave-explorers", "climbing-triangles"},
		{"Storage", "Toy Boxes", "tidy-nests", "toy-storage"},
		{"Soft Play", "Tipis", "cozy-corners", "teepees"},
		{"Outdoor Fun", "Sand Pits", "outdoor-fun", "sand-pits"},
		{"storage", "", "storage", ""},
	}
	for _, tt := range tests {
		p := n.Normalize(catalog.Product{Category: tt.category, Subcategory: tt.subcategory})
		assert.Equal(t, tt.wantCat, p.Category, "category %q", tt.category)
		assert.Equal(t, tt.wantSub, p.Subcategory, "subcategory %q", tt.subcategory)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	var labels []string
	for label, slug := range CategoryLabels {
		labels = append(labels, label, slug)
	}
	for label, slug := range SubcategoryLabels {
		labels = append(labels, label, slug)
	}
	labels = append(labels, "New Arrivals!", "  odd   spacing ", "Ünïcode Label", "", "---")

	n := NewNormalizer(DefaultMappings())
	for _, cat := range labels {
		for _, sub := range []string{cat, "Floor Beds", "mystery shelf"} {
			once := n.Normalize(catalog.Product{ID: "x", Category: cat, Subcategory: sub})
			twice := n.Normalize(once)
			assert.Equal(t, once, twice, "category %q subcategory %q", cat, sub)
		}
	}
}

func TestNormalize_SubstituteMappings(t *testing.T) {
	m, err := NewMappings(
		map[string]string{"Möbel": "furniture"},
		map[string]string{"Betten": "beds"},
	)
	require.NoError(t, err)

	p := NewNormalizer(m).Normalize(catalog.Product{Category: "Möbel", Subcategory: "Betten"})
	assert.Equal(t, "furniture", p.Category)
	assert.Equal(t, "beds", p.Subcategory)

	p = NewNormalizer(Mappings{}).Normalize(catalog.Product{Category: "Brave Explorers"})
	assert.Equal(t, "brave-explorers", p.Category)
}

func TestNewMappings_RejectsNonIdempotentTables(t *testing.T) {
	tests := []struct {
		name string
		cats map[string]string
		subs map[string]string
	}{
		{"target not a slug", map[string]string{"Beds": "Little Dreamers"}, nil},
		{"empty target", nil, map[string]string{"Beds": ""}},
		{"slug label remapped", map[string]string{"sleep": "little-dreamers"}, nil},
		{"canonical slug remapped", nil, map[string]string{"floor-beds": "beds"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMappings(tt.cats, tt.subs)
			assert.Error(t, err)
		})
	}

	_, err := NewMappings(map[string]string{"brave-explorers": "brave-explorers"}, nil)
	assert.NoError(t, err)
}

func TestNewMappings_CopiesInput(t *testing.T) {
	cats := map[string]string{"Beds": "little-dreamers"}
	m, err := NewMappings(cats, nil)
	require.NoError(t, err)

	cats["Beds"] = "changed"
	assert.Equal(t, "little-dreamers", m.Category("Beds"))
}

func TestDefaultMappings(t *testing.T) {
	m := DefaultMappings()
	cats, subs := m.Len()
	assert.Equal(t, len(CategoryLabels), cats)
	assert.Equal(t, len(SubcategoryLabels), subs)

	// Every mapped slug belongs to the shop taxonomy.
	roots := map[string]map[string]bool{}
	for _, r := range catalog.DefaultTaxonomy().Roots {
		children := map[string]bool{}
		for _, c := range r.Children {
			children[c.Slug] = true
		}
		roots[r.Slug] = children
	}
	for label, slug := range CategoryLabels {
		assert.Contains(t, roots, slug, "category label %q", label)
	}
	allSubs := map[string]bool{}
	for _, children := range roots {
		for s := range children {
			allSubs[s] = true
		}
	}
	for label, slug := range SubcategoryLabels {
		assert.True(t, allSubs[slug], "subcategory label %q maps to unknown slug %q", label, slug)
	}
}
