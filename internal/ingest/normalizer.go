package ingest

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRun     = regexp.MustCompile(`-{2,}`)
)

// Slugify turns a free-text label into a URL-safe token: lowercase,
// whitespace runs become single hyphens, characters outside [a-z0-9-] are
// dropped, repeated hyphens collapse and leading/trailing hyphens go.
// Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = nonSlugChars.ReplaceAllString(s, "")
	s = hyphenRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Mappings are the label-to-slug lookup tables used by a Normalizer. The
// zero value has no entries, so every label goes through Slugify.
// Mappings are immutable once built.
type Mappings struct {
	categories    map[string]string
	subcategories map[string]string
}

// NewMappings copies the given tables and checks that normalizing stays
// idempotent: every target must already be a slug, and a label that is
// itself a slug may only map to itself.
func NewMappings(categories, subcategories map[string]string) (Mappings, error) {
	var errs []string
	check := func(table string, m map[string]string) {
		for _, label := range slices.Sorted(maps.Keys(m)) {
			slug := m[label]
			if slug == "" || Slugify(slug) != slug {
				errs = append(errs, fmt.Sprintf("%s %q: target %q is not a slug", table, label, slug))
			}
			if Slugify(label) == label && slug != label {
				errs = append(errs, fmt.Sprintf("%s %q: a slug label may only map to itself, got %q", table, label, slug))
			}
		}
	}
	check("category", categories)
	check("subcategory", subcategories)

	if len(errs) > 0 {
		return Mappings{}, fmt.Errorf("invalid mappings:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return Mappings{
		categories:    maps.Clone(categories),
		subcategories: maps.Clone(subcategories),
	}, nil
}

// Category resolves a category label.
func (m Mappings) Category(label string) string {
	return resolve(m.categories, label)
}

// Subcategory resolves a subcategory label.
func (m Mappings) Subcategory(label string) string {
	return resolve(m.subcategories, label)
}

// Len returns the number of category and subcategory entries.
func (m Mappings) Len() (categories, subcategories int) {
	return len(m.categories), len(m.subcategories)
}

func resolve(table map[string]string, label string) string {
	if slug, ok := table[label]; ok {
		return slug
	}
	return Slugify(label)
}

// Normalizer rewrites product classification labels into canonical slugs.
type Normalizer struct {
	mappings Mappings
}

// NewNormalizer returns a normalizer using m.
func NewNormalizer(m Mappings) *Normalizer {
	return &Normalizer{mappings: m}
}

// Normalize returns p with Category and Subcategory replaced by slugs.
func (n *Normalizer) Normalize(p catalog.Product) catalog.Product {
	p.Category = n.mappings.Category(p.Category)
	p.Subcategory = n.mappings.Subcategory(p.Subcategory)
	return p
}
