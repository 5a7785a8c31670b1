package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AgeRange is an inclusive interval in months.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Overlaps reports whether the product's audience interval intersects r.
// A product spanning a wider range than r still matches.
func (r AgeRange) Overlaps(p Product) bool {
	return p.AgeMin <= r.Max && p.AgeMax >= r.Min
}

// PriceRange is an inclusive price interval.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Contains reports whether price lies within the range, both ends included.
func (r PriceRange) Contains(price decimal.Decimal) bool {
	return r.Min.LessThanOrEqual(price) && price.LessThanOrEqual(r.Max)
}

// FilterSpec describes which products survive a filter pass. Every
// criterion left at its zero value is a no-op.
type FilterSpec struct {
	Categories []string    `json:"categories,omitempty"`
	AgeGroups  []AgeRange  `json:"ageGroups,omitempty"`
	PriceRange *PriceRange `json:"priceRange,omitempty"`
	Materials  []string    `json:"materials,omitempty"`
	InStock    bool        `json:"inStock,omitempty"`
}

// IsEmpty reports whether no criterion is requested.
func (f FilterSpec) IsEmpty() bool {
	return len(f.predicates()) == 0
}

type predicate func(Product) bool

// predicates returns the requested criteria in pipeline order.
func (f FilterSpec) predicates() []predicate {
	var preds []predicate

	if categories := nonEmpty(f.Categories, false); len(categories) > 0 {
		set := make(map[string]struct{}, len(categories))
		for _, c := range categories {
			set[c] = struct{}{}
		}
		preds = append(preds, func(p Product) bool {
			_, ok := set[p.Category]
			return ok
		})
	}

	if len(f.AgeGroups) > 0 {
		groups := f.AgeGroups
		preds = append(preds, func(p Product) bool {
			for _, g := range groups {
				if g.Overlaps(p) {
					return true
				}
			}
			return false
		})
	}

	if f.PriceRange != nil {
		r := *f.PriceRange
		preds = append(preds, func(p Product) bool {
			return r.Contains(p.Price)
		})
	}

	if materials := nonEmpty(f.Materials, true); len(materials) > 0 {
		preds = append(preds, func(p Product) bool {
			for _, want := range materials {
				for _, have := range p.Materials {
					if strings.Contains(strings.ToLower(have), want) {
						return true
					}
				}
			}
			return false
		})
	}

	if f.InStock {
		preds = append(preds, Product.Available)
	}

	return preds
}

// Filter returns the products that satisfy every requested criterion of f,
// in their original order. The input slice is not modified.
func Filter(products []Product, f FilterSpec) []Product {
	out := make([]Product, len(products))
	copy(out, products)

	for _, keep := range f.predicates() {
		out = filterBy(out, keep)
	}
	return out
}

// filterBy keeps the elements matching keep, reusing the backing array.
func filterBy(products []Product, keep predicate) []Product {
	n := 0
	for _, p := range products {
		if keep(p) {
			products[n] = p
			n++
		}
	}
	clear(products[n:])
	return products[:n]
}

// nonEmpty drops blank entries, optionally lowercasing the survivors.
func nonEmpty(values []string, lower bool) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if lower {
			v = strings.ToLower(v)
		}
		out = append(out, v)
	}
	return out
}
