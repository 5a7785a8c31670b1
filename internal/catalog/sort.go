package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrUnsupportedSortKey is returned for unknown sort keys and for keys whose
// ordering signal is missing from at least one product.
var ErrUnsupportedSortKey = errors.New("unsupported sort key")

// SortKey selects the comparator used by Sort.
type SortKey string

const (
	SortName       SortKey = "name"
	SortPrice      SortKey = "price"
	SortAge        SortKey = "age"
	SortNewest     SortKey = "newest"
	SortPopularity SortKey = "popularity"
)

// Direction is the sort direction. Desc reverses the comparator.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseSortKey validates a sort key from user input.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortName, SortPrice, SortAge, SortNewest, SortPopularity:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSortKey, s)
	}
}

// DefaultDirection is the direction used when a query names none: latest
// and most popular first for newest and popularity, ascending otherwise.
func DefaultDirection(key SortKey) Direction {
	if key == SortNewest || key == SortPopularity {
		return Desc
	}
	return Asc
}

// ParseDirection maps "desc" (any case) to Desc and everything else to Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Sorter orders products. The zero value compares names with English
// collation rules.
type Sorter struct {
	Locale language.Tag
}

// Sort orders products by key with the default Sorter.
func Sort(products []Product, key SortKey, dir Direction) ([]Product, error) {
	return Sorter{}.Sort(products, key, dir)
}

// Sort returns a new slice holding products ordered by key. The sort is
// stable: products that compare equal keep their input order, in either
// direction.
func (s Sorter) Sort(products []Product, key SortKey, dir Direction) ([]Product, error) {
	compare, err := s.comparator(products, key)
	if err != nil {
		return nil, err
	}
	if dir == Desc {
		asc := compare
		compare = func(a, b Product) int { return -asc(a, b) }
	}

	out := slices.Clone(products)
	slices.SortStableFunc(out, compare)
	return out, nil
}

func (s Sorter) comparator(products []Product, key SortKey) (func(a, b Product) int, error) {
	switch key {
	case SortName:
		tag := s.Locale
		if tag == language.Und {
			tag = language.English
		}
		// Collators keep internal buffers; one per call keeps Sort safe
		// for concurrent use.
		coll := collate.New(tag)
		return func(a, b Product) int {
			return coll.CompareString(a.Name, b.Name)
		}, nil

	case SortPrice:
		return func(a, b Product) int {
			return a.Price.Cmp(b.Price)
		}, nil

	case SortAge:
		return func(a, b Product) int {
			return cmp.Compare(a.AgeMin, b.AgeMin)
		}, nil

	case SortNewest:
		for _, p := range products {
			if p.CreatedAt == nil {
				return nil, fmt.Errorf("%w: %q needs createdAt on every product (missing on %q)",
					ErrUnsupportedSortKey, key, p.ID)
			}
		}
		return func(a, b Product) int {
			return a.CreatedAt.Compare(*b.CreatedAt)
		}, nil

	case SortPopularity:
		for _, p := range products {
			if p.PopularityScore == nil {
				return nil, fmt.Errorf("%w: %q needs popularityScore on every product (missing on %q)",
					ErrUnsupportedSortKey, key, p.ID)
			}
		}
		return func(a, b Product) int {
			return cmp.Compare(*a.PopularityScore, *b.PopularityScore)
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSortKey, key)
	}
}
