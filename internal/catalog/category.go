package catalog

import (
	"slices"
)

// Category is a node of the category tree as served to clients.
// ProductCount is computed from the store on every read.
type Category struct {
	ID           string     `json:"id"`
	Slug         string     `json:"slug"`
	Name         string     `json:"name"`
	ProductCount int        `json:"productCount"`
	Children     []Category `json:"children,omitempty"`
}

// TaxonomyNode is a static category definition.
type TaxonomyNode struct {
	ID       string
	Slug     string
	Name     string
	Children []TaxonomyNode
}

// Taxonomy is the static category tree of the shop. Children of a root are
// subcategories of that root.
type Taxonomy struct {
	Roots []TaxonomyNode
}

type countKey struct {
	category    string
	subcategory string
}

// Categories builds the category tree of t with live product counts. Root
// counts cover every product in the category; child counts cover products
// in the parent category with that subcategory. Categories that appear in
// the store but not in t are appended as childless roots, ordered by slug.
func (s *Store) Categories(t Taxonomy) []Category {
	byCategory := make(map[string]int)
	bySub := make(map[countKey]int)
	for _, p := range s.Products() {
		byCategory[p.Category]++
		bySub[countKey{p.Category, p.Subcategory}]++
	}

	known := make(map[string]bool, len(t.Roots))
	tree := make([]Category, 0, len(t.Roots))
	for _, root := range t.Roots {
		known[root.Slug] = true
		node := Category{
			ID:           root.ID,
			Slug:         root.Slug,
			Name:         root.Name,
			ProductCount: byCategory[root.Slug],
		}
		for _, child := range root.Children {
			node.Children = append(node.Children, Category{
				ID:           child.ID,
				Slug:         child.Slug,
				Name:         child.Name,
				ProductCount: bySub[countKey{root.Slug, child.Slug}],
			})
		}
		tree = append(tree, node)
	}

	var discovered []string
	for slug := range byCategory {
		if !known[slug] {
			discovered = append(discovered, slug)
		}
	}
	slices.Sort(discovered)
	for _, slug := range discovered {
		tree = append(tree, Category{
			ID:           slug,
			Slug:         slug,
			Name:         slug,
			ProductCount: byCategory[slug],
		})
	}

	return tree
}
