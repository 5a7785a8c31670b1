package catalog

import "strings"

// Search returns the products whose name, description, category or
// subcategory contains query, ignoring case. Whitespace in query is
// significant; only the empty query matches every product. Order is
// preserved and the input is not modified.
func Search(products []Product, query string) []Product {
	if query == "" {
		out := make([]Product, len(products))
		copy(out, products)
		return out
	}

	q := strings.ToLower(query)
	var out []Product
	for _, p := range products {
		if matches(p, q) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p Product, q string) bool {
	for _, field := range [...]string{p.Name, p.Description, p.Category, p.Subcategory} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
