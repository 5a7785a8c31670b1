package catalog

import "golang.org/x/text/language"

// Query combines the filter, search and sort stages with paging.
type Query struct {
	Filters   FilterSpec
	Search    string
	Sort      SortKey // empty keeps catalog order
	Direction Direction // empty uses DefaultDirection(Sort)
	Locale    language.Tag

	Offset int
	Limit  int // 0 returns everything after Offset
}

// Result is one page of a query.
type Result struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"` // matches before paging
	Offset   int       `json:"offset"`
	Limit    int       `json:"limit"`
}

// Run applies the query to products: filter, then search, then sort, then
// page. products is never modified.
func (q Query) Run(products []Product) (Result, error) {
	matched := Search(Filter(products, q.Filters), q.Search)

	if q.Sort != "" {
		dir := q.Direction
		if dir == "" {
			dir = DefaultDirection(q.Sort)
		}
		sorted, err := Sorter{Locale: q.Locale}.Sort(matched, q.Sort, dir)
		if err != nil {
			return Result{}, err
		}
		matched = sorted
	}

	res := Result{
		Total:  len(matched),
		Offset: max(q.Offset, 0),
		Limit:  max(q.Limit, 0),
	}

	page := matched[min(res.Offset, len(matched)):]
	if res.Limit > 0 && res.Limit < len(page) {
		page = page[:res.Limit]
	}
	res.Products = append([]Product{}, page...)
	return res, nil
}
