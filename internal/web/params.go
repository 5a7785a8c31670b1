package web

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// MaxPageSize caps the limit query parameter.
const MaxPageSize = 500

// supportedLocales are the collation locales offered for name sorting.
var supportedLocales = language.NewMatcher([]language.Tag{
	language.English,
	language.German,
	language.French,
	language.Dutch,
	language.Swedish,
	language.Danish,
})

// parseProductQuery reads a catalog query from the request's query string.
//
//	category    repeatable or comma separated category slugs
//	age         repeatable min-max ranges in months
//	price_min   inclusive lower price bound
//	price_max   inclusive upper price bound
//	material    repeatable or comma separated
//	in_stock    boolean
//	q           free-text search
//	sort, dir   sort key and direction; dir defaults per key
//	offset, limit
//	lang        collation locale; Accept-Language when absent
func parseProductQuery(r *http.Request) (catalog.Query, error) {
	v := r.URL.Query()
	var q catalog.Query

	q.Filters.Categories = listParam(v, "category")
	q.Filters.Materials = listParam(v, "material")

	for _, raw := range listParam(v, "age") {
		ar, err := parseAgeRange(raw)
		if err != nil {
			return q, err
		}
		q.Filters.AgeGroups = append(q.Filters.AgeGroups, ar)
	}

	pr, err := parsePriceRange(v.Get("price_min"), v.Get("price_max"))
	if err != nil {
		return q, err
	}
	q.Filters.PriceRange = pr

	if raw := v.Get("in_stock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			return q, fmt.Errorf("%w: in_stock=%q", errInvalidParam, raw)
		}
		q.Filters.InStock = inStock
	}

	q.Search = v.Get("q")

	if raw := v.Get("sort"); raw != "" {
		key, err := catalog.ParseSortKey(raw)
		if err != nil {
			return q, err
		}
		q.Sort = key
	}
	if raw := v.Get("dir"); raw != "" {
		q.Direction = catalog.ParseDirection(raw)
	}

	if q.Offset, err = intParam(v, "offset", 0, math.MaxInt); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(v, "limit", 0, MaxPageSize); err != nil {
		return q, err
	}

	q.Locale = requestLocale(r)
	return q, nil
}

// listParam collects a repeatable parameter, splitting comma lists and
// dropping empty entries.
func listParam(v url.Values, name string) []string {
	var out []string
	for _, raw := range v[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseAgeRange parses "12-36". A single number n means n-n.
func parseAgeRange(raw string) (catalog.AgeRange, error) {
	lo, hi, found := strings.Cut(raw, "-")
	if !found {
		hi = lo
	}
	minAge, err1 := strconv.Atoi(strings.TrimSpace(lo))
	maxAge, err2 := strconv.Atoi(strings.TrimSpace(hi))
	if err1 != nil || err2 != nil || minAge < 0 || maxAge < minAge {
		return catalog.AgeRange{}, fmt.Errorf("%w: age=%q", errInvalidParam, raw)
	}
	return catalog.AgeRange{Min: minAge, Max: maxAge}, nil
}

// parsePriceRange returns nil when neither bound is given. A missing bound
// is open.
func parsePriceRange(rawMin, rawMax string) (*catalog.PriceRange, error) {
	if rawMin == "" && rawMax == "" {
		return nil, nil
	}

	pr := &catalog.PriceRange{Min: decimal.Zero, Max: decimal.NewFromInt(math.MaxInt64)}
	if rawMin != "" {
		d, err := decimal.NewFromString(rawMin)
		if err != nil || d.IsNegative() {
			return nil, fmt.Errorf("%w: price_min=%q", errInvalidParam, rawMin)
		}
		pr.Min = d
	}
	if rawMax != "" {
		d, err := decimal.NewFromString(rawMax)
		if err != nil || d.IsNegative() {
			return nil, fmt.Errorf("%w: price_max=%q", errInvalidParam, rawMax)
		}
		pr.Max = d
	}
	if pr.Min.GreaterThan(pr.Max) {
		return nil, fmt.Errorf("%w: price_min %s exceeds price_max %s", errInvalidParam, pr.Min, pr.Max)
	}
	return pr, nil
}

func intParam(v url.Values, name string, lo, hi int) (int, error) {
	raw := v.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%w: %s=%q", errInvalidParam, name, raw)
	}
	return n, nil
}

// requestLocale picks the collation locale from the lang parameter or the
// Accept-Language header.
func requestLocale(r *http.Request) language.Tag {
	tag, _ := language.MatchStrings(supportedLocales, r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	base, _ := tag.Base()
	return language.Make(base.String())
}
