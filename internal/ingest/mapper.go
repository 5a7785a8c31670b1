package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/shopspring/decimal"
)

// Source column names. Headers are matched after trimming and lowercasing.
const (
	ColProductID            = "product_id"
	ColName                 = "name"
	ColDescription          = "description"
	ColCategory             = "category"
	ColSubcategory          = "subcategory"
	ColPrice                = "price"
	ColOriginalPrice        = "original_price"
	ColCurrency             = "currency"
	ColSKU                  = "sku"
	ColAgeMin               = "age_min"
	ColAgeMax               = "age_max"
	ColMaterials            = "materials"
	ColDimensionsLength     = "dimensions_length"
	ColDimensionsWidth      = "dimensions_width"
	ColDimensionsHeight     = "dimensions_height"
	ColWeight               = "weight"
	ColSafetyCertifications = "safety_certifications"
	ColAssemblyRequired     = "assembly_required"
	ColCareInstructions     = "care_instructions"
	ColStockStatus          = "stock_status"
	ColShippingCost         = "shipping_cost_eu"
	ColShippingTime         = "shipping_time"
	ColProductURL           = "product_url"
	ColSpecifications       = "specifications_json"

	// Optional ordering signals.
	ColCreatedAt       = "created_at"
	ColPopularityScore = "popularity_score"
)

// ImageColumn returns the header of the n-th image column, starting at 1.
func ImageColumn(n int) string {
	return "image_" + strconv.Itoa(n)
}

// ExpectedColumns lists the columns a complete export carries, in export
// order. created_at and popularity_score are optional and not listed.
func ExpectedColumns() []string {
	cols := []string{
		ColProductID, ColName, ColDescription, ColCategory, ColSubcategory,
		ColPrice, ColOriginalPrice, ColCurrency, ColSKU, ColAgeMin, ColAgeMax,
		ColMaterials, ColDimensionsLength, ColDimensionsWidth, ColDimensionsHeight,
		ColWeight, ColSafetyCertifications, ColAssemblyRequired, ColCareInstructions,
	}
	for i := 1; i <= catalog.MaxImages; i++ {
		cols = append(cols, ImageColumn(i))
	}
	return append(cols,
		ColStockStatus, ColShippingCost, ColShippingTime, ColProductURL, ColSpecifications)
}

// Mapper turns a tokenized row into a Product. It never fails on cell
// content: unparseable cells fall back to defaults and are reported as
// warnings.
type Mapper struct {
	// ListSeparator splits materials and safety certifications. Empty
	// splits on runs of whitespace.
	ListSeparator string
	Logger        *slog.Logger
}

// row looks cells up by column name and collects warnings.
type row struct {
	cells    map[string]string
	warnings []Warning
}

func (r *row) get(col string) string {
	return r.cells[col]
}

func (r *row) warn(field, format string, args ...any) {
	r.warnings = append(r.warnings, Warning{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *row) decimal(col string) decimal.Decimal {
	raw := r.get(col)
	d, ok := parseDecimal(raw)
	if !ok {
		r.warn(col, "not a number: %q, using 0", raw)
	}
	return d
}

func (r *row) measure(col string) float64 {
	raw := r.get(col)
	f, ok := parseFloat(raw)
	if !ok {
		r.warn(col, "not a number: %q, using 0", raw)
	}
	f, msg := checkNonNegative(f)
	if msg != "" {
		r.warn(col, "%s", msg)
	}
	return f
}

func (r *row) integer(col string) int {
	raw := r.get(col)
	n, ok := parseInt(raw)
	if !ok {
		r.warn(col, "not an integer: %q, using 0", raw)
	}
	return n
}

// MapRow builds a Product from one data row. ok is false when the row's
// field count differs from the header's; no product is built then.
func (m *Mapper) MapRow(headers, values []string) (p catalog.Product, warnings []Warning, ok bool) {
	if len(headers) != len(values) {
		return catalog.Product{}, nil, false
	}

	r := &row{cells: make(map[string]string, len(headers))}
	for i, h := range headers {
		if _, dup := r.cells[h]; !dup {
			r.cells[h] = values[i]
		}
	}

	p = catalog.Product{
		ID:               r.get(ColProductID),
		SKU:              r.get(ColSKU),
		ProductURL:       r.get(ColProductURL),
		Name:             r.get(ColName),
		Description:      r.get(ColDescription),
		Category:         r.get(ColCategory),
		Subcategory:      r.get(ColSubcategory),
		Price:            r.decimal(ColPrice),
		Currency:         m.currency(r),
		AgeMin:           r.integer(ColAgeMin),
		AgeMax:           r.integer(ColAgeMax),
		Materials:        splitList(r.get(ColMaterials), m.ListSeparator),
		Weight:           r.measure(ColWeight),
		AssemblyRequired: r.get(ColAssemblyRequired) == "Yes",
		CareInstructions: r.get(ColCareInstructions),
		ShippingCost:     r.decimal(ColShippingCost),
		ShippingTime:     r.get(ColShippingTime),
		StockStatus:      catalog.ParseStockStatus(r.get(ColStockStatus)),
		Dimensions: catalog.Dimensions{
			Length: r.measure(ColDimensionsLength),
			Width:  r.measure(ColDimensionsWidth),
			Height: r.measure(ColDimensionsHeight),
		},
		SafetyCertifications: splitList(r.get(ColSafetyCertifications), m.ListSeparator),
		Images:               images(r),
		Specifications:       m.specifications(r),
	}

	if r.get(ColOriginalPrice) != "" {
		orig := r.decimal(ColOriginalPrice)
		p.OriginalPrice = &orig
	}

	var msg string
	if p.AgeMax, msg = checkAgeRange(p.AgeMin, p.AgeMax); msg != "" {
		r.warn(ColAgeMax, "%s", msg)
	}

	if raw := r.get(ColCreatedAt); raw != "" {
		if t, ok := parseTime(raw); ok {
			p.CreatedAt = &t
		} else {
			r.warn(ColCreatedAt, "not a timestamp: %q, ignored", raw)
		}
	}

	if raw := r.get(ColPopularityScore); raw != "" {
		if f, ok := parseFloat(raw); ok {
			p.PopularityScore = &f
		} else {
			r.warn(ColPopularityScore, "not a number: %q, ignored", raw)
		}
	}

	return p, r.warnings, true
}

func (m *Mapper) currency(r *row) string {
	code, msg := checkCurrency(r.get(ColCurrency))
	if msg != "" {
		r.warn(ColCurrency, "%s", msg)
	}
	return code
}

// specifications parses the JSON column. Anything but a JSON object yields
// an empty object.
func (m *Mapper) specifications(r *row) map[string]any {
	raw := r.get(ColSpecifications)
	if raw == "" {
		return map[string]any{}
	}

	var specs map[string]any
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		m.logger().Warn("invalid specifications JSON, using empty object",
			"product_id", r.get(ColProductID),
			"error", err,
		)
		r.warn(ColSpecifications, "invalid JSON object: %v", err)
		return map[string]any{}
	}
	if specs == nil {
		return map[string]any{}
	}
	return specs
}

func (m *Mapper) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func images(r *row) []string {
	out := make([]string, 0, catalog.MaxImages)
	for i := 1; i <= catalog.MaxImages; i++ {
		if url := r.get(ImageColumn(i)); url != "" {
			out = append(out, url)
		}
	}
	return out
}
