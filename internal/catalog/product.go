// Package catalog holds the product data model and the pure query engine
// (filter, search, sort) that runs over an immutable in-memory catalog.
//
// Nothing in this package performs I/O. A [Store] is built once per load
// and never mutated afterwards, so any number of goroutines may query the
// same store concurrently without coordination.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a source row carries no currency code.
const DefaultCurrency = "EUR"

// MaxImages is the number of image columns read per product.
const MaxImages = 5

// StockStatus is the availability of a product.
type StockStatus string

const (
	InStock    StockStatus = "In Stock"
	OutOfStock StockStatus = "Out of Stock"
	PreOrder   StockStatus = "Pre-order"
)

// ParseStockStatus returns the matching status for one of the three literal
// values. Anything else, including the empty string, yields InStock.
func ParseStockStatus(s string) StockStatus {
	switch StockStatus(s) {
	case InStock, OutOfStock, PreOrder:
		return StockStatus(s)
	default:
		return InStock
	}
}

// Dimensions are the assembled size of a product in centimetres.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Product is the canonical catalog entity. Products are built once per
// ingestion pass and must be treated as read-only afterwards: the slices
// and maps they carry are shared between snapshot copies.
type Product struct {
	ID          string `json:"id" validate:"required"`
	SKU         string `json:"sku"`
	ProductURL  string `json:"productUrl"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`

	// Canonical slugs once the product has been normalized.
	Category    string `json:"category" validate:"required"`
	Subcategory string `json:"subcategory"`

	Price         decimal.Decimal  `json:"price" validate:"gt=0"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Currency      string           `json:"currency"`

	// Audience in months.
	AgeMin int `json:"ageMin"`
	AgeMax int `json:"ageMax"`

	Materials  []string   `json:"materials"`
	Dimensions Dimensions `json:"dimensions"`
	Weight     float64    `json:"weight"`

	SafetyCertifications []string        `json:"safetyCertifications"`
	AssemblyRequired     bool            `json:"assemblyRequired"`
	CareInstructions     string          `json:"careInstructions"`
	ShippingCost         decimal.Decimal `json:"shippingCost"`
	ShippingTime         string          `json:"shippingTime"`

	Images         []string       `json:"images" validate:"min=1"`
	Specifications map[string]any `json:"specifications"`
	StockStatus    StockStatus    `json:"stockStatus"`

	// Optional ordering signals. Sources that cannot supply them leave them
	// nil and the newest/popularity sort keys are then unavailable.
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	PopularityScore *float64   `json:"popularityScore,omitempty"`
}

// IsDiscounted reports whether the product carries an original price above
// its current price.
func (p Product) IsDiscounted() bool {
	return p.OriginalPrice != nil && p.OriginalPrice.GreaterThan(p.Price)
}

// Available reports whether the product can be ordered for immediate delivery.
func (p Product) Available() bool {
	return p.StockStatus == InStock
}
