package source

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/ingest"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PoolConfig sizes the Postgres connection pool.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// OpenPool connects to Postgres and verifies the connection.
func OpenPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	poolConfig.MinConns = int32(cfg.MinConns)
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Querier is the subset of pgxpool.Pool the Postgres source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const productsQuery = `
SELECT id, sku, product_url, name, description, category, subcategory,
       price, original_price, currency, age_min, age_max, materials,
       dimensions_length, dimensions_width, dimensions_height, weight,
       safety_certifications, assembly_required, care_instructions,
       shipping_cost, shipping_time, images, specifications, stock_status,
       created_at, popularity_score
FROM products
WHERE published
ORDER BY position, id`

// Postgres reads the catalog from the storefront's datastore. Its products
// table already holds one row per product; rows are normalized and
// validated like CSV rows so both sources yield the same catalog.
type Postgres struct {
	db       Querier
	pipeline *ingest.Pipeline
}

// NewPostgres returns a source reading through db.
func NewPostgres(db Querier, pl *ingest.Pipeline) *Postgres {
	return &Postgres{db: db, pipeline: pl}
}

func (s *Postgres) Name() string {
	return "postgres:products"
}

func (s *Postgres) Load(ctx context.Context) (ingest.Result, error) {
	rows, err := s.db.Query(ctx, productsQuery)
	if err != nil {
		return ingest.Result{}, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []catalog.Product
	var warnings []ingest.Warning
	for rows.Next() {
		var r productRow
		if err := rows.Scan(r.dest()...); err != nil {
			return ingest.Result{}, fmt.Errorf("scan product: %w", err)
		}
		p, warn := r.product()
		if warn != "" {
			warnings = append(warnings, ingest.Warning{
				Line:    len(products) + 1,
				Field:   "specifications",
				Message: warn,
			})
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return ingest.Result{}, fmt.Errorf("read products: %w", err)
	}

	res := s.pipeline.Admit(products)
	res.Report.Source = s.Name()
	res.Report.DefaultedFields += len(warnings)
	res.Report.Warnings = append(warnings, res.Report.Warnings...)
	return res, nil
}

// productRow mirrors one row of productsQuery. Nullable columns use pgtype.
type productRow struct {
	ID, SKU, ProductURL, Name          pgtype.Text
	Description, Category, Subcategory pgtype.Text
	Price, OriginalPrice               pgtype.Numeric
	Currency                           pgtype.Text
	AgeMin, AgeMax                     pgtype.Int4
	Materials                          []string
	Length, Width, Height, Weight      pgtype.Float8
	SafetyCertifications               []string
	AssemblyRequired                   pgtype.Bool
	CareInstructions                   pgtype.Text
	ShippingCost                       pgtype.Numeric
	ShippingTime                       pgtype.Text
	Images                             []string
	Specifications                     []byte
	StockStatus                        pgtype.Text
	CreatedAt                          pgtype.Timestamptz
	PopularityScore                    pgtype.Float8
}

func (r *productRow) dest() []any {
	return []any{
		&r.ID, &r.SKU, &r.ProductURL, &r.Name, &r.Description, &r.Category, &r.Subcategory,
		&r.Price, &r.OriginalPrice, &r.Currency, &r.AgeMin, &r.AgeMax, &r.Materials,
		&r.Length, &r.Width, &r.Height, &r.Weight,
		&r.SafetyCertifications, &r.AssemblyRequired, &r.CareInstructions,
		&r.ShippingCost, &r.ShippingTime, &r.Images, &r.Specifications, &r.StockStatus,
		&r.CreatedAt, &r.PopularityScore,
	}
}

// product converts the row. warn is non-empty when the specifications
// column held something other than a JSON object. Out-of-range values are
// kept as stored; Pipeline.Admit repairs and reports them.
func (r productRow) product() (p catalog.Product, warn string) {
	p = catalog.Product{
		ID:                   r.ID.String,
		SKU:                  r.SKU.String,
		ProductURL:           r.ProductURL.String,
		Name:                 r.Name.String,
		Description:          r.Description.String,
		Category:             r.Category.String,
		Subcategory:          r.Subcategory.String,
		Price:                numericToDecimal(r.Price),
		Currency:             r.Currency.String,
		AgeMin:               int(r.AgeMin.Int32),
		AgeMax:               int(r.AgeMax.Int32),
		Materials:            nonNil(r.Materials),
		Weight:               r.Weight.Float64,
		SafetyCertifications: nonNil(r.SafetyCertifications),
		AssemblyRequired:     r.AssemblyRequired.Bool,
		CareInstructions:     r.CareInstructions.String,
		ShippingCost:         numericToDecimal(r.ShippingCost),
		ShippingTime:         r.ShippingTime.String,
		StockStatus:          catalog.ParseStockStatus(r.StockStatus.String),
		Specifications:       map[string]any{},
		Dimensions: catalog.Dimensions{
			Length: r.Length.Float64,
			Width:  r.Width.Float64,
			Height: r.Height.Float64,
		},
	}

	if p.Currency == "" {
		p.Currency = catalog.DefaultCurrency
	}
	if r.OriginalPrice.Valid {
		orig := numericToDecimal(r.OriginalPrice)
		p.OriginalPrice = &orig
	}

	for _, img := range r.Images {
		if img != "" && len(p.Images) < catalog.MaxImages {
			p.Images = append(p.Images, img)
		}
	}

	if len(r.Specifications) > 0 {
		var specs map[string]any
		if err := json.Unmarshal(r.Specifications, &specs); err != nil {
			warn = "invalid JSON object: " + err.Error()
		} else if specs != nil {
			p.Specifications = specs
		}
	}

	if r.CreatedAt.Valid {
		t := r.CreatedAt.Time.UTC()
		p.CreatedAt = &t
	}
	if r.PopularityScore.Valid {
		f := r.PopularityScore.Float64
		p.PopularityScore = &f
	}

	return p, warn
}

// numericToDecimal converts a Postgres numeric. NULL, NaN and infinities
// become zero.
func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).Set(n.Int), n.Exp)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
