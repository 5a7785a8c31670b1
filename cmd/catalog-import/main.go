// Command catalog-import runs one catalog export through the ingestion
// pipeline, prints the ingestion report as JSON and optionally writes the
// accepted products to a SQLite snapshot the server can start from.
//
//	catalog-import --file export.csv --out catalog.db
//	catalog-import --url https://example.com/export.csv --products
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/ingest"
	"github.com/JonMunkholm/catalog/internal/logging"
	"github.com/JonMunkholm/catalog/internal/source"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

const (
	fileFlag     = "file"
	urlFlag      = "url"
	snapshotFlag = "snapshot"
	outFlag      = "out"
)

type options struct {
	file        string
	url         string
	snapshot    string
	out         string
	separator   string
	maxWarnings int
	timeout     time.Duration
	retries     int
	products    bool
	logLevel    string
}

func main() {
	// Optional; CATALOG_FETCH_TOKEN may come from .env
	_ = godotenv.Load()

	opts := parseFlags(os.Args[1:])
	if err := validateFlags(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		pflag.Usage()
		os.Exit(2)
	}

	logger := logging.New(os.Stderr, opts.logLevel, "text")
	slog.SetDefault(logger)
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, logger); err != nil {
		logger.Error("catalog import failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) options {
	var opts options
	fs := pflag.CommandLine
	fs.StringVarP(&opts.file, fileFlag, "f", "", "CSV export to ingest")
	fs.StringVarP(&opts.url, urlFlag, "u", "", "URL of a CSV export to fetch")
	fs.StringVar(&opts.snapshot, snapshotFlag, "", "SQLite snapshot to read instead of a CSV")
	fs.StringVarP(&opts.out, outFlag, "o", "", "write accepted products to this SQLite snapshot")
	fs.StringVar(&opts.separator, "separator", "", "list separator for materials and certifications (default: whitespace)")
	fs.IntVar(&opts.maxWarnings, "max-warnings", ingest.DefaultMaxWarnings, "warnings kept in the report")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-attempt timeout for --url")
	fs.IntVar(&opts.retries, "retries", 3, "retries for --url")
	fs.BoolVarP(&opts.products, "products", "p", false, "print accepted products with the report")
	fs.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	_ = fs.Parse(args)
	return opts
}

func validateFlags(opts options) error {
	set := 0
	for _, v := range []string{opts.file, opts.url, opts.snapshot} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of --%s, --%s or --%s is required", fileFlag, urlFlag, snapshotFlag)
	}
	if opts.out != "" && opts.out == opts.snapshot {
		return fmt.Errorf("--%s must differ from --%s", outFlag, snapshotFlag)
	}
	if opts.maxWarnings <= 0 {
		return errors.New("--max-warnings must be positive")
	}
	return nil
}

// sourceConfig maps the flags onto the catalog section the server reads.
func sourceConfig(opts options) *config.Config {
	cfg := &config.Config{Catalog: config.CatalogConfig{
		CSVPath:      opts.file,
		URL:          opts.url,
		FetchToken:   os.Getenv("CATALOG_FETCH_TOKEN"),
		FetchTimeout: opts.timeout,
		FetchRetries: opts.retries,
		RetryWait:    time.Second,
		RetryMaxWait: 10 * time.Second,
		SnapshotPath: opts.snapshot,
	}}
	switch {
	case opts.file != "":
		cfg.Catalog.Source = config.SourceFile
	case opts.url != "":
		cfg.Catalog.Source = config.SourceHTTP
	default:
		cfg.Catalog.Source = config.SourceSQLite
	}
	return cfg
}

type output struct {
	Report   ingest.Report     `json:"report"`
	Products []catalog.Product `json:"products,omitempty"`
}

func run(ctx context.Context, opts options, stdout io.Writer, logger *slog.Logger) error {
	pl := ingest.NewPipeline(ingest.Options{
		Mappings:      ingest.DefaultMappings(),
		ListSeparator: opts.separator,
		MaxWarnings:   opts.maxWarnings,
		Logger:        logger,
	})

	src, closeSource, err := source.Open(ctx, sourceConfig(opts), pl)
	if err != nil {
		return err
	}
	defer closeSource()

	res, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", src.Name(), err)
	}
	if !res.Report.HasColumn(ingest.ColProductID) {
		return fmt.Errorf("load %s: no header row with a product_id column", src.Name())
	}

	if opts.out != "" {
		if err := source.WriteSnapshot(ctx, opts.out, res.Products); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		logger.Info("snapshot written", "path", opts.out, "products", len(res.Products))
	}

	out := output{Report: res.Report}
	if opts.products {
		out.Products = res.Products
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
