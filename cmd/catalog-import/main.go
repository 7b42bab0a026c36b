package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/boutiq/internal/domain/product"
	"github.com/xenking/boutiq/internal/repository"
	"github.com/xenking/boutiq/internal/store/pgstore"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	maxWorkers    = 4
	progressEvery = 100_000
)

// feedProduct is one line of a supplier NDJSON feed.
type feedProduct struct {
	SKU      string
	Name     string
	Price    decimal.Decimal
	Quantity int
	Category string
}

// skuFilter deduplicates supplier SKUs across feed files. Bloom false
// positives drop a product at the configured rate, which is acceptable
// for bulk imports; re-running the import picks up misses.
type skuFilter struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

func newSKUFilter() *skuFilter {
	return &skuFilter{filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR)}
}

// seen records sku and reports whether it was already present.
func (f *skuFilter) seen(sku string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter.TestAndAddString(sku)
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.ndjson.gz supplier feeds")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.ndjson.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.ndjson.gz feeds found in %s", dataDir)
	}

	pool, err := pgstore.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := pgstore.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := repository.NewProductRepository(pgstore.New(pool))
	filter := newSKUFilter()

	slog.Info("importing supplier feeds", slog.Int("files", len(files)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for _, f := range files {
		g.Go(importFeed(ctx, f, filter, products))
	}

	return g.Wait()
}

// importFeed streams one gzipped NDJSON feed and creates a product per
// unseen SKU.
func importFeed(ctx context.Context, path string, filter *skuFilter, products *repository.ProductRepository) func() error {
	return func() error {
		var imported, skipped, malformed uint64

		if err := streamGzFile(ctx, path, func(line []byte) {
			fp, err := parseFeedLine(line)
			if err != nil {
				malformed++
				return
			}
			if filter.seen(fp.SKU) {
				skipped++
				return
			}

			if _, err := products.Create(ctx, &product.Product{
				ID:       fp.SKU,
				Name:     fp.Name,
				Price:    fp.Price,
				Quantity: fp.Quantity,
				Category: fp.Category,
			}); err != nil {
				slog.Warn("create product failed",
					slog.String("sku", fp.SKU),
					slog.String("error", err.Error()),
				)
				return
			}

			imported++
			if imported%progressEvery == 0 {
				slog.Info("import progress",
					slog.String("file", filepath.Base(path)),
					slog.Uint64("imported", imported),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "import feed %s", path)
		}

		slog.Info("feed complete",
			slog.String("file", filepath.Base(path)),
			slog.Uint64("imported", imported),
			slog.Uint64("duplicates", skipped),
			slog.Uint64("malformed", malformed),
		)

		return nil
	}
}

// parseFeedLine decodes a single NDJSON product line. Lines missing a SKU
// or name, or carrying a non-positive price, are rejected.
func parseFeedLine(line []byte) (feedProduct, error) {
	var fp feedProduct

	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "sku":
			v, err := d.Str()
			if err != nil {
				return err
			}
			fp.SKU = v
		case "name":
			v, err := d.Str()
			if err != nil {
				return err
			}
			fp.Name = v
		case "price":
			v, err := d.Float64()
			if err != nil {
				return err
			}
			fp.Price = decimal.NewFromFloat(v).Round(2)
		case "quantity":
			v, err := d.Int()
			if err != nil {
				return err
			}
			fp.Quantity = v
		case "category":
			v, err := d.Str()
			if err != nil {
				return err
			}
			fp.Category = v
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return feedProduct{}, err
	}

	if fp.SKU == "" || fp.Name == "" {
		return feedProduct{}, errors.New("missing sku or name")
	}
	if !fp.Price.IsPositive() {
		return feedProduct{}, errors.New("non-positive price")
	}
	if fp.Quantity < 0 {
		return feedProduct{}, errors.New("negative quantity")
	}

	return fp, nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Bytes())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
