package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/boutiq/internal/domain/campaign"
	"github.com/xenking/boutiq/internal/domain/product"
	"github.com/xenking/boutiq/internal/repair"
	"github.com/xenking/boutiq/internal/repository"
	"github.com/xenking/boutiq/internal/store/pgstore"
)

type seedProduct struct {
	id       string
	name     string
	price    string
	quantity int
	category string
}

var demoProducts = []seedProduct{
	{id: "BQ-TEE-001", name: "Linen Crew Tee", price: "29.90", quantity: 40, category: "shirts"},
	{id: "BQ-TEE-002", name: "Heavyweight Pocket Tee", price: "34.50", quantity: 25, category: "shirts"},
	{id: "BQ-DNM-001", name: "Selvedge Denim Jacket", price: "189.00", quantity: 12, category: "outerwear"},
	{id: "BQ-DNM-002", name: "Straight-Cut Jeans", price: "119.00", quantity: 30, category: "trousers"},
	{id: "BQ-KNT-001", name: "Merino Roll-Neck Sweater", price: "149.00", quantity: 18, category: "knitwear"},
	{id: "BQ-ACC-001", name: "Leather Belt", price: "59.00", quantity: 50, category: "accessories"},
	{id: "BQ-ACC-002", name: "Wool Beanie", price: "24.00", quantity: 60, category: "accessories"},
}

func main() {
	var databaseURL string

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

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := pgstore.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := pgstore.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	st := pgstore.New(pool)
	products := repository.NewProductRepository(st)
	campaigns := repository.NewCampaignRepository(st)
	settings := repository.NewSettingsRepository(st)

	lg := zap.Must(zap.NewProduction())
	defer func() { _ = lg.Sync() }()

	coordinator := campaign.NewCoordinator(
		campaigns,
		products,
		settings,
		campaign.UnmanagedPhotos{},
		repair.NewStoreReporter(st, lg.Named("repair")),
		lg.Named("campaign"),
	)

	seeded, err := seedProducts(ctx, products)
	if err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCampaigns(ctx, coordinator, seeded); err != nil {
		return errors.Wrap(err, "seed campaigns")
	}

	if err := settings.UpdateProfile(ctx, repository.Profile{
		StoreName: "Boutiq",
		Banner:    "Welcome to the demo store",
	}); err != nil {
		return errors.Wrap(err, "seed store profile")
	}

	return nil
}

func seedProducts(ctx context.Context, products *repository.ProductRepository) ([]string, error) {
	slog.Info("seeding products", slog.Int("count", len(demoProducts)))

	ids := make([]string, 0, len(demoProducts))
	for _, sp := range demoProducts {
		price, err := decimal.NewFromString(sp.price)
		if err != nil {
			return nil, errors.Wrapf(err, "parse price for %s", sp.id)
		}

		created, err := products.Create(ctx, &product.Product{
			ID:       sp.id,
			Name:     sp.name,
			Price:    price,
			Quantity: sp.quantity,
			Category: sp.category,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "create product %s", sp.id)
		}

		ids = append(ids, created.ID)
		slog.Info("seeded product", slog.String("id", created.ID), slog.String("name", created.Name))
	}

	return ids, nil
}

// seedCampaigns creates demo campaigns through the coordinator so the
// product backlinks and singleton flags land exactly as production writes
// would leave them.
func seedCampaigns(ctx context.Context, coordinator *campaign.Coordinator, productIDs []string) error {
	slog.Info("seeding campaigns")

	now := time.Now().UTC()
	weekAgo := now.AddDate(0, 0, -7)
	weekAhead := now.AddDate(0, 0, 7)

	sale, err := coordinator.Create(ctx, campaign.Input{
		Title:       "Mid-Season Sale",
		Description: "Selected knits and denim, one week only",
		Reduction:   decimal.NewFromInt(20),
		StartDate:   &weekAgo,
		EndDate:     &weekAhead,
		Fixed:       true,
	}, productIDs[:3])
	if err != nil {
		return errors.Wrap(err, "create sale campaign")
	}
	slog.Info("seeded campaign", slog.String("id", sale.ID), slog.String("title", sale.Title))

	fallback, err := coordinator.Create(ctx, campaign.Input{
		Title:       "Storewide Standard",
		Description: "Store-wide default pricing campaign",
		Default:     true,
	}, nil)
	if err != nil {
		return errors.Wrap(err, "create default campaign")
	}
	slog.Info("seeded campaign", slog.String("id", fallback.ID), slog.String("title", fallback.Title))

	return nil
}
