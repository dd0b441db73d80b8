// Package app wires the importer and its storage together.
package app

import (
	"context"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/feed-import/internal/domain/asset"
	"github.com/xenking/feed-import/internal/domain/product"
	"github.com/xenking/feed-import/internal/importer"
	"github.com/xenking/feed-import/internal/storage/postgres"
	"github.com/xenking/feed-import/internal/storage/s3"
	"github.com/xenking/feed-import/internal/thumbnail"
	"github.com/xenking/feed-import/pkg/health"
	"github.com/xenking/feed-import/pkg/httpclient"
)

const preflightTimeout = 5 * time.Second

// Run imports the feed at cfg.URL once. It is the single wiring point for
// the import command.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	if cfg.URL == "" {
		return importer.ErrURLRequired
	}
	if cfg.DatabaseURL == "" {
		return ErrDatabaseURLRequired
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	tp, mp := m.TracerProvider(), m.MeterProvider()

	lg.Info("Initializing", zap.String("url", cfg.URL), zap.String("bucket", cfg.S3.Bucket))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Blob store, traced like every other outbound call.
	s3Client, err := s3.NewClient(ctx, cfg.S3, httpclient.New(httpclient.Config{},
		httpclient.Instrument(tp, mp),
	))
	if err != nil {
		return errors.Wrap(err, "create s3 client")
	}
	blobs := s3.New(s3Client, cfg.S3, lg.Named("s3"))

	if err := health.Verify(ctx,
		health.NewCheck("postgres", preflightTimeout, pool.Ping),
		health.NewCheck("s3", preflightTimeout, blobs.Ping),
	); err != nil {
		return errors.Wrap(err, "preflight")
	}

	// Domain services.
	assets := asset.NewService(postgres.NewAssetRepository(pool), blobs, lg.Named("asset"))
	if cfg.BloomIndex {
		if err := assets.WarmIndex(ctx); err != nil {
			return errors.Wrap(err, "warm checksum index")
		}
	}
	products := product.NewService(postgres.NewProductRepository(pool))

	trigger := thumbnail.NewTrigger(nil)
	generator := thumbnail.NewGenerator(thumbnail.NewRenderer(blobs, nil), lg.Named("thumbnail"))
	if err := trigger.Subscribe(generator.OnAssetUpload); err != nil {
		return errors.Wrap(err, "subscribe thumbnail generator")
	}

	// Feed and image downloads.
	client := httpclient.New(cfg.Fetch,
		httpclient.RequestID(),
		httpclient.UserAgent(cfg.Fetch.UserAgent),
		httpclient.RateLimit(httpclient.NewLimiter(cfg.Fetch.RateLimit, cfg.Fetch.Burst)),
		httpclient.Instrument(tp, mp),
		httpclient.LogRequests(lg.Named("http")),
	)

	pipeline, err := importer.NewPipeline(
		importer.NewURLFetcher(client),
		products,
		assets,
		trigger,
		importer.NewReporter(os.Stdout, lg),
		lg,
		importer.WithLocation(loc),
		importer.WithTracerProvider(tp),
		importer.WithMeterProvider(mp),
	)
	if err != nil {
		return errors.Wrap(err, "create pipeline")
	}

	start := time.Now()
	summary, err := pipeline.Run(ctx, cfg.URL)
	if summary != nil {
		lg.Info("Import finished",
			zap.Int("entries", summary.Entries),
			zap.Int("created", summary.Created),
			zap.Int("updated", summary.Updated),
			zap.Int("failed", summary.Failed),
			zap.Int("assets_created", summary.AssetsCreated),
			zap.Int("assets_reused", summary.AssetsReused),
			zap.Int("warnings", summary.Warnings),
			zap.Duration("duration", time.Since(start)),
		)
	}
	if err != nil {
		return errors.Wrap(err, "import")
	}
	return nil
}

// Migrate applies the schema and makes sure the asset bucket exists.
func Migrate(ctx context.Context, lg *zap.Logger, cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return ErrDatabaseURLRequired
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	lg.Info("Schema applied")

	s3Client, err := s3.NewClient(ctx, cfg.S3, nil)
	if err != nil {
		return errors.Wrap(err, "create s3 client")
	}
	if err := s3.New(s3Client, cfg.S3, lg.Named("s3")).EnsureBucket(ctx); err != nil {
		return errors.Wrap(err, "ensure bucket")
	}
	return nil
}
