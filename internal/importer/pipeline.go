// Package importer drives one pass over a product feed: products are upserted
// by GTIN and their images stored once per distinct content.
//
// Failures fall in two classes. Fatal ones (unreachable or malformed feed,
// entry without GTIN, unparsable date, store errors while looking things up)
// abort the run; entries saved before stay committed. Contained ones (broken
// image URL, asset path collision, failed product save) are reported through
// the Reporter and the run continues.
package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/feed-import/internal/checksum"
	"github.com/xenking/feed-import/internal/domain/asset"
	"github.com/xenking/feed-import/internal/domain/product"
)

const instrumentationName = "github.com/xenking/feed-import/internal/importer"

// ProductStore finds-or-creates and persists products.
type ProductStore interface {
	FindOrCreate(ctx context.Context, gtin string) (*product.Product, error)
	Save(ctx context.Context, p *product.Product) error
}

// AssetStore looks assets up by content and stores new ones.
type AssetStore interface {
	FindByChecksum(ctx context.Context, sum string) (*asset.Asset, error)
	Store(ctx context.Context, data []byte) (*asset.Asset, error)
}

// Notifier is told about every asset the pipeline creates.
type Notifier interface {
	NotifyUploaded(ctx context.Context, a *asset.Asset)
}

// Summary counts what a run did.
type Summary struct {
	Entries       int
	Created       int
	Updated       int
	Failed        int
	AssetsCreated int
	AssetsReused  int
	Warnings      int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLocation sets the zone dates without an explicit offset are read in.
// The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) { p.loc = loc }
}

// WithTracerProvider sets the tracer provider used for run and entry spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) { p.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets the meter provider used for import counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(p *Pipeline) { p.meter = mp.Meter(instrumentationName) }
}

// Pipeline imports a feed. It processes entries one at a time in feed order
// and is not safe for concurrent use.
type Pipeline struct {
	fetcher  Fetcher
	products ProductStore
	assets   AssetStore
	notifier Notifier
	report   *Reporter
	lg       *zap.Logger

	loc     *time.Location
	tracer  trace.Tracer
	meter   metric.Meter
	metrics *metrics
}

// NewPipeline wires a Pipeline from its collaborators.
func NewPipeline(
	fetcher Fetcher,
	products ProductStore,
	assets AssetStore,
	notifier Notifier,
	report *Reporter,
	lg *zap.Logger,
	opts ...Option,
) (*Pipeline, error) {
	p := &Pipeline{
		fetcher:  fetcher,
		products: products,
		assets:   assets,
		notifier: notifier,
		report:   report,
		lg:       lg,
		loc:      time.UTC,
		tracer:   tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:    noop.NewMeterProvider().Meter(instrumentationName),
	}
	for _, o := range opts {
		o(p)
	}

	m, err := newMetrics(p.meter)
	if err != nil {
		return nil, errors.Wrap(err, "create metrics")
	}
	p.metrics = m
	return p, nil
}

// Run imports the feed at feedURL. A nil error means the run completed, even
// when some entries produced warnings.
func (p *Pipeline) Run(ctx context.Context, feedURL string) (_ *Summary, rerr error) {
	if feedURL == "" {
		return nil, ErrURLRequired
	}

	ctx, span := p.tracer.Start(ctx, "import.Run",
		trace.WithAttributes(attribute.String("feed.url", feedURL)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	body, err := p.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch feed %s", feedURL)
	}

	feed, err := DecodeFeed(body)
	if err != nil {
		return nil, errors.Wrapf(err, "decode feed %s", feedURL)
	}
	p.lg.Info("Feed loaded", zap.String("url", feedURL), zap.Int("entries", len(feed.Products)))

	// The reporter may outlive a run; count only this run's warnings.
	before := p.report.Count()
	s := &Summary{}
	for i, e := range feed.Products {
		if err := p.importEntry(ctx, i, e, s); err != nil {
			s.Warnings = p.report.Count() - before
			return s, err
		}
	}
	s.Warnings = p.report.Count() - before
	return s, nil
}

func (p *Pipeline) importEntry(ctx context.Context, idx int, e Entry, s *Summary) error {
	if e.GTIN == "" {
		return &InvalidEntryError{Index: idx, GTIN: e.GTIN, Reason: "GTIN is not a valid string"}
	}

	ctx, span := p.tracer.Start(ctx, "import.Entry",
		trace.WithAttributes(attribute.String("product.gtin", e.GTIN)),
	)
	defer span.End()
	s.Entries++

	prod, err := p.products.FindOrCreate(ctx, e.GTIN)
	if err != nil {
		return errors.Wrapf(err, "entry %d", idx)
	}

	prod.Name = e.Name
	date, err := p.parseDate(e.Date)
	if err != nil {
		return &InvalidDateError{GTIN: e.GTIN, Value: e.Date, Err: err}
	}
	prod.Date = date

	if err := p.attachImage(ctx, prod, e, s); err != nil {
		return errors.Wrapf(err, "entry %d", idx)
	}

	isNew := prod.IsNew()
	if err := p.products.Save(ctx, prod); err != nil {
		p.warn(ctx, e.GTIN, fmt.Sprintf("Product was not saved: %s", err))
		p.metrics.product(ctx, "failed")
		s.Failed++
		return nil
	}

	outcome := "updated"
	if isNew {
		outcome = "created"
		s.Created++
	} else {
		s.Updated++
	}
	p.metrics.product(ctx, outcome)
	p.lg.Debug("Product saved",
		zap.String("gtin", prod.GTIN),
		zap.Int64("id", prod.ID),
		zap.String("outcome", outcome),
	)
	return nil
}

// attachImage fetches the entry's image and points prod at the matching
// asset. Only errors that must abort the run are returned.
func (p *Pipeline) attachImage(ctx context.Context, prod *product.Product, e Entry, s *Summary) error {
	data, err := p.fetcher.Fetch(ctx, e.Image)
	if err != nil {
		p.lg.Debug("Image fetch failed", zap.String("url", e.Image), zap.Error(err))
		p.warn(ctx, e.GTIN, fmt.Sprintf("Broken image URL: %s, skipping asset", e.Image))
		return nil
	}

	a, created, err := p.uploadImage(ctx, data)
	if err != nil {
		var dup *asset.DuplicatePathError
		if errors.As(err, &dup) {
			p.warn(ctx, e.GTIN, fmt.Sprintf("Error during asset save: %s", err))
			return nil
		}
		return errors.Wrap(err, "upload image")
	}

	if created {
		s.AssetsCreated++
		p.metrics.asset(ctx, "created")
	} else {
		s.AssetsReused++
		p.metrics.asset(ctx, "reused")
	}
	prod.SetImage(a)
	return nil
}

// uploadImage returns the asset holding data, creating it when no current
// asset version has the same checksum. Only creations are announced.
func (p *Pipeline) uploadImage(ctx context.Context, data []byte) (*asset.Asset, bool, error) {
	sum := checksum.Sum(data)

	existing, err := p.assets.FindByChecksum(ctx, sum)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, asset.ErrNotFound):
		return nil, false, err
	}

	a, err := p.assets.Store(ctx, data)
	if err != nil {
		return nil, false, err
	}
	p.notifier.NotifyUploaded(ctx, a)
	return a, true, nil
}

func (p *Pipeline) parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	t, err := dateparse.ParseIn(value, p.loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (p *Pipeline) warn(ctx context.Context, gtin, msg string) {
	p.report.Warn(gtin, msg)
	p.metrics.warning(ctx)
}
