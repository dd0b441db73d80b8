package importer

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	products metric.Int64Counter
	assets   metric.Int64Counter
	warnings metric.Int64Counter
}

func newMetrics(m metric.Meter) (*metrics, error) {
	products, err := m.Int64Counter("import.products",
		metric.WithDescription("Products processed, by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "products counter")
	}
	assets, err := m.Int64Counter("import.assets",
		metric.WithDescription("Image assets attached, by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "assets counter")
	}
	warnings, err := m.Int64Counter("import.warnings",
		metric.WithDescription("Contained per-entry failures"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "warnings counter")
	}
	return &metrics{products: products, assets: assets, warnings: warnings}, nil
}

func (m *metrics) product(ctx context.Context, outcome string) {
	m.products.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *metrics) asset(ctx context.Context, outcome string) {
	m.assets.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *metrics) warning(ctx context.Context) {
	m.warnings.Add(ctx, 1)
}
