// Package httpclient provides composable http.RoundTripper middleware for
// outbound requests.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Middleware decorates a RoundTripper.
type Middleware func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Wrap applies middlewares to rt. The first middleware is the outermost and
// sees the request first.
func Wrap(rt http.RoundTripper, middlewares ...Middleware) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	for i := len(middlewares) - 1; i >= 0; i-- {
		rt = middlewares[i](rt)
	}
	return rt
}

// Instrument returns a middleware that traces requests and records client
// metrics with the given providers.
func Instrument(tp trace.TracerProvider, mp metric.MeterProvider) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return otelhttp.NewTransport(next,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithMeterProvider(mp),
		)
	}
}

// Config controls the client built by New.
type Config struct {
	RateLimit float64       `default:"0" usage:"Max outbound requests per second, 0 disables the limit" flag:"fetch-rate-limit"`
	Burst     int           `default:"1" usage:"Outbound request burst" flag:"fetch-burst"`
	UserAgent string        `default:"feed-import/1.0" usage:"User-Agent of outbound requests" flag:"fetch-user-agent"`
	Timeout   time.Duration `default:"0" usage:"Overall timeout per outbound request, 0 disables it" flag:"fetch-timeout"`
}

// New returns an http.Client whose transport applies middlewares in order on
// top of http.DefaultTransport.
func New(cfg Config, middlewares ...Middleware) *http.Client {
	return &http.Client{
		Transport: Wrap(http.DefaultTransport, middlewares...),
		Timeout:   cfg.Timeout,
	}
}
