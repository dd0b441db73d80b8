package httpclient

import (
	"net/http"

	"github.com/go-faster/errors"
	"golang.org/x/time/rate"
)

// RateLimit returns a middleware that waits for a token from l before each
// request. Waiting honours the request context. A nil limiter disables the
// limit.
func RateLimit(l *rate.Limiter) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if l == nil {
			return next
		}
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if err := l.Wait(r.Context()); err != nil {
				return nil, errors.Wrap(err, "rate limit")
			}
			return next.RoundTrip(r)
		})
	}
}

// NewLimiter returns a limiter for perSecond requests with the given burst,
// or nil when perSecond is not positive.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
}
