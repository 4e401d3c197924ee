package objectstore

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

type limited struct {
	next    Store
	limiter *rate.Limiter
}

// WithRateLimit throttles Open and Exists calls to rps requests per second.
func WithRateLimit(next Store, rps float64) Store {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &limited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *limited) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.Open(ctx, key)
}

func (l *limited) Exists(ctx context.Context, key string) (bool, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return false, err
	}
	return l.next.Exists(ctx, key)
}

func (l *limited) Location() string {
	return l.next.Location()
}
