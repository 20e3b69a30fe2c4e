package client

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// PageSize is the fixed page size requested from the ERP list endpoints.
const PageSize = 100

// NewPageLimiter builds the limiter that paces page fetches so bulk
// collection stays under the remote rate limit.
func NewPageLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// CollectPages accumulates all pages of a listing. It stops on the first
// short or empty page. A failure on any page discards everything fetched
// so far: the caller gets only the error and must treat the collection
// as a whole when retrying.
func CollectPages[T any](ctx context.Context, limiter *rate.Limiter, fetch func(ctx context.Context, page, limit int) ([]T, error)) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		items, err := fetch(ctx, page, PageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		all = append(all, items...)
		if len(items) < PageSize {
			return all, nil
		}
	}
}
