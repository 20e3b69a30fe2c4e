package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func noLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

func TestCollectPagesStopsOnShortPage(t *testing.T) {
	pages := [][]int{
		make([]int, PageSize),
		make([]int, PageSize),
		make([]int, 30),
	}

	var fetched []int
	all, err := CollectPages(context.Background(), noLimiter(), func(ctx context.Context, page, limit int) ([]int, error) {
		fetched = append(fetched, page)
		require.Equal(t, PageSize, limit)
		return pages[page-1], nil
	})

	require.NoError(t, err)
	assert.Len(t, all, 2*PageSize+30)
	assert.Equal(t, []int{1, 2, 3}, fetched)
}

func TestCollectPagesStopsOnEmptyPage(t *testing.T) {
	calls := 0
	all, err := CollectPages(context.Background(), noLimiter(), func(ctx context.Context, page, limit int) ([]string, error) {
		calls++
		if page == 1 {
			return make([]string, PageSize), nil
		}
		return nil, nil
	})

	require.NoError(t, err)
	assert.Len(t, all, PageSize)
	assert.Equal(t, 2, calls)
}

func TestCollectPagesSinglePartialPage(t *testing.T) {
	all, err := CollectPages(context.Background(), noLimiter(), func(ctx context.Context, page, limit int) ([]int, error) {
		return []int{1, 2, 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, all)
}

// A failure on any page discards everything fetched so far: no partial
// accumulation reaches the caller.
func TestCollectPagesDiscardsAllOnPageFailure(t *testing.T) {
	boom := errors.New("page exploded")
	all, err := CollectPages(context.Background(), noLimiter(), func(ctx context.Context, page, limit int) ([]int, error) {
		if page == 3 {
			return nil, boom
		}
		return make([]int, PageSize), nil
	})

	assert.Nil(t, all)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "page 3")
}

func TestCollectPagesHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CollectPages(ctx, rate.NewLimiter(rate.Every(time.Hour), 1), func(ctx context.Context, page, limit int) ([]int, error) {
		return make([]int, PageSize), nil
	})
	assert.Error(t, err)
}
