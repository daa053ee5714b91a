package fetcher_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymiyake/reviewharvest/internal/fetcher"
)

type countingFetcher struct {
	calls int
	body  string
}

func (c *countingFetcher) Fetch(_ context.Context, _ string) (string, error) {
	c.calls++
	return c.body, nil
}

func TestThrottledDelegates(t *testing.T) {
	t.Parallel()

	next := &countingFetcher{body: "<html></html>"}
	throttled := fetcher.NewThrottled(next, 0)

	body, err := throttled.Fetch(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", body)
	assert.Equal(t, 1, next.calls)
}

func TestThrottledPacesRequests(t *testing.T) {
	t.Parallel()

	next := &countingFetcher{body: "ok"}
	throttled := fetcher.NewThrottled(next, 50)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := throttled.Fetch(context.Background(), "https://example.com/")
		require.NoError(t, err)
	}

	// Burst of one, 50 rps: the second and third fetch each wait ~20ms.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, 3, next.calls)
}

func TestThrottledStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	next := &countingFetcher{body: "ok"}
	throttled := fetcher.NewThrottled(next, 0.001)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := throttled.Fetch(ctx, "https://example.com/")
	require.NoError(t, err)

	cancel()
	_, err = throttled.Fetch(ctx, "https://example.com/")
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
}
