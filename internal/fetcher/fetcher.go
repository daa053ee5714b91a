// Package fetcher retrieves listing and review pages over HTTP.
//
// Fetch failures here are transient by definition (network errors, 5xx);
// site-side termination markers travel inside the returned markup and are
// the extractor's business. The fetcher performs no retries: callers that
// want a retry policy bring their own.
package fetcher

import (
	"context"
)

// Fetcher fetches a URL and returns the page body as text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
