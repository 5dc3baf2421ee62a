package stations

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/sharksmhi/ctdstations/internal/httpclient"
)

// Fetcher downloads the raw bytes of a remote reference table.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches over HTTP. Concurrent fetches of the same URL share one request.
type HTTPFetcher struct {
	client *httpclient.Client
	group  singleflight.Group
}

// NewHTTPFetcher wraps client. A nil client gets the default configuration.
func NewHTTPFetcher(client *httpclient.Client) *HTTPFetcher {
	if client == nil {
		client = httpclient.New(nil)
	}
	return &HTTPFetcher{client: client}
}

// Fetch downloads url. Non-2xx responses are errors; nothing is retried.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	v, err, _ := f.group.Do(url, func() (any, error) {
		return f.client.FetchBytes(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Close releases idle connections held by the underlying client.
func (f *HTTPFetcher) Close() {
	f.client.Close()
}
