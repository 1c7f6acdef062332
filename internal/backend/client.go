// Package backend fetches elevation and peak data for tiles over HTTP.
package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/karlseguin/ccache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/peakview/internal/geo"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultCacheTTL = 10 * time.Minute
	cacheMaxSize    = 64
	cachePruneCount = 8
)

// Client talks to the tile backend. Responses are cached per URL so a
// tile leaving and re-entering range does not refetch, and concurrent
// requests for the same URL are collapsed into one.
type Client struct {
	baseURL string
	httpc   *http.Client
	cache   *ccache.Cache[[]byte]
	group   singleflight.Group
}

// New creates a backend client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		cache:   ccache.New(ccache.Configure[[]byte]().MaxSize(cacheMaxSize).ItemsToPrune(cachePruneCount)),
	}
}

// FetchHeightmap returns the elevation raster bytes for a tile. A nil
// slice with nil error means the backend has no data for the tile
// (open ocean); callers build a placeholder mesh instead.
func (c *Client) FetchHeightmap(ctx context.Context, location geo.Location) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("%s/dem?%s", c.baseURL, location.RequestParams()))
}

// FetchPeaks returns the peak CSV bytes for a tile, or nil when the tile
// has no named peaks.
func (c *Client) FetchPeaks(ctx context.Context, location geo.Location) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("%s/peaks?%s", c.baseURL, location.RequestParams()))
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if item := c.cache.Get(url); item != nil && !item.Expired() {
		return item.Value(), nil
	}

	body, err, _ := c.group.Do(url, func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", url, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching %s: status %s", url, resp.Status)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading response from %s: %w", url, err)
		}
		if len(data) == 0 {
			// Empty body is "no data for this tile", a valid outcome.
			data = nil
		}
		c.cache.Set(url, data, defaultCacheTTL)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}
