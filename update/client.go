package update

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const userAgent = "mclauncher/1.0"

// Client fetches manifests and files.  Concurrent fetches of the same
// manifest URL share one request.
type Client struct {
	http  *resty.Client
	group singleflight.Group
	log   *zap.SugaredLogger
}

// NewClient returns a Client whose requests time out after timeout.
func NewClient(timeout time.Duration, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Client{http: c, log: log}
}

// FetchManifest downloads and parses the manifest at url.
func (c *Client) FetchManifest(ctx context.Context, url string) (*Manifest, error) {
	v, err, shared := c.group.Do(url, func() (any, error) {
		resp, err := c.http.R().SetContext(ctx).Get(url)
		if err != nil {
			return nil, fmt.Errorf("manifest request failed: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("manifest %s returned status %d", url, resp.StatusCode())
		}
		return ParseManifest(resp.Body(), url)
	})
	if err != nil {
		return nil, err
	}
	c.log.Debugw("manifest fetched", "url", url, "shared", shared)
	return v.(*Manifest), nil
}
