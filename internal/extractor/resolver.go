package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	maxRedirects = 10
	userAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// LinkResolver follows redirects of short or share links to the canonical URL.
type LinkResolver struct {
	client *resty.Client
}

func NewLinkResolver(timeout time.Duration, proxy string) *LinkResolver {
	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects)).
		SetHeader("User-Agent", userAgent)
	if proxy != "" {
		client.SetProxy(proxy)
	}
	return &LinkResolver{client: client}
}

func (r *LinkResolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", rawURL, err)
	}
	defer resp.RawBody().Close()

	if resp.IsError() {
		return "", fmt.Errorf("resolve %s: status %d", rawURL, resp.StatusCode())
	}
	return resp.RawResponse.Request.URL.String(), nil
}
