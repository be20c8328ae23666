package sources

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/domain"
)

// Client fetches recent content for one account on one platform.
// Implementations funnel all outbound calls through the rate limit proxy
// and classify every failure into a domain.FetchError.
//
//go:generate mockgen -source=sources.go -destination=../../mocks/source_client.go -package=mocks -mock_names=Client=MockSourceClient
type Client interface {
	// Name returns the platform this client talks to
	Name() domain.SourceName

	// FetchPosts returns the account's content newer than since, newest
	// first. A nil since means fetch everything the platform will return.
	FetchPosts(ctx context.Context, handle string, since *time.Time) ([]domain.RawItem, error)
}

// Registry maps source names to their clients
type Registry map[domain.SourceName]Client

// NewRegistry builds a registry from the given clients
func NewRegistry(clients ...Client) Registry {
	r := make(Registry, len(clients))
	for _, c := range clients {
		r[c.Name()] = c
	}
	return r
}

// Get returns the client for a source, or an error for unknown sources
func (r Registry) Get(name domain.SourceName) (Client, error) {
	c, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("no client registered for source %s", name)
	}
	return c, nil
}

// ClassifyStatus maps a platform HTTP status to a fetch error, or nil for
// success. The mapping decides retry behavior downstream, so it errs toward
// transient for anything unrecognized.
func ClassifyStatus(source domain.SourceName, resp *adapter.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.NewFetchError(domain.ErrorKindAuth,
			fmt.Errorf("%s returned status %d", source, resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewFetchError(domain.ErrorKindNotFound,
			fmt.Errorf("%s returned status %d", source, resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewRateLimitedError(
			fmt.Errorf("%s returned status %d", source, resp.StatusCode),
			retryAfterHeader(resp))
	default:
		return domain.NewFetchError(domain.ErrorKindTransient,
			fmt.Errorf("%s returned status %d", source, resp.StatusCode))
	}
}

// retryAfterHeader parses the Retry-After header, accepting both the
// delay-seconds and HTTP-date forms
func retryAfterHeader(resp *adapter.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(raw); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}

	return 0
}
