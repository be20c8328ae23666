package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/providers/sources"
	"github.com/venuelens/social-indexer/internal/ratelimit"
)

const SOURCE_NAME = domain.SourceInstagram

// maxPages bounds pagination so a runaway account cannot pin a worker
const maxPages = 20

var ErrNoAccessToken = errors.New("no access token provided")

// mediaFields is the field set requested from the Graph API
const mediaFields = "id,caption,permalink,media_type,like_count,comments_count,timestamp"

// media represents one media object from the Instagram Graph API
type media struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	Permalink     string `json:"permalink"`
	MediaType     string `json:"media_type"`
	LikeCount     int64  `json:"like_count"`
	CommentsCount int64  `json:"comments_count"`
	Timestamp     string `json:"timestamp"`
}

// mediaListResponse represents one page of the media edge. Elements are kept
// as raw JSON so the archive stores exactly what the platform sent.
type mediaListResponse struct {
	Data   []json.RawMessage `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// InstagramClient fetches account media via the Instagram Graph API
type InstagramClient struct {
	httpClient     adapter.HTTPClient
	rateLimitProxy ratelimit.Proxy
	apiURL         string
	accessToken    string
	json           adapter.JSON
}

// NewClient creates a new Instagram client
func NewClient(httpClient adapter.HTTPClient, rateLimitProxy ratelimit.Proxy, apiURL string, accessToken string, jsonAdapter adapter.JSON) sources.Client {
	return &InstagramClient{
		httpClient:     httpClient,
		rateLimitProxy: rateLimitProxy,
		apiURL:         apiURL,
		accessToken:    accessToken,
		json:           jsonAdapter,
	}
}

// Name returns the platform this client talks to
func (c *InstagramClient) Name() domain.SourceName {
	return SOURCE_NAME
}

// FetchPosts returns the account's media newer than since, newest first.
// The Graph API returns media in reverse chronological order, so pagination
// stops as soon as a page crosses the since watermark.
func (c *InstagramClient) FetchPosts(ctx context.Context, handle string, since *time.Time) ([]domain.RawItem, error) {
	if c.accessToken == "" {
		return nil, domain.NewFetchError(domain.ErrorKindAuth, ErrNoAccessToken)
	}

	pageURL := c.firstPageURL(handle, since)

	var items []domain.RawItem
	for page := 0; pageURL != "" && page < maxPages; page++ {
		resp, err := c.getPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		pageItems, crossed, err := c.decodePage(resp)
		if err != nil {
			return nil, err
		}
		items = append(items, filterSince(pageItems, since)...)

		if crossed(since) {
			break
		}
		pageURL = resp.Paging.Next
	}

	return items, nil
}

// firstPageURL builds the initial media edge URL for the account
func (c *InstagramClient) firstPageURL(handle string, since *time.Time) string {
	params := url.Values{}
	params.Set("fields", mediaFields)
	params.Set("access_token", c.accessToken)
	if since != nil {
		params.Set("since", fmt.Sprintf("%d", since.Unix()))
	}
	return fmt.Sprintf("%s/%s/media?%s", c.apiURL, url.PathEscape(handle), params.Encode())
}

// getPage fetches and decodes one page of the media edge
func (c *InstagramClient) getPage(ctx context.Context, pageURL string) (*mediaListResponse, error) {
	resp, err := ratelimit.Request(ctx, c.rateLimitProxy, string(SOURCE_NAME), func(ctx context.Context) (*adapter.Response, error) {
		return c.httpClient.Get(ctx, pageURL, nil)
	})
	if err != nil {
		return nil, domain.NewFetchError(domain.ErrorKindTransient,
			fmt.Errorf("instagram request failed: %w", err))
	}

	if err := sources.ClassifyStatus(SOURCE_NAME, resp); err != nil {
		return nil, err
	}

	var decoded mediaListResponse
	if err := c.json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, domain.NewFetchError(domain.ErrorKindMalformed,
			fmt.Errorf("failed to decode instagram response: %w", err))
	}

	return &decoded, nil
}

// decodePage converts raw media elements into items. The returned closure
// reports whether the page crossed the since watermark.
func (c *InstagramClient) decodePage(resp *mediaListResponse) ([]domain.RawItem, func(*time.Time) bool, error) {
	var oldest *time.Time
	items := make([]domain.RawItem, 0, len(resp.Data))

	for _, raw := range resp.Data {
		var m media
		if err := c.json.Unmarshal(raw, &m); err != nil {
			return nil, nil, domain.NewFetchError(domain.ErrorKindMalformed,
				fmt.Errorf("failed to decode instagram media: %w", err))
		}
		if m.ID == "" {
			return nil, nil, domain.NewFetchError(domain.ErrorKindMalformed,
				errors.New("instagram media missing id"))
		}

		created, err := parseTimestamp(m.Timestamp)
		if err != nil {
			return nil, nil, domain.NewFetchError(domain.ErrorKindMalformed,
				fmt.Errorf("failed to parse instagram timestamp %q: %w", m.Timestamp, err))
		}

		items = append(items, domain.RawItem{
			PostID:       m.ID,
			URL:          m.Permalink,
			Caption:      m.Caption,
			LikeCount:    m.LikeCount,
			CommentCount: m.CommentsCount,
			CreatedTime:  created,
			RawJSON:      []byte(raw),
		})
		if oldest == nil || created.Before(*oldest) {
			t := created
			oldest = &t
		}
	}

	crossed := func(since *time.Time) bool {
		return since != nil && oldest != nil && oldest.Before(*since)
	}
	return items, crossed, nil
}

// parseTimestamp handles the Graph API's ISO-8601 variant with and without
// a colon in the zone offset
func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

// filterSince drops items at or before the watermark
func filterSince(items []domain.RawItem, since *time.Time) []domain.RawItem {
	if since == nil {
		return items
	}
	kept := items[:0]
	for _, item := range items {
		if item.CreatedTime.After(*since) {
			kept = append(kept, item)
		}
	}
	return kept
}
