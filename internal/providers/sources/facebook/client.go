package facebook

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

const SOURCE_NAME = domain.SourceFacebook

const maxPages = 20

var ErrNoAccessToken = errors.New("no access token provided")

// postFields is the field set requested from the Graph API
const postFields = "id,message,permalink_url,created_time,likes.summary(true).limit(0),comments.summary(true).limit(0)"

// post represents one page post from the Facebook Graph API
type post struct {
	ID           string `json:"id"`
	Message      string `json:"message"`
	PermalinkURL string `json:"permalink_url"`
	CreatedTime  string `json:"created_time"`
	Likes        *struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"likes"`
	Comments *struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"comments"`
}

// postListResponse represents one page of the posts edge
type postListResponse struct {
	Data   []json.RawMessage `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// FacebookClient fetches page posts via the Facebook Graph API
type FacebookClient struct {
	httpClient     adapter.HTTPClient
	rateLimitProxy ratelimit.Proxy
	apiURL         string
	accessToken    string
	json           adapter.JSON
}

// NewClient creates a new Facebook client
func NewClient(httpClient adapter.HTTPClient, rateLimitProxy ratelimit.Proxy, apiURL string, accessToken string, jsonAdapter adapter.JSON) sources.Client {
	return &FacebookClient{
		httpClient:     httpClient,
		rateLimitProxy: rateLimitProxy,
		apiURL:         apiURL,
		accessToken:    accessToken,
		json:           jsonAdapter,
	}
}

// Name returns the platform this client talks to
func (c *FacebookClient) Name() domain.SourceName {
	return SOURCE_NAME
}

// FetchPosts returns the page's posts newer than since, newest first
func (c *FacebookClient) FetchPosts(ctx context.Context, handle string, since *time.Time) ([]domain.RawItem, error) {
	if c.accessToken == "" {
		return nil, domain.NewFetchError(domain.ErrorKindAuth, ErrNoAccessToken)
	}

	params := url.Values{}
	params.Set("fields", postFields)
	params.Set("access_token", c.accessToken)
	if since != nil {
		// The Graph API filters server-side on unix since; the client-side
		// filter below still applies as a belt for older API versions
		params.Set("since", fmt.Sprintf("%d", since.Unix()))
	}
	pageURL := fmt.Sprintf("%s/%s/posts?%s", c.apiURL, url.PathEscape(handle), params.Encode())

	var items []domain.RawItem
	for page := 0; pageURL != "" && page < maxPages; page++ {
		resp, err := ratelimit.Request(ctx, c.rateLimitProxy, string(SOURCE_NAME), func(ctx context.Context) (*adapter.Response, error) {
			return c.httpClient.Get(ctx, pageURL, nil)
		})
		if err != nil {
			return nil, domain.NewFetchError(domain.ErrorKindTransient,
				fmt.Errorf("facebook request failed: %w", err))
		}

		if err := sources.ClassifyStatus(SOURCE_NAME, resp); err != nil {
			return nil, err
		}

		var decoded postListResponse
		if err := c.json.Unmarshal(resp.Body, &decoded); err != nil {
			return nil, domain.NewFetchError(domain.ErrorKindMalformed,
				fmt.Errorf("failed to decode facebook response: %w", err))
		}

		crossed := false
		for _, raw := range decoded.Data {
			item, err := c.decodePost(raw)
			if err != nil {
				return nil, err
			}
			if since != nil && !item.CreatedTime.After(*since) {
				crossed = true
				continue
			}
			items = append(items, *item)
		}

		if crossed {
			break
		}
		pageURL = decoded.Paging.Next
	}

	return items, nil
}

// decodePost converts one raw post element into an item
func (c *FacebookClient) decodePost(raw json.RawMessage) (*domain.RawItem, error) {
	var p post
	if err := c.json.Unmarshal(raw, &p); err != nil {
		return nil, domain.NewFetchError(domain.ErrorKindMalformed,
			fmt.Errorf("failed to decode facebook post: %w", err))
	}
	if p.ID == "" {
		return nil, domain.NewFetchError(domain.ErrorKindMalformed,
			errors.New("facebook post missing id"))
	}

	created, err := time.Parse("2006-01-02T15:04:05-0700", p.CreatedTime)
	if err != nil {
		if created, err = time.Parse(time.RFC3339, p.CreatedTime); err != nil {
			return nil, domain.NewFetchError(domain.ErrorKindMalformed,
				fmt.Errorf("failed to parse facebook created_time %q: %w", p.CreatedTime, err))
		}
	}

	item := &domain.RawItem{
		PostID:      p.ID,
		URL:         p.PermalinkURL,
		Caption:     p.Message,
		CreatedTime: created,
		RawJSON:     []byte(raw),
	}
	if p.Likes != nil {
		item.LikeCount = p.Likes.Summary.TotalCount
	}
	if p.Comments != nil {
		item.CommentCount = p.Comments.Summary.TotalCount
	}
	return item, nil
}
