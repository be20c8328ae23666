package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/providers/sources"
	"github.com/venuelens/social-indexer/internal/ratelimit"
)

const SOURCE_NAME = domain.SourceTikTok

const maxPages = 10

var ErrNoAccessToken = errors.New("no access token provided")

// videoFields is the field set requested from the video list endpoint
const videoFields = "id,title,share_url,like_count,comment_count,view_count,create_time"

// video represents one video from the TikTok open API
type video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ShareURL     string `json:"share_url"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	CreateTime   int64  `json:"create_time"` // unix seconds
}

// videoListRequest is the request body for the video list endpoint
type videoListRequest struct {
	MaxCount int   `json:"max_count"`
	Cursor   int64 `json:"cursor,omitempty"`
}

// videoListResponse represents one page of the video list
type videoListResponse struct {
	Data struct {
		Videos  []json.RawMessage `json:"videos"`
		Cursor  int64             `json:"cursor"`
		HasMore bool              `json:"has_more"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// TikTokClient fetches account videos via the TikTok open API
type TikTokClient struct {
	httpClient     adapter.HTTPClient
	rateLimitProxy ratelimit.Proxy
	apiURL         string
	accessToken    string
	json           adapter.JSON
}

// NewClient creates a new TikTok client
func NewClient(httpClient adapter.HTTPClient, rateLimitProxy ratelimit.Proxy, apiURL string, accessToken string, jsonAdapter adapter.JSON) sources.Client {
	return &TikTokClient{
		httpClient:     httpClient,
		rateLimitProxy: rateLimitProxy,
		apiURL:         apiURL,
		accessToken:    accessToken,
		json:           jsonAdapter,
	}
}

// Name returns the platform this client talks to
func (c *TikTokClient) Name() domain.SourceName {
	return SOURCE_NAME
}

// FetchPosts returns the account's videos newer than since, newest first.
// The list endpoint pages by cursor in reverse chronological order.
func (c *TikTokClient) FetchPosts(ctx context.Context, handle string, since *time.Time) ([]domain.RawItem, error) {
	if c.accessToken == "" {
		return nil, domain.NewFetchError(domain.ErrorKindAuth, ErrNoAccessToken)
	}

	endpoint := fmt.Sprintf("%s/video/list/?fields=%s", c.apiURL, videoFields)

	var items []domain.RawItem
	var cursor int64
	for page := 0; page < maxPages; page++ {
		body, err := c.json.Marshal(videoListRequest{MaxCount: 20, Cursor: cursor})
		if err != nil {
			return nil, domain.NewFetchError(domain.ErrorKindTransient,
				fmt.Errorf("failed to marshal tiktok request: %w", err))
		}

		headers := map[string]string{
			"Authorization": "Bearer " + c.accessToken,
			"Content-Type":  "application/json",
		}
		resp, err := ratelimit.Request(ctx, c.rateLimitProxy, string(SOURCE_NAME), func(ctx context.Context) (*adapter.Response, error) {
			return c.httpClient.Post(ctx, endpoint, headers, bytes.NewReader(body))
		})
		if err != nil {
			return nil, domain.NewFetchError(domain.ErrorKindTransient,
				fmt.Errorf("tiktok request failed: %w", err))
		}

		if err := sources.ClassifyStatus(SOURCE_NAME, resp); err != nil {
			return nil, err
		}

		var decoded videoListResponse
		if err := c.json.Unmarshal(resp.Body, &decoded); err != nil {
			return nil, domain.NewFetchError(domain.ErrorKindMalformed,
				fmt.Errorf("failed to decode tiktok response: %w", err))
		}
		if decoded.Error.Code != "" && decoded.Error.Code != "ok" {
			return nil, c.classifyAPIError(decoded.Error.Code, decoded.Error.Message)
		}

		crossed := false
		for _, raw := range decoded.Data.Videos {
			item, err := c.decodeVideo(raw)
			if err != nil {
				return nil, err
			}
			if since != nil && !item.CreatedTime.After(*since) {
				crossed = true
				continue
			}
			items = append(items, *item)
		}

		if crossed || !decoded.Data.HasMore {
			break
		}
		cursor = decoded.Data.Cursor
	}

	return items, nil
}

// classifyAPIError maps TikTok's in-body error codes, which arrive with a
// 200 status, to fetch errors
func (c *TikTokClient) classifyAPIError(code, message string) error {
	err := fmt.Errorf("tiktok API error %s: %s", code, message)
	switch code {
	case "access_token_invalid", "scope_not_authorized":
		return domain.NewFetchError(domain.ErrorKindAuth, err)
	case "rate_limit_exceeded":
		return domain.NewRateLimitedError(err, 0)
	default:
		return domain.NewFetchError(domain.ErrorKindTransient, err)
	}
}

// decodeVideo converts one raw video element into an item
func (c *TikTokClient) decodeVideo(raw json.RawMessage) (*domain.RawItem, error) {
	var v video
	if err := c.json.Unmarshal(raw, &v); err != nil {
		return nil, domain.NewFetchError(domain.ErrorKindMalformed,
			fmt.Errorf("failed to decode tiktok video: %w", err))
	}
	if v.ID == "" {
		return nil, domain.NewFetchError(domain.ErrorKindMalformed,
			errors.New("tiktok video missing id"))
	}

	return &domain.RawItem{
		PostID:       v.ID,
		URL:          v.ShareURL,
		Caption:      v.Title,
		LikeCount:    v.LikeCount,
		CommentCount: v.CommentCount,
		CreatedTime:  time.Unix(v.CreateTime, 0).UTC(),
		RawJSON:      []byte(raw),
	}, nil
}
