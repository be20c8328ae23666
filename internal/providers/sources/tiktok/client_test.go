package tiktok

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/mocks"
)

func setupTestClient(t *testing.T) (*gomock.Controller, *mocks.MockHTTPClient, *TikTokClient) {
	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)
	client := &TikTokClient{
		httpClient:  httpClient,
		apiURL:      "https://open.tiktokapis.test/v2",
		accessToken: "test-token",
		json:        adapter.NewJSON(),
	}
	return ctrl, httpClient, client
}

func TestFetchPostsDecodesVideos(t *testing.T) {
	ctrl, httpClient, client := setupTestClient(t)
	defer ctrl.Finish()

	body := `{
		"data": {
			"videos": [
				{"id": "v-2", "title": "behind the bar", "share_url": "https://tt/v/2", "like_count": 100, "comment_count": 8, "create_time": 1787200000}
			],
			"cursor": 0,
			"has_more": false
		},
		"error": {"code": "ok", "message": ""}
	}`
	httpClient.EXPECT().
		Post(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, headers map[string]string, _ interface{}) (*adapter.Response, error) {
			assert.Equal(t, "Bearer test-token", headers["Authorization"])
			return &adapter.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(body)}, nil
		})

	items, err := client.FetchPosts(context.Background(), "cafe.azul", nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "v-2", items[0].PostID)
	assert.Equal(t, int64(100), items[0].LikeCount)
	assert.Equal(t, time.Unix(1787200000, 0).UTC(), items[0].CreatedTime)
}

func TestFetchPostsPagesByCursor(t *testing.T) {
	ctrl, httpClient, client := setupTestClient(t)
	defer ctrl.Finish()

	page1 := `{
		"data": {"videos": [{"id": "v-3", "create_time": 1787200000}], "cursor": 1787100000, "has_more": true},
		"error": {"code": "ok"}
	}`
	page2 := `{
		"data": {"videos": [{"id": "v-2", "create_time": 1787100000}], "cursor": 0, "has_more": false},
		"error": {"code": "ok"}
	}`
	gomock.InOrder(
		httpClient.EXPECT().
			Post(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&adapter.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(page1)}, nil),
		httpClient.EXPECT().
			Post(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&adapter.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(page2)}, nil),
	)

	items, err := client.FetchPosts(context.Background(), "cafe.azul", nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestFetchPostsInBodyErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		wantKind domain.ErrorKind
	}{
		{name: "revoked token", code: "access_token_invalid", wantKind: domain.ErrorKindAuth},
		{name: "quota exhausted", code: "rate_limit_exceeded", wantKind: domain.ErrorKindRateLimited},
		{name: "internal error", code: "internal_error", wantKind: domain.ErrorKindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, httpClient, client := setupTestClient(t)
			defer ctrl.Finish()

			body := `{"data": {}, "error": {"code": "` + tt.code + `", "message": "nope"}}`
			httpClient.EXPECT().
				Post(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(&adapter.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(body)}, nil)

			_, err := client.FetchPosts(context.Background(), "cafe.azul", nil)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, domain.ClassifyError(err))
		})
	}
}

func TestFetchPostsStopsAtSince(t *testing.T) {
	ctrl, httpClient, client := setupTestClient(t)
	defer ctrl.Finish()

	body := `{
		"data": {
			"videos": [
				{"id": "v-3", "create_time": 1787200000},
				{"id": "v-1", "create_time": 1687200000}
			],
			"cursor": 1687200000,
			"has_more": true
		},
		"error": {"code": "ok"}
	}`
	httpClient.EXPECT().
		Post(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&adapter.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(body)}, nil).
		Times(1)

	since := time.Unix(1687200001, 0)
	items, err := client.FetchPosts(context.Background(), "cafe.azul", &since)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "v-3", items[0].PostID)
}
