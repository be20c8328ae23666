package instagram

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

func setupTestClient(t *testing.T) (*gomock.Controller, *mocks.MockHTTPClient, *InstagramClient) {
	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)
	client := &InstagramClient{
		httpClient:  httpClient,
		apiURL:      "https://graph.instagram.test",
		accessToken: "test-token",
		json:        adapter.NewJSON(),
	}
	return ctrl, httpClient, client
}

func TestFetchPostsSinglePage(t *testing.T) {
	ctrl, httpClient, client := setupTestClient(t)
	defer ctrl.Finish()

	body := `{
		"data": [
			{"id": "ig-2", "caption": "new menu", "permalink": "https://ig/p/2", "like_count": 12, "comments_count": 3, "timestamp": "2026-08-26T18:00:00+0000"},
			{"id": "ig-1", "caption": "opening", "permalink": "https://ig/p/1", "like_count": 40, "comments_count": 9, "timestamp": "2026-08-20T12:30:00+0000"}
		],
		"paging": {}
	}`
	httpClient.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(&adapter.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(body)}, nil)

	items, err := client.FetchPosts(context.Background(), "cafe.azul", nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "ig-2", items[0].PostID)
	assert.Equal(t, int64(12), items[0].LikeCount)
	assert.Equal(t, int64(3), items[0].CommentCount)
	assert.JSONEq(t,
		`{"id": "ig-2", "caption": "new menu", "permalink": "https://ig/p/2", "like_count": 12, "comments_count": 3, "timestamp": "2026-08-26T18:00:00+0000"}`,
		string(items[0].RawJSON))
}

func TestFetchPostsStopsAtSinceWatermark(t *testing.T) {
	ctrl, httpClient, client := setupTestClient(t)
	defer ctrl.Finish()

	// Page crosses the watermark: only the newer item survives and the
	// paging.next URL must not be followed
	body := `{
		"data": [
			{"id": "ig-2", "timestamp": "2026-08-26T18:00:00+0000"},
			{"id": "ig-1", "timestamp": "2026-08-01T12:30:00+0000"}
		],
		"paging": {"next": "https://graph.instagram.test/next-page"}
	}`
	httpClient.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(&adapter.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(body)}, nil).
		Times(1)

	since := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	items, err := client.FetchPosts(context.Background(), "cafe.azul", &since)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ig-2", items[0].PostID)
}

func TestFetchPostsFollowsPagination(t *testing.T) {
	ctrl, httpClient, client := setupTestClient(t)
	defer ctrl.Finish()

	page1 := `{
		"data": [{"id": "ig-3", "timestamp": "2026-08-26T18:00:00+0000"}],
		"paging": {"next": "https://graph.instagram.test/page2"}
	}`
	page2 := `{
		"data": [{"id": "ig-2", "timestamp": "2026-08-25T18:00:00+0000"}],
		"paging": {}
	}`
	gomock.InOrder(
		httpClient.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Nil()).
			Return(&adapter.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(page1)}, nil),
		httpClient.EXPECT().
			Get(gomock.Any(), "https://graph.instagram.test/page2", gomock.Nil()).
			Return(&adapter.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(page2)}, nil),
	)

	items, err := client.FetchPosts(context.Background(), "cafe.azul", nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestFetchPostsClassifiesStatuses(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantKind   domain.ErrorKind
	}{
		{name: "expired token", statusCode: http.StatusUnauthorized, wantKind: domain.ErrorKindAuth},
		{name: "deleted account", statusCode: http.StatusNotFound, wantKind: domain.ErrorKindNotFound},
		{name: "throttled", statusCode: http.StatusTooManyRequests, wantKind: domain.ErrorKindRateLimited},
		{name: "platform outage", statusCode: http.StatusBadGateway, wantKind: domain.ErrorKindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, httpClient, client := setupTestClient(t)
			defer ctrl.Finish()

			httpClient.EXPECT().
				Get(gomock.Any(), gomock.Any(), gomock.Nil()).
				Return(&adapter.Response{StatusCode: tt.statusCode, Header: http.Header{}}, nil)

			_, err := client.FetchPosts(context.Background(), "cafe.azul", nil)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, domain.ClassifyError(err))
		})
	}
}

func TestFetchPostsMalformedResponse(t *testing.T) {
	ctrl, httpClient, client := setupTestClient(t)
	defer ctrl.Finish()

	httpClient.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(&adapter.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(`<html>maintenance</html>`)}, nil)

	_, err := client.FetchPosts(context.Background(), "cafe.azul", nil)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindMalformed, domain.ClassifyError(err))
}

func TestFetchPostsMissingToken(t *testing.T) {
	ctrl, _, client := setupTestClient(t)
	defer ctrl.Finish()
	client.accessToken = ""

	_, err := client.FetchPosts(context.Background(), "cafe.azul", nil)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindAuth, domain.ClassifyError(err))
}
