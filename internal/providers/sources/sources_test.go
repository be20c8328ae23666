package sources

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/domain"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantKind   domain.ErrorKind
		wantNil    bool
	}{
		{name: "200 ok", statusCode: http.StatusOK, wantNil: true},
		{name: "201 created", statusCode: http.StatusCreated, wantNil: true},
		{name: "401 unauthorized", statusCode: http.StatusUnauthorized, wantKind: domain.ErrorKindAuth},
		{name: "403 forbidden", statusCode: http.StatusForbidden, wantKind: domain.ErrorKindAuth},
		{name: "404 not found", statusCode: http.StatusNotFound, wantKind: domain.ErrorKindNotFound},
		{name: "429 rate limited", statusCode: http.StatusTooManyRequests, wantKind: domain.ErrorKindRateLimited},
		{name: "500 server error", statusCode: http.StatusInternalServerError, wantKind: domain.ErrorKindTransient},
		{name: "503 unavailable", statusCode: http.StatusServiceUnavailable, wantKind: domain.ErrorKindTransient},
		{name: "418 unexpected", statusCode: http.StatusTeapot, wantKind: domain.ErrorKindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyStatus(domain.SourceInstagram, &adapter.Response{
				StatusCode: tt.statusCode,
				Header:     http.Header{},
			})
			if tt.wantNil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantKind, domain.ClassifyError(err))
		})
	}
}

func TestClassifyStatusRetryAfterSeconds(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "120")

	err := ClassifyStatus(domain.SourceTikTok, &adapter.Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     header,
	})
	assert.Equal(t, 2*time.Minute, domain.RetryAfterHint(err))
}

func TestClassifyStatusRetryAfterHTTPDate(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", time.Now().Add(90*time.Second).UTC().Format(http.TimeFormat))

	err := ClassifyStatus(domain.SourceFacebook, &adapter.Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     header,
	})
	hint := domain.RetryAfterHint(err)
	assert.Greater(t, hint, 60*time.Second)
	assert.LessOrEqual(t, hint, 90*time.Second)
}

func TestRegistryUnknownSource(t *testing.T) {
	r := Registry{}
	_, err := r.Get(domain.SourceInstagram)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no client registered")
}
