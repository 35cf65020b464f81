package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newsroom/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON_DecodesAndSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"abc"}`))
	}))
	defer srv.Close()

	var out struct {
		Sub string `json:"sub"`
	}
	require.NoError(t, GetJSON(context.Background(), srv.Client(), srv.URL+"/v2/userinfo", "tok", &out))
	assert.Equal(t, "abc", out.Sub)
}

func TestGetJSON_NonSuccessIsProviderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`slow down`))
	}))
	defer srv.Close()

	err := GetJSON(context.Background(), srv.Client(), srv.URL, "", nil)
	var httpErr *model.ProviderHTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 429, httpErr.StatusCode)
	assert.Equal(t, "slow down", httpErr.Body)
	assert.Equal(t, 30*time.Second, httpErr.RetryAfter)
	assert.Equal(t, model.ErrorClassRateLimit, model.ClassifyPublishError(err))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Duration(0), ParseRetryAfter("", now))
	assert.Equal(t, 5*time.Second, ParseRetryAfter("5", now))
	assert.Equal(t, time.Minute, ParseRetryAfter(now.Add(time.Minute).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("soon", now))
}
