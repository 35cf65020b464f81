package social

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"newsroom/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestTwitterOAuth2Publisher_Publish(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets", r.URL.Path)
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		var body tweetBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello world", body.Text)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1789","text":"hello world"}}`))
	})

	id, err := NewTwitterOAuth2Publisher(srv.URL, srv.Client()).Publish(context.Background(), model.PublishRequest{
		Tokens:  model.OAuth2Material{AccessToken: "at"},
		Content: "hello world",
	})
	require.NoError(t, err)
	assert.Equal(t, "1789", id)
}

func TestTwitterOAuth1Publisher_SignsRequest(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		assert.Contains(t, auth, `oauth_consumer_key="ck"`)
		assert.Contains(t, auth, `oauth_token="tok"`)
		assert.Contains(t, auth, "oauth_signature=")
		_, _ = w.Write([]byte(`{"data":{"id":"55"}}`))
	})

	id, err := NewTwitterOAuth1Publisher(srv.URL, "ck", "cs", srv.Client()).Publish(context.Background(), model.PublishRequest{
		Tokens:  model.OAuth1Material{Token: "tok", TokenSecret: "sec"},
		Content: "signed",
	})
	require.NoError(t, err)
	assert.Equal(t, "55", id)
}

func TestTwitterOAuth1Publisher_RejectsWrongVariant(t *testing.T) {
	_, err := NewTwitterOAuth1Publisher("http://unused", "ck", "cs", nil).Publish(context.Background(), model.PublishRequest{
		Tokens: model.OAuth2Material{AccessToken: "at"},
	})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Equal(t, model.ErrorClassPermanent, model.ClassifyPublishError(err))
}

func TestLinkedInPublisher_ReadsRestliID(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/posts", r.URL.Path)
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		var body linkedInPost
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "urn:li:person:abc", body.Author)
		assert.Equal(t, "PUBLIC", body.Visibility)
		w.Header().Set("x-restli-id", "urn:li:share:123")
		w.WriteHeader(http.StatusCreated)
	})

	id, err := NewLinkedInPublisher(srv.URL, srv.Client()).Publish(context.Background(), model.PublishRequest{
		Tokens:            model.OAuth2Material{AccessToken: "at"},
		AccountIdentifier: "abc",
		Content:           "post",
	})
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:123", id)
}

func TestLinkedInPublisher_UnauthorizedIsAuthClass(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid access token"}`))
	})

	_, err := NewLinkedInPublisher(srv.URL, srv.Client()).Publish(context.Background(), model.PublishRequest{
		Tokens:            model.OAuth2Material{AccessToken: "stale"},
		AccountIdentifier: "abc",
	})
	var httpErr *model.ProviderHTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, model.ErrorClassAuth, model.ClassifyPublishError(err))
	assert.Equal(t, `{"message":"Invalid access token"}`, httpErr.Body)
	assert.Equal(t, "provider responded 401 Unauthorized", err.Error())
}

func TestTwitterOAuth2Publisher_MissingIDIsPermanent(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	_, err := NewTwitterOAuth2Publisher(srv.URL, srv.Client()).Publish(context.Background(), model.PublishRequest{
		Tokens:  model.OAuth2Material{AccessToken: "at"},
		Content: "hello",
	})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Equal(t, model.ErrorClassPermanent, model.ClassifyPublishError(err))
}

func TestFacebookPublisher_PostsFormToPageFeed(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page-1/feed", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "news & views", r.PostForm.Get("message"))
		assert.Equal(t, "page-tok", r.PostForm.Get("access_token"))
		_, _ = w.Write([]byte(`{"id":"page-1_987"}`))
	})

	id, err := NewFacebookPublisher(srv.URL, srv.Client()).Publish(context.Background(), model.PublishRequest{
		Tokens:            model.OAuth2Material{AccessToken: "page-tok"},
		AccountIdentifier: "page-1",
		Content:           "news & views",
	})
	require.NoError(t, err)
	assert.Equal(t, "page-1_987", id)
}

func TestFacebookPublisher_ServerErrorIsTransient(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := NewFacebookPublisher(srv.URL, srv.Client()).Publish(context.Background(), model.PublishRequest{
		Tokens:            model.OAuth2Material{AccessToken: "page-tok"},
		AccountIdentifier: "page-1",
	})
	assert.Equal(t, model.ErrorClassTransient, model.ClassifyPublishError(err))
}

func TestMastodonPublisher_Publish(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/statuses", r.URL.Path)
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"10901","content":"<p>toot</p>"}`))
	})

	id, err := NewMastodonPublisher(srv.URL, srv.Client()).Publish(context.Background(), model.PublishRequest{
		Tokens:  model.OAuth2Material{AccessToken: "at"},
		Content: "toot",
	})
	require.NoError(t, err)
	assert.Equal(t, "10901", id)
}

func TestMastodonPublisher_RateLimited(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Too many requests"}`))
	})
	_, err := NewMastodonPublisher(srv.URL, srv.Client()).Publish(context.Background(), model.PublishRequest{
		Tokens:  model.OAuth2Material{AccessToken: "at"},
		Content: "toot",
	})
	assert.Equal(t, model.ErrorClassRateLimit, model.ClassifyPublishError(err))
}
