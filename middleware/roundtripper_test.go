package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/MrEthical07/goAuth-client"
	"github.com/MrEthical07/goAuth-client/internal/authtest"
	"github.com/MrEthical07/goAuth-client/tokenstore"
)

func newLoggedInClient(t *testing.T) (*authclient.Client, *authtest.Server) {
	t.Helper()

	srv := authtest.NewServer(nil)
	t.Cleanup(srv.Close)
	srv.AddUser("alice@example.com", "correct-horse")

	client, err := authclient.New().
		WithBaseURL(srv.URL).
		WithTokenStore(tokenstore.NewMemoryStore()).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = client.Login(context.Background(), authclient.Credentials{Email: "alice@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	return client, srv
}

func TestRoundTripperAttachesToken(t *testing.T) {
	client, srv := newLoggedInClient(t)
	hc, err := NewHTTPClient(client)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/items?x=1", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got struct {
		Path    string `json:"path"`
		Query   string `json:"query"`
		Body    string `json:"body"`
		Subject string `json:"subject"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "/api/items", got.Path)
	assert.Equal(t, "x=1", got.Query)
	assert.Equal(t, `{"a":1}`, got.Body)
	assert.Equal(t, "alice@example.com", got.Subject)
}

func TestRoundTripperReplaysBodyAfterUnauthorized(t *testing.T) {
	client, srv := newLoggedInClient(t)
	token, err := client.AccessToken(context.Background())
	require.NoError(t, err)
	srv.RevokeAccess(token)

	hc, err := NewHTTPClient(client)
	require.NoError(t, err)

	resp, err := hc.Post(srv.URL+"/api/items", "text/plain", strings.NewReader("payload"))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"body":"payload"`)
	assert.EqualValues(t, 2, srv.APICalls.Load())
	assert.EqualValues(t, 1, srv.Refreshes.Load())
}

func TestRoundTripperReturnsFinalUnauthorized(t *testing.T) {
	client, srv := newLoggedInClient(t)
	srv.SetRejectAllBearer(true)

	hc, err := NewHTTPClient(client)
	require.NoError(t, err)

	resp, err := hc.Get(srv.URL + "/api/items")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 2, srv.APICalls.Load())
}

func TestRoundTripperWithoutSession(t *testing.T) {
	client, srv := newLoggedInClient(t)
	require.NoError(t, client.Logout(context.Background()))

	hc, err := NewHTTPClient(client)
	require.NoError(t, err)

	_, err = hc.Get(srv.URL + "/api/items")
	require.Error(t, err)
	assert.True(t, errors.Is(err, authclient.ErrNotAuthenticated), "err: %v", err)
}

func TestRoundTripperRejectsForeignHost(t *testing.T) {
	called := false
	rt, err := NewRoundTripper(SenderFunc(func(context.Context, authclient.Request) (*authclient.Response, error) {
		called = true
		return &authclient.Response{StatusCode: http.StatusOK}, nil
	}), "https://api.example.com/v1")
	require.NoError(t, err)

	cases := []string{
		"https://evil.example.com/v1/items",
		"http://api.example.com/v1/items",
		"https://api.example.com/v10/items",
		"https://api.example.com/other",
	}
	for _, target := range cases {
		req, err := http.NewRequest(http.MethodGet, target, nil)
		require.NoError(t, err)
		_, err = rt.RoundTrip(req)
		assert.ErrorIs(t, err, ErrForeignHost, target)
	}
	assert.False(t, called)
}

func TestRoundTripperStripsBasePath(t *testing.T) {
	var seen authclient.Request
	rt, err := NewRoundTripper(SenderFunc(func(_ context.Context, req authclient.Request) (*authclient.Response, error) {
		seen = req
		return &authclient.Response{StatusCode: http.StatusNoContent}, nil
	}), "https://api.example.com/v1/")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodDelete, "https://api.example.com/v1/items/7", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer caller-supplied")

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "/items/7", seen.Path)
	assert.Equal(t, http.MethodDelete, seen.Method)
	assert.Empty(t, seen.Header.Get("Authorization"))
	assert.Nil(t, seen.Body)
}

func TestNewRoundTripperValidation(t *testing.T) {
	_, err := NewRoundTripper(nil, "https://api.example.com")
	assert.Error(t, err)

	_, err = NewRoundTripper(SenderFunc(nil), "api.example.com")
	assert.Error(t, err)
}
