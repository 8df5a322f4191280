package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"invcli/internal/config"
	"invcli/internal/errs"
)

// newTokenEndpoint serves the tenant token path, counting requests.
func newTokenEndpoint(t *testing.T, status int) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "/tenant-1/oauth2/v2.0/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-fresh",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func authConfig(authority string) config.AuthConfig {
	return config.AuthConfig{
		TenantID:      "tenant-1",
		ClientID:      "client-1",
		ClientSecret:  "secret",
		AuthorityHost: authority,
		Scope:         "https://graph.microsoft.com/.default",
	}
}

func TestAcquireFreshToken(t *testing.T) {
	srv, calls := newTokenEndpoint(t, http.StatusOK)
	p := NewTokenProvider(authConfig(srv.URL), nil, nil)

	tok, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-fresh", tok)
	assert.Equal(t, 1, *calls)

	// second acquire reuses the in-memory token
	tok, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-fresh", tok)
	assert.Equal(t, 1, *calls)
}

func TestAcquireUsesFileCache(t *testing.T) {
	srv, calls := newTokenEndpoint(t, http.StatusOK)
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	cache := NewCacheStore(cachePath)
	require.NoError(t, cache.Save(&oauth2.Token{
		AccessToken: "tok-cached",
		Expiry:      time.Now().Add(time.Hour),
	}))

	p := NewTokenProvider(authConfig(srv.URL), cache, nil)
	tok, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-cached", tok)
	assert.Equal(t, 0, *calls, "valid cached token avoids the token endpoint")
}

func TestAcquireIgnoresExpiredCache(t *testing.T) {
	srv, calls := newTokenEndpoint(t, http.StatusOK)
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	cache := NewCacheStore(cachePath)
	require.NoError(t, cache.Save(&oauth2.Token{
		AccessToken: "tok-stale",
		Expiry:      time.Now().Add(-time.Hour),
	}))

	p := NewTokenProvider(authConfig(srv.URL), cache, nil)
	tok, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-fresh", tok)
	assert.Equal(t, 1, *calls)

	// fresh token persisted back to the cache
	cached, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "tok-fresh", cached.AccessToken)
}

func TestAcquireFailureIsAuthError(t *testing.T) {
	srv, _ := newTokenEndpoint(t, http.StatusUnauthorized)
	p := NewTokenProvider(authConfig(srv.URL), nil, nil)

	_, err := p.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsAuth(err))
}

func TestInvalidateForcesRefresh(t *testing.T) {
	srv, calls := newTokenEndpoint(t, http.StatusOK)
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	p := NewTokenProvider(authConfig(srv.URL), NewCacheStore(cachePath), nil)

	_, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)

	p.Invalidate()
	_, statErr := os.Stat(cachePath)
	assert.True(t, os.IsNotExist(statErr), "invalidate clears the cache file")

	_, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, *calls)
}

func TestCacheStoreMissingFile(t *testing.T) {
	cache := NewCacheStore(filepath.Join(t.TempDir(), "absent.json"))
	tok, err := cache.Load()
	require.NoError(t, err)
	assert.Nil(t, tok)
	assert.NoError(t, cache.Clear())
}
