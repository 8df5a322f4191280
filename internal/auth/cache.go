package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// CacheStore persists the most recent token to a file so consecutive
// runs reuse it until expiry. The store is created by the caller and
// injected into the TokenProvider; nothing here is process-global.
type CacheStore struct {
	path string
}

// NewCacheStore creates a token cache backed by the file at path.
func NewCacheStore(path string) *CacheStore {
	return &CacheStore{path: path}
}

// Load reads the cached token. A missing cache file returns (nil, nil).
func (s *CacheStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token cache: %w", err)
	}
	return &tok, nil
}

// Save writes the token to the cache file, creating parent directories
// as needed. The file is owner-readable only.
func (s *CacheStore) Save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token cache: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create token cache directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	return nil
}

// Clear removes the cache file. Clearing an absent cache is not an
// error.
func (s *CacheStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear token cache: %w", err)
	}
	return nil
}
