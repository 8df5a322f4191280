// Package auth acquires bearer credentials for Microsoft Graph using
// the OAuth2 client-credentials flow, with a file-backed cache so
// consecutive runs reuse an unexpired token.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/oauth2/clientcredentials"

	"invcli/internal/config"
	"invcli/internal/errs"
)

// TokenProvider implements the pipeline's CredentialProvider contract.
type TokenProvider struct {
	logger *slog.Logger
	conf   *clientcredentials.Config
	cache  *CacheStore

	mu        sync.Mutex
	token     string
	haveToken bool
}

// NewTokenProvider builds a provider from the auth configuration.
// cache may be nil to disable persistence.
func NewTokenProvider(cfg config.AuthConfig, cache *CacheStore, logger *slog.Logger) *TokenProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenProvider{
		logger: logger,
		conf: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(cfg.AuthorityHost, "/"), cfg.TenantID),
			Scopes:       []string{cfg.Scope},
		},
		cache: cache,
	}
}

// Acquire returns a valid bearer token, preferring the in-memory one,
// then the file cache, then a fresh token-endpoint request.
func (p *TokenProvider) Acquire(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.haveToken {
		return p.token, nil
	}

	if p.cache != nil {
		tok, err := p.cache.Load()
		if err != nil {
			p.logger.WarnContext(ctx, "token cache unreadable, acquiring fresh token",
				slog.String("error", err.Error()))
		} else if tok != nil && tok.Valid() {
			p.token = tok.AccessToken
			p.haveToken = true
			return p.token, nil
		}
	}

	tok, err := p.conf.Token(ctx)
	if err != nil {
		return "", &errs.AuthError{Op: "acquire token", Err: err}
	}

	if p.cache != nil {
		if err := p.cache.Save(tok); err != nil {
			p.logger.WarnContext(ctx, "failed to persist token cache",
				slog.String("error", err.Error()))
		}
	}

	p.token = tok.AccessToken
	p.haveToken = true
	return p.token, nil
}

// Invalidate discards the current credential, memory and file cache
// both, forcing the next Acquire to hit the token endpoint.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = ""
	p.haveToken = false
	if p.cache != nil {
		if err := p.cache.Clear(); err != nil {
			p.logger.Warn("failed to clear token cache", slog.String("error", err.Error()))
		}
	}
}
