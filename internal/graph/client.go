// Package graph is a minimal Microsoft Graph client for SharePoint
// document library operations: resolving the site and drive, listing a
// folder, and downloading drive items. It implements the pipeline's
// Lister and Fetcher contracts.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"invcli/internal/config"
	"invcli/internal/errs"
	"invcli/internal/pipeline"
)

// TokenProvider supplies the bearer credential for each request.
type TokenProvider interface {
	Acquire(ctx context.Context) (string, error)
}

// Client talks to Microsoft Graph. Site and drive ids are resolved on
// first use and cached for the lifetime of the client.
type Client struct {
	logger      *slog.Logger
	httpClient  *http.Client
	limiter     *rate.Limiter
	creds       TokenProvider
	baseURL     string
	siteURL     string
	libraryName string

	mu      sync.Mutex
	driveID string
}

// NewClient creates a Graph client for the configured site and
// document library.
func NewClient(cfg config.GraphConfig, creds TokenProvider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger:      logger,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
		creds:       creds,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		siteURL:     cfg.SiteURL,
		libraryName: cfg.LibraryName,
	}
}

type driveItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	File *struct {
		MimeType string `json:"mimeType"`
	} `json:"file"`
}

type listResponse struct {
	Value    []driveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// List returns the files directly under folderPath in the configured
// document library, following listing pages. Folders are excluded.
func (c *Client) List(ctx context.Context, folderPath string) ([]pipeline.RemoteFile, error) {
	driveID, err := c.resolveDriveID(ctx)
	if err != nil {
		return nil, err
	}

	url := c.url(fmt.Sprintf("drives/%s/root:/%s:/children", driveID, strings.Trim(folderPath, "/")))

	var files []pipeline.RemoteFile
	for url != "" {
		var page listResponse
		if err := c.getJSON(ctx, url, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Value {
			if item.File == nil {
				continue
			}
			files = append(files, pipeline.RemoteFile{Name: item.Name, RemoteID: item.ID})
		}
		url = page.NextLink
	}

	c.logger.DebugContext(ctx, "listed folder",
		slog.String("folder", folderPath),
		slog.Int("file_count", len(files)))

	return files, nil
}

// Fetch downloads the raw bytes of one drive item.
func (c *Client) Fetch(ctx context.Context, remoteID string) ([]byte, error) {
	driveID, err := c.resolveDriveID(ctx)
	if err != nil {
		return nil, err
	}

	url := c.url(fmt.Sprintf("drives/%s/items/%s/content", driveID, remoteID))
	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.FetchError{Remote: remoteID, Err: err}
	}
	return data, nil
}

// resolveDriveID resolves the configured site URL and library name to
// a drive id, caching the result.
func (c *Client) resolveDriveID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.driveID != "" {
		return c.driveID, nil
	}

	siteID, err := c.resolveSiteID(ctx)
	if err != nil {
		return "", err
	}

	var payload struct {
		Value []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"value"`
	}
	if err := c.getJSON(ctx, c.url("sites/"+siteID+"/drives"), &payload); err != nil {
		return "", err
	}

	for _, drive := range payload.Value {
		if drive.Name == c.libraryName {
			c.driveID = drive.ID
			c.logger.DebugContext(ctx, "resolved drive id",
				slog.String("library", c.libraryName),
				slog.String("drive_id", drive.ID))
			return c.driveID, nil
		}
	}
	return "", fmt.Errorf("drive %q not found for site %q", c.libraryName, c.siteURL)
}

// resolveSiteID converts the full site URL into a Graph site id via
// the sites/{host}:/{path} addressing form.
func (c *Client) resolveSiteID(ctx context.Context) (string, error) {
	cleaned := strings.TrimPrefix(strings.TrimPrefix(c.siteURL, "https://"), "http://")
	host, sitePath, found := strings.Cut(cleaned, "/")
	if !found || host == "" || sitePath == "" {
		return "", fmt.Errorf("invalid site URL: %s", c.siteURL)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := c.getJSON(ctx, c.url(fmt.Sprintf("sites/%s:/%s", host, sitePath)), &payload); err != nil {
		return "", err
	}
	if payload.ID == "" {
		return "", fmt.Errorf("unable to resolve site id from URL: %s", c.siteURL)
	}
	return payload.ID, nil
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + path
}

// getJSON performs an authenticated GET and decodes the JSON body.
func (c *Client) getJSON(ctx context.Context, url string, into any) error {
	resp, err := c.do(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return &errs.FetchError{Remote: url, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// do performs one rate-limited, authenticated GET. A 401 response is
// surfaced as an AuthError so the caller can refresh the credential
// and retry; other non-2xx statuses become FetchErrors.
func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := c.creds.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errs.FetchError{Remote: url, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, &errs.AuthError{Op: "graph request", Err: fmt.Errorf("unauthorized: %s", url)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &errs.FetchError{Remote: url, Status: resp.StatusCode}
	}
	return resp, nil
}
