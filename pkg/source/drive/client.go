// Package drive implements the document source against the Google Drive v3
// REST API, authenticated with a service-account credential. Queries are
// shared-drive aware and the configured folder tree is walked recursively;
// only Google Docs are exported, as plain text.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2/google"

	"docs-export/pkg/config"
)

const (
	defaultBaseURL = "https://www.googleapis.com/drive/v3"

	scopeDriveReadonly = "https://www.googleapis.com/auth/drive.readonly"

	mimeTypeDocument = "application/vnd.google-apps.document"
	mimeTypeFolder   = "application/vnd.google-apps.folder"
)

// Config holds what the client needs to locate and read the export scope.
type Config struct {
	// CredentialPath is the provisioned service-account key file.
	CredentialPath string

	// Folder is the name of the folder to export. ParentFolder optionally
	// disambiguates between same-named folders.
	Folder       string
	ParentFolder string

	// Retry bounds per-document export fetches. Enumeration and
	// authentication are never retried.
	Retry config.RetryPolicy
}

// Client talks to the Drive REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cfg        Config
}

// NewClient builds a client whose transport injects service-account tokens.
// The first API call performs the actual token exchange, so an invalid
// credential surfaces as a fatal error on FetchAll before any output exists.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Folder == "" {
		return nil, fmt.Errorf("drive folder name is required")
	}

	key, err := os.ReadFile(cfg.CredentialPath)
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	jwtCfg, err := google.JWTConfigFromJSON(key, scopeDriveReadonly)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	httpClient := jwtCfg.Client(ctx)
	httpClient.Timeout = cfg.Retry.Timeout()

	return &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
		cfg:        cfg,
	}, nil
}

// newClientWithHTTP is used by tests to point the client at a fake API.
func newClientWithHTTP(httpClient *http.Client, baseURL string, cfg Config) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		cfg:        cfg,
	}
}

// driveFile is the subset of the Drive file resource the pipeline uses.
type driveFile struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mimeType"`
	Parents      []string `json:"parents"`
	CreatedTime  string   `json:"createdTime"`
	ModifiedTime string   `json:"modifiedTime"`
}

type fileList struct {
	NextPageToken string      `json:"nextPageToken"`
	Files         []driveFile `json:"files"`
}

// listFiles runs a files.list query, following pagination, with shared-drive
// support enabled on every request.
func (c *Client) listFiles(ctx context.Context, query string) ([]driveFile, error) {
	var all []driveFile
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("q", query)
		params.Set("fields", "nextPageToken,files(id,name,mimeType,parents,createdTime,modifiedTime)")
		params.Set("supportsAllDrives", "true")
		params.Set("includeItemsFromAllDrives", "true")
		params.Set("spaces", "drive")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page fileList
		if err := c.getJSON(ctx, c.baseURL+"/files?"+params.Encode(), &page); err != nil {
			return nil, err
		}

		all = append(all, page.Files...)
		if page.NextPageToken == "" {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}

// getFileName fetches the name of a single file, used to resolve parent
// folder names during disambiguation.
func (c *Client) getFileName(ctx context.Context, fileID string) (string, error) {
	params := url.Values{}
	params.Set("fields", "name")
	params.Set("supportsAllDrives", "true")

	var file driveFile
	if err := c.getJSON(ctx, c.baseURL+"/files/"+url.PathEscape(fileID)+"?"+params.Encode(), &file); err != nil {
		return "", err
	}
	return file.Name, nil
}

// exportText exports a Google Doc as plain text, trimmed.
func (c *Client) exportText(ctx context.Context, fileID string) (string, error) {
	params := url.Values{}
	params.Set("mimeType", "text/plain")

	body, err := c.get(ctx, c.baseURL+"/files/"+url.PathEscape(fileID)+"/export?"+params.Encode())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// getJSON performs a GET request and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode drive response: %w", err)
	}
	return nil
}

// get performs a GET request and returns the body, classifying auth errors.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drive request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read drive response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("drive authentication failed (status %d): %s", resp.StatusCode, truncate(body))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("drive returned status %d: %s", resp.StatusCode, truncate(body))
	}

	return body, nil
}

// escapeQueryValue escapes a string literal for a Drive query expression.
func escapeQueryValue(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `'`, `\'`)
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
