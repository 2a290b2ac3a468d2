package httpclient

import (
	"net/http"
	"time"
)

// ClientType represents the header profile an HTTP client uses
type ClientType string

const (
	// APIClient identifies the pipeline to JSON/XML APIs with a plain
	// tool-style User-Agent
	APIClient ClientType = "api"

	// BrowserClient uses browser-like headers for web page sources that
	// reject tool User-Agents with 406 (Not Acceptable)
	BrowserClient ClientType = "browser"
)

// DefaultTimeout bounds every request issued through this package. The
// pipeline must never block indefinitely on a network call.
const DefaultTimeout = 60 * time.Second

// HTTPClient wraps an http.Client with a header profile and a hard timeout
type HTTPClient struct {
	client     *http.Client
	clientType ClientType
}

// NewClient creates a new HTTP client with the specified profile and the
// default timeout
func NewClient(clientType ClientType) *HTTPClient {
	return NewClientWithTimeout(clientType, DefaultTimeout)
}

// NewClientWithTimeout creates a new HTTP client with an explicit timeout
func NewClientWithTimeout(clientType ClientType, timeout time.Duration) *HTTPClient {
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Follow up to 10 redirects
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &HTTPClient{
		client:     client,
		clientType: clientType,
	}
}

// Do executes an HTTP request with the appropriate headers for the profile
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.setHeaders(req)
	return c.client.Do(req)
}

// Get is a convenience method for GET requests
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// setHeaders sets the appropriate headers based on the profile
func (c *HTTPClient) setHeaders(req *http.Request) {
	switch c.clientType {
	case BrowserClient:
		// Browser-like headers to avoid 406 (Not Acceptable) errors
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	case APIClient:
		req.Header.Set("User-Agent", "docs-export/1.0")
		req.Header.Set("Accept", "application/json, application/xml;q=0.9, */*;q=0.8")

	default:
		// Default: use Go's default User-Agent
	}
}
