// Package apiclient is the HTTP transport used by the stores. It attaches the
// bearer credential, encodes JSON and multipart bodies, and normalizes every
// failure into a *RemoteError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// CredentialSource supplies the bearer token for outgoing requests. An empty
// string means no Authorization header is sent.
type CredentialSource interface {
	Credential() string
}

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func() string

// Credential calls f.
func (f CredentialFunc) Credential() string { return f() }

// File is an upload payload.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Client issues requests against one API base URL.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	creds      CredentialSource
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for baseURL. creds may be nil for anonymous use.
func New(baseURL string, creds CredentialSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		creds:      creds,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetCredentialSource replaces the credential source. It must be called
// before the client is shared between goroutines.
func (c *Client) SetCredentialSource(creds CredentialSource) {
	c.creds = creds
}

// Get issues GET path?query and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any, fallback string) error {
	return c.do(ctx, http.MethodGet, path, query, nil, "", out, fallback)
}

// Post issues POST path with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any, fallback string) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out, fallback)
}

// Put issues PUT path with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any, fallback string) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out, fallback)
}

// Delete issues DELETE path. Any response body is discarded.
func (c *Client) Delete(ctx context.Context, path string, fallback string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, "", nil, fallback)
}

// Upload posts file as a multipart form under field.
func (c *Client) Upload(ctx context.Context, path, field string, file File, out any, fallback string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, file.Name))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return fmt.Errorf("failed to read upload %s: %w", file.Name, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, &buf, mw.FormDataContentType(), out, fallback)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, fallback string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, method, path, nil, bytes.NewReader(data), "application/json", out, fallback)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any, fallback string) error {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.creds != nil {
		if token := c.creds.Credential(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Request failed",
			"method", method,
			"path", u.Path,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return &RemoteError{Message: fallback, cause: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("Request completed",
		"method", method,
		"path", u.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeError(resp.StatusCode, data, fallback)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Warn("Failed to decode response", "method", method, "path", u.Path, "error", err)
		return &RemoteError{Status: resp.StatusCode, Message: fallback}
	}
	return nil
}
