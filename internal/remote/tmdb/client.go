// Package tmdb implements catalog.Provider over The Movie Database HTTP API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dendi/filmscatalog/internal/catalog"
)

const (
	DefaultBaseURL   = "https://api.themoviedb.org/3"
	defaultUserAgent = "filmscatalog/0.1"
	defaultTimeout   = 30 * time.Second
	maxErrorBody     = 512
)

// Ensure Client implements catalog.Provider at compile time.
var _ catalog.Provider = (*Client)(nil)

// Client talks to the TMDB API.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	userAgent  string
}

// Option is a function that configures the Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client for baseURL authenticated with token (the v3
// api_key). An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:    base,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchList retrieves the weekly trending list for kind.
func (c *Client) FetchList(ctx context.Context, kind catalog.Kind) ([]catalog.ListItem, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownKind, kind)
	}

	op := fmt.Sprintf("fetch %s list", kind)
	var payload ListResponse
	if err := c.get(ctx, op, "/trending/"+string(kind)+"/week", &payload); err != nil {
		return nil, err
	}

	items := make([]catalog.ListItem, 0, len(payload.Results))
	for _, raw := range payload.Results {
		if raw.ID == 0 {
			continue
		}
		items = append(items, raw.ToListItem(kind))
	}
	return items, nil
}

// FetchDetail retrieves the detail of a movie or show.
func (c *Client) FetchDetail(ctx context.Context, kind catalog.Kind, id int) (catalog.DetailItem, error) {
	if !kind.Valid() {
		return catalog.DetailItem{}, fmt.Errorf("%w: %q", catalog.ErrUnknownKind, kind)
	}

	op := fmt.Sprintf("fetch %s %d", kind, id)
	var payload RawDetail
	if err := c.get(ctx, op, "/"+string(kind)+"/"+strconv.Itoa(id), &payload); err != nil {
		return catalog.DetailItem{}, err
	}
	if payload.ID == 0 {
		return catalog.DetailItem{}, &catalog.DecodeError{Op: op, Err: errors.New("payload has no id")}
	}
	return payload.ToDetailItem(kind), nil
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	endpoint := c.baseURL.JoinPath(path)
	if c.token != "" {
		q := endpoint.Query()
		q.Set("api_key", c.token)
		endpoint.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return &catalog.NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &catalog.NetworkError{Op: op, Err: redact(err, c.token)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &catalog.NetworkError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(statusMessage(resp.Status, body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &catalog.DecodeError{Op: op, Err: err}
	}
	return nil
}

// statusMessage prefers the API's status_message over the raw status line.
func statusMessage(status string, body []byte) string {
	var apiErr struct {
		StatusMessage string `json:"status_message"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.StatusMessage != "" {
		return apiErr.StatusMessage
	}
	return status
}

// redact keeps the api key out of transport errors, which embed the URL.
func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "REDACTED"))
}
