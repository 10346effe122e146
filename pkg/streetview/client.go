// Package streetview provides a client for the street-level imagery metadata
// and image APIs.
package streetview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// StatusOK is the metadata status for a location with imagery. Any other
// status means "no panorama here" and is not an error.
const StatusOK = "OK"

// Client defines the imagery service operations.
type Client interface {
	// Metadata resolves a coordinate to its nearest panorama.
	Metadata(ctx context.Context, lat, lng float64) (*MetadataResponse, error)
	// Image fetches one directional view of a panorama.
	Image(ctx context.Context, panoID string, fov, heading, pitch, size int) ([]byte, error)
}

// MetadataResponse is the parsed metadata API response.
type MetadataResponse struct {
	Status   string   `json:"status"`
	PanoID   string   `json:"pano_id"`
	Date     string   `json:"date"`
	Location Location `json:"location"`
}

// Location is the panorama's actual capture coordinate.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// OK reports whether imagery exists at the queried location.
func (m *MetadataResponse) OK() bool { return m.Status == StatusOK }

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(baseURL string) Option {
	return func(c *httpClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithSigningSecret enables HMAC-SHA1 URL signing with the given
// base64-urlsafe secret.
func WithSigningSecret(secret string) Option {
	return func(c *httpClient) {
		c.secret = secret
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	apiKey  string
	secret  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an imagery service client. Individual request failures
// are returned to the caller and never retried; the pipeline drops the
// affected point or view instead.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://maps.googleapis.com/maps/api",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Metadata(ctx context.Context, lat, lng float64) (*MetadataResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "streetview: rate limit wait")
	}

	q := url.Values{}
	q.Set("location", fmt.Sprintf("%v,%v", lat, lng))
	q.Set("key", c.apiKey)

	reqURL, err := c.signedURL("/streetview/metadata", q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "streetview: build metadata request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "streetview: metadata request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("streetview: metadata status %d", resp.StatusCode)
	}

	var meta MetadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, eris.Wrap(err, "streetview: decode metadata")
	}
	return &meta, nil
}

func (c *httpClient) Image(ctx context.Context, panoID string, fov, heading, pitch, size int) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "streetview: rate limit wait")
	}

	q := url.Values{}
	q.Set("size", fmt.Sprintf("%dx%d", size, size))
	q.Set("pano", panoID)
	q.Set("fov", fmt.Sprintf("%d", fov))
	q.Set("heading", fmt.Sprintf("%d", heading))
	q.Set("pitch", fmt.Sprintf("%d", pitch))
	q.Set("key", c.apiKey)

	reqURL, err := c.signedURL("/streetview", q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "streetview: build image request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "streetview: image request %s", panoID)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("streetview: image status %d for %s", resp.StatusCode, panoID)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "streetview: read image %s", panoID)
	}
	return data, nil
}

// signedURL assembles the request URL, appending an HMAC signature when a
// signing secret is configured.
func (c *httpClient) signedURL(path string, q url.Values) (string, error) {
	raw := c.baseURL + path + "?" + q.Encode()
	if c.secret == "" {
		return raw, nil
	}
	return SignURL(raw, c.secret)
}
