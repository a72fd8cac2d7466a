// Package backend is the HTTP client for the agency's external API, which
// owns authentication, pricing, offer metadata, PDF rendering and image hosting.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const maxErrorBody = 64 << 10

// Client calls the backend API. Every method takes the caller's bearer token;
// an empty token is sent without an Authorization header and left for the
// backend to reject.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	uploadLimiter *rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUploadRate caps image relays at perMinute across the process.
// Zero or negative disables the limit.
func WithUploadRate(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.uploadLimiter = nil
			return
		}
		c.uploadLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
}

// New creates a backend client. A zero timeout means no client-side timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status probes GET / and returns the backend's message.
func (c *Client) Status(ctx context.Context) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/", nil, "", nil, &out); err != nil {
		return "", fmt.Errorf("backend.Status: %w", err)
	}
	return out.Message, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, "", LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, fmt.Errorf("backend.Login: %w", err)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("backend.Login: empty access token")
	}
	return &out, nil
}

// Me returns the profile behind token.
func (c *Client) Me(ctx context.Context, token string) (*Profile, error) {
	var out Profile
	if err := c.doJSON(ctx, http.MethodGet, "/me", nil, token, nil, &out); err != nil {
		return nil, fmt.Errorf("backend.Me: %w", err)
	}
	return &out, nil
}

func (c *Client) CalculateAmount(ctx context.Context, token string, req AmountRequest) (*AmountResult, error) {
	var out AmountResult
	if err := c.doJSON(ctx, http.MethodPost, "/calculate-amount", nil, token, req, &out); err != nil {
		return nil, fmt.Errorf("backend.CalculateAmount: %w", err)
	}
	if out.Amount == nil {
		return nil, fmt.Errorf("backend.CalculateAmount: response has no amount")
	}
	return &out, nil
}

// ProcessEntry posts a project entry form and decodes the processed entry into out.
func (c *Client) ProcessEntry(ctx context.Context, token string, form any, out any) error {
	if err := c.doJSON(ctx, http.MethodPost, "/offer/process-entry", nil, token, form, out); err != nil {
		return fmt.Errorf("backend.ProcessEntry: %w", err)
	}
	return nil
}

// GenerateEntryPDF renders the project-details PDF; preview selects inline rendering.
func (c *Client) GenerateEntryPDF(ctx context.Context, token string, form any, preview bool) (*Document, error) {
	doc, err := c.doDocument(ctx, "/offer/generate-entry-pdf", preview, token, form)
	if err != nil {
		return nil, fmt.Errorf("backend.GenerateEntryPDF: %w", err)
	}
	return doc, nil
}

func (c *Client) GenerateOffer(ctx context.Context, token string, req OfferRequest) (*OfferResult, error) {
	var out OfferResult
	if err := c.doJSON(ctx, http.MethodPost, "/generate-offer", nil, token, req, &out); err != nil {
		return nil, fmt.Errorf("backend.GenerateOffer: %w", err)
	}
	return &out, nil
}

func (c *Client) GenerateOfferPDF(ctx context.Context, token string, payload any, preview bool) (*Document, error) {
	doc, err := c.doDocument(ctx, "/generate-offer-pdf", preview, token, payload)
	if err != nil {
		return nil, fmt.Errorf("backend.GenerateOfferPDF: %w", err)
	}
	return doc, nil
}

// UploadBase64Image relays a data URL to the image host through the backend.
func (c *Client) UploadBase64Image(ctx context.Context, token string, req UploadRequest) (*UploadResult, error) {
	if c.uploadLimiter != nil {
		if err := c.uploadLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("backend.UploadBase64Image: rate limit: %w", err)
		}
	}

	var out UploadResult
	if err := c.doJSON(ctx, http.MethodPost, "/upload-base64-image", nil, token, req, &out); err != nil {
		return nil, fmt.Errorf("backend.UploadBase64Image: %w", err)
	}
	if out.URL == "" {
		return nil, fmt.Errorf("backend.UploadBase64Image: response has no url")
	}
	return &out, nil
}

func (c *Client) doDocument(ctx context.Context, path string, preview bool, token string, body any) (*Document, error) {
	q := url.Values{}
	q.Set("preview", strconv.FormatBool(preview))

	resp, err := c.do(ctx, http.MethodPost, path, q, token, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	doc := &Document{Data: data, ContentType: resp.Header.Get("Content-Type")}
	if doc.ContentType == "" {
		doc.ContentType = "application/pdf"
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			doc.Filename = params["filename"]
		}
	}
	return doc, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, token string, body, out any) error {
	resp, err := c.do(ctx, method, path, query, token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do sends the request and returns the response for 2xx statuses. Any other
// status is drained into an *HTTPError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body any) (*http.Response, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newHTTPError(resp.StatusCode, data)
	}
	return resp, nil
}
