package crmsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"
)

// Config parameterises the request pipeline for one backend variant. The
// pipeline itself — pre-flight token check, decoration, transmit, error
// classification, teardown on auth failure — is identical across variants;
// only the base URL, header set and auth requirement differ.
type Config struct {
	// BaseURL is the backend base URL, without a trailing slash.
	BaseURL string

	// ServiceToken is the static service-level credential sent in the
	// Authorization header on every request.
	ServiceToken string

	// SessionHeader names the header carrying the session JWT (e.g.
	// "X-JWT", "X-Token"). Empty means the variant never attaches the
	// session token.
	SessionHeader string

	// UserIDHeader, when set, is filled with the stored profile's email
	// ("anonymouse" when no profile is stored). The v2 backend wants this.
	UserIDHeader string

	// RequireAuth makes requests fail with ErrAuthRequired (after
	// teardown) when no session token is stored. Individual calls can opt
	// out with SkipAuth.
	RequireAuth bool

	// Headers are additional static headers for this variant.
	Headers map[string]string

	// StatusMessages overrides the error message for specific status codes
	// when the backend returns no structured payload.
	StatusMessages map[int]string

	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client

	// Limiter optionally throttles outbound requests client-side.
	Limiter *rate.Limiter

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client is the shared authenticated request pipeline. All CRM, user-store
// and file-service calls go through a Client; session state is read from
// and torn down through the injected SessionStore, never accessed directly.
type Client struct {
	cfg    Config
	store  SessionStore
	bus    eventPublisher
	logger *slog.Logger
}

// NewClient builds a pipeline from an explicit Config. Most callers want
// one of the variant constructors below.
func NewClient(cfg Config, store SessionStore, bus eventPublisher) *Client {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{cfg: cfg, store: store, bus: bus, logger: logger}
}

// NewCRMClient is the primary CRM backend variant: session JWT in X-JWT,
// auth required.
func NewCRMClient(baseURL, serviceToken string, store SessionStore, bus eventPublisher, logger *slog.Logger) *Client {
	return NewClient(Config{
		BaseURL:       baseURL,
		ServiceToken:  serviceToken,
		SessionHeader: "X-JWT",
		RequireAuth:   true,
		Logger:        logger,
	}, store, bus)
}

// NewCRMV2Client is the v2 namespace variant: session JWT in X-Token plus
// the caller identity in X-User-Id.
func NewCRMV2Client(baseURL, serviceToken string, store SessionStore, bus eventPublisher, logger *slog.Logger) *Client {
	return NewClient(Config{
		BaseURL:       strings.TrimSuffix(baseURL, "/") + "/v2",
		ServiceToken:  serviceToken,
		SessionHeader: "X-Token",
		UserIDHeader:  "X-User-Id",
		RequireAuth:   true,
		Logger:        logger,
	}, store, bus)
}

// NewUserStoreClient is the user-store backend variant. Identical contract
// to the primary CRM variant plus friendlier fallback messages for the
// statuses its endpoints are known to return without a body.
func NewUserStoreClient(baseURL, serviceToken string, store SessionStore, bus eventPublisher, logger *slog.Logger) *Client {
	return NewClient(Config{
		BaseURL:       baseURL,
		ServiceToken:  serviceToken,
		SessionHeader: "X-JWT",
		RequireAuth:   true,
		StatusMessages: map[int]string{
			http.StatusBadRequest:          "invalid request data",
			http.StatusForbidden:           "access forbidden",
			http.StatusNotFound:            "resource not found",
			http.StatusConflict:            "username already exists",
			http.StatusInternalServerError: "internal server error",
		},
		Logger: logger,
	}, store, bus)
}

// NewFileClient is the external file-service variant: service credential
// only, no session token, auth not required.
func NewFileClient(baseURL, serviceToken string, store SessionStore, bus eventPublisher, logger *slog.Logger) *Client {
	return NewClient(Config{
		BaseURL:      baseURL,
		ServiceToken: serviceToken,
		Logger:       logger,
	}, store, bus)
}

// ============================================================================
// Request Options
// ============================================================================

type requestOptions struct {
	skipAuth bool
	headers  map[string]string
	query    url.Values
}

// RequestOption customises a single request.
type RequestOption func(*requestOptions)

// SkipAuth disables the pre-flight session check for one request. Used only
// for the bootstrap default-role lookup that precedes JWT issuance.
func SkipAuth() RequestOption {
	return func(o *requestOptions) { o.skipAuth = true }
}

// WithHeader sets one extra header on the request.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithQuery appends query parameters to the request URL.
func WithQuery(q url.Values) RequestOption {
	return func(o *requestOptions) { o.query = q }
}

// ============================================================================
// Pipeline
// ============================================================================

// Do runs the full pipeline for one request. body (when non-nil) is JSON
// encoded; the response body is decoded into out (when non-nil) without any
// envelope unwrapping.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	// Pre-flight: a request requiring authentication must never be sent
	// without a session token. Teardown happens before the failure
	// propagates so the caller never has to clean up.
	var token string
	if c.cfg.SessionHeader != "" && !o.skipAuth {
		var err error
		token, err = c.store.AccessToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to read session token: %w", err)
		}
		if token == "" && c.cfg.RequireAuth {
			c.logger.Warn("request without session token, tearing down", "path", path)
			if err := teardown(ctx, c.store, c.bus); err != nil {
				return err
			}
			return ErrAuthRequired
		}
	}

	req, err := c.newRequest(ctx, method, path, body, token, &o)
	if err != nil {
		return err
	}

	if c.cfg.Limiter != nil {
		if err := c.cfg.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	requestID := req.Header.Get("X-Request-Id")
	c.logger.Debug("crm request", "method", method, "path", path, "request_id", requestID)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil && len(bodyBytes) > 0 {
			if err := json.Unmarshal(bodyBytes, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}

	return c.classify(ctx, resp.StatusCode, bodyBytes, path, requestID)
}

// newRequest builds the decorated request: service credential, session
// token, locale/connection headers, variant extras and a request ID.
func (c *Client) newRequest(ctx context.Context, method, path string, body any, token string, o *requestOptions) (*http.Request, error) {
	target := c.cfg.BaseURL + path
	if len(o.query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + o.query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", c.cfg.ServiceToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("X-Request-Id", ulid.Make().String())

	if c.cfg.SessionHeader != "" && token != "" {
		req.Header.Set(c.cfg.SessionHeader, token)
	}
	if c.cfg.UserIDHeader != "" {
		req.Header.Set(c.cfg.UserIDHeader, c.storedUserID(ctx))
	}
	for key, value := range c.cfg.Headers {
		req.Header.Set(key, value)
	}
	for key, value := range o.headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// storedUserID resolves the caller identity header value from the stored
// profile. The backend expects the literal "anonymouse" fallback.
func (c *Client) storedUserID(ctx context.Context) string {
	snap, err := c.store.Load(ctx)
	if err != nil || snap.Profile == nil || snap.Profile.Email == "" {
		return "anonymouse"
	}
	return snap.Profile.Email
}

// classify maps a non-2xx response to the error taxonomy. Token-invalidity
// responses tear the session down before the error propagates; all other
// structured payloads are surfaced verbatim.
func (c *Client) classify(ctx context.Context, statusCode int, body []byte, path, requestID string) error {
	apiErr := parseAPIError(statusCode, body)

	if isTokenInvalidity(statusCode, apiErr) {
		c.logger.Warn("session token rejected, tearing down",
			"status", statusCode, "path", path, "request_id", requestID)
		if err := teardown(ctx, c.store, c.bus); err != nil {
			return err
		}
		return ErrInvalidToken
	}

	if apiErr != nil {
		return apiErr
	}

	if msg, ok := c.cfg.StatusMessages[statusCode]; ok {
		return &APIError{StatusCode: statusCode, Message: msg, Raw: body}
	}

	return fmt.Errorf("%w (status %d)", ErrRequestFailed, statusCode)
}

// ============================================================================
// Convenience Methods
// ============================================================================

// Get issues a GET request through the pipeline.
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

// Post issues a POST request through the pipeline.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

// Patch issues a PATCH request through the pipeline.
func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPatch, path, body, out, opts...)
}
