package crmsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenClient talks to the OAuth-style token endpoint. It acquires tokens
// and nothing more; persisting them is the SessionStore's job.
type TokenClient struct {
	BaseURL string

	// ServiceToken is the static bearer credential the token endpoint
	// requires on every request.
	ServiceToken string

	HTTPClient *http.Client
}

// NewTokenClient creates a client for the given token endpoint.
func NewTokenClient(baseURL, serviceToken string) *TokenClient {
	return &TokenClient{
		BaseURL:      strings.TrimSuffix(baseURL, "/"),
		ServiceToken: serviceToken,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// PasswordGrant exchanges a username and password for a token pair.
// Both fields are required. The response must carry an access token and an
// identity token, otherwise ErrInvalidCredentials is returned.
func (c *TokenClient) PasswordGrant(ctx context.Context, username, password string) (*TokenResponse, error) {
	if username == "" {
		return nil, &ValidationError{Field: "username", Message: "username is required"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password", Message: "password is required"}
	}

	data := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
		"scope":      {"openid"},
	}

	tokenResp, err := c.requestToken(ctx, data)
	if err != nil {
		return nil, err
	}

	if tokenResp.AccessToken == "" || tokenResp.IDToken == "" {
		return nil, ErrInvalidCredentials
	}

	return tokenResp, nil
}

// RefreshGrant exchanges a refresh token for a new token pair. Any transport
// or validation failure surfaces as ErrTokenRefresh wrapping the cause.
func (c *TokenClient) RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, &ValidationError{Field: "refresh_token", Message: "refresh token is required"}
	}

	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"scope":         {"openid"},
	}

	tokenResp, err := c.requestToken(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenRefresh, err)
	}
	if tokenResp.AccessToken == "" {
		return nil, ErrTokenRefresh
	}

	return tokenResp, nil
}

func (c *TokenClient) requestToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.BaseURL+"/",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", c.ServiceToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseTokenEndpointError(resp.StatusCode, bodyBytes)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(bodyBytes, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokenResp, nil
}

// parseTokenEndpointError surfaces the endpoint's error_description (or
// error code) so the UI can show the provider's own message.
func parseTokenEndpointError(statusCode int, body []byte) error {
	var errResp struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.ErrorDescription != "" {
			return &APIError{StatusCode: statusCode, MessageKey: errResp.Error, Message: errResp.ErrorDescription, Raw: body}
		}
		if errResp.Error != "" {
			return &APIError{StatusCode: statusCode, MessageKey: errResp.Error, Message: errResp.Error, Raw: body}
		}
	}

	return &APIError{StatusCode: statusCode, Message: fmt.Sprintf("token request failed with status %d", statusCode), Raw: body}
}
