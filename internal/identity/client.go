// Package identity adapts the external identity provider's password grant
// endpoint. The provider is best-effort and non-authoritative: callers use it
// as a defense-in-depth signal, never as a login gate.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks a credential pair against the identity provider.
type Verifier interface {
	// VerifyPassword attempts a password grant for the given email. On
	// success it returns the provider's subject (the identity reference).
	VerifyPassword(ctx context.Context, email, password string) (string, error)
}

// Client talks to a Supabase-compatible auth endpoint.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewClient constructs a Client for the given base URL and service credential.
func NewClient(baseURL, serviceKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// tokenResponse maps the fields used from the provider's grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// errorResponse maps the provider's error payload.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"msg"`
}

// VerifyPassword performs a password grant and returns the token subject.
func (c *Client) VerifyPassword(ctx context.Context, email, password string) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("identity: client not configured")
	}

	payload, errMarshal := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if errMarshal != nil {
		return "", fmt.Errorf("identity: marshal grant request: %w", errMarshal)
	}

	url := c.baseURL + "/auth/v1/token?grant_type=password"
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if errReq != nil {
		return "", fmt.Errorf("identity: build grant request: %w", errReq)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return "", fmt.Errorf("identity: password grant: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	body, errRead := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if errRead != nil {
		return "", fmt.Errorf("identity: read grant response: %w", errRead)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		_ = json.Unmarshal(body, &apiErr)
		reason := apiErr.ErrorDescription
		if reason == "" {
			reason = apiErr.Message
		}
		if reason == "" {
			reason = apiErr.Error
		}
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("identity: password grant rejected: %s", reason)
	}

	var token tokenResponse
	if errUnmarshal := json.Unmarshal(body, &token); errUnmarshal != nil {
		return "", fmt.Errorf("identity: decode grant response: %w", errUnmarshal)
	}

	return subjectFromToken(token.AccessToken), nil
}

// subjectFromToken extracts the subject claim without verifying the token
// signature. The value feeds logging only, never an authorization decision.
func subjectFromToken(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, errParse := jwt.NewParser().ParseUnverified(raw, claims); errParse != nil {
		return ""
	}
	subject, errSub := claims.GetSubject()
	if errSub != nil {
		return ""
	}
	return subject
}
